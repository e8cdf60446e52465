package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/x/ansi"
	"github.com/charmbracelet/x/vt"
)

// scrollback feeds the emulated UART's output byte stream through a VT100
// interpreter so the host window shows a proper scrolling console,
// grounded on internal/term/terminal.go's use of x/vt and x/ansi for its
// own embedded terminal view. Unlike that GUI view (which renders into a
// texture once per frame), this writes a redrawn text grid straight to
// the real host terminal using ansi cursor/clear-line escapes.
type scrollback struct {
	mu  sync.Mutex
	emu *vt.SafeEmulator
	out io.Writer
}

func newScrollback(out io.Writer, cols, rows int) *scrollback {
	emu := vt.NewSafeEmulator(cols, rows)
	disableGuestConfusingQueries(emu)
	return &scrollback{emu: emu, out: out}
}

// Write implements io.Writer, satisfying the UART's Output field (§6
// "UART" funnels every transmitted byte here). The UART writes one byte
// at a time, so every call redraws the host terminal immediately,
// acceptable for an interactive shell's output volume.
func (s *scrollback) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.emu.Write(p)
	s.renderLocked()
	return n, err
}

// Render redraws the full grid to the host terminal: cursor home, clear
// screen, then every cell row by row, finishing with the emulator's
// reported cursor position.
func (s *scrollback) Render() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renderLocked()
}

func (s *scrollback) renderLocked() {
	var b strings.Builder
	b.WriteString(ansi.CursorHomePosition)
	b.WriteString(ansi.EraseEntireScreen)

	w, h := s.emu.Width(), s.emu.Height()
	for y := 0; y < h; y++ {
		for x := 0; x < w; {
			width := 1
			content := " "
			if cell := s.emu.CellAt(x, y); cell != nil {
				content = cell.Content
				if cell.Width > 0 {
					width = cell.Width
				}
			}
			b.WriteString(content)
			x += width
		}
		if y < h-1 {
			b.WriteString("\r\n")
		}
	}

	cur := s.emu.CursorPosition()
	fmt.Fprint(s.out, b.String())
	fmt.Fprint(s.out, ansi.CursorPosition(cur.Y+1, cur.X+1))
}

// disableGuestConfusingQueries swallows the same terminal-query escape
// sequences internal/term/terminal.go's GUI view does (Device Status
// Report, primary and secondary Device Attributes) — elinOS's shell
// never answers these, so left enabled they would otherwise bounce bytes
// back into the input stream and wedge the prompt.
func disableGuestConfusingQueries(emu *vt.SafeEmulator) {
	emu.RegisterCsiHandler('n', func(params ansi.Params) bool {
		return true
	})
	emu.RegisterCsiHandler('c', func(params ansi.Params) bool {
		return true
	})
	emu.RegisterCsiHandler(ansi.Command('>', 0, 'c'), func(params ansi.Params) bool {
		return true
	})
}

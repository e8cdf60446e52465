// Package shell implements the interactive command loop (§4.7
// "Execution", scenario 1/2 "Boot and idle"/"File round-trip"): reads a
// line from the console, dispatches it to a fixed command table, and
// prints the result, reappearing after every command including a
// loaded user program's clean exit (§8 scenario 3).
package shell

import (
	"strings"

	"github.com/elinos-go/elinos/internal/console"
	"github.com/elinos-go/elinos/internal/fs"
	"github.com/elinos-go/elinos/internal/sbi"
)

// Prompt is printed before every command read (§8 scenario 1).
const Prompt = "elinOS> "

// maxHistory bounds the ring buffer backing the history command (§11
// supplemented feature).
const maxHistory = 32

// Command is one entry in the shell's fixed dispatch table: a flat,
// flag-free name-to-handler mapping.
type Command struct {
	Name string
	Help string
	Run  func(s *Shell, args []string) string
}

// Shell is the single-process command loop: one console, one
// filesystem, one SBI shim, a bounded command history, and a table of
// commands. halted is set by the exit/shutdown/reboot commands so Run's loop
// can stop without the caller needing to inspect SBI state itself.
type Shell struct {
	Console *console.Console
	FS      fs.Filesystem
	SBI     *sbi.Shim
	Exec    ProgramExecutor

	history []string
	halted  bool
	table   map[string]Command
	order   []string
}

// ProgramExecutor is the seam onto ELF execution (internal/elf +
// internal/kernel): the shell loads a file's bytes and hands them here
// rather than importing internal/kernel directly, keeping shell free of
// the kernel's process-table/trap-dispatch machinery.
type ProgramExecutor interface {
	RunELF(data []byte) (exitCode int, err error)
}

// New builds a shell wired to con/filesystem/shim and registers the
// built-in command table.
func New(con *console.Console, filesystem fs.Filesystem, shim *sbi.Shim, exec ProgramExecutor) *Shell {
	s := &Shell{Console: con, FS: filesystem, SBI: shim, Exec: exec}
	s.register(builtinCommands())
	return s
}

func (s *Shell) register(cmds []Command) {
	s.table = make(map[string]Command, len(cmds))
	for _, c := range cmds {
		s.table[c.Name] = c
		s.order = append(s.order, c.Name)
	}
}

// Halted reports whether an exit, shutdown or reboot command has been run.
func (s *Shell) Halted() bool { return s.halted }

// Dispatch parses and runs one line, recording it in history (unless
// blank), and returns the command's textual output (never including a
// trailing newline; callers decide how to terminate lines).
func (s *Shell) Dispatch(line string) string {
	line = strings.TrimSpace(line)
	if line == "" {
		return ""
	}
	s.pushHistory(line)

	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]

	cmd, ok := s.table[name]
	if !ok {
		return "unknown command: " + name
	}
	return cmd.Run(s, args)
}

func (s *Shell) pushHistory(line string) {
	s.history = append(s.history, line)
	if len(s.history) > maxHistory {
		s.history = s.history[len(s.history)-maxHistory:]
	}
}

// ReadLine polls the console for one newline-terminated line, echoing
// each byte back as it arrives (§5 "Suspension and blocking": the UART
// read loop is an explicit spin loop, not an interrupt-driven wakeup).
func (s *Shell) ReadLine() string {
	var sb strings.Builder
	for {
		b, ok := s.Console.ReadByte()
		if !ok {
			continue
		}
		if b == '\r' || b == '\n' {
			s.Console.Println("")
			return sb.String()
		}
		if b == 0x7f || b == 0x08 { // backspace/delete
			str := sb.String()
			if len(str) > 0 {
				sb.Reset()
				sb.WriteString(str[:len(str)-1])
				s.Console.Print("\b \b")
			}
			continue
		}
		sb.WriteByte(b)
		s.Console.Print(string(b))
	}
}

// Run is the shell's main loop: print the prompt, read a line,
// dispatch it, print the result, repeat until halted (exit, shutdown or
// reboot). ReadLine keeps polling while no input byte is available, so
// the loop does not end on its own when the console's input runs out.
func (s *Shell) Run() {
	for !s.halted {
		s.Console.Print(Prompt)
		line := s.ReadLine()
		if out := s.Dispatch(line); out != "" {
			s.Console.Println(out)
		}
	}
}

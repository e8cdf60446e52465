package shell

import (
	"bytes"
	"strings"
	"testing"

	"github.com/elinos-go/elinos/internal/console"
	"github.com/elinos-go/elinos/internal/fs"
	"github.com/elinos-go/elinos/internal/sbi"
)

type fakeFS struct {
	files map[string][]byte
}

func newFakeFS() *fakeFS { return &fakeFS{files: make(map[string][]byte)} }

func (f *fakeFS) List(path string) ([]fs.FileEntry, error) {
	var entries []fs.FileEntry
	for name, data := range f.files {
		entries = append(entries, fs.FileEntry{Name: name, Size: uint64(len(data))})
	}
	return entries, nil
}

func (f *fakeFS) Stat(path string) (fs.FileEntry, error) {
	data, ok := f.files[path]
	if !ok {
		return fs.FileEntry{}, fs.ErrNotFound
	}
	return fs.FileEntry{Name: path, Size: uint64(len(data))}, nil
}

func (f *fakeFS) ReadFile(path string) ([]byte, error) {
	data, ok := f.files[path]
	if !ok {
		return nil, fs.ErrNotFound
	}
	return data, nil
}

func (f *fakeFS) WriteFile(path string, data []byte) error {
	if _, ok := f.files[path]; !ok {
		return fs.ErrNotFound
	}
	f.files[path] = append([]byte(nil), data...)
	return nil
}

func (f *fakeFS) Create(path string) error {
	f.files[path] = nil
	return nil
}

func (f *fakeFS) Mkdir(path string) error {
	f.files[path] = nil
	return nil
}

func (f *fakeFS) Truncate(path string, size uint64) error {
	data, ok := f.files[path]
	if !ok {
		return fs.ErrNotFound
	}
	if uint64(len(data)) > size {
		f.files[path] = data[:size]
	}
	return nil
}

func (f *fakeFS) Remove(path string) error {
	if _, ok := f.files[path]; !ok {
		return fs.ErrNotFound
	}
	delete(f.files, path)
	return nil
}

func newTestShell() (*Shell, *bytes.Buffer) {
	var out bytes.Buffer
	uart := console.New(&out, bytes.NewReader(nil))
	con := console.NewConsole(uart)
	shim := sbi.New(uart)
	return New(con, newFakeFS(), shim, nil), &out
}

func TestHelpListsRequiredCommands(t *testing.T) {
	s, _ := newTestShell()
	out := s.Dispatch("help")
	for _, want := range []string{"help", "history", "exit", "shutdown", "reboot"} {
		if !strings.Contains(out, want) {
			t.Fatalf("help output missing %q:\n%s", want, out)
		}
	}
}

func TestFileRoundTrip(t *testing.T) {
	s, _ := newTestShell()

	if out := s.Dispatch("touch test.txt"); out != "" {
		t.Fatalf("touch: %q", out)
	}
	if out := s.Dispatch("write test.txt hello"); out != "" {
		t.Fatalf("write: %q", out)
	}
	if out := s.Dispatch("cat test.txt"); out != "hello" {
		t.Fatalf("cat = %q, want %q", out, "hello")
	}
	if out := s.Dispatch("ls"); !strings.Contains(out, "test.txt") {
		t.Fatalf("ls missing test.txt: %q", out)
	}
	if out := s.Dispatch("rm test.txt"); out != "" {
		t.Fatalf("rm: %q", out)
	}
	if out := s.Dispatch("cat test.txt"); !strings.Contains(out, "not found") {
		t.Fatalf("cat after rm = %q, want not-found error", out)
	}
}

func TestHistoryRecordsCommands(t *testing.T) {
	s, _ := newTestShell()
	s.Dispatch("help")
	s.Dispatch("touch a")
	out := s.Dispatch("history")
	if !strings.Contains(out, "help") || !strings.Contains(out, "touch a") {
		t.Fatalf("history missing entries: %q", out)
	}
}

func TestUnknownCommand(t *testing.T) {
	s, _ := newTestShell()
	out := s.Dispatch("frobnicate")
	if !strings.Contains(out, "unknown command") {
		t.Fatalf("out = %q, want unknown-command message", out)
	}
}

func TestExitHalts(t *testing.T) {
	s, _ := newTestShell()
	s.Dispatch("exit")
	if !s.Halted() {
		t.Fatalf("expected shell to be halted after exit")
	}
}

func TestShutdownInvokesSBI(t *testing.T) {
	s, _ := newTestShell()
	var gotType uint64
	s.SBI.Reset = func(resetType, reason uint64) { gotType = resetType }
	s.Dispatch("shutdown")
	if !s.Halted() {
		t.Fatalf("expected shell to be halted after shutdown")
	}
	if gotType != sbi.SRSTTypeShutdown {
		t.Fatalf("reset type = %d, want SRSTTypeShutdown", gotType)
	}
}

func TestRunWithoutExecutorReportsError(t *testing.T) {
	s, _ := newTestShell()
	s.Dispatch("touch prog.elf")
	out := s.Dispatch("run prog.elf")
	if !strings.Contains(out, "not wired") {
		t.Fatalf("out = %q", out)
	}
}

package shell

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/elinos-go/elinos/internal/sbi"
)

// builtinCommands is the shell's fixed dispatch table: help, history,
// exit, shutdown, and reboot alongside the filesystem commands.
func builtinCommands() []Command {
	return []Command{
		{Name: "help", Help: "list available commands", Run: cmdHelp},
		{Name: "history", Help: "show recent commands", Run: cmdHistory},
		{Name: "exit", Help: "exit the shell", Run: cmdExit},
		{Name: "shutdown", Help: "power off the machine", Run: cmdShutdown},
		{Name: "reboot", Help: "reboot the machine", Run: cmdReboot},
		{Name: "touch", Help: "touch <path>: create an empty file", Run: cmdTouch},
		{Name: "write", Help: "write <path> <text...>: overwrite a file's contents", Run: cmdWrite},
		{Name: "cat", Help: "cat <path>: print a file's contents", Run: cmdCat},
		{Name: "ls", Help: "ls [path]: list a directory", Run: cmdLs},
		{Name: "rm", Help: "rm <path>: remove a file or empty directory", Run: cmdRm},
		{Name: "mkdir", Help: "mkdir <path>: create a directory", Run: cmdMkdir},
		{Name: "truncate", Help: "truncate <path> <size>: shrink a file to size bytes", Run: cmdTruncate},
		{Name: "run", Help: "run <path>: load and execute a static ELF binary", Run: cmdRun},
	}
}

func cmdHelp(s *Shell, args []string) string {
	var sb strings.Builder
	for _, name := range s.order {
		fmt.Fprintf(&sb, "%-10s %s\n", name, s.table[name].Help)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func cmdHistory(s *Shell, args []string) string {
	if len(s.history) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, line := range s.history {
		fmt.Fprintf(&sb, "%4d  %s\n", i+1, line)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func cmdExit(s *Shell, args []string) string {
	s.halted = true
	return ""
}

func cmdShutdown(s *Shell, args []string) string {
	s.halted = true
	if s.SBI != nil {
		s.SBI.SystemReset(sbi.SRSTTypeShutdown)
	}
	return "shutting down"
}

func cmdReboot(s *Shell, args []string) string {
	s.halted = true
	if s.SBI != nil {
		s.SBI.SystemReset(sbi.SRSTTypeWarmReboot)
	}
	return "rebooting"
}

func cmdTouch(s *Shell, args []string) string {
	if len(args) != 1 {
		return "usage: touch <path>"
	}
	if err := s.FS.Create(args[0]); err != nil {
		return "touch: " + err.Error()
	}
	return ""
}

func cmdWrite(s *Shell, args []string) string {
	if len(args) < 2 {
		return "usage: write <path> <text...>"
	}
	path := args[0]
	data := []byte(strings.Join(args[1:], " "))
	if err := s.FS.WriteFile(path, data); err != nil {
		return "write: " + err.Error()
	}
	return ""
}

func cmdCat(s *Shell, args []string) string {
	if len(args) != 1 {
		return "usage: cat <path>"
	}
	data, err := s.FS.ReadFile(args[0])
	if err != nil {
		return "cat: " + err.Error()
	}
	return string(data)
}

func cmdLs(s *Shell, args []string) string {
	path := "/"
	if len(args) == 1 {
		path = args[0]
	}
	entries, err := s.FS.List(path)
	if err != nil {
		return "ls: " + err.Error()
	}
	var sb strings.Builder
	for _, e := range entries {
		kind := "-"
		if e.IsDir {
			kind = "d"
		}
		fmt.Fprintf(&sb, "%s %8d %s\n", kind, e.Size, e.Name)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func cmdRm(s *Shell, args []string) string {
	if len(args) != 1 {
		return "usage: rm <path>"
	}
	if err := s.FS.Remove(args[0]); err != nil {
		return "rm: " + err.Error()
	}
	return ""
}

func cmdMkdir(s *Shell, args []string) string {
	if len(args) != 1 {
		return "usage: mkdir <path>"
	}
	if err := s.FS.Mkdir(args[0]); err != nil {
		return "mkdir: " + err.Error()
	}
	return ""
}

func cmdTruncate(s *Shell, args []string) string {
	if len(args) != 2 {
		return "usage: truncate <path> <size>"
	}
	size, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return "truncate: invalid size " + args[1]
	}
	if err := s.FS.Truncate(args[0], size); err != nil {
		return "truncate: " + err.Error()
	}
	return ""
}

func cmdRun(s *Shell, args []string) string {
	if len(args) != 1 {
		return "usage: run <path>"
	}
	if s.Exec == nil {
		return "run: program execution is not wired into this shell"
	}
	data, err := s.FS.ReadFile(args[0])
	if err != nil {
		return "run: " + err.Error()
	}
	code, err := s.Exec.RunELF(data)
	if err != nil {
		return "run: " + err.Error()
	}
	if code != 0 {
		return fmt.Sprintf("program exited with code %d", code)
	}
	return ""
}

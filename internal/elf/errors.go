package elf

import "errors"

// Error sentinels for the ELF subsystem (§7 "ELF: invalid magic,
// unsupported class/endian/machine/type, invalid header, load error,
// execution error, memory allocation failed, invalid entry point").
var (
	ErrInvalidMagic       = errors.New("elf: invalid magic")
	ErrUnsupportedClass   = errors.New("elf: unsupported class (want ELFCLASS64)")
	ErrUnsupportedEndian  = errors.New("elf: unsupported byte order (want little-endian)")
	ErrUnsupportedMachine = errors.New("elf: unsupported machine (want RISC-V)")
	ErrUnsupportedType    = errors.New("elf: unsupported type (want EXEC or DYN)")
	ErrInvalidHeader      = errors.New("elf: invalid or truncated header")
	ErrLoadError          = errors.New("elf: segment load failed")
	ErrExecutionError     = errors.New("elf: execution failed")
	ErrMemoryAllocation   = errors.New("elf: memory allocation failed")
	ErrInvalidEntryPoint  = errors.New("elf: entry point not covered by any executable segment")
)

package boot

import "errors"

// Errors surfaced by the bootloader stage (§7 "bootloader": invalid
// header, load error).
var (
	ErrInvalidHeader = errors.New("boot: invalid kernel header")
	ErrLoadError     = errors.New("boot: kernel load error")
	ErrNoKernelFound = errors.New("boot: no valid kernel image found in any search region")
)

package console

import "fmt"

// Console wraps a UART with the formatted-print helpers the kernel uses
// for diagnostics everywhere else in this repository.
type Console struct {
	uart *UART
}

// NewConsole wraps a UART for formatted output.
func NewConsole(u *UART) *Console {
	return &Console{uart: u}
}

// Print writes bytes to the UART one at a time, matching §4.7's
// byte-at-a-time write(1, ...) semantics.
func (c *Console) Print(s string) {
	for i := 0; i < len(s); i++ {
		c.uart.PutChar(s[i])
	}
}

// Println prints s followed by a newline.
func (c *Console) Println(s string) {
	c.Print(s)
	c.uart.PutChar('\n')
}

// Printf formats and prints, for kernel diagnostics.
func (c *Console) Printf(format string, args ...any) {
	c.Print(fmt.Sprintf(format, args...))
}

// ReadByte polls the UART for one input byte. Blocking callers spin on
// this (§5 "Suspension and blocking").
func (c *Console) ReadByte() (byte, bool) {
	return c.uart.GetChar()
}

// UART exposes the underlying device for components that need MMIO-level
// access (the bootloader and virtio probe routines address it by offset).
func (c *Console) UART() *UART {
	return c.uart
}

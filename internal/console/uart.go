// Package console models the 16550-compatible UART at the fixed MMIO base
// 0x10000000 and the byte-granular console built on top of it.
package console

import (
	"io"
	"sync"
)

// MMIO layout (§6 "UART").
const (
	Base = 0x1000_0000

	regRBR = 0 // receive buffer (read)
	regTHR = 0 // transmit holding (write)
	regIER = 1
	regIIR = 2
	regLCR = 3
	regMCR = 4
	regLSR = 5
	regMSR = 6
	regSCR = 7
)

// LSR bits.
const (
	lsrDataReady = 1 << 0
	lsrTHREmpty  = 1 << 5
	lsrTxEmpty   = 1 << 6
)

// UART is a single 16550-class MMIO port, byte-granular, no flow control.
// There is exactly one process-wide instance, guarded by Mu (§5 "Shared
// resources").
type UART struct {
	Mu sync.Mutex

	Output io.Writer
	Input  io.Reader

	ier, lcr, mcr, scr uint8
	dll, dlh           uint8

	rx    []byte
	rxPos int
}

// New creates a UART wired to the given host output/input streams.
func New(output io.Writer, input io.Reader) *UART {
	return &UART{Output: output, Input: input}
}

// ReadReg implements a byte-granular MMIO read at Base+offset.
func (u *UART) ReadReg(offset uint64) uint8 {
	u.Mu.Lock()
	defer u.Mu.Unlock()

	dlab := u.lcr&0x80 != 0

	switch offset {
	case regRBR:
		if dlab {
			return u.dll
		}
		return u.popByte()
	case regIER:
		if dlab {
			return u.dlh
		}
		return u.ier
	case regIIR:
		return 0x01 // no interrupt pending
	case regLCR:
		return u.lcr
	case regMCR:
		return u.mcr
	case regLSR:
		return u.lsr()
	case regMSR:
		return 0
	case regSCR:
		return u.scr
	}
	return 0
}

// WriteReg implements a byte-granular MMIO write at Base+offset.
func (u *UART) WriteReg(offset uint64, value uint8) {
	u.Mu.Lock()
	defer u.Mu.Unlock()

	dlab := u.lcr&0x80 != 0

	switch offset {
	case regTHR:
		if dlab {
			u.dll = value
			return
		}
		if u.Output != nil {
			u.Output.Write([]byte{value})
		}
	case regIER:
		if dlab {
			u.dlh = value
			return
		}
		u.ier = value
	case regLCR:
		u.lcr = value
	case regMCR:
		u.mcr = value
	case regSCR:
		u.scr = value
	}
}

func (u *UART) lsr() uint8 {
	l := uint8(lsrTHREmpty | lsrTxEmpty)
	u.fill()
	if u.rxPos < len(u.rx) {
		l |= lsrDataReady
	}
	return l
}

func (u *UART) popByte() uint8 {
	u.fill()
	if u.rxPos >= len(u.rx) {
		return 0
	}
	b := u.rx[u.rxPos]
	u.rxPos++
	if u.rxPos >= len(u.rx) {
		u.rx = nil
		u.rxPos = 0
	}
	return b
}

// fill pulls a single byte from Input if the receive buffer is empty. This
// is the polled, non-blocking face the kernel's GetChar spins against.
func (u *UART) fill() {
	if u.Input == nil || u.rxPos < len(u.rx) {
		return
	}
	var b [1]byte
	n, err := u.Input.Read(b[:])
	if err == nil && n == 1 {
		u.rx = append(u.rx, b[0])
	}
}

// PutChar writes one byte to the transmit side. §4.7 "Writing to standard
// output" funnels every byte of a write(1, ...) syscall through here.
func (u *UART) PutChar(b byte) {
	u.WriteReg(regTHR, b)
}

// GetChar polls for one input byte; ok is false if none is available yet.
// §5 "Suspension and blocking": callers that need a blocking read spin on
// this with no timeout.
func (u *UART) GetChar() (b byte, ok bool) {
	u.Mu.Lock()
	defer u.Mu.Unlock()
	if u.lsr()&lsrDataReady == 0 {
		return 0, false
	}
	return u.popByte(), true
}

// PushInput enqueues bytes as if typed at the console. Used by test
// harnesses and the host front-end in cmd/elinosctl.
func (u *UART) PushInput(data []byte) {
	u.Mu.Lock()
	defer u.Mu.Unlock()
	u.rx = append(u.rx, data...)
}

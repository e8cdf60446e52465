// Package virtio implements the legacy VirtIO MMIO block transport
// (§4.5): device probing, the three-region split virtqueue, and
// three-descriptor block request chains.
package virtio

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/elinos-go/elinos/internal/memory"
)

var mmioEndian = binary.LittleEndian

// MMIO register offsets, legacy (version 1) layout.
const (
	regMagicValue        = 0x000
	regVersion           = 0x004
	regDeviceID          = 0x008
	regVendorID          = 0x00c
	regDeviceFeatures    = 0x010
	regDeviceFeaturesSel = 0x014
	regDriverFeatures    = 0x020
	regDriverFeaturesSel = 0x024
	regQueueSel          = 0x030
	regQueueNumMax       = 0x034
	regQueueNum          = 0x038
	regQueueAlign        = 0x03c
	regQueuePFN          = 0x040
	regQueueReady        = 0x044
	regQueueNotify       = 0x050
	regInterruptStatus   = 0x060
	regInterruptAck      = 0x064
	regStatus            = 0x070
	regQueueDescLow      = 0x080
	regQueueDescHigh     = 0x084
	regQueueAvailLow     = 0x090
	regQueueAvailHigh    = 0x094
	regQueueUsedLow      = 0x0a0
	regQueueUsedHigh     = 0x0a4
	regConfigGeneration  = 0x0fc
	regConfig            = 0x100
)

const (
	// Magic is the ASCII "virt" magic word every VirtIO MMIO device exposes.
	Magic uint32 = 0x74726976
	// VersionLegacy is the only transport revision this driver speaks.
	VersionLegacy uint32 = 1
	// DeviceIDBlock identifies a VirtIO block device.
	DeviceIDBlock uint32 = 2
)

// Status register bits, written in sequence during device init.
const (
	StatusReset       uint32 = 0
	StatusAcknowledge uint32 = 1
	StatusDriver      uint32 = 2
	StatusDriverOK    uint32 = 4
	StatusFeaturesOK  uint32 = 8
	StatusNeedsReset  uint32 = 64
	StatusFailed      uint32 = 128
)

// DefaultProbeAddresses is the fixed list of MMIO base addresses the
// driver scans on the QEMU virt machine (§4.5 "probes a fixed list of
// MMIO base addresses").
var DefaultProbeAddresses = []uint64{
	0x1000_1000, 0x1000_2000, 0x1000_3000, 0x1000_4000,
	0x1000_5000, 0x1000_6000, 0x1000_7000, 0x1000_8000,
}

// ErrDeviceNotFound is returned when no probed address yields a
// matching magic/device-id pair (§4.5 "Failure semantics").
var ErrDeviceNotFound = errors.New("virtio: block device not found")

// ErrDriverFailure is returned when feature negotiation is rejected by
// the device (read-back mismatch after FEATURES_OK).
var ErrDriverFailure = errors.New("virtio: feature negotiation rejected")

// ErrBackendNotConfigured is the device side's failure when a request
// reaches it with no Backend wired to honor it; the request completes
// with an I/O error status, so the driver's caller sees ErrIO.
var ErrBackendNotConfigured = errors.New("virtio: no backing store configured")

// MMIO is a register window into the byte-array-backed arena standing
// in for device MMIO space, addressed the same way the driver addresses
// guest RAM (§ software-emulation framing).
type MMIO struct {
	arena *memory.Arena
	base  uint64
}

func newMMIO(arena *memory.Arena, base uint64) *MMIO {
	return &MMIO{arena: arena, base: base}
}

func (m *MMIO) readU32(offset uint64) uint32 {
	data, err := m.arena.ReadAt(m.base+offset, 4)
	if err != nil {
		return 0
	}
	return mmioEndian.Uint32(data)
}

func (m *MMIO) writeU32(offset uint64, value uint32) {
	b := make([]byte, 4)
	mmioEndian.PutUint32(b, value)
	_ = m.arena.WriteAt(m.base+offset, b)
}

func (m *MMIO) readU64(offset uint64) uint64 {
	data, err := m.arena.ReadAt(m.base+offset, 8)
	if err != nil {
		return 0
	}
	return mmioEndian.Uint64(data)
}

// Probe scans addrs for a VirtIO block device, returning an MMIO bound
// to the first matching address.
func Probe(arena *memory.Arena, addrs []uint64) (*MMIO, error) {
	for _, addr := range addrs {
		m := newMMIO(arena, addr)
		if m.readU32(regMagicValue) != Magic {
			continue
		}
		if m.readU32(regVersion) != VersionLegacy {
			continue
		}
		if m.readU32(regDeviceID) != DeviceIDBlock {
			continue
		}
		return m, nil
	}
	return nil, ErrDeviceNotFound
}

// resetAndNegotiate starts from a full reset and walks the legacy status
// sequence up to FEATURES_OK; Open finishes it with queue setup and
// DRIVER_OK (§4.5 "reset → acknowledge → driver → read features → negotiate
// features → features-ok → setup queue → driver-ok").
func (m *MMIO) resetAndNegotiate() error {
	m.writeU32(regStatus, StatusReset)
	m.writeU32(regStatus, StatusAcknowledge)
	m.writeU32(regStatus, StatusAcknowledge|StatusDriver)

	_ = m.readU32(regDeviceFeatures) // accepted as-is; no optional features are used
	m.writeU32(regDriverFeatures, 0)

	m.writeU32(regStatus, StatusAcknowledge|StatusDriver|StatusFeaturesOK)
	readBack := m.readU32(regStatus)
	if readBack&StatusFeaturesOK == 0 {
		return ErrDriverFailure
	}
	return nil
}

func (m *MMIO) setDriverOK() {
	current := m.readU32(regStatus)
	m.writeU32(regStatus, current|StatusDriverOK)
}

// ReadCapacity reads the device's sector capacity from configuration
// space offset 0 (§4.5 "Read capacity from the device configuration
// space at offset 0").
func (m *MMIO) ReadCapacity() uint64 {
	return m.readU64(regConfig)
}

func (m *MMIO) notify(queueIdx uint32) {
	m.writeU32(regQueueNotify, queueIdx)
}

func (m *MMIO) selectQueue(idx uint32) {
	m.writeU32(regQueueSel, idx)
}

func (m *MMIO) queueNumMax() uint32 {
	return m.readU32(regQueueNumMax)
}

func (m *MMIO) setQueueNum(n uint32) {
	m.writeU32(regQueueNum, n)
}

func (m *MMIO) setQueueAddresses(descAddr, availAddr, usedAddr uint64) {
	m.writeU32(regQueueDescLow, uint32(descAddr))
	m.writeU32(regQueueDescHigh, uint32(descAddr>>32))
	m.writeU32(regQueueAvailLow, uint32(availAddr))
	m.writeU32(regQueueAvailHigh, uint32(availAddr>>32))
	m.writeU32(regQueueUsedLow, uint32(usedAddr))
	m.writeU32(regQueueUsedHigh, uint32(usedAddr>>32))
}

func (m *MMIO) setQueueReady(ready uint32) {
	m.writeU32(regQueueReady, ready)
}

// largestPowerOfTwoAtMost returns the largest power of two that is ≤ n
// and ≤ cap, used to pick a queue size from the device-imposed maximum
// (§4.5 "picks the largest power-of-two ≤ 64").
func largestPowerOfTwoAtMost(n, cap uint32) uint32 {
	if n > cap {
		n = cap
	}
	p := uint32(1)
	for p*2 <= n {
		p *= 2
	}
	return p
}

// InstallDeviceResetState writes the register values a real VirtIO MMIO
// legacy block transport presents immediately after reset — magic word,
// version, device ID, and the maximum queue size it supports — so Probe
// can find a device at base. This repository has no separate process
// standing in for real VirtIO silicon, so whatever constructs the
// guest's physical arena (the host launcher, or a test) also plays the
// part of the device having already reset itself before the driver
// looks for it.
func InstallDeviceResetState(arena *memory.Arena, base uint64, queueMax uint32) error {
	write := func(offset uint64, value uint32) error {
		b := make([]byte, 4)
		mmioEndian.PutUint32(b, value)
		return arena.WriteAt(base+offset, b)
	}
	if err := write(regMagicValue, Magic); err != nil {
		return err
	}
	if err := write(regVersion, VersionLegacy); err != nil {
		return err
	}
	if err := write(regDeviceID, DeviceIDBlock); err != nil {
		return err
	}
	return write(regQueueNumMax, queueMax)
}

func (m *MMIO) String() string {
	return fmt.Sprintf("virtio-mmio@0x%x", m.base)
}

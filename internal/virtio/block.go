package virtio

import (
	"errors"
	"fmt"

	"github.com/elinos-go/elinos/internal/memory"
)

// Block request types (§4.5 "Request types: IN (read), OUT (write), FLUSH").
const (
	ReqTypeIn    uint32 = 0
	ReqTypeOut   uint32 = 1
	ReqTypeFlush uint32 = 4
)

// Block status codes written by the device into the status descriptor.
const (
	StatusOK     uint8 = 0
	StatusIOErr  uint8 = 1
	StatusUnsupp uint8 = 2
)

// SectorSize is the fixed VirtIO block sector size.
const SectorSize = 512

// ErrIO is returned when the device reports a nonzero status byte
// (§4.5 "non-zero status byte → I/O error returned to caller").
var ErrIO = errors.New("virtio: block I/O error")

const maxSpins = 10_000_000

// Backend is the real storage a BlockDevice's virtqueue requests are
// honored against — the host disk image internal/hostdisk maps in,
// standing in for whatever medium a genuine VirtIO block device would
// read and write on the guest's behalf.
type Backend interface {
	ReadSector(sector uint64, sectorSize int, buf []byte) error
	WriteSector(sector uint64, sectorSize int, buf []byte) error
}

// BlockDevice drives one VirtIO MMIO block device end to end: probing,
// legacy initialization, queue setup, and three-descriptor request
// chains (§4.5).
type BlockDevice struct {
	mmio     *MMIO
	arena    *memory.Arena
	allocDev *memory.Allocator
	q        *queue
	capacity uint64
	backend  Backend
}

// Open probes addrs for a block device and drives it through the full
// legacy init sequence, ending with the device marked DRIVER_OK. backend
// may be nil in tests that never submit a request (Probe/Open alone
// don't touch it); production callers always wire a real Backend, since
// without one every read or write completes with an I/O error status and
// ReadSector/WriteSector return ErrIO.
func Open(alloc *memory.Allocator, addrs []uint64, backend Backend) (*BlockDevice, error) {
	arena := alloc.Arena()
	mmio, err := Probe(arena, addrs)
	if err != nil {
		return nil, err
	}

	if err := mmio.resetAndNegotiate(); err != nil {
		return nil, err
	}

	mmio.selectQueue(0)
	deviceMax := mmio.queueNumMax()
	size := largestPowerOfTwoAtMost(deviceMax, 64)
	if size == 0 {
		return nil, fmt.Errorf("virtio: device reports zero queue size")
	}
	mmio.setQueueNum(size)

	regionSize := uint64(size)*descSize + availRingSize(size) + 8 + usedRingSize(size)
	base, err := alloc.AllocateDeviceMemory(regionSize, 4096)
	if err != nil {
		return nil, fmt.Errorf("virtio: allocating queue memory: %w", err)
	}

	q, _, err := newQueue(arena, base, size)
	if err != nil {
		return nil, err
	}

	mmio.setQueueAddresses(q.descBase, q.availBase, q.usedBase)
	mmio.setQueueReady(1)
	mmio.setDriverOK()

	capacity := mmio.ReadCapacity()

	return &BlockDevice{
		mmio:     mmio,
		arena:    arena,
		allocDev: alloc,
		q:        q,
		capacity: capacity,
		backend:  backend,
	}, nil
}

// Capacity reports the device's size in 512-byte sectors.
func (b *BlockDevice) Capacity() uint64 { return b.capacity }

// blockRequestHeader is the 16-byte {type, reserved, sector} header
// descriptor (§4.5 "header: type + sector, 16 bytes, device-readable").
func (b *BlockDevice) writeHeader(addr uint64, reqType uint32, sector uint64) error {
	buf := make([]byte, 16)
	mmioEndian.PutUint32(buf[0:4], reqType)
	mmioEndian.PutUint32(buf[4:8], 0)
	mmioEndian.PutUint64(buf[8:16], sector)
	return b.arena.WriteAt(addr, buf)
}

// submit builds the three-descriptor chain (header → data → status),
// inserts it at next_avail, notifies the device, and spin-polls for
// completion (§4.5).
func (b *BlockDevice) submit(reqType uint32, sector uint64, data []byte, dataWritable bool) error {
	headerAddr, err := b.allocDev.AllocateDeviceMemory(16, 16)
	if err != nil {
		return fmt.Errorf("virtio: allocating header descriptor: %w", err)
	}
	if err := b.writeHeader(headerAddr, reqType, sector); err != nil {
		return err
	}

	statusAddr, err := b.allocDev.AllocateDeviceMemory(1, 16)
	if err != nil {
		return fmt.Errorf("virtio: allocating status descriptor: %w", err)
	}
	if err := b.arena.WriteAt(statusAddr, []byte{0xff}); err != nil {
		return err
	}

	descHead := b.q.nextAvail % uint16(b.q.size)
	headerIdx := descHead

	var dataAddr uint64
	if len(data) == 0 {
		// FLUSH carries no data buffer: a two-descriptor chain
		// (header -> status) suffices.
		statusIdx := (headerIdx + 1) % uint16(b.q.size)
		if err := b.q.writeDesc(headerIdx, headerAddr, 16, DescFNext, statusIdx); err != nil {
			return err
		}
		if err := b.q.writeDesc(statusIdx, statusAddr, 1, DescFWrite, 0); err != nil {
			return err
		}
	} else {
		dataAddr, err = b.allocDev.AllocateDeviceMemory(uint64(len(data)), 16)
		if err != nil {
			return fmt.Errorf("virtio: allocating data descriptor: %w", err)
		}
		if !dataWritable {
			if err := b.arena.WriteAt(dataAddr, data); err != nil {
				return err
			}
		}

		dataIdx := (headerIdx + 1) % uint16(b.q.size)
		statusIdx := (dataIdx + 1) % uint16(b.q.size)

		dataFlags := DescFNext
		if dataWritable {
			dataFlags |= DescFWrite
		}
		if err := b.q.writeDesc(headerIdx, headerAddr, 16, DescFNext, dataIdx); err != nil {
			return err
		}
		if err := b.q.writeDesc(dataIdx, dataAddr, uint32(len(data)), dataFlags, statusIdx); err != nil {
			return err
		}
		if err := b.q.writeDesc(statusIdx, statusAddr, 1, DescFWrite, 0); err != nil {
			return err
		}
	}

	if err := b.q.publishAvail(headerIdx); err != nil {
		return err
	}
	b.mmio.notify(0)

	if err := b.service(reqType, sector, data, dataWritable, dataAddr, statusAddr, headerIdx); err != nil {
		return err
	}

	if err := b.q.waitForCompletion(maxSpins); err != nil {
		return err
	}


	statusByte, err := b.arena.ReadAt(statusAddr, 1)
	if err != nil {
		return err
	}
	if statusByte[0] != StatusOK {
		return ErrIO
	}

	if dataWritable {
		read, err := b.arena.ReadAt(dataAddr, uint64(len(data)))
		if err != nil {
			return err
		}
		copy(data, read)
	}
	return nil
}

// service emulates the device side of the transport: honoring the
// request that was just published against Backend, then posting the
// completion to the used ring (§4.5 "device-side" processing). Real
// hardware would do this asynchronously from its own DMA engine, but
// this repository has no separate process to hand the doorbell notify
// to, so it happens synchronously within the same call — consistent
// with the software-emulation boundary used throughout this driver.
func (b *BlockDevice) service(reqType uint32, sector uint64, data []byte, dataWritable bool, dataAddr, statusAddr uint64, headDesc uint16) error {
	status := StatusOK
	var svcErr error

	switch reqType {
	case ReqTypeIn:
		if b.backend == nil {
			svcErr = ErrBackendNotConfigured
			break
		}
		buf := make([]byte, len(data))
		if svcErr = b.backend.ReadSector(sector, SectorSize, buf); svcErr == nil {
			svcErr = b.arena.WriteAt(dataAddr, buf)
		}
	case ReqTypeOut:
		if b.backend == nil {
			svcErr = ErrBackendNotConfigured
			break
		}
		svcErr = b.backend.WriteSector(sector, SectorSize, data)
	case ReqTypeFlush:
		if syncer, ok := b.backend.(interface{ Sync() error }); ok {
			svcErr = syncer.Sync()
		}
	default:
		status = StatusUnsupp
	}

	if svcErr != nil {
		status = StatusIOErr
	}
	if err := b.arena.WriteAt(statusAddr, []byte{status}); err != nil {
		return err
	}
	return b.q.publishUsed(headDesc, 0)
}

// ReadSector reads one 512-byte sector into buf.
func (b *BlockDevice) ReadSector(sector uint64, buf []byte) error {
	if len(buf) != SectorSize {
		return fmt.Errorf("virtio: read buffer must be %d bytes, got %d", SectorSize, len(buf))
	}
	return b.submit(ReqTypeIn, sector, buf, true)
}

// WriteSector writes one 512-byte sector from buf.
func (b *BlockDevice) WriteSector(sector uint64, buf []byte) error {
	if len(buf) != SectorSize {
		return fmt.Errorf("virtio: write buffer must be %d bytes, got %d", SectorSize, len(buf))
	}
	return b.submit(ReqTypeOut, sector, buf, false)
}

// ReadSectors reads count consecutive sectors starting at sector.
func (b *BlockDevice) ReadSectors(sector uint64, count int) ([]byte, error) {
	out := make([]byte, 0, count*SectorSize)
	buf := make([]byte, SectorSize)
	for i := 0; i < count; i++ {
		if err := b.ReadSector(sector+uint64(i), buf); err != nil {
			return nil, err
		}
		out = append(out, buf...)
	}
	return out, nil
}

// WriteSectors writes data (a multiple of SectorSize) starting at sector.
func (b *BlockDevice) WriteSectors(sector uint64, data []byte) error {
	if len(data)%SectorSize != 0 {
		return fmt.Errorf("virtio: write data length %d not a multiple of sector size", len(data))
	}
	count := len(data) / SectorSize
	for i := 0; i < count; i++ {
		if err := b.WriteSector(sector+uint64(i), data[i*SectorSize:(i+1)*SectorSize]); err != nil {
			return err
		}
	}
	return nil
}

// Flush issues a FLUSH request with a zero-length data descriptor.
func (b *BlockDevice) Flush() error {
	return b.submit(ReqTypeFlush, 0, nil, false)
}

package syscall

import "encoding/binary"

// virtioSlotCount mirrors the number of MMIO slots the VirtIO transport
// probes (§4.5), reported by getdevices for shell diagnostics.
const virtioSlotCount = 8

// handleDevice services dup/fcntl/ioctl/pipe2 and the elinOS-specific
// getdevices (§4.7 "device and I/O management"). This core has no file
// descriptor duplication or ioctl model, so only getdevices does real
// work.
func (d *Dispatcher) handleDevice(number uint64, args [6]uint64) (int64, int) {
	switch number {
	case SysGetDevices:
		if bufPtr := args[0]; bufPtr != 0 {
			buf := make([]byte, 4)
			binary.LittleEndian.PutUint32(buf, virtioSlotCount)
			if err := d.Alloc.Arena().WriteAt(bufPtr, buf); err != nil {
				return -1, EFAULT
			}
		}
		return virtioSlotCount, 0
	default:
		return -1, ENOSYS
	}
}

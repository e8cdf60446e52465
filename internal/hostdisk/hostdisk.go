// Package hostdisk provides the host-side backing store for the
// emulated VirtIO block device (§4.5): a real disk-image file mapped
// into the process via mmap, so the software-emulated block transport
// can read/write sectors against genuine persistent storage the same
// way tinyrange-cc's KVM backend maps guest RAM with unix.Mmap — here
// the mapped region stands in for the disk rather than guest RAM.
package hostdisk

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Image is a disk image file mmap'd read/write into the host process.
// Bytes() exposes the mapping directly; callers treat offsets into it
// exactly like sector-addressed disk I/O (§4.5 "ReadSector"/"WriteSector").
type Image struct {
	file *os.File
	data []byte
}

// Open opens (creating if necessary) the image file at path, sizing it
// to sizeBytes if it is smaller, and maps it MAP_SHARED so writes land
// on disk.
func Open(path string, sizeBytes int64) (*Image, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("hostdisk: open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("hostdisk: stat %s: %w", path, err)
	}
	if info.Size() < sizeBytes {
		if err := f.Truncate(sizeBytes); err != nil {
			f.Close()
			return nil, fmt.Errorf("hostdisk: truncate %s: %w", path, err)
		}
	} else {
		sizeBytes = info.Size()
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(sizeBytes), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("hostdisk: mmap %s: %w", path, err)
	}

	return &Image{file: f, data: data}, nil
}

// Bytes returns the mapped region backing the image.
func (img *Image) Bytes() []byte { return img.data }

// Size returns the mapped region's length in bytes.
func (img *Image) Size() uint64 { return uint64(len(img.data)) }

// ReadSector reads exactly len(buf) bytes starting at sector*sectorSize,
// satisfying virtio.Backend, the interface internal/virtio's block device
// honors its requests against (§4.5 "sector-addressed read/write").
func (img *Image) ReadSector(sector uint64, sectorSize int, buf []byte) error {
	off := sector * uint64(sectorSize)
	if off+uint64(len(buf)) > uint64(len(img.data)) {
		return fmt.Errorf("hostdisk: read sector %d out of range", sector)
	}
	copy(buf, img.data[off:off+uint64(len(buf))])
	return nil
}

// WriteSector writes buf starting at sector*sectorSize.
func (img *Image) WriteSector(sector uint64, sectorSize int, buf []byte) error {
	off := sector * uint64(sectorSize)
	if off+uint64(len(buf)) > uint64(len(img.data)) {
		return fmt.Errorf("hostdisk: write sector %d out of range", sector)
	}
	copy(img.data[off:off+uint64(len(buf))], buf)
	return nil
}

// Sync flushes the mapped region back to the underlying file via msync.
func (img *Image) Sync() error {
	if err := unix.Msync(img.data, unix.MS_SYNC); err != nil {
		return fmt.Errorf("hostdisk: msync: %w", err)
	}
	return nil
}

// Close unmaps the image and closes the backing file.
func (img *Image) Close() error {
	if err := unix.Munmap(img.data); err != nil {
		img.file.Close()
		return fmt.Errorf("hostdisk: munmap: %w", err)
	}
	return img.file.Close()
}

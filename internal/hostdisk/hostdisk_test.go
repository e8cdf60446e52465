package hostdisk

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenCreatesAndSizesImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	img, err := Open(path, 64*1024)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer img.Close()

	if img.Size() != 64*1024 {
		t.Fatalf("Size = %d, want %d", img.Size(), 64*1024)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != 64*1024 {
		t.Fatalf("file size = %d, want %d", info.Size(), 64*1024)
	}
}

func TestWriteSectorThenReadSectorRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	img, err := Open(path, 4096)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer img.Close()

	want := bytes.Repeat([]byte{0xAB}, 512)
	if err := img.WriteSector(1, 512, want); err != nil {
		t.Fatalf("WriteSector: %v", err)
	}

	got := make([]byte, 512)
	if err := img.ReadSector(1, 512, got); err != nil {
		t.Fatalf("ReadSector: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("read back mismatch")
	}
}

func TestReadSectorOutOfRangeErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	img, err := Open(path, 512)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer img.Close()

	buf := make([]byte, 512)
	if err := img.ReadSector(10, 512, buf); err == nil {
		t.Fatalf("expected out-of-range error")
	}
}

func TestOpenReopensExistingImageWithoutShrinking(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	img, err := Open(path, 8192)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := img.WriteSector(0, 512, bytes.Repeat([]byte{0x42}, 512)); err != nil {
		t.Fatalf("WriteSector: %v", err)
	}
	if err := img.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(path, 512) // smaller requested size must not truncate
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	if reopened.Size() != 8192 {
		t.Fatalf("reopened size = %d, want 8192 (unshrunk)", reopened.Size())
	}
	buf := make([]byte, 512)
	if err := reopened.ReadSector(0, 512, buf); err != nil {
		t.Fatalf("ReadSector: %v", err)
	}
	if buf[0] != 0x42 {
		t.Fatalf("data did not survive reopen")
	}
}

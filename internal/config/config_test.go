package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFromEnvUsesDefaultsWhenUnset(t *testing.T) {
	for _, key := range []string{"ELINOS_RAM_BYTES", "ELINOS_DISK_IMAGE", "ELINOS_KERNEL_ELF", "ELINOS_VIRTIO_SLOTS"} {
		os.Unsetenv(key)
	}

	cfg := FromEnv()
	if cfg.RAMSizeBytes != DefaultRAMSizeBytes {
		t.Errorf("RAMSizeBytes = %d, want %d", cfg.RAMSizeBytes, DefaultRAMSizeBytes)
	}
	if cfg.DiskImagePath != DefaultDiskImagePath {
		t.Errorf("DiskImagePath = %q, want %q", cfg.DiskImagePath, DefaultDiskImagePath)
	}
	if cfg.KernelELFPath != DefaultKernelELFPath {
		t.Errorf("KernelELFPath = %q, want %q", cfg.KernelELFPath, DefaultKernelELFPath)
	}
	if cfg.VirtioSlots != DefaultVirtioSlots {
		t.Errorf("VirtioSlots = %d, want %d", cfg.VirtioSlots, DefaultVirtioSlots)
	}
}

func TestFromEnvOverridesDefaults(t *testing.T) {
	t.Setenv("ELINOS_RAM_BYTES", "67108864")
	t.Setenv("ELINOS_DISK_IMAGE", "/tmp/custom.img")
	t.Setenv("ELINOS_KERNEL_ELF", "/tmp/custom.elf")
	t.Setenv("ELINOS_VIRTIO_SLOTS", "2")

	cfg := FromEnv()
	if cfg.RAMSizeBytes != 67108864 {
		t.Errorf("RAMSizeBytes = %d, want 67108864", cfg.RAMSizeBytes)
	}
	if cfg.DiskImagePath != "/tmp/custom.img" {
		t.Errorf("DiskImagePath = %q", cfg.DiskImagePath)
	}
	if cfg.KernelELFPath != "/tmp/custom.elf" {
		t.Errorf("KernelELFPath = %q", cfg.KernelELFPath)
	}
	if cfg.VirtioSlots != 2 {
		t.Errorf("VirtioSlots = %d, want 2", cfg.VirtioSlots)
	}
}

func TestGetEnvIntIgnoresGarbage(t *testing.T) {
	t.Setenv("ELINOS_VIRTIO_SLOTS", "not-a-number")
	if got := GetEnvInt("ELINOS_VIRTIO_SLOTS", 8); got != 8 {
		t.Errorf("GetEnvInt = %d, want fallback 8", got)
	}
}

func TestLoadYAMLOverlaysOnlyPresentFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "elinos.yaml")
	if err := os.WriteFile(path, []byte("disk_image_path: /data/root.img\nvirtio_slots: 1\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	base := BootConfig{
		RAMSizeBytes:  DefaultRAMSizeBytes,
		DiskImagePath: DefaultDiskImagePath,
		KernelELFPath: DefaultKernelELFPath,
		VirtioSlots:   DefaultVirtioSlots,
	}
	cfg, err := LoadYAML(path, base)
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}
	if cfg.DiskImagePath != "/data/root.img" {
		t.Errorf("DiskImagePath = %q", cfg.DiskImagePath)
	}
	if cfg.VirtioSlots != 1 {
		t.Errorf("VirtioSlots = %d, want 1", cfg.VirtioSlots)
	}
	if cfg.RAMSizeBytes != DefaultRAMSizeBytes {
		t.Errorf("RAMSizeBytes changed unexpectedly: %d", cfg.RAMSizeBytes)
	}
	if cfg.KernelELFPath != DefaultKernelELFPath {
		t.Errorf("KernelELFPath changed unexpectedly: %q", cfg.KernelELFPath)
	}
}

func TestLoadFallsBackWhenYAMLPathMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DiskImagePath != DefaultDiskImagePath {
		t.Errorf("DiskImagePath = %q, want default", cfg.DiskImagePath)
	}
}

func TestLoadWithEmptyYAMLPathUsesEnvOnly(t *testing.T) {
	t.Setenv("ELINOS_DISK_IMAGE", "/env/only.img")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DiskImagePath != "/env/only.img" {
		t.Errorf("DiskImagePath = %q, want env value", cfg.DiskImagePath)
	}
}

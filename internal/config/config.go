// Package config assembles the host launcher's BootConfig from
// environment variables and an optional YAML file — a host-harness-only
// concern; the bootloader and kernel themselves never read configuration
// at runtime, they only ever see the handoff descriptor (§6).
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvInt64 returns an environment variable as int64 or a default value.
func GetEnvInt64(key string, defaultValue int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

// GetEnvInt returns an environment variable as int or a default value.
func GetEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

// BootConfig is everything the host harness needs to launch a boot:
// how much guest RAM to back with an arena, where the disk image and
// kernel ELF live on the host, and how many VirtIO MMIO slots to probe.
type BootConfig struct {
	RAMSizeBytes  uint64 `yaml:"ram_size_bytes"`
	DiskImagePath string `yaml:"disk_image_path"`
	KernelELFPath string `yaml:"kernel_elf_path"`
	VirtioSlots   int    `yaml:"virtio_slots"`
}

// Default values used when neither a YAML file nor an environment
// variable supplies one, matching QEMU virt's common -m 128M launch.
const (
	DefaultRAMSizeBytes  = 128 * 1024 * 1024
	DefaultDiskImagePath = "disk.img"
	DefaultKernelELFPath = "kernel.elf"
	DefaultVirtioSlots   = 8
)

// FromEnv builds a BootConfig purely from environment variables
// (ELINOS_RAM_BYTES, ELINOS_DISK_IMAGE, ELINOS_KERNEL_ELF, ELINOS_VIRTIO_SLOTS).
func FromEnv() BootConfig {
	return BootConfig{
		RAMSizeBytes:  uint64(GetEnvInt64("ELINOS_RAM_BYTES", DefaultRAMSizeBytes)),
		DiskImagePath: GetEnv("ELINOS_DISK_IMAGE", DefaultDiskImagePath),
		KernelELFPath: GetEnv("ELINOS_KERNEL_ELF", DefaultKernelELFPath),
		VirtioSlots:   GetEnvInt("ELINOS_VIRTIO_SLOTS", DefaultVirtioSlots),
	}
}

// LoadYAML overlays path's YAML contents onto a base config (normally
// the result of FromEnv); any field the file omits keeps its base
// value, since yaml.Unmarshal only touches fields present in the
// document.
func LoadYAML(path string, base BootConfig) (BootConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("config: reading %s: %w", path, err)
	}
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return base, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Load builds a BootConfig from the environment, then overlays
// yamlPath's contents if yamlPath is non-empty and the file exists.
func Load(yamlPath string) (BootConfig, error) {
	cfg := FromEnv()
	if yamlPath == "" {
		return cfg, nil
	}
	if _, err := os.Stat(yamlPath); err != nil {
		return cfg, nil
	}
	return LoadYAML(yamlPath, cfg)
}

// Command elinosctl is the host launcher: it assembles a BootConfig,
// backs a disk image on the host filesystem, constructs the guest's
// physical memory arena, runs the bootloader sequence against it, hands
// the resulting handoff descriptor to the kernel, and drives the shell
// against the host terminal.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/elinos-go/elinos/internal/boot"
	"github.com/elinos-go/elinos/internal/config"
	"github.com/elinos-go/elinos/internal/console"
	"github.com/elinos-go/elinos/internal/hostdisk"
	"github.com/elinos-go/elinos/internal/kernel"
	"github.com/elinos-go/elinos/internal/memory"
	"github.com/elinos-go/elinos/internal/shell"
	"github.com/elinos-go/elinos/internal/virtio"
)

// ramBase is where guest RAM starts on QEMU virt, matching the
// bootloader's own fallback default (internal/boot's defaultRAMBase);
// duplicated here rather than exported since the host harness, not the
// bootloader, owns the arena that must reach down to this address.
const ramBase = 0x8000_0000

// reservedSize is the combined bootloader+kernel static footprint
// subtracted from the front of RAM before reporting what's available to
// the kernel's own allocator, matching the margin exercised in
// internal/boot's own tests.
const reservedSize = 2 * 1024 * 1024

// kernelImageOffset is where the kernel ELF lands within the RAM region,
// leaving the first page for whatever a real bootloader would reserve
// for itself.
const kernelImageOffset = 0x1000

// defaultDiskSizeBytes sizes a freshly created disk image when none
// exists yet at the configured path.
const defaultDiskSizeBytes = 64 * 1024 * 1024

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "elinosctl: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	yamlPath := flag.String("config", "", "path to a YAML config overlaying environment defaults")
	ramSize := flag.Uint64("ram", 0, "guest RAM size in bytes (overrides config)")
	diskPath := flag.String("disk", "", "path to the disk image (overrides config)")
	kernelPath := flag.String("kernel", "", "path to the kernel ELF image (overrides config)")
	cols := flag.Int("cols", 80, "terminal width in columns")
	rows := flag.Int("rows", 24, "terminal height in rows")
	flag.Parse()

	cfg, err := config.Load(*yamlPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *ramSize != 0 {
		cfg.RAMSizeBytes = *ramSize
	}
	if *diskPath != "" {
		cfg.DiskImagePath = *diskPath
	}
	if *kernelPath != "" {
		cfg.KernelELFPath = *kernelPath
	}

	kernelImage, err := os.ReadFile(cfg.KernelELFPath)
	if err != nil {
		return fmt.Errorf("reading kernel image %s: %w", cfg.KernelELFPath, err)
	}

	disk, err := hostdisk.Open(cfg.DiskImagePath, defaultDiskSizeBytes)
	if err != nil {
		return fmt.Errorf("opening disk image: %w", err)
	}
	defer disk.Close()

	// The guest's physical address space is one flat byte slice running
	// from the lowest VirtIO/UART MMIO base through the top of RAM —
	// Arena's own framing ("every physical address is an offset into
	// Arena.Bytes"). On QEMU virt's real memory map that gap is large
	// (RAM starts ~1.75GiB above the MMIO window), so this allocation is
	// correspondingly large; see DESIGN.md for why that tradeoff was
	// accepted over giving MMIO devices their own separate arena.
	arenaTop := ramBase + cfg.RAMSizeBytes
	arena := memory.NewArena(console.Base, arenaTop-console.Base)

	imageBase := ramBase + kernelImageOffset
	if err := arena.WriteAt(imageBase, kernelImage); err != nil {
		return fmt.Errorf("staging kernel image in guest memory: %w", err)
	}

	bar := progressbar.DefaultBytes(int64(len(kernelImage)), "booting elinOS")
	if _, err := bar.Write(kernelImage); err != nil {
		return fmt.Errorf("updating boot progress: %w", err)
	}
	bar.Close()

	ramRegions := []memory.Region{memory.NewRAMRegion(ramBase, cfg.RAMSizeBytes)}
	_, handoff, err := boot.Boot(arena, ramRegions, reservedSize)
	if err != nil {
		return fmt.Errorf("bootloader: %w", err)
	}

	virtioAddrs := virtio.DefaultProbeAddresses
	if cfg.VirtioSlots > 0 && cfg.VirtioSlots < len(virtioAddrs) {
		virtioAddrs = virtioAddrs[:cfg.VirtioSlots]
	}
	// Stand in for real VirtIO silicon: install one block device's
	// post-reset register state at the first probed slot before the
	// kernel ever looks for it (§4.5, internal/virtio.InstallDeviceResetState's
	// own doc comment explains why the host harness plays this role).
	if err := virtio.InstallDeviceResetState(arena, virtioAddrs[0], 128); err != nil {
		return fmt.Errorf("installing virtio device state: %w", err)
	}

	stdinFd := int(os.Stdin.Fd())
	raw := term.IsTerminal(stdinFd)
	if raw {
		oldState, err := term.MakeRaw(stdinFd)
		if err != nil {
			return fmt.Errorf("enabling raw terminal mode: %w", err)
		}
		defer term.Restore(stdinFd, oldState)
	}

	sb := newScrollback(os.Stdout, *cols, *rows)

	k, err := kernel.Init(arena, handoff, sb, os.Stdin, virtioAddrs, disk)
	if err != nil {
		return fmt.Errorf("kernel init: %w", err)
	}

	sh := shell.New(k.Console, k.FS, k.SBI, k)
	sh.Run()

	if err := disk.Sync(); err != nil {
		return fmt.Errorf("syncing disk image: %w", err)
	}
	return nil
}

// wbfsdev
// Sector-level access to WBFS backing stores: whole disks, partitions,
// or image files standing in for either.
// Cobra CLI + tcell fullscreen surface scan. One glyph per SECTOR.
//
// Build:
//
//	go build -o wbfsdev .
package main

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wbfsdev/capacity"
	"wbfsdev/device"
	"wbfsdev/discovery"
	"wbfsdev/logger"
	"wbfsdev/sector"
)

// wbfsMagic is the big-endian 'WBFS' tag at the start of a formatted partition.
var wbfsMagic = []byte("WBFS")

func must(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
}

func human(b int64) string {
	switch {
	case b >= 1024*1024*1024:
		return fmt.Sprintf("%.1fG", float64(b)/(1024*1024*1024))
	case b >= 1024*1024:
		return fmt.Sprintf("%dM", b/(1024*1024))
	case b >= 1024:
		return fmt.Sprintf("%dK", b/1024)
	}
	return fmt.Sprintf("%dB", b)
}

// maxTransferSectors bounds the per-call buffer (32M) of copy and scan.
const maxTransferSectors = 1 << 16

// maxAddressable is the number of sectors a 32-bit LBA can reach.
const maxAddressable = 1 << 32

func checkTransferSectors(flag string, n uint32) error {
	if n == 0 || n > maxTransferSectors {
		return fmt.Errorf("--%s must be between 1 and %d", flag, maxTransferSectors)
	}
	return nil
}

// app holds what every command needs once flags are parsed.
type app struct {
	debug   bool
	logJSON bool
	log     *zap.Logger
}

func (a *app) opener() *device.Opener {
	return device.NewOpener(a.log)
}

// openStore opens path the way the user asked, without discovery.
func (a *app) openStore(path string, partition bool) (*device.Disk, error) {
	if partition {
		return a.opener().OpenPartition(path, false)
	}
	return a.opener().OpenDisk(path, false)
}

func newRootCmd() *cobra.Command {
	a := &app{log: zap.NewNop()}

	root := &cobra.Command{
		Use:           "wbfsdev",
		Short:         "WBFS backing store probing, discovery and sector tools",
		Long:          "Probe, discover and access disks, partitions and image files holding a WBFS filesystem",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			l, err := logger.NewLogger(logger.LoggerConfig{IsDebug: a.debug, IsJSON: a.logJSON})
			if err != nil {
				return err
			}
			a.log = l
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = a.log.Sync()
		},
	}
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "verbose diagnostics")
	root.PersistentFlags().BoolVar(&a.logJSON, "log-json", false, "JSON diagnostics on stderr")

	root.AddCommand(newProbeCmd(a))
	root.AddCommand(newOpenCmd(a))
	root.AddCommand(newCandidatesCmd(a))
	root.AddCommand(newDumpCmd(a))
	root.AddCommand(newScanCmd(a))
	root.AddCommand(newCopyCmd(a))
	return root
}

func main() {
	must(newRootCmd().Execute())
}

func newProbeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <path>...",
		Short: "Show sector size and sector count of backing stores (read-only)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			p := &capacity.Prober{Logger: a.log}
			fmt.Fprintf(out, "%-24s  %-7s  %-12s  %-8s\n", "Path", "Native", "Sectors", "Size")
			found := 0
			for _, path := range args {
				g, err := p.Probe(path)
				switch {
				case errors.Is(err, capacity.ErrNotFound):
					fmt.Fprintf(out, "%-24s  not found\n", path)
				case err != nil:
					fmt.Fprintf(out, "%-24s  %v\n", path, err)
				default:
					found++
					fmt.Fprintf(out, "%-24s  %-7d  %-12d  %-8s\n", path, g.SectorSize, g.SectorCount, human(g.Bytes()))
				}
			}
			if found == 0 {
				return fmt.Errorf("no usable backing store")
			}
			return nil
		},
	}
}

func newOpenCmd(a *app) *cobra.Command {
	var (
		diskPath, partPath string
		reset, force       bool
	)
	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open a backing store the way the filesystem engine does and describe it",
		Long: "Tries --partition, then --disk, then scans the platform device nodes.\n" +
			"--reset marks the store for initialization and only accepts an explicit --partition.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if reset && !force {
				return fmt.Errorf("--reset requires --force")
			}
			if reset && partPath != "" {
				if mnt := mountPointOf(partPath); mnt != "" {
					return fmt.Errorf("%s is mounted on %s; unmount it before --reset", partPath, mnt)
				}
			}

			d := discovery.New(a.log)
			disk, err := d.Discover(discovery.Request{DiskPath: diskPath, PartitionPath: partPath, Reset: reset})
			if err != nil {
				return err
			}
			defer disk.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Path:        %s\n", disk.Path)
			fmt.Fprintf(out, "Kind:        %s\n", disk.Kind)
			fmt.Fprintf(out, "Sector size: %d\n", disk.Geometry.SectorSize)
			fmt.Fprintf(out, "Sectors:     %d (512B)\n", disk.Geometry.SectorCount)
			fmt.Fprintf(out, "Size:        %s\n", human(disk.Geometry.Bytes()))
			fmt.Fprintf(out, "Reset:       %t\n", disk.Reset)
			if disk.Geometry.SectorCount > 0 {
				head := make([]byte, sector.SectorSize)
				if err := disk.ReadSectors(0, 1, head); err != nil {
					return err
				}
				fmt.Fprintf(out, "WBFS head:   %t\n", bytes.Equal(head[:4], wbfsMagic))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&diskPath, "disk", "", "whole-disk device or image (e.g. /dev/sdb)")
	cmd.Flags().StringVar(&partPath, "partition", "", "partition device or image (e.g. /dev/sdb1)")
	cmd.Flags().BoolVar(&reset, "reset", false, "mark the store for initialization [DANGEROUS]")
	cmd.Flags().BoolVar(&force, "force", false, "required with --reset")
	return cmd
}

func newCandidatesCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "candidates",
		Short: "List the device nodes discovery tries, in order (read-only)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			p := &capacity.Prober{Logger: a.log}
			fmt.Fprintf(out, "  %-4s  %-24s  %-9s  %-8s\n", "#", "Path", "Kind", "Size")
			printed := false
			for i, c := range discovery.PlatformNamespace().Candidates() {
				kind := device.KindDisk
				if c.Partition {
					kind = device.KindPartition
				}
				g, err := p.Probe(c.Path)
				if err != nil {
					if all {
						fmt.Fprintf(out, "  %-4d  %-24s  %-9s  %s\n", i+1, c.Path, kind, "-")
						printed = true
					}
					continue
				}
				size := human(g.Bytes())
				if mnt := mountPointOf(c.Path); mnt != "" {
					size += "  (mounted on " + mnt + ")"
				}
				fmt.Fprintf(out, "  %-4d  %-24s  %-9s  %s\n", i+1, c.Path, kind, size)
				printed = true
			}
			if !printed {
				fmt.Fprintln(out, "  <none detected>")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include candidates that do not probe")
	return cmd
}

func newDumpCmd(a *app) *cobra.Command {
	var (
		path      string
		partition bool
		lba       uint32
		count     uint32
	)
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Hex dump a range of 512-byte sectors",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count == 0 {
				return fmt.Errorf("--count must be at least 1")
			}
			disk, err := a.openStore(path, partition)
			if err != nil {
				return err
			}
			defer disk.Close()

			if uint64(lba)+uint64(count) > disk.Geometry.SectorCount {
				return fmt.Errorf("sectors %d..%d beyond end of %s (%d sectors)", lba, uint64(lba)+uint64(count)-1, path, disk.Geometry.SectorCount)
			}
			buf := make([]byte, int(count)*sector.SectorSize)
			if err := disk.ReadSectors(lba, count, buf); err != nil {
				return err
			}
			return hexDump(cmd.OutOrStdout(), uint64(lba), buf)
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "device or image to read")
	cmd.Flags().BoolVar(&partition, "partition", false, "open --path as a partition")
	cmd.Flags().Uint32Var(&lba, "lba", 0, "first sector")
	cmd.Flags().Uint32Var(&count, "count", 1, "number of sectors")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

func hexDump(w io.Writer, lba uint64, buf []byte) error {
	for i := 0; i < len(buf); i += sector.SectorSize {
		if _, err := fmt.Fprintf(w, "sector %d\n", lba+uint64(i/sector.SectorSize)); err != nil {
			return err
		}
		if err := dumpSector(w, buf[i:i+sector.SectorSize]); err != nil {
			return err
		}
	}
	return nil
}

func dumpSector(w io.Writer, b []byte) error {
	d := hex.Dumper(w)
	if _, err := d.Write(b); err != nil {
		return err
	}
	return d.Close()
}

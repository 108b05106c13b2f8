package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wbfsdev/retrodfrg"
	"wbfsdev/sector"
)

/* ===================== Surface scan ===================== */

// scanTracker records which sectors have been read and which failed.
type scanTracker struct {
	read       *bitset.BitSet
	bad        *bitset.BitSet
	total      uint64
	currentPos uint64
}

func newScanTracker(total uint64) *scanTracker {
	return &scanTracker{
		read:  bitset.New(uint(total)),
		bad:   bitset.New(uint(total)),
		total: total,
	}
}

func (st *scanTracker) mark(lba uint64, n uint32, err error) {
	end := lba + uint64(n)
	if end > st.total {
		end = st.total
	}
	for i := lba; i < end; i++ {
		st.read.Set(uint(i))
		if err != nil {
			st.bad.Set(uint(i))
		}
	}
	if end > 0 {
		st.currentPos = end - 1
	}
}

func (st *scanTracker) readCount() uint64 { return uint64(st.read.Count()) }
func (st *scanTracker) badCount() uint64  { return uint64(st.bad.Count()) }

// badSectors lists up to limit failed sectors in ascending order.
func (st *scanTracker) badSectors(limit int) []uint64 {
	var out []uint64
	for i, ok := st.bad.NextSet(0); ok && len(out) < limit; i, ok = st.bad.NextSet(i + 1) {
		out = append(out, uint64(i))
	}
	return out
}

// mapLines renders one glyph per sector in a w x rows window that scrolls
// to follow the current position.
func (st *scanTracker) mapLines(w, rows int) []string {
	if st.total == 0 || w <= 0 || rows <= 0 {
		return nil
	}
	cells := uint64(w * rows)

	start := uint64(0)
	if st.total > cells {
		if st.currentPos >= cells-1 {
			start = st.currentPos - (cells - 1)
		}
		if start+cells > st.total {
			start = st.total - cells
		}
	}

	const (
		done    = '█'
		pending = '░'
		failed  = '✗'
	)
	lines := make([]string, 0, rows)
	for row := 0; row < rows; row++ {
		var b strings.Builder
		b.Grow(w)
		for col := 0; col < w; col++ {
			abs := start + uint64(row*w+col)
			if abs >= st.total {
				break
			}
			ch := pending
			switch {
			case st.bad.Test(uint(abs)):
				ch = failed
			case st.read.Test(uint(abs)):
				ch = done
			}
			b.WriteRune(ch)
		}
		if b.Len() == 0 {
			break
		}
		lines = append(lines, b.String())
	}
	return lines
}

func (st *scanTracker) statusLines(startTime time.Time) []string {
	read := st.readCount()
	elapsed := time.Since(startTime).Truncate(time.Second)

	var rate float64
	if s := time.Since(startTime).Seconds(); s > 0 {
		rate = float64(read*sector.SectorSize) / s
	}
	eta := "-"
	if rate > 0 {
		remain := float64((st.total - read) * sector.SectorSize)
		eta = time.Duration(remain / rate * float64(time.Second)).Truncate(time.Second).String()
	}
	return []string{
		fmt.Sprintf("Sector: %06d", st.currentPos),
		fmt.Sprintf("Read: %d / %d sectors   Bad: %d", read, st.total, st.badCount()),
		fmt.Sprintf("Elapsed: %s   Rate: %s/s   ETA: %s", elapsed, human(int64(rate)), eta),
	}
}

func refreshScanUI(ui *retrodfrg.UI, st *scanTracker, startTime time.Time) {
	w, h := ui.Size()
	if w > 0 && h > 0 {
		// leave room for title, summary, legend, phase and status
		ui.SetProgressMap(st.mapLines(w, h-12))
	}
	ui.SetStatusLines(st.statusLines(startTime))
	ui.LayoutAndDraw()
}

func newScanCmd(a *app) *cobra.Command {
	var (
		path      string
		partition bool
		chunk     uint32
		noUI      bool
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Read every sector and report the ones that fail (read-only)",
		Long:  "Surface scan of a backing store. Shows a fullscreen sector map unless --no-ui; press q, Esc or Ctrl+C to stop",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkTransferSectors("chunk", chunk); err != nil {
				return err
			}
			disk, err := a.openStore(path, partition)
			if err != nil {
				return err
			}
			defer disk.Close()

			var ui *retrodfrg.UI
			if !noUI {
				ui, err = retrodfrg.NewUI()
				if err != nil {
					return fmt.Errorf("terminal: %w", err)
				}
				defer ui.Close()
				ui.SetTitle(" WBFSDEV SCAN ")
				ui.SetSummaryLines([]string{
					fmt.Sprintf("Path: %s   Kind: %s", disk.Path, disk.Kind),
					fmt.Sprintf("Sectors: %d (512B, native %d)   Size: %s", disk.Geometry.SectorCount, disk.Geometry.SectorSize, human(disk.Geometry.Bytes())),
				})
				ui.SetLegend([]string{"Legend: █ read  ░ pending  ✗ bad"})
				ui.SetPhases([]string{"Read"})
			}

			st, err := scanStore(disk, disk.Geometry.SectorCount, chunk, ui, a.log)
			if ui != nil {
				ui.Close()
			}
			printScanSummary(cmd.OutOrStdout(), disk.Path, st)
			if err != nil {
				return err
			}
			if n := st.badCount(); n > 0 {
				return fmt.Errorf("%d bad sectors", n)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "device or image to scan")
	cmd.Flags().BoolVar(&partition, "partition", false, "open --path as a partition")
	cmd.Flags().Uint32Var(&chunk, "chunk", 64, "sectors per read")
	cmd.Flags().BoolVar(&noUI, "no-ui", false, "disable the fullscreen sector map")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

// scanLimit clamps total to what a 32-bit LBA can reach.
func scanLimit(total uint64) uint64 {
	return min(total, maxAddressable)
}

// scanStore reads sectors [0, total) of r, stopping at the 32-bit LBA limit.
// ui may be nil.
func scanStore(r retrodfrg.SectorReader, total uint64, chunk uint32, ui *retrodfrg.UI, log *zap.Logger) (*scanTracker, error) {
	if limit := scanLimit(total); limit < total {
		log.Warn("scan limited to 32-bit sectors", zap.Uint64("sectors", total), zap.Uint64("limit", limit))
		total = limit
	}
	st := newScanTracker(total)
	startTime := time.Now()
	lastDraw := time.Time{}

	err := retrodfrg.ScanSpan(r, 0, total, chunk, ui, func(lba uint64, n uint32, err error) {
		st.mark(lba, n, err)
		if err != nil {
			log.Warn("bad sector", zap.Uint64("lba", lba), zap.Error(err))
		}
		if ui != nil && time.Since(lastDraw) > 100*time.Millisecond {
			refreshScanUI(ui, st, startTime)
			lastDraw = time.Now()
		}
	})
	if ui != nil && err == nil {
		ui.SetPhaseDone("read")
		refreshScanUI(ui, st, startTime)
	}
	if errors.Is(err, retrodfrg.ErrInterrupted) {
		log.Info("scan interrupted", zap.Uint64("sector", st.currentPos))
	}
	return st, err
}

func printScanSummary(w io.Writer, path string, st *scanTracker) {
	fmt.Fprintf(w, "Scanned %s: %d / %d sectors read, %d bad\n", path, st.readCount(), st.total, st.badCount())
	const maxListed = 32
	bad := st.badSectors(maxListed)
	if len(bad) == 0 {
		return
	}
	strs := make([]string, len(bad))
	for i, lba := range bad {
		strs[i] = fmt.Sprint(lba)
	}
	more := ""
	if st.badCount() > uint64(len(bad)) {
		more = " ..."
	}
	fmt.Fprintf(w, "Bad sectors: %s%s\n", strings.Join(strs, " "), more)
}

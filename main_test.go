package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wbfsdev/capacity"
	"wbfsdev/device"
	"wbfsdev/sector"
)

func tempImage(t *testing.T, sectors int, fill func([]byte)) string {
	t.Helper()
	b := make([]byte, sectors*sector.SectorSize)
	if fill != nil {
		fill(b)
	}
	path := filepath.Join(t.TempDir(), "wbfs.img")
	require.NoError(t, os.WriteFile(path, b, 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

func TestHuman(t *testing.T) {
	assert.Equal(t, "512B", human(512))
	assert.Equal(t, "4K", human(4096))
	assert.Equal(t, "8M", human(8<<20))
	assert.Equal(t, "1.5G", human(3<<29))
}

func TestProbeCmd(t *testing.T) {
	path := tempImage(t, 64, nil)
	missing := filepath.Join(t.TempDir(), "absent.img")

	out, err := run(t, "probe", path, missing)
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.Contains(t, out, "64")
	assert.Contains(t, out, "32K")
	assert.Contains(t, out, missing)
	assert.Contains(t, out, "not found")

	_, err = run(t, "probe", missing)
	assert.EqualError(t, err, "no usable backing store")
}

func TestOpenCmd_Partition(t *testing.T) {
	path := tempImage(t, 16, func(b []byte) { copy(b, "WBFS") })

	out, err := run(t, "open", "--partition", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Path:        "+path)
	assert.Contains(t, out, "Kind:        partition")
	assert.Contains(t, out, "Sectors:     16 (512B)")
	assert.Contains(t, out, "Reset:       false")
	assert.Contains(t, out, "WBFS head:   true")
}

func TestOpenCmd_Disk(t *testing.T) {
	path := tempImage(t, 4, nil)

	out, err := run(t, "open", "--disk", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Kind:        disk")
	assert.Contains(t, out, "WBFS head:   false")
}

func TestOpenCmd_Reset(t *testing.T) {
	path := tempImage(t, 4, nil)

	_, err := run(t, "open", "--reset", "--partition", path)
	assert.EqualError(t, err, "--reset requires --force")

	out, err := run(t, "open", "--reset", "--force", "--partition", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Reset:       true")

	// reset never falls back to the disk path
	_, err = run(t, "open", "--reset", "--force", "--disk", path)
	assert.Error(t, err)
}

func TestDumpCmd(t *testing.T) {
	path := tempImage(t, 4, func(b []byte) { copy(b[sector.SectorSize:], "hello") })

	out, err := run(t, "dump", "--path", path, "--lba", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "sector 1\n")
	assert.Contains(t, out, "68 65 6c 6c 6f")
	assert.Contains(t, out, "|hello")
	assert.NotContains(t, out, "sector 0\n")

	_, err = run(t, "dump", "--path", path, "--lba", "3", "--count", "2")
	assert.ErrorContains(t, err, "beyond end")

	_, err = run(t, "dump", "--path", path, "--count", "0")
	assert.Error(t, err)
}

func TestCopyCmd_RoundTrip(t *testing.T) {
	pattern := func(b []byte) {
		for i := range b {
			b[i] = byte(i / sector.SectorSize)
		}
	}
	src := tempImage(t, 10, pattern)
	img := filepath.Join(t.TempDir(), "backup", "out.img")

	out, err := run(t, "copy", "dev2img", "--device", src, "--out", img, "--block-sectors", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Copy complete: 10 sectors")
	want, err := os.ReadFile(src)
	require.NoError(t, err)
	got, err := os.ReadFile(img)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	dst := tempImage(t, 12, nil)
	_, err = run(t, "copy", "img2dev", "--in", img, "--device", dst)
	assert.EqualError(t, err, "--force is required for device writes")

	out, err = run(t, "copy", "img2dev", "--in", img, "--device", dst, "--force", "--block-sectors", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "WARNING: device is 6K, only writing 5K")
	restored, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, want, restored[:len(want)])
	assert.Equal(t, make([]byte, 2*sector.SectorSize), restored[len(want):])
}

func TestCopyCmd_DeviceTooSmall(t *testing.T) {
	img := tempImage(t, 8, nil)
	dst := tempImage(t, 4, nil)

	_, err := run(t, "copy", "img2dev", "--in", img, "--device", dst, "--force")
	assert.ErrorContains(t, err, "device too small")
}

func TestCopyCmd_UnalignedImage(t *testing.T) {
	img := filepath.Join(t.TempDir(), "odd.img")
	require.NoError(t, os.WriteFile(img, make([]byte, 700), 0o644))
	dst := tempImage(t, 4, nil)

	_, err := run(t, "copy", "img2dev", "--in", img, "--device", dst, "--force")
	assert.ErrorContains(t, err, "not a multiple of 512")
}

// untouchedStore fails the test on any transfer.
type untouchedStore struct{ t *testing.T }

func (r untouchedStore) ReadSectors(lba, count uint32, _ []byte) error {
	r.t.Errorf("unexpected read at %d+%d", lba, count)
	return nil
}

func (r untouchedStore) WriteSectors(lba, count uint32, _ []byte) error {
	r.t.Errorf("unexpected write at %d+%d", lba, count)
	return nil
}

func TestCopyImageToDevice_Beyond32BitSectors(t *testing.T) {
	img := filepath.Join(t.TempDir(), "huge.img")
	f, err := os.Create(img)
	require.NoError(t, err)
	require.NoError(t, f.Truncate((1<<32+1)*sector.SectorSize))
	require.NoError(t, f.Close())

	dst := &device.Disk{
		Store:    untouchedStore{t},
		Path:     "/dev/huge",
		Geometry: capacity.Geometry{SectorSize: 512, SectorCount: 1 << 34},
	}
	err = copyImageToDevice(io.Discard, zap.NewNop(), img, dst, 2048)
	assert.ErrorContains(t, err, "exceed 32-bit addressing")
}

func TestCopyDeviceToImage_Beyond32BitSectors(t *testing.T) {
	src := &device.Disk{
		Store:    untouchedStore{t},
		Path:     "/dev/huge",
		Geometry: capacity.Geometry{SectorSize: 512, SectorCount: 1<<32 + 1},
	}
	out := filepath.Join(t.TempDir(), "out.img")
	err := copyDeviceToImage(io.Discard, zap.NewNop(), src, out, 2048)
	assert.ErrorContains(t, err, "exceed 32-bit addressing")
	assert.NoFileExists(t, out)
}

func TestTransferSectorsBounded(t *testing.T) {
	path := tempImage(t, 4, nil)
	dst := tempImage(t, 4, nil)
	img := filepath.Join(t.TempDir(), "out.img")

	_, err := run(t, "copy", "dev2img", "--device", path, "--out", img, "--block-sectors", "65537")
	assert.EqualError(t, err, "--block-sectors must be between 1 and 65536")
	assert.NoFileExists(t, img)

	_, err = run(t, "copy", "img2dev", "--in", path, "--device", dst, "--force", "--block-sectors", "0")
	assert.EqualError(t, err, "--block-sectors must be between 1 and 65536")

	_, err = run(t, "scan", "--path", path, "--no-ui", "--chunk", "4294967295")
	assert.EqualError(t, err, "--chunk must be between 1 and 65536")

	_, err = run(t, "copy", "dev2img", "--device", path, "--out", img, "--block-sectors", "65536")
	assert.NoError(t, err)
}

func TestScanCmd_NoUI(t *testing.T) {
	path := tempImage(t, 100, nil)

	out, err := run(t, "scan", "--path", path, "--no-ui", "--chunk", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "100 / 100 sectors read, 0 bad")
	assert.NotContains(t, out, "Bad sectors:")
}

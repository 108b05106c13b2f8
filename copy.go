package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wbfsdev/device"
	"wbfsdev/sector"
)

/* ===================== Copy operations ===================== */

func newCopyCmd(a *app) *cobra.Command {
	copyCmd := &cobra.Command{
		Use:   "copy",
		Short: "Copy sectors between backing stores and image files",
		Long:  "Copy sector by sector from a device to an image (backup) or from an image to a device (restore)",
	}

	// Device to image (backup)
	var (
		dev2imgDevice    string
		dev2imgOut       string
		dev2imgPartition bool
		dev2imgBlock     uint32
	)
	copyToImage := &cobra.Command{
		Use:   "dev2img --device <device> --out <image>",
		Short: "Copy from device to image file (backup)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			disk, err := a.openStore(dev2imgDevice, dev2imgPartition)
			if err != nil {
				return err
			}
			defer disk.Close()
			return copyDeviceToImage(cmd.OutOrStdout(), a.log, disk, dev2imgOut, dev2imgBlock)
		},
	}
	copyToImage.Flags().StringVar(&dev2imgDevice, "device", "", "source device or image (e.g. /dev/sdb)")
	copyToImage.Flags().StringVar(&dev2imgOut, "out", "", "output image file")
	copyToImage.Flags().BoolVar(&dev2imgPartition, "partition", false, "open --device as a partition")
	copyToImage.Flags().Uint32Var(&dev2imgBlock, "block-sectors", 2048, "sectors per transfer")
	_ = copyToImage.MarkFlagRequired("device")
	_ = copyToImage.MarkFlagRequired("out")

	// Image to device (restore)
	var (
		img2devIn        string
		img2devDevice    string
		img2devPartition bool
		img2devForce     bool
		img2devBlock     uint32
	)
	copyToDevice := &cobra.Command{
		Use:   "img2dev --in <image> --device <device>",
		Short: "Copy from image file to device (restore)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !img2devForce {
				return fmt.Errorf("--force is required for device writes")
			}
			if mnt := mountPointOf(img2devDevice); mnt != "" {
				return fmt.Errorf("%s is mounted on %s", img2devDevice, mnt)
			}
			disk, err := a.openStore(img2devDevice, img2devPartition)
			if err != nil {
				return err
			}
			defer disk.Close()
			return copyImageToDevice(cmd.OutOrStdout(), a.log, img2devIn, disk, img2devBlock)
		},
	}
	copyToDevice.Flags().StringVar(&img2devIn, "in", "", "source image file")
	copyToDevice.Flags().StringVar(&img2devDevice, "device", "", "target device or image (e.g. /dev/sdb)")
	copyToDevice.Flags().BoolVar(&img2devPartition, "partition", false, "open --device as a partition")
	copyToDevice.Flags().BoolVar(&img2devForce, "force", false, "confirm device write")
	copyToDevice.Flags().Uint32Var(&img2devBlock, "block-sectors", 2048, "sectors per transfer")
	_ = copyToDevice.MarkFlagRequired("in")
	_ = copyToDevice.MarkFlagRequired("device")

	copyCmd.AddCommand(copyToImage)
	copyCmd.AddCommand(copyToDevice)
	return copyCmd
}

func copyDeviceToImage(out io.Writer, log *zap.Logger, src *device.Disk, imagePath string, blockSectors uint32) error {
	if err := checkTransferSectors("block-sectors", blockSectors); err != nil {
		return err
	}
	total := src.Geometry.SectorCount
	if total > maxAddressable {
		return fmt.Errorf("%s: %d sectors exceed 32-bit addressing", src.Path, total)
	}

	if err := os.MkdirAll(filepath.Dir(imagePath), 0o755); err != nil {
		return err
	}
	dst, err := os.Create(imagePath)
	if err != nil {
		return fmt.Errorf("create image: %w", err)
	}
	defer dst.Close()

	fmt.Fprintf(out, "Copying %s (%s) to %s...\n", src.Path, human(src.Geometry.Bytes()), imagePath)

	buf := make([]byte, int(blockSectors)*sector.SectorSize)
	var copied uint64
	for copied < total {
		n := blockSectors
		if left := total - copied; left < uint64(n) {
			n = uint32(left)
		}
		chunk := buf[:int(n)*sector.SectorSize]
		if err := src.ReadSectors(uint32(copied), n, chunk); err != nil {
			return fmt.Errorf("read device: %w", err)
		}
		if _, err := dst.Write(chunk); err != nil {
			return fmt.Errorf("write image: %w", err)
		}
		copied += uint64(n)
		log.Debug("copied", zap.Uint64("sectors", copied), zap.Uint64("total", total))
	}

	if err := dst.Sync(); err != nil {
		return fmt.Errorf("sync image: %w", err)
	}
	fmt.Fprintf(out, "Copy complete: %d sectors (%s) copied\n", copied, human(int64(copied)*sector.SectorSize))
	return nil
}

func copyImageToDevice(out io.Writer, log *zap.Logger, imagePath string, dst *device.Disk, blockSectors uint32) error {
	if err := checkTransferSectors("block-sectors", blockSectors); err != nil {
		return err
	}
	src, err := os.Open(imagePath)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer src.Close()

	st, err := src.Stat()
	if err != nil {
		return fmt.Errorf("stat image: %w", err)
	}
	imageSize := st.Size()
	if imageSize%sector.SectorSize != 0 {
		return fmt.Errorf("image size %d is not a multiple of %d", imageSize, sector.SectorSize)
	}
	if dst.Geometry.Bytes() < imageSize {
		return fmt.Errorf("device too small: has %s, need %s", human(dst.Geometry.Bytes()), human(imageSize))
	}
	total := uint64(imageSize / sector.SectorSize)
	if total > maxAddressable {
		return fmt.Errorf("%s: %d sectors exceed 32-bit addressing", imagePath, total)
	}

	fmt.Fprintf(out, "Copying %s (%s) to %s...\n", imagePath, human(imageSize), dst.Path)
	if dst.Geometry.Bytes() > imageSize {
		fmt.Fprintf(out, "WARNING: device is %s, only writing %s\n", human(dst.Geometry.Bytes()), human(imageSize))
	}

	buf := make([]byte, int(blockSectors)*sector.SectorSize)
	var copied uint64
	for copied < total {
		n := blockSectors
		if left := total - copied; left < uint64(n) {
			n = uint32(left)
		}
		chunk := buf[:int(n)*sector.SectorSize]
		if _, err := io.ReadFull(src, chunk); err != nil {
			return fmt.Errorf("read image: %w", err)
		}
		if err := dst.WriteSectors(uint32(copied), n, chunk); err != nil {
			return fmt.Errorf("write device: %w", err)
		}
		copied += uint64(n)
		log.Debug("restored", zap.Uint64("sectors", copied), zap.Uint64("total", total))
	}

	if err := dst.Sync(); err != nil {
		return fmt.Errorf("sync device: %w", err)
	}
	fmt.Fprintf(out, "Copy complete: %s written to %s\n", human(imageSize), dst.Path)
	return nil
}

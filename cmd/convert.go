// Package cmd holds the spyglass subcommands.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/smazurov/spyglass/internal/camera"
	"github.com/smazurov/spyglass/internal/yuv"
)

// CreateConvertCmd creates the convert command.
func CreateConvertCmd() *cobra.Command {
	var (
		resolution string
		frame      int
		nv21Out    string
		jpegOut    string
		quality    int
	)

	cmd := &cobra.Command{
		Use:   "convert [input.yuv]",
		Short: "Convert a raw I420 frame to NV21 and/or JPEG",
		Long: `Reads one frame from a packed I420 (yuv420p) file, converts it to NV21 with the same ` +
			`converter the capture pipeline uses and writes the NV21 bytes and/or a JPEG. ` +
			`Produce input with: ffmpeg -i in.mp4 -frames:v 1 -f rawvideo -pix_fmt yuv420p out.yuv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if nv21Out == "" && jpegOut == "" {
				return errors.New("nothing to do: set --nv21 and/or --jpeg")
			}
			w, h, ok := camera.ParseResolution(resolution)
			if !ok {
				return fmt.Errorf("invalid resolution %q, want WIDTHxHEIGHT", resolution)
			}

			raw, err := readFrame(args[0], yuv.NV21Size(w, h), frame)
			if err != nil {
				return err
			}
			y, u, v, err := yuv.SplitI420(w, h, raw)
			if err != nil {
				return err
			}
			nv21, err := yuv.ToNV21(w, h, y, u, v)
			if err != nil {
				return err
			}

			if nv21Out != "" {
				if err := os.WriteFile(nv21Out, nv21, 0o644); err != nil {
					return fmt.Errorf("write nv21: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes NV21)\n", nv21Out, len(nv21))
			}
			if jpegOut != "" {
				data, err := yuv.EncodeJPEG(w, h, nv21, quality)
				if err != nil {
					return err
				}
				if err := os.WriteFile(jpegOut, data, 0o644); err != nil {
					return fmt.Errorf("write jpeg: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes JPEG, quality %d)\n", jpegOut, len(data), quality)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&resolution, "resolution", "r", camera.Default().Resolution(), "Frame size as WIDTHxHEIGHT")
	cmd.Flags().IntVar(&frame, "frame", 0, "Zero-based index of the frame to convert")
	cmd.Flags().StringVar(&nv21Out, "nv21", "", "Write NV21 bytes to this file")
	cmd.Flags().StringVar(&jpegOut, "jpeg", "", "Write a JPEG to this file")
	cmd.Flags().IntVarP(&quality, "quality", "q", camera.Default().JPEGQuality, "JPEG quality (1-100)")
	return cmd
}

// readFrame reads the index-th frame of size bytes from path.
func readFrame(path string, size, index int) ([]byte, error) {
	if index < 0 {
		return nil, fmt.Errorf("invalid frame index %d", index)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if _, err := f.Seek(int64(size)*int64(index), io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to frame %d: %w", index, err)
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(f, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%s has no complete frame %d of %d bytes", path, index, size)
		}
		return nil, err
	}
	return buf, nil
}

package stream

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os/exec"
)

// CameraSource reads frames from a capture device through ffmpeg's
// MJPEG output.
type CameraSource struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	br     *bufio.Reader
}

func OpenCamera(device string, fps int) (*CameraSource, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}
	if fps <= 0 {
		fps = 10
	}

	cmd := exec.Command(ffmpegPath,
		"-f", "v4l2",
		"-framerate", fmt.Sprintf("%d", fps),
		"-i", device,
		"-f", "mjpeg",
		"-q:v", "5",
		"pipe:1",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	return &CameraSource{
		cmd:    cmd,
		stdout: stdout,
		br:     bufio.NewReaderSize(stdout, 1<<20),
	}, nil
}

func (c *CameraSource) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := readJPEGFrame(c.br)
	if err != nil {
		return nil, fmt.Errorf("failed to read camera frame: %w", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode camera frame: %w", err)
	}
	return img, nil
}

// Close kills the capture process, which also unblocks a pending Next.
func (c *CameraSource) Close() error {
	c.stdout.Close()
	if c.cmd.Process != nil {
		c.cmd.Process.Kill()
	}
	return c.cmd.Wait()
}

// readJPEGFrame scans the MJPEG byte stream for the next SOI/EOI pair.
func readJPEGFrame(r *bufio.Reader) ([]byte, error) {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if b != 0xFF {
			continue
		}
		nb, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if nb == 0xD8 {
			break
		}
	}

	buf := []byte{0xFF, 0xD8}
	prev := byte(0)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		buf = append(buf, b)
		if prev == 0xFF && b == 0xD9 {
			return buf, nil
		}
		prev = b
	}
}

// Package video shells out to ffmpeg for frame extraction and annotated
// re-encoding. No video decoding happens in-process.
package video

import (
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

type Processor struct {
	ffmpegPath string
}

func NewProcessor() (*Processor, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}
	return &Processor{ffmpegPath: ffmpegPath}, nil
}

// ExtractFrames dumps frames from videoPath into dir at the given rate
// (frames per second of source time) and returns their paths in order.
func (p *Processor) ExtractFrames(videoPath, dir string, fps int) ([]string, error) {
	if fps <= 0 {
		fps = 1
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create frames dir: %w", err)
	}

	cmd := exec.Command(p.ffmpegPath,
		"-i", videoPath,
		"-vf", fmt.Sprintf("fps=%d", fps),
		"-q:v", "2",
		filepath.Join(dir, "frame_%06d.jpg"),
	)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg extraction failed: %w (%s)", err, lastLine(stderr.String()))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frames dir: %w", err)
	}

	var frames []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".jpg") {
			frames = append(frames, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(frames)

	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames extracted from %s", videoPath)
	}
	return frames, nil
}

// Encode assembles annotated frames (frame_%06d.jpg in dir) back into an
// mp4 at outPath.
func (p *Processor) Encode(dir string, fps int, outPath string) error {
	if fps <= 0 {
		fps = 1
	}
	cmd := exec.Command(p.ffmpegPath,
		"-y",
		"-framerate", fmt.Sprintf("%d", fps),
		"-i", filepath.Join(dir, "frame_%06d.jpg"),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		outPath,
	)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg encoding failed: %w (%s)", err, lastLine(stderr.String()))
	}
	return nil
}

func LoadFrame(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open frame: %w", err)
	}
	defer f.Close()

	img, err := jpeg.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	return img, nil
}

func SaveFrame(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create frame file: %w", err)
	}
	defer f.Close()

	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 90}); err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	return nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}

package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Prober handles ffprobe operations.
type Prober struct {
	ffprobePath string
	runner      runnerFunc
}

// NewProber creates a prober. An empty path means ffprobe is looked up on
// $PATH.
func NewProber(ffprobePath string) *Prober {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Prober{ffprobePath: ffprobePath, runner: runCommand}
}

func (p *Prober) showEntries(ctx context.Context, path, entries string) (string, error) {
	args := []string{
		"-v", "error",
		"-show_entries", entries,
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
	stdout, stderr, err := p.runner(ctx, p.ffprobePath, args)
	if err != nil {
		return "", &MuxerError{Stage: "probe", Stderr: stderr, Err: err}
	}
	return strings.TrimSpace(stdout), nil
}

// Duration measures the container duration of a media file in seconds.
// For segments this is the actual duration, which may be shorter than
// the target duration when the stream drops.
func (p *Prober) Duration(ctx context.Context, path string) (float64, error) {
	raw, err := p.showEntries(ctx, path, "format=duration")
	if err != nil {
		return 0, err
	}
	duration, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing probed duration %q: %w", raw, err)
	}
	return duration, nil
}

// CodecName reports the codec of the first stream in a media file.
func (p *Prober) CodecName(ctx context.Context, path string) (string, error) {
	raw, err := p.showEntries(ctx, path, "stream=codec_name")
	if err != nil {
		return "", err
	}
	// Multi-stream files report one codec per line; the first wins.
	name, _, _ := strings.Cut(raw, "\n")
	return strings.TrimSpace(name), nil
}

// runnerFunc executes a command and returns stdout and stderr. Swapped
// out in tests.
type runnerFunc func(ctx context.Context, name string, args []string) (stdout, stderr string, err error)

func runCommand(ctx context.Context, name string, args []string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var outBuf, errBuf strings.Builder
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err := cmd.Run()
	return outBuf.String(), errBuf.String(), err
}

package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MuxerError indicates a boundary mux or concat invocation failed.
type MuxerError struct {
	Stage  string
	Stderr string
	Err    error
}

func (e *MuxerError) Error() string {
	msg := fmt.Sprintf("muxer failed at stage %q", e.Stage)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Stderr != "" {
		msg += ": " + strings.TrimSpace(e.Stderr)
	}
	return msg
}

func (e *MuxerError) Unwrap() error { return e.Err }

// videoEncodingSettings maps probed video codec names to the re-encoding
// settings used when a boundary segment has to be cut at a non-keyframe
// position. Overridable per codec via the
// YTREWIND_<CODEC>_ENCODING_SETTINGS environment variable.
var videoEncodingSettings = map[string]string{
	"h264": "libx264 -crf 18",
	"vp9":  "libvpx-vp9 -crf 31 -b:v 0",
	"av1":  "libaom-av1 -crf 31",
}

// Muxer executes mux plans by invoking the external ffmpeg binary.
type Muxer struct {
	binary  string
	prober  *Prober
	tempDir string
	runner  runnerFunc
}

// NewMuxer creates a muxer. Empty binary paths mean ffmpeg and ffprobe
// are looked up on $PATH. Concat list files are written into tempDir.
func NewMuxer(binary, probePath, tempDir string) *Muxer {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Muxer{
		binary:  binary,
		prober:  NewProber(probePath),
		tempDir: tempDir,
		runner:  runCommand,
	}
}

// Execute runs all steps of a plan in order. Cancellation terminates the
// in-flight child process; the half-written output of the failed stage is
// deleted.
func (m *Muxer) Execute(ctx context.Context, plan MuxPlan) error {
	for _, step := range plan.Steps {
		var err error
		switch s := step.(type) {
		case CutStep:
			err = m.runCut(ctx, s)
		case ConcatStep:
			err = m.runConcat(ctx, s)
		case MergeStep:
			err = m.runMerge(ctx, s)
		default:
			err = fmt.Errorf("unsupported mux step: %T", step)
		}
		if err != nil {
			os.Remove(step.OutputPath())
			return err
		}
	}
	return nil
}

func (m *Muxer) runFFmpeg(ctx context.Context, stage string, args []string) error {
	full := append([]string{"-loglevel", "error", "-y"}, args...)
	_, stderr, err := m.runner(ctx, m.binary, full)
	if err != nil {
		if muxErr, ok := err.(*MuxerError); ok {
			return muxErr
		}
		return &MuxerError{Stage: stage, Stderr: stderr, Err: err}
	}
	return nil
}

// runCut muxes a boundary audio/video pair and trims it. Trimming at the
// start seeks the inputs; trimming at the end bounds the output by the
// probed input duration minus the cut.
func (m *Muxer) runCut(ctx context.Context, s CutStep) error {
	if s.CutStartMS == 0 && s.CutEndMS == 0 {
		var args []string
		if s.VideoInput != "" {
			args = append(args, "-i", s.VideoInput)
		}
		if s.AudioInput != "" {
			args = append(args, "-i", s.AudioInput)
		}
		args = append(args, "-c", "copy", s.Output)
		return m.runFFmpeg(ctx, "cut", args)
	}

	var inputArgs, codecArgs []string

	if s.VideoInput != "" {
		cutArgs, err := m.cutInputArgs(ctx, s.VideoInput, s.CutStartMS, s.CutEndMS)
		if err != nil {
			return err
		}
		inputArgs = append(inputArgs, cutArgs...)

		// Cutting lands mid-GOP, so the video has to be re-encoded.
		codec, err := m.prober.CodecName(ctx, s.VideoInput)
		if err != nil {
			return err
		}
		settings, err := encodingSettingsFor(codec)
		if err != nil {
			return err
		}
		codecArgs = append(codecArgs, "-c:v")
		codecArgs = append(codecArgs, strings.Fields(settings)...)
	}

	if s.AudioInput != "" {
		cutArgs, err := m.cutInputArgs(ctx, s.AudioInput, s.CutStartMS, s.CutEndMS)
		if err != nil {
			return err
		}
		inputArgs = append(inputArgs, cutArgs...)
		codecArgs = append(codecArgs, "-c:a", "copy")
	}

	args := append(inputArgs, codecArgs...)
	args = append(args, s.Output)
	return m.runFFmpeg(ctx, "cut", args)
}

func (m *Muxer) cutInputArgs(ctx context.Context, input string, cutStartMS, cutEndMS int64) ([]string, error) {
	switch {
	case cutStartMS > 0:
		return []string{"-ss", fmt.Sprintf("%dms", cutStartMS), "-i", input}, nil
	case cutEndMS > 0:
		duration, err := m.prober.Duration(ctx, input)
		if err != nil {
			return nil, err
		}
		endPosMS := int64(duration*1000+0.5) - cutEndMS
		return []string{"-i", input, "-to", fmt.Sprintf("%dms", endPosMS)}, nil
	default:
		return []string{"-i", input}, nil
	}
}

func encodingSettingsFor(codec string) (string, error) {
	envKey := fmt.Sprintf("YTREWIND_%s_ENCODING_SETTINGS", strings.ToUpper(codec))
	if settings := os.Getenv(envKey); settings != "" {
		return settings, nil
	}
	if settings, ok := videoEncodingSettings[codec]; ok {
		return settings, nil
	}
	return "", fmt.Errorf("no encoding settings are available for %q video codec", codec)
}

func (m *Muxer) runConcat(ctx context.Context, s ConcatStep) error {
	var args []string

	if len(s.VideoInputs) > 0 {
		listPath, err := m.writeConcatFile(s.VideoInputs, "video")
		if err != nil {
			return err
		}
		defer os.Remove(listPath)
		args = append(args, "-safe", "0", "-f", "concat", "-i", listPath)
	}
	if len(s.AudioInputs) > 0 {
		listPath, err := m.writeConcatFile(s.AudioInputs, "audio")
		if err != nil {
			return err
		}
		defer os.Remove(listPath)
		args = append(args, "-safe", "0", "-f", "concat", "-i", listPath)
	}

	args = append(args, "-c", "copy", s.Output)
	return m.runFFmpeg(ctx, "concat", args)
}

func (m *Muxer) runMerge(ctx context.Context, s MergeStep) error {
	if len(s.Inputs) == 1 {
		return m.runFFmpeg(ctx, "merge", []string{"-i", s.Inputs[0], "-c", "copy", s.Output})
	}

	listPath, err := m.writeConcatFile(s.Inputs, "parts")
	if err != nil {
		return err
	}
	defer os.Remove(listPath)

	args := []string{"-safe", "0", "-f", "concat", "-i", listPath, "-c", "copy", s.Output}
	return m.runFFmpeg(ctx, "merge", args)
}

// writeConcatFile composes a concat-demuxer list file in the temp
// directory.
func (m *Muxer) writeConcatFile(paths []string, suffix string) (string, error) {
	f, err := os.CreateTemp(m.tempDir, "concat_"+suffix+"*")
	if err != nil {
		return "", fmt.Errorf("creating concat file: %w", err)
	}
	defer f.Close()

	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if _, err := fmt.Fprintf(f, "file '%s'\n", abs); err != nil {
			return "", fmt.Errorf("writing concat file: %w", err)
		}
	}
	return f.Name(), nil
}

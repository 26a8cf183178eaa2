package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingRunner records every invocation and replies from a canned
// table keyed by a substring of the argv.
type recordingRunner struct {
	invocations [][]string
	stdout      map[string]string // keyed by "-show_entries" value
	failWith    error
	stderr      string
}

func (r *recordingRunner) run(_ context.Context, name string, args []string) (string, string, error) {
	r.invocations = append(r.invocations, append([]string{name}, args...))
	if r.failWith != nil {
		return "", r.stderr, r.failWith
	}
	for i, arg := range args {
		if arg == "-show_entries" && i+1 < len(args) {
			return r.stdout[args[i+1]], "", nil
		}
	}
	return "", "", nil
}

func newTestMuxer(t *testing.T, runner *recordingRunner) *Muxer {
	t.Helper()
	m := NewMuxer("ffmpeg", "ffprobe", t.TempDir())
	m.runner = runner.run
	m.prober.runner = runner.run
	return m
}

func argvContains(argv []string, subsequence ...string) bool {
	joined := " " + strings.Join(argv, " ") + " "
	return strings.Contains(joined, " "+strings.Join(subsequence, " ")+" ")
}

func TestCutStepNoCutsIsPlainCopy(t *testing.T) {
	runner := &recordingRunner{}
	m := newTestMuxer(t, runner)

	err := m.Execute(context.Background(), MuxPlan{Steps: []Step{
		CutStep{AudioInput: "a.mp4", VideoInput: "v.mp4", Output: "out.mkv"},
	}})
	require.NoError(t, err)

	require.Len(t, runner.invocations, 1)
	argv := runner.invocations[0]
	assert.True(t, argvContains(argv, "-i", "v.mp4", "-i", "a.mp4", "-c", "copy", "out.mkv"), "argv: %v", argv)
}

func TestCutStepCutAtStart(t *testing.T) {
	runner := &recordingRunner{stdout: map[string]string{
		"stream=codec_name": "vp9",
	}}
	m := newTestMuxer(t, runner)

	err := m.Execute(context.Background(), MuxPlan{Steps: []Step{
		CutStep{AudioInput: "a.webm", VideoInput: "v.webm", Output: "out.mkv", CutStartMS: 509},
	}})
	require.NoError(t, err)

	// One probe (codec name) and one ffmpeg run.
	require.Len(t, runner.invocations, 2)
	argv := runner.invocations[1]
	assert.True(t, argvContains(argv, "-ss", "509ms", "-i", "v.webm"), "argv: %v", argv)
	assert.True(t, argvContains(argv, "-ss", "509ms", "-i", "a.webm"), "argv: %v", argv)
	assert.True(t, argvContains(argv, "-c:v", "libvpx-vp9"), "argv: %v", argv)
	assert.True(t, argvContains(argv, "-c:a", "copy"), "argv: %v", argv)
}

func TestCutStepCutAtEndUsesProbedDuration(t *testing.T) {
	runner := &recordingRunner{stdout: map[string]string{
		"stream=codec_name": "h264",
		"format=duration":   "2.002000",
	}}
	m := newTestMuxer(t, runner)

	err := m.Execute(context.Background(), MuxPlan{Steps: []Step{
		CutStep{VideoInput: "v.mp4", Output: "out.mp4", CutEndMS: 500},
	}})
	require.NoError(t, err)

	last := runner.invocations[len(runner.invocations)-1]
	// 2002ms - 500ms = 1502ms
	assert.True(t, argvContains(last, "-i", "v.mp4", "-to", "1502ms"), "argv: %v", last)
	assert.True(t, argvContains(last, "-c:v", "libx264"), "argv: %v", last)
}

func TestCutStepEncodingSettingsEnvOverride(t *testing.T) {
	t.Setenv("YTREWIND_H264_ENCODING_SETTINGS", "libx264 -crf 23")

	runner := &recordingRunner{stdout: map[string]string{
		"stream=codec_name": "h264",
	}}
	m := newTestMuxer(t, runner)

	err := m.Execute(context.Background(), MuxPlan{Steps: []Step{
		CutStep{VideoInput: "v.mp4", Output: "out.mp4", CutStartMS: 100},
	}})
	require.NoError(t, err)

	last := runner.invocations[len(runner.invocations)-1]
	assert.True(t, argvContains(last, "-c:v", "libx264", "-crf", "23"), "argv: %v", last)
}

func TestCutStepUnknownCodecFails(t *testing.T) {
	runner := &recordingRunner{stdout: map[string]string{
		"stream=codec_name": "theora",
	}}
	m := newTestMuxer(t, runner)

	err := m.Execute(context.Background(), MuxPlan{Steps: []Step{
		CutStep{VideoInput: "v.ogv", Output: "out.ogv", CutStartMS: 100},
	}})
	assert.Error(t, err)
}

func TestConcatStepWritesListFiles(t *testing.T) {
	runner := &recordingRunner{}
	m := newTestMuxer(t, runner)

	err := m.Execute(context.Background(), MuxPlan{Steps: []Step{
		ConcatStep{
			AudioInputs: []string{"1.mp4", "2.mp4"},
			VideoInputs: []string{"1.webm", "2.webm"},
			Output:      "middle.mkv",
		},
	}})
	require.NoError(t, err)

	require.Len(t, runner.invocations, 1)
	argv := runner.invocations[0]
	assert.Equal(t, 2, strings.Count(strings.Join(argv, " "), "-f concat"), "argv: %v", argv)
	assert.True(t, argvContains(argv, "-c", "copy", "middle.mkv"), "argv: %v", argv)
}

func TestMergeStepSingleInput(t *testing.T) {
	runner := &recordingRunner{}
	m := newTestMuxer(t, runner)

	err := m.Execute(context.Background(), MuxPlan{Steps: []Step{
		MergeStep{Inputs: []string{"part.mkv"}, Output: "final.mkv"},
	}})
	require.NoError(t, err)

	argv := runner.invocations[0]
	assert.True(t, argvContains(argv, "-i", "part.mkv", "-c", "copy", "final.mkv"), "argv: %v", argv)
}

func TestExecuteFailureRemovesStageOutput(t *testing.T) {
	output := t.TempDir() + "/out.mkv"
	require.NoError(t, os.WriteFile(output, []byte("half-written"), 0o644))

	runner := &recordingRunner{failWith: errors.New("exit status 1"), stderr: "boom"}
	m := newTestMuxer(t, runner)

	err := m.Execute(context.Background(), MuxPlan{Steps: []Step{
		CutStep{AudioInput: "a.mp4", Output: output},
	}})

	var muxErr *MuxerError
	require.ErrorAs(t, err, &muxErr)
	assert.Contains(t, muxErr.Stderr, "boom")

	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr))
}

func TestPlanHelpers(t *testing.T) {
	plan := MuxPlan{Steps: []Step{
		CutStep{Output: "a"},
		ConcatStep{Output: "b"},
		MergeStep{Output: "final"},
	}}

	assert.Equal(t, "final", plan.FinalOutput())
	assert.Equal(t, []string{"a", "b"}, plan.Intermediates())

	empty := MuxPlan{}
	assert.Equal(t, "", empty.FinalOutput())
	assert.Nil(t, empty.Intermediates())
}

func TestMuxerErrorMessage(t *testing.T) {
	err := &MuxerError{Stage: "concat", Stderr: "Invalid data", Err: fmt.Errorf("exit status 1")}
	assert.Contains(t, err.Error(), "concat")
	assert.Contains(t, err.Error(), "Invalid data")
}

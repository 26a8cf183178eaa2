package excerpt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/ytrewind/internal/ffmpeg"
)

func TestOutputExtension(t *testing.T) {
	assert.Equal(t, ".mkv", OutputExtension([]string{"1.i140.mp4"}, []string{"1.i244.webm"}))
	assert.Equal(t, ".mp4", OutputExtension([]string{"1.i140.mp4"}, nil))
	assert.Equal(t, ".webm", OutputExtension(nil, []string{"1.i244.webm"}))
	assert.Equal(t, "", OutputExtension(nil, nil))
}

func TestBuildPlanNoCuts(t *testing.T) {
	audio := []string{"1.i140.mp4", "2.i140.mp4"}
	video := []string{"1.i244.webm", "2.i244.webm"}

	plan := BuildPlan(audio, video, "out.mkv", "/tmp/scratch", 0, 0)

	require.Len(t, plan.Steps, 1)
	concat, ok := plan.Steps[0].(ffmpeg.ConcatStep)
	require.True(t, ok)
	assert.Equal(t, audio, concat.AudioInputs)
	assert.Equal(t, video, concat.VideoInputs)
	assert.Equal(t, "out.mkv", concat.Output)
}

func TestBuildPlanBoundaries(t *testing.T) {
	paths := func(n int) (audio, video []string) {
		for i := 1; i <= n; i++ {
			audio = append(audio, ffmpegPath(i, "i140.mp4"))
			video = append(video, ffmpegPath(i, "i244.webm"))
		}
		return audio, video
	}

	tests := []struct {
		name      string
		segments  int
		wantKinds []string
	}{
		{name: "single segment", segments: 1, wantKinds: []string{"cut", "merge"}},
		{name: "two segments", segments: 2, wantKinds: []string{"cut", "cut", "merge"}},
		{name: "three segments", segments: 3, wantKinds: []string{"cut", "concat", "cut", "merge"}},
		{name: "many segments", segments: 7, wantKinds: []string{"cut", "concat", "cut", "merge"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			audio, video := paths(tt.segments)
			plan := BuildPlan(audio, video, "out.mkv", "/tmp/scratch", 500, 300)

			assert.Equal(t, tt.wantKinds, stepKinds(plan))
			assert.Equal(t, "out.mkv", plan.FinalOutput())

			// First cut trims the start, last cut trims the end.
			firstCut := plan.Steps[0].(ffmpeg.CutStep)
			assert.Equal(t, int64(500), firstCut.CutStartMS)
			assert.Zero(t, firstCut.CutEndMS)

			if tt.segments > 1 {
				lastCut := plan.Steps[len(plan.Steps)-2].(ffmpeg.CutStep)
				assert.Equal(t, int64(300), lastCut.CutEndMS)
				assert.Zero(t, lastCut.CutStartMS)
			}
		})
	}
}

func TestBuildPlanMiddleExcludesBoundaries(t *testing.T) {
	audio := []string{"1.a", "2.a", "3.a", "4.a"}
	plan := BuildPlan(audio, nil, "out.mp4", "/tmp/scratch", 100, 100)

	concat := plan.Steps[1].(ffmpeg.ConcatStep)
	assert.Equal(t, []string{"2.a", "3.a"}, concat.AudioInputs)
	assert.Empty(t, concat.VideoInputs)
}

func ffmpegPath(i int, suffix string) string {
	return "/scratch/segments/" + string(rune('0'+i)) + "." + suffix
}

func stepKinds(plan ffmpeg.MuxPlan) []string {
	var kinds []string
	for _, step := range plan.Steps {
		switch step.(type) {
		case ffmpeg.CutStep:
			kinds = append(kinds, "cut")
		case ffmpeg.ConcatStep:
			kinds = append(kinds, "concat")
		case ffmpeg.MergeStep:
			kinds = append(kinds, "merge")
		}
	}
	return kinds
}

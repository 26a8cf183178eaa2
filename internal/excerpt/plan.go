package excerpt

import (
	"path/filepath"

	"github.com/jmylchreest/ytrewind/internal/ffmpeg"
)

// OutputExtension picks the merged container suffix: ".mkv" when both
// audio and video are present, otherwise the suffix of the dominant
// stream's segments.
func OutputExtension(audioPaths, videoPaths []string) string {
	switch {
	case len(audioPaths) > 0 && len(videoPaths) > 0:
		return ".mkv"
	case len(audioPaths) > 0:
		return filepath.Ext(audioPaths[0])
	case len(videoPaths) > 0:
		return filepath.Ext(videoPaths[0])
	default:
		return ""
	}
}

// BuildPlan composes the mux plan for a downloaded segment range.
//
// Without cuts the whole range concatenates by stream copy straight into
// the output. With cuts, the two boundary segments are muxed and trimmed
// individually and the middle is concatenated by copy; the plan collapses
// when fewer than three segments exist:
//
//	1 segment:   cut(only, cut_start)
//	2 segments:  cut(first, cut_start), cut(last, cut_end)
//	3+ segments: cut(first, cut_start), concat(middle), cut(last, cut_end)
func BuildPlan(audioPaths, videoPaths []string, outputPath, tempDir string, cutStartMS, cutEndMS int64) ffmpeg.MuxPlan {
	ext := OutputExtension(audioPaths, videoPaths)

	if cutStartMS == 0 && cutEndMS == 0 {
		return ffmpeg.MuxPlan{Steps: []ffmpeg.Step{
			ffmpeg.ConcatStep{AudioInputs: audioPaths, VideoInputs: videoPaths, Output: outputPath},
		}}
	}

	first := func(paths []string) string {
		if len(paths) == 0 {
			return ""
		}
		return paths[0]
	}
	last := func(paths []string) string {
		if len(paths) == 0 {
			return ""
		}
		return paths[len(paths)-1]
	}
	part := func(stem string) string {
		return filepath.Join(tempDir, stem+ext)
	}

	count := len(audioPaths)
	if len(videoPaths) > count {
		count = len(videoPaths)
	}

	var steps []ffmpeg.Step
	switch count {
	case 1:
		steps = append(steps, ffmpeg.CutStep{
			AudioInput: first(audioPaths),
			VideoInput: first(videoPaths),
			Output:     part("a.a"),
			CutStartMS: cutStartMS,
		})
		steps = append(steps, ffmpeg.MergeStep{Inputs: []string{part("a.a")}, Output: outputPath})
	case 2:
		steps = append(steps,
			ffmpeg.CutStep{
				AudioInput: first(audioPaths),
				VideoInput: first(videoPaths),
				Output:     part("ab.a"),
				CutStartMS: cutStartMS,
			},
			ffmpeg.CutStep{
				AudioInput: last(audioPaths),
				VideoInput: last(videoPaths),
				Output:     part("ab.b"),
				CutEndMS:   cutEndMS,
			},
			ffmpeg.MergeStep{Inputs: []string{part("ab.a"), part("ab.b")}, Output: outputPath},
		)
	default:
		middle := func(paths []string) []string {
			if len(paths) < 3 {
				return nil
			}
			return paths[1 : len(paths)-1]
		}
		steps = append(steps,
			ffmpeg.CutStep{
				AudioInput: first(audioPaths),
				VideoInput: first(videoPaths),
				Output:     part("abc.a"),
				CutStartMS: cutStartMS,
			},
			ffmpeg.ConcatStep{
				AudioInputs: middle(audioPaths),
				VideoInputs: middle(videoPaths),
				Output:      part("abc.b"),
			},
			ffmpeg.CutStep{
				AudioInput: last(audioPaths),
				VideoInput: last(videoPaths),
				Output:     part("abc.c"),
				CutEndMS:   cutEndMS,
			},
			ffmpeg.MergeStep{
				Inputs: []string{part("abc.a"), part("abc.b"), part("abc.c")},
				Output: outputPath,
			},
		)
	}

	return ffmpeg.MuxPlan{Steps: steps}
}

package format

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jmylchreest/ytrewind/internal/catalog"
)

// knownAttributes is the set of attribute names conditions may reference.
// Referencing anything else fails with UnknownAttributeError; a known
// attribute that a particular representation lacks (e.g. "height" on an
// audio representation) makes the condition false instead.
var knownAttributes = map[string]bool{
	"itag":                true,
	"mime_type":           true,
	"codecs":              true,
	"base_url":            true,
	"type":                true,
	"format":              true,
	"audio_sampling_rate": true,
	"width":               true,
	"height":              true,
	"frame_rate":          true,
	"fps":                 true,
	"quality":             true,
}

// attributeValue looks up a representation attribute by name. The second
// return reports whether the representation carries the attribute.
func attributeValue(r catalog.Representation, name string) (any, bool) {
	switch name {
	case "itag":
		return r.Itag, true
	case "mime_type":
		return r.MimeType, true
	case "codecs":
		return r.Codecs, true
	case "base_url":
		return r.BaseURL, true
	case "type":
		return r.Type(), true
	case "format":
		return r.Format(), true
	case "audio_sampling_rate":
		return float64(r.AudioSamplingRate), r.IsAudio()
	case "width":
		return float64(r.Width), r.IsVideo()
	case "height":
		return float64(r.Height), r.IsVideo()
	case "frame_rate", "fps":
		return float64(r.FrameRate), r.IsVideo()
	case "quality":
		return r.Quality(), r.IsVideo()
	default:
		return nil, false
	}
}

// evalNode evaluates an expression node against a list of
// representations.
func evalNode(n node, items []catalog.Representation, functions map[string]Function) ([]catalog.Representation, error) {
	switch n := n.(type) {
	case allNode:
		return items, nil
	case noneNode:
		return nil, nil
	case *condNode:
		var matched []catalog.Representation
		for _, item := range items {
			ok, err := evalCondExpr(n.root, item)
			if err != nil {
				return nil, err
			}
			if ok {
				matched = append(matched, item)
			}
		}
		return matched, nil
	case *pipeNode:
		left, err := evalNode(n.left, items, functions)
		if err != nil {
			return nil, err
		}
		return evalNode(n.right, left, functions)
	case *fallbackNode:
		left, err := evalNode(n.left, items, functions)
		if err != nil {
			return nil, err
		}
		if len(left) > 0 {
			return left, nil
		}
		return evalNode(n.right, items, functions)
	case *funcNode:
		fn, ok := functions[n.name]
		if !ok {
			return nil, &QuerySyntaxError{Message: fmt.Sprintf("unknown query function %q", n.name)}
		}
		if len(items) == 0 {
			return items, nil
		}
		return fn(items), nil
	default:
		return nil, fmt.Errorf("unsupported expression node: %T", n)
	}
}

// evalCondExpr evaluates a condition tree against one representation.
func evalCondExpr(e condExpr, r catalog.Representation) (bool, error) {
	switch e := e.(type) {
	case *condition:
		return evalCondition(e, r)
	case *condGroup:
		left, err := evalCondExpr(e.left, r)
		if err != nil {
			return false, err
		}
		// No short-circuit on the right side: an unknown attribute is an
		// error regardless of where it appears.
		right, err := evalCondExpr(e.right, r)
		if err != nil {
			return false, err
		}
		if e.op == "and" {
			return left && right, nil
		}
		return left || right, nil
	default:
		return false, fmt.Errorf("unsupported condition node: %T", e)
	}
}

// evalCondition evaluates a single comparison. A missing (but known)
// attribute makes the condition false.
func evalCondition(c *condition, r catalog.Representation) (bool, error) {
	if !knownAttributes[c.attr] {
		return false, &UnknownAttributeError{Attribute: c.attr}
	}

	value, present := attributeValue(r, c.attr)
	if !present {
		return false, nil
	}

	switch v := value.(type) {
	case string:
		return compareString(v, c.op, c.value), nil
	case float64:
		target, err := strconv.ParseFloat(c.value, 64)
		if err != nil {
			// A non-numeric target never matches a numeric attribute.
			return false, nil
		}
		return compareOrdered(compareFloats(v, target), c.op), nil
	case catalog.Quality:
		target, err := catalog.ParseQuality(c.value)
		if err != nil {
			return false, nil
		}
		return compareOrdered(v.Compare(target), c.op), nil
	default:
		return false, fmt.Errorf("unsupported attribute value type: %T", value)
	}
}

func compareString(value, op, target string) bool {
	switch op {
	case "eq":
		return value == target
	case "ne":
		return value != target
	case "contains":
		return strings.Contains(value, target)
	case "lt":
		return value < target
	case "le":
		return value <= target
	case "gt":
		return value > target
	case "ge":
		return value >= target
	default:
		return false
	}
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// compareOrdered maps a three-way comparison result through an operator.
// "contains" on ordered values degrades to equality.
func compareOrdered(cmp int, op string) bool {
	switch op {
	case "eq", "contains":
		return cmp == 0
	case "ne":
		return cmp != 0
	case "lt":
		return cmp < 0
	case "le":
		return cmp <= 0
	case "gt":
		return cmp > 0
	case "ge":
		return cmp >= 0
	default:
		return false
	}
}

// Package format implements the format-spec expression language used to
// select representations from a catalog.
//
// The language supports conditions over representation attributes,
// sequential refinement with "|" (pipe), left-biased fallback with "?:",
// the keywords "all" and "none", query functions such as "best" and
// "worst", and "@name" aliases expanded prior to parsing.
//
// Examples:
//
//	itag eq 140
//	type eq video and [format eq webm or format eq mp4] | best
//	@1080p60 ?: @720p ?: best
package format

import "fmt"

// QuerySyntaxError indicates a malformed format-spec expression.
type QuerySyntaxError struct {
	Message string
	Pos     int
}

func (e *QuerySyntaxError) Error() string {
	return fmt.Sprintf("format spec syntax error at %d: %s", e.Pos, e.Message)
}

// UnknownAttributeError indicates a condition referenced an attribute that
// no representation has.
type UnknownAttributeError struct {
	Attribute string
}

func (e *UnknownAttributeError) Error() string {
	return fmt.Sprintf("unknown attribute in format spec: %q", e.Attribute)
}

// AliasResolutionError indicates an alias could not be expanded, either
// because it is undefined or because expansion is circular.
type AliasResolutionError struct {
	Alias  string
	Reason string
}

func (e *AliasResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve alias %q: %s", e.Alias, e.Reason)
}

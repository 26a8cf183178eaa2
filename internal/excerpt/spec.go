// Package excerpt plans, downloads and post-processes rewind excerpts:
// it fetches the located segment range and drives the external muxer to
// merge and trim the result.
package excerpt

import (
	"fmt"

	"github.com/jmylchreest/ytrewind/internal/catalog"
	"github.com/jmylchreest/ytrewind/internal/format"
)

// EmptyFormatSpecError indicates a format spec selected no
// representation.
type EmptyFormatSpecError struct {
	Spec string
}

func (e *EmptyFormatSpecError) Error() string {
	return fmt.Sprintf("format spec %q selects no representation", e.Spec)
}

// AmbiguousFormatSpecError indicates a format spec selected more than one
// representation.
type AmbiguousFormatSpecError struct {
	Spec  string
	Itags []string
}

func (e *AmbiguousFormatSpecError) Error() string {
	return fmt.Sprintf("format spec %q selects %d representations (itags %v), expected exactly one",
		e.Spec, len(e.Itags), e.Itags)
}

// ResolveSpec selects exactly one representation of the given type
// ("audio" or "video") from the catalog by a format spec.
func ResolveSpec(c *catalog.Catalog, spec, mediaType string, opts format.Options) (catalog.Representation, error) {
	typed := c.Filter(func(r catalog.Representation) bool { return r.Type() == mediaType })

	queried, err := format.Query(typed, spec, opts)
	if err != nil {
		return catalog.Representation{}, err
	}

	switch len(queried) {
	case 0:
		return catalog.Representation{}, &EmptyFormatSpecError{Spec: spec}
	case 1:
		return queried[0], nil
	default:
		itags := make([]string, 0, len(queried))
		for _, r := range queried {
			itags = append(itags, r.Itag)
		}
		return catalog.Representation{}, &AmbiguousFormatSpecError{Spec: spec, Itags: itags}
	}
}

package format

import (
	"github.com/jmylchreest/ytrewind/internal/catalog"
)

// Options customizes query evaluation.
type Options struct {
	// Aliases extends the built-in "@name" alias table.
	Aliases map[string]string
	// Functions extends the built-in query function table (best, worst).
	Functions map[string]Function
}

// Query selects representations from a catalog by a format-spec
// expression.
func Query(c *catalog.Catalog, spec string, opts Options) ([]catalog.Representation, error) {
	return QueryList(c.All(), spec, opts)
}

// QueryList selects representations from a list by a format-spec
// expression.
func QueryList(items []catalog.Representation, spec string, opts Options) ([]catalog.Representation, error) {
	expanded, err := ExpandAliases(spec, opts.Aliases)
	if err != nil {
		return nil, err
	}

	tokens, err := newLexer(expanded).tokenize()
	if err != nil {
		return nil, err
	}

	root, err := newParser(tokens).parse()
	if err != nil {
		return nil, err
	}

	functions := make(map[string]Function, len(builtinFunctions)+len(opts.Functions))
	for name, fn := range builtinFunctions {
		functions[name] = fn
	}
	for name, fn := range opts.Functions {
		functions[name] = fn
	}

	return evalNode(root, items, functions)
}

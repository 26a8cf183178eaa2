package format

import (
	"fmt"
	"regexp"
	"strings"
)

// aliasPattern matches "@name" tokens prior to parsing.
var aliasPattern = regexp.MustCompile(`@([\w][\w\-]*)`)

var (
	itagAliasPattern    = regexp.MustCompile(`^\d+$`)
	qualityAliasPattern = regexp.MustCompile(`^(\d+)p(\d+)?$`)
)

// maxAliasDepth bounds recursive alias expansion; deeper chains are
// treated as circular.
const maxAliasDepth = 16

// builtinAliases is the static alias table. User aliases from the
// configuration are layered on top and may shadow these.
var builtinAliases = map[string]string{
	"mp4":  "format eq mp4",
	"webm": "format eq webm",
}

// ExpandAliases rewrites "@name" tokens in a format spec.
//
// Static aliases come from the built-in table plus the supplied user
// table. Two dynamic forms are recognized: "@<itag>" (all digits) expands
// to an itag condition, and "@<height>p[<fps>]" expands to a quality
// condition. Aliases may reference other aliases; circular references
// fail with AliasResolutionError. Expansion is idempotent: once no "@"
// token remains, the spec passes through unchanged.
func ExpandAliases(spec string, userAliases map[string]string) (string, error) {
	expanded := spec
	for depth := 0; strings.Contains(expanded, "@"); depth++ {
		if depth >= maxAliasDepth {
			return "", &AliasResolutionError{Alias: spec, Reason: "circular alias reference"}
		}

		var expandErr error
		expanded = aliasPattern.ReplaceAllStringFunc(expanded, func(match string) string {
			name := match[1:]
			replacement, err := resolveAlias(name, userAliases)
			if err != nil && expandErr == nil {
				expandErr = err
			}
			if err != nil {
				return match
			}
			return replacement
		})
		if expandErr != nil {
			return "", expandErr
		}

		// A stray "@" not followed by an alias name never resolves.
		if !aliasPattern.MatchString(expanded) && strings.Contains(expanded, "@") {
			return "", &AliasResolutionError{Alias: expanded, Reason: "malformed alias token"}
		}
	}
	return expanded, nil
}

func resolveAlias(name string, userAliases map[string]string) (string, error) {
	if replacement, ok := userAliases[name]; ok {
		return replacement, nil
	}
	if replacement, ok := builtinAliases[name]; ok {
		return replacement, nil
	}
	if itagAliasPattern.MatchString(name) {
		return fmt.Sprintf("itag eq %s", name), nil
	}
	if m := qualityAliasPattern.FindStringSubmatch(name); m != nil {
		frameRate := m[2]
		if frameRate == "" {
			frameRate = "30"
		}
		return fmt.Sprintf("height eq %s and frame_rate eq %s", m[1], frameRate), nil
	}
	return "", &AliasResolutionError{Alias: name, Reason: "undefined alias"}
}

// Package language defines the per-language rules srcmerge needs: which
// files are relevant and which lines are imports. Profiles are stateless and
// selected once at startup.
package language

import (
	"fmt"
	"sort"
	"strings"
)

// Profile is the minimal capability every supported language provides.
type Profile interface {
	// Extension returns the relevant file extension including the dot.
	Extension() string
	// IsImportLine reports whether line is an import/include statement.
	IsImportLine(line string) bool
}

// Rewrite replaces a declaration prefix carrying a public qualifier with the
// bare declaration keywords.
type Rewrite struct {
	From string
	To   string
}

// Dialect is implemented by profiles that also describe their package
// declaration and visibility rewrites. The transformer falls back to Java's
// rules for profiles that do not implement it.
type Dialect interface {
	PackageKeyword() string
	StatementTerminator() string
	VisibilityRewrites() []Rewrite
}

// IsRelevant reports whether path carries p's extension.
func IsRelevant(p Profile, path string) bool {
	return strings.HasSuffix(path, p.Extension())
}

var profiles = map[string]Profile{
	"java":   Java{},
	"kotlin": Kotlin{},
}

// Lookup returns the profile registered under name.
func Lookup(name string) (Profile, error) {
	p, ok := profiles[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown language profile %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return p, nil
}

// Names lists the registered profile names in sorted order.
func Names() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DialectOf returns p's dialect, defaulting to Java's rules.
func DialectOf(p Profile) Dialect {
	if d, ok := p.(Dialect); ok {
		return d
	}
	return Java{}
}

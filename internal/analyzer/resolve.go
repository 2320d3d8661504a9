package analyzer

import (
	"path"
	"sort"
	"strings"
)

// Candidate is a repository file that one or more references resolve to.
type Candidate struct {
	Path string
	// Direct means the reference names the file itself (an import path or
	// a type whose file shares its name). Indirect candidates are siblings
	// of direct hits.
	Direct bool
}

// Priority ranks a candidate; lower sorts first. The default ranks
// direct candidates ahead of indirect ones.
type Priority func(Candidate) int

// DefaultPriority orders direct candidates before indirect ones.
func DefaultPriority(c Candidate) int {
	if c.Direct {
		return 0
	}
	return 1
}

// Resolve maps references from sourcePath against the tracked file list
// and returns candidate paths best-first. The source file itself is
// never a candidate. A nil prio falls back to DefaultPriority.
func Resolve(refs []Reference, sourcePath string, tracked []string, prio Priority) []string {
	if prio == nil {
		prio = DefaultPriority
	}

	byPath := make(map[string]Candidate)
	add := func(p string, direct bool) {
		if p == sourcePath {
			return
		}
		existing, ok := byPath[p]
		if !ok || (direct && !existing.Direct) {
			byPath[p] = Candidate{Path: p, Direct: direct}
		}
	}

	for _, ref := range refs {
		switch ref.Kind {
		case RefImport:
			for _, p := range resolveImport(ref.Symbol, sourcePath, tracked) {
				add(p, true)
			}
		case RefSupertype:
			direct, indirect := resolveSymbol(ref.Symbol, tracked)
			for _, p := range direct {
				add(p, true)
			}
			for _, p := range indirect {
				add(p, false)
			}
		}
	}

	candidates := make([]Candidate, 0, len(byPath))
	for _, c := range byPath {
		candidates = append(candidates, c)
	}
	sort.Slice(candidates, func(i, j int) bool {
		pi, pj := prio(candidates[i]), prio(candidates[j])
		if pi != pj {
			return pi < pj
		}
		return candidates[i].Path < candidates[j].Path
	})

	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.Path
	}
	return out
}

// resolveImport matches an import specifier against tracked files.
// Handles relative JS/TS imports, dotted Python modules, and Go
// package paths.
func resolveImport(symbol, sourcePath string, tracked []string) []string {
	var matches []string

	switch {
	case strings.HasPrefix(symbol, "."):
		// Relative JS/TS import: ./foo or ../lib/bar, extension optional.
		target := path.Clean(path.Join(path.Dir(sourcePath), symbol))
		for _, t := range tracked {
			if t == target || matchesModuleFile(t, target) {
				matches = append(matches, t)
			}
		}
	case strings.Contains(symbol, "/"):
		// Go import path or bare JS module path: match the trailing
		// directory segments against tracked directories.
		for _, t := range tracked {
			dir := path.Dir(t)
			if dir == symbol || strings.HasSuffix(dir, "/"+symbol) {
				matches = append(matches, t)
			}
		}
	case strings.Contains(symbol, "."):
		// Dotted Python module: a.b.c -> a/b/c.py or a/b/c/__init__.py.
		rel := strings.ReplaceAll(symbol, ".", "/")
		for _, t := range tracked {
			if matchesPythonModule(t, rel) {
				matches = append(matches, t)
			}
		}
	default:
		// Single-segment module name.
		for _, t := range tracked {
			if matchesModuleFile(t, symbol) || matchesPythonModule(t, symbol) {
				matches = append(matches, t)
			}
		}
	}

	return matches
}

func matchesModuleFile(tracked, target string) bool {
	for _, ext := range []string{".ts", ".tsx", ".js", ".jsx", ".mjs"} {
		if tracked == target+ext {
			return true
		}
	}
	return tracked == target+"/index.ts" || tracked == target+"/index.js"
}

func matchesPythonModule(tracked, rel string) bool {
	return tracked == rel+".py" ||
		strings.HasSuffix(tracked, "/"+rel+".py") ||
		tracked == rel+"/__init__.py" ||
		strings.HasSuffix(tracked, "/"+rel+"/__init__.py")
}

// resolveSymbol matches a type name against file base names. Exact base
// name matches are direct; files merely containing the name are
// indirect.
func resolveSymbol(symbol string, tracked []string) (direct, indirect []string) {
	lower := strings.ToLower(symbol)
	snake := toSnake(symbol)
	if lower == "" {
		return nil, nil
	}

	for _, t := range tracked {
		base := strings.ToLower(strings.TrimSuffix(path.Base(t), path.Ext(t)))
		switch {
		case base == lower || base == snake:
			direct = append(direct, t)
		case strings.Contains(base, lower) || strings.Contains(base, snake):
			indirect = append(indirect, t)
		}
	}
	return direct, indirect
}

// toSnake converts CamelCase to snake_case for matching file naming
// conventions: "BaseHandler" -> "base_handler".
func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

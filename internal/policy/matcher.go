package policy

import (
	"log/slog"

	"github.com/gobwas/glob"

	"github.com/sevigo/boxedbot/internal/core"
)

// Matcher evaluates a policy's include and exclude globs against file
// paths. Patterns are compiled once per job; invalid patterns are dropped.
// Globs are matched against the full path with no separator specialness,
// so "*.py" matches files at any depth and "vendor/**" matches the whole
// subtree.
type Matcher struct {
	include []glob.Glob
	exclude []glob.Glob
}

// NewMatcher compiles the policy's glob lists.
func NewMatcher(policy *core.RepoPolicy, logger *slog.Logger) *Matcher {
	return &Matcher{
		include: compileAll(policy.Include, logger),
		exclude: compileAll(policy.Exclude, logger),
	}
}

// Match reports whether the path should be analyzed. Exclude wins on
// overlap; an empty include list matches everything.
func (m *Matcher) Match(path string) bool {
	for _, g := range m.exclude {
		if g.Match(path) {
			return false
		}
	}
	if len(m.include) == 0 {
		return true
	}
	for _, g := range m.include {
		if g.Match(path) {
			return true
		}
	}
	return false
}

func compileAll(patterns []string, logger *slog.Logger) []glob.Glob {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			logger.Warn("invalid glob pattern dropped", "pattern", p, "error", err)
			continue
		}
		globs = append(globs, g)
	}
	return globs
}

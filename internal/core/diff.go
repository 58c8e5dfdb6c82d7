package core

// FileDiff holds the per-file change data for a single file in a pull
// request. Diffs are owned by the job that fetched them and deduplicated
// by path.
type FileDiff struct {
	Path      string
	Additions int
	Deletions int
	Changes   int
	Patch     string

	// SkipTooLarge marks files above the size guard. They are excluded
	// from AI analysis but still counted in the review summary.
	SkipTooLarge bool
}

// Analyzable reports whether the file carries a patch the AI provider
// can reason about. Binary files arrive without a patch.
func (d FileDiff) Analyzable() bool {
	return !d.SkipTooLarge && d.Patch != ""
}

// DedupFileDiffs collapses duplicate paths, keeping the last entry for
// each. The host API occasionally reports a renamed file twice.
func DedupFileDiffs(diffs []FileDiff) []FileDiff {
	seen := make(map[string]int, len(diffs))
	out := make([]FileDiff, 0, len(diffs))
	for _, d := range diffs {
		if i, ok := seen[d.Path]; ok {
			out[i] = d
			continue
		}
		seen[d.Path] = len(out)
		out = append(out, d)
	}
	return out
}

// TotalChanges sums changed lines across all diffs. The result drives
// model tier selection.
func TotalChanges(diffs []FileDiff) int {
	total := 0
	for _, d := range diffs {
		total += d.Changes
	}
	return total
}

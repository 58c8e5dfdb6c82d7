package core

// ReviewLevel controls how strict the AI reviewer is asked to be.
type ReviewLevel string

const (
	ReviewLevelMinimal  ReviewLevel = "minimal"
	ReviewLevelStandard ReviewLevel = "standard"
	ReviewLevelStrict   ReviewLevel = "strict"
)

// Valid reports whether the level is one of the closed enum values.
func (l ReviewLevel) Valid() bool {
	switch l {
	case ReviewLevelMinimal, ReviewLevelStandard, ReviewLevelStrict:
		return true
	}
	return false
}

// ValidFocusAreas is the closed set of focus areas a repository policy may
// request. Unknown areas are dropped during resolution, not rejected.
var ValidFocusAreas = map[string]bool{
	"security":        true,
	"performance":     true,
	"maintainability": true,
	"style":           true,
	"testing":         true,
}

// RepoPolicy is the effective per-repository configuration governing which
// files are analyzed and how strictly. Resolution always yields a valid
// policy: invalid fields in the repository's policy document fall back to
// the defaults below individually.
type RepoPolicy struct {
	Enabled          bool
	Include          []string
	Exclude          []string
	ReviewLevel      ReviewLevel
	FocusAreas       []string
	MaxCommentsPerPR int
	SkipDraftPRs     bool
	ModelOverride    string
}

// DefaultRepoPolicy returns the compiled-in policy used when a repository
// carries no policy document, and as the per-field fallback when it does.
func DefaultRepoPolicy() *RepoPolicy {
	return &RepoPolicy{
		Enabled: true,
		Include: []string{
			"*.py", "*.js", "*.ts", "*.jsx", "*.tsx", "*.go", "*.rs",
			"*.java", "*.c", "*.cpp", "*.h", "*.hpp", "*.cs", "*.php",
		},
		Exclude: []string{
			"node_modules/**", "*.min.js", "__pycache__/**", "dist/**",
			"build/**", "vendor/**", "*.generated.*", "migrations/**",
		},
		ReviewLevel:      ReviewLevelStandard,
		FocusAreas:       []string{"security", "performance", "maintainability"},
		MaxCommentsPerPR: 20,
		SkipDraftPRs:     true,
	}
}

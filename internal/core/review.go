package core

// Outcome is the terminal state of one analysis job. Every job ends in
// exactly one of these tags.
type Outcome string

const (
	OutcomeCompleted          Outcome = "completed"
	OutcomeCompletedWithSkips Outcome = "completed-with-skips"
	OutcomeSkippedDuplicate   Outcome = "skipped-duplicate"
	OutcomeSkippedNoMatch     Outcome = "skipped-no-match"
	OutcomeSkippedTimeout     Outcome = "skipped-timeout"
	OutcomeFailed             Outcome = "failed"
)

// ReviewComment is one positioned comment inside a review submission.
// Line zero means the comment is file-level rather than line-anchored.
type ReviewComment struct {
	Path string
	Line int
	Body string
}

// ReviewSubmission is the composed, ordered and truncated review for one
// (repository, PR, head SHA). The head SHA doubles as the idempotency key:
// a review is posted at most once per key.
type ReviewSubmission struct {
	HeadSHA  string
	Summary  string
	Comments []ReviewComment

	// Truncated counts findings dropped by the max-comments cap;
	// SkippedFiles counts files excluded from analysis (too large, AI
	// failure). Both are reported in the summary.
	Truncated    int
	SkippedFiles int
}

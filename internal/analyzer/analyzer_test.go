package analyzer

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sevigo/boxedbot/internal/config"
	"github.com/sevigo/boxedbot/internal/core"
	"github.com/sevigo/boxedbot/internal/llm"
	"github.com/sevigo/boxedbot/mocks"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testConfig() *config.Config {
	return &config.Config{
		ModelSmall:          "gpt-4o-mini",
		ModelLarge:          "gpt-4o",
		SmallPRThreshold:    100,
		LargePRThreshold:    500,
		OpenAITimeout:       time.Second,
		AnalysisConcurrency: 3,
	}
}

func newTestAnalyzer(t *testing.T, provider llm.Provider) *Analyzer {
	t.Helper()
	prompts, err := llm.NewPromptBuilder()
	require.NoError(t, err)
	return New(testConfig(), provider, prompts, discardLogger())
}

func pyDiff(path string) core.FileDiff {
	return core.FileDiff{
		Path:      path,
		Additions: 2,
		Changes:   2,
		Patch:     "@@ -1,3 +1,5 @@\n+added\n+more",
	}
}

func TestFilter(t *testing.T) {
	a := newTestAnalyzer(t, nil)
	pol := core.DefaultRepoPolicy()
	pol.Include = []string{"*.py"}
	pol.Exclude = []string{"generated/**"}

	diffs := []core.FileDiff{
		pyDiff("app.py"),
		pyDiff("generated/schema.py"),
		{Path: "README.md", Patch: "@@ -1 +1 @@"},
		{Path: "big.py", Changes: 9000, Patch: "@@ -1 +1 @@", SkipTooLarge: true},
		{Path: "image.py"},
	}

	files, unanalyzable := a.Filter(diffs, pol)

	require.Len(t, files, 1)
	assert.Equal(t, "app.py", files[0].Path)
	assert.Equal(t, 2, unanalyzable, "too-large and patchless files that matched still count")
}

func TestAnalyze_CollectsFindings(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().
		Complete(gomock.Any(), "gpt-4o-mini", gomock.Any()).
		Return(`[{"line": 2, "type": "warning", "message": "check this"}]`, nil)

	a := newTestAnalyzer(t, provider)
	result := a.Analyze(context.Background(), &core.PullRequestContext{}, []core.FileDiff{pyDiff("app.py")}, core.DefaultRepoPolicy(), 50)

	assert.Equal(t, 1, result.Analyzed)
	assert.Equal(t, 0, result.Failed)
	require.Len(t, result.Findings, 1)
	assert.Equal(t, "app.py", result.Findings[0].Path)
	assert.Equal(t, core.SeverityWarning, result.Findings[0].Severity)
}

func TestAnalyze_PerFileFailuresDoNotAbortOthers(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().
		Complete(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, prompt string) (string, error) {
			if !strings.Contains(prompt, "good.py") {
				return "", errors.New("provider unavailable")
			}
			return `[{"line": 2, "type": "error", "message": "found it"}]`, nil
		}).Times(3)

	a := newTestAnalyzer(t, provider)
	files := []core.FileDiff{pyDiff("bad1.py"), pyDiff("good.py"), pyDiff("bad2.py")}
	result := a.Analyze(context.Background(), &core.PullRequestContext{}, files, core.DefaultRepoPolicy(), 50)

	assert.Equal(t, 1, result.Analyzed)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Findings, 1)
	assert.Equal(t, "good.py", result.Findings[0].Path)
}

func TestAnalyze_ModelTierFollowsTotalChanges(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().
		Complete(gomock.Any(), "gpt-4o", gomock.Any()).
		Return("[]", nil)

	a := newTestAnalyzer(t, provider)
	a.Analyze(context.Background(), &core.PullRequestContext{}, []core.FileDiff{pyDiff("app.py")}, core.DefaultRepoPolicy(), 800)
}

func TestAnalyze_BoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32

	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().
		Complete(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, string, string) (string, error) {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			inFlight.Add(-1)
			return "[]", nil
		}).Times(8)

	cfg := testConfig()
	cfg.AnalysisConcurrency = 2
	prompts, err := llm.NewPromptBuilder()
	require.NoError(t, err)
	a := New(cfg, provider, prompts, discardLogger())

	var files []core.FileDiff
	for _, name := range []string{"a.py", "b.py", "c.py", "d.py", "e.py", "f.py", "g.py", "h.py"} {
		files = append(files, pyDiff(name))
	}
	a.Analyze(context.Background(), &core.PullRequestContext{}, files, core.DefaultRepoPolicy(), 50)

	assert.LessOrEqual(t, peak.Load(), int32(2), "fan-out must respect the concurrency cap")
}

func TestAnalyze_TimedOutFilesCountAsFailed(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().
		Complete(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _, prompt string) (string, error) {
			if strings.Contains(prompt, "slow") {
				<-ctx.Done()
				return "", ctx.Err()
			}
			return `[{"line": 2, "type": "warning", "message": "quick result"}]`, nil
		}).Times(3)

	cfg := testConfig()
	cfg.OpenAITimeout = 50 * time.Millisecond
	prompts, err := llm.NewPromptBuilder()
	require.NoError(t, err)
	a := New(cfg, provider, prompts, discardLogger())

	files := []core.FileDiff{pyDiff("slow1.py"), pyDiff("fast.py"), pyDiff("slow2.py")}
	result := a.Analyze(context.Background(), &core.PullRequestContext{}, files, core.DefaultRepoPolicy(), 50)

	assert.Equal(t, 1, result.Analyzed)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Findings, 1)
	assert.Equal(t, "fast.py", result.Findings[0].Path)
}


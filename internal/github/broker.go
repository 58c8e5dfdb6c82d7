package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v73/github"
	"golang.org/x/sync/singleflight"

	"github.com/sevigo/boxedbot/internal/config"
	"github.com/sevigo/boxedbot/internal/retry"
)

// expiryMargin is how long before expiry a cached token is considered
// stale. One minute of slack covers clock skew and in-flight requests.
const expiryMargin = time.Minute

// exchangeFunc swaps a signed App assertion for an installation token.
// Factored out so broker tests can run without the GitHub App API.
type exchangeFunc func(ctx context.Context, installationID int64) (string, time.Time, error)

type cachedToken struct {
	token  string
	expiry time.Time
}

// TokenBroker mints and caches installation-scoped tokens. One token is
// cached per installation id; refresh is single-flight, so concurrent jobs
// for the same installation share one exchange instead of issuing
// duplicates. The broker is the only mutable state shared between jobs.
type TokenBroker struct {
	exchange exchangeFunc
	policy   retry.Policy
	logger   *slog.Logger

	mu    sync.RWMutex
	cache map[int64]cachedToken
	group singleflight.Group
}

// NewTokenBroker builds the broker from the App's signing key. An unreadable
// or invalid key is returned as an error, which fails process startup: a
// broker that cannot sign assertions can never produce a token.
func NewTokenBroker(cfg *config.Config, logger *slog.Logger) (*TokenBroker, error) {
	privateKey, err := os.ReadFile(cfg.GitHubPrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key from %s: %w", cfg.GitHubPrivateKeyPath, err)
	}

	// The apps transport signs a short-lived JWT assertion (issuer = app
	// id, ~10 minute validity) on every App API request.
	appTransport, err := ghinstallation.NewAppsTransport(http.DefaultTransport, cfg.GitHubAppID, privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub App transport: %w", err)
	}
	appClient := github.NewClient(&http.Client{Transport: appTransport, Timeout: cfg.GitHubAPITimeout})

	exchange := func(ctx context.Context, installationID int64) (string, time.Time, error) {
		token, _, err := appClient.Apps.CreateInstallationToken(ctx, installationID, nil)
		if err != nil {
			return "", time.Time{}, err
		}
		if token.GetToken() == "" {
			return "", time.Time{}, fmt.Errorf("received an empty installation token")
		}
		return token.GetToken(), token.GetExpiresAt().Time, nil
	}

	return newTokenBroker(exchange, logger), nil
}

func newTokenBroker(exchange exchangeFunc, logger *slog.Logger) *TokenBroker {
	policy := retry.DefaultPolicy()
	policy.Retryable = IsRetryable

	return &TokenBroker{
		exchange: exchange,
		policy:   policy,
		logger:   logger,
		cache:    make(map[int64]cachedToken),
	}
}

// InstallationToken returns a valid token for the installation, reusing the
// cached one until it is within the expiry margin. Exchange failures are
// retried with backoff; exhausting the attempts fails only the calling job.
func (b *TokenBroker) InstallationToken(ctx context.Context, installationID int64) (string, time.Time, error) {
	if cached, ok := b.lookup(installationID); ok {
		return cached.token, cached.expiry, nil
	}

	key := strconv.FormatInt(installationID, 10)
	v, err, _ := b.group.Do(key, func() (any, error) {
		// A concurrent caller may have refreshed while this one waited.
		if cached, ok := b.lookup(installationID); ok {
			return cached, nil
		}

		var fresh cachedToken
		err := retry.Do(ctx, b.policy, func(ctx context.Context) error {
			token, expiry, err := b.exchange(ctx, installationID)
			if err != nil {
				b.logger.Warn("installation token exchange failed", "installation_id", installationID, "error", err)
				return err
			}
			fresh = cachedToken{token: token, expiry: expiry}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("token exchange for installation %d: %w", installationID, err)
		}

		b.mu.Lock()
		b.cache[installationID] = fresh
		b.mu.Unlock()

		b.logger.Info("installation token refreshed", "installation_id", installationID, "expires_at", fresh.expiry)
		return fresh, nil
	})
	if err != nil {
		return "", time.Time{}, err
	}

	cached := v.(cachedToken)
	return cached.token, cached.expiry, nil
}

// Invalidate drops the cached token for an installation. Callers invoke it
// when a downstream call reports an authentication failure, forcing the
// next InstallationToken call to refresh.
func (b *TokenBroker) Invalidate(installationID int64) {
	b.mu.Lock()
	delete(b.cache, installationID)
	b.mu.Unlock()
}

func (b *TokenBroker) lookup(installationID int64) (cachedToken, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	cached, ok := b.cache[installationID]
	if !ok || time.Until(cached.expiry) < expiryMargin {
		return cachedToken{}, false
	}
	return cached, true
}

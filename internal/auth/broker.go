// Package auth supplies bearer credentials for the remote model, caching and
// refreshing them transparently.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/celiksa/ocr-entity-extraction/internal/domain"
	"github.com/celiksa/ocr-entity-extraction/internal/metrics"
)

const apikeyGrantType = "urn:ibm:params:oauth:grant-type:apikey"

// defaultLifetime is assumed when the provider omits expires_in.
// IAM tokens live 60 minutes.
const defaultLifetime = time.Hour

// Config holds identity-provider exchange settings.
type Config struct {
	TokenURL string
	APIKey   string
	// Margin is subtracted from the provider's stated lifetime so a token is
	// never presented close to its expiry (refresh at 50 of 60 minutes).
	Margin  time.Duration
	Timeout time.Duration
}

// Broker exchanges a long-lived API key for short-lived bearer tokens and
// caches the result. Safe for concurrent use; at most one exchange is in
// flight at any time.
type Broker struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger

	mu    sync.RWMutex
	cred  domain.Credential
	group singleflight.Group
}

// New creates a credential broker. No exchange happens until the first call
// to Credential.
func New(cfg Config, logger *zap.Logger) *Broker {
	if cfg.Margin <= 0 {
		cfg.Margin = 10 * time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Broker{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Credential returns a valid bearer credential, performing a blocking exchange
// with the identity provider when the cached one is absent or near expiry.
// Concurrent callers share a single in-flight exchange. A rejected exchange
// fails wrapping domain.ErrAuth.
func (b *Broker) Credential(ctx context.Context) (domain.Credential, error) {
	b.mu.RLock()
	cred := b.cred
	b.mu.RUnlock()
	if cred.Valid(time.Now()) {
		return cred, nil
	}

	v, err, _ := b.group.Do("token", func() (any, error) {
		// Re-check: another caller may have refreshed while we waited.
		b.mu.RLock()
		cred := b.cred
		b.mu.RUnlock()
		if cred.Valid(time.Now()) {
			return cred, nil
		}

		fresh, err := b.exchange(ctx)
		if err != nil {
			metrics.TokenExchangesTotal.WithLabelValues("error").Inc()
			return domain.Credential{}, err
		}
		metrics.TokenExchangesTotal.WithLabelValues("success").Inc()

		b.mu.Lock()
		b.cred = fresh
		b.mu.Unlock()
		return fresh, nil
	})
	if err != nil {
		return domain.Credential{}, err
	}
	return v.(domain.Credential), nil
}

// exchange performs the form-encoded API-key exchange with the identity provider.
func (b *Broker) exchange(ctx context.Context) (domain.Credential, error) {
	form := url.Values{
		"grant_type": {apikeyGrantType},
		"apikey":     {b.cfg.APIKey},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return domain.Credential{}, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return domain.Credential{}, fmt.Errorf("token exchange: %v: %w", err, domain.ErrAuth)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Credential{}, fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		b.logger.Error("Token exchange rejected",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body),
		)
		return domain.Credential{}, fmt.Errorf("token exchange: status %d: %w", resp.StatusCode, domain.ErrAuth)
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return domain.Credential{}, fmt.Errorf("parse token response: %v: %w", err, domain.ErrAuth)
	}
	if parsed.AccessToken == "" {
		return domain.Credential{}, fmt.Errorf("token response missing access_token: %w", domain.ErrAuth)
	}

	lifetime := defaultLifetime
	if parsed.ExpiresIn > 0 {
		lifetime = time.Duration(parsed.ExpiresIn) * time.Second
	}
	expiry := time.Now().Add(lifetime - b.cfg.Margin)

	b.logger.Info("Obtained access token", zap.Time("refresh_after", expiry))

	return domain.Credential{Token: parsed.AccessToken, Expiry: expiry}, nil
}

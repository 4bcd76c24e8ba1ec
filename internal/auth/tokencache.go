package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
)

// ErrNoToken is returned by Get when no token is cached for a domain.
var ErrNoToken = errors.New("no cached token")

type cachedToken struct {
	Token     string    `json:"token"`
	ExpiresOn time.Time `json:"expiresOn"`
}

// TokenCache persists access tokens keyed by tenant cookie domain in a
// JSON file. Tokens are written with owner-only permissions; the cache
// holds at most one token per domain, a later Put replacing the earlier.
type TokenCache struct {
	path string
}

// NewTokenCache creates a cache backed by the given file path.
func NewTokenCache(path string) *TokenCache {
	return &TokenCache{path: path}
}

// DefaultCachePath returns the per-user location of the token cache file.
func DefaultCachePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}
	return filepath.Join(dir, "sptool", "tokens.json"), nil
}

// Get returns the cached token for a domain, or ErrNoToken.
func (c *TokenCache) Get(domain string) (azcore.AccessToken, error) {
	tokens, err := c.load()
	if err != nil {
		return azcore.AccessToken{}, err
	}
	t, ok := tokens[normalizeDomain(domain)]
	if !ok {
		return azcore.AccessToken{}, fmt.Errorf("%s: %w", domain, ErrNoToken)
	}
	return azcore.AccessToken{Token: t.Token, ExpiresOn: t.ExpiresOn}, nil
}

// Put stores a token for a domain, replacing any previous one.
func (c *TokenCache) Put(domain string, token azcore.AccessToken) error {
	tokens, err := c.load()
	if err != nil {
		return err
	}
	tokens[normalizeDomain(domain)] = cachedToken{Token: token.Token, ExpiresOn: token.ExpiresOn}
	return c.save(tokens)
}

// Remove drops the cached token for a domain. Removing an absent domain
// is not an error.
func (c *TokenCache) Remove(domain string) error {
	tokens, err := c.load()
	if err != nil {
		return err
	}
	delete(tokens, normalizeDomain(domain))
	return c.save(tokens)
}

// Domains lists the domains that currently have a cached token, sorted.
func (c *TokenCache) Domains() ([]string, error) {
	tokens, err := c.load()
	if err != nil {
		return nil, err
	}
	domains := make([]string, 0, len(tokens))
	for d := range tokens {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	return domains, nil
}

func (c *TokenCache) load() (map[string]cachedToken, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]cachedToken{}, nil
		}
		return nil, fmt.Errorf("failed to read token cache: %w", err)
	}
	tokens := map[string]cachedToken{}
	if len(data) == 0 {
		return tokens, nil
	}
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("failed to parse token cache: %w", err)
	}
	return tokens, nil
}

func (c *TokenCache) save(tokens map[string]cachedToken) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	data, err := json.MarshalIndent(tokens, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token cache: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token cache: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("failed to replace token cache: %w", err)
	}
	return nil
}

func normalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}

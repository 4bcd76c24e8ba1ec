// Package auth resolves Entra ID credentials for SharePoint report
// execution and manages the per-tenant token cache behind the stored
// credential checks. Supported methods, in the order they are tried:
//
//   - Client Secret: standard App Registration secret
//   - PFX Certificate: certificate file with private key
//   - Cached token: captured earlier by an interactive device-code sign-in
package auth

import (
	"context"
	"crypto"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"software.sslmate.com/src/go-pkcs12"

	"sptool/internal/common/logger"
	"sptool/internal/common/security"
	"sptool/internal/connection"
)

// GraphScope is the default scope for application permissions.
const GraphScope = "https://graph.microsoft.com/.default"

// ErrNotSignedIn is returned when no usable stored credential exists for
// a connection's cookie domain.
var ErrNotSignedIn = errors.New("no stored credentials (run: spconn -action signin)")

// Method carries the non-interactive credential inputs for one invocation.
// All fields empty means "use the token cache".
type Method struct {
	Secret  string // Client Secret
	PfxPath string // Path to .pfx certificate file
	PfxPass string // Password for the .pfx file
}

// Service resolves credentials and answers stored-credential queries.
type Service struct {
	cache *TokenCache
	log   *slog.Logger
}

// NewService creates an authentication service over the given token cache.
func NewService(cache *TokenCache, log *slog.Logger) *Service {
	return &Service{cache: cache, log: log}
}

// HasStoredCredentials reports whether an unexpired token is cached for
// the given cookie domain.
func (s *Service) HasStoredCredentials(domain string) bool {
	tok, err := s.cache.Get(domain)
	if err != nil {
		return false
	}
	// Leave a minute of slack so a token does not expire mid-run
	return time.Until(tok.ExpiresOn) > time.Minute
}

// StoreToken caches a token for the given cookie domain.
func (s *Service) StoreToken(domain string, token azcore.AccessToken) error {
	return s.cache.Put(domain, token)
}

// SignIn runs the interactive device-code flow for a connection and
// caches the resulting token under the connection's cookie domain.
// The user cancels by cancelling ctx.
func (s *Service) SignIn(ctx context.Context, conn *connection.Connection) (azcore.AccessToken, error) {
	cred, err := azidentity.NewDeviceCodeCredential(&azidentity.DeviceCodeCredentialOptions{
		TenantID: conn.TenantID,
		ClientID: conn.ClientID,
		UserPrompt: func(ctx context.Context, dc azidentity.DeviceCodeMessage) error {
			fmt.Println(dc.Message)
			return nil
		},
	})
	if err != nil {
		return azcore.AccessToken{}, fmt.Errorf("device code setup failed: %w", err)
	}

	token, err := cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{GraphScope}})
	if err != nil {
		return azcore.AccessToken{}, fmt.Errorf("interactive sign-in failed: %w", err)
	}

	logger.LogInfo(s.log, "Sign-in completed",
		"domain", conn.CookieDomain,
		"token", security.MaskAccessToken(token.Token),
		"expiresOn", token.ExpiresOn.Format("2006-01-02 15:04:05 MST"))

	if err := s.cache.Put(conn.CookieDomain, token); err != nil {
		return azcore.AccessToken{}, fmt.Errorf("failed to cache token: %w", err)
	}
	return token, nil
}

// Credential resolves a token credential for the connection using the
// method's inputs, falling back to the token cache. Mirrors the
// precedence of the command-line flags: secret, then PFX, then cache.
func (s *Service) Credential(conn *connection.Connection, method Method) (azcore.TokenCredential, error) {
	// 1. Client Secret
	if method.Secret != "" {
		logger.LogDebug(s.log, "Authentication method: Client Secret",
			"tenantID", security.MaskGUID(conn.TenantID),
			"secret", security.MaskSecret(method.Secret))
		return azidentity.NewClientSecretCredential(conn.TenantID, conn.ClientID, method.Secret, nil)
	}

	// 2. PFX File
	if method.PfxPath != "" {
		logger.LogDebug(s.log, "Authentication method: PFX Certificate File",
			"path", method.PfxPath,
			"password", security.MaskPassword(method.PfxPass))
		pfxData, err := os.ReadFile(method.PfxPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read PFX file: %w", err)
		}
		return certCredential(conn.TenantID, conn.ClientID, pfxData, method.PfxPass)
	}

	// 3. Token cache (populated by spconn signin)
	tok, err := s.cache.Get(conn.CookieDomain)
	if err != nil || time.Until(tok.ExpiresOn) <= time.Minute {
		return nil, fmt.Errorf("%s: %w", conn.CookieDomain, ErrNotSignedIn)
	}
	logger.LogDebug(s.log, "Authentication method: cached token",
		"domain", conn.CookieDomain,
		"token", security.MaskAccessToken(tok.Token))
	return staticTokenCredential{token: tok}, nil
}

func certCredential(tenantID, clientID string, pfxData []byte, password string) (*azidentity.ClientCertificateCredential, error) {
	// Decode PFX using go-pkcs12 (supports SHA-256 and other modern algorithms)
	key, cert, caCerts, err := pkcs12.DecodeChain(pfxData, password)
	if err != nil {
		return nil, fmt.Errorf("failed to decode PFX: %w", err)
	}

	privKey, ok := key.(crypto.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("decoded key is not a valid crypto.PrivateKey")
	}

	// azidentity expects the leaf certificate first
	certs := []*x509.Certificate{cert}
	if len(caCerts) > 0 {
		certs = append(certs, caCerts...)
	}

	opts := &azidentity.ClientCertificateCredentialOptions{
		SendCertificateChain: true,
	}
	return azidentity.NewClientCertificateCredential(tenantID, clientID, certs, privKey, opts)
}

// staticTokenCredential serves a previously captured token. It cannot
// refresh; callers get ErrNotSignedIn before expiry instead.
type staticTokenCredential struct {
	token azcore.AccessToken
}

func (c staticTokenCredential) GetToken(ctx context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return c.token, nil
}

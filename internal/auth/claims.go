package auth

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims represents relevant claims from Microsoft Entra ID JWT tokens
type TokenClaims struct {
	AppDisplayName string   `json:"app_displayname"` // Application display name from Entra ID
	UPN            string   `json:"upn"`             // Signed-in user principal name (delegated tokens)
	TenantID       string   `json:"tid"`             // Tenant the token was issued for
	Roles          []string `json:"roles"`           // Assigned application roles (e.g., Sites.Read.All)
	Scopes         string   `json:"scp"`             // Delegated permission scopes
	jwt.RegisteredClaims
}

// ParseTokenClaims extracts the display claims from a JWT access token.
// The token is parsed without signature verification; it was already
// validated by the Azure SDK when it was acquired.
func ParseTokenClaims(tokenString string) (*TokenClaims, error) {
	token, _, err := new(jwt.Parser).ParseUnverified(tokenString, &TokenClaims{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT: %w", err)
	}
	claims, ok := token.Claims.(*TokenClaims)
	if !ok {
		return nil, fmt.Errorf("failed to extract claims from token")
	}
	return claims, nil
}

// DescribePermissions formats the token's granted permissions for display.
// Application roles take precedence; delegated scopes are the fallback.
func (c *TokenClaims) DescribePermissions() string {
	if len(c.Roles) > 0 {
		return strings.Join(c.Roles, ", ")
	}
	if c.Scopes != "" {
		return c.Scopes
	}
	return "(none)"
}

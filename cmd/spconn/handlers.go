package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"

	"sptool/internal/auth"
	"sptool/internal/common/logger"
	"sptool/internal/common/security"
	"sptool/internal/connection"
)

// executeAction dispatches the configured action to its handler.
func executeAction(ctx context.Context, config *Config, registry *connection.Registry, authService *auth.Service, auditLogger logger.Logger) error {
	switch config.Action {
	case ActionAddConn:
		return addConn(config, registry, auditLogger)
	case ActionListConns:
		return listConns(config, registry, authService)
	case ActionRemoveConn:
		return removeConn(config, registry, auditLogger)
	case ActionSignIn:
		return signIn(ctx, config, registry, authService, auditLogger)
	case ActionCheckAuth:
		return checkAuth(config, registry, authService)
	default:
		return fmt.Errorf("unknown action: %s", config.Action)
	}
}

func addConn(config *Config, registry *connection.Registry, auditLogger logger.Logger) error {
	conn := connection.Connection{
		ID:         strings.ToLower(strings.TrimSpace(config.ConnectionID)),
		Name:       strings.TrimSpace(config.Name),
		TenantID:   config.TenantID,
		ClientID:   config.ClientID,
		PrimaryURL: config.PrimaryURL,
	}
	if err := registry.Add(conn); err != nil {
		writeAuditRow(auditLogger, ActionAddConn, StatusFailure, conn.ID, err.Error())
		return err
	}

	added, err := registry.Get(conn.ID)
	if err != nil {
		return err
	}
	writeAuditRow(auditLogger, ActionAddConn, StatusSuccess, added.ID, added.CookieDomain)

	if config.OutputFormat == "json" {
		printJSON(added)
	} else {
		fmt.Printf("Added connection %s: %s (%s)\n", added.ID, added.Name, added.CookieDomain)
		fmt.Printf("Sign in with: spconn -action signin -conn %s\n", added.ID)
	}
	return nil
}

func listConns(config *Config, registry *connection.Registry, authService *auth.Service) error {
	conns, err := registry.GetAll()
	if err != nil {
		return err
	}

	if config.OutputFormat == "json" {
		printJSON(conns)
		return nil
	}

	if len(conns) == 0 {
		fmt.Println("No connections registered.")
		return nil
	}
	fmt.Printf("%-16s %-28s %-30s %s\n", "ID", "NAME", "DOMAIN", "SIGNED IN")
	for _, conn := range conns {
		signedIn := "no"
		if authService.HasStoredCredentials(conn.CookieDomain) {
			signedIn = "yes"
		}
		fmt.Printf("%-16s %-28s %-30s %s\n", conn.ID, conn.Name, conn.CookieDomain, signedIn)
	}
	fmt.Printf("\nTotal connections: %d\n", len(conns))
	return nil
}

func removeConn(config *Config, registry *connection.Registry, auditLogger logger.Logger) error {
	conn, err := registry.Get(config.ConnectionID)
	if err != nil {
		return err
	}
	if err := registry.Remove(conn.ID); err != nil {
		writeAuditRow(auditLogger, ActionRemoveConn, StatusFailure, conn.ID, err.Error())
		return err
	}
	writeAuditRow(auditLogger, ActionRemoveConn, StatusSuccess, conn.ID, "Connection removed")
	fmt.Printf("Removed connection %s\n", conn.ID)
	return nil
}

func signIn(ctx context.Context, config *Config, registry *connection.Registry, authService *auth.Service, auditLogger logger.Logger) error {
	conn, err := registry.Get(config.ConnectionID)
	if err != nil {
		return err
	}

	fmt.Printf("Signing in to %s (%s)...\n", conn.Name, conn.CookieDomain)
	token, err := authService.SignIn(ctx, conn)
	if err != nil {
		writeAuditRow(auditLogger, ActionSignIn, StatusFailure, conn.ID, err.Error())
		return err
	}
	writeAuditRow(auditLogger, ActionSignIn, StatusSuccess, conn.ID,
		fmt.Sprintf("Token valid until %s", token.ExpiresOn.Format("2006-01-02 15:04:05 MST")))

	fmt.Printf("Signed in. Token valid until %s\n", token.ExpiresOn.Format("2006-01-02 15:04:05 MST"))
	printTokenClaims(token.Token)
	return nil
}

func checkAuth(config *Config, registry *connection.Registry, authService *auth.Service) error {
	conn, err := registry.Get(config.ConnectionID)
	if err != nil {
		return err
	}

	if !authService.HasStoredCredentials(conn.CookieDomain) {
		fmt.Printf("No stored credentials for %s\n", conn.CookieDomain)
		fmt.Printf("Sign in with: spconn -action signin -conn %s\n", conn.ID)
		return fmt.Errorf("not signed in to %s", conn.CookieDomain)
	}

	cred, err := authService.Credential(conn, auth.Method{})
	if err != nil {
		return err
	}
	token, err := cred.GetToken(context.Background(), policy.TokenRequestOptions{Scopes: []string{auth.GraphScope}})
	if err != nil {
		return err
	}

	fmt.Printf("Stored credentials for %s are valid until %s\n",
		conn.CookieDomain, token.ExpiresOn.Format("2006-01-02 15:04:05 MST"))
	if remaining := time.Until(token.ExpiresOn).Round(time.Minute); remaining > 0 {
		fmt.Printf("Time remaining: %s\n", remaining)
	}
	printTokenClaims(token.Token)
	return nil
}

// printTokenClaims displays the identity claims of an access token with
// the token itself masked.
func printTokenClaims(tokenStr string) {
	fmt.Printf("Token: %s\n", security.MaskAccessToken(tokenStr))

	claims, err := auth.ParseTokenClaims(tokenStr)
	if err != nil {
		fmt.Printf("  (Could not parse JWT claims: %v)\n", err)
		return
	}
	if claims.AppDisplayName != "" {
		fmt.Printf("  Application: %s\n", claims.AppDisplayName)
	}
	if claims.UPN != "" {
		fmt.Printf("  Signed in as: %s\n", security.MaskEmail(claims.UPN))
	}
	if claims.TenantID != "" {
		fmt.Printf("  Tenant: %s\n", security.MaskGUID(claims.TenantID))
	}
	fmt.Printf("  Permissions: %s\n", claims.DescribePermissions())
	if claims.ExpiresAt != nil {
		fmt.Printf("  Expires: %s\n", claims.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
	}
}

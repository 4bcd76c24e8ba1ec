// Package connection manages the registry of SharePoint tenant
// connections: which tenants the tools know about and how to reach them.
package connection

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotFound is returned when a connection ID is not registered.
var ErrNotFound = errors.New("connection not found")

// Connection identifies a target tenant and its authentication scope.
type Connection struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	TenantID     string `json:"tenantId"`
	ClientID     string `json:"clientId"`
	PrimaryURL   string `json:"primaryUrl"`
	CookieDomain string `json:"cookieDomain"` // token scope domain, e.g. contoso.sharepoint.com
}

// DeriveCookieDomain extracts the authentication scope domain from a
// tenant's primary URL. Falls back to the raw value when it is not a URL.
func DeriveCookieDomain(primaryURL string) string {
	u, err := url.Parse(strings.TrimSpace(primaryURL))
	if err != nil || u.Host == "" {
		return strings.TrimSpace(primaryURL)
	}
	return strings.ToLower(u.Host)
}

// Registry is a JSON-file backed connection store shared by the tools in
// the suite. The file is small and rewritten atomically on every change.
type Registry struct {
	path string
}

// NewRegistry returns a registry stored at path.
func NewRegistry(path string) *Registry {
	return &Registry{path: path}
}

// DefaultPath returns the registry location under the user config dir.
func DefaultPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, "sptool", "connections.json"), nil
}

// GetAll returns all registered connections sorted by ID.
func (r *Registry) GetAll() ([]Connection, error) {
	conns, err := r.load()
	if err != nil {
		return nil, err
	}

	out := make([]Connection, 0, len(conns))
	for _, c := range conns {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get returns the connection with the given ID, or ErrNotFound.
func (r *Registry) Get(id string) (*Connection, error) {
	conns, err := r.load()
	if err != nil {
		return nil, err
	}
	c, ok := conns[strings.ToLower(id)]
	if !ok {
		return nil, fmt.Errorf("connection %q: %w", id, ErrNotFound)
	}
	return &c, nil
}

// Add registers a new connection. IDs are case-insensitive and must be
// unique; the cookie domain is derived from the primary URL when empty.
func (r *Registry) Add(conn Connection) error {
	conn.ID = strings.ToLower(strings.TrimSpace(conn.ID))
	if conn.ID == "" {
		return fmt.Errorf("connection ID cannot be empty")
	}
	if conn.CookieDomain == "" {
		conn.CookieDomain = DeriveCookieDomain(conn.PrimaryURL)
	}

	conns, err := r.load()
	if err != nil {
		return err
	}
	if _, exists := conns[conn.ID]; exists {
		return fmt.Errorf("connection %q already exists", conn.ID)
	}

	conns[conn.ID] = conn
	return r.save(conns)
}

// Remove deletes a connection. Returns ErrNotFound when absent.
func (r *Registry) Remove(id string) error {
	id = strings.ToLower(id)
	conns, err := r.load()
	if err != nil {
		return err
	}
	if _, ok := conns[id]; !ok {
		return fmt.Errorf("connection %q: %w", id, ErrNotFound)
	}
	delete(conns, id)
	return r.save(conns)
}

func (r *Registry) load() (map[string]Connection, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return map[string]Connection{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read connection registry: %w", err)
	}

	var list []Connection
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse connection registry %s: %w", r.path, err)
	}

	conns := make(map[string]Connection, len(list))
	for _, c := range list {
		conns[strings.ToLower(c.ID)] = c
	}
	return conns, nil
}

func (r *Registry) save(conns map[string]Connection) error {
	list := make([]Connection, 0, len(conns))
	for _, c := range conns {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode connection registry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0700); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}

	// Write-then-rename so a crash cannot truncate the registry
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write connection registry: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("failed to replace connection registry: %w", err)
	}
	return nil
}

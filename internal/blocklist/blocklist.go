// Package blocklist manages the user-facing blacklist of hostnames and the
// suspicious-keyword lists. Lists are ordered and deduplicated; all mutations
// go through add/remove operations that enforce uniqueness.
package blocklist

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	"pagesentry/internal/storage"
)

// DefaultKeywords is seeded into the store on first start and merged with the
// user-managed custom list at scan time.
var DefaultKeywords = []string{
	"verify your account",
	"confirm your identity",
	"account suspended",
	"unusual activity",
	"claim your prize",
	"you have won",
	"act now",
	"limited time offer",
	"wire transfer",
	"gift card",
	"crypto giveaway",
	"password expired",
}

// Manager owns the blacklist and keyword lists on top of a storage.Store.
// Read failures degrade to empty lists; the caller never sees a storage
// error on the query path.
type Manager struct {
	store  storage.Store
	logger *slog.Logger
	mu     sync.Mutex
}

// NewManager creates a list manager. Pass nil for logger to disable logging.
func NewManager(store storage.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{store: store, logger: logger}
}

// SeedDefaults writes the default keyword list if none exists yet.
func (m *Manager) SeedDefaults(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.store.Get(ctx, storage.KeyDefaultKeywords)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return m.saveList(ctx, storage.KeyDefaultKeywords, DefaultKeywords)
}

// NormalizeHost lowercases and strips whitespace and a trailing dot.
func NormalizeHost(host string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(host), "."))
}

// AddHost appends a hostname to the blacklist. It returns false when the
// host is already present; re-adding never duplicates or reorders.
func (m *Manager) AddHost(ctx context.Context, host string) (bool, error) {
	return m.add(ctx, storage.KeyBlacklist, NormalizeHost(host))
}

// RemoveHost deletes a hostname from the blacklist, preserving the order of
// the remaining entries. It returns false when the host was not present.
func (m *Manager) RemoveHost(ctx context.Context, host string) (bool, error) {
	return m.remove(ctx, storage.KeyBlacklist, NormalizeHost(host))
}

// Hosts returns the blacklist in insertion order.
func (m *Manager) Hosts(ctx context.Context) []string {
	return m.loadList(ctx, storage.KeyBlacklist)
}

// MatchHost reports whether hostname is blacklisted (exact match).
func (m *Manager) MatchHost(ctx context.Context, hostname string) bool {
	hostname = NormalizeHost(hostname)
	if hostname == "" {
		return false
	}
	for _, h := range m.loadList(ctx, storage.KeyBlacklist) {
		if h == hostname {
			return true
		}
	}
	return false
}

// AddKeyword appends a keyword to the custom list.
func (m *Manager) AddKeyword(ctx context.Context, word string) (bool, error) {
	return m.add(ctx, storage.KeyCustomKeywords, normalizeKeyword(word))
}

// RemoveKeyword deletes a keyword from the custom list.
func (m *Manager) RemoveKeyword(ctx context.Context, word string) (bool, error) {
	return m.remove(ctx, storage.KeyCustomKeywords, normalizeKeyword(word))
}

// Keywords returns the default and custom lists merged, defaults first,
// without duplicates. The lists are read fresh on every call so external
// changes take effect on the next scan.
func (m *Manager) Keywords(ctx context.Context) []string {
	merged := m.loadList(ctx, storage.KeyDefaultKeywords)
	seen := make(map[string]struct{}, len(merged))
	for _, w := range merged {
		seen[w] = struct{}{}
	}
	for _, w := range m.loadList(ctx, storage.KeyCustomKeywords) {
		if _, dup := seen[w]; !dup {
			merged = append(merged, w)
			seen[w] = struct{}{}
		}
	}
	return merged
}

func normalizeKeyword(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

func (m *Manager) add(ctx context.Context, key, entry string) (bool, error) {
	if entry == "" {
		return false, errors.New("blocklist: empty entry")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.loadList(ctx, key)
	for _, e := range list {
		if e == entry {
			return false, nil
		}
	}
	list = append(list, entry)
	return true, m.saveList(ctx, key, list)
}

func (m *Manager) remove(ctx context.Context, key, entry string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.loadList(ctx, key)
	out := list[:0]
	found := false
	for _, e := range list {
		if e == entry {
			found = true
			continue
		}
		out = append(out, e)
	}
	if !found {
		return false, nil
	}
	return true, m.saveList(ctx, key, out)
}

func (m *Manager) loadList(ctx context.Context, key string) []string {
	raw, err := m.store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		m.logger.Warn("list read failed, treating as empty", "key", key, "error", err)
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		m.logger.Warn("list payload corrupt, treating as empty", "key", key, "error", err)
		return nil
	}
	return list
}

func (m *Manager) saveList(ctx context.Context, key string, list []string) error {
	raw, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return m.store.Set(ctx, key, string(raw))
}

package blocklist

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagesentry/internal/storage"
)

func TestManager_AddHostIdempotent(t *testing.T) {
	m := NewManager(storage.NewMemoryStore(), nil)
	ctx := context.Background()

	added, err := m.AddHost(ctx, "evil.example")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = m.AddHost(ctx, "Evil.Example")
	require.NoError(t, err)
	assert.False(t, added, "re-adding must report already exists")
	assert.Equal(t, []string{"evil.example"}, m.Hosts(ctx))
}

func TestManager_RemoveHostPreservesOrder(t *testing.T) {
	m := NewManager(storage.NewMemoryStore(), nil)
	ctx := context.Background()

	for _, h := range []string{"a.example", "b.example", "c.example"} {
		_, err := m.AddHost(ctx, h)
		require.NoError(t, err)
	}

	removed, err := m.RemoveHost(ctx, "b.example")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, []string{"a.example", "c.example"}, m.Hosts(ctx))

	removed, err = m.RemoveHost(ctx, "b.example")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestManager_AddThenRemoveRoundTrip(t *testing.T) {
	m := NewManager(storage.NewMemoryStore(), nil)
	ctx := context.Background()

	for _, h := range []string{"a.example", "b.example"} {
		_, err := m.AddHost(ctx, h)
		require.NoError(t, err)
	}
	before := m.Hosts(ctx)

	_, err := m.AddHost(ctx, "transient.example")
	require.NoError(t, err)
	_, err = m.RemoveHost(ctx, "transient.example")
	require.NoError(t, err)

	assert.Equal(t, before, m.Hosts(ctx))
}

func TestManager_MatchHost(t *testing.T) {
	m := NewManager(storage.NewMemoryStore(), nil)
	ctx := context.Background()

	_, err := m.AddHost(ctx, "evil.example")
	require.NoError(t, err)

	assert.True(t, m.MatchHost(ctx, "evil.example"))
	assert.True(t, m.MatchHost(ctx, "EVIL.example."))
	assert.False(t, m.MatchHost(ctx, "sub.evil.example"), "match is exact, not suffix")
	assert.False(t, m.MatchHost(ctx, ""))
}

func TestManager_KeywordsMergeDefaultsAndCustom(t *testing.T) {
	m := NewManager(storage.NewMemoryStore(), nil)
	ctx := context.Background()

	require.NoError(t, m.SeedDefaults(ctx))
	// Seeding twice must not duplicate anything.
	require.NoError(t, m.SeedDefaults(ctx))

	added, err := m.AddKeyword(ctx, "Free Money")
	require.NoError(t, err)
	assert.True(t, added)

	// A custom entry that shadows a default is not duplicated in the merge.
	added, err = m.AddKeyword(ctx, DefaultKeywords[0])
	require.NoError(t, err)
	assert.True(t, added)

	words := m.Keywords(ctx)
	assert.Equal(t, len(DefaultKeywords)+1, len(words))
	assert.Contains(t, words, "free money")
	assert.Equal(t, DefaultKeywords, words[:len(DefaultKeywords)], "defaults come first, in order")
}

func TestManager_EmptyEntryRejected(t *testing.T) {
	m := NewManager(storage.NewMemoryStore(), nil)
	_, err := m.AddHost(context.Background(), "   ")
	assert.Error(t, err)
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, error) {
	return "", errors.New("backend down")
}
func (failingStore) Set(context.Context, string, string) error { return errors.New("backend down") }
func (failingStore) Delete(context.Context, string) error      { return errors.New("backend down") }

func TestManager_StorageFailureDegradesToEmpty(t *testing.T) {
	m := NewManager(failingStore{}, nil)
	ctx := context.Background()

	assert.Empty(t, m.Hosts(ctx))
	assert.False(t, m.MatchHost(ctx, "evil.example"))
	assert.Empty(t, m.Keywords(ctx))
}

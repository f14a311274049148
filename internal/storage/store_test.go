package storage

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	lib     Library
	loadErr error
	saveErr error
	saves   int
}

func (m *memoryStore) LoadAll(context.Context) (Library, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.lib.Clone(), nil
}

func (m *memoryStore) SaveAll(_ context.Context, lib Library) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.lib = lib.Clone()
	return nil
}

func TestSanitizeKey(t *testing.T) {
	assert.Equal(t, "john_doe@mail_com", SanitizeKey("john.doe@mail.com"))
	assert.Equal(t, "a_b_c_d_e_f_g", SanitizeKey("a.b#c$d[e]f/g"))
	assert.Equal(t, "plain", SanitizeKey("  plain "))
}

func TestMergeKeepsOtherUsers(t *testing.T) {
	store := &memoryStore{lib: Library{
		"bob": {"notes_txt": "bob's notes"},
		"amy": {"old_md": "old"},
	}}

	merged, err := Merge(context.Background(), store, "amy", map[string]string{"chapter1.pdf": "cells"})
	require.NoError(t, err)

	want := Library{
		"bob": {"notes_txt": "bob's notes"},
		"amy": {"old_md": "old", "chapter1_pdf": "cells"},
	}
	assert.Equal(t, want, merged)
	assert.Equal(t, want, store.lib)
}

func TestMergeReturnsInMemoryCopyOnSaveFailure(t *testing.T) {
	store := &memoryStore{lib: Library{}, saveErr: errors.New("quota exceeded")}
	merged, err := Merge(context.Background(), store, "amy", map[string]string{"a.txt": "x"})
	require.Error(t, err)
	assert.Equal(t, Library{"amy": {"a_txt": "x"}}, merged)
}

func TestMergeDoesNotSaveWhenLoadFails(t *testing.T) {
	store := &memoryStore{loadErr: errors.New("offline")}
	_, err := Merge(context.Background(), store, "amy", map[string]string{"a.txt": "x"})
	require.Error(t, err)
	assert.Equal(t, 0, store.saves)

	_, err = Merge(context.Background(), store, " ", nil)
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestSQLStoreSQLite(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, DialectSQLite, ":memory:")
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Migrate(ctx, db, DialectSQLite, "up"))

	store := NewSQLStore(db, DialectSQLite)
	lib, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, lib)

	_, err = Merge(ctx, store, "amy", map[string]string{"bio.txt": "mitosis", "chem.md": "bonds"})
	require.NoError(t, err)
	_, err = Merge(ctx, store, "bob", map[string]string{"hist.csv": "1066"})
	require.NoError(t, err)

	lib, err = store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, Library{
		"amy": {"bio_txt": "mitosis", "chem_md": "bonds"},
		"bob": {"hist_csv": "1066"},
	}, lib)
	assert.Equal(t, map[string]string{"hist_csv": "1066"}, lib.Sources("bob"))
	assert.Empty(t, lib.Sources("carol"))
}

func TestRebindForPostgres(t *testing.T) {
	s := NewSQLStore(nil, DialectPostgres)
	assert.Equal(t, "VALUES ($1, $2, $3)", s.rebind("VALUES (?, ?, ?)"))
	assert.Equal(t, "VALUES (?)", NewSQLStore(nil, DialectSQLite).rebind("VALUES (?)"))
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	store := NewRedisStore(client, "kq:test:materials")
	defer client.Del(ctx, "kq:test:materials")

	_, err := Merge(ctx, store, "amy", map[string]string{"a.txt": "x"})
	require.NoError(t, err)
	lib, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, Library{"amy": {"a_txt": "x"}}, lib)
}

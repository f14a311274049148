package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Library maps a user key to that user's named source texts.
type Library map[string]map[string]string

// Store persists the whole library. Callers do read-modify-write through
// Merge; there is no transaction around the two calls.
type Store interface {
	LoadAll(ctx context.Context) (Library, error)
	SaveAll(ctx context.Context, lib Library) error
}

var ErrEmptyKey = errors.New("storage: empty key")

var keyReplacer = strings.NewReplacer(
	".", "_",
	"#", "_",
	"$", "_",
	"[", "_",
	"]", "_",
	"/", "_",
)

// SanitizeKey makes a user-supplied name safe as a storage path segment.
func SanitizeKey(s string) string {
	return keyReplacer.Replace(strings.TrimSpace(s))
}

func (l Library) Clone() Library {
	out := make(Library, len(l))
	for user, docs := range l {
		inner := make(map[string]string, len(docs))
		for name, text := range docs {
			inner[name] = text
		}
		out[user] = inner
	}
	return out
}

// Sources returns one user's documents, never nil.
func (l Library) Sources(user string) map[string]string {
	docs := l[SanitizeKey(user)]
	out := make(map[string]string, len(docs))
	for name, text := range docs {
		out[name] = text
	}
	return out
}

// Merge loads the library, overlays docs for user and saves the result.
// Other users' entries are carried over untouched. The merged library is
// returned even when saving fails so the caller keeps its in-memory copy.
func Merge(ctx context.Context, store Store, user string, docs map[string]string) (Library, error) {
	key := SanitizeKey(user)
	if key == "" {
		return nil, ErrEmptyKey
	}
	lib, err := store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load library: %w", err)
	}
	if lib == nil {
		lib = Library{}
	}
	merged := lib.Clone()
	if merged[key] == nil {
		merged[key] = map[string]string{}
	}
	for name, text := range docs {
		name = SanitizeKey(name)
		if name == "" {
			continue
		}
		merged[key][name] = text
	}
	if err := store.SaveAll(ctx, merged); err != nil {
		return merged, fmt.Errorf("save library: %w", err)
	}
	return merged, nil
}

// Nop keeps nothing. It backs the "none" storage backend.
type Nop struct{}

func (Nop) LoadAll(context.Context) (Library, error) { return Library{}, nil }
func (Nop) SaveAll(context.Context, Library) error   { return nil }

package apiclient

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// KeySource resolves a named secret, e.g. paramstore.Client.
type KeySource interface {
	GetToken(ctx context.Context, name string) (string, error)
}

// CachedKey fetches a service key on first use and reuses it for the lifetime
// of the process. Failed lookups are not cached.
type CachedKey struct {
	src  KeySource
	name string

	mu  sync.Mutex
	key string
}

func NewCachedKey(src KeySource, name string) (*CachedKey, error) {
	if src == nil {
		return nil, errors.New("apiclient: key source must not be nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("apiclient: key name must not be empty")
	}
	return &CachedKey{src: src, name: name}, nil
}

// Get returns the cached key, loading it if needed.
func (k *CachedKey) Get(ctx context.Context) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.key != "" {
		return k.key, nil
	}
	key, err := k.src.GetToken(ctx, k.name)
	if err != nil {
		return "", err
	}
	k.key = key
	return key, nil
}

// Package kv is the browser-storage stand-in: a flat string key/value space
// that both the favourites list and the result handoff are written into.
package kv

import (
	"context"
	"strings"
)

// Store is a minimal key/value backend. Values are opaque strings (JSON blobs
// in practice); a missing key is reported by ok=false, never by an error.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	// Keys lists every key starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Namespace scopes a Store under a fixed prefix. Callers use logical keys
// ("favourites", "artwork-<id>") and never see the physical layout.
type Namespace struct {
	inner  Store
	prefix string
}

// NewNamespace returns a view of inner where every key is prefixed.
func NewNamespace(inner Store, prefix string) *Namespace {
	return &Namespace{inner: inner, prefix: prefix}
}

// Prefix returns the physical prefix of the namespace.
func (n *Namespace) Prefix() string { return n.prefix }

func (n *Namespace) Get(ctx context.Context, key string) (string, bool, error) {
	return n.inner.Get(ctx, n.prefix+key)
}

func (n *Namespace) Set(ctx context.Context, key, value string) error {
	return n.inner.Set(ctx, n.prefix+key, value)
}

func (n *Namespace) Delete(ctx context.Context, keys ...string) error {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = n.prefix + k
	}
	return n.inner.Delete(ctx, full...)
}

// Keys returns logical keys (prefix stripped).
func (n *Namespace) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys, err := n.inner.Keys(ctx, n.prefix+prefix)
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		keys[i] = strings.TrimPrefix(k, n.prefix)
	}
	return keys, nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package provider defines the uniform search contract over external
// genealogical record sources. Each provider (FamilySearch API, public
// web search) implements the Adapter interface per the Strategy pattern;
// the dispatcher routes through a registry and never branches on
// provider identity.
// See docs/ARCHITECTURE.md § Provider Adapters.
package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/pdiddy/records-router/pkg/types"
)

// Adapter searches a single record provider. Implementations translate
// their provider's pagination, encoding, and auth quirks behind this
// contract and never perform cross-provider logic.
type Adapter interface {
	ID() string
	Search(ctx context.Context, q types.Query) (*types.ProviderResult, error)
}

// ErrorKind classifies a provider failure.
type ErrorKind string

const (
	KindAuth      ErrorKind = "auth"
	KindNotFound  ErrorKind = "not_found"
	KindMalformed ErrorKind = "malformed_response"
	KindUpstream  ErrorKind = "upstream_5xx"
	KindTimeout   ErrorKind = "timeout"
)

// Error is a typed provider failure. It is always caught at the
// dispatcher boundary and converted into a ProviderOutcome; it never
// propagates past the dispatch layer.
type Error struct {
	Provider string
	Kind     ErrorKind
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Errf builds a provider Error wrapping a formatted cause.
func Errf(providerID string, kind ErrorKind, format string, args ...any) *Error {
	return &Error{Provider: providerID, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the ErrorKind from err, or "" when err is not a
// provider error.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// Registry maps provider IDs to adapter instances. It is safe for
// concurrent use; adapters register at startup and are only read after.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry returns an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds a to the registry, replacing any adapter with the same ID.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.ID()] = a
}

// Get returns the adapter for id, or nil when unregistered.
func (r *Registry) Get(id string) Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.adapters[id]
}

// IDs returns all registered provider IDs in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.adapters))
	for id := range r.adapters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Select resolves the query's provider selection against the registry,
// preserving selection order. Unregistered IDs resolve to a nil adapter
// so the dispatcher can report them as skipped rather than dropping
// them silently.
func (r *Registry) Select(ids []string) []Adapter {
	selected := make([]Adapter, len(ids))
	for i, id := range ids {
		selected[i] = r.Get(id)
	}
	return selected
}

// Package config holds process-wide default provider overrides: base URLs
// and default models, hot-swappable at runtime via an atomic.Value so an
// operator can redirect a provider through a corporate proxy or roll a
// default model forward without reconstructing every Client. The
// YAML/JSON config-file loading a reverse-proxy server needs has no
// analogue in a library (there is no process to boot from a file), so
// that's dropped in favor of the programmatic Set* calls client.go's
// Configure* functions expose.
package config

import (
	"strings"
	"sync/atomic"
)

// Defaults is an immutable snapshot of provider overrides. Manager always
// swaps a whole Defaults value rather than mutating a shared map in place,
// so a concurrent reader never observes a half-updated snapshot.
type Defaults struct {
	BaseURLs      map[string]string
	DefaultModels map[string]string
}

func emptyDefaults() Defaults {
	return Defaults{BaseURLs: map[string]string{}, DefaultModels: map[string]string{}}
}

// Manager is a concurrency-safe holder of the current Defaults snapshot.
type Manager struct {
	value atomic.Value
}

func NewManager() *Manager {
	m := &Manager{}
	m.value.Store(emptyDefaults())
	return m
}

func (m *Manager) snapshot() Defaults {
	return m.value.Load().(Defaults)
}

// BaseURL returns the configured base-URL override for a provider id, if
// any was set via SetBaseURL.
func (m *Manager) BaseURL(providerID string) (string, bool) {
	url, ok := m.snapshot().BaseURLs[strings.ToLower(providerID)]
	return url, ok
}

// DefaultModel returns the configured default-model override for a
// provider id, if any was set via SetDefaultModel.
func (m *Manager) DefaultModel(providerID string) (string, bool) {
	model, ok := m.snapshot().DefaultModels[strings.ToLower(providerID)]
	return model, ok
}

// SetBaseURL installs a base-URL override, replacing the whole snapshot so
// concurrent readers always see a consistent pair of maps.
func (m *Manager) SetBaseURL(providerID, url string) {
	next := m.clone()
	next.BaseURLs[strings.ToLower(providerID)] = url
	m.value.Store(next)
}

// SetDefaultModel installs a default-model override for a provider id.
func (m *Manager) SetDefaultModel(providerID, model string) {
	next := m.clone()
	next.DefaultModels[strings.ToLower(providerID)] = model
	m.value.Store(next)
}

// Reset clears every override, restoring builtin registry defaults.
func (m *Manager) Reset() {
	m.value.Store(emptyDefaults())
}

func (m *Manager) clone() Defaults {
	cur := m.snapshot()
	next := Defaults{
		BaseURLs:      make(map[string]string, len(cur.BaseURLs)),
		DefaultModels: make(map[string]string, len(cur.DefaultModels)),
	}
	for k, v := range cur.BaseURLs {
		next.BaseURLs[k] = v
	}
	for k, v := range cur.DefaultModels {
		next.DefaultModels[k] = v
	}
	return next
}

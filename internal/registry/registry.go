// Package registry is the process-wide provider record store of §4.11:
// built-in entries registered at first access, with alias lookup and
// model-prefix best-effort routing; callers may register custom
// configurations. Grounded on internal/providers/registry.go's Registry
// type, with an added sync.RWMutex since a library (unlike a single-
// process proxy) must defend against a caller registering a custom
// provider concurrently with in-flight requests.
package registry

import (
	"fmt"
	"strings"
	"sync"

	"github.com/siumai/siumai/internal/providerspec"
)

// Record is everything the registry remembers about one provider.
type Record struct {
	ID           string
	Name         string
	BaseURL      string
	Capabilities map[providerspec.Capability]bool
	Spec         providerspec.ProviderSpec
	Adapter      providerspec.Adapter // non-nil only for OpenAI-compatible aggregators
	Aliases      []string
	ModelPrefixes []string
	DefaultModel string
}

// Registry is a concurrency-safe Record store keyed by provider id, with a
// side index of alias → id.
type Registry struct {
	mu       sync.RWMutex
	records  map[string]*Record
	aliases  map[string]string
	initOnce sync.Once
}

func New() *Registry {
	return &Registry{records: make(map[string]*Record), aliases: make(map[string]string)}
}

// EnsureBuiltins registers the built-in provider set exactly once, lazily,
// matching Registry.Initialize but deferred to first access per §4.11
// rather than eager construction.
func (r *Registry) EnsureBuiltins() {
	r.initOnce.Do(func() {
		for _, rec := range builtinRecords(r) {
			r.Register(rec)
		}
	})
}

// Register adds or replaces a Record, wiring its aliases into the side
// index. Safe to call concurrently with Get/Resolve.
func (r *Registry) Register(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(rec.ID)
	r.records[key] = &rec
	for _, alias := range rec.Aliases {
		r.aliases[strings.ToLower(alias)] = key
	}
}

// Get looks a provider up by id or alias.
func (r *Registry) Get(idOrAlias string) (*Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key := strings.ToLower(idOrAlias)
	if rec, ok := r.records[key]; ok {
		return rec, true
	}
	if id, ok := r.aliases[key]; ok {
		if rec, ok := r.records[id]; ok {
			return rec, true
		}
	}
	return nil, false
}

// ResolveModel performs best-effort routing from an explicit "provider,model"
// string or a bare model id matched against registered model prefixes,
// mirroring proxy.go's selectModel convention generalized into the library.
func (r *Registry) ResolveModel(modelOrRoute string) (providerID, model string, ok bool) {
	if idx := strings.Index(modelOrRoute, ","); idx >= 0 {
		providerID = strings.TrimSpace(modelOrRoute[:idx])
		model = strings.TrimSpace(modelOrRoute[idx+1:])
		if _, exists := r.Get(providerID); exists {
			return providerID, model, true
		}
		return "", "", false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.records {
		for _, prefix := range rec.ModelPrefixes {
			if strings.HasPrefix(modelOrRoute, prefix) {
				return rec.ID, modelOrRoute, true
			}
		}
	}
	return "", "", false
}

// Resolve implements providerspec.AdapterResolver over the registered
// records, so providerspec.Compat can stay ignorant of how adapters are
// stored.
func (r *Registry) Resolve(providerID string) (providerspec.Adapter, bool) {
	rec, ok := r.Get(providerID)
	if !ok || rec.Adapter == nil {
		return nil, false
	}
	return rec.Adapter, true
}

// List returns every registered provider id.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.records))
	for id := range r.records {
		ids = append(ids, id)
	}
	return ids
}

var errNotFound = fmt.Errorf("provider not found")

// MustGet panics-free accessor kept for symmetry with registry.Get; returns
// errNotFound when absent.
func (r *Registry) MustGet(id string) (*Record, error) {
	rec, ok := r.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", errNotFound, id)
	}
	return rec, nil
}

package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_EnsureBuiltins_RegistersCoreProviders(t *testing.T) {
	r := New()
	r.EnsureBuiltins()

	for _, id := range []string{"openai", "anthropic", "gemini", "xai", "groq", "ollama", "openrouter", "nvidia", "deepseek"} {
		_, ok := r.Get(id)
		assert.True(t, ok, "expected provider %q to be registered", id)
	}
}

func TestRegistry_Get_ResolvesAlias(t *testing.T) {
	r := New()
	r.EnsureBuiltins()
	rec, ok := r.Get("claude")
	require.True(t, ok)
	assert.Equal(t, "anthropic", rec.ID)
}

func TestRegistry_ResolveModel_ExplicitRoute(t *testing.T) {
	r := New()
	r.EnsureBuiltins()
	providerID, model, ok := r.ResolveModel("anthropic,claude-sonnet-4-5")
	require.True(t, ok)
	assert.Equal(t, "anthropic", providerID)
	assert.Equal(t, "claude-sonnet-4-5", model)
}

func TestRegistry_ResolveModel_PrefixMatch(t *testing.T) {
	r := New()
	r.EnsureBuiltins()
	providerID, model, ok := r.ResolveModel("gpt-4o-mini")
	require.True(t, ok)
	assert.Equal(t, "openai", providerID)
	assert.Equal(t, "gpt-4o-mini", model)
}

func TestRegistry_Resolve_ReturnsAdapterForCompatProvider(t *testing.T) {
	r := New()
	r.EnsureBuiltins()
	adapter, ok := r.Resolve("deepseek")
	require.True(t, ok)
	assert.Equal(t, "deepseek", adapter.ID())
}

func TestRegistry_Resolve_NoAdapterForNonCompatProvider(t *testing.T) {
	r := New()
	r.EnsureBuiltins()
	_, ok := r.Resolve("openai")
	assert.False(t, ok)
}

func TestRegistry_Register_CustomProviderOverridesBuiltin(t *testing.T) {
	r := New()
	r.EnsureBuiltins()
	r.Register(Record{ID: "openai", Name: "custom openai", BaseURL: "https://proxy.internal/v1"})
	rec, ok := r.Get("openai")
	require.True(t, ok)
	assert.Equal(t, "https://proxy.internal/v1", rec.BaseURL)
}

package registry

import (
	"github.com/siumai/siumai/internal/providerspec"
	"github.com/siumai/siumai/internal/registry/adapters"
)

// builtinRecords mirrors internal/providers/registry.go's Initialize, one
// Record per provider family plus the additional OpenAI-compatible
// aggregators this module supports.
func builtinRecords(resolver providerspec.AdapterResolver) []Record {
	chatStreamTools := map[providerspec.Capability]bool{
		providerspec.CapChat: true, providerspec.CapStreaming: true, providerspec.CapTools: true,
	}

	openAI := providerspec.NewOpenAI("")
	anthropic := providerspec.NewAnthropic("")
	gemini := providerspec.NewGemini("")
	xai := providerspec.NewXAI("")
	groq := providerspec.NewGroq("")
	ollama := providerspec.NewOllama("")

	records := []Record{
		{
			ID: "openai", Name: "OpenAI", BaseURL: openAI.BaseURL,
			Capabilities: openAI.Capabilities(), Spec: openAI,
			Aliases: []string{"oai"}, ModelPrefixes: []string{"gpt-", "o1", "o3", "o4", "chatgpt-"},
			DefaultModel: "gpt-4o",
		},
		{
			ID: "anthropic", Name: "Anthropic", BaseURL: anthropic.BaseURL,
			Capabilities: anthropic.Capabilities(), Spec: anthropic,
			Aliases: []string{"claude"}, ModelPrefixes: []string{"claude-"},
			DefaultModel: "claude-sonnet-4-5",
		},
		{
			ID: "gemini", Name: "Gemini", BaseURL: gemini.BaseURL,
			Capabilities: gemini.Capabilities(), Spec: gemini,
			Aliases: []string{"google"}, ModelPrefixes: []string{"gemini-"},
			DefaultModel: "gemini-2.5-flash",
		},
		{
			ID: "xai", Name: "xAI", BaseURL: xai.BaseURL,
			Capabilities: chatStreamTools, Spec: xai,
			Aliases: []string{"grok"}, ModelPrefixes: []string{"grok-"},
			DefaultModel: "grok-3",
		},
		{
			ID: "groq", Name: "Groq", BaseURL: groq.BaseURL,
			Capabilities: chatStreamTools, Spec: groq,
			ModelPrefixes: []string{"llama-", "mixtral-", "gemma-"},
			DefaultModel:  "llama-3.3-70b-versatile",
		},
		{
			ID: "ollama", Name: "Ollama", BaseURL: ollama.BaseURL,
			Capabilities: chatStreamTools, Spec: ollama,
			DefaultModel: "llama3.2",
		},
	}

	compat := providerspec.NewCompat(resolver)
	for _, a := range adapters.All() {
		records = append(records, Record{
			ID: a.ID(), Name: a.ID(), BaseURL: a.BaseURL(),
			Capabilities: chatStreamTools, Spec: compat, Adapter: a,
			ModelPrefixes: a.ModelPrefixes(), DefaultModel: a.DefaultModel(),
		})
	}
	return records
}

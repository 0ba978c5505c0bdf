// Package modelalias normalizes model identifiers per provider: short
// aliases (DeepSeek's "r1"), aggregator vendor-prefixing (OpenRouter's
// "openai/", "anthropic/"), and vendor-specific casing (SiliconFlow's
// "Qwen/Qwen2.5-72B-Instruct"). Ported from
// original_source/siumai/src/utils/model_alias.rs into a switch-on-
// provider-id idiom; a reverse-proxy server has no equivalent since it
// takes model ids as given rather than resolving them for a named vendor.
package modelalias

import "strings"

// Normalize maps a caller-supplied model id to the id the given provider's
// API actually expects. Surrounding whitespace and a leading "models/"
// prefix are stripped for every provider; beyond that, unknown providers
// and already-canonical ids pass through unchanged.
func Normalize(providerID, model string) string {
	if model == "" {
		return model
	}

	m := strings.TrimSpace(model)
	ml := strings.ToLower(m)
	if rest, ok := strings.CutPrefix(ml, "models/"); ok {
		m = rest
		ml = rest
	}

	switch strings.ToLower(providerID) {
	case "deepseek":
		return normalizeDeepSeek(m, ml)
	case "siliconflow":
		return normalizeSiliconFlow(m, ml)
	case "together":
		return normalizeTogether(m, ml)
	case "fireworks":
		return normalizeFireworks(m, ml)
	case "openrouter":
		return normalizeOpenRouter(m, ml)
	default:
		return m
	}
}

func normalizeDeepSeek(m, ml string) string {
	switch ml {
	case "deepseek-r1", "r1", "reasoner":
		return "deepseek-reasoner"
	case "deepseek-v3", "v3", "chat":
		return "deepseek-chat"
	default:
		return m
	}
}

func normalizeSiliconFlow(m, ml string) string {
	switch {
	case strings.HasPrefix(ml, "deepseek-v3.1"):
		return "deepseek-ai/DeepSeek-V3.1"
	case strings.HasPrefix(ml, "deepseek-v3"):
		return "deepseek-ai/DeepSeek-V3"
	case strings.HasPrefix(ml, "deepseek-r1"):
		return "deepseek-ai/DeepSeek-R1"
	case strings.HasPrefix(ml, "qwen3-235b-a22b"):
		return "Qwen/Qwen3-235B-A22B"
	case strings.HasPrefix(ml, "qwen3-32b"):
		return "Qwen/Qwen3-32B"
	case strings.HasPrefix(ml, "qwen3-14b"):
		return "Qwen/Qwen3-14B"
	case strings.HasPrefix(ml, "qwen3-8b"):
		return "Qwen/Qwen3-8B"
	case ml == "qwen-2.5-72b-instruct", ml == "qwen2.5-72b-instruct":
		return "Qwen/Qwen2.5-72B-Instruct"
	case ml == "qwen-2.5-32b-instruct", ml == "qwen2.5-32b-instruct":
		return "Qwen/Qwen2.5-32B-Instruct"
	case ml == "qwen-2.5-14b-instruct", ml == "qwen2.5-14b-instruct":
		return "Qwen/Qwen2.5-14B-Instruct"
	case ml == "qwen-2.5-7b-instruct", ml == "qwen2.5-7b-instruct":
		return "Qwen/Qwen2.5-7B-Instruct"
	case strings.HasPrefix(ml, "kimi-k2-instruct"):
		return "moonshotai/Kimi-K2-Instruct"
	case ml == "glm-4.5":
		return "zai-org/GLM-4.5"
	case ml == "glm-4.5-air":
		return "zai-org/GLM-4.5-Air"
	case ml == "glm-4.5v":
		return "zai-org/GLM-4.5V"
	case isLlama3Minor(ml):
		return "meta-llama/" + m
	case strings.HasPrefix(ml, "mistral-"), strings.HasPrefix(ml, "mixtral-"):
		return "mistralai/" + m
	default:
		return m
	}
}

func normalizeTogether(m, ml string) string {
	if strings.Contains(ml, "/") {
		return m
	}
	switch {
	case isLlama3Minor(ml):
		return "meta-llama/" + m
	case strings.HasPrefix(ml, "mistral-"), strings.HasPrefix(ml, "mixtral-"):
		return "mistralai/" + m
	default:
		return m
	}
}

func normalizeFireworks(m, ml string) string {
	if ml == "llama-v3p1-8b-instruct" {
		return "accounts/fireworks/models/llama-v3p1-8b-instruct"
	}
	return m
}

// normalizeOpenRouter vendor-prefixes popular model families for the
// aggregator that fronts them all under one namespace. A model id already
// containing "/" is assumed vendor-prefixed and passed through.
func normalizeOpenRouter(m, ml string) string {
	if strings.Contains(ml, "/") {
		return m
	}

	switch {
	case strings.HasPrefix(ml, "gpt-5"), strings.HasPrefix(ml, "gpt-4o"),
		strings.HasPrefix(ml, "gpt-4.1"), ml == "gpt-4",
		ml == "o1", ml == "o1-mini", ml == "o3-mini", ml == "o4-mini",
		strings.HasPrefix(ml, "gpt-3.5"):
		return "openai/" + m
	case strings.HasPrefix(ml, "claude-3.5-sonnet"), strings.HasPrefix(ml, "claude-3-5-sonnet"),
		strings.HasPrefix(ml, "claude-3.5-haiku"), strings.HasPrefix(ml, "claude-3-5-haiku"),
		strings.HasPrefix(ml, "claude-sonnet-4"), strings.HasPrefix(ml, "claude-opus-4"),
		strings.HasPrefix(ml, "claude-opus-4.1"), strings.HasPrefix(ml, "claude-2"):
		norm := strings.ReplaceAll(ml, "claude-3-5-", "claude-3.5-")
		return "anthropic/" + norm
	case strings.HasPrefix(ml, "gemini-1.5-"), strings.HasPrefix(ml, "gemini-2.0-"), strings.HasPrefix(ml, "gemini-2.5-"):
		return "google/" + m
	case strings.HasPrefix(ml, "deepseek-"), ml == "deepseek":
		switch ml {
		case "deepseek-v3":
			return "deepseek/deepseek-v3"
		case "deepseek-r1":
			return "deepseek/deepseek-r1"
		default:
			return "deepseek/" + m
		}
	case strings.HasPrefix(ml, "grok-"):
		return "xai/" + m
	case strings.Contains(ml, "sonar"):
		return "perplexity/" + m
	case isLlama3Minor(ml):
		return "meta-llama/" + m
	case strings.HasPrefix(ml, "mistral-"), strings.HasPrefix(ml, "mixtral-"):
		return "mistralai/" + m
	case strings.HasPrefix(ml, "command-r"), strings.HasPrefix(ml, "command-"):
		return "cohere/" + m
	case strings.HasPrefix(ml, "qwen"):
		return "qwen/" + m
	default:
		return m
	}
}

func isLlama3Minor(ml string) bool {
	return strings.HasPrefix(ml, "llama-3.1-") || strings.HasPrefix(ml, "llama-3.2-") || strings.HasPrefix(ml, "llama-3.3-")
}

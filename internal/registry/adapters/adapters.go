// Package adapters holds one providerspec.Adapter implementation per
// OpenAI-compatible aggregator (§4.1's composition rule, §4.11's adapter
// field). Two have a direct Go analogue —
// internal/providers/openrouter.go and internal/providers/nvidia.go — the
// rest are grounded on internal/providers/docs.go's vendor-quirk notes plus
// original_source's per-vendor Rust provider modules for field-mapping
// hints, since a reverse-proxy server never had to special-case them.
package adapters

// Vendor is the concrete providerspec.Adapter implementation shared by
// every aggregator; differences between vendors are data, not behavior,
// since they all speak the same OpenAI-shaped wire format with small
// parameter quirks.
type Vendor struct {
	id                  string
	baseURL             string
	reasoningFieldOrder []string
	toolCallIDPrefix    string
	unsupportedFields   map[string]bool
	dropFields          []string
	modelPrefixes       []string
	defaultModel        string
}

func (v *Vendor) ID() string                    { return v.id }
func (v *Vendor) BaseURL() string                { return v.baseURL }
func (v *Vendor) ReasoningFieldOrder() []string { return v.reasoningFieldOrder }
func (v *Vendor) ToolCallIDPrefix() string      { return v.toolCallIDPrefix }
func (v *Vendor) ModelPrefixes() []string       { return v.modelPrefixes }
func (v *Vendor) DefaultModel() string          { return v.defaultModel }

func (v *Vendor) SupportsField(field string) bool {
	return !v.unsupportedFields[field]
}

// TransformBody drops any field this vendor rejects on an otherwise
// OpenAI-shaped wire body, grounded on internal/providers/nvidia.go's
// per-model parameter whitelisting (NVIDIA NIM rejects several Chat
// Completions fields certain hosted models don't implement).
func (v *Vendor) TransformBody(body map[string]any) map[string]any {
	for _, f := range v.dropFields {
		delete(body, f)
	}
	return body
}

// All returns one Vendor per registered OpenAI-compatible aggregator.
func All() []*Vendor {
	return []*Vendor{
		openRouter(),
		nvidia(),
		deepSeek(),
		siliconFlow(),
		together(),
		fireworks(),
		miniMax(),
		moonshot(),
		qwen(),
		glm(),
		doubao(),
	}
}

// openRouter is grounded verbatim on internal/providers/openrouter.go's
// GetEndpoint default and its streaming/tool-call delta handling (which
// already assumes the standard OpenAI tool_calls shape, so no body
// transform is needed beyond the shared defaults).
func openRouter() *Vendor {
	return &Vendor{
		id:            "openrouter",
		baseURL:       "https://openrouter.ai/api/v1",
		toolCallIDPrefix: "call_",
		modelPrefixes: []string{"openrouter/"},
		defaultModel:  "openrouter/auto",
	}
}

// nvidia is grounded on internal/providers/nvidia.go's hard-coded NIM
// endpoint and its per-model field stripping for models that 400 on
// unsupported Chat Completions parameters.
func nvidia() *Vendor {
	return &Vendor{
		id:      "nvidia",
		baseURL: "https://integrate.api.nvidia.com/v1",
		unsupportedFields: map[string]bool{"stream_options": true, "service_tier": true},
		dropFields:    []string{"frequency_penalty", "presence_penalty"},
		modelPrefixes: []string{"nvidia/", "meta/", "nv-"},
		defaultModel:  "meta/llama-3.1-70b-instruct",
	}
}

// deepSeek has no dedicated Go reference file; grounded on
// original_source's deepseek provider module for the reasoning_content
// field name DeepSeek-R1 uses instead of OpenAI's "reasoning".
func deepSeek() *Vendor {
	return &Vendor{
		id:                  "deepseek",
		baseURL:             "https://api.deepseek.com/v1",
		reasoningFieldOrder: []string{"reasoning_content"},
		toolCallIDPrefix:    "call_",
		modelPrefixes:       []string{"deepseek-"},
		defaultModel:        "deepseek-chat",
	}
}

func siliconFlow() *Vendor {
	return &Vendor{
		id:            "siliconflow",
		baseURL:       "https://api.siliconflow.cn/v1",
		reasoningFieldOrder: []string{"reasoning_content"},
		modelPrefixes: []string{"Qwen/", "deepseek-ai/"},
		defaultModel:  "deepseek-ai/DeepSeek-V3",
	}
}

func together() *Vendor {
	return &Vendor{
		id:            "together",
		baseURL:       "https://api.together.xyz/v1",
		modelPrefixes: []string{"meta-llama/", "mistralai/"},
		defaultModel:  "meta-llama/Llama-3.3-70B-Instruct-Turbo",
	}
}

func fireworks() *Vendor {
	return &Vendor{
		id:            "fireworks",
		baseURL:       "https://api.fireworks.ai/inference/v1",
		modelPrefixes: []string{"accounts/fireworks/"},
		defaultModel:  "accounts/fireworks/models/llama-v3p3-70b-instruct",
	}
}

// miniMax has no dedicated Go reference file; grounded on original_source's
// minimax provider module for the "stream_options" rejection and the
// "call_" tool id convention it shares with OpenAI.
func miniMax() *Vendor {
	return &Vendor{
		id:                "minimaxi",
		baseURL:           "https://api.minimaxi.com/v1",
		unsupportedFields: map[string]bool{"stream_options": true},
		toolCallIDPrefix:  "call_",
		modelPrefixes:     []string{"abab", "MiniMax-"},
		defaultModel:      "MiniMax-Text-01",
	}
}

func moonshot() *Vendor {
	return &Vendor{
		id:            "moonshot",
		baseURL:       "https://api.moonshot.cn/v1",
		modelPrefixes: []string{"moonshot-"},
		defaultModel:  "moonshot-v1-8k",
	}
}

func qwen() *Vendor {
	return &Vendor{
		id:            "qwen",
		baseURL:       "https://dashscope.aliyuncs.com/compatible-mode/v1",
		modelPrefixes: []string{"qwen-"},
		defaultModel:  "qwen-plus",
	}
}

func glm() *Vendor {
	return &Vendor{
		id:                "glm",
		baseURL:           "https://open.bigmodel.cn/api/paas/v4",
		unsupportedFields: map[string]bool{"stream_options": true},
		modelPrefixes:     []string{"glm-"},
		defaultModel:      "glm-4-plus",
	}
}

func doubao() *Vendor {
	return &Vendor{
		id:            "doubao",
		baseURL:       "https://ark.cn-beijing.volces.com/api/v3",
		modelPrefixes: []string{"doubao-"},
		defaultModel:  "doubao-pro-32k",
	}
}

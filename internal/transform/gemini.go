package transform

import (
	"encoding/base64"
	"encoding/json"

	"github.com/siumai/siumai"
)

// GeminiRequest maps a unified ChatRequest into a Gemini generateContent
// wire body. Grounded on internal/providers/gemini.go's
// transformAnthropicToGemini family, run forward from siumai's own types
// instead of from an intercepted Anthropic request.
type GeminiRequest struct{}

func (GeminiRequest) Transform(req siumai.ChatRequest) (map[string]any, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var systemParts []map[string]any
	var contents []map[string]any
	for _, m := range req.Messages {
		if m.Role == siumai.RoleSystem || m.Role == siumai.RoleDeveloper {
			systemParts = append(systemParts, map[string]any{"text": textOf(m.Content)})
			continue
		}
		contents = append(contents, transformGeminiMessage(m))
	}

	body := map[string]any{"contents": contents}
	if len(systemParts) > 0 {
		body["systemInstruction"] = map[string]any{"parts": systemParts}
	}

	genConfig := map[string]any{}
	if req.Temperature != nil {
		genConfig["temperature"] = *req.Temperature
	}
	if req.TopP != nil {
		genConfig["topP"] = *req.TopP
	}
	if req.TopK != nil {
		genConfig["topK"] = *req.TopK
	}
	if req.MaxTokens != nil {
		genConfig["maxOutputTokens"] = *req.MaxTokens
	}
	if len(req.Stop) > 0 {
		genConfig["stopSequences"] = req.Stop
	}
	if len(genConfig) > 0 {
		body["generationConfig"] = genConfig
	}

	if len(req.Tools) > 0 {
		body["tools"] = transformGeminiTools(req.Tools)
	}

	if opts, ok := req.ProviderOptions.(siumai.GeminiOptions); ok {
		if len(opts.SafetySettings) > 0 {
			body["safetySettings"] = opts.SafetySettings
		}
		if opts.CachedContent != "" {
			body["cachedContent"] = opts.CachedContent
		}
		if opts.ThinkingBudget != nil {
			gc, _ := body["generationConfig"].(map[string]any)
			if gc == nil {
				gc = map[string]any{}
				body["generationConfig"] = gc
			}
			gc["thinkingConfig"] = map[string]any{"thinkingBudget": *opts.ThinkingBudget}
		}
	}
	if custom, ok := req.ProviderOptions.(siumai.CustomOptions); ok {
		for k, v := range custom.Data {
			body[k] = v
		}
	}

	return body, nil
}

func transformGeminiMessage(m siumai.Message) map[string]any {
	role := "user"
	if m.Role == siumai.RoleAssistant {
		role = "model"
	}

	if !m.Content.IsMultiModal() {
		return map[string]any{"role": role, "parts": []map[string]any{{"text": m.Content.Text}}}
	}

	var parts []map[string]any
	for _, p := range m.Content.Parts {
		switch part := p.(type) {
		case siumai.TextPart:
			parts = append(parts, map[string]any{"text": part.Text})
		case siumai.ImagePart:
			parts = append(parts, map[string]any{"inlineData": geminiInlineData(part.Source, "image/png")})
		case siumai.ToolCallPart:
			var args map[string]any
			if part.ArgumentsJSON != "" {
				_ = json.Unmarshal([]byte(part.ArgumentsJSON), &args)
			}
			parts = append(parts, map[string]any{"functionCall": map[string]any{"name": part.Name, "args": args}})
		case siumai.ToolResultPart:
			var response any
			if err := json.Unmarshal([]byte(part.OutputJSON), &response); err != nil {
				response = part.OutputJSON
			}
			parts = append(parts, map[string]any{"functionResponse": map[string]any{"name": part.ID, "response": response}})
		}
	}
	return map[string]any{"role": role, "parts": parts}
}

func geminiInlineData(src siumai.MediaSource, mime string) map[string]any {
	switch s := src.(type) {
	case siumai.Base64Source:
		return map[string]any{"mimeType": mime, "data": s.Data}
	case siumai.BinarySource:
		return map[string]any{"mimeType": mime, "data": base64.StdEncoding.EncodeToString(s.Data)}
	case siumai.URLSource:
		return map[string]any{"mimeType": mime, "data": s.URL}
	}
	return nil
}

func transformGeminiTools(tools []siumai.Tool) []map[string]any {
	var decls []map[string]any
	var out []map[string]any
	for _, tool := range tools {
		switch tv := tool.(type) {
		case siumai.FunctionTool:
			decls = append(decls, map[string]any{
				"name":        tv.Name,
				"description": tv.Description,
				"parameters":  convertOpenAPISchemaToGemini(tv.JSONSchema),
			})
		case siumai.ProviderDefinedTool:
			// e.g. google.google_search, google.url_context: placed as their
			// own tool entry rather than a functionDeclaration, per §4.2.
			out = append(out, map[string]any{tv.Name: map[string]any{}})
		}
	}
	if len(decls) > 0 {
		out = append(out, map[string]any{"functionDeclarations": decls})
	}
	return out
}

// GeminiToolWarnings reports the §4.3 warning for mixing a FunctionTool with
// a ProviderDefinedTool in the same request: Gemini accepts both shapes in
// the tools array but only reliably executes one alongside the other, so the
// combination is surfaced to the caller rather than silently sent as-is.
func GeminiToolWarnings(tools []siumai.Tool) []siumai.Warning {
	var hasFunction, hasProviderDefined bool
	for _, tool := range tools {
		switch tool.(type) {
		case siumai.FunctionTool:
			hasFunction = true
		case siumai.ProviderDefinedTool:
			hasProviderDefined = true
		}
	}
	if hasFunction && hasProviderDefined {
		return []siumai.Warning{{
			Kind:    siumai.WarningUnsupportedSetting,
			Setting: "tools",
			Details: "combination of function and provider-defined tools",
		}}
	}
	return nil
}

// convertOpenAPISchemaToGemini recursively uppercases JSON-Schema `type`
// values into Gemini's OpenAPI-schema dialect, grounded on
// internal/handlers/proxy.go's convertOpenAPISchemaToGemini.
func convertOpenAPISchemaToGemini(schema map[string]any) map[string]any {
	if schema == nil {
		return nil
	}
	out := make(map[string]any, len(schema))
	for k, v := range schema {
		switch k {
		case "type":
			if s, ok := v.(string); ok {
				out[k] = geminiUpper(s)
				continue
			}
		case "properties":
			if props, ok := v.(map[string]any); ok {
				converted := make(map[string]any, len(props))
				for pk, pv := range props {
					if pm, ok := pv.(map[string]any); ok {
						converted[pk] = convertOpenAPISchemaToGemini(pm)
					} else {
						converted[pk] = pv
					}
				}
				out[k] = converted
				continue
			}
		case "items":
			if im, ok := v.(map[string]any); ok {
				out[k] = convertOpenAPISchemaToGemini(im)
				continue
			}
		}
		out[k] = v
	}
	return out
}

func geminiUpper(t string) string {
	switch t {
	case "string":
		return "STRING"
	case "number":
		return "NUMBER"
	case "integer":
		return "INTEGER"
	case "boolean":
		return "BOOLEAN"
	case "array":
		return "ARRAY"
	case "object":
		return "OBJECT"
	default:
		return t
	}
}

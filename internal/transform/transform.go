// Package transform maps between siumai's unified ChatRequest/ChatResponse
// and each provider's wire JSON shape (§4.2, §4.3).
package transform

import "github.com/siumai/siumai"

// RequestTransformer maps a unified ChatRequest into provider wire JSON.
// Implementations are pure and stateless; the same transformer instance is
// shared across requests (§3.7).
type RequestTransformer interface {
	Transform(req siumai.ChatRequest) (map[string]any, error)
}

// ResponseTransformer maps a parsed provider response envelope into a
// unified ChatResponse.
type ResponseTransformer interface {
	Transform(wire map[string]any) (siumai.ChatResponse, error)
}

// RequestTransformerFunc adapts a plain function to RequestTransformer.
type RequestTransformerFunc func(req siumai.ChatRequest) (map[string]any, error)

func (f RequestTransformerFunc) Transform(req siumai.ChatRequest) (map[string]any, error) {
	return f(req)
}

// ResponseTransformerFunc adapts a plain function to ResponseTransformer.
type ResponseTransformerFunc func(wire map[string]any) (siumai.ChatResponse, error)

func (f ResponseTransformerFunc) Transform(wire map[string]any) (siumai.ChatResponse, error) {
	return f(wire)
}

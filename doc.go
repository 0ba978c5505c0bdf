// Package siumai is a unified client for large-language-model provider APIs.
//
// It presents one request/response/streaming surface over OpenAI, Anthropic,
// Google Gemini/Vertex, xAI, Groq, Ollama, and the OpenAI-compatible
// aggregators (DeepSeek, SiliconFlow, OpenRouter, Together, Fireworks, ...).
// Provider selection, wire-format translation, and stream transcoding happen
// under the hood; callers build a ChatRequest and get back a ChatResponse or
// a channel of ChatStreamEvent regardless of which provider served it.
package siumai

package httpexec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/siumai/siumai"
	"github.com/siumai/siumai/internal/providerspec"
	"github.com/siumai/siumai/internal/streamconv"
)

// RetryOptions configures the executor's own retry behavior (§4.5 step 5).
// Backoff for 429s is deliberately NOT here — that's additive, left to the
// orchestrator/interceptors per DESIGN.md's Open Question resolution.
type RetryOptions struct {
	Retry401 bool // default true
}

func DefaultRetryOptions() RetryOptions { return RetryOptions{Retry401: true} }

// Config is the executor's construction bundle, the Go shape of §4.5's
// HttpExecutionConfig.
type Config struct {
	ProviderID   string
	HTTPClient   *http.Client
	ProviderSpec providerspec.ProviderSpec
	Context      *providerspec.RequestContext
	Interceptors Chain
	Retry        RetryOptions
	Logger       *slog.Logger
}

// Executor runs the request lifecycle described by §4.5, grounded on
// internal/handlers/proxy.go's ServeHTTP/handleResponse/
// handleStreamingResponse (upstream request construction, decompression,
// status-code branching) generalized from "proxy an inbound request" into
// "execute an outbound request the library itself constructed".
type Executor struct {
	cfg Config
}

func New(cfg Config) *Executor {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Retry == (RetryOptions{}) {
		cfg.Retry = DefaultRetryOptions()
	}
	return &Executor{cfg: cfg}
}

// JSONResult is the outcome of a non-streaming request.
type JSONResult struct {
	JSON    map[string]any
	Status  int
	Headers http.Header
}

// ExecuteJSONRequest implements §4.5's execute_json_request for the
// non-streaming path.
func (e *Executor) ExecuteJSONRequest(url string, body map[string]any, perRequestHeaders http.Header) (*JSONResult, error) {
	info := &RequestInfo{ProviderID: e.cfg.ProviderID, URL: url, Stream: false}

	resp, classifyErr := e.send(info, url, body, perRequestHeaders)
	if classifyErr != nil {
		return nil, classifyErr
	}
	defer resp.Body.Close()

	reader, err := decompressReader(resp)
	if err != nil {
		err := &siumai.LlmError{Kind: siumai.ErrorConnection, Message: "decompression failed: " + err.Error()}
		e.cfg.Interceptors.errorHook(info, err)
		return nil, err
	}
	text, err := io.ReadAll(reader)
	if err != nil {
		err := &siumai.LlmError{Kind: siumai.ErrorConnection, Message: "failed to read response: " + err.Error()}
		e.cfg.Interceptors.errorHook(info, err)
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		llmErr := e.classifyError(resp.StatusCode, string(text), resp.Header)
		e.cfg.Interceptors.errorHook(info, llmErr)
		return nil, llmErr
	}

	var parsed map[string]any
	if err := json.Unmarshal(text, &parsed); err != nil {
		llmErr := ParseErrorFromBody(string(text), err)
		e.cfg.Interceptors.errorHook(info, llmErr)
		return nil, llmErr
	}

	e.cfg.Interceptors.response(info, resp.StatusCode, resp.Header)
	return &JSONResult{JSON: parsed, Status: resp.StatusCode, Headers: resp.Header}, nil
}

// ExecuteStream implements §4.5's streaming dispatch: identical through the
// 401-retry step, then hands frames to conv and returns the accumulated
// events per frame via onEvents. Finalize is invoked on a clean EOF so a
// dropped connection still yields a terminal StreamEnd (§8).
func (e *Executor) ExecuteStream(url string, body map[string]any, perRequestHeaders http.Header, conv streamconv.Converter, onEvents func([]siumai.ChatStreamEvent)) error {
	info := &RequestInfo{ProviderID: e.cfg.ProviderID, URL: url, Stream: true}

	resp, classifyErr := e.sendStreaming(info, url, body, perRequestHeaders)
	if classifyErr != nil {
		return classifyErr
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(resp.Body)
		llmErr := e.classifyError(resp.StatusCode, string(text), resp.Header)
		e.cfg.Interceptors.errorHook(info, llmErr)
		return llmErr
	}
	e.cfg.Interceptors.response(info, resp.StatusCode, resp.Header)

	reader, err := decompressReader(resp)
	if err != nil {
		return &siumai.LlmError{Kind: siumai.ErrorConnection, Message: "decompression failed: " + err.Error()}
	}

	sawDone := false
	scanErr := scanSSE(reader, func(f sseFrame) error {
		e.cfg.Interceptors.sseEvent(info, f.event, f.data)
		if f.done {
			sawDone = true
			onEvents(conv.Finalize())
			return nil
		}
		events, err := conv.Convert(toConverterFrame(f))
		if err != nil {
			return err
		}
		onEvents(events)
		return nil
	})
	if scanErr != nil {
		onEvents(conv.Finalize())
		return &siumai.LlmError{Kind: siumai.ErrorStream, Message: scanErr.Error()}
	}
	if !sawDone {
		if events := conv.Finalize(); len(events) > 0 {
			onEvents(events)
		}
	}
	return nil
}

// send runs the request/401-retry protocol (§4.5 step 5) common to both
// the JSON and streaming paths.
func (e *Executor) send(info *RequestInfo, url string, body map[string]any, perRequestHeaders http.Header) (*http.Response, *siumai.LlmError) {
	resp, err := e.doRequest(info, url, body, perRequestHeaders)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized && e.cfg.Retry.Retry401 {
		resp.Body.Close()
		e.cfg.Interceptors.retry(info, resp.StatusCode)
		resp, err = e.doRequest(info, url, body, perRequestHeaders)
		if err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func (e *Executor) sendStreaming(info *RequestInfo, url string, body map[string]any, perRequestHeaders http.Header) (*http.Response, *siumai.LlmError) {
	return e.send(info, url, body, perRequestHeaders)
}

// doRequest builds headers via the provider spec, runs before-send
// interceptors, and fires the HTTP request (§4.5 steps 1-4).
func (e *Executor) doRequest(info *RequestInfo, url string, body map[string]any, perRequestHeaders http.Header) (*http.Response, *siumai.LlmError) {
	headers, err := e.cfg.ProviderSpec.BuildHeaders(e.cfg.Context)
	if err != nil {
		llmErr := asLlmError(err)
		e.cfg.Interceptors.errorHook(info, llmErr)
		return nil, llmErr
	}
	if perRequestHeaders != nil {
		headers = e.cfg.ProviderSpec.MergeRequestHeaders(headers, perRequestHeaders)
	}

	if err := e.cfg.Interceptors.beforeSend(info, headers, body); err != nil {
		llmErr := asLlmError(err)
		e.cfg.Interceptors.errorHook(info, llmErr)
		return nil, llmErr
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		llmErr := &siumai.LlmError{Kind: siumai.ErrorParse, Message: "failed to encode request body: " + err.Error()}
		e.cfg.Interceptors.errorHook(info, llmErr)
		return nil, llmErr
	}

	httpReq, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		llmErr := &siumai.LlmError{Kind: siumai.ErrorInternal, Message: fmt.Sprintf("failed to build request: %v", err)}
		e.cfg.Interceptors.errorHook(info, llmErr)
		return nil, llmErr
	}
	httpReq.Header = headers
	if e.cfg.Context != nil && e.cfg.Context.Context != nil {
		httpReq = httpReq.WithContext(e.cfg.Context.Context)
	}

	resp, err := e.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		llmErr := &siumai.LlmError{Kind: siumai.ErrorConnection, Message: err.Error()}
		e.cfg.Interceptors.errorHook(info, llmErr)
		return nil, llmErr
	}
	return resp, nil
}

func (e *Executor) classifyError(status int, body string, headers http.Header) *siumai.LlmError {
	if e.cfg.ProviderSpec != nil {
		if err := e.cfg.ProviderSpec.ClassifyHTTPError(status, body, headers); err != nil {
			return err
		}
	}
	return ClassifyHTTPError(status, body, headers)
}

func asLlmError(err error) *siumai.LlmError {
	var llmErr *siumai.LlmError
	if errors.As(err, &llmErr) {
		return llmErr
	}
	return &siumai.LlmError{Kind: siumai.ErrorInternal, Message: err.Error()}
}

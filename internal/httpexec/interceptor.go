package httpexec

import (
	"log/slog"
	"net/http"

	"github.com/siumai/siumai"
)

// Interceptor is the shared, ordered chain of read-mostly observers named
// by §4.6. Generalized from internal/middleware/chain.go's http.Handler-
// wrapping Middleware into before/after-send hooks, since the library calls
// *out* to a provider rather than serving inbound requests — there is no
// http.Handler to wrap, only a request/response/error/SSE-frame lifecycle
// to observe.
//
// Every method has a default no-op; embed Base to implement only the hooks
// you need.
type Interceptor interface {
	// OnBeforeSend may mutate headers/body before the request is sent. An
	// error here aborts the request (§4.6).
	OnBeforeSend(ctx *RequestInfo, headers http.Header, body map[string]any) error
	// OnRetry fires once, right before the single 401 retry (§4.5 step 5).
	OnRetry(ctx *RequestInfo, status int)
	// OnResponse fires on a successful (2xx) response.
	OnResponse(ctx *RequestInfo, status int, headers http.Header)
	// OnError fires on a classified failure. Errors from this hook are
	// absorbed (logged), never surfaced to the caller (§4.6).
	OnError(ctx *RequestInfo, err *siumai.LlmError)
	// OnSSEEvent fires once per parsed SSE frame on the streaming path.
	OnSSEEvent(ctx *RequestInfo, event string, data []byte)
}

// RequestInfo is the read-only context passed to every interceptor hook.
type RequestInfo struct {
	ProviderID string
	URL        string
	Stream     bool
}

// Base implements Interceptor with no-ops; embed it to override selectively,
// the same "implement only what you need" shape as a Middleware function
// type composed via Chain.
type Base struct{}

func (Base) OnBeforeSend(*RequestInfo, http.Header, map[string]any) error { return nil }
func (Base) OnRetry(*RequestInfo, int)                                    {}
func (Base) OnResponse(*RequestInfo, int, http.Header)                    {}
func (Base) OnError(*RequestInfo, *siumai.LlmError)                       {}
func (Base) OnSSEEvent(*RequestInfo, string, []byte)                      {}

// Chain runs an ordered list of Interceptors, the out-of-process analogue
// of internal/middleware.Chain.
type Chain struct {
	interceptors []Interceptor
	logger       *slog.Logger
}

func NewChain(logger *slog.Logger, interceptors ...Interceptor) Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return Chain{interceptors: interceptors, logger: logger}
}

func (c Chain) Then(more ...Interceptor) Chain {
	return Chain{interceptors: append(append([]Interceptor{}, c.interceptors...), more...), logger: c.logger}
}

func (c Chain) beforeSend(ctx *RequestInfo, headers http.Header, body map[string]any) error {
	for _, i := range c.interceptors {
		if err := i.OnBeforeSend(ctx, headers, body); err != nil {
			return err
		}
	}
	return nil
}

func (c Chain) retry(ctx *RequestInfo, status int) {
	for _, i := range c.interceptors {
		i.OnRetry(ctx, status)
	}
}

func (c Chain) response(ctx *RequestInfo, status int, headers http.Header) {
	for _, i := range c.interceptors {
		i.OnResponse(ctx, status, headers)
	}
}

// errorHook notifies all interceptors of a classified error, recovering
// and logging (not propagating) any panic or would-be error from a hook —
// "errors from other callbacks are absorbed (logged) and never mask
// request failures" (§4.6).
func (c Chain) errorHook(ctx *RequestInfo, err *siumai.LlmError) {
	for _, i := range c.interceptors {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.logger.Error("interceptor OnError panicked", "recover", r)
				}
			}()
			i.OnError(ctx, err)
		}()
	}
}

func (c Chain) sseEvent(ctx *RequestInfo, event string, data []byte) {
	for _, i := range c.interceptors {
		i.OnSSEEvent(ctx, event, data)
	}
}

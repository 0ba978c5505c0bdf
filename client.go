package siumai

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/siumai/siumai/internal/config"
	"github.com/siumai/siumai/internal/httpexec"
	"github.com/siumai/siumai/internal/modelalias"
	"github.com/siumai/siumai/internal/providerspec"
	"github.com/siumai/siumai/internal/registry"
	"github.com/siumai/siumai/internal/tokencount"
)

// globalRegistry is the process-wide provider record store (§4.11): one
// shared Registry, filled with the built-in providers once at package init
// rather than reconstructed per Client.
var globalRegistry = registry.New()

// globalDefaults holds hot-swappable base-URL and default-model overrides,
// consulted by NewClient/normalize so ConfigureBaseURL/ConfigureDefaultModel
// take effect for every Client subsequently constructed, without touching
// the registry records themselves.
var globalDefaults = config.NewManager()

func init() {
	globalRegistry.EnsureBuiltins()
}

// ConfigureBaseURL overrides the base URL a provider id or alias resolves
// to, e.g. to route a provider through a corporate egress proxy. Takes
// effect for every Client constructed via NewClient afterward; safe to call
// while other goroutines are mid-request.
func ConfigureBaseURL(providerID, baseURL string) {
	if rec, ok := globalRegistry.Get(providerID); ok {
		providerID = rec.ID
	}
	globalDefaults.SetBaseURL(providerID, baseURL)
}

// ConfigureDefaultModel overrides the model Generate/GenerateStream use
// when the caller leaves ChatRequest.Model empty, e.g. to roll a fleet
// forward to a new model version without redeploying callers.
func ConfigureDefaultModel(providerID, model string) {
	globalDefaults.SetDefaultModel(providerID, model)
}

// RegisterProvider adds or overrides a provider entry in the global
// registry, e.g. a self-hosted OpenAI-compatible endpoint or a pinned
// provider base URL.
func RegisterProvider(id, baseURL string, adapter providerspec.Adapter) {
	spec := providerspec.NewCompat(globalRegistry)
	globalRegistry.Register(registry.Record{
		ID: id, Name: id, BaseURL: baseURL,
		Capabilities: map[providerspec.Capability]bool{
			providerspec.CapChat: true, providerspec.CapStreaming: true, providerspec.CapTools: true,
		},
		Spec: spec, Adapter: adapter,
	})
}

// Client is a bound connection to one provider: its ProviderSpec, the
// credential to present, and the transport/observability knobs threaded
// through to internal/httpexec. Grounded on internal/providers's per-
// provider Provider interface generalized from "one instance per inbound
// proxy route" into "one instance per caller-held client handle".
type Client struct {
	rec *registry.Record

	apiKey          string
	token           providerspec.TokenProvider
	httpClient      *http.Client
	interceptors    httpexec.Chain
	logger          *slog.Logger
	retry           httpexec.RetryOptions
	aliasModel      bool
	baseURLOverride string
	defaultModel    string
}

// ClientOption configures a Client at construction time.
type ClientOption func(*Client)

// WithAPIKey sets the static API key BuildHeaders sends, in whatever header
// the provider expects (a bearer token, or e.g. Anthropic's x-api-key).
func WithAPIKey(key string) ClientOption {
	return func(c *Client) { c.apiKey = key }
}

// WithTokenProvider supplies a dynamic credential source (e.g. Vertex ADC),
// consulted by BuildHeaders when APIKey is empty.
func WithTokenProvider(tp providerspec.TokenProvider) ClientOption {
	return func(c *Client) { c.token = tp }
}

// WithHTTPClient overrides the transport used for every request.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithInterceptors installs the observability/retry hook chain (§4.6).
func WithInterceptors(interceptors ...httpexec.Interceptor) ClientOption {
	return func(c *Client) { c.interceptors = httpexec.NewChain(c.logger, interceptors...) }
}

// WithLogger overrides the default slog.Default() logger interceptors log
// through.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// WithRetryOptions overrides the executor's own retry behavior (§4.5 step
// 5); default is DefaultRetryOptions().
func WithRetryOptions(r httpexec.RetryOptions) ClientOption {
	return func(c *Client) { c.retry = r }
}

// WithModelAliasing enables internal/modelalias normalization of the
// request's Model field before it reaches the transformer, e.g. letting a
// caller pass "r1" to a DeepSeek client and have it resolved to
// "deepseek-reasoner". Off by default since most callers pass canonical ids.
func WithModelAliasing() ClientOption {
	return func(c *Client) { c.aliasModel = true }
}

// NewClient builds a Client bound to the named provider or alias (e.g.
// "openai", "claude", "deepseek", "openrouter"), looked up in the global
// registry populated by EnsureBuiltins plus any RegisterProvider calls.
func NewClient(provider string, opts ...ClientOption) (*Client, error) {
	rec, ok := globalRegistry.Get(provider)
	if !ok {
		return nil, NewError(ErrorNotFound, "unknown provider "+provider)
	}
	c := &Client{
		rec:        rec,
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
		retry:      httpexec.DefaultRetryOptions(),
	}
	if url, ok := globalDefaults.BaseURL(rec.ID); ok {
		c.baseURLOverride = url
	}
	if model, ok := globalDefaults.DefaultModel(rec.ID); ok {
		c.defaultModel = model
	} else {
		c.defaultModel = rec.DefaultModel
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// ProviderID returns the registry id this client is bound to.
func (c *Client) ProviderID() string { return c.rec.ID }

func (c *Client) baseURL() string {
	if c.baseURLOverride != "" {
		return c.baseURLOverride
	}
	return c.rec.BaseURL
}

func (c *Client) requestContext(ctx context.Context) *providerspec.RequestContext {
	return &providerspec.RequestContext{
		Context:    ctx,
		ProviderID: c.rec.ID,
		APIKey:     c.apiKey,
		Token:      c.token,
		BaseURL:    c.baseURL(),
	}
}

func (c *Client) executor(reqCtx *providerspec.RequestContext) *httpexec.Executor {
	return httpexec.New(httpexec.Config{
		ProviderID:   c.rec.ID,
		HTTPClient:   c.httpClient,
		ProviderSpec: c.rec.Spec,
		Context:      reqCtx,
		Interceptors: c.interceptors,
		Retry:        c.retry,
		Logger:       c.logger,
	})
}

// logEstimatedTokens reports an advisory cl100k_base token estimate at
// Debug level before the request goes out. It is never authoritative:
// the provider's own Usage in the response is what callers should trust.
func (c *Client) logEstimatedTokens(ctx context.Context, req ChatRequest) {
	if c.logger == nil || !c.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	var total int
	for _, m := range req.Messages {
		if m.Content.IsMultiModal() {
			for _, p := range m.Content.Parts {
				if tp, ok := p.(TextPart); ok {
					total += tokencount.Estimate(tp.Text)
				}
			}
			continue
		}
		total += tokencount.Estimate(m.Content.Text)
	}
	c.logger.Debug("estimated prompt tokens", "provider", c.rec.ID, "model", req.Model, "estimated_tokens", total)
}

func (c *Client) normalize(req ChatRequest) (ChatRequest, error) {
	if req.Model == "" {
		req.Model = c.defaultModel
	}
	if c.aliasModel {
		req.Model = modelalias.Normalize(c.rec.ID, req.Model)
	}
	if err := req.Validate(); err != nil {
		return req, err
	}
	return req, nil
}

// Generate implements orchestrator.ModelCaller: one non-streaming chat call
// through this client's bound provider.
func (c *Client) Generate(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	req.Stream = false
	req, err := c.normalize(req)
	if err != nil {
		return ChatResponse{}, err
	}
	c.logEstimatedTokens(ctx, req)

	reqCtx := c.requestContext(ctx)
	bundle, err := c.rec.Spec.ChooseChatTransformers(req, reqCtx)
	if err != nil {
		return ChatResponse{}, err
	}
	url, err := c.rec.Spec.ChatURL(false, req, reqCtx)
	if err != nil {
		return ChatResponse{}, err
	}
	body, err := bundle.Request.Transform(req)
	if err != nil {
		return ChatResponse{}, err
	}
	body, err = c.rec.Spec.ChatBeforeSend(body, req, reqCtx)
	if err != nil {
		return ChatResponse{}, err
	}

	result, err := c.executor(reqCtx).ExecuteJSONRequest(url, body, nil)
	if err != nil {
		return ChatResponse{}, err
	}
	return bundle.Response.Transform(result.JSON)
}

// GenerateStream implements orchestrator.StreamCaller: a streaming chat
// call, forwarding converted events to the returned channel as frames
// arrive. The channel is closed once the stream terminates (cleanly or via
// a final ErrorEvent, per §8).
func (c *Client) GenerateStream(ctx context.Context, req ChatRequest) (<-chan ChatStreamEvent, error) {
	req.Stream = true
	req, err := c.normalize(req)
	if err != nil {
		return nil, err
	}
	c.logEstimatedTokens(ctx, req)

	reqCtx := c.requestContext(ctx)
	bundle, err := c.rec.Spec.ChooseChatTransformers(req, reqCtx)
	if err != nil {
		return nil, err
	}
	if bundle.Stream == nil {
		return nil, NewError(ErrorUnsupported, "provider "+c.rec.ID+" has no stream converter for this request")
	}
	url, err := c.rec.Spec.ChatURL(true, req, reqCtx)
	if err != nil {
		return nil, err
	}
	body, err := bundle.Request.Transform(req)
	if err != nil {
		return nil, err
	}
	body, err = c.rec.Spec.ChatBeforeSend(body, req, reqCtx)
	if err != nil {
		return nil, err
	}

	events := make(chan ChatStreamEvent)
	go func() {
		defer close(events)
		exec := c.executor(reqCtx)
		err := exec.ExecuteStream(url, body, nil, bundle.Stream, func(batch []ChatStreamEvent) {
			for _, e := range batch {
				select {
				case events <- e:
				case <-ctx.Done():
					return
				}
			}
		})
		if err != nil {
			select {
			case events <- ErrorEvent{Err: err}:
			case <-ctx.Done():
			}
		}
	}()
	return events, nil
}

package beestat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"
)

// DefaultEndpoint is the Beestat API endpoint.
const DefaultEndpoint = "https://api.beestat.io/"

// DefaultTimeout bounds a single call when Options.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 10 << 20

// Logger is the structured logger used by the client.
// *slog.Logger and *logging.Logger satisfy it.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
}

// Caller performs one Beestat API call. *Client implements it; tests
// substitute fakes.
type Caller interface {
	Call(ctx context.Context, resource, method string, arguments map[string]any) (json.RawMessage, error)
}

// Options configures a Client.
type Options struct {
	// APIKey is required. It is sent with every request and never logged.
	APIKey string

	// Endpoint defaults to DefaultEndpoint.
	Endpoint string

	// Timeout bounds each call. Defaults to DefaultTimeout.
	Timeout time.Duration

	// HTTPClient defaults to a client with no overall timeout; the
	// per-call context deadline applies instead.
	HTTPClient *http.Client

	// Logger is optional.
	Logger Logger
}

// Client calls the Beestat JSON-RPC style API.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Client struct {
	endpoint   string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	logger     Logger
}

// NewClient creates a Beestat API client.
//
// Returns:
//   - *Client: Ready to use
//   - error: ErrNoAPIKey if opts.APIKey is empty
func NewClient(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	c := &Client{
		endpoint:   opts.Endpoint,
		apiKey:     opts.APIKey,
		timeout:    opts.Timeout,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
	}
	if c.endpoint == "" {
		c.endpoint = DefaultEndpoint
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	return c, nil
}

// request is the wire form of a call. Beestat expects arguments as a JSON
// string, not a nested object.
type request struct {
	APIKey    string `json:"api_key"`
	Resource  string `json:"resource"`
	Method    string `json:"method"`
	Arguments string `json:"arguments"`
}

// envelope is the wire form of a response.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

// apiKeyMessage matches API error messages saying the key itself is bad.
// Other messages that merely mention the key (quotas, rate limits) do not
// match.
var apiKeyMessage = regexp.MustCompile(
	`(?i)(invalid|unknown|revoked|expired|bad)\W+api[ _-]?key` +
		`|api[ _-]?key\W+(is\s+)?(not valid|invalid|unknown|revoked|expired|not found)`)

// Call invokes resource.method with arguments and returns the data member
// of the response envelope.
//
// Parameters:
//   - ctx: Cancels the request; the client's timeout is applied on top
//   - resource, method: e.g. "thermostat", "read"
//   - arguments: Serialized as JSON text; nil sends "{}"
//
// Returns:
//   - json.RawMessage: The envelope's data member
//   - error: *Error wrapping ErrAuth, ErrAPI or ErrTransport
func (c *Client) Call(ctx context.Context, resource, method string, arguments map[string]any) (json.RawMessage, error) {
	fail := func(kind error, status int, msg string, cause error) error {
		return &Error{Kind: kind, Resource: resource, Method: method, Status: status, Message: msg, Err: cause}
	}

	if arguments == nil {
		arguments = map[string]any{}
	}
	args, err := json.Marshal(arguments)
	if err != nil {
		return nil, fail(ErrAPI, 0, "encoding arguments", err)
	}
	body, err := json.Marshal(request{
		APIKey:    c.apiKey,
		Resource:  resource,
		Method:    method,
		Arguments: string(args),
	})
	if err != nil {
		return nil, fail(ErrAPI, 0, "encoding request", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fail(ErrTransport, 0, "building request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		cause := redactURLError(err)
		c.warn("beestat request failed", "resource", resource, "method", method, "error", cause)
		return nil, fail(ErrTransport, 0, "", cause)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fail(ErrTransport, resp.StatusCode, "reading response", err)
	}

	c.debug("beestat response",
		"resource", resource,
		"method", method,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fail(ErrAuth, resp.StatusCode, errorMessage(raw), nil)
	case resp.StatusCode >= 500:
		return nil, fail(ErrTransport, resp.StatusCode, errorMessage(raw), nil)
	case resp.StatusCode >= 400:
		return nil, fail(ErrAPI, resp.StatusCode, errorMessage(raw), nil)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fail(ErrTransport, resp.StatusCode, "unexpected status", nil)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fail(ErrTransport, resp.StatusCode, "response is not a JSON object", err)
	}

	msg := envelopeMessage(env)
	if env.Success == nil && msg == "" {
		return nil, fail(ErrTransport, resp.StatusCode, "response has no success flag", nil)
	}
	if msg != "" || !*env.Success {
		if msg == "" {
			msg = "success=false"
		}
		if apiKeyMessage.MatchString(msg) {
			return nil, fail(ErrAuth, resp.StatusCode, msg, nil)
		}
		return nil, fail(ErrAPI, resp.StatusCode, msg, nil)
	}

	return env.Data, nil
}

// ReadThermostats calls thermostat.read and returns its data member.
func (c *Client) ReadThermostats(ctx context.Context) (json.RawMessage, error) {
	return c.Call(ctx, "thermostat", "read", nil)
}

// ValidateKey makes a lightweight call to check the key is accepted.
// It returns nil or an *Error; ErrAuth means the key was rejected.
func (c *Client) ValidateKey(ctx context.Context) error {
	_, err := c.ReadThermostats(ctx)
	return err
}

// envelopeMessage returns the error text of an envelope: the error member
// first, then data.error_message or data.error_code.
func envelopeMessage(env envelope) string {
	if s := messageText(env.Error); s != "" {
		return s
	}
	if env.Success != nil && *env.Success {
		return ""
	}
	var detail struct {
		ErrorMessage json.RawMessage `json:"error_message"`
		ErrorCode    json.RawMessage `json:"error_code"`
	}
	if json.Unmarshal(env.Data, &detail) == nil {
		if s := messageText(detail.ErrorMessage); s != "" {
			return s
		}
		if s := messageText(detail.ErrorCode); s != "" {
			return "error code " + s
		}
	}
	var text string
	if json.Unmarshal(env.Data, &text) == nil {
		return text
	}
	return ""
}

// errorMessage extracts error text from a non-2xx body, falling back to
// a truncated copy of the body.
func errorMessage(raw []byte) string {
	var env envelope
	if json.Unmarshal(raw, &env) == nil {
		if s := envelopeMessage(env); s != "" {
			return s
		}
	}
	const limit = 200
	s := string(bytes.TrimSpace(raw))
	if len(s) > limit {
		s = s[:limit]
	}
	return s
}

// messageText renders a JSON string, number or object as text. false, null
// and empty strings yield "".
func messageText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte("false")) {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}

// redactURLError drops the *url.Error wrapper so logs carry only the cause
// and not the configured endpoint.
func redactURLError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Err != nil {
		return uerr.Err
	}
	return err
}

func (c *Client) debug(msg string, kv ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, kv...)
	}
}

func (c *Client) warn(msg string, kv ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, kv...)
	}
}

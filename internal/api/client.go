package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	pkgerrors "github.com/walidbr/stockdeck/pkg/errors"
	"github.com/walidbr/stockdeck/pkg/logger"
)

const (
	defaultTimeout              = 10 * time.Second
	requestIDHeader             = "X-Request-Id"
	errorBodyReadLimit    int64 = 4096
	genericFailureMessage       = "request failed"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// TokenSource supplies the bearer credential for authenticated calls. The
// client takes a fresh read on every request rather than caching, so a
// Login or Logout elsewhere is visible immediately.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client wraps the dashboard REST backend with centralized auth, logging,
// request ids, and error mapping.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
	logg       *logger.Logger
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient builds the backend client given the API base URL.
func NewClient(baseURL string, tokens TokenSource, logg *logger.Logger, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("api base url is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token source is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}

	client := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    trimmed,
		tokens:     tokens,
		logg:       logg,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

type requestSpec struct {
	method string
	path   string
	body   any
	authed bool
	// fallback is reported when the backend gives no usable error message.
	fallback string
}

// do executes one backend call and decodes the response into out when out is
// non-nil. Non-2xx responses become coded errors carrying the backend's
// message when one is present.
func (c *Client) do(ctx context.Context, spec requestSpec, out any) error {
	var payload io.Reader
	if spec.body != nil {
		encoded, err := json.Marshal(spec.body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal request body")
		}
		payload = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, spec.method, c.buildURL(spec.path), payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build request")
	}
	if spec.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	reqID := uuid.NewString()
	req.Header.Set(requestIDHeader, reqID)
	ctx = c.logg.WithRequestID(ctx, reqID)
	ctx = c.logg.WithOperation(ctx, fmt.Sprintf("%s %s", spec.method, spec.path))

	if spec.authed {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read credential")
		}
		if token == "" {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "no credential stored")
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.errorFromResponse(ctx, resp, spec.fallback)
	}

	if out == nil {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode response")
	}
	return nil
}

func (c *Client) errorFromResponse(ctx context.Context, resp *http.Response, fallback string) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))

	message := serverMessage(raw)
	if message == "" {
		message = fallback
	}
	if message == "" {
		message = genericFailureMessage
	}

	code := pkgerrors.FromStatus(resp.StatusCode)
	ctx = c.logg.WithField(ctx, "status", resp.StatusCode)
	c.logg.Debug(ctx, "backend returned an error response")

	return pkgerrors.New(code, message).WithDetails(map[string]any{
		"status": resp.StatusCode,
	})
}

// serverMessage pulls the human-readable message out of the backend's error
// payload. The backend is inconsistent: some routes use {"error": "..."},
// others {"message": "..."}.
func serverMessage(raw []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if strings.TrimSpace(body.Error) != "" {
		return strings.TrimSpace(body.Error)
	}
	return strings.TrimSpace(body.Message)
}

func (c *Client) buildURL(path string) string {
	return fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(path, "/"))
}

func validatePayload(payload any) error {
	if err := validate.Struct(payload); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			details := map[string]string{}
			for _, fieldErr := range errs {
				details[fieldErr.Field()] = fieldErr.Tag()
			}
			return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	return nil
}

package gemini

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dumebi/healthchat/pkg/types"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-2.0-flash"
)

// ErrNoAPIKey is returned when a request is attempted without a key. The
// orchestrator checks readiness first, so hitting this means a race or a
// misconfigured caller.
var ErrNoAPIKey = errors.New("gemini: no api key available")

// KeyProvider supplies the API key at request time so keys submitted through
// the UI take effect without restarting.
type KeyProvider interface {
	Get() (string, bool)
}

type Client struct {
	baseURL string
	keys    KeyProvider
	log     *slog.Logger
	client  *http.Client
}

func NewClient(baseURL string, keys KeyProvider, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: trimSlash(baseURL),
		keys:    keys,
		log:     log,
		client:  &http.Client{Timeout: 240 * time.Second}, // streams can run long
	}
}

// Content is one turn in the provider's wire format. Roles are "user" and
// "model"; assistant messages must be remapped before building a request.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type Part struct {
	Text string `json:"text"`
}

// FromMessages converts stored conversation history into provider turns.
func FromMessages(history []types.Message) []Content {
	out := make([]Content, 0, len(history))
	for _, m := range history {
		role := "user"
		if m.Role == types.RoleAssistant {
			role = "model"
		}
		out = append(out, Content{Role: role, Parts: []Part{{Text: m.Content}}})
	}
	return out
}

// UserContent wraps a single prompt as a user turn.
func UserContent(text string) Content {
	return Content{Role: "user", Parts: []Part{{Text: text}}}
}

type generateRequest struct {
	Contents         []Content              `json:"contents"`
	GenerationConfig types.GenerationConfig `json:"generationConfig"`
	SafetySettings   []types.SafetySetting  `json:"safetySettings"`
}

type streamChunk struct {
	Candidates []struct {
		Content struct {
			Parts []Part `json:"parts"`
			Role  string `json:"role"`
		} `json:"content"`
	} `json:"candidates"`
}

type errorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// APIError is a non-2xx reply from the provider.
type APIError struct {
	Code    int
	Status  string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini: %d %s: %s", e.Code, e.Status, e.Message)
}

// IsOverloaded reports whether err is the transient-overload condition worth
// retrying. Structured status code is checked when available; otherwise the
// combined error text is matched loosely, same as the provider's older
// clients did.
func IsOverloaded(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusServiceUnavailable &&
			strings.Contains(strings.ToLower(apiErr.Message), "overloaded")
	}
	text := strings.ToLower(err.Error())
	return strings.Contains(text, "503") && strings.Contains(text, "overloaded")
}

// ChatSession is the continuation handle returned with every successful
// completion. It holds a client-side replay of the turns sent so far;
// callers treat it as opaque and drop it when the conversation ends.
type ChatSession struct {
	model    string
	contents []Content
}

func NewChatSession(model string, contents []Content) *ChatSession {
	return &ChatSession{model: model, contents: contents}
}

func (s *ChatSession) Model() string { return s.model }
func (s *ChatSession) Turns() int    { return len(s.contents) }

// Stream is a lazy, finite, non-restartable sequence of text fragments.
// Recv returns io.EOF once the provider closes the stream.
type Stream struct {
	body io.ReadCloser
	sc   *bufio.Scanner
}

func newStream(body io.ReadCloser) *Stream {
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	return &Stream{body: body, sc: sc}
}

// Recv returns the next text fragment. Chunks without extractable text are
// skipped without error.
func (s *Stream) Recv() (string, error) {
	for s.sc.Scan() {
		line := strings.TrimSpace(s.sc.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}
		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return "", fmt.Errorf("gemini: decode stream chunk: %w", err)
		}
		if text := chunkText(chunk); text != "" {
			return text, nil
		}
	}
	if err := s.sc.Err(); err != nil {
		return "", fmt.Errorf("gemini: read stream: %w", err)
	}
	return "", io.EOF
}

func (s *Stream) Close() error { return s.body.Close() }

func chunkText(c streamChunk) string {
	if len(c.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range c.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// StreamGenerate issues one streaming completion via
// POST /v1beta/models/{model}:streamGenerateContent?alt=sse.
func (c *Client) StreamGenerate(ctx context.Context, model string, contents []Content) (*Stream, error) {
	key, ok := c.keys.Get()
	if !ok {
		return nil, ErrNoAPIKey
	}
	if model == "" {
		model = DefaultModel
	}

	payload := generateRequest{
		Contents:         contents,
		GenerationConfig: types.DefaultGenerationConfig(),
		SafetySettings:   types.DefaultSafetySettings(),
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("gemini: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse", c.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("gemini: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", key)

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini: send request: %w", err)
	}
	if res.StatusCode >= 400 {
		defer res.Body.Close()
		return nil, readAPIError(res)
	}
	return newStream(res.Body), nil
}

// ListModels lists available model names via GET /v1beta/models.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	key, ok := c.keys.Get()
	if !ok {
		return nil, ErrNoAPIKey
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/v1beta/models", c.baseURL), nil)
	if err != nil {
		return nil, fmt.Errorf("gemini: create request: %w", err)
	}
	req.Header.Set("X-Goog-Api-Key", key)

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini: send request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return nil, readAPIError(res)
	}
	var out struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("gemini: decode models: %w", err)
	}
	names := make([]string, 0, len(out.Models))
	for _, m := range out.Models {
		names = append(names, strings.TrimPrefix(m.Name, "models/"))
	}
	return names, nil
}

func readAPIError(res *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 1<<16))
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Error.Message != "" {
		code := eb.Error.Code
		if code == 0 {
			code = res.StatusCode
		}
		return &APIError{Code: code, Status: eb.Error.Status, Message: eb.Error.Message}
	}
	return &APIError{Code: res.StatusCode, Status: res.Status, Message: string(body)}
}

func trimSlash(s string) string {
	if len(s) > 0 && s[len(s)-1] == '/' {
		return s[:len(s)-1]
	}
	return s
}

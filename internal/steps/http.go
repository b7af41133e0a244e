package steps

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	StepTypeHTTP = "http"

	defaultHTTPTimeout = 30 * time.Second

	// maxResponseBody — сколько байт ответа читается в Outputs.
	maxResponseBody = 1 << 20
)

// HTTPStep отправляет HTTP-запрос: webhook, health-check, деплой-хук.
//
//	http:
//	  method: POST
//	  url: "https://ci.example.com/hooks/{{ .Task }}"
//	  headers: {Authorization: "Bearer {{ .Env.CI_TOKEN }}"}
//	  body: {task: "{{ .Task }}"}
//	  timeout: 10s
//	  allow_failure: true
//
// Статус 4xx/5xx без allow_failure возвращается как *HTTPError.
// body-строка отправляется как есть, прочие значения в JSON.
type HTTPStep struct {
	client *http.Client
}

func NewHTTPStep() *HTTPStep {
	return &HTTPStep{client: &http.Client{}}
}

func (s *HTTPStep) Type() string { return StepTypeHTTP }

func (s *HTTPStep) Execute(ctx context.Context, req *Request) (*Response, error) {
	cfg := req.Config

	url := cfg.String("url")
	if url == "" {
		return nil, fmt.Errorf("%w: %s: url is required", ErrInvalidConfig, StepTypeHTTP)
	}
	method := strings.ToUpper(cfg.String("method"))
	if method == "" {
		method = http.MethodGet
	}

	timeout, _, err := cfg.Duration("timeout", "timeout_ms")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StepTypeHTTP, err)
	}
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	if timeout == 0 {
		timeout = defaultHTTPTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := newHTTPRequest(ctx, method, url, cfg)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, cancelled(ctx)
		}
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	fmt.Fprintf(req.stdout(), "%s %s -> %d\n", method, url, resp.StatusCode)

	if resp.StatusCode >= http.StatusBadRequest && !cfg.Bool("allow_failure", false) {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(raw)}
	}

	return respond(map[string]any{
		"status_code": resp.StatusCode,
		"body":        decodeBody(resp.Header.Get("Content-Type"), raw),
	}), nil
}

func newHTTPRequest(ctx context.Context, method, url string, cfg Config) (*http.Request, error) {
	var body io.Reader
	contentType := ""

	switch v := cfg["body"].(type) {
	case nil:
	case string:
		body = strings.NewReader(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: body: %v", ErrInvalidConfig, StepTypeHTTP, err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, StepTypeHTTP, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range cfg.StringMap("headers") {
		req.Header.Set(k, v)
	}
	return req, nil
}

// decodeBody возвращает JSON-ответ как значение, прочее как строку.
func decodeBody(contentType string, raw []byte) any {
	if strings.Contains(contentType, "json") {
		var v any
		if err := json.Unmarshal(raw, &v); err == nil {
			return v
		}
	}
	return string(raw)
}

// HTTPError — ответ с кодом 4xx/5xx.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}

// IsHTTPError сообщает, содержит ли err *HTTPError.
func IsHTTPError(err error) bool {
	var he *HTTPError
	return errors.As(err, &he)
}

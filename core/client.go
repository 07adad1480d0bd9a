package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.weixin.qq.com"
	DefaultTimeout = 10 * time.Second
)

type ClientConfig struct {
	BaseURL       string
	HTTPClient    *http.Client
	Timeout       time.Duration
	TokenProvider AccessTokenProvider
	Logger        *slog.Logger
}

type Client struct {
	httpClient    *http.Client
	baseURL       *url.URL
	tokenProvider AccessTokenProvider
	logger        *slog.Logger
}

// Response 原始 HTTP 响应
type Response struct {
	StatusCode int
	Body       []byte
}

func NewClient(cfg ClientConfig) (*Client, error) {
	baseURL := strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	parsedBaseURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, NewError(ErrConfig, "parse base url", err)
	}
	if parsedBaseURL.Scheme == "" || parsedBaseURL.Host == "" {
		return nil, NewError(ErrConfig, "parse base url", fmt.Errorf("base url %q must be absolute", baseURL))
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient:    httpClient,
		baseURL:       parsedBaseURL,
		tokenProvider: cfg.TokenProvider,
		logger:        logger,
	}, nil
}

func (c *Client) Request() *RequestBuilder {
	return newRequestBuilder(c)
}

// buildParams 合并查询参数并按需追加 access_token，返回拷贝
func (c *Client) buildParams(ctx context.Context, query map[string]string, withToken bool) (map[string]string, error) {
	params := make(map[string]string, len(query)+1)
	for key, value := range query {
		params[key] = value
	}
	if !withToken {
		return params, nil
	}
	if c.tokenProvider == nil {
		return nil, NewError(ErrConfig, "build params", fmt.Errorf("token provider is required"))
	}

	token, err := c.tokenProvider.GetToken(ctx)
	if err != nil {
		return nil, err
	}
	params["access_token"] = token
	return params, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, query map[string]string, body any) (*Response, error) {
	reqURL, err := c.buildURL(path, query)
	if err != nil {
		return nil, fmt.Errorf("build url: %w", err)
	}

	var payload []byte
	if body != nil {
		payload, err = encodeJSON(body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	c.logRequest(ctx, method, reqURL, payload)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, NewError(ErrUpstreamNetwork, method+" "+path, redactURLError(err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewError(ErrUpstreamNetwork, method+" "+path, fmt.Errorf("read response: %w", err))
	}

	c.logResponse(ctx, resp.StatusCode, respBody)

	return &Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}

func (c *Client) buildURL(path string, query map[string]string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parse path: %w", err)
	}

	u := c.baseURL.ResolveReference(ref)
	if len(query) > 0 {
		values := u.Query()
		for key, value := range query {
			values.Set(key, value)
		}
		u.RawQuery = values.Encode()
	}

	return u.String(), nil
}

// encodeJSON 不转义 HTML 字符，标题中的 < & 原样发送
func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (c *Client) logRequest(ctx context.Context, method, rawURL string, body []byte) {
	if !c.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}

	attrs := []slog.Attr{
		slog.String("method", method),
		slog.String("url", RedactURLQuery(rawURL)),
	}
	if len(body) > 0 {
		attrs = append(attrs, slog.String("body", string(body)))
	}
	c.logger.LogAttrs(ctx, slog.LevelDebug, "http request", attrs...)
}

func (c *Client) logResponse(ctx context.Context, statusCode int, body []byte) {
	if !c.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}

	attrs := []slog.Attr{slog.Int("status", statusCode)}
	if len(body) > 0 {
		attrs = append(attrs, slog.String("body", truncateBody(body, 1024)))
	}
	c.logger.LogAttrs(ctx, slog.LevelDebug, "http response", attrs...)
}

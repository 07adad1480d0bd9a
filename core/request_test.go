package core

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokenProvider struct {
	token string
	err   error
}

func (s *staticTokenProvider) GetToken(context.Context) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.token, nil
}

func (s *staticTokenProvider) RefreshToken(context.Context) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.token, nil
}

func newTestClient(t *testing.T, server *httptest.Server, tokenProvider AccessTokenProvider) *Client {
	t.Helper()
	client, err := NewClient(ClientConfig{
		BaseURL:       server.URL,
		TokenProvider: tokenProvider,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestTypedRequestGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("access_token") != "token" {
			t.Errorf("missing access token")
		}
		if r.URL.Query().Get("media_id") != "m123" {
			t.Errorf("missing media_id")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"errcode": 0, "title": "hello"})
	}))
	defer server.Close()

	client := newTestClient(t, server, &staticTokenProvider{token: "token"})

	type resp struct {
		Title string `json:"title"`
	}
	got, err := NewTypedRequest[resp](client).
		Path("/cgi-bin/draft/get").
		Query("media_id", "m123").
		Get(context.Background())
	if err != nil {
		t.Fatalf("typed get: %v", err)
	}
	if got.Title != "hello" {
		t.Fatalf("unexpected title: %s", got.Title)
	}
}

func TestTypedRequestWithoutToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("access_token") != "" {
			t.Error("access token should be omitted")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "fresh", "expires_in": 7200})
	}))
	defer server.Close()

	client := newTestClient(t, server, nil)

	type resp struct {
		AccessToken string `json:"access_token"`
	}
	got, err := NewTypedRequest[resp](client).
		Path("/cgi-bin/token").
		QueryMap(map[string]string{"grant_type": "client_credential"}).
		WithoutToken().
		Get(context.Background())
	if err != nil {
		t.Fatalf("typed get: %v", err)
	}
	if got.AccessToken != "fresh" {
		t.Fatalf("unexpected token: %s", got.AccessToken)
	}
}

func TestTypedRequestPostJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json; charset=utf-8", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"offset":5,"count":10,"title":"a<b&c"}`, string(body))
		assert.Contains(t, string(body), "a<b&c")

		_ = json.NewEncoder(w).Encode(map[string]any{"total_count": 3})
	}))
	defer server.Close()

	client := newTestClient(t, server, &staticTokenProvider{token: "token"})

	type resp struct {
		TotalCount int `json:"total_count"`
	}
	got, err := NewTypedRequest[resp](client).
		Path("/cgi-bin/draft/batchget").
		Body(map[string]any{"offset": 5, "count": 10, "title": "a<b&c"}).
		Post(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, got.TotalCount)
}

func TestRequestTokenProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not reach the server")
	}))
	defer server.Close()

	providerErr := NewError(ErrUpstreamAuth, "refresh access token", errors.New("boom"))
	client := newTestClient(t, server, &staticTokenProvider{err: providerErr})

	_, err := client.Request().Path("/cgi-bin/draft/batchget").Post(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstreamAuth)
}

func TestRequestMissingTokenProvider(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	client := newTestClient(t, server, nil)
	_, err := client.Request().Path("/cgi-bin/draft/batchget").Get(context.Background())
	assert.ErrorIs(t, err, ErrConfig)
}

func TestRequestNetworkTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: &http.Client{Timeout: 50 * time.Millisecond},
	})
	require.NoError(t, err)

	_, err = client.Request().Path("/cgi-bin/token").Query("secret", "topsecret").WithoutToken().Get(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstreamNetwork)
	assert.NotContains(t, err.Error(), "topsecret")
}

func TestClientBuildURL(t *testing.T) {
	client, err := NewClient(ClientConfig{BaseURL: "https://api.weixin.qq.com/"})
	require.NoError(t, err)

	got, err := client.buildURL("/cgi-bin/draft/batchget", map[string]string{"access_token": "tok"})
	require.NoError(t, err)
	assert.Equal(t, "https://api.weixin.qq.com/cgi-bin/draft/batchget?access_token=tok", got)
}

func TestNewClientInvalidBaseURL(t *testing.T) {
	_, err := NewClient(ClientConfig{BaseURL: "not-a-url"})
	assert.ErrorIs(t, err, ErrConfig)
}

package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShinyNito/wxdraft/core"
	"github.com/ShinyNito/wxdraft/officialaccount"
)

const testToken = "ACCESS_TOKEN_0123456789"

// isolate 隔离配置查找与凭证，避免读到开发机上的配置
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	for _, name := range []string{"APPID", "APPSECRET", "APPSecret", "WXDRAFT_WECHAT_APP_ID", "WXDRAFT_WECHAT_APP_SECRET", "WXDRAFT_WECHAT_BASE_URL"} {
		t.Setenv(name, "")
	}
	return dir
}

func fakeWechat(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var draftCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/cgi-bin/token", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": testToken, "expires_in": 7200})
	})
	mux.HandleFunc("/cgi-bin/draft/batchget", func(w http.ResponseWriter, r *http.Request) {
		draftCalls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"item": []any{
				map[string]any{
					"update_time": 1700000000,
					"content": map[string]any{"news_item": []any{
						map[string]any{"title": "hello", "content": "<p>x</p>"},
					}},
				},
			},
			"total_count": 7,
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &draftCalls
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "wxdraft dev (commit: none, built: unknown)\n", out)
}

func TestDraftsPrintsPage(t *testing.T) {
	isolate(t)
	srv, draftCalls := fakeWechat(t)
	t.Setenv("APPID", "wx123")
	t.Setenv("APPSecret", "secret")
	t.Setenv("WXDRAFT_WECHAT_BASE_URL", srv.URL)
	t.Setenv("WXDRAFT_WECHAT_TIMEZONE", "UTC")

	out, _, err := run(t, "drafts", "--offset", "0", "--count", "5")
	require.NoError(t, err)
	assert.Equal(t, int32(1), draftCalls.Load())

	var page officialaccount.DraftPage
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "hello", page.Items[0].Title)
	assert.Equal(t, "<p>x</p>", page.Items[0].Content)
	assert.Equal(t, "2023-11-14 22:13", page.Items[0].Created)
	assert.Equal(t, 7, page.TotalCount)
	assert.Equal(t, 1, page.ReturnedCount)
}

func TestDraftsRejectsBadPage(t *testing.T) {
	isolate(t)

	_, _, err := run(t, "drafts", "--count", "21")
	require.ErrorIs(t, err, officialaccount.ErrInvalidPage)
}

func TestDraftsMissingCredentials(t *testing.T) {
	isolate(t)

	_, _, err := run(t, "drafts")
	require.ErrorIs(t, err, core.ErrConfig)
	assert.Equal(t, "config", core.KindOf(err))
}

func TestDraftsReadsEnvFile(t *testing.T) {
	dir := isolate(t)
	srv, draftCalls := fakeWechat(t)
	envFile := filepath.Join(dir, "creds.env")
	require.NoError(t, os.WriteFile(envFile, []byte("APPID=wx123\nAPPSecret=secret\nWXDRAFT_WECHAT_BASE_URL="+srv.URL+"\n"), 0o600))

	_, _, err := run(t, "drafts", "--env-file", envFile)
	require.NoError(t, err)
	assert.Equal(t, int32(1), draftCalls.Load())
}

func TestExplicitMissingEnvFileFails(t *testing.T) {
	dir := isolate(t)

	_, _, err := run(t, "drafts", "--env-file", filepath.Join(dir, "nope.env"))
	require.Error(t, err)
}

func TestTokenPrintsRedacted(t *testing.T) {
	isolate(t)
	srv, _ := fakeWechat(t)
	t.Setenv("APPID", "wx123")
	t.Setenv("APPSecret", "secret")
	t.Setenv("WXDRAFT_WECHAT_BASE_URL", srv.URL)

	out, _, err := run(t, "token")
	require.NoError(t, err)
	assert.NotContains(t, out, testToken)
	assert.Contains(t, out, "access_token: ACCE")
	assert.Contains(t, out, "6789\n")
	assert.Contains(t, out, "refresh after: ")
}

func TestLogLevelFlag(t *testing.T) {
	isolate(t)
	srv, _ := fakeWechat(t)
	t.Setenv("APPID", "wx123")
	t.Setenv("APPSecret", "secret")
	t.Setenv("WXDRAFT_WECHAT_BASE_URL", srv.URL)

	_, stderr, err := run(t, "--log-level", "debug", "token")
	require.NoError(t, err)
	assert.Contains(t, stderr, "access_token refreshed")
	assert.NotContains(t, stderr, "secret=secret")

	_, _, err = run(t, "--log-level", "loud", "token")
	require.Error(t, err)
}

func TestConfigInit(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "conf", "wxdraft.toml")

	out, _, err := run(t, "config", "init", path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "base_url")
	assert.NotContains(t, string(data), "app_secret")
}

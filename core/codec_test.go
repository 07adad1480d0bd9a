package core

import (
	"errors"
	"testing"
)

func TestDecodeWechat(t *testing.T) {
	type sample struct {
		Name string `json:"name"`
	}

	t.Run("success", func(t *testing.T) {
		got, err := DecodeWechat[sample](200, []byte(`{"errcode":0,"name":"ok"}`))
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if got.Name != "ok" {
			t.Fatalf("unexpected name: %s", got.Name)
		}
	})

	t.Run("wechat error on 200", func(t *testing.T) {
		_, err := DecodeWechat[sample](200, []byte(`{"errcode":40001,"errmsg":"invalid token"}`))
		var we *WechatError
		if !errors.As(err, &we) {
			t.Fatalf("expected WechatError, got %v", err)
		}
		if we.ErrCode != 40001 {
			t.Fatalf("unexpected errcode: %d", we.ErrCode)
		}
	})

	t.Run("wechat error on non2xx", func(t *testing.T) {
		_, err := DecodeWechat[sample](401, []byte(`{"errcode":40001,"errmsg":"invalid token"}`))
		var we *WechatError
		if !errors.As(err, &we) {
			t.Fatalf("expected WechatError, got %v", err)
		}
	})

	t.Run("http status error", func(t *testing.T) {
		_, err := DecodeWechat[sample](502, []byte(`<html>bad gateway</html>`))
		if !errors.Is(err, ErrUpstreamNetwork) {
			t.Fatalf("expected network error, got %v", err)
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := DecodeWechat[sample](200, []byte(`not json`))
		if !errors.Is(err, ErrUpstreamFormat) {
			t.Fatalf("expected format error, got %v", err)
		}
		var pe *ResponseParseError
		if !errors.As(err, &pe) {
			t.Fatalf("expected ResponseParseError, got %v", err)
		}
		if string(pe.Body) != "not json" {
			t.Fatalf("unexpected body: %s", pe.Body)
		}
	})

	t.Run("empty body", func(t *testing.T) {
		got, err := DecodeWechat[sample](204, nil)
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if got.Name != "" {
			t.Fatalf("expected zero value, got %+v", got)
		}
	})
}

package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ShinyNito/wxdraft/core"
	"github.com/ShinyNito/wxdraft/officialaccount"
)

const (
	defaultOffset = 0
	defaultCount  = officialaccount.MaxDraftPageSize

	articlesNote = "返回草稿箱中的文章列表；pagination.total 为草稿数量，一条草稿可能包含多篇文章"
)

type pagination struct {
	Offset int `json:"offset"`
	Count  int `json:"count"`
	Total  int `json:"total"`
}

type articlesResponse struct {
	Success    bool                      `json:"success"`
	Data       []officialaccount.Article `json:"data"`
	Pagination pagination                `json:"pagination"`
	Note       string                    `json:"note"`
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	ErrCode int    `json:"errcode,omitempty"`
	ErrMsg  string `json:"errmsg,omitempty"`
}

type errorResponse struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "微信公众号文章获取API",
		"service":     serviceName,
		"version":     serviceVersion,
		"description": "获取微信公众号草稿箱中的文章列表",
		"endpoints": map[string]string{
			"/articles": "获取草稿箱文章列表",
			"/health":   "健康检查",
			"/debug":    "调试信息",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": float64(now.UnixNano()) / 1e9,
	})
}

// handleDebug 只报告凭证是否设置及长度，不输出凭证本身
func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"env_check": map[string]any{
			"APPID":            presence(s.credential.AppIDLength),
			"APPSecret":        presence(s.credential.AppSecretLength),
			"APPID_length":     s.credential.AppIDLength,
			"APPSecret_length": s.credential.AppSecretLength,
		},
		"service": map[string]any{
			"name":    serviceName,
			"version": serviceVersion,
		},
	})
}

func presence(length int) string {
	if length > 0 {
		return "已设置"
	}
	return "未设置"
}

func (s *Server) handleArticles(w http.ResponseWriter, r *http.Request) {
	offset, err := intQuery(r, "offset", defaultOffset)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	count, err := intQuery(r, "count", defaultCount)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := officialaccount.ValidatePage(offset, count); err != nil {
		writeBadRequest(w, err)
		return
	}

	page, err := s.drafts.FetchDraftPage(r.Context(), offset, count)
	if err != nil {
		s.writeUpstreamError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, articlesResponse{
		Success: true,
		Data:    page.Items,
		Pagination: pagination{
			Offset: page.Offset,
			Count:  page.ReturnedCount,
			Total:  page.TotalCount,
		},
		Note: articlesNote,
	})
}

func intQuery(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(key + " must be an integer")
	}
	return v, nil
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Error: errorBody{Kind: "invalid_request", Message: err.Error()},
	})
}

func (s *Server) writeUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	body := errorBody{Kind: core.KindOf(err), Message: err.Error()}
	if we, ok := errors.AsType[*core.WechatError](err); ok {
		body.ErrCode = we.ErrCode
		body.ErrMsg = we.ErrMsg
	}

	attrs := []any{
		slog.String("kind", body.Kind),
		slog.Int("errcode", body.ErrCode),
		slog.Any("error", err),
	}
	if desc := core.DescribeErrCode(body.ErrCode); desc != "" {
		attrs = append(attrs, slog.String("errcode_desc", desc))
	}
	s.logger.ErrorContext(r.Context(), "fetch drafts failed", attrs...)

	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: body})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

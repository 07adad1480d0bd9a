package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ShinyNito/wxdraft/officialaccount"
)

const (
	serviceName    = "wxdraft"
	serviceVersion = "1.0.0"
)

// DraftFetcher 草稿分页获取接口，由 *officialaccount.Client 实现
type DraftFetcher interface {
	FetchDraftPage(ctx context.Context, offset, count int) (*officialaccount.DraftPage, error)
}

// CredentialInfo 凭证概况，不含凭证值
type CredentialInfo struct {
	AppIDLength     int
	AppSecretLength int
}

type Options struct {
	Drafts      DraftFetcher
	Credential  CredentialInfo
	CORSOrigins []string
	Logger      *slog.Logger
	Now         func() time.Time
}

type Server struct {
	drafts      DraftFetcher
	credential  CredentialInfo
	corsOrigins []string
	logger      *slog.Logger
	now         func() time.Time
	mux         *http.ServeMux
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Server{
		drafts:      opts.Drafts,
		credential:  opts.Credential,
		corsOrigins: opts.CORSOrigins,
		logger:      logger,
		now:         now,
		mux:         http.NewServeMux(),
	}
	s.routes()
	return s
}

// Handler 返回挂好中间件的路由：panic 恢复、请求 ID、访问日志、CORS
func (s *Server) Handler() http.Handler {
	return s.recoverer(s.requestID(s.accessLog(s.cors(s.mux))))
}

// ListenAndServe 阻塞直到 ctx 结束，随后最多等待 shutdownTimeout 处理完在途请求
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", slog.String("addr", addr))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("http server shutting down")
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

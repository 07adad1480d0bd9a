package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const defaultExpireBuffer = 300 * time.Second

type TokenFetchResult struct {
	Token     string
	ExpiresIn int
}

// TokenFetcher 向微信换取 access_token，force 对应接口的 force_refresh
type TokenFetcher func(ctx context.Context, force bool) (TokenFetchResult, error)

type TokenManagerConfig struct {
	Fetcher      TokenFetcher
	Logger *slog.Logger
	// ExpireBuffer 提前过期量，默认 300 秒
	// 本地有效期为 expires_in - ExpireBuffer，不足 1 秒时按 1 秒计
	ExpireBuffer time.Duration
	// Timeout 单次刷新的上限，刷新不受发起者取消的影响
	Timeout time.Duration
	Now     func() time.Time
}

// cachedToken 整体替换，不做局部修改
type cachedToken struct {
	token     string
	expiresAt time.Time
}

type tokenCall struct {
	done  chan struct{}
	token string
	err   error
}

// TokenManager 进程内唯一的 access_token 缓存
// 同一时刻最多一个刷新请求在途，并发调用方共享它的结果。
type TokenManager struct {
	fetcher      TokenFetcher
	logger       *slog.Logger
	expireBuffer time.Duration
	timeout      time.Duration
	now          func() time.Time

	cached atomic.Pointer[cachedToken]

	mu       sync.Mutex
	inflight *tokenCall
}

func NewTokenManager(cfg TokenManagerConfig) (*TokenManager, error) {
	if cfg.Fetcher == nil {
		return nil, NewError(ErrConfig, "new token manager", errors.New("fetcher is required"))
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	expireBuffer := cfg.ExpireBuffer
	if expireBuffer <= 0 {
		expireBuffer = defaultExpireBuffer
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &TokenManager{
		fetcher:      cfg.Fetcher,
		logger:       logger,
		expireBuffer: expireBuffer,
		timeout:      timeout,
		now:          now,
	}, nil
}

func (m *TokenManager) GetToken(ctx context.Context) (string, error) {
	if token, ok := m.valid(); ok {
		return token, nil
	}
	return m.do(ctx, false)
}

func (m *TokenManager) RefreshToken(ctx context.Context) (string, error) {
	return m.do(ctx, true)
}

// RefreshIfCurrent 仅当缓存的仍是被拒绝的 rejected 时强制刷新
// 缓存已被其他调用方换成新 token 时直接返回新 token，刷新进行中时加入该次刷新。
func (m *TokenManager) RefreshIfCurrent(ctx context.Context, rejected string) (string, error) {
	m.mu.Lock()
	if cached := m.cached.Load(); cached != nil && cached.token != rejected {
		if token, ok := m.valid(); ok {
			m.mu.Unlock()
			return token, nil
		}
	}
	call := m.startLocked(ctx, true)
	m.mu.Unlock()

	return waitTokenCall(ctx, call)
}

// ExpiresAt 返回缓存 token 的本地过期时间（已扣除提前量）
func (m *TokenManager) ExpiresAt() (time.Time, bool) {
	cached := m.cached.Load()
	if cached == nil {
		return time.Time{}, false
	}
	return cached.expiresAt, true
}

func (m *TokenManager) valid() (string, bool) {
	cached := m.cached.Load()
	if cached == nil || !m.now().Before(cached.expiresAt) {
		return "", false
	}
	return cached.token, true
}

func (m *TokenManager) do(ctx context.Context, force bool) (string, error) {
	m.mu.Lock()
	if !force {
		if token, ok := m.valid(); ok {
			m.mu.Unlock()
			return token, nil
		}
	}

	call := m.startLocked(ctx, force)
	m.mu.Unlock()

	return waitTokenCall(ctx, call)
}

// startLocked 返回在途的刷新，没有时发起一次；调用方需持有 m.mu
func (m *TokenManager) startLocked(ctx context.Context, force bool) *tokenCall {
	if m.inflight == nil {
		m.inflight = &tokenCall{done: make(chan struct{})}
		go m.refresh(context.WithoutCancel(ctx), m.inflight, force)
	}
	return m.inflight
}

func (m *TokenManager) refresh(ctx context.Context, call *tokenCall, force bool) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	token, err := m.fetchAndStore(ctx, force)

	m.mu.Lock()
	call.token = token
	call.err = err
	m.inflight = nil
	m.mu.Unlock()

	close(call.done)
}

func (m *TokenManager) fetchAndStore(ctx context.Context, force bool) (string, error) {
	result, err := m.fetcher(ctx, force)
	if err != nil {
		attrs := []any{slog.Bool("force", force), slog.Any("error", err)}
		if we, ok := errors.AsType[*WechatError](err); ok {
			attrs = append(attrs, slog.Int("errcode", we.ErrCode), slog.String("errmsg", we.ErrMsg))
			if desc := DescribeErrCode(we.ErrCode); desc != "" {
				attrs = append(attrs, slog.String("errcode_desc", desc))
			}
		}
		m.logger.WarnContext(ctx, "refresh access_token failed", attrs...)
		return "", NewError(ErrUpstreamAuth, "refresh access token", err)
	}
	if result.Token == "" {
		return "", NewError(ErrUpstreamAuth, "refresh access token",
			NewError(ErrUpstreamFormat, "decode access token", fmt.Errorf("empty access_token")))
	}

	ttl := max(time.Duration(result.ExpiresIn)*time.Second-m.expireBuffer, time.Second)
	m.cached.Store(&cachedToken{
		token:     result.Token,
		expiresAt: m.now().Add(ttl),
	})

	m.logger.InfoContext(ctx, "access_token refreshed",
		slog.Bool("force", force),
		slog.Int("expires_in", result.ExpiresIn),
	)

	return result.Token, nil
}

func waitTokenCall(ctx context.Context, call *tokenCall) (string, error) {
	select {
	case <-ctx.Done():
		return "", NewError(ErrUpstreamAuth, "wait access token", ctx.Err())
	case <-call.done:
		return call.token, call.err
	}
}

var (
	_ AccessTokenProvider   = (*TokenManager)(nil)
	_ CurrentTokenRefresher = (*TokenManager)(nil)
)

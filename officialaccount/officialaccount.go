package officialaccount

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ShinyNito/wxdraft/core"
)

const (
	accessTokenPath   = "/cgi-bin/token"
	tokenExpireBuffer = 300 * time.Second
)

// Config 公众号配置
type Config struct {
	// AppID 公众号 AppID（必填）
	AppID string
	// AppSecret 公众号 AppSecret（必填）
	AppSecret string
	// BaseURL 微信接口地址（可选，默认 https://api.weixin.qq.com）
	BaseURL string
	// HTTPClient 自定义 HTTP 客户端（可选，优先于 Timeout）
	HTTPClient *http.Client
	// Timeout 单次上游请求超时（可选，默认 10 秒）
	Timeout time.Duration
	// ExpireBuffer token 提前过期时间（可选，默认 300 秒）
	// expires_in 不大于 ExpireBuffer 时本地有效期按 1 秒计
	ExpireBuffer time.Duration
	// TokenProvider 外部注入的 token 缓存（可选，默认按 AppID/AppSecret 创建）
	TokenProvider core.AccessTokenProvider
	// Location 草稿时间的格式化时区（可选，默认 time.Local）
	Location *time.Location
	// Logger 日志记录器（可选，默认使用 slog.Default()）
	Logger *slog.Logger
}

// Client 公众号客户端
type Client struct {
	cfg           Config
	apiClient     *core.Client
	tokenProvider core.AccessTokenProvider
}

type accessTokenResponse struct {
	AccessToken *string `json:"access_token"`
	ExpiresIn   int     `json:"expires_in"`
}

// New 创建公众号客户端，凭证缺失时返回 core.ErrConfig
func New(cfg Config) (*Client, error) {
	cfg = normalizeConfig(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, core.NewError(core.ErrConfig, "new officialaccount client", err)
	}

	tokenProvider := cfg.TokenProvider
	if tokenProvider == nil {
		tokenClient, err := core.NewClient(core.ClientConfig{
			BaseURL:    cfg.BaseURL,
			HTTPClient: cfg.HTTPClient,
			Timeout:    cfg.Timeout,
			Logger:     cfg.Logger,
		})
		if err != nil {
			return nil, err
		}

		tokenManager, err := core.NewTokenManager(core.TokenManagerConfig{
			ExpireBuffer: cfg.ExpireBuffer,
			Timeout:      cfg.Timeout,
			Logger:       cfg.Logger,
			Fetcher:      accessTokenFetcher(tokenClient, cfg.AppID, cfg.AppSecret),
		})
		if err != nil {
			return nil, err
		}
		tokenProvider = tokenManager
	}

	apiClient, err := core.NewClient(core.ClientConfig{
		BaseURL:       cfg.BaseURL,
		HTTPClient:    cfg.HTTPClient,
		Timeout:       cfg.Timeout,
		TokenProvider: tokenProvider,
		Logger:        cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &Client{cfg: cfg, apiClient: apiClient, tokenProvider: tokenProvider}, nil
}

// accessTokenFetcher 调用 /cgi-bin/token，force 时附带 force_refresh=true
func accessTokenFetcher(tokenClient *core.Client, appID, appSecret string) core.TokenFetcher {
	return func(ctx context.Context, force bool) (core.TokenFetchResult, error) {
		req := core.NewTypedRequest[accessTokenResponse](tokenClient).
			Path(accessTokenPath).
			Query("grant_type", "client_credential").
			Query("appid", appID).
			Query("secret", appSecret).
			WithoutToken()
		if force {
			req.Query("force_refresh", "true")
		}

		resp, err := req.Get(ctx)
		if err != nil {
			return core.TokenFetchResult{}, err
		}
		if resp.AccessToken == nil {
			return core.TokenFetchResult{}, core.NewError(core.ErrUpstreamFormat, "decode access token",
				errors.New("response has no access_token"))
		}
		return core.TokenFetchResult{Token: *resp.AccessToken, ExpiresIn: resp.ExpiresIn}, nil
	}
}

func (c *Client) AccessTokenProvider() core.AccessTokenProvider {
	return c.tokenProvider
}

func normalizeConfig(cfg Config) Config {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.ExpireBuffer <= 0 {
		cfg.ExpireBuffer = tokenExpireBuffer
	}
	return cfg
}

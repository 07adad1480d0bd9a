package core

import (
	"context"
)

// AccessTokenProvider AccessToken 提供者接口
// 草稿箱等接口通过它获取 access_token，实现可以被替换以便测试或共享缓存
type AccessTokenProvider interface {
	// GetToken 获取 AccessToken
	// 缓存有效时直接返回，不发起网络请求
	//
	// 参数:
	//   - ctx: 上下文
	//
	// 返回:
	//   - string: 可用于调用微信 API 的 access_token
	//   - error: 可能的错误
	//
	// 错误:
	//   - ErrUpstreamAuth: 获取或刷新 token 失败，已缓存的 token 保持不变
	GetToken(ctx context.Context) (string, error)

	// RefreshToken 强制刷新 AccessToken
	// 用于接口返回 token 失效时主动刷新
	//
	// 参数:
	//   - ctx: 上下文
	//
	// 返回:
	//   - string: 新的 access_token
	//   - error: 可能的错误
	//
	// 错误:
	//   - ErrUpstreamAuth: 向微信服务端刷新 token 失败或被限频
	RefreshToken(ctx context.Context) (string, error)
}

// CurrentTokenRefresher 可选接口，按被拒绝的 token 刷新
// 并发请求同时收到 token 失效时，只有第一个会真正刷新，其余直接拿到新 token。
type CurrentTokenRefresher interface {
	RefreshIfCurrent(ctx context.Context, rejected string) (string, error)
}

package core

import (
	"errors"
	"fmt"
)

// 错误类别，调用方通过 errors.Is 判断
var (
	// ErrConfig 配置缺失或非法，服务应拒绝启动
	ErrConfig = errors.New("config error")
	// ErrUpstreamAuth 获取 access_token 失败
	ErrUpstreamAuth = errors.New("upstream auth error")
	// ErrUpstreamNetwork 网络层失败（超时、连接重置、非 2xx 状态码）
	ErrUpstreamNetwork = errors.New("upstream network error")
	// ErrUpstreamFormat 响应不是 JSON 或缺少必需字段
	ErrUpstreamFormat = errors.New("upstream format error")
	// ErrUpstreamAPI 微信接口返回了非 token 类的 errcode
	ErrUpstreamAPI = errors.New("upstream api error")
)

// Error 带类别的错误
// Kind 为上面的哨兵错误之一，Err 为底层原因。
type Error struct {
	Kind error
	Op   string
	Err  error
}

// Error 实现 error 接口
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap 同时暴露类别与底层原因，支持 errors.Is/As
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewError 创建带类别的错误
func NewError(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf 返回最外层错误类别的名称，供 HTTP 层映射
func KindOf(err error) string {
	if e, ok := errors.AsType[*Error](err); ok {
		return kindName(e.Kind)
	}
	for _, kind := range []error{ErrConfig, ErrUpstreamAuth, ErrUpstreamNetwork, ErrUpstreamFormat, ErrUpstreamAPI} {
		if errors.Is(err, kind) {
			return kindName(kind)
		}
	}
	return "unknown"
}

func kindName(kind error) string {
	switch kind {
	case ErrConfig:
		return "config"
	case ErrUpstreamAuth:
		return "upstream_auth"
	case ErrUpstreamNetwork:
		return "upstream_network"
	case ErrUpstreamFormat:
		return "upstream_format"
	case ErrUpstreamAPI:
		return "upstream_api"
	default:
		return "unknown"
	}
}

// WechatError 微信 API 错误
type WechatError struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// Error 实现 error 接口
func (e *WechatError) Error() string {
	return fmt.Sprintf("wechat error: [%d] %s", e.ErrCode, e.ErrMsg)
}

// NewWechatError 创建微信错误
func NewWechatError(code int, msg string) *WechatError {
	return &WechatError{
		ErrCode: code,
		ErrMsg:  msg,
	}
}

// 常见错误码定义
const (
	ErrCodeBusy             = -1    // 系统繁忙
	ErrCodeInvalidToken     = 40001 // access_token 无效
	ErrCodeInvalidAppID     = 40013 // 无效的 AppID
	ErrCodeBadToken         = 40014 // 不合法的 access_token
	ErrCodeExpiredToken     = 42001 // access_token 过期
	ErrCodeInvalidAppSecret = 40125 // 无效的 AppSecret
	ErrCodeIPNotAllowed     = 40164 // 调用 IP 不在白名单
	ErrCodeFreqLimit        = 45011 // 频率限制
	ErrCodeAPIUnauthorized  = 48001 // API 未授权
)

var errCodeDescriptions = map[int]string{
	ErrCodeBusy:             "系统繁忙",
	ErrCodeInvalidToken:     "access_token 无效",
	ErrCodeInvalidAppID:     "AppID 无效",
	ErrCodeBadToken:         "access_token 不合法",
	ErrCodeExpiredToken:     "access_token 已过期",
	ErrCodeInvalidAppSecret: "AppSecret 无效",
	ErrCodeIPNotAllowed:     "调用 IP 不在白名单",
	ErrCodeFreqLimit:        "调用频率超限",
	ErrCodeAPIUnauthorized:  "接口未授权",
}

// DescribeErrCode 返回常见错误码的说明，未收录的返回空字符串
func DescribeErrCode(code int) string {
	return errCodeDescriptions[code]
}

// IsTokenError 判断是否为 token 相关错误（需要刷新 token）
func IsTokenError(err error) bool {
	if we, ok := errors.AsType[*WechatError](err); ok {
		switch we.ErrCode {
		case ErrCodeInvalidToken, ErrCodeBadToken, ErrCodeExpiredToken:
			return true
		}
	}
	return false
}

// ResponseParseError 响应解析错误
// 当响应体不是有效的 JSON 时返回此错误
type ResponseParseError struct {
	Body []byte // 原始响应体
	Err  error  // 底层解析错误
}

// Error 实现 error 接口
func (e *ResponseParseError) Error() string {
	return fmt.Sprintf("failed to parse response: %v", e.Err)
}

// Unwrap 支持 errors.Is/As
func (e *ResponseParseError) Unwrap() error {
	return e.Err
}

// NewResponseParseError 创建响应解析错误
func NewResponseParseError(body []byte, err error) *ResponseParseError {
	return &ResponseParseError{
		Body: body,
		Err:  err,
	}
}

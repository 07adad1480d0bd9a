package core

import (
	"errors"
	"net/url"
	"strings"
)

const redactedValue = "***"

var sensitiveQueryKeys = map[string]struct{}{
	"access_token":  {},
	"appsecret":     {},
	"app_secret":    {},
	"authorization": {},
	"client_secret": {},
	"refresh_token": {},
	"secret":        {},
	"token":         {},
}

// RedactQueryMap 脱敏查询参数，返回拷贝，原 map 不会被修改。
func RedactQueryMap(query map[string]string) map[string]string {
	if query == nil {
		return nil
	}

	out := make(map[string]string, len(query))
	for key, value := range query {
		if isSensitiveQueryKey(key) {
			out[key] = redactedValue
			continue
		}
		out[key] = value
	}

	return out
}

// RedactURLQuery 脱敏 URL 查询参数中的敏感字段。
func RedactURLQuery(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.RawQuery == "" {
		return rawURL
	}

	query := parsed.Query()
	for key, values := range query {
		if !isSensitiveQueryKey(key) {
			continue
		}
		for i := range values {
			values[i] = redactedValue
		}
		query[key] = values
	}

	parsed.RawQuery = query.Encode()
	return parsed.String()
}

// RedactToken 仅保留 token 首尾各 4 位
func RedactToken(token string) string {
	if len(token) <= 8 {
		return redactedValue
	}
	return token[:4] + redactedValue + token[len(token)-4:]
}

// redactURLError net/http 的 *url.Error 会带上完整 URL（含 secret），这里替换为脱敏后的 URL
func redactURLError(err error) error {
	if urlErr, ok := errors.AsType[*url.Error](err); ok {
		return &url.Error{Op: urlErr.Op, URL: RedactURLQuery(urlErr.URL), Err: urlErr.Err}
	}
	return err
}

func isSensitiveQueryKey(key string) bool {
	_, exists := sensitiveQueryKeys[strings.ToLower(key)]
	return exists
}

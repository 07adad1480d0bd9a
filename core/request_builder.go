package core

import (
	"context"
	"maps"
	"net/http"
)

// RequestBuilder 请求构建器
type RequestBuilder struct {
	client               *Client
	path                 string
	query                map[string]string
	body                 any
	shouldAddAccessToken bool
	method               string
}

// newRequestBuilder 创建请求构建器（包内使用）
func newRequestBuilder(client *Client) *RequestBuilder {
	return &RequestBuilder{
		client:               client,
		query:                make(map[string]string),
		shouldAddAccessToken: true, // 默认添加 access_token
	}
}

// Path 设置请求路径
func (b *RequestBuilder) Path(path string) *RequestBuilder {
	b.path = path
	return b
}

// Query 添加单个查询参数
func (b *RequestBuilder) Query(key, value string) *RequestBuilder {
	b.query[key] = value
	return b
}

// QueryMap 批量设置查询参数
func (b *RequestBuilder) QueryMap(query map[string]string) *RequestBuilder {
	maps.Copy(b.query, query)
	return b
}

// Body 设置请求体，POST 时以 JSON 发送
func (b *RequestBuilder) Body(body any) *RequestBuilder {
	b.body = body
	return b
}

// WithoutToken 不添加 access_token
func (b *RequestBuilder) WithoutToken() *RequestBuilder {
	b.shouldAddAccessToken = false
	return b
}

// Get 执行 GET 请求
func (b *RequestBuilder) Get(ctx context.Context) (*Response, error) {
	b.method = http.MethodGet
	return b.do(ctx)
}

// Post 执行 POST 请求
func (b *RequestBuilder) Post(ctx context.Context) (*Response, error) {
	b.method = http.MethodPost
	return b.do(ctx)
}

func (b *RequestBuilder) do(ctx context.Context) (*Response, error) {
	params, err := b.client.buildParams(ctx, b.query, b.shouldAddAccessToken)
	if err != nil {
		return nil, err
	}

	return b.client.doRequest(ctx, b.method, b.path, params, b.body)
}

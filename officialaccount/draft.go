package officialaccount

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/ShinyNito/wxdraft/core"
)

const (
	draftBatchGetPath = "/cgi-bin/draft/batchget"

	contentPreviewLength = 200
	contentEllipsis      = "..."
	createdLayout        = "2006-01-02 15:04"
	createdUnknown       = "N/A"
)

// Article 草稿中的一篇图文，由 news_item 展开得到
type Article struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Digest   string `json:"digest"`
	Created  string `json:"created"`
	Author   string `json:"author"`
	ThumbURL string `json:"thumb_url"`
	// Content 正文前 200 个字符，截断时追加 "..."
	Content string `json:"content"`
}

// DraftPage 一页草稿
// TotalCount 是微信返回的草稿数量，不是展开后的文章数量；一条草稿可能包含多篇文章。
type DraftPage struct {
	Items         []Article `json:"items"`
	Offset        int       `json:"offset"`
	ReturnedCount int       `json:"returned_count"`
	TotalCount    int       `json:"total_count"`
}

type batchGetRequest struct {
	Offset int `json:"offset"`
	Count  int `json:"count"`
}

type batchGetResponse struct {
	Item       *[]json.RawMessage `json:"item"`
	TotalCount int                `json:"total_count"`
}

// FetchDraftPage 获取一页草稿并展开为文章列表
//
// access_token 失效（40001/40014/42001）时强制刷新并重试一次，其余错误不重试。
// 单篇文章字段缺失或类型错误时以空字符串占位，保证输出与 news_item 一一对应。
func (c *Client) FetchDraftPage(ctx context.Context, offset, count int) (*DraftPage, error) {
	if err := ValidatePage(offset, count); err != nil {
		return nil, err
	}

	token, err := c.tokenProvider.GetToken(ctx)
	if err != nil {
		return nil, classifyTokenError("get access token", err)
	}
	resp, err := c.batchGetDrafts(ctx, token, offset, count)
	if isDraftTokenError(err) {
		c.cfg.Logger.InfoContext(ctx, "access_token rejected by draft api, refreshing", slog.Any("error", err))
		token, err = c.refreshRejectedToken(ctx, token)
		if err != nil {
			return nil, classifyTokenError("refresh access token", err)
		}
		resp, err = c.batchGetDrafts(ctx, token, offset, count)
	}
	if err != nil {
		return nil, classifyDraftError(err)
	}
	if resp.Item == nil {
		return nil, core.NewError(core.ErrUpstreamFormat, "batchget drafts", errors.New("response has no item field"))
	}

	items := make([]Article, 0, len(*resp.Item))
	defects := 0
	for _, rawItem := range *resp.Item {
		created, entries := c.decodeDraftItem(rawItem)
		for _, rawEntry := range entries {
			article, ok := decodeNewsEntry(rawEntry, created)
			if !ok {
				defects++
			}
			items = append(items, article)
		}
	}
	if defects > 0 {
		c.cfg.Logger.WarnContext(ctx, "malformed news entries replaced with defaults",
			slog.Int("count", defects),
			slog.Int("offset", offset),
		)
	}

	return &DraftPage{
		Items:         items,
		Offset:        offset,
		ReturnedCount: len(items),
		TotalCount:    resp.TotalCount,
	}, nil
}

// batchGetDrafts 显式携带 token，失效时据此判断缓存是否已被换新
func (c *Client) batchGetDrafts(ctx context.Context, token string, offset, count int) (batchGetResponse, error) {
	return Request[batchGetResponse](c).
		Path(draftBatchGetPath).
		Query("access_token", token).
		WithoutToken().
		Body(batchGetRequest{Offset: offset, Count: count}).
		Post(ctx)
}

func (c *Client) refreshRejectedToken(ctx context.Context, rejected string) (string, error) {
	if r, ok := c.tokenProvider.(core.CurrentTokenRefresher); ok {
		return r.RefreshIfCurrent(ctx, rejected)
	}
	return c.tokenProvider.RefreshToken(ctx)
}

// isDraftTokenError 只认草稿接口本身返回的 token 错误，token 接口的失败已经是 ErrUpstreamAuth
func isDraftTokenError(err error) bool {
	return err != nil && core.IsTokenError(err) && !errors.Is(err, core.ErrUpstreamAuth)
}

// classifyTokenError 注入的 TokenProvider 可能返回未分类的错误，统一归为 ErrUpstreamAuth
func classifyTokenError(op string, err error) error {
	if _, ok := errors.AsType[*core.Error](err); ok {
		return err
	}
	return core.NewError(core.ErrUpstreamAuth, op, err)
}

func classifyDraftError(err error) error {
	if _, ok := errors.AsType[*core.Error](err); ok {
		return err
	}
	if core.IsTokenError(err) {
		return core.NewError(core.ErrUpstreamAuth, "batchget drafts", err)
	}
	if _, ok := errors.AsType[*core.WechatError](err); ok {
		return core.NewError(core.ErrUpstreamAPI, "batchget drafts", err)
	}
	return core.NewError(core.ErrUpstreamNetwork, "batchget drafts", err)
}

// decodeDraftItem 返回格式化后的创建时间和 news_item 原始数组
// content.create_time 优先，其次 update_time，都没有时为 "N/A"
func (c *Client) decodeDraftItem(raw json.RawMessage) (string, []json.RawMessage) {
	var item map[string]json.RawMessage
	if err := json.Unmarshal(raw, &item); err != nil {
		return createdUnknown, nil
	}

	var content map[string]json.RawMessage
	if rawContent, ok := item["content"]; ok {
		_ = json.Unmarshal(rawContent, &content)
	}

	ts := decodeTimestamp(content["create_time"])
	if ts == 0 {
		ts = decodeTimestamp(item["update_time"])
	}

	var entries []json.RawMessage
	if rawNews, ok := content["news_item"]; ok {
		_ = json.Unmarshal(rawNews, &entries)
	}

	return formatCreated(ts, c.cfg.Location), entries
}

func decodeTimestamp(raw json.RawMessage) int64 {
	if len(raw) == 0 {
		return 0
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0
		}
		n = json.Number(s)
	}
	if ts, err := n.Int64(); err == nil {
		return ts
	}
	if f, err := strconv.ParseFloat(n.String(), 64); err == nil {
		return int64(f)
	}
	return 0
}

func formatCreated(ts int64, loc *time.Location) string {
	if ts <= 0 {
		return createdUnknown
	}
	if loc == nil {
		loc = time.Local
	}
	return time.Unix(ts, 0).In(loc).Format(createdLayout)
}

// decodeNewsEntry 解析单篇文章；第二个返回值为 false 表示存在缺陷字段
func decodeNewsEntry(raw json.RawMessage, created string) (Article, bool) {
	article := Article{Created: created}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return article, false
	}

	ok := true
	str := func(key string) string {
		value, present := fields[key]
		if !present {
			return ""
		}
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			ok = false
			return ""
		}
		return s
	}

	article.Title = str("title")
	article.URL = str("url")
	article.Digest = str("digest")
	article.Author = str("author")
	article.ThumbURL = str("thumb_url")
	article.Content = contentPreview(str("content"))

	return article, ok
}

// contentPreview 按字符（rune）截取，避免切断中文
func contentPreview(content string) string {
	runes := []rune(content)
	if len(runes) <= contentPreviewLength {
		return content
	}
	return string(runes[:contentPreviewLength]) + contentEllipsis
}

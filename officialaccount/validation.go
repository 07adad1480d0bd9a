package officialaccount

import (
	"errors"
	"fmt"
	"strings"
)

// MaxDraftPageSize 草稿箱接口单次最多返回 20 条
const MaxDraftPageSize = 20

// ErrInvalidPage 分页参数超出范围
var ErrInvalidPage = errors.New("invalid page request")

// Validate 校验公众号配置。
func (cfg *Config) Validate() error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if strings.TrimSpace(cfg.AppID) == "" {
		return fmt.Errorf("appid is required")
	}
	if strings.TrimSpace(cfg.AppSecret) == "" {
		return fmt.Errorf("appsecret is required")
	}
	return nil
}

// ValidatePage 校验 offset >= 0 且 1 <= count <= 20
func ValidatePage(offset, count int) error {
	if offset < 0 {
		return fmt.Errorf("%w: offset must be >= 0, got %d", ErrInvalidPage, offset)
	}
	if count < 1 || count > MaxDraftPageSize {
		return fmt.Errorf("%w: count must be between 1 and %d, got %d", ErrInvalidPage, MaxDraftPageSize, count)
	}
	return nil
}

package officialaccount

import (
	"testing"

	"github.com/ShinyNito/wxdraft/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ValidateConfig(t *testing.T) {
	_, err := New(Config{AppSecret: "secret"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrConfig)
	assert.Contains(t, err.Error(), "appid is required")

	_, err = New(Config{AppID: "appid", AppSecret: "   "})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrConfig)
	assert.Contains(t, err.Error(), "appsecret is required")

	_, err = New(Config{AppID: "appid", AppSecret: "secret", BaseURL: "::bad"})
	assert.ErrorIs(t, err, core.ErrConfig)
}

func TestValidateConfigNil(t *testing.T) {
	var cfg *Config
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config is nil")
}

func TestValidatePage(t *testing.T) {
	tests := []struct {
		offset, count int
		ok            bool
	}{
		{0, 1, true},
		{0, 20, true},
		{1000, 5, true},
		{-1, 10, false},
		{0, 0, false},
		{0, 21, false},
	}

	for _, tt := range tests {
		err := ValidatePage(tt.offset, tt.count)
		if tt.ok {
			assert.NoError(t, err, "offset=%d count=%d", tt.offset, tt.count)
		} else {
			assert.ErrorIs(t, err, ErrInvalidPage, "offset=%d count=%d", tt.offset, tt.count)
		}
	}
}

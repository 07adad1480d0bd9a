package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ShinyNito/wxdraft/core"
	"github.com/spf13/viper"
)

const envPrefix = "WXDRAFT"

type Config struct {
	Wechat WechatConfig `mapstructure:"wechat"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
}

type WechatConfig struct {
	AppID        string        `mapstructure:"app_id"`
	AppSecret    string        `mapstructure:"app_secret"`
	BaseURL      string        `mapstructure:"base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	ExpireBuffer time.Duration `mapstructure:"expire_buffer"`
	Timezone     string        `mapstructure:"timezone"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// envAliases 兼容早期部署使用的环境变量名
var envAliases = map[string][]string{
	"wechat.app_id":     {"APPID"},
	"wechat.app_secret": {"APPSECRET", "APPSecret"},
}

func defaultConfig() *Config {
	return &Config{
		Wechat: WechatConfig{
			BaseURL:      core.DefaultBaseURL,
			Timeout:      core.DefaultTimeout,
			ExpireBuffer: 300 * time.Second,
		},
		Server: ServerConfig{
			Addr:            ":8000",
			CORSOrigins:     []string{"*"},
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func defaults() map[string]any {
	cfg := defaultConfig()
	return map[string]any{
		"wechat.app_id":           cfg.Wechat.AppID,
		"wechat.app_secret":       cfg.Wechat.AppSecret,
		"wechat.base_url":         cfg.Wechat.BaseURL,
		"wechat.timeout":          cfg.Wechat.Timeout,
		"wechat.expire_buffer":    cfg.Wechat.ExpireBuffer,
		"wechat.timezone":         cfg.Wechat.Timezone,
		"server.addr":             cfg.Server.Addr,
		"server.cors_origins":     cfg.Server.CORSOrigins,
		"server.shutdown_timeout": cfg.Server.ShutdownTimeout,
		"log.level":               cfg.Log.Level,
		"log.format":              cfg.Log.Format,
	}
}

// Load 加载配置，优先级从低到高：默认值、配置文件、.env 文件、环境变量
// configPath 为空时在当前目录和 ~/.config/wxdraft 下查找 wxdraft.{toml,yaml,json}。
// envFile 不存在时忽略，除非是显式指定的。
func Load(configPath, envFile string, envFileExplicit bool) (*Config, error) {
	v := viper.New()

	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("wxdraft")
		v.AddConfigPath(".")
		if homeDir, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".config", "wxdraft"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if envFile != "" {
		values, err := readEnvFile(envFile)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) || envFileExplicit {
				return nil, fmt.Errorf("reading env file: %w", err)
			}
		}
		if len(values) > 0 {
			if err := v.MergeConfigMap(values); err != nil {
				return nil, fmt.Errorf("merging env file: %w", err)
			}
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, aliases := range envAliases {
		names := append([]string{envName(key)}, aliases...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("binding env %s: %w", key, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &config, nil
}

// readEnvFile 按环境变量同名规则把 dotenv 文件映射到配置项
func readEnvFile(path string) (map[string]any, error) {
	dotenv := viper.New()
	dotenv.SetConfigFile(path)
	dotenv.SetConfigType("env")
	if err := dotenv.ReadInConfig(); err != nil {
		return nil, err
	}

	out := map[string]any{}
	for key := range defaults() {
		names := append([]string{envName(key)}, envAliases[key]...)
		for _, name := range names {
			// viper 会把 dotenv 的键转为小写
			if value := dotenv.GetString(strings.ToLower(name)); value != "" {
				setNested(out, key, value)
				break
			}
		}
	}
	return out, nil
}

func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func setNested(m map[string]any, key string, value any) {
	parts := strings.Split(key, ".")
	for _, part := range parts[:len(parts)-1] {
		next, ok := m[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[part] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
}

// Validate 凭证缺失或取值非法时返回 core.ErrConfig
func (c *Config) Validate() error {
	var problems []error
	if strings.TrimSpace(c.Wechat.AppID) == "" {
		problems = append(problems, errors.New("wechat.app_id is required (APPID)"))
	}
	if strings.TrimSpace(c.Wechat.AppSecret) == "" {
		problems = append(problems, errors.New("wechat.app_secret is required (APPSecret)"))
	}
	if c.Wechat.Timeout <= 0 {
		problems = append(problems, fmt.Errorf("wechat.timeout must be positive, got %s", c.Wechat.Timeout))
	}
	if _, err := c.Location(); err != nil {
		problems = append(problems, err)
	}
	if len(problems) > 0 {
		return core.NewError(core.ErrConfig, "validate config", errors.Join(problems...))
	}
	return nil
}

// Location 解析 wechat.timezone，为空时使用进程本地时区
func (c *Config) Location() (*time.Location, error) {
	if c.Wechat.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Wechat.Timezone)
	if err != nil {
		return nil, fmt.Errorf("wechat.timezone: %w", err)
	}
	return loc, nil
}

// Save 以 TOML 写出配置，不包含凭证
func Save(config *Config, path string) error {
	v := viper.New()

	v.Set("wechat", map[string]any{
		"base_url":      config.Wechat.BaseURL,
		"timeout":       config.Wechat.Timeout.String(),
		"expire_buffer": config.Wechat.ExpireBuffer.String(),
		"timezone":      config.Wechat.Timezone,
	})
	v.Set("server", map[string]any{
		"addr":             config.Server.Addr,
		"cors_origins":     config.Server.CORSOrigins,
		"shutdown_timeout": config.Server.ShutdownTimeout.String(),
	})
	v.Set("log", map[string]any{
		"level":  config.Log.Level,
		"format": config.Log.Format,
	})

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}

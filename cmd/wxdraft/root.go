package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ShinyNito/wxdraft/internal/config"
	"github.com/ShinyNito/wxdraft/internal/logging"
	"github.com/ShinyNito/wxdraft/officialaccount"
)

type rootFlags struct {
	config   string
	envFile  string
	logLevel string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "wxdraft",
		Short:         "WeChat draft box article service",
		Long:          "wxdraft lists the articles in a WeChat Official Account draft box, over HTTP or from the command line.",
		SilenceUsage:  true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.config, "config", "", "path to config file")
	pf.StringVar(&flags.envFile, "env-file", ".env", "path to dotenv file")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error), overrides config")

	cmd.AddCommand(
		newServeCmd(flags),
		newDraftsCmd(flags),
		newTokenCmd(flags),
		newConfigCmd(),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "wxdraft %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

type app struct {
	cfg    *config.Config
	logger *slog.Logger
	client *officialaccount.Client
}

// loadApp 为子命令加载配置、日志和公众号客户端
func loadApp(cmd *cobra.Command, flags *rootFlags) (*app, error) {
	cfg, err := config.Load(flags.config, flags.envFile, cmd.Flags().Changed("env-file"))
	if err != nil {
		return nil, err
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}

	logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	client, err := officialaccount.New(officialaccount.Config{
		AppID:        cfg.Wechat.AppID,
		AppSecret:    cfg.Wechat.AppSecret,
		BaseURL:      cfg.Wechat.BaseURL,
		Timeout:      cfg.Wechat.Timeout,
		ExpireBuffer: cfg.Wechat.ExpireBuffer,
		Location:     loc,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, client: client}, nil
}

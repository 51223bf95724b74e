package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	sessionstore "github.com/GoBetterAuth/session-store"
	storeconfig "github.com/GoBetterAuth/session-store/config"
	"github.com/GoBetterAuth/session-store/env"
	internalbootstrap "github.com/GoBetterAuth/session-store/internal/bootstrap"
	"github.com/GoBetterAuth/session-store/models"
)

var rootCmd = &cobra.Command{
	Use:   "sessionstore",
	Short: "Database backed HTTP session store",
	Long:  `Serve, migrate and inspect a sessions table whose data column holds one serialized mapping per session.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && os.Getenv(env.EnvGoEnvironment) != "production" {
			slog.Debug("no .env file loaded", "error", err)
		}
		return nil
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to the TOML configuration file (defaults to "+env.EnvConfigPath+" or config.toml)")
}

// loadConfig reads the TOML file and applies environment overrides and defaults.
func loadConfig(cmd *cobra.Command) (cfg *models.Config, err error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = storeconfig.ConfigPath()
	}

	fileConfig, err := storeconfig.LoadFile(path)
	if err != nil {
		return nil, err
	}

	// NewConfig panics on invalid configuration.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return storeconfig.NewConfig(storeconfig.FromFile(fileConfig)...), nil
}

func openStore(cmd *cobra.Command, mutate func(*models.Config)) (*sessionstore.Store, *slog.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	if mutate != nil {
		mutate(cfg)
	}

	logger := internalbootstrap.InitLogger(cfg.Logger)
	slog.SetDefault(logger)

	store, err := sessionstore.New(cfg, sessionstore.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	return store, logger, nil
}

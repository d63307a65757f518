package main

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	app "github.com/rocketscienceinc/damas-backend/internal"
	"github.com/rocketscienceinc/damas-backend/internal/config"
	"github.com/rocketscienceinc/damas-backend/internal/logger"
)

// configPathEnv overrides the location of the configuration file.
const configPathEnv = "DAMAS_CONFIG"

// main - is the entry point of the application. It initializes the configuration, logger, and runs the application.
func main() {
	defer func() {
		if err := recover(); err != nil {
			fmt.Fprintf(os.Stderr, "recovered from panic: %v\n", err)
			os.Exit(1)
		}
	}()

	conf := initConfig()
	log := logger.New(conf.LogLevel, conf.LogFormat)
	defer func() {
		_ = log.Sync()
	}()

	if err := app.RunApp(log, conf); err != nil {
		log.Error("app run failed", zap.Error(err))
		panic(fmt.Errorf("app run failed: %w", err))
	}
}

// initialize config.
func initConfig() *config.Config {
	if path := os.Getenv(configPathEnv); path != "" {
		return config.MustLoad(path)
	}

	baseDir, err := os.Getwd()
	if err != nil {
		panic(fmt.Errorf("failed to get current directory: %w", err))
	}

	return config.MustLoad(filepath.Join(baseDir, "./config.yml"))
}

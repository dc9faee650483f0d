package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"github.com/tiboeycken/kdg-kiosk-installer/internal/bootstrap"
	"github.com/tiboeycken/kdg-kiosk-installer/internal/config"
	"github.com/tiboeycken/kdg-kiosk-installer/internal/domain"
	"github.com/tiboeycken/kdg-kiosk-installer/internal/installer"
	"github.com/tiboeycken/kdg-kiosk-installer/internal/logger"
	"go.uber.org/zap"
)

const version = "1.0.0"

func main() {
	os.Exit(run())
}

func run() int {
	// Parse command line flags
	configPath := pflag.String("config", "", "Path to configuration file (optional)")
	native := pflag.Bool("native", false, "Install directly from GitHub Releases instead of running the remote installer script")
	pinVersion := pflag.String("version", "", "Release version to install in native mode (default: latest)")
	assumeYes := pflag.BoolP("yes", "y", false, "Skip prompts; launches the setup wizard after a native install")
	logLevel := pflag.String("log-level", "", "Override logging level (debug|info|warn|error)")
	pflag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	log := logger.L()
	log.Debug("starting kdg-kiosk-install",
		zap.String("version", version),
		zap.Bool("native", *native),
	)

	ctx := context.Background()

	if *native {
		err = installer.New(cfg, log).Run(ctx, installer.Options{
			Version:   *pinVersion,
			AssumeYes: *assumeYes,
		})
	} else {
		err = bootstrap.New(cfg.Bootstrap, log).Run(ctx)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return domain.ExitCode(err)
	}
	return 0
}

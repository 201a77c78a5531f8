package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/satchel/internal/app"
	"github.com/ternarybob/satchel/internal/common"
)

// configPaths allows multiple -config flags; later files override earlier ones.
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles configPaths
	serverPort  = flag.Int("port", 0, "Server port (overrides config)")
	serverHost  = flag.String("host", "", "Server host (overrides config)")
	showVersion = flag.Bool("version", false, "Print version information")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("Satchel version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	// Auto-discover a config file when none was specified.
	if len(configFiles) == 0 {
		if _, err := os.Stat("satchel.toml"); err == nil {
			configFiles = append(configFiles, "satchel.toml")
		} else if _, err := os.Stat("deployments/local/satchel.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/satchel.toml")
		}
	}

	// Load order: defaults -> config files -> env -> CLI flags.
	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Str("paths", strings.Join(configFiles, ",")).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}
	common.ApplyFlagOverrides(config, *serverPort, *serverHost)

	logger := common.InitLogger(config)
	common.PrintBanner(common.GetFullVersion())
	common.InstallCrashHandler(common.CrashLogDir)

	logger.Info().
		Str("config_files", strings.Join(configFiles, ",")).
		Str("environment", config.Environment).
		Str("badger_path", config.Storage.Badger.Path).
		Msg("Configuration loaded")

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}

	if err := application.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start application")
		os.Exit(1)
	}

	logger.Info().Msg("Satchel running - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	application.Stop()
}

// Package cmd provides the CLI commands for buildcost.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"buildcost/internal/app"
	"buildcost/internal/config"
	"buildcost/internal/logging"
)

// Version is stamped at build time
var Version = "0.1.0"

var (
	cfgFile    string
	verbose    bool
	region     string
	dataDir    string
	pricingURL string
	dbPath     string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "buildcost",
	Short: "Estimate construction material and labor costs",
	Long: `buildcost prices construction takeoffs against a base catalog adjusted
by regional factors.

Examples:
  buildcost list
  buildcost calc concrete-slab-pro --set length=20 --set width=10
  buildcost calc --input patio.hcl --format csv
  buildcost price concrete ready_mix_4000psi per_cubic_yard --region west_coast
  buildcost serve --data-dir ./pricing --watch`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI
func Execute() error {
	defer logging.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file, JSON or YAML (default is $HOME/.buildcost/config.json)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	flags.StringVarP(&region, "region", "r", "", "pricing region code")
	flags.StringVar(&dataDir, "data-dir", "", "directory holding catalog.json and regions/*.json")
	flags.StringVar(&pricingURL, "pricing-url", "", "base URL serving catalog.json and regions/*.json")
	flags.StringVar(&dbPath, "db", "", "SQLite state database path")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(calcCmd)
	rootCmd.AddCommand(priceCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	path := cfgFile
	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".buildcost", "config.json")
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg)
	config.Set(cfg)

	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		logging.InitializeDefault()
		logging.Warn("logging config rejected, using defaults", zap.String("output", cfg.Logging.Output), zap.Error(err))
	}
}

// applyFlags lets command-line flags win over file and environment
func applyFlags(cfg *config.Config) {
	if region != "" {
		cfg.Pricing.Region = region
	}
	if dataDir != "" {
		cfg.Pricing.DataDir = dataDir
	}
	if pricingURL != "" {
		cfg.Pricing.BaseURL = pricingURL
	}
	if dbPath != "" {
		cfg.Storage.Path = dbPath
	}
}

// startApp builds the runtime from the global configuration and loads
// pricing. Callers must Close it.
func startApp(ctx context.Context) (*app.App, error) {
	a, err := app.New(config.Get(), logging.Logger)
	if err != nil {
		return nil, err
	}
	if err := a.Start(ctx); err != nil {
		a.Close()
		return nil, err
	}
	logging.Debug("runtime started", zap.String("region", a.Engine.Region()), zap.Int("calculators", len(a.Calculators())))
	return a, nil
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "buildcost version %s\n", Version)
	},
}

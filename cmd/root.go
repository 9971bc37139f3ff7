package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/riicho/tvsub/config"
	"github.com/riicho/tvsub/mlsub"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  zerolog.Logger
	client  *mlsub.Client

	version   = "dev"
	buildTime = "unknown"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "tvsub",
	Short: "A CLI for browsing TV guides and reserving recordings on mlsub",
	Long: `tvsub talks to the mlsub TV recording reservation service: it lists
channels per broadcast network, fetches per-channel program guides (EPG),
reserves programs for recording and shows your account and order history.`,
	PersistentPreRunE: initializeApp,
}

// SetVersion records the build version for --version and selfupdate.
func SetVersion(v, bt string) {
	version = v
	buildTime = bt
	rootCmd.Version = fmt.Sprintf("%s (built %s)", v, bt)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
}

// initializeApp loads configuration, sets up logging and logs in.
func initializeApp(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger = setupLogger(cfg.Logging)

	opts := []mlsub.Option{
		mlsub.WithBaseURL(cfg.MLSub.URL),
		mlsub.WithTimeout(time.Duration(cfg.MLSub.Timeout) * time.Second),
	}
	if cfg.MLSub.UserAgent != "" {
		opts = append(opts, mlsub.WithUserAgent(cfg.MLSub.UserAgent))
	}

	client, err = mlsub.NewClient(logger, opts...)
	if err != nil {
		return fmt.Errorf("failed to create mlsub client: %w", err)
	}

	if _, err := client.Login(cmd.Context(), cfg.MLSub.Username, cfg.MLSub.Password); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	return nil
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "trace":
		level = zerolog.TraceLevel
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	// Console format; only colorize a real terminal
	color := cfg.Color && isatty.IsTerminal(os.Stderr.Fd())
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !color,
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

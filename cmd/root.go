package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aselya-coder/PraktisiMengajar/internal/config"
)

var (
	cfgFile   string
	verbose   bool
	appConfig config.Config
	logger    = zap.NewNop()

	// configFileUsed is reported once the logger exists.
	configFileUsed string
)

var rootCmd = &cobra.Command{
	Use:   "praktisi",
	Short: "Praktisi Mengajar site and content admin",
	Long: `praktisi serves the Praktisi Mengajar marketing site and its admin editor.
Page content lives in a hosted database and falls back to a local cache and
then to the bundled defaults when the database cannot be reached.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initializeConfig(cmd); err != nil {
			return err
		}
		return initializeLogger()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func initializeConfig(_ *cobra.Command) error {
	v := config.NewViper()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	var notFound viper.ConfigFileNotFoundError
	if err := v.ReadInConfig(); err != nil {
		switch {
		case errors.As(err, &notFound):
			// only reachable without --config; a named file that is missing
			// surfaces as a plain read error below
		case cfgFile != "" && errors.Is(err, os.ErrNotExist):
			return fmt.Errorf("config file %s not found: %w", cfgFile, err)
		default:
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg, err := config.Unmarshal(v)
	if err != nil {
		return err
	}
	appConfig = cfg
	configFileUsed = v.ConfigFileUsed()
	return nil
}

func initializeLogger() error {
	zc := zap.NewProductionConfig()
	if appConfig.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level := zapcore.InfoLevel
	if appConfig.Log.Level != "" {
		if err := level.UnmarshalText([]byte(appConfig.Log.Level)); err != nil {
			return fmt.Errorf("invalid log.level %q: %w", appConfig.Log.Level, err)
		}
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	l, err := zc.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	logger = l
	if configFileUsed != "" {
		logger.Info("using config file", zap.String("path", configFileUsed))
	} else {
		logger.Info("no config file found, using defaults and environment")
	}
	return nil
}

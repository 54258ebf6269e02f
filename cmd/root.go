package cmd

import (
	"os"

	"noticeboard/config"
	"noticeboard/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewRootCmd builds the command tree around a single viper instance so
// flags, environment and defaults resolve in one place.
func NewRootCmd() *cobra.Command {
	v := config.New()

	root := &cobra.Command{
		Use:          "noticeboard",
		Short:        "Shared notice board: REST API and web UI",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	_ = v.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(newAPICmd(v), newWebCmd(v))
	return root
}

func Execute() {
	// cobra prints the error itself.
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig initialises logging first so configuration warnings are kept,
// then resolves the configuration.
func loadConfig(v *viper.Viper) (*config.Config, error) {
	dotenvErr := config.LoadDotenv()
	logger.Init(v.GetString("log.level"))
	if dotenvErr != nil {
		logger.Sugar.Debugf("No .env file loaded: %v", dotenvErr)
	}
	return config.Load(v)
}

// loadWebConfig is loadConfig plus the UI signing keys.
func loadWebConfig(v *viper.Viper) (*config.Config, error) {
	cfg, err := loadConfig(v)
	if err != nil {
		return nil, err
	}
	cfg.Web.ResolveKeys()
	return cfg, nil
}

func fxLogger() fx.Option {
	return fx.WithLogger(func() fxevent.Logger {
		return &fxevent.ZapLogger{Logger: logger.Log.WithOptions(zap.IncreaseLevel(zap.WarnLevel))}
	})
}

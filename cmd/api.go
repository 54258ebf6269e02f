package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"noticeboard/config"
	"noticeboard/config/database"
	handler "noticeboard/internal/notice"
	"noticeboard/internal/notice/repository"
	"noticeboard/internal/notice/service"
	"noticeboard/pkg/logger"
	"noticeboard/router"
	"noticeboard/socket"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

const shutdownTimeout = 10 * time.Second

func newAPICmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "api",
		Short: "Serve the notice REST API and the board event stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			defer logger.Sync()

			fx.New(apiOptions(cfg), fxLogger()).Run()
			return nil
		},
	}
	cmd.Flags().Int("port", 5000, "API listen port")
	cmd.Flags().String("store", config.DriverSQLite, "store driver (postgres, sqlite, mongo)")
	cmd.Flags().String("database-url", "", "store address (DSN, file path or mongodb:// URI)")
	_ = v.BindPFlag("port", cmd.Flags().Lookup("port"))
	_ = v.BindPFlag("store.driver", cmd.Flags().Lookup("store"))
	_ = v.BindPFlag("database.url", cmd.Flags().Lookup("database-url"))
	return cmd
}

func apiOptions(cfg *config.Config) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		fx.Provide(
			newRepository,
			newHub,
			newNoticeService,
			handler.NewNoticeHandler,
			newAPIServer,
		),
		fx.Invoke(func(*http.Server) {}),
	)
}

// newRepository opens the configured store, pings it and makes sure the
// schema exists. Any failure aborts startup.
func newRepository(lc fx.Lifecycle, cfg *config.Config) (repository.NoticeRepository, error) {
	ctx := context.Background()

	var repo repository.NoticeRepository
	switch cfg.StoreDriver {
	case config.DriverPostgres, config.DriverSQLite:
		db, err := database.ConnectSQL(ctx, cfg.StoreDriver, cfg.DatabaseURL, cfg.ConnectAttempts)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.StopHook(db.Close))

		dialect := repository.DialectPostgres
		if cfg.StoreDriver == config.DriverSQLite {
			dialect = repository.DialectSQLite
		}
		repo = repository.NewSQLRepository(db, dialect)
	case config.DriverMongo:
		client, err := database.ConnectMongo(ctx, cfg.DatabaseURL, cfg.ConnectAttempts)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.StopHook(client.Disconnect))

		coll := client.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection)
		repo = repository.NewMongoRepository(coll)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("prepare %s store: %w", cfg.StoreDriver, err)
	}
	return repo, nil
}

func newHub(lc fx.Lifecycle) *socket.Hub {
	hub := socket.NewHub()
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go hub.Run()
			return nil
		},
		OnStop: func(context.Context) error {
			hub.Stop()
			return nil
		},
	})
	return hub
}

func newNoticeService(repo repository.NoticeRepository, hub *socket.Hub) *service.NoticeService {
	return service.NewNoticeService(repo, hub)
}

func newAPIServer(lc fx.Lifecycle, cfg *config.Config, h *handler.NoticeHandler, hub *socket.Hub) *http.Server {
	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Port),
		Handler: router.Setup(h, hub, router.Options{
			Prefix:         cfg.APIPrefix,
			AllowedOrigins: cfg.CORSOrigins,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	lc.Append(serverHooks(srv, "API"))
	return srv
}

// serverHooks binds the listener on start so port conflicts fail startup,
// then serves in the background until stop.
func serverHooks(srv *http.Server, name string) fx.Hook {
	return fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", srv.Addr, err)
			}
			logger.Sugar.Infof("%s listening on %s", name, ln.Addr())
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Sugar.Errorf("%s server stopped: %v", name, err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}
}

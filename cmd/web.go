package cmd

import (
	"fmt"
	"net/http"
	"time"

	"noticeboard/config"
	"noticeboard/internal/web"
	"noticeboard/middleware"
	"noticeboard/pkg/apiclient"
	"noticeboard/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

func newWebCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "web",
		Short: "Serve the notice board web UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadWebConfig(v)
			if err != nil {
				return err
			}
			defer logger.Sync()

			fx.New(webOptions(cfg), fxLogger()).Run()
			return nil
		},
	}
	cmd.Flags().Int("port", 3000, "UI listen port")
	cmd.Flags().String("api-url", "http://localhost:5000/api", "base URL of the notice API")
	_ = v.BindPFlag("web.port", cmd.Flags().Lookup("port"))
	_ = v.BindPFlag("web.api_url", cmd.Flags().Lookup("api-url"))
	return cmd
}

func webOptions(cfg *config.Config) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		fx.Provide(
			newAPIClient,
			newWebHandler,
			newWebServer,
		),
		fx.Invoke(func(*http.Server) {}),
	)
}

func newAPIClient(cfg *config.Config) web.NoticeAPI {
	return apiclient.New(cfg.Web.APIURL, &http.Client{Timeout: 15 * time.Second})
}

func newWebHandler(cfg *config.Config, api web.NoticeAPI) (*web.Handler, error) {
	return web.NewHandler(api, web.Options{
		LiveURL:   cfg.Web.LiveURL,
		CookieKey: cfg.Web.CookieKey,
		Secure:    cfg.Web.Secure,
	})
}

func newWebServer(lc fx.Lifecycle, cfg *config.Config, h *web.Handler) *http.Server {
	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Web.Port),
		Handler: middleware.Chain(
			web.Protect(h.Routes(), cfg.Web.CSRFKey, cfg.Web.Secure),
			middleware.RequestLogger,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}
	lc.Append(serverHooks(srv, "Web UI"))
	return srv
}

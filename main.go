package main

import (
	"context"
	"os"
	"time"

	"github.com/fasthttp/router"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"github.com/valyala/fasthttp"

	"eventcheckin/internal/checkin"
	"eventcheckin/internal/config"
	"eventcheckin/internal/db"
	"eventcheckin/internal/extension"
	"eventcheckin/internal/hooks"
	"eventcheckin/internal/http/handlers"
	appmw "eventcheckin/internal/http/middleware"
	"eventcheckin/internal/i18n"
	"eventcheckin/internal/logging"
	"eventcheckin/internal/metabox"
	ui "eventcheckin/web"
)

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file to load before reading the environment")
	listen := pflag.String("listen", "", "listen address, overrides APP_LISTEN_ADDR")
	pflag.Parse()

	_ = godotenv.Load(*envFile)
	cfg := config.Load()
	if *listen != "" {
		cfg.ListenAddr = *listen
	}

	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: os.Stderr})

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if err := extension.Manifest.CheckDependencies(map[string]string{
		extension.TicketsPlus: cfg.TicketsPlusVersion,
	}); err != nil {
		log.Fatal().Err(err).Str("plugin", extension.Manifest.Name).Msg("extension cannot load")
	}

	sqlDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	if err := db.EnsureBootstrapAdmin(sqlDB, cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure bootstrap admin")
	}

	store := db.NewStore(sqlDB)
	db.StartSessionPruner(context.Background(), store, time.Hour, log)
	keys := checkin.NewHandler(store, checkin.RandomKeys{Length: cfg.APIKeyLength})
	translations := i18n.NewLoader(cfg.Locale, cfg.LangSystemDir, log)
	boxes := metabox.NewRenderer(keys, cfg.TicketEnabled, translations, log)

	reg := hooks.NewRegistry()
	extension.NewProvider(keys, boxes, cfg.LangDir, log).Register(reg)

	if err := hooks.DoAction(context.Background(), reg, extension.ActionLoadTextDomains, translations); err != nil {
		log.Warn().Err(err).Str("locale", translations.Locale()).Msg("failed to load translations")
	}

	handlers.InitPrometheusMetrics(prometheus.DefaultRegisterer)

	r := router.New()

	handler := handlers.RequestLogger(log)(r.Handler)

	r.GET("/healthz", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	})

	r.ServeFS("/static/{filepath:*}", ui.StaticFS())

	r.GET("/login", handlers.LoginForm())
	r.POST("/login", handlers.LoginSubmit(store, cfg, log))
	r.POST("/logout", handlers.Logout(store, log))

	r.GET("/", appmw.AdminAuth(store, cfg)(handlers.Dashboard()))
	r.GET("/admin/posts", appmw.AdminAuth(store, cfg)(handlers.PostsPage(store)))
	r.POST("/admin/posts", appmw.AdminAuth(store, cfg)(handlers.CreatePost(store)))
	r.GET("/admin/posts/{id}/edit", appmw.AdminAuth(store, cfg)(handlers.EditPost(store, reg, log)))

	r.GET("/community/events", appmw.SessionAuth(store, cfg)(handlers.CommunityEvents(store)))
	r.POST("/community/events", appmw.SessionAuth(store, cfg)(handlers.CommunitySubmit(store, cfg)))
	r.GET("/community/events/{id}/edit", appmw.SessionAuth(store, cfg)(handlers.CommunityEdit(store, reg, cfg, log)))

	r.POST("/v1/events/{id}/tickets", appmw.BearerAuth(cfg)(handlers.CreateTicket(store, reg, cfg, log)))
	r.POST("/v1/qr/validate", handlers.ValidateQR(reg, cfg, log))

	r.GET("/metrics", handlers.MetricsHandler(prometheus.DefaultGatherer))

	log.Info().Str("addr", cfg.ListenAddr).Str("version", extension.Manifest.Version).Msg("per-event checkin listening")
	if err := fasthttp.ListenAndServe(cfg.ListenAddr, handler); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

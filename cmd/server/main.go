package main

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"mastothread/internal/adapters/cache"
	"mastothread/internal/adapters/filestore"
	"mastothread/internal/adapters/mastodon"
	"mastothread/internal/adapters/secrets"
	"mastothread/internal/adapters/settings"
	"mastothread/internal/adapters/web"
	"mastothread/internal/config"
	"mastothread/internal/usecases"
	"mastothread/pkg/log"
)

func main() {
	log.SetDefault(log.New(log.Info, log.NewStdoutSink()))

	cfg, err := config.Load("config/defaults.yaml")
	if err != nil {
		log.GlobalFatal("configuration failed", "error", err)
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.GlobalFatal("bad log level", "level", cfg.LogLevel)
	}
	logger := log.New(level, log.NewStdoutSink())
	log.SetDefault(logger)
	defer logger.Close()

	codec := secrets.NewCodec(cfg.SecretSeed)
	store, err := settings.Open(cfg.DataPath, codec)
	if err != nil {
		log.GlobalFatal("settings store failed", "path", cfg.DataPath, "error", err)
	}
	defer store.Close()

	files := filestore.NewLocal(cfg.AttachmentDir)
	capCache := cache.NewCapabilityCache(cfg.CacheTTL())

	composeUC := usecases.NewComposeThreadUseCase(files)
	publishUC := usecases.NewPublishThreadUseCase(files)
	capsUC := usecases.NewRefreshCapabilitiesUseCase(capCache)
	authUC := usecases.NewAuthorizeUseCase(store)

	clients := func(server, token string) web.ServerClient {
		return mastodon.New(server, token)
	}
	handlers := web.NewHandlers(composeUC, publishUC, capsUC, authUC, store, clients, cfg.RedirectURI)

	app := fiber.New(fiber.Config{
		AppName: "Mastothread",
	})

	app.Use(recover.New())
	app.Use(requestid.New(web.RequestIDConfig()))
	app.Use(web.RequestIDToContextMiddleware())
	app.Use(web.RequestLoggerMiddleware())

	web.SetupRoutes(app, handlers)

	log.GlobalInfo("starting", "port", cfg.Port, "attachment_dir", cfg.AttachmentDir)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.GlobalFatal("server stopped", "error", err)
	}
}

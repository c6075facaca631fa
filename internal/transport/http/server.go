package http

import (
	stdhttp "net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/dmchat/dmchat-server/internal/auth"
	"github.com/dmchat/dmchat-server/internal/config"
	"github.com/dmchat/dmchat-server/internal/core"
	"github.com/dmchat/dmchat-server/internal/store"
)

// NewServer builds the HTTP server: REST API, websocket endpoint and
// optional static asset serving.
func NewServer(router *core.Router, presence *core.Presence, authService *auth.Service, st store.Store, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), LoggerMiddleware(logger))

	api := NewAPIHandlers(authService, logger)
	users := NewUserHandlers(st, logger)
	ws := NewWSHandler(router, presence, authService, cfg.WSMsgPerMinute, logger)

	engine.GET("/healthz", healthHandler)
	engine.POST("/api/register", api.Register)
	engine.POST("/api/login", api.Login)
	engine.GET("/api/users", AuthMiddleware(authService, logger), users.Search)
	engine.GET("/ws", gin.WrapH(ws))

	if cfg.StaticDir != "" {
		engine.NoRoute(staticHandler(cfg.StaticDir))
	}

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}

// staticHandler serves files from dir with an index.html fallback for
// unknown paths, so client-side routes resolve to the app shell.
func staticHandler(dir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := filepath.Join(dir, filepath.Clean("/"+c.Request.URL.Path))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			c.File(path)
			return
		}
		c.File(filepath.Join(dir, "index.html"))
	}
}

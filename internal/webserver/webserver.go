package webserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/talkincode/sneakerdrop/config"
	"go.uber.org/zap"
)

// WebServer wraps the echo instance with the service middleware stack.
type WebServer struct {
	root      *echo.Echo
	appConfig *config.AppConfig
}

func NewWebServer(appConfig *config.AppConfig) *WebServer {
	root := echo.New()
	root.HideBanner = true
	root.HidePort = true
	root.Use(middleware.Recover())
	root.Use(zapLogger())
	return &WebServer{root: root, appConfig: appConfig}
}

// Echo exposes the underlying router for handler registration.
func (s *WebServer) Echo() *echo.Echo {
	return s.root
}

// Start listens until ctx is cancelled, then shuts down gracefully.
func (s *WebServer) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.appConfig.Web.Host, s.appConfig.Web.Port)
	errCh := make(chan error, 1)
	go func() {
		zap.S().Infof("http server listen %s", addr)
		errCh <- s.root.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.root.Shutdown(shutdownCtx)
	}
}

// zapLogger logs one line per request through the global zap logger.
func zapLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			zap.L().Debug("http request",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)))
			return err
		}
	}
}

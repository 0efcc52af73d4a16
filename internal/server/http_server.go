package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	echoapi "go.pilab.hu/loginbroker/api/echo"
	"go.pilab.hu/loginbroker/log"
)

// NewHTTPServer creates and configures the broker's HTTP server.
func NewHTTPServer(addr string, appLogger log.Logger, loginAPI *echoapi.LoginAPI) *http.Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(requestLogger(appLogger))

	loginAPI.RegisterRoutes(e)
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// requestLogger logs each request through the broker's logger interface.
func requestLogger(appLogger log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			fields := map[string]interface{}{
				"method":  c.Request().Method,
				"path":    c.Request().URL.Path,
				"status":  c.Response().Status,
				"latency": time.Since(start).String(),
				"ip":      c.RealIP(),
			}
			if err != nil {
				appLogger.Error(c.Request().Context(), "http request failed", err, fields)
			} else {
				appLogger.Info(c.Request().Context(), "http request", fields)
			}
			return err
		}
	}
}

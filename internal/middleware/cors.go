package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	allowHeaders = "authorization, x-client-info, apikey, content-type"
	allowMethods = "GET, POST, OPTIONS"
)

// CORS sets the storefront's permissive CORS headers on every response and
// answers preflight requests with an empty 200.
func CORS() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set(echo.HeaderAccessControlAllowOrigin, "*")
			h.Set(echo.HeaderAccessControlAllowHeaders, allowHeaders)
			h.Set(echo.HeaderAccessControlAllowMethods, allowMethods)

			if c.Request().Method == http.MethodOptions {
				return c.String(http.StatusOK, "")
			}
			return next(c)
		}
	}
}

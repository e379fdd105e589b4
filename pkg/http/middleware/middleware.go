// Package middleware holds the echo middleware shared by every API route.
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	applogger "FinScope/pkg/logger"
)

const HeaderRequestID = "X-Request-ID"

// RequestID keeps a caller supplied X-Request-ID or assigns a fresh one, and
// echoes it back so analysis reports can be traced across logs.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(HeaderRequestID)
			if id == "" || len(id) > 64 {
				id = uuid.NewString()
			}
			c.Set("request_id", id)
			c.Response().Header().Set(HeaderRequestID, id)
			return next(c)
		}
	}
}

// RequestLogging writes one debug line per request.
func RequestLogging(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			id, _ := c.Get("request_id").(string)
			l.Debug("http request",
				applogger.String("request_id", id),
				applogger.String("method", c.Request().Method),
				applogger.String("uri", c.Request().RequestURI),
				applogger.String("remote", c.RealIP()),
				applogger.Int("status", c.Response().Status),
				applogger.Duration("latency", time.Since(start)))
			return err
		}
	}
}

// Recover turns a handler panic into a 500 envelope and logs the stack.
func Recover(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				perr, ok := r.(error)
				if !ok {
					perr = fmt.Errorf("%v", r)
				}
				l.Error("handler panic",
					applogger.String("route", c.Path()),
					applogger.Error(perr),
					applogger.String("stack", string(debug.Stack())))
				if !c.Response().Committed {
					err = c.JSON(http.StatusInternalServerError, map[string]any{
						"status":  http.StatusInternalServerError,
						"message": http.StatusText(http.StatusInternalServerError),
					})
				}
			}()
			return next(c)
		}
	}
}

// CORS allows browser dashboards on the listed origins. "*" allows any origin.
// An empty list disables the headers entirely.
func CORS(origins []string) echo.MiddlewareFunc {
	wildcard := false
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			wildcard = true
		}
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}
	methods := strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodOptions}, ", ")
	headers := strings.Join([]string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, HeaderRequestID}, ", ")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			origin := c.Request().Header.Get(echo.HeaderOrigin)
			if origin == "" || len(allowed) == 0 {
				return next(c)
			}
			if _, ok := allowed[origin]; !ok && !wildcard {
				return next(c)
			}
			h := c.Response().Header()
			h.Add(echo.HeaderVary, echo.HeaderOrigin)
			h.Set(echo.HeaderAccessControlAllowOrigin, origin)
			h.Set(echo.HeaderAccessControlAllowMethods, methods)
			h.Set(echo.HeaderAccessControlAllowHeaders, headers)
			h.Set(echo.HeaderAccessControlExposeHeaders, HeaderRequestID)
			if c.Request().Method == http.MethodOptions {
				return c.NoContent(http.StatusNoContent)
			}
			return next(c)
		}
	}
}

package http

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	xutil "FinScope/pkg/util"
)

// QueryInt reads an integer query parameter. Missing, malformed and out of
// range values all fall back to def.
func QueryInt(c echo.Context, name string, def, lo, hi int) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil || v < lo || v > hi {
		return def
	}
	return v
}

// QueryTime reads a time query parameter in any layout xutil.ParseTime accepts.
func QueryTime(c echo.Context, name string, def time.Time) time.Time {
	return xutil.ParseTimeDefault(c.QueryParam(name), def)
}

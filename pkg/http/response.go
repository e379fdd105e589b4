package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler is anything that mounts routes on the API server.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}

// Envelope wraps every JSON answer. Status always equals the HTTP status code.
type Envelope struct {
	Status  int    `json:"status" example:"200"`
	Message string `json:"message" example:"OK"`
	Data    any    `json:"data,omitempty"`
}

// ValidationError is one rejected request field.
type ValidationError struct {
	Code    string         `json:"code,omitempty" example:"ERR_TICKER"`
	Field   string         `json:"field,omitempty" example:"symbol"`
	Message string         `json:"message,omitempty"`
	Params  map[string]any `json:"params,omitempty"`
}

// Page carries list results. Total counts the rows in this page.
type Page struct {
	Rows  any   `json:"rows"`
	Total int64 `json:"total"`
}

// DataResponse writes data inside an Envelope with the given status.
func DataResponse(c echo.Context, status int, data any) error {
	return c.JSON(status, Envelope{Status: status, Message: http.StatusText(status), Data: data})
}

func SuccessResponse(c echo.Context, data any) error {
	return DataResponse(c, http.StatusOK, data)
}

func CreatedResponse(c echo.Context, data any) error {
	return DataResponse(c, http.StatusCreated, data)
}

// AcceptedResponse acknowledges work handed to the job queue.
func AcceptedResponse(c echo.Context, data any) error {
	return DataResponse(c, http.StatusAccepted, data)
}

func ListResponse(c echo.Context, rows any, total int64) error {
	return DataResponse(c, http.StatusOK, Page{Rows: rows, Total: total})
}

func BadRequestResponse(c echo.Context, problems []ValidationError) error {
	return DataResponse(c, http.StatusBadRequest, problems)
}

func TooManyRequestsResponse(c echo.Context) error {
	return DataResponse(c, http.StatusTooManyRequests, "rate limited")
}

// AppErrorResponse renders an *AppError with its own status. Anything else is
// reported as a bare 500 so internal details never reach the client.
func AppErrorResponse(c echo.Context, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return DataResponse(c, appErr.Status, []*AppError{appErr})
	}
	return DataResponse(c, http.StatusInternalServerError, "internal error")
}

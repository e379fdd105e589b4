package http

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	xutil "FinScope/pkg/util"
)

var (
	validate  = newValidator()
	tickerRe  = regexp.MustCompile(`^[A-Za-z0-9^][A-Za-z0-9.\-^=]{0,15}$`)
	tagByRule = map[string]string{"ticker": "ERR_TICKER", "horizon": "ERR_HORIZON"}
)

// newValidator reports fields by their JSON names and knows two domain rules:
// ticker (AAPL, BRK-B, VOD.L, ^GSPC) and horizon (30d, 2w, 3m, 1y).
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "query"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	_ = v.RegisterValidation("ticker", func(fl validator.FieldLevel) bool {
		return tickerRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("horizon", func(fl validator.FieldLevel) bool {
		_, ok := xutil.ParseHorizon(fl.Field().String())
		return ok
	})
	return v
}

// Validate applies defaults and validation rules to an already populated request.
func Validate(req any) []ValidationError {
	if err := defaults.Set(req); err != nil {
		return toValidationErrors(err)
	}
	if err := validate.Struct(req); err != nil {
		return toValidationErrors(err)
	}
	return nil
}

// ReadAndValidateRequest binds path, query and body into req, fills defaults and
// validates it. It returns nil or the list of problems.
func ReadAndValidateRequest(c echo.Context, req any) []ValidationError {
	if err := c.Bind(req); err != nil {
		return toValidationErrors(err)
	}
	return Validate(req)
}

func toValidationErrors(err error) []ValidationError {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		out := make([]ValidationError, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			code, ok := tagByRule[fe.Tag()]
			if !ok {
				code = "ERR_" + strings.ToUpper(fe.Tag())
			}
			out = append(out, ValidationError{
				Code:    code,
				Field:   fe.Field(),
				Message: describe(fe),
				Params:  ruleParams(fe),
			})
		}
		return out
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return []ValidationError{{Code: "ERR_BIND", Message: fmt.Sprint(he.Message)}}
	}
	return []ValidationError{{Code: "ERR_UNKNOWN", Message: err.Error()}}
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "ticker":
		return fmt.Sprintf("%s must be a ticker symbol, got %q", field, fe.Value())
	case "horizon":
		return fmt.Sprintf("%s must look like 30d, 2w, 3m or 1y, got %q", field, fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}

func ruleParams(fe validator.FieldError) map[string]any {
	switch fe.Tag() {
	case "gt", "gte":
		return map[string]any{"min": fe.Param()}
	case "lt", "lte", "max":
		return map[string]any{"max": fe.Param()}
	case "oneof":
		return map[string]any{"options": strings.Fields(fe.Param())}
	}
	return nil
}

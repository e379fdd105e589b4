package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type quoteRequest struct {
	Symbol    string `query:"symbol" json:"symbol" validate:"required,ticker"`
	TimeFrame string `query:"time_frame" json:"time_frame" default:"30d" validate:"horizon"`
	N         int    `query:"n" json:"n" default:"300" validate:"gte=1,lte=5000"`
}

type routes struct{}

func (routes) RegisterRoutes(e *echo.Echo) {
	e.GET("/quote", func(c echo.Context) error {
		req := &quoteRequest{}
		if verr := ReadAndValidateRequest(c, req); verr != nil {
			return BadRequestResponse(c, verr)
		}
		return SuccessResponse(c, req)
	})
	e.GET("/boom", func(echo.Context) error { panic("index out of range") })
	e.GET("/gone", func(c echo.Context) error {
		return AppErrorResponse(c, NotFoundError("no such ticker").WithParam("symbol", "ZZZZ"))
	})
	e.GET("/opaque", func(c echo.Context) error {
		return AppErrorResponse(c, errors.New("dsn=secret"))
	})
}

func TestValidateAppliesDefaultsAndDomainRules(t *testing.T) {
	req := &quoteRequest{Symbol: "BRK-B"}
	assert.Nil(t, Validate(req))
	assert.Equal(t, "30d", req.TimeFrame)
	assert.Equal(t, 300, req.N)

	for _, sym := range []string{"AAPL", "VOD.L", "^GSPC", "EURUSD=X"} {
		assert.Nil(t, Validate(&quoteRequest{Symbol: sym}), sym)
	}

	verr := Validate(&quoteRequest{Symbol: "AAPL; DROP", TimeFrame: "soon", N: 9000})
	require.Len(t, verr, 3)
	byField := map[string]ValidationError{}
	for _, v := range verr {
		byField[v.Field] = v
	}
	assert.Equal(t, "ERR_TICKER", byField["symbol"].Code)
	assert.Equal(t, "ERR_HORIZON", byField["time_frame"].Code)
	assert.Equal(t, "ERR_LTE", byField["n"].Code)
	assert.Equal(t, map[string]any{"max": "5000"}, byField["n"].Params)

	verr = Validate(&quoteRequest{})
	require.Len(t, verr, 1)
	assert.Equal(t, "ERR_REQUIRED", verr[0].Code)
	assert.Equal(t, "symbol is required", verr[0].Message)
}

func newTestServer(t *testing.T, opts ...ServerOption) (*Server, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	opts = append([]ServerOption{WithMetrics("/metrics", reg, reg)}, opts...)
	return NewServer([]Handler{routes{}, nil}, opts...), reg
}

func serve(s *Server, req *http.Request) (*httptest.ResponseRecorder, Envelope) {
	rr := httptest.NewRecorder()
	s.Echo().ServeHTTP(rr, req)
	var env Envelope
	_ = json.Unmarshal(rr.Body.Bytes(), &env)
	return rr, env
}

func TestServerEnvelopesAndErrors(t *testing.T) {
	s, _ := newTestServer(t)

	rr, env := serve(s, httptest.NewRequest(http.MethodGet, "/quote?symbol=MSFT&time_frame=2w", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, http.StatusOK, env.Status)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	rr, env = serve(s, httptest.NewRequest(http.MethodGet, "/quote?n=abc&symbol=MSFT", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "ERR_BIND")
	assert.Equal(t, http.StatusBadRequest, env.Status)

	rr, _ = serve(s, httptest.NewRequest(http.MethodGet, "/gone", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), `"symbol":"ZZZZ"`)

	rr, _ = serve(s, httptest.NewRequest(http.MethodGet, "/opaque", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "secret")

	rr, _ = serve(s, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestServerKeepsCallerRequestID(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/quote?symbol=MSFT", nil)
	req.Header.Set("X-Request-ID", "report-42")
	rr, _ := serve(s, req)
	assert.Equal(t, "report-42", rr.Header().Get("X-Request-ID"))
}

func TestServerCORS(t *testing.T) {
	s, _ := newTestServer(t, WithCORS([]string{"https://dash.example.com"}))

	req := httptest.NewRequest(http.MethodOptions, "/quote", nil)
	req.Header.Set("Origin", "https://dash.example.com")
	rr, _ := serve(s, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "https://dash.example.com", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/quote?symbol=MSFT", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rr, _ = serve(s, req)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestServerMetricsUseRouteTemplate(t *testing.T) {
	s, reg := newTestServer(t)
	serve(s, httptest.NewRequest(http.MethodGet, "/quote?symbol=MSFT", nil))
	serve(s, httptest.NewRequest(http.MethodGet, "/quote?symbol=AAPL", nil))

	families, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, f := range families {
		if f.GetName() != "finscope_http_requests_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			total += m.GetCounter().GetValue()
			for _, l := range m.GetLabel() {
				if l.GetName() == "route" {
					assert.Equal(t, "/quote", l.GetValue())
				}
			}
		}
	}
	assert.Equal(t, 2.0, total)

	rr, _ := serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "finscope_http_in_flight_requests")

	// a second server on the same registry reuses the series
	assert.NotPanics(t, func() { NewServer(nil, WithMetrics("", reg, reg)) })
}

func TestServerStartStop(t *testing.T) {
	s := NewServer(nil, WithHost("127.0.0.1"), WithPort(0), WithMetrics("", nil, nil))
	require.NoError(t, s.Start())
	require.NotNil(t, s.Addr())

	resp, err := http.Get("http://" + s.Addr().String() + "/nothing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	require.NoError(t, s.Stop(t.Context()))
}

func TestClientRetriesThenDecodes(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		assert.Equal(t, "AAPL.US", r.URL.Query().Get("s"))
		_, _ = w.Write([]byte(`{"close":189.5}`))
	}))
	defer srv.Close()

	c := NewClient(WithRetry(2, time.Millisecond))
	var out struct {
		Close float64 `json:"close"`
	}
	require.NoError(t, c.GetJSON(t.Context(), srv.URL, map[string][]string{"s": {"AAPL.US"}}, &out))
	assert.Equal(t, 189.5, out.Close)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClientStopsOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, strings.Repeat("x", 1000), http.StatusNotFound)
	}))
	defer srv.Close()

	err := NewClient(WithRetry(3, time.Millisecond)).PostJSON(t.Context(), srv.URL, map[string]string{"q": "x"}, nil)
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusNotFound))
	assert.Equal(t, int32(1), calls.Load())
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.False(t, se.Retryable())
	assert.LessOrEqual(t, len(se.Body), 259)
}

func TestQueryHelpers(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/reports?limit=5000&n=20&from=2024-03-01&to=soon", nil), httptest.NewRecorder())

	assert.Equal(t, 100, QueryInt(c, "limit", 100, 1, 1000))
	assert.Equal(t, 20, QueryInt(c, "n", 100, 1, 1000))
	assert.Equal(t, 7, QueryInt(c, "missing", 7, 1, 10))

	def := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), QueryTime(c, "from", def))
	assert.Equal(t, def, QueryTime(c, "to", def))
}

func TestWithHostKeepsDefaultWhenEmpty(t *testing.T) {
	assert.Equal(t, "0.0.0.0", NewServer(nil, WithHost(""), WithMetrics("", nil, nil)).cfg.Host)
	assert.Equal(t, "127.0.0.1", NewServer(nil, WithHost("127.0.0.1"), WithMetrics("", nil, nil)).cfg.Host)
}

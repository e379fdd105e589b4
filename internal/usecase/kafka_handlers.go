package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"time"


	"FinScope/internal/domain/models"
	domrepo "FinScope/internal/domain/repository"
	pkgkafka "FinScope/pkg/kafka"
	applogger "FinScope/pkg/logger"
)

// ReportsIngestHandler consumes published reports and writes them to storage.
type ReportsIngestHandler struct {
	topic   string
	storage domrepo.ReportStorage
	metrics domrepo.Metrics
}

func NewReportsIngestHandler(topic string, storage domrepo.ReportStorage, metrics domrepo.Metrics) *ReportsIngestHandler {
	return &ReportsIngestHandler{topic: topic, storage: storage, metrics: metrics}
}

func (h *ReportsIngestHandler) Topic() string { return h.topic }

func (h *ReportsIngestHandler) Handle(ctx context.Context, b []byte) error {
	var r models.AnalysisReport
	if err := json.Unmarshal(b, &r); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if !r.GeneratedAt.IsZero() {
		h.metrics.RecordLatency("report_e2e", time.Since(r.GeneratedAt).Seconds())
	}

	start := time.Now()
	err := h.storage.Store(ctx, &r)
	h.metrics.RecordLatency("ch_insert", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordSinkWrite("clickhouse", r.Symbol)
	return nil
}

// RequestSubmitter accepts analysis requests for asynchronous processing.
type RequestSubmitter interface {
	Submit(ctx context.Context, req models.AnalyzeRequest) error
}

// AnalysisRequestHandler feeds requests from the request topic into the analysis pipeline.
// Message schema is the AnalyzeRequest JSON; a bare {"symbol": "..."} is enough.
type AnalysisRequestHandler struct {
	topic   string
	sub     RequestSubmitter
	metrics domrepo.Metrics
}

func NewAnalysisRequestHandler(topic string, sub RequestSubmitter, metrics domrepo.Metrics) *AnalysisRequestHandler {
	return &AnalysisRequestHandler{topic: topic, sub: sub, metrics: metrics}
}

func (h *AnalysisRequestHandler) Topic() string { return h.topic }

func (h *AnalysisRequestHandler) Handle(ctx context.Context, b []byte) error {
	var req models.AnalyzeRequest
	if err := json.Unmarshal(b, &req); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if req.Symbol == "" {
		h.metrics.RecordError("consumer_invalid")
		return models.Invalid("symbol", "required")
	}
	return h.sub.Submit(ctx, req)
}

// NewConsumerHook stamps every consumed message with a trace id and start time, rejects
// empty payloads before they reach a handler, and records per-topic handling latency.
func NewConsumerHook(lgr *applogger.Logger, metrics domrepo.Metrics) pkgkafka.ConsumerHook {
	if lgr == nil {
		lgr = applogger.Nop()
	}
	trace := pkgkafka.HookFunc{
		OnBefore: func(ctx context.Context, d *pkgkafka.Delivery) (context.Context, error) {
			ctx = pkgkafka.WithTraceID(ctx, pkgkafka.TraceIDOf(d.Message))
			return pkgkafka.WithStartTime(ctx, time.Now()), nil
		},
	}
	observe := pkgkafka.HookFunc{
		OnBefore: func(ctx context.Context, d *pkgkafka.Delivery) (context.Context, error) {
			d.Data = bytes.TrimSpace(d.Data)
			if len(d.Data) == 0 {
				return ctx, &pkgkafka.Rejection{Code: "ERR_EMPTY"}
			}
			return ctx, nil
		},
		OnAfter: func(ctx context.Context, d *pkgkafka.Delivery, err error) {
			if start, ok := pkgkafka.StartTime(ctx); ok {
				metrics.RecordLatency("consume:"+d.Topic, time.Since(start).Seconds())
			}
			if err == nil {
				lgr.Debug("message handled", applogger.String("topic", d.Topic), applogger.String("trace_id", pkgkafka.TraceID(ctx)))
			}
		},
		OnFailed: func(ctx context.Context, d *pkgkafka.Delivery, err error) {
			metrics.RecordError("consumer_handle")
			lgr.Warn("message handling failed",
				applogger.String("topic", d.Topic),
				applogger.String("trace_id", pkgkafka.TraceIDOf(d.Message)),
				applogger.Error(err))
		},
	}
	return pkgkafka.NewChain(trace, observe)
}

var (
	_ pkgkafka.MessageHandler = (*ReportsIngestHandler)(nil)
	_ pkgkafka.MessageHandler = (*AnalysisRequestHandler)(nil)
)

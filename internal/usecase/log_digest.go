package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	applogger "FinScope/pkg/logger"
	"FinScope/pkg/queue"
)

const LogDigestJobType = "log.digest"

// LogDigestJob receives the aggregated error digests the logger flushes onto the job
// queue and reports the noisiest entries.
type LogDigestJob struct {
	logger *applogger.Logger
	top    int
}

func NewLogDigestJob(lgr *applogger.Logger, top int) *LogDigestJob {
	if lgr == nil {
		lgr = applogger.Nop()
	}
	if top <= 0 {
		top = 5
	}
	return &LogDigestJob{logger: lgr, top: top}
}

func (j *LogDigestJob) Name() string { return "log-digest" }
func (j *LogDigestJob) Type() string { return LogDigestJobType }

// Handle never logs at error level: the digest would otherwise feed itself.
func (j *LogDigestJob) Handle(_ context.Context, payload json.RawMessage) error {
	entries, err := queue.Decode[[]applogger.AggregatedLogEntry](payload)
	if err != nil {
		return fmt.Errorf("log digest payload: %w", err)
	}
	digest := Summarize(entries, j.top)
	j.logger.Warn("log digest",
		applogger.Int("unique", digest.Unique),
		applogger.Int("total", digest.Total),
		applogger.Strings("top", digest.Top))
	return nil
}

// Digest is the condensed view of one flushed batch.
type Digest struct {
	Unique int
	Total  int
	Top    []string
}

// Summarize counts entries and lists the n most repeated as "count x caller message".
func Summarize(entries []applogger.AggregatedLogEntry, n int) Digest {
	d := Digest{Unique: len(entries)}
	sorted := make([]applogger.AggregatedLogEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(a, b int) bool { return sorted[a].Count > sorted[b].Count })
	for i, e := range sorted {
		d.Total += e.Count
		if i < n {
			d.Top = append(d.Top, fmt.Sprintf("%dx %s %s", e.Count, e.Caller, e.Message))
		}
	}
	return d
}

var _ queue.Job = (*LogDigestJob)(nil)

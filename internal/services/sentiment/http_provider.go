package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"FinScope/internal/domain/models"
	domsvc "FinScope/internal/domain/service"
	xhttp "FinScope/pkg/http"
)

// HTTPProvider asks a JSON sentiment service at POST {url}/sentiment. The reply may be
// the sentiment object itself or any text Parse understands.
type HTTPProvider struct {
	url    string
	client *xhttp.Client
}

func NewHTTPProvider(baseURL string, timeout time.Duration, retries int) *HTTPProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProvider{
		url:    strings.TrimRight(baseURL, "/") + "/sentiment",
		client: xhttp.NewClient(xhttp.WithTimeout(timeout), xhttp.WithRetry(retries, 50*time.Millisecond)),
	}
}

func (p *HTTPProvider) Name() string { return "http" }

func (p *HTTPProvider) Analyze(ctx context.Context, req models.SentimentRequest) (models.SentimentResult, error) {
	var raw json.RawMessage
	if err := p.client.PostJSON(ctx, p.url, req, &raw); err != nil {
		return models.SentimentResult{}, fmt.Errorf("post sentiment: %w", err)
	}
	parsed, err := Parse(string(raw))
	if err != nil {
		return models.SentimentResult{}, err
	}
	return fromParsed(parsed, p.Name()), nil
}

var _ domsvc.SentimentProvider = (*HTTPProvider)(nil)

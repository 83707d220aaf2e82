package rowstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// RESTClient selects rows from a PostgREST-style endpoint
// ({base}/rest/v1/{table}?{params}) authenticated with a service key.
// Transient transport failures and 5xx responses are retried with
// exponential backoff; 4xx responses and malformed payloads are not.
type RESTClient struct {
	baseURL    string
	serviceKey string
	http       *http.Client
	maxElapsed time.Duration
}

func NewRESTClient(baseURL, serviceKey string) *RESTClient {
	return &RESTClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		maxElapsed: 15 * time.Second,
	}
}

func (c *RESTClient) Select(ctx context.Context, table string, params url.Values) ([]Row, error) {
	ctx, span := otel.Tracer("rowstore").Start(ctx, "rowstore.select")
	span.SetAttributes(attribute.String("table", table))
	defer span.End()

	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, table)
	if qs := params.Encode(); qs != "" {
		endpoint += "?" + qs
	}

	var rows []Row
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("apikey", c.serviceKey)
		req.Header.Set("Authorization", "Bearer "+c.serviceKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		blob, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("select %s: status %d: %s", table, resp.StatusCode, truncate(blob))
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("select %s: status %d: %s", table, resp.StatusCode, truncate(blob)))
		}
		rows = rows[:0]
		if err := json.Unmarshal(blob, &rows); err != nil {
			return backoff.Permanent(fmt.Errorf("select %s: decode: %w", table, err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.maxElapsed
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return rows, nil
}

func truncate(blob []byte) string {
	const max = 256
	if len(blob) > max {
		return string(blob[:max]) + "..."
	}
	return string(blob)
}

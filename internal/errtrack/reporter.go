// Package errtrack captures infrastructure failures with full detail while
// callers return generic messages. Reports are indexed as documents so they
// can be searched after the fact.
package errtrack

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/fieldform/backend/internal/logging"
)

// Reporter receives errors the caller will not surface verbatim.
type Reporter interface {
	Capture(ctx context.Context, err error, fields map[string]any)
}

// Nop drops reports. Used in tests and when no sink is configured.
type Nop struct{}

func (Nop) Capture(context.Context, error, map[string]any) {}

type Elastic struct {
	client *elasticsearch.Client
	index  string
}

func NewElastic(url, user, password, index string) (*Elastic, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		Username:  user,
		Password:  password,
	})
	if err != nil {
		return nil, err
	}
	return &Elastic{client: client, index: index}, nil
}

type errorDoc struct {
	Timestamp time.Time      `json:"@timestamp"`
	Error     string         `json:"error"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Capture indexes the error. Failures to report are logged and swallowed;
// error tracking must never take a request down with it.
func (e *Elastic) Capture(ctx context.Context, err error, fields map[string]any) {
	if err == nil {
		return
	}
	doc := errorDoc{
		Timestamp: time.Now().UTC(),
		Error:     err.Error(),
		Fields:    fields,
	}
	data, marshalErr := json.Marshal(doc)
	if marshalErr != nil {
		return
	}

	res, indexErr := e.client.Index(e.index, bytes.NewReader(data))
	if indexErr != nil {
		logging.FromContext(ctx).Error("errtrack_index_failed", "error", indexErr)
		return
	}
	defer res.Body.Close()
	if res.IsError() {
		logging.FromContext(ctx).Error("errtrack_index_rejected", "status", res.Status())
	}
}

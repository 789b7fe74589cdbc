// Package trigger handles file-arrival events: it routes each arrived export
// object to the right vendor adapter and drives the ingestion runner.
package trigger

import (
	"context"
	"io"
	"strings"

	"github.com/ruleforge/ruleforge/internal/ingest"
	"github.com/ruleforge/ruleforge/internal/logger"
)

// Event is one object-storage notification, S3 event shape. Delivery is
// at-least-once; the pipeline's hash and existence checks make repeats safe.
type Event struct {
	Records []EventRecord `json:"Records"`
}

// EventRecord describes one arrived object.
type EventRecord struct {
	S3 S3Entity `json:"s3"`
}

// S3Entity carries the bucket and object of an event record.
type S3Entity struct {
	Bucket BucketEntity `json:"bucket"`
	Object ObjectEntity `json:"object"`
}

// BucketEntity names the container.
type BucketEntity struct {
	Name string `json:"name"`
}

// ObjectEntity names the arrived key.
type ObjectEntity struct {
	Key string `json:"key"`
}

// Trinity Cyber exports live under a fixed folder; Elastic exports are
// identified by extension.
const (
	trinityCyberPrefix = "trinitycyber/"
	elasticSuffix      = ".ndjson"
)

// ObjectFetcher retrieves the payload behind an event record.
type ObjectFetcher interface {
	Fetch(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// Handler routes events to adapters and runs the pipeline.
type Handler struct {
	Store   ObjectFetcher
	Runner  *ingest.Runner
	Elastic ingest.Adapter
	Trinity ingest.Adapter
}

// AdapterForKey picks the vendor adapter responsible for an object key, nil
// when no adapter claims it.
func (h *Handler) AdapterForKey(key string) ingest.Adapter {
	switch {
	case strings.HasPrefix(key, trinityCyberPrefix):
		return h.Trinity
	case strings.HasSuffix(key, elasticSuffix):
		return h.Elastic
	default:
		return nil
	}
}

// Handle processes every record in one event and returns the merged run
// result. An unclaimed key is skipped; an unretrievable object counts as an
// error for that file but never aborts the remaining records.
func (h *Handler) Handle(ctx context.Context, event Event) ingest.Result {
	res := ingest.NewResult()
	res.Message = "Rule processing completed."

	for _, record := range event.Records {
		bucket := record.S3.Bucket.Name
		key := record.S3.Object.Key
		if bucket == "" || key == "" {
			continue
		}

		adapter := h.AdapterForKey(key)
		if adapter == nil {
			logger.WithFields(map[string]interface{}{"key": key}).Warn("no adapter claims object key, skipping")
			continue
		}

		body, err := h.Store.Fetch(ctx, bucket, key)
		if err != nil {
			logger.WithFields(map[string]interface{}{
				"bucket": bucket,
				"key":    key,
			}).WithError(err).Error("failed to retrieve export object")
			res.Errors++
			continue
		}

		fileRes := h.Runner.Run(adapter, body)
		_ = body.Close()
		res.Merge(fileRes)
	}

	return res
}

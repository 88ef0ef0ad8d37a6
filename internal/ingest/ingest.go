package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mwilhelmy/recall/internal/llm"
	"github.com/mwilhelmy/recall/internal/memory"
)

// Result summarizes a batch ingestion.
type Result struct {
	Stored  int
	Skipped int
	Failed  int
	Errors  []string
}

// Ingester embeds normalized records and upserts them into a store.
type Ingester struct {
	embedder llm.Embedder
	store    memory.Store
	timeout  time.Duration
	log      *slog.Logger

	// Progress, when set, is called after each record with (done, total).
	Progress func(done, total int)
}

// New creates an ingester.
func New(embedder llm.Embedder, store memory.Store, timeout time.Duration, log *slog.Logger) *Ingester {
	if log == nil {
		log = slog.Default()
	}
	return &Ingester{
		embedder: embedder,
		store:    store,
		timeout:  timeout,
		log:      log,
	}
}

// Run ingests records strictly sequentially, in slice order, one upsert at
// a time. A failing record is counted and reported, never aborts the rest
// of the batch; last-in-order wins when two records share an external id.
// Cancellation stops between records and returns what was completed so far.
func (ing *Ingester) Run(ctx context.Context, records []memory.Record) (Result, error) {
	var res Result
	total := len(records)

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("%w: ingestion canceled after %d of %d records", memory.ErrStore, i, total)
		}

		if rec.ExternalID == "" {
			res.Skipped++
			ing.report(i+1, total)
			continue
		}

		if err := ing.ingestOne(ctx, rec); err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", rec.ExternalID, err))
			ing.log.Warn("record failed", "external_id", rec.ExternalID, "error", err)
			ing.report(i+1, total)
			continue
		}

		res.Stored++
		ing.report(i+1, total)
	}

	ing.log.Info("ingestion complete",
		"stored", res.Stored, "skipped", res.Skipped, "failed", res.Failed)
	return res, nil
}

// ingestOne embeds and upserts a single record. The upsert itself is
// all-or-nothing per record; a failed embed leaves the store untouched.
func (ing *Ingester) ingestOne(ctx context.Context, rec memory.Record) error {
	embedCtx, cancel := context.WithTimeout(ctx, ing.timeout)
	embedding, err := ing.embedder.Embed(embedCtx, rec.Text)
	cancel()
	if err != nil {
		return err
	}
	rec.Embedding = embedding

	upsertCtx, cancel := context.WithTimeout(ctx, ing.timeout)
	defer cancel()
	return ing.store.Upsert(upsertCtx, rec)
}

func (ing *Ingester) report(done, total int) {
	if ing.Progress != nil {
		ing.Progress(done, total)
	}
}

package ocr

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/textsnap/batch-ocr-service/internal/models"
)

// Orchestrator drives every item of a batch through validate, prepare
// and extract with bounded parallelism, then assembles the results in
// submission order.
type Orchestrator struct {
	validator    *Validator
	preprocessor *Preprocessor
	extractor    *Extractor
	workers      int
	batchTimeout time.Duration
}

func NewOrchestrator(v *Validator, p *Preprocessor, e *Extractor, cfg models.PipelineConfig) *Orchestrator {
	workers := cfg.Workers
	if workers < 1 {
		workers = 4
	}
	timeout := time.Duration(cfg.BatchTimeoutMS) * time.Millisecond
	if timeout < 0 {
		timeout = 0
	}
	return &Orchestrator{
		validator:    v,
		preprocessor: p,
		extractor:    e,
		workers:      workers,
		batchTimeout: timeout,
	}
}

// Run processes a batch. Results come back one per submitted item, in
// submission order; a failed item occupies its slot with a failure
// record and never disturbs its siblings. The returned error is non-nil
// only when the whole batch is refused before any item runs.
func (o *Orchestrator) Run(ctx context.Context, items []models.UploadItem) (*models.BatchResult, error) {
	if err := o.validator.CheckBatch(len(items)); err != nil {
		return nil, err
	}

	if o.batchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.batchTimeout)
		defer cancel()
	}

	results := make([]models.BatchItemResult, len(items))

	type job struct {
		index int
		item  models.UploadItem
	}
	jobs := make(chan job)

	workers := o.workers
	if workers > len(items) {
		workers = len(items)
	}
	log.Printf("[Batch] processing %d items with %d workers", len(items), workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Workers write to distinct slots, so no lock is needed.
			for j := range jobs {
				results[j.index] = o.processItem(ctx, j.index, j.item)
			}
		}()
	}

	for i, item := range items {
		jobs <- job{index: i, item: item}
	}
	close(jobs)
	wg.Wait()

	batch := models.NewBatchResult(results)
	log.Printf("[Batch] done: %d extracted, %d failed, %d rejected",
		batch.Counts.Extracted, batch.Counts.Failed, batch.Counts.Rejected)
	return batch, nil
}

// processItem walks one item through submitted -> validated|rejected ->
// prepared|failed -> extracted|failed. The first failure is terminal for
// the item.
func (o *Orchestrator) processItem(ctx context.Context, index int, item models.UploadItem) models.BatchItemResult {
	result := models.BatchItemResult{
		Index:    index,
		Filename: item.Filename,
	}

	if err := ctx.Err(); err != nil {
		terr := newTimeoutError(err)
		log.Printf("[Batch] item %d (%s) timed out before processing", index, item.Filename)
		result.Status = models.StatusFailed
		result.ErrorMessage = terr.Message
		return result
	}

	if err := o.validator.Validate(item); err != nil {
		log.Printf("[Batch] item %d (%s) rejected: %v", index, item.Filename, err)
		result.Status = models.StatusRejected
		result.ErrorMessage = UserMessage(err)
		return result
	}

	prepared, err := o.preprocessor.Prepare(item.Data)
	if err != nil {
		log.Printf("[Batch] item %d (%s) preprocessing failed: %v", index, item.Filename, err)
		result.Status = models.StatusFailed
		result.ErrorMessage = UserMessage(err)
		return result
	}

	extraction, err := o.extractor.Extract(ctx, prepared)
	if err != nil {
		log.Printf("[Batch] item %d (%s) extraction failed: %v", index, item.Filename, err)
		result.Status = models.StatusFailed
		result.ErrorMessage = UserMessage(err)
		return result
	}

	result.Status = models.StatusExtracted
	result.Text = extraction.Text
	result.CharCount = extraction.CharCount
	return result
}

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textsnap/batch-ocr-service/internal/engine"
	"github.com/textsnap/batch-ocr-service/internal/models"
)

// sizeEngine answers with the decoded width of the image it was given,
// so tests can tell exactly which item produced which result. A
// non-zero stagger makes wider images finish sooner, which shakes out
// ordering bugs in the worker pool.
type sizeEngine struct {
	mu      sync.Mutex
	stagger time.Duration
	calls   int
}

func (e *sizeEngine) Name() string { return "size" }

func (e *sizeEngine) Recognize(ctx context.Context, req engine.Request) (engine.Result, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	cfg, _, err := image.DecodeConfig(bytes.NewReader(req.Image))
	if err != nil {
		return engine.Result{}, err
	}
	if e.stagger > 0 {
		time.Sleep(time.Duration(100-cfg.Width) * e.stagger)
	}
	return engine.Result{Text: fmt.Sprintf("width %d", cfg.Width)}, nil
}

// blockEngine parks until the context expires
type blockEngine struct{}

func (blockEngine) Name() string { return "block" }

func (blockEngine) Recognize(ctx context.Context, req engine.Request) (engine.Result, error) {
	<-ctx.Done()
	return engine.Result{}, ctx.Err()
}

func newTestOrchestrator(eng engine.Engine, cfg models.PipelineConfig) *Orchestrator {
	v := NewValidator(models.UploadConfig{MaxFileSizeMB: 1, MaxBatchSize: 10})
	p := NewPreprocessor(cfg)
	e := NewExtractor(eng, "eng")
	return NewOrchestrator(v, p, e, cfg)
}

func TestOrchestrator_OrderPreservation(t *testing.T) {
	eng := &sizeEngine{stagger: 2 * time.Millisecond}
	orch := newTestOrchestrator(eng, models.PipelineConfig{Workers: 3})

	// Six items with distinct widths; later items finish first.
	items := make([]models.UploadItem, 6)
	for i := range items {
		items[i] = models.UploadItem{
			Filename: fmt.Sprintf("scan-%d.png", i),
			Data:     makePNG(t, 10+i, 10, color.White),
		}
	}

	batch, err := orch.Run(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, batch.Items, 6)

	for i, item := range batch.Items {
		assert.Equal(t, i, item.Index)
		assert.Equal(t, fmt.Sprintf("scan-%d.png", i), item.Filename)
		assert.Equal(t, models.StatusExtracted, item.Status)
		assert.Equal(t, fmt.Sprintf("width %d", 10+i), item.Text)
	}
	assert.Equal(t, models.BatchCounts{Submitted: 6, Extracted: 6}, batch.Counts)
}

func TestOrchestrator_FailureIsolation(t *testing.T) {
	eng := &sizeEngine{}
	orch := newTestOrchestrator(eng, models.PipelineConfig{Workers: 2})

	valid := makePNG(t, 20, 20, color.White)
	truncated := makePNG(t, 16, 16, color.White)[:40]

	items := []models.UploadItem{
		{Filename: "good-one.png", Data: valid},
		{Filename: "garbage.png", Data: []byte("not image bytes at all")},
		{Filename: "cut-short.png", Data: truncated},
		{Filename: "good-two.png", Data: makePNG(t, 30, 20, color.White)},
	}

	batch, err := orch.Run(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, batch.Items, 4)

	assert.Equal(t, models.StatusExtracted, batch.Items[0].Status)
	assert.Equal(t, "width 20", batch.Items[0].Text)

	assert.Equal(t, models.StatusRejected, batch.Items[1].Status)
	assert.Equal(t, "The file could not be read as an image. Please upload a valid image file.", batch.Items[1].ErrorMessage)
	assert.Empty(t, batch.Items[1].Text)

	assert.Equal(t, models.StatusFailed, batch.Items[2].Status)
	assert.Equal(t, "Failed to process the image. Please ensure it's a valid image file.", batch.Items[2].ErrorMessage)

	assert.Equal(t, models.StatusExtracted, batch.Items[3].Status)
	assert.Equal(t, "width 30", batch.Items[3].Text)

	assert.Equal(t, models.BatchCounts{Submitted: 4, Extracted: 2, Failed: 1, Rejected: 1}, batch.Counts)
}

func TestOrchestrator_RejectedItemsNeverReachTheEngine(t *testing.T) {
	eng := &sizeEngine{}
	orch := newTestOrchestrator(eng, models.PipelineConfig{Workers: 2})

	batch, err := orch.Run(context.Background(), []models.UploadItem{
		{Filename: "junk.png", Data: []byte("junk")},
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusRejected, batch.Items[0].Status)
	assert.Zero(t, eng.calls)
}

func TestOrchestrator_BatchTooLarge(t *testing.T) {
	orch := newTestOrchestrator(&sizeEngine{}, models.PipelineConfig{Workers: 2})

	items := make([]models.UploadItem, 11)
	for i := range items {
		items[i] = models.UploadItem{Filename: fmt.Sprintf("f%d.png", i), Data: []byte("x")}
	}

	batch, err := orch.Run(context.Background(), items)
	assert.Nil(t, batch)
	assert.Equal(t, ErrBatchTooLarge, CodeOf(err))
	assert.Equal(t, "Too many files. Please upload at most 10 images per batch.", UserMessage(err))
}

func TestOrchestrator_EmptyBatch(t *testing.T) {
	orch := newTestOrchestrator(&sizeEngine{}, models.PipelineConfig{Workers: 2})

	batch, err := orch.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, batch.Items)
	assert.Equal(t, models.BatchCounts{}, batch.Counts)
}

func TestOrchestrator_EmptyEngineOutputFailsTheItem(t *testing.T) {
	eng := &stubEngine{text: "   \n  "}
	orch := newTestOrchestrator(eng, models.PipelineConfig{Workers: 1})

	batch, err := orch.Run(context.Background(), []models.UploadItem{
		{Filename: "blank.png", Data: makePNG(t, 12, 12, color.White)},
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusFailed, batch.Items[0].Status)
	assert.Equal(t, "No text could be extracted from the image. Please try a different image.", batch.Items[0].ErrorMessage)
	assert.Equal(t, models.BatchCounts{Submitted: 1, Failed: 1}, batch.Counts)
}

func TestOrchestrator_Idempotence(t *testing.T) {
	eng := &sizeEngine{}
	orch := newTestOrchestrator(eng, models.PipelineConfig{Workers: 3})

	items := []models.UploadItem{
		{Filename: "a.png", Data: makePNG(t, 15, 10, color.White)},
		{Filename: "bad.png", Data: []byte("nope")},
		{Filename: "b.png", Data: makePNG(t, 25, 10, color.White)},
	}

	first, err := orch.Run(context.Background(), items)
	require.NoError(t, err)
	second, err := orch.Run(context.Background(), items)
	require.NoError(t, err)

	assert.Equal(t, first.Items, second.Items)
	assert.Equal(t, first.Counts, second.Counts)
}

func TestOrchestrator_BatchTimeout(t *testing.T) {
	orch := newTestOrchestrator(blockEngine{}, models.PipelineConfig{Workers: 1, BatchTimeoutMS: 30})

	items := []models.UploadItem{
		{Filename: "slow-1.png", Data: makePNG(t, 10, 10, color.White)},
		{Filename: "slow-2.png", Data: makePNG(t, 11, 10, color.White)},
		{Filename: "slow-3.png", Data: makePNG(t, 12, 10, color.White)},
	}

	start := time.Now()
	batch, err := orch.Run(context.Background(), items)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 5*time.Second, "the pool must not hang past the deadline")
	require.Len(t, batch.Items, 3)
	for i, item := range batch.Items {
		assert.Equal(t, i, item.Index)
		assert.Equal(t, models.StatusFailed, item.Status)
		assert.Equal(t, "Processing took too long and was stopped. Please try again.", item.ErrorMessage)
	}
	assert.Equal(t, models.BatchCounts{Submitted: 3, Failed: 3}, batch.Counts)
}

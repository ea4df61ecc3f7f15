package models

// ItemStatus is the terminal state of one batch item
type ItemStatus string

const (
	StatusRejected  ItemStatus = "rejected"  // failed validation
	StatusFailed    ItemStatus = "failed"    // preprocessing or extraction error
	StatusExtracted ItemStatus = "extracted" // success with non-empty text
)

// UploadItem is one submitted file. It lives in memory for the duration
// of the request and is never written to disk or object storage.
type UploadItem struct {
	Filename     string // original name, used only for display and export labels
	Data         []byte
	DeclaredType string // content type as sent by the client, not trusted
}

// BatchItemResult is the per-file outcome surfaced to callers
type BatchItemResult struct {
	Index        int        `json:"index"`
	Filename     string     `json:"filename"`
	Status       ItemStatus `json:"status"`
	Text         string     `json:"text,omitempty"`
	CharCount    int        `json:"charCount,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
}

// Extracted reports whether the item carries usable text
func (r BatchItemResult) Extracted() bool {
	return r.Status == StatusExtracted
}

// BatchCounts summarizes a batch by terminal status
type BatchCounts struct {
	Submitted int `json:"submitted"`
	Extracted int `json:"extracted"`
	Failed    int `json:"failed"`
	Rejected  int `json:"rejected"`
}

// BatchResult is the ordered outcome of one processed batch.
// Items[i].Index == i always holds; counts are derived from the item
// list so they cannot drift from it.
type BatchResult struct {
	Items  []BatchItemResult `json:"items"`
	Counts BatchCounts       `json:"counts"`
}

// NewBatchResult assembles a result from an ordered item list and
// derives the status counts.
func NewBatchResult(items []BatchItemResult) *BatchResult {
	counts := BatchCounts{Submitted: len(items)}
	for _, it := range items {
		switch it.Status {
		case StatusExtracted:
			counts.Extracted++
		case StatusFailed:
			counts.Failed++
		case StatusRejected:
			counts.Rejected++
		}
	}
	return &BatchResult{Items: items, Counts: counts}
}

// Item returns the result at index, or nil when the index is out of range
func (b *BatchResult) Item(index int) *BatchItemResult {
	if index < 0 || index >= len(b.Items) {
		return nil
	}
	return &b.Items[index]
}

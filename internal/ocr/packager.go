package ocr

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/textsnap/batch-ocr-service/internal/models"
)

// Errors the HTTP layer maps to 4xx responses on download requests.
var (
	ErrNoSuchItem   = errors.New("no item at that index")
	ErrNotExtracted = errors.New("item has no extracted text")
)

// ExportFile is a downloadable text artifact
type ExportFile struct {
	Name    string
	Content string
}

// Packager renders a finished batch into the three user-facing shapes:
// the per-item display view, a single item's text file, and the combined
// batch file.
type Packager struct{}

func NewPackager() *Packager {
	return &Packager{}
}

// DisplayView returns the ordered per-item records a UI shows. Item i of
// the view always describes upload i of the batch.
func (p *Packager) DisplayView(batch *models.BatchResult) []models.BatchItemResult {
	return batch.Items
}

// SingleExport packages one extracted item's text as a download. Items
// that never reached extraction have no text file.
func (p *Packager) SingleExport(batch *models.BatchResult, index int) (ExportFile, error) {
	item := batch.Item(index)
	if item == nil {
		return ExportFile{}, ErrNoSuchItem
	}
	if !item.Extracted() {
		return ExportFile{}, ErrNotExtracted
	}
	return ExportFile{
		Name:    exportName(item.Filename),
		Content: item.Text,
	}, nil
}

// CombinedExport concatenates every item in submission order, each
// section headed by its filename. Items without text contribute a
// one-line annotation instead, so the section count always matches the
// item count.
func (p *Packager) CombinedExport(batch *models.BatchResult) ExportFile {
	var b strings.Builder
	for i, item := range batch.Items {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "===== %s =====\n", item.Filename)
		if item.Extracted() {
			b.WriteString(item.Text)
		} else {
			fmt.Fprintf(&b, "[%s] %s", item.Status, item.ErrorMessage)
		}
	}
	return ExportFile{
		Name:    "batch_extracted.txt",
		Content: b.String(),
	}
}

// exportName derives "<stem>_extracted.txt" from the original upload
// name, sanitized for use in a Content-Disposition header
func exportName(filename string) string {
	base := path.Base(filename)
	stem := strings.TrimSuffix(base, path.Ext(base))
	stem = sanitizeStem(stem)
	if stem == "" {
		stem = "image"
	}
	return stem + "_extracted.txt"
}

// sanitizeStem keeps letters, digits, dot, dash and underscore; anything
// else becomes an underscore
func sanitizeStem(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "._")
}

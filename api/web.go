package api

import (
	"html/template"
	"log"
	"net/http"
	"strings"

	"github.com/textsnap/batch-ocr-service/internal/models"
)

// pageData feeds the upload page template. Batch is nil until a POST
// has results to show.
type pageData struct {
	Error         string
	BatchID       string
	Batch         *models.BatchResult
	AllowedTypes  string
	MaxFileSizeMB int
	MaxBatchSize  int
}

var pageTemplate = template.Must(template.New("page").Parse(pageHTML))

// renderPage writes the upload page, filling in the upload limits so the
// form text always matches the configured policy
func (h *Handler) renderPage(w http.ResponseWriter, status int, data pageData) {
	data.AllowedTypes = strings.ToUpper(strings.Join(h.validator.AllowedTypes(), ", "))
	data.MaxFileSizeMB = h.validator.MaxFileSizeMB()
	data.MaxBatchSize = h.validator.MaxBatchSize()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, data); err != nil {
		log.Printf("[Web] render page: %v", err)
	}
}

const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Batch Image Text Extractor</title>
    <script src="https://cdn.tailwindcss.com"></script>
</head>
<body class="bg-gradient-to-br from-blue-50 to-indigo-100 min-h-screen">
    <div class="container mx-auto px-4 py-12 max-w-3xl">
        <div class="text-center mb-10">
            <h1 class="text-4xl font-bold text-gray-800 mb-3">Batch Image Text Extractor</h1>
            <p class="text-lg text-gray-600">Upload images and extract their text with OCR</p>
        </div>

        <div class="bg-white rounded-2xl shadow-xl p-8 mb-8">
            {{if .Error}}
            <div class="mb-6 p-4 bg-red-50 border border-red-200 rounded-lg">
                <p class="text-red-700">{{.Error}}</p>
            </div>
            {{end}}

            <form method="POST" action="/" enctype="multipart/form-data" class="space-y-6">
                <div>
                    <label class="block text-sm font-medium text-gray-700 mb-2">
                        Select images ({{.AllowedTypes}} &middot; max {{.MaxFileSizeMB}}MB each &middot; up to {{.MaxBatchSize}} files)
                    </label>
                    <input type="file" name="images" accept="image/*" multiple required
                        class="block w-full text-sm text-gray-500 file:mr-4 file:py-2 file:px-4 file:rounded-full file:border-0 file:text-sm file:font-semibold file:bg-indigo-50 file:text-indigo-700 hover:file:bg-indigo-100"/>
                </div>
                <button type="submit"
                    class="w-full bg-indigo-600 text-white py-3 px-6 rounded-lg font-semibold hover:bg-indigo-700 transition duration-200">
                    Extract Text
                </button>
            </form>
        </div>

        {{if .Batch}}
        <div class="bg-white rounded-2xl shadow-xl p-8 mb-8">
            <div class="flex items-center justify-between mb-6">
                <h2 class="text-2xl font-bold text-gray-800">Results</h2>
                <span class="text-sm text-gray-500">{{.Batch.Counts.Extracted}} of {{.Batch.Counts.Submitted}} extracted</span>
            </div>

            {{if gt .Batch.Counts.Extracted 0}}
            <a href="/download/{{.BatchID}}/all"
                class="inline-block mb-6 bg-green-600 text-white py-2 px-4 rounded-lg text-sm font-semibold hover:bg-green-700">
                Download all as one file
            </a>
            {{end}}

            <div class="space-y-4">
                {{range .Batch.Items}}
                <div class="border border-gray-200 rounded-lg p-4">
                    <div class="flex items-center justify-between mb-2">
                        <span class="font-medium text-gray-800 break-all">{{.Filename}}</span>
                        {{if .Extracted}}
                        <span class="text-xs font-semibold px-2 py-1 rounded-full bg-green-100 text-green-700 whitespace-nowrap">{{.CharCount}} characters</span>
                        {{else}}
                        <span class="text-xs font-semibold px-2 py-1 rounded-full bg-red-100 text-red-700 whitespace-nowrap">{{.Status}}</span>
                        {{end}}
                    </div>
                    {{if .Extracted}}
                    <pre class="bg-gray-50 rounded p-3 text-sm text-gray-700 whitespace-pre-wrap max-h-64 overflow-y-auto">{{.Text}}</pre>
                    <a href="/download/{{$.BatchID}}/{{.Index}}"
                        class="inline-block mt-2 text-sm text-indigo-600 hover:text-indigo-800 font-medium">Download .txt</a>
                    {{else}}
                    <p class="text-sm text-red-600">{{.ErrorMessage}}</p>
                    {{end}}
                </div>
                {{end}}
            </div>
        </div>
        {{end}}

        <footer class="text-center mt-10 text-sm text-gray-500">
            Powered by Tesseract OCR &bull; Built with Go
        </footer>
    </div>
</body>
</html>
`

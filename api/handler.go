package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/textsnap/batch-ocr-service/internal/auth"
	"github.com/textsnap/batch-ocr-service/internal/models"
	"github.com/textsnap/batch-ocr-service/internal/ocr"
	"github.com/textsnap/batch-ocr-service/internal/store"
)

const Version = "1.0.0"

// uploadFields are the multipart field names accepted for image files,
// checked in order. "images" is the documented one; the others keep
// single-file clients working.
var uploadFields = []string{"images", "image", "file"}

// Handler handles HTTP requests for batch text extraction
type Handler struct {
	config       *models.Config
	validator    *ocr.Validator
	orchestrator *ocr.Orchestrator
	packager     *ocr.Packager
	store        *store.ResultStore
	engineName   string
	maxBody      int64
}

// NewHandler creates a new API handler. The request body cap is derived
// from the per-file and batch limits so one oversized file inside an
// otherwise sane batch is rejected per item, not by the transport.
func NewHandler(config *models.Config, validator *ocr.Validator, orchestrator *ocr.Orchestrator, resultStore *store.ResultStore, engineName string) *Handler {
	maxBody := int64(validator.MaxBatchSize())*validator.MaxFileBytes() + 1<<20
	return &Handler{
		config:       config,
		validator:    validator,
		orchestrator: orchestrator,
		packager:     ocr.NewPackager(),
		store:        resultStore,
		engineName:   engineName,
		maxBody:      maxBody,
	}
}

// SetupRoutes configures the HTTP routes
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	// Web surface
	router.HandleFunc("/", h.Index).Methods("GET")
	router.HandleFunc("/", h.ProcessBatch).Methods("POST")
	router.HandleFunc("/download/{id}/{selector}", h.Download).Methods("GET")

	// Health check
	router.HandleFunc("/health", h.Health).Methods("GET")

	// JSON API (JWT-protected except login)
	router.HandleFunc("/api/login", auth.LoginHandler).Methods("POST")
	router.HandleFunc("/api/v1/batches", h.CreateBatch).Methods("POST")
	router.HandleFunc("/api/v1/batches/{id}", h.GetBatch).Methods("GET")
	router.HandleFunc("/api/v1/batches/{id}/text/{selector}", h.GetBatchText).Methods("GET")

	return router
}

// HealthResponse represents the health check response structure
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Memory    MemoryStats       `json:"memory"`
	Tesseract ServiceStatus     `json:"tesseract"`
	Engine    map[string]string `json:"engine"`
	Store     StoreStats        `json:"store"`
}

// MemoryStats represents memory usage statistics
type MemoryStats struct {
	Allocated string `json:"allocated"`
	Total     string `json:"total"`
	System    string `json:"system"`
}

// ServiceStatus represents the status of a service dependency
type ServiceStatus struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

// StoreStats reports on the in-memory result store
type StoreStats struct {
	Batches int `json:"batches"`
}

var startTime = time.Now()

// Health endpoint - enhanced for monitoring
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	tesseractStatus := h.checkTesseract()

	response := HealthResponse{
		Status:    "healthy",
		Version:   Version,
		Timestamp: time.Now().Format(time.RFC3339),
		Uptime:    time.Since(startTime).String(),
		Memory: MemoryStats{
			Allocated: fmt.Sprintf("%.2f MB", float64(m.Alloc)/1024/1024),
			Total:     fmt.Sprintf("%.2f MB", float64(m.TotalAlloc)/1024/1024),
			System:    fmt.Sprintf("%.2f MB", float64(m.Sys)/1024/1024),
		},
		Tesseract: tesseractStatus,
		Engine: map[string]string{
			"name":     h.engineName,
			"language": h.config.OCR.Language,
		},
		Store: StoreStats{
			Batches: h.store.Len(),
		},
	}

	// Tesseract is only critical when it is the active engine; vision
	// engines run without it.
	if h.engineName == "tesseract" && !tesseractStatus.Available {
		response.Status = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(response)
}

// checkTesseract verifies Tesseract OCR is available
func (h *Handler) checkTesseract() ServiceStatus {
	cmd := exec.Command("tesseract", "--version")
	output, err := cmd.CombinedOutput()

	if err != nil {
		return ServiceStatus{
			Available: false,
			Error:     "tesseract not found or not executable",
		}
	}

	version := "unknown"
	lines := strings.Split(string(output), "\n")
	if len(lines) > 0 {
		version = strings.TrimSpace(lines[0])
	}

	return ServiceStatus{
		Available: true,
		Version:   version,
	}
}

// Index serves the upload page
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, http.StatusOK, pageData{})
}

// ProcessBatch handles a browser upload: run the batch through the
// pipeline, park the result in the store and render it inline
func (h *Handler) ProcessBatch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	items, err := h.readBatch(w, r)
	if err != nil {
		status, message := uploadErrorResponse(err)
		h.renderPage(w, status, pageData{Error: message})
		return
	}
	if len(items) == 0 {
		h.renderPage(w, http.StatusBadRequest, pageData{Error: "Please select a file to upload."})
		return
	}

	batch, err := h.orchestrator.Run(r.Context(), items)
	if err != nil {
		h.renderPage(w, http.StatusBadRequest, pageData{Error: ocr.UserMessage(err)})
		return
	}

	id := h.store.Put(batch)
	log.Printf("[Web] batch %s: %d items in %.2fs", id, len(items), time.Since(start).Seconds())

	h.renderPage(w, http.StatusOK, pageData{BatchID: id, Batch: batch})
}

// Download streams an export file: a numeric selector picks one item,
// "all" picks the combined batch file
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	batch, ok := h.store.Get(vars["id"])
	if !ok {
		http.Error(w, "Batch not found or expired.", http.StatusNotFound)
		return
	}

	file, err := h.exportFor(batch, vars["selector"])
	if err != nil {
		http.Error(w, downloadErrorMessage(err), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	io.WriteString(w, file.Content)
}

// readBatch pulls the ordered upload items out of a multipart request.
// Result order follows field submission order, which fixes every item's
// index for the rest of the pipeline.
func (h *Handler) readBatch(w http.ResponseWriter, r *http.Request) ([]models.UploadItem, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	// 32MB in memory, the rest spills to temp files; MaxBytesReader
	// still caps the total.
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, err
	}

	var headers []*multipart.FileHeader
	if r.MultipartForm != nil {
		for _, field := range uploadFields {
			headers = append(headers, r.MultipartForm.File[field]...)
		}
	}

	items := make([]models.UploadItem, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open upload %q: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read upload %q: %w", fh.Filename, err)
		}
		items = append(items, models.UploadItem{
			Filename:     fh.Filename,
			Data:         data,
			DeclaredType: fh.Header.Get("Content-Type"),
		})
	}
	return items, nil
}

// exportFor resolves a download selector against a stored batch
func (h *Handler) exportFor(batch *models.BatchResult, selector string) (ocr.ExportFile, error) {
	if selector == "all" {
		return h.packager.CombinedExport(batch), nil
	}
	index, err := strconv.Atoi(selector)
	if err != nil {
		return ocr.ExportFile{}, ocr.ErrNoSuchItem
	}
	return h.packager.SingleExport(batch, index)
}

// uploadErrorResponse maps a readBatch failure to a status and a
// user-facing message
func uploadErrorResponse(err error) (int, string) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return http.StatusRequestEntityTooLarge, "File size exceeds the maximum allowed limit."
	}
	return http.StatusBadRequest, "Invalid upload. Please submit images as multipart form data."
}

// downloadErrorMessage keeps download failures terse and safe to show
func downloadErrorMessage(err error) string {
	if errors.Is(err, ocr.ErrNotExtracted) {
		return "That image produced no text to download."
	}
	return "Invalid download selection."
}

// sendError sends a JSON error response
func (h *Handler) sendError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

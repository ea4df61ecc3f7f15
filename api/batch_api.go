package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/textsnap/batch-ocr-service/internal/auth"
	"github.com/textsnap/batch-ocr-service/internal/models"
	"github.com/textsnap/batch-ocr-service/internal/ocr"
)

// BatchResponse is the JSON API shape for a processed batch
type BatchResponse struct {
	Success bool                     `json:"success"`
	BatchID string                   `json:"batchId"`
	Counts  models.BatchCounts       `json:"counts"`
	Items   []models.BatchItemResult `json:"items"`
}

// CreateBatch processes a multipart batch for an authenticated API
// client and returns the per-item results plus a batch ID for later
// retrieval
func (h *Handler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	claims, err := auth.GetClaimsFromContext(ctx)
	if err != nil {
		h.sendError(w, http.StatusUnauthorized, "unauthorized: "+err.Error())
		return
	}

	items, err := h.readBatch(w, r)
	if err != nil {
		status, message := uploadErrorResponse(err)
		h.sendError(w, status, message)
		return
	}
	if len(items) == 0 {
		h.sendError(w, http.StatusBadRequest, "Please select a file to upload.")
		return
	}

	batch, err := h.orchestrator.Run(ctx, items)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, ocr.UserMessage(err))
		return
	}

	id := h.store.Put(batch)
	log.Printf("[API] client %s: batch %s, %d items in %.2fs",
		claims.ClientID, id, len(items), time.Since(start).Seconds())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(BatchResponse{
		Success: true,
		BatchID: id,
		Counts:  batch.Counts,
		Items:   h.packager.DisplayView(batch),
	})
}

// GetBatch returns a stored batch by ID
func (h *Handler) GetBatch(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.GetClaimsFromContext(r.Context()); err != nil {
		h.sendError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	vars := mux.Vars(r)
	batch, ok := h.store.Get(vars["id"])
	if !ok {
		h.sendError(w, http.StatusNotFound, "batch not found or expired")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(BatchResponse{
		Success: true,
		BatchID: vars["id"],
		Counts:  batch.Counts,
		Items:   h.packager.DisplayView(batch),
	})
}

// GetBatchText streams an export file through the JSON API: a numeric
// selector for one item, "all" for the combined file
func (h *Handler) GetBatchText(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.GetClaimsFromContext(r.Context()); err != nil {
		h.sendError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	vars := mux.Vars(r)
	batch, ok := h.store.Get(vars["id"])
	if !ok {
		h.sendError(w, http.StatusNotFound, "batch not found or expired")
		return
	}

	file, err := h.exportFor(batch, vars["selector"])
	if err != nil {
		h.sendError(w, http.StatusBadRequest, downloadErrorMessage(err))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	io.WriteString(w, file.Content)
}

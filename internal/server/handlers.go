package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/zombor/expense-reports/internal/apperr"
	"github.com/zombor/expense-reports/internal/receipt"
)

// maxUploadSize bounds multipart uploads; phone photos can be large
const maxUploadSize = int64(50 << 20)

// owner returns the authenticated owner; requireOwner guarantees it is set
func owner(r *http.Request) string {
	o, _ := OwnerFromContext(r.Context())
	return o
}

// handleUpload stores an uploaded receipt image
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, apperr.Validationf("file is too large, maximum size is 50MB"))
			return
		}
		writeError(w, apperr.Validationf("error parsing form: %v", err))
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apperr.Validationf("no file provided"))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, err)
		return
	}

	url, err := s.receipts.UploadImage(owner(r), header.Filename, data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

type analyzeRequest struct {
	ImageURL string `json:"image_url"`
}

// handleAnalyzeReceipt runs extraction on an uploaded image
func (s *Server) handleAnalyzeReceipt(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeBody(r.Body, analyzeRequestSchema, &req); err != nil {
		writeError(w, err)
		return
	}

	fields, err := s.receipts.AnalyzeImage(r.Context(), owner(r), req.ImageURL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fields)
}

// handleListReceipts returns the owner's receipts, newest first
func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.receipts.ListReceipts(owner(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"receipts": receipts})
}

// handleCreateReceipt persists reviewed receipt fields
func (s *Server) handleCreateReceipt(w http.ResponseWriter, r *http.Request) {
	var in receipt.CreateInput
	if err := decodeBody(r.Body, createReceiptSchema, &in); err != nil {
		writeError(w, err)
		return
	}

	created, err := s.receipts.CreateReceipt(owner(r), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"receipt": created})
}

// handleDeleteReceipt deletes a receipt named by path or ?id=
func (s *Server) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		id = r.URL.Query().Get("id")
	}
	if id == "" {
		writeError(w, apperr.Validationf("receipt id is required"))
		return
	}

	if err := s.receipts.DeleteReceipt(owner(r), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type reportRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Format    string `json:"format"`
}

// handleCreateReport accepts a report request; rendering happens later
func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := decodeBody(r.Body, reportRequestSchema, &req); err != nil {
		writeError(w, err)
		return
	}

	rep, err := s.reports.RequestReport(r.Context(), owner(r), req.StartDate, req.EndDate, req.Format)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"report": rep})
}

// handleListReports returns the owner's reports, newest first
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.reports.ListReports(owner(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

// handleGetArtifact streams a completed report's CSV
func (s *Server) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	o := owner(r)
	if r.PathValue("userId") != o {
		writeError(w, apperr.ErrForbidden)
		return
	}

	data, rep, err := s.reports.FetchArtifact(o, r.PathValue("reportId"), r.PathValue("file"))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+rep.DownloadName()+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.Error("Error writing report", "report_id", rep.ID, "error", err)
	}
}

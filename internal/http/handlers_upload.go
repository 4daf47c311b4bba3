package http

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/migueandres1/ORS-SER-dashboard/internal/amqp"
	"github.com/migueandres1/ORS-SER-dashboard/internal/core"
)

// handleUpload ingests a multipart workbook upload as a new batch.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		slog.ErrorContext(r.Context(), "Parse multipart error", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Invalid upload request</div>`))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">No workbook attached</div>`))
		return
	}
	defer file.Close()

	filename := sanitizeInput(filepath.Base(header.Filename))
	uploadID, rows, err := s.ingestor.Ingest(r.Context(), filename, file)
	if err != nil {
		s.writeIngestError(w, r, filename, err)
		return
	}

	s.publishEvent(r.Context(), amqp.NewBatchIngested(uploadID, filename, rows))

	w.Header().Set("HX-Trigger", `{"uploads:changed": {}, "report:refresh": {}}`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Workbook ingested (#` + strconv.FormatInt(uploadID, 10) + `): ` +
		template.HTMLEscapeString(filename) + `, ` + strconv.Itoa(rows) + ` rows</div>`))
}

// writeIngestError maps the fault taxonomy to user-facing responses that
// name the offending file, column and row.
func (s *Server) writeIngestError(w http.ResponseWriter, r *http.Request, filename string, err error) {
	var schemaFault *core.SchemaFault
	var dataFault *core.DataFault
	var storageFault *core.StorageFault

	switch {
	case errors.As(err, &schemaFault):
		slog.WarnContext(r.Context(), "Workbook schema mismatch",
			"filename", filename, "column", schemaFault.Column)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">File ` + template.HTMLEscapeString(schemaFault.File) +
			` is missing column "` + template.HTMLEscapeString(schemaFault.Column) + `"</div>`))
	case errors.As(err, &dataFault):
		slog.WarnContext(r.Context(), "Workbook cell coercion failed",
			"filename", filename, "row", dataFault.Row, "column", dataFault.Column)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Row ` + strconv.Itoa(dataFault.Row) +
			`, column "` + template.HTMLEscapeString(dataFault.Column) +
			`": cannot read value "` + template.HTMLEscapeString(dataFault.Value) + `"</div>`))
	case errors.As(err, &storageFault):
		slog.ErrorContext(r.Context(), "Ingest storage error", "error", err, "filename", filename)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<div class="error">Could not save the workbook</div>`))
	default:
		slog.ErrorContext(r.Context(), "Ingest error", "error", err, "filename", filename)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Could not read ` + template.HTMLEscapeString(filename) + `</div>`))
	}
}

// handleDeleteUpload removes one batch and all of its fact rows.
func (s *Server) handleDeleteUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		w.Header().Set("Allow", "POST, DELETE")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Invalid request</div>`))
		return
	}

	uploadID, err := parseUploadID(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Invalid upload id</div>`))
		return
	}

	if err := s.uploads.DeleteUpload(r.Context(), uploadID); err != nil {
		slog.ErrorContext(r.Context(), "Delete upload error", "error", err, "upload_id", uploadID)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<div class="error">Could not delete the batch</div>`))
		return
	}

	s.publishEvent(r.Context(), amqp.NewBatchDeleted(uploadID))

	w.Header().Set("HX-Trigger", `{"uploads:changed": {}, "report:refresh": {}}`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Batch deleted</div>`))
}

// handleUploadsPartial renders the list of ingested batches.
func (s *Server) handleUploadsPartial(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	uploads, err := s.uploads.ListUploads(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "List uploads error", "error", err)
		_, _ = w.Write([]byte(`<section id="uploads"><div class="placeholder">Error loading batches</div></section>`))
		return
	}

	data := struct{ Uploads []core.Upload }{Uploads: uploads}
	if err := s.templates.ExecuteTemplate(w, "uploads.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "uploads.html")
		_, _ = w.Write([]byte(`<section id="uploads"><div class="placeholder">Error rendering batches</div></section>`))
	}
}

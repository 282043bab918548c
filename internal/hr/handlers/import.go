package handlers

import (
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	uploadField   = "csv_file"
	uploadMemory  = 1 << 20
	importMessage = "Upload received. Processing is under way."
)

var (
	uploadExtensions = map[string]bool{".csv": true, ".txt": true}
	uploadTypes      = map[string]bool{"text/csv": true, "text/plain": true}
)

// startImport accepts a multipart CSV upload and queues it. The import
// itself runs later on a worker.
func (h *Handler) startImport(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	claims := caller(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Unauthenticated.", nil)
		return
	}

	// Room for the multipart framing around a file of maxUpload bytes.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+uploadMemory)
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeUploadError(w, h.tooLargeMessage())
		case errors.Is(err, http.ErrMissingFile):
			writeUploadError(w, "is required")
		default:
			writeError(w, http.StatusBadRequest, "Malformed multipart body.", nil)
		}
		return
	}
	defer file.Close()
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	if header.Size > h.maxUpload {
		writeUploadError(w, h.tooLargeMessage())
		return
	}
	if !acceptedUpload(header) {
		writeUploadError(w, "must be a file of type: csv, txt")
		return
	}

	job, err := h.Imports.StartImport(r.Context(), claims, filepath.Base(header.Filename), file)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, importAccepted{Success: true, Message: importMessage, JobID: job.ID})
}

func (h *Handler) getImport(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, ok := pathID(w, params, "job_id")
	if !ok {
		return
	}
	summary, err := h.Imports.GetImport(r.Context(), caller(r), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Import Retrieved Successfully.", summary)
}

func (h *Handler) cancelImport(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, ok := pathID(w, params, "job_id")
	if !ok {
		return
	}
	job, err := h.Imports.CancelImport(r.Context(), caller(r), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusAccepted, "Import cancellation requested.", importJobResource{
		JobID:           job.ID,
		Status:          job.Status,
		CancelRequested: job.CancelRequested,
	})
}

func (h *Handler) tooLargeMessage() string {
	return "may not be greater than " + strconv.FormatInt(h.maxUpload>>10, 10) + " kilobytes"
}

func acceptedUpload(header *multipart.FileHeader) bool {
	if uploadExtensions[strings.ToLower(filepath.Ext(header.Filename))] {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(header.Header.Get("Content-Type"))
	return err == nil && uploadTypes[mediaType]
}

func writeUploadError(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusUnprocessableEntity, "The given data was invalid.", map[string][]string{
		uploadField: {msg},
	})
}

// Package handlers contains the HTTP handlers of the bookkeeping API.
// Response writing goes through the middleware package helpers so every
// endpoint speaks the same JSON envelope.
package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/mjansen/boekhouding/internal/api/middleware"
)

// maxUploadBytes caps statement and receipt uploads. Bank exports are a
// few hundred kilobytes; receipt photos a few megabytes.
const maxUploadBytes = 10 << 20

// Health handles GET /healthz
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readUpload returns the uploaded file bytes from either a multipart form
// field named "file" or the raw request body. Returns false after writing
// the error response.
func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Multipart field \"file\" is required")
			return nil, false
		}
		defer file.Close()
		return readAllUpload(w, file)
	}

	return readAllUpload(w, r.Body)
}

// readMultipartFile returns the "file" part of a multipart upload along
// with its header. Returns false after writing the error response.
func readMultipartFile(w http.ResponseWriter, r *http.Request) ([]byte, *multipart.FileHeader, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Multipart field \"file\" is required")
		return nil, nil, false
	}
	defer file.Close()

	raw, ok := readAllUpload(w, file)
	if !ok {
		return nil, nil, false
	}
	return raw, header, true
}

func readAllUpload(w http.ResponseWriter, r io.Reader) ([]byte, bool) {
	raw, err := io.ReadAll(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read upload")
		return nil, false
	}
	if len(raw) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "Uploaded file is empty")
		return nil, false
	}
	return raw, true
}

// queryInt parses an integer query parameter. Returns false after writing
// the error response when the parameter is missing or malformed.
func queryInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Query parameter "+name+" is required")
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Query parameter "+name+" must be a number")
		return 0, false
	}
	return n, true
}

package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/zukan/internal/extract"
	"github.com/hyperjump/zukan/internal/generate"
	"github.com/hyperjump/zukan/internal/models"
	"github.com/hyperjump/zukan/internal/search"
	"github.com/hyperjump/zukan/internal/session"
	"github.com/hyperjump/zukan/internal/vector"
	"github.com/hyperjump/zukan/pkg/utils"
)

const defaultUploadName = "upload.pdf"

type askRequest struct {
	Question string `json:"question"`
	K        int    `json:"k"`
}

type searchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

type searchResponse struct {
	Query string             `json:"query"`
	Hits  []models.SearchHit `json:"hits"`
}

type indexDirRequest struct {
	Dir string `json:"dir"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes())
	name, content, err := s.readUpload(r)
	if err != nil {
		s.respondError(w, uploadStatus(err), err.Error())
		return
	}
	s.logger.Debug("ingest request", zap.String("document", name), zap.Int("bytes", len(content)))

	progress := func(f float64) {
		s.logger.Debug("ingest progress", zap.String("document", name), zap.Float64("fraction", f))
	}
	report, err := s.session.IngestBytes(r.Context(), name, content, progress)
	if err != nil {
		s.respondFailure(w, "ingest", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, report)
}

// readUpload accepts either a multipart form with a "file" field or a raw PDF body, named
// by the "name" query parameter.
func (s *Server) readUpload(r *http.Request) (string, []byte, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			return "", nil, fmt.Errorf("multipart field \"file\" is required: %w", err)
		}
		defer file.Close()
		content, err := io.ReadAll(file)
		if err != nil {
			return "", nil, fmt.Errorf("read upload: %w", err)
		}
		return header.Filename, content, nil
	}
	content, err := io.ReadAll(r.Body)
	if err != nil {
		return "", nil, fmt.Errorf("read body: %w", err)
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = defaultUploadName
	}
	return name, content, nil
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("ask request", zap.String("question", utils.Truncate(req.Question, 80)), zap.Int("k", req.K))
	answer, err := s.session.Ask(r.Context(), req.Question, req.K)
	if err != nil {
		s.respondFailure(w, "ask", err)
		return
	}
	s.respondJSON(w, http.StatusOK, answer)
}

func (s *Server) handleAskImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes())
	file, _, err := r.FormFile("image")
	if err != nil {
		s.respondError(w, uploadStatus(err), "multipart field \"image\" is required")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read image")
		return
	}
	img, err := utils.DecodeImage(data)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	k := 0
	if v := r.FormValue("k"); v != "" {
		if k, err = strconv.Atoi(v); err != nil {
			s.respondError(w, http.StatusBadRequest, "k must be an integer")
			return
		}
	}
	question := r.FormValue("question")
	s.logger.Debug("ask image request", zap.String("question", utils.Truncate(question, 80)), zap.Int("k", k))

	answer, err := s.session.AskImage(r.Context(), img, question, k)
	if err != nil {
		s.respondFailure(w, "ask image", err)
		return
	}
	s.respondJSON(w, http.StatusOK, answer)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request", zap.String("query", req.Query), zap.Int("k", req.K))
	hits, err := s.session.Search(r.Context(), models.Query{Kind: models.KindText, Text: req.Query, K: req.K})
	if err != nil {
		s.respondFailure(w, "search", err)
		return
	}
	s.respondJSON(w, http.StatusOK, searchResponse{Query: req.Query, Hits: hits})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	dir, ok := s.indexDir(w, r)
	if !ok {
		return
	}
	if err := s.session.Save(r.Context(), dir); err != nil {
		s.respondFailure(w, "save", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"dir": dir, "status": "saved"})
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	dir, ok := s.indexDir(w, r)
	if !ok {
		return
	}
	if err := s.session.Load(r.Context(), dir); err != nil {
		s.respondFailure(w, "load", err)
		return
	}
	s.respondJSON(w, http.StatusOK, s.session.Status(r.Context()))
}

// indexDir reads an optional {"dir": ...} body, falling back to the configured index path.
func (s *Server) indexDir(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req indexDirRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}
	if req.Dir == "" {
		req.Dir = s.config.Index.Path
	}
	return req.Dir, true
}

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	encoded, ok := s.session.Image(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, "image not found")
		return
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		s.logger.Error("stored image is not valid base64", zap.String("image_id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "stored image is corrupt")
		return
	}
	w.Header().Set("Content-Type", utils.PNGMime)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.session.Status(r.Context()))
}

func (s *Server) maxUploadBytes() int64 {
	return int64(s.config.Server.MaxUploadMB) << 20
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, extract.ErrDocumentParse), errors.Is(err, session.ErrNoIndexableContent):
		return http.StatusUnprocessableEntity
	case errors.Is(err, vector.ErrNotInitialized):
		return http.StatusConflict
	case errors.Is(err, search.ErrInvalidQueryKind), errors.Is(err, models.ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, vector.ErrIncompatible):
		return http.StatusUnprocessableEntity
	case errors.Is(err, generate.ErrGeneration):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// uploadStatus is 413 for bodies over the upload limit and 400 otherwise.
func uploadStatus(err error) int {
	if statusFor(err) == http.StatusRequestEntityTooLarge {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func (s *Server) respondFailure(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", zap.Error(err))
	} else {
		s.logger.Debug(op+" rejected", zap.Int("status", status), zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/0xcro3dile/askdocs/internal/domain/entities"
	"github.com/0xcro3dile/askdocs/internal/domain/usecases"
)

type passageJSON struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Source string `json:"source"`
}

type chatRequest struct {
	Question string `json:"question"`
}

type chatResponse struct {
	SessionID string        `json:"session_id"`
	Answer    string        `json:"answer,omitempty"`
	Passages  []passageJSON `json:"passages"`
	Error     string        `json:"error,omitempty"`
}

type ingestResponse struct {
	SessionID string                 `json:"session_id"`
	Report    *entities.IngestReport `json:"report"`
	Error     string                 `json:"error,omitempty"`
}

func toPassagesJSON(passages []entities.Passage) []passageJSON {
	out := make([]passageJSON, len(passages))
	for i, p := range passages {
		out[i] = passageJSON{ID: p.ID, Text: p.Text, Source: p.SourceFile}
	}
	return out
}

// session resolves the caller's session and echoes its id in the response.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*usecases.Session, bool) {
	sess, err := s.sessions.Resolve(r.Context(), r.Header.Get(SessionHeader))
	if err != nil {
		s.log.Error("opening session", zap.Error(err))
		writeError(w, statusFor(err), err)
		return nil, false
	}
	w.Header().Set(SessionHeader, sess.ID)
	return sess, true
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}
	defer r.MultipartForm.RemoveAll()

	var headers []*multipart.FileHeader
	for _, field := range []string{"files", "file"} {
		headers = append(headers, r.MultipartForm.File[field]...)
	}
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "at least one file is required"})
		return
	}

	files := make([]entities.RawFile, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reading " + h.Filename})
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reading " + h.Filename})
			return
		}
		files = append(files, entities.RawFile{Name: h.Filename, Data: data})
	}

	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	report, err := s.svc.Ingest(r.Context(), sess, files)
	resp := ingestResponse{SessionID: sess.ID, Report: report}
	if err != nil {
		s.log.Error("ingest failed", zap.String("session", sess.ID), zap.Error(err))
		resp.Error = err.Error()
		writeJSON(w, statusFor(err), resp)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	files := sess.ProcessedFiles()
	type fileJSON struct {
		Hash string `json:"hash"`
		Name string `json:"name,omitempty"`
	}
	out := make([]fileJSON, len(files))
	for i, f := range files {
		out[i] = fileJSON{Hash: f.ContentHash, Name: f.Name}
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": sess.ID, "documents": out, "count": len(out)})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question required"})
		return
	}

	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	resp, err := s.svc.Ask(r.Context(), sess, req.Question)
	out := chatResponse{SessionID: sess.ID, Passages: []passageJSON{}}
	if resp != nil {
		out.Answer = resp.Answer
		out.Passages = toPassagesJSON(resp.Passages)
	}
	if err != nil {
		out.Error = err.Error()
		writeJSON(w, statusFor(err), out)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query required"})
		return
	}

	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	passages, err := s.svc.Retrieve(r.Context(), sess, query)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": toPassagesJSON(passages), "count": len(passages)})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	history := sess.History()
	if history == nil {
		history = []entities.ChatTurn{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":        sess.ID,
		"history":           history,
		"relevant_passages": toPassagesJSON(sess.RelevantPassages()),
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := s.svc.Reset(r.Context(), sess); err != nil {
		s.log.Error("reset failed", zap.Error(err))
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	count, err := s.index.Count(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "passages": count, "sessions": s.sessions.Len()})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, entities.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, entities.ErrAnswerGeneration):
		return http.StatusBadGateway
	case errors.Is(err, entities.ErrRetrievalUnavailable), entities.IsIndexFault(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

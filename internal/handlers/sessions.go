package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"idverify/internal/correction"
	"idverify/internal/models"
	"idverify/internal/ocr"
	"idverify/internal/session"
)

// DocumentField is the multipart field the document image is sent in.
const DocumentField = "document"

// alternative field names accepted when DocumentField is missing
var documentFieldAlts = []string{"file", "image", "upload", "card", "document[]", "files[]"}

// Sessions serves the verification session API.
type Sessions struct {
	manager   *session.Manager
	bodyLimit int64
}

func NewSessions(m *session.Manager, bodyLimit int64) *Sessions {
	if bodyLimit <= 0 {
		bodyLimit = 10 << 20
	}
	return &Sessions{manager: m, bodyLimit: bodyLimit}
}

func writeJSONResp(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps pipeline errors onto HTTP statuses. Engine and
// recognition failures carry a retryable flag so the client knows whether
// to re-capture or fall back to manual entry.
func writeError(w http.ResponseWriter, err error, snap *session.Snapshot) {
	status, code := http.StatusInternalServerError, "Server_Error"
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		status, code = http.StatusNotFound, "Not_Found"
	case errors.Is(err, session.ErrManagerClosed):
		status, code = http.StatusServiceUnavailable, "Shutting_Down"
	case errors.Is(err, session.ErrStaleResult):
		status, code = http.StatusConflict, "Stale_Result"
	case errors.Is(err, ocr.ErrEngineInitFailed), errors.Is(err, ocr.ErrEngineNotReady):
		status, code = http.StatusServiceUnavailable, "Engine_Unavailable"
	case errors.Is(err, ocr.ErrRecognitionFailed):
		status, code = http.StatusUnprocessableEntity, "Recognition_Failed"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		status, code = http.StatusServiceUnavailable, "Engine_Busy"
	case errors.Is(err, correction.ErrNoActivePrompt):
		status, code = http.StatusConflict, "No_Active_Prompt"
	case errors.Is(err, correction.ErrEmptyValue):
		status, code = http.StatusBadRequest, "Bad_Request"
	}

	body := map[string]any{"status": code, "message": err.Error()}
	switch code {
	case "Engine_Unavailable", "Recognition_Failed", "Engine_Busy":
		body["retryable"] = ocr.IsRetryable(err) || code == "Engine_Busy"
	}
	if snap != nil {
		body["data"] = snap
	}
	if status >= 500 {
		log.Error().Err(err).Int("status", status).Msg("request failed")
	}
	writeJSONResp(w, status, body)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSONResp(w, http.StatusBadRequest, map[string]any{"status": "Bad_Request", "message": msg})
}

func (h *Sessions) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.manager.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, nil)
		return nil, false
	}
	return s, true
}

// decodeRecord reads an optional ReferenceRecord body. An empty body is an
// empty record.
func decodeRecord(r *http.Request) (models.ReferenceRecord, error) {
	var rec models.ReferenceRecord
	if r.Body == nil {
		return rec, nil
	}
	err := json.NewDecoder(r.Body).Decode(&rec)
	if errors.Is(err, io.EOF) {
		return rec, nil
	}
	return rec, err
}

// Create: POST /api/v1/sessions
// body: reference record JSON (optional)
func (h *Sessions) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	rec, err := decodeRecord(r)
	if err != nil {
		badRequest(w, "invalid reference record JSON")
		return
	}
	s, err := h.manager.Create(r.Context(), rec)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	writeJSONResp(w, http.StatusCreated, s.Snapshot())
}

// Get: GET /api/v1/sessions/{id}
func (h *Sessions) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSONResp(w, http.StatusOK, s.Snapshot())
}

// UpdateRecord: PUT /api/v1/sessions/{id}/record
func (h *Sessions) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	rec, err := decodeRecord(r)
	if err != nil {
		badRequest(w, "invalid reference record JSON")
		return
	}
	writeJSONResp(w, http.StatusOK, s.UpdateRecord(rec))
}

// UploadDocument: POST /api/v1/sessions/{id}/documents
// multipart/form-data with file field "document"
func (h *Sessions) UploadDocument(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.bodyLimit)
	if err := r.ParseMultipartForm(h.bodyLimit); err != nil {
		badRequest(w, "failed to parse form or file too large")
		return
	}

	file, err := documentFile(r)
	if err != nil {
		badRequest(w, "missing file field 'document' (send multipart/form-data with field name 'document')")
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil || len(image) == 0 {
		badRequest(w, "failed to read uploaded file")
		return
	}

	snap, err := s.Process(r.Context(), image)
	if err != nil {
		writeError(w, err, &snap)
		return
	}
	writeJSONResp(w, http.StatusOK, snap)
}

// documentFile returns the uploaded document, falling back to common
// alternative field names and then to the only file in the form.
func documentFile(r *http.Request) (multipart.File, error) {
	file, _, err := r.FormFile(DocumentField)
	if err == nil {
		return file, nil
	}
	if r.MultipartForm == nil || len(r.MultipartForm.File) == 0 {
		return nil, err
	}
	for _, alt := range documentFieldAlts {
		if f, _, altErr := r.FormFile(alt); altErr == nil {
			log.Debug().Str("field", alt).Msg("using alternative document field")
			return f, nil
		}
	}
	keys := make([]string, 0, len(r.MultipartForm.File))
	for k := range r.MultipartForm.File {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	log.Debug().Strs("fields", keys).Msg("document field missing, falling back to first file field")
	f, _, firstErr := r.FormFile(keys[0])
	if firstErr != nil {
		return nil, err
	}
	return f, nil
}

type confirmRequest struct {
	// Value is the confirmed, possibly edited, value. Omit it to accept
	// the suggestion unchanged.
	Value *string `json:"value"`
}

// Confirm: POST /api/v1/sessions/{id}/prompt/confirm
func (h *Sessions) Confirm(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req confirmRequest
	if r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			badRequest(w, "invalid JSON body")
			return
		}
	}

	var (
		snap session.Snapshot
		err  error
	)
	if req.Value == nil {
		snap, err = s.Accept()
	} else {
		snap, err = s.Confirm(*req.Value)
	}
	if err != nil {
		writeError(w, err, &snap)
		return
	}
	writeJSONResp(w, http.StatusOK, snap)
}

// Cancel: POST /api/v1/sessions/{id}/prompt/cancel
func (h *Sessions) Cancel(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	snap, err := s.Cancel()
	if err != nil {
		writeError(w, err, &snap)
		return
	}
	writeJSONResp(w, http.StatusOK, snap)
}

// End: DELETE /api/v1/sessions/{id}
func (h *Sessions) End(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.End(chi.URLParam(r, "id")); err != nil {
		writeError(w, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Health: GET /healthz
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSONResp(w, http.StatusOK, map[string]any{"status": "ok"})
}

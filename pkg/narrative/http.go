package narrative

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/cardio-extract/pkg/common/logger"
	"github.com/synaptica-ai/cardio-extract/pkg/common/models"
)

type HTTPHandler struct {
	service *Service
	catalog []FieldInfo
}

func NewHTTPHandler(service *Service, catalog []FieldInfo) *HTTPHandler {
	return &HTTPHandler{service: service, catalog: catalog}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/extract", h.handleExtract).Methods(http.MethodPost)
	router.HandleFunc("/extractions/{id}", h.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/fields", h.handleFields).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleExtract(w http.ResponseWriter, r *http.Request) {
	req, err := decodeExtractRequest(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		logger.Log.WithError(err).Warn("invalid extraction payload")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.Process(r.Context(), req)
	if err != nil {
		if IsValidationError(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Log.WithError(err).Error("failed to process extraction")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// decodeExtractRequest accepts a JSON body or a raw text/plain upload; for
// the latter source and document_id come from the query string.
func decodeExtractRequest(r *http.Request) (models.ExtractRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "text/plain" {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return models.ExtractRequest{}, err
		}
		q := r.URL.Query()
		return RequestWrapper{
			DocumentID: q.Get("document_id"),
			Source:     q.Get("source"),
			Text:       string(body),
		}.ToModel(), nil
	}

	var wrapper RequestWrapper
	if err := json.NewDecoder(r.Body).Decode(&wrapper); err != nil {
		return models.ExtractRequest{}, err
	}
	return wrapper.ToModel(), nil
}

func (h *HTTPHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rec, err := h.service.Status(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "extraction not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to fetch extraction record")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (h *HTTPHandler) handleFields(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"fields": h.catalog})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.WithError(err).Warn("failed to write response")
	}
}

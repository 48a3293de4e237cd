package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Mindburn-Labs/screenpilot/pkg/auth"
	"github.com/Mindburn-Labs/screenpilot/pkg/llm"
	"github.com/Mindburn-Labs/screenpilot/pkg/predict"
	"github.com/Mindburn-Labs/screenpilot/pkg/prompt"
)

// Predictor runs one screenshot-to-action prediction.
type Predictor interface {
	Predict(ctx context.Context, req prompt.Request) (*predict.Result, error)
}

// Endpoint describes one route in the API index.
type Endpoint struct {
	Path         string `json:"path"`
	Method       string `json:"method"`
	Description  string `json:"description"`
	RequiresAuth bool   `json:"requiresAuth"`
}

// Index is the body of GET / and GET /api.
type Index struct {
	Name        string     `json:"name"`
	Version     string     `json:"version"`
	Description string     `json:"description"`
	Endpoints   []Endpoint `json:"endpoints"`
}

// Handlers holds the dependencies of the HTTP handlers.
type Handlers struct {
	predictor    Predictor
	maxBodyBytes int64
	index        Index
	logger       *slog.Logger
}

// HandlePredict serves POST predict. A reply the parser could not structure
// is still a 200 with a null action.
func (h *Handlers) HandlePredict(w http.ResponseWriter, r *http.Request) {
	if h.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}

	var req prompt.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		WriteBadRequest(w, "Invalid JSON body")
		return
	}

	res, err := h.predictor.Predict(r.Context(), req)
	if err != nil {
		h.writePredictError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusOK, res)
}

func (h *Handlers) writePredictError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *prompt.ValidationError
	if errors.As(err, &verr) {
		WriteBadRequest(w, verr.Error())
		return
	}
	if lerr, ok := llm.AsError(err); ok {
		h.logger.ErrorContext(r.Context(), "model service failed",
			"kind", lerr.Kind,
			"status", lerr.StatusCode,
			"error", lerr.Message,
			"request_id", auth.GetRequestID(r.Context()),
		)
		WriteError(w, http.StatusInternalServerError, "Model service request failed ("+string(lerr.Kind)+")")
		return
	}
	WriteInternal(w, r, h.logger, err)
}

// HandleMe returns the verified user. It must run behind RequireAuth.
func (h *Handlers) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r.Context())
	if err != nil {
		WriteUnauthorized(w, "")
		return
	}
	WriteSuccess(w, http.StatusOK, user)
}

// HandleIndex lists the API endpoints.
func (h *Handlers) HandleIndex(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, http.StatusOK, h.index)
}

// HandleHealth is the liveness probe.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}

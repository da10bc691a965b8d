package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cloo-solutions/shiftlog/internal/api"
	"github.com/cloo-solutions/shiftlog/internal/domain"
)

type Answerer interface {
	Answer(ctx context.Context, question string) *domain.Answer
}

type IndexStatus interface {
	Ready() bool
	HasDocuments() bool
	Collection() string
}

type ChatHandler struct {
	svc   Answerer
	index IndexStatus
}

func NewChatHandler(svc Answerer, index IndexStatus) *ChatHandler {
	return &ChatHandler{svc: svc, index: index}
}

// ChatRequest accepts the question under either key; "question" wins.
type ChatRequest struct {
	Question string `json:"question"`
	Message  string `json:"message"`
}

type HealthResponse struct {
	Status       string `json:"status"`
	IndexReady   bool   `json:"index_ready"`
	Collection   string `json:"collection"`
	HasDocuments bool   `json:"has_documents"`
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		question = strings.TrimSpace(req.Message)
	}
	if question == "" {
		api.HandleError(w, domain.ErrEmptyQuestion)
		return
	}

	api.Success(w, http.StatusOK, h.svc.Answer(r.Context(), question))
}

// Health always answers 200; a missing index shows up in the body, not the status.
func (h *ChatHandler) Health(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, HealthResponse{
		Status:       "healthy",
		IndexReady:   h.index.Ready(),
		Collection:   h.index.Collection(),
		HasDocuments: h.index.HasDocuments(),
	})
}

// Package award — handlers.go обрабатывает HTTP-запросы начисления.
package award

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"communityhub.ru/gamification/internal/common"
)

// Handler обрабатывает запросы начисления баллов.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик начислений.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register подключает маршруты начисления к роутеру.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/award", h.HandleAward).Methods(http.MethodPost)
}

// awardRequest — тело запроса POST /v1/award.
type awardRequest struct {
	UserID       string `json:"user_id"`
	Action       string `json:"action"`
	RelatedID    string `json:"related_id"`
	CheckRelated bool   `json:"check_related"`
}

// HandleAward — POST /v1/award.
// Всегда отвечает 200 со структурированным результатом: сбой начисления
// не должен ронять действие платформы, которое его вызвало. 400 уходит
// только на нечитаемое тело запроса.
func (h *Handler) HandleAward(w http.ResponseWriter, r *http.Request) {
	var req awardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteError(w, http.StatusBadRequest, "некорректное тело запроса")
		return
	}

	result := h.service.Award(r.Context(), req.UserID, req.Action, &Options{
		RelatedID:    req.RelatedID,
		CheckRelated: req.CheckRelated,
	})

	common.WriteJSON(w, http.StatusOK, result)
}

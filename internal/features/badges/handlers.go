// Package badges — handlers.go отдаёт значки пользователя по HTTP.
package badges

import (
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"communityhub.ru/gamification/internal/common"
)

// Handler обрабатывает запросы значков.
type Handler struct {
	evaluator *Evaluator
}

// NewHandler создаёт обработчик значков.
func NewHandler(evaluator *Evaluator) *Handler {
	return &Handler{evaluator: evaluator}
}

// Register подключает маршруты значков к роутеру.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/users/{id}/badges", h.HandleUserBadges).Methods(http.MethodGet)
}

// HandleUserBadges — GET /v1/users/{id}/badges.
func (h *Handler) HandleUserBadges(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	if userID == "" {
		common.WriteError(w, http.StatusBadRequest, "user_id не задан")
		return
	}

	earned, err := h.evaluator.ListForUser(r.Context(), userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка чтения значков")
		common.WriteError(w, http.StatusInternalServerError, "хранилище недоступно")
		return
	}
	if earned == nil {
		earned = []*EarnedBadge{}
	}

	common.WriteJSON(w, http.StatusOK, earned)
}

// Package ledger — handlers.go отдаёт историю начислений по HTTP.
package ledger

import (
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"communityhub.ru/gamification/internal/common"
)

// Handler обрабатывает запросы истории начислений.
type Handler struct {
	repo  *Repository
	limit int // Сколько записей отдавать (HISTORY_LIMIT)
}

// NewHandler создаёт обработчик истории.
func NewHandler(repo *Repository, limit int) *Handler {
	return &Handler{repo: repo, limit: limit}
}

// Register подключает маршруты истории к роутеру.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/users/{id}/history", h.HandleHistory).Methods(http.MethodGet)
}

// HandleHistory — GET /v1/users/{id}/history.
// Читает напрямую из журнала: история отражает только зафиксированное
// состояние.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	if userID == "" {
		common.WriteError(w, http.StatusBadRequest, "user_id не задан")
		return
	}

	entries, err := h.repo.ListByUser(r.Context(), userID, h.limit)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка чтения истории")
		common.WriteError(w, http.StatusInternalServerError, "хранилище недоступно")
		return
	}
	if entries == nil {
		entries = []*Entry{}
	}

	common.WriteJSON(w, http.StatusOK, entries)
}

// Package reconcile — handlers.go запускает сверку по HTTP (админ-маршруты).
package reconcile

import (
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"communityhub.ru/gamification/internal/common"
)

// Handler обрабатывает админ-запросы сверки.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик сверки.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register подключает маршруты сверки к админ-роутеру.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/reconcile", h.HandleReconcileAll).Methods(http.MethodPost)
	r.HandleFunc("/reconcile/{id}", h.HandleReconcileUser).Methods(http.MethodPost)
}

// HandleReconcileUser — POST /v1/admin/reconcile/{id}.
func (h *Handler) HandleReconcileUser(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	if userID == "" {
		common.WriteError(w, http.StatusBadRequest, "user_id не задан")
		return
	}

	result, err := h.service.ReconcileUser(r.Context(), userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Сверка не удалась")
		common.WriteError(w, http.StatusInternalServerError, "хранилище недоступно")
		return
	}

	common.WriteJSON(w, http.StatusOK, result)
}

// HandleReconcileAll — POST /v1/admin/reconcile.
// Частичные сбои отдельных пользователей не прерывают сверку
// и возвращаются в поле error соответствующего результата.
func (h *Handler) HandleReconcileAll(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.ReconcileAll(r.Context())
	if err != nil {
		log.WithError(err).Error("Сверка не удалась")
		common.WriteError(w, http.StatusInternalServerError, "хранилище недоступно")
		return
	}
	if results == nil {
		results = []*UserResult{}
	}

	common.WriteJSON(w, http.StatusOK, results)
}

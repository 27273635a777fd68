// Package catalog — handlers.go реализует админ-маршруты управления
// правилами. Движок начислений правила только читает; заводят и правят
// их администраторы через эти эндпоинты.
package catalog

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"communityhub.ru/gamification/internal/common"
)

// Handler обрабатывает админ-запросы каталога правил.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик каталога.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register подключает маршруты каталога к админ-роутеру.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/rules", h.HandleList).Methods(http.MethodGet)
	r.HandleFunc("/rules/{name}", h.HandleGet).Methods(http.MethodGet)
	r.HandleFunc("/rules/{name}", h.HandleUpsert).Methods(http.MethodPut)
}

// HandleList — GET /v1/admin/rules.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	rules, err := h.service.List(r.Context())
	if err != nil {
		log.WithError(err).Error("Ошибка чтения каталога")
		common.WriteError(w, http.StatusInternalServerError, "хранилище недоступно")
		return
	}
	if rules == nil {
		rules = []*ActionRule{}
	}
	common.WriteJSON(w, http.StatusOK, rules)
}

// HandleGet — GET /v1/admin/rules/{name}. Псевдонимы разрешаются.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	rule, err := h.service.Resolve(r.Context(), name)
	if err != nil {
		if errors.Is(err, common.ErrRuleNotFound) {
			common.WriteError(w, http.StatusNotFound, "правило не найдено")
			return
		}
		log.WithError(err).WithField("name", name).Error("Ошибка чтения правила")
		common.WriteError(w, http.StatusInternalServerError, "хранилище недоступно")
		return
	}

	common.WriteJSON(w, http.StatusOK, rule)
}

// upsertRequest — тело запроса PUT /v1/admin/rules/{name}.
type upsertRequest struct {
	Points      int64       `json:"points"`
	Enabled     bool        `json:"enabled"`
	LimitPolicy LimitPolicy `json:"limit_policy"`
}

// HandleUpsert — PUT /v1/admin/rules/{name}.
// Правки правила не переписывают историю: баллы уже сделанных начислений
// зафиксированы в журнале.
func (h *Handler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var req upsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteError(w, http.StatusBadRequest, "некорректное тело запроса")
		return
	}

	rule := &ActionRule{
		Name:        name,
		Points:      req.Points,
		Enabled:     req.Enabled,
		LimitPolicy: req.LimitPolicy,
	}
	if err := h.service.Upsert(r.Context(), rule); err != nil {
		log.WithError(err).WithField("name", name).Error("Ошибка сохранения правила")
		common.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	log.WithFields(log.Fields{
		"name":    name,
		"points":  req.Points,
		"enabled": req.Enabled,
	}).Info("Правило сохранено")

	common.WriteJSON(w, http.StatusOK, rule)
}

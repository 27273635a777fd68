// Package balance — handlers.go отдаёт баланс и рейтинг по HTTP.
package balance

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"communityhub.ru/gamification/internal/common"
)

// LedgerSummer — прямое суммирование журнала для строгого чтения баланса.
type LedgerSummer interface {
	SumPoints(ctx context.Context, userID string) (int64, error)
}

// Handler обрабатывает запросы баланса и рейтинга.
type Handler struct {
	repo   *Repository
	ledger LedgerSummer
	topN   int // Размер рейтинга по умолчанию (LEADERBOARD_LIMIT)
}

// NewHandler создаёт обработчик балансов.
func NewHandler(repo *Repository, ledger LedgerSummer, topN int) *Handler {
	return &Handler{repo: repo, ledger: ledger, topN: topN}
}

// Register подключает маршруты балансов к роутеру.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/users/{id}/points", h.HandlePoints).Methods(http.MethodGet)
	r.HandleFunc("/leaderboard", h.HandleLeaderboard).Methods(http.MethodGet)
}

// pointsResponse — ответ GET /v1/users/{id}/points.
type pointsResponse struct {
	UserID string `json:"user_id"`
	Points int64  `json:"points"`
	Source string `json:"source"` // "cache" или "ledger"
}

// HandlePoints — GET /v1/users/{id}/points.
// По умолчанию читает кэш (быстро, допускает небольшое отставание).
// С ?strong=true суммирует журнал напрямую — для чтений, которым нужна
// строгая согласованность.
func (h *Handler) HandlePoints(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	if userID == "" {
		common.WriteError(w, http.StatusBadRequest, "user_id не задан")
		return
	}

	resp := pointsResponse{UserID: userID, Source: "cache"}

	var err error
	if r.URL.Query().Get("strong") == "true" {
		resp.Source = "ledger"
		resp.Points, err = h.ledger.SumPoints(r.Context(), userID)
	} else {
		resp.Points, err = h.repo.Get(r.Context(), userID)
	}
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка чтения баланса")
		common.WriteError(w, http.StatusInternalServerError, "хранилище недоступно")
		return
	}

	common.WriteJSON(w, http.StatusOK, resp)
}

// HandleLeaderboard — GET /v1/leaderboard.
// Размер задаётся ?limit=N, но не больше настроенного максимума.
func (h *Handler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := h.topN
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n < limit {
			limit = n
		}
	}

	top, err := h.repo.Top(r.Context(), limit)
	if err != nil {
		log.WithError(err).Error("Ошибка чтения рейтинга")
		common.WriteError(w, http.StatusInternalServerError, "хранилище недоступно")
		return
	}
	if top == nil {
		top = []*UserPoints{}
	}

	common.WriteJSON(w, http.StatusOK, top)
}

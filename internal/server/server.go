// Package server собирает HTTP-поверхность сервиса: роутер, middleware
// и маршруты всех фич. Сама бизнес-логика живёт в internal/features —
// здесь только транспорт.
package server

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"communityhub.ru/gamification/internal/common"
	"communityhub.ru/gamification/internal/config"
	"communityhub.ru/gamification/internal/features/award"
	"communityhub.ru/gamification/internal/features/badges"
	"communityhub.ru/gamification/internal/features/balance"
	"communityhub.ru/gamification/internal/features/catalog"
	"communityhub.ru/gamification/internal/features/ledger"
	"communityhub.ru/gamification/internal/features/reconcile"
)

// Handlers — обработчики фич, монтируемые на роутер.
type Handlers struct {
	Award     *award.Handler
	Ledger    *ledger.Handler
	Balance   *balance.Handler
	Badges    *badges.Handler
	Reconcile *reconcile.Handler
	Catalog   *catalog.Handler
}

// Server — HTTP-сервер сервиса начислений.
type Server struct {
	httpServer  *http.Server
	rateLimiter *RateLimiter
}

// New собирает сервер: общие middleware на всё API,
// админ-маршруты дополнительно за проверкой токена.
func New(cfg *config.Config, h Handlers) *Server {
	rl := NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	auth := NewAdminAuth(cfg.AdminTokenHash)

	root := mux.NewRouter()
	root.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)

	api := root.PathPrefix("/v1").Subrouter()
	api.Use(RecoveryMiddleware, LoggingMiddleware, RateLimitMiddleware(rl))

	// Публичные маршруты (вызываются платформой с доверенным user_id)
	h.Award.Register(api)
	h.Ledger.Register(api)
	h.Balance.Register(api)
	h.Badges.Register(api)

	// Админ-маршруты
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(auth.Middleware)
	h.Reconcile.Register(admin)
	h.Catalog.Register(admin)

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      root,
			ReadTimeout:  cfg.HTTPReadTimeout,
			WriteTimeout: cfg.HTTPWriteTimeout,
		},
		rateLimiter: rl,
	}
}

// Start запускает сервер. Блокируется до остановки.
func (s *Server) Start() error {
	log.WithField("addr", s.httpServer.Addr).Info("HTTP-сервер запущен")
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown останавливает сервер, дожидаясь активных запросов.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.Close()
	return s.httpServer.Shutdown(ctx)
}

// handleHealth — GET /healthz для проверок живости.
func handleHealth(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: ночная сверка балансов с журналом.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"communityhub.ru/gamification/internal/features/reconcile"
)

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron          *cron.Cron
	reconcileSvc  *reconcile.Service
	reconcileSpec string
}

// NewScheduler создаёт планировщик задач. Расписание задаётся в UTC —
// той же шкале, по которой считаются дневные лимиты начислений.
func NewScheduler(reconcileSvc *reconcile.Service, reconcileSpec string) *Scheduler {
	return &Scheduler{
		cron:          cron.New(cron.WithLocation(time.UTC)),
		reconcileSvc:  reconcileSvc,
		reconcileSpec: reconcileSpec,
	}
}

// Start запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) {
	// Ночная сверка всех балансов
	_, err := s.cron.AddFunc(s.reconcileSpec, func() {
		log.Info("[CRON] Запуск сверки балансов")
		if _, err := s.reconcileSvc.ReconcileAll(ctx); err != nil {
			log.WithError(err).Error("[CRON] Ошибка сверки")
		}
	})
	if err != nil {
		log.WithError(err).WithField("spec", s.reconcileSpec).
			Error("Не удалось добавить задачу сверки")
	}

	s.cron.Start()
	log.WithField("spec", s.reconcileSpec).Info("Планировщик задач запущен (UTC)")
}

// Stop останавливает планировщик, дожидаясь выполняющихся задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}

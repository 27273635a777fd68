// Package app инициализирует все компоненты сервиса.
// app.go — точка сборки: создаёт БД-пул, репозитории, сервисы, обработчики
// и собирает всё в один объект App.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"communityhub.ru/gamification/internal/config"
	"communityhub.ru/gamification/internal/db/postgres"
	"communityhub.ru/gamification/internal/features/award"
	"communityhub.ru/gamification/internal/features/badges"
	"communityhub.ru/gamification/internal/features/balance"
	"communityhub.ru/gamification/internal/features/catalog"
	"communityhub.ru/gamification/internal/features/ledger"
	"communityhub.ru/gamification/internal/features/reconcile"
	"communityhub.ru/gamification/internal/jobs"
	"communityhub.ru/gamification/internal/notify"
	"communityhub.ru/gamification/internal/server"
)

// App содержит все компоненты сервиса.
type App struct {
	Server    *server.Server
	Scheduler *jobs.Scheduler
	DB        *pgxpool.Pool
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	// Запускаем миграции
	if err := runMigrations(ctx, pool); err != nil {
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Репозитории ===
	catalogRepo := catalog.NewRepository(pool)
	ledgerRepo := ledger.NewRepository(pool)
	balanceRepo := balance.NewRepository(pool)
	badgesRepo := badges.NewRepository(pool)

	// === 3. Анонсы значков (опционально) ===
	var notifier badges.Notifier
	if cfg.FeatureAnnounceEnabled {
		announcer, err := notify.NewTelegramAnnouncer(cfg.TelegramBotToken, cfg.CommunityChatID)
		if err != nil {
			return nil, fmt.Errorf("ошибка инициализации анонсера: %w", err)
		}
		notifier = announcer
	}

	// === 4. Сервисы ===
	catalogService := catalog.NewService(catalogRepo)
	badgeEvaluator := badges.NewEvaluator(badgesRepo, notifier)
	reconcileService := reconcile.NewService(ledgerRepo, balanceRepo)

	// Движок начислений. При выключенных значках он их просто не оценивает;
	// просмотр уже выданных значков при этом продолжает работать.
	var awardBadges award.BadgeEvaluator
	if cfg.FeatureBadgesEnabled {
		awardBadges = badgeEvaluator
	}
	awardService := award.NewService(catalogService, ledgerRepo, balanceRepo, awardBadges)

	// === 5. Обработчики ===
	handlers := server.Handlers{
		Award:     award.NewHandler(awardService),
		Ledger:    ledger.NewHandler(ledgerRepo, cfg.HistoryLimit),
		Balance:   balance.NewHandler(balanceRepo, ledgerRepo, cfg.LeaderboardLimit),
		Badges:    badges.NewHandler(badgeEvaluator),
		Reconcile: reconcile.NewHandler(reconcileService),
		Catalog:   catalog.NewHandler(catalogService),
	}

	// === 6. HTTP-сервер ===
	srv := server.New(cfg, handlers)

	// === 7. Планировщик задач ===
	scheduler := jobs.NewScheduler(reconcileService, cfg.ReconcileCron)

	return &App{
		Server:    srv,
		Scheduler: scheduler,
		DB:        pool,
	}, nil
}

// runMigrations выполняет все SQL-миграции.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	// Инициализируем систему миграций
	if err := postgres.EnsureMigrationsTable(ctx, pool); err != nil {
		return err
	}

	// Выполняем миграции по порядку
	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration001Catalog},
		{2, migration002Ledger},
		{3, migration003Balances},
		{4, migration004Badges},
	}

	for _, m := range migrations {
		if err := postgres.ExecMigrationSQL(ctx, pool, m.version, m.sql); err != nil {
			return fmt.Errorf("миграция %d: %w", m.version, err)
		}
		log.Infof("Миграция %d применена", m.version)
	}

	return nil
}

// SQL-миграции встроены в код для упрощения деплоя.

var migration001Catalog = `
CREATE TABLE IF NOT EXISTS action_rules (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(128) UNIQUE NOT NULL,
    points BIGINT NOT NULL,
    enabled BOOLEAN NOT NULL DEFAULT TRUE,
    limit_policy VARCHAR(64) NOT NULL DEFAULT 'unlimited',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS action_aliases (
    alias VARCHAR(128) PRIMARY KEY,
    rule_name VARCHAR(128) NOT NULL REFERENCES action_rules(name) ON UPDATE CASCADE
);

INSERT INTO action_rules (name, points, limit_policy) VALUES
    ('new_post', 10, 'unlimited'),
    ('new_comment', 5, 'unlimited'),
    ('received_like_on_post', 2, 'once_per_related_target'),
    ('received_like_on_comment', 1, 'once_per_related_target'),
    ('event_attendance', 15, 'once_per_related_target'),
    ('profile_completed', 25, 'once_per_user_total'),
    ('daily_visit', 1, 'once_per_day')
ON CONFLICT (name) DO NOTHING;

INSERT INTO action_aliases (alias, rule_name) VALUES
    ('post_like', 'received_like_on_post'),
    ('liked_post', 'received_like_on_post'),
    ('attended_event', 'event_attendance')
ON CONFLICT (alias) DO NOTHING;
`

var migration002Ledger = `
CREATE TABLE IF NOT EXISTS points_ledger (
    id BIGSERIAL PRIMARY KEY,
    user_id VARCHAR(128) NOT NULL,
    action VARCHAR(128) NOT NULL,
    points BIGINT NOT NULL,
    related_id VARCHAR(128),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_ledger_user_created ON points_ledger(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_ledger_user_action ON points_ledger(user_id, action);

-- Дедупликация «раз на цель» на уровне базы: закрывает гонку
-- параллельных начислений за одну и ту же цель.
CREATE UNIQUE INDEX IF NOT EXISTS uq_ledger_user_action_related
    ON points_ledger(user_id, action, related_id)
    WHERE related_id IS NOT NULL;
`

var migration003Balances = `
CREATE TABLE IF NOT EXISTS user_points (
    user_id VARCHAR(128) PRIMARY KEY,
    points BIGINT NOT NULL DEFAULT 0,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_user_points_points ON user_points(points DESC);
`

var migration004Badges = `
CREATE TABLE IF NOT EXISTS badges (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(128) UNIQUE NOT NULL,
    icon VARCHAR(16) NOT NULL DEFAULT '',
    points_threshold BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS user_badges (
    id BIGSERIAL PRIMARY KEY,
    user_id VARCHAR(128) NOT NULL,
    badge_id BIGINT NOT NULL REFERENCES badges(id),
    awarded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (user_id, badge_id)
);
CREATE INDEX IF NOT EXISTS idx_user_badges_user ON user_badges(user_id);

INSERT INTO badges (name, icon, points_threshold) VALUES
    ('Новичок', '🌱', 10),
    ('Активист', '⚡', 100),
    ('Ветеран', '🏅', 500),
    ('Легенда', '👑', 2000)
ON CONFLICT (name) DO NOTHING;
`

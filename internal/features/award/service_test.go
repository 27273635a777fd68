package award

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"communityhub.ru/gamification/internal/common"
	"communityhub.ru/gamification/internal/features/badges"
	"communityhub.ru/gamification/internal/features/catalog"
	"communityhub.ru/gamification/internal/features/ledger"
)

// --- In-memory фейки зависимостей движка ---

type fakeRules struct {
	rules   map[string]*catalog.ActionRule
	aliases map[string]string
	err     error
}

func (f *fakeRules) Resolve(_ context.Context, name string) (*catalog.ActionRule, error) {
	if f.err != nil {
		return nil, f.err
	}
	if r, ok := f.rules[name]; ok {
		return r, nil
	}
	if canonical, ok := f.aliases[name]; ok {
		if r, ok := f.rules[canonical]; ok {
			return r, nil
		}
	}
	return nil, common.ErrRuleNotFound
}

// fakeLedger хранит записи в памяти и воспроизводит поведение частичного
// уникального индекса (user_id, action, related_id).
type fakeLedger struct {
	entries   []*ledger.Entry
	appendErr error
	queryErr  error
	clock     func() time.Time
}

func (f *fakeLedger) now() time.Time {
	if f.clock != nil {
		return f.clock()
	}
	return time.Now()
}

func (f *fakeLedger) Append(_ context.Context, e *ledger.Entry) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	if e.RelatedID != nil {
		for _, ex := range f.entries {
			if ex.UserID == e.UserID && ex.Action == e.Action &&
				ex.RelatedID != nil && *ex.RelatedID == *e.RelatedID {
				return common.ErrDuplicateEntry
			}
		}
	}
	e.ID = int64(len(f.entries) + 1)
	e.CreatedAt = f.now()
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeLedger) HasForTarget(_ context.Context, userID, action, relatedID string) (bool, error) {
	if f.queryErr != nil {
		return false, f.queryErr
	}
	for _, e := range f.entries {
		if e.UserID == userID && e.Action == action && e.RelatedID != nil && *e.RelatedID == relatedID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLedger) HasSince(_ context.Context, userID, action string, since time.Time) (bool, error) {
	if f.queryErr != nil {
		return false, f.queryErr
	}
	for _, e := range f.entries {
		if e.UserID == userID && e.Action == action && !e.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLedger) HasAny(_ context.Context, userID, action string) (bool, error) {
	if f.queryErr != nil {
		return false, f.queryErr
	}
	for _, e := range f.entries {
		if e.UserID == userID && e.Action == action {
			return true, nil
		}
	}
	return false, nil
}

type fakeBalances struct {
	points map[string]int64
	addErr error
}

func (f *fakeBalances) AddPoints(_ context.Context, userID string, delta int64) (int64, error) {
	if f.addErr != nil {
		return 0, f.addErr
	}
	if f.points == nil {
		f.points = make(map[string]int64)
	}
	f.points[userID] += delta
	return f.points[userID], nil
}

type fakeBadgeEvaluator struct {
	calls int
	err   error
}

func (f *fakeBadgeEvaluator) Evaluate(_ context.Context, _ string, _ int64) ([]*badges.Badge, error) {
	f.calls++
	return nil, f.err
}

// --- Общий каталог правил для тестов ---

func testRules() *fakeRules {
	return &fakeRules{
		rules: map[string]*catalog.ActionRule{
			"new_post": {
				ID: 1, Name: "new_post", Points: 10,
				Enabled: true, LimitPolicy: catalog.LimitUnlimited,
			},
			"received_like_on_post": {
				ID: 2, Name: "received_like_on_post", Points: 2,
				Enabled: true, LimitPolicy: catalog.LimitOncePerTarget,
			},
			"daily_visit": {
				ID: 3, Name: "daily_visit", Points: 1,
				Enabled: true, LimitPolicy: catalog.LimitOncePerDay,
			},
			"profile_completed": {
				ID: 4, Name: "profile_completed", Points: 25,
				Enabled: true, LimitPolicy: catalog.LimitOncePerUser,
			},
			"old_feature": {
				ID: 5, Name: "old_feature", Points: 100,
				Enabled: false, LimitPolicy: catalog.LimitUnlimited,
			},
		},
		aliases: map[string]string{
			"post_like": "received_like_on_post",
		},
	}
}

func newTestService(rules Rules, lg Ledger, bal Balances, be BadgeEvaluator, now func() time.Time) *Service {
	s := NewService(rules, lg, bal, be)
	if now != nil {
		s.now = now
	}
	return s
}

// --- Тесты ---

func TestAwardUnlimited(t *testing.T) {
	lg := &fakeLedger{}
	bal := &fakeBalances{}
	s := newTestService(testRules(), lg, bal, nil, nil)

	// Без ограничений баллы начисляются каждый раз
	for i := 1; i <= 3; i++ {
		res := s.Award(context.Background(), "u1", "new_post", nil)
		assert.True(t, res.Success)
		assert.Equal(t, int64(10), res.Points)
		assert.Equal(t, int64(10*i), res.Balance)
	}
	assert.Len(t, lg.entries, 3)
}

func TestAwardUnknownAction(t *testing.T) {
	s := newTestService(testRules(), &fakeLedger{}, &fakeBalances{}, nil, nil)

	res := s.Award(context.Background(), "u1", "no_such_action", nil)
	assert.False(t, res.Success)
	assert.Equal(t, ErrCodeRuleNotFound, res.Error)
}

func TestAwardDisabledRule(t *testing.T) {
	lg := &fakeLedger{}
	s := newTestService(testRules(), lg, &fakeBalances{}, nil, nil)

	// Выключенное правило неотличимо для вызывающего от отсутствующего
	res := s.Award(context.Background(), "u1", "old_feature", nil)
	assert.False(t, res.Success)
	assert.Equal(t, ErrCodeRuleNotFound, res.Error)
	assert.Empty(t, lg.entries)
}

func TestAwardEmptyInputs(t *testing.T) {
	s := newTestService(testRules(), &fakeLedger{}, &fakeBalances{}, nil, nil)

	res := s.Award(context.Background(), "", "new_post", nil)
	assert.Equal(t, ErrCodeEmptyUserID, res.Error)

	res = s.Award(context.Background(), "u1", "", nil)
	assert.Equal(t, ErrCodeEmptyAction, res.Error)
}

func TestAwardOncePerTarget(t *testing.T) {
	lg := &fakeLedger{}
	bal := &fakeBalances{}
	s := newTestService(testRules(), lg, bal, nil, nil)

	opts := &Options{RelatedID: "post-42"}
	res := s.Award(context.Background(), "u1", "received_like_on_post", opts)
	require.True(t, res.Success)
	assert.Equal(t, int64(2), res.Points)

	// Повторный лайк той же цели подавляется
	res = s.Award(context.Background(), "u1", "received_like_on_post", opts)
	assert.False(t, res.Success)
	assert.True(t, res.AlreadyAwarded)
	assert.Equal(t, int64(2), bal.points["u1"])

	// Другая цель — новое начисление
	res = s.Award(context.Background(), "u1", "received_like_on_post", &Options{RelatedID: "post-43"})
	assert.True(t, res.Success)
	assert.Equal(t, int64(4), bal.points["u1"])

	// Другой пользователь с той же целью — тоже начисляется
	res = s.Award(context.Background(), "u2", "received_like_on_post", opts)
	assert.True(t, res.Success)
}

func TestAwardOncePerTargetWithoutRelatedID(t *testing.T) {
	lg := &fakeLedger{}
	s := newTestService(testRules(), lg, &fakeBalances{}, nil, nil)

	// Вызывающий забыл related_id: дедуплицировать не по чему,
	// начисляем как unlimited (и шумим в лог)
	res := s.Award(context.Background(), "u1", "received_like_on_post", nil)
	assert.True(t, res.Success)
	res = s.Award(context.Background(), "u1", "received_like_on_post", nil)
	assert.True(t, res.Success)
	assert.Len(t, lg.entries, 2)
}

func TestAwardOncePerDay(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	now := start
	clock := func() time.Time { return now }

	lg := &fakeLedger{clock: clock}
	bal := &fakeBalances{}
	s := newTestService(testRules(), lg, bal, nil, clock)

	res := s.Award(context.Background(), "u1", "daily_visit", nil)
	require.True(t, res.Success)

	// Через час, те же сутки UTC — подавляется
	now = start.Add(1 * time.Hour)
	res = s.Award(context.Background(), "u1", "daily_visit", nil)
	assert.True(t, res.AlreadyAwarded)

	// Через 25 часов — следующие сутки, начисляется
	now = start.Add(25 * time.Hour)
	res = s.Award(context.Background(), "u1", "daily_visit", nil)
	assert.True(t, res.Success)

	assert.Equal(t, int64(2), bal.points["u1"])
}

func TestAwardOncePerDayUTCBoundary(t *testing.T) {
	now := time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	lg := &fakeLedger{clock: clock}
	s := newTestService(testRules(), lg, &fakeBalances{}, nil, clock)

	res := s.Award(context.Background(), "u1", "daily_visit", nil)
	require.True(t, res.Success)

	// Через час — уже следующие сутки UTC (23:30 → 00:30)
	now = now.Add(1 * time.Hour)
	res = s.Award(context.Background(), "u1", "daily_visit", nil)
	assert.True(t, res.Success)

	// Ещё раз в те же новые сутки — подавляется
	now = now.Add(10 * time.Minute)
	res = s.Award(context.Background(), "u1", "daily_visit", nil)
	assert.True(t, res.AlreadyAwarded)
}

func TestAwardOncePerUserTotal(t *testing.T) {
	lg := &fakeLedger{}
	bal := &fakeBalances{}
	s := newTestService(testRules(), lg, bal, nil, nil)

	res := s.Award(context.Background(), "u1", "profile_completed", nil)
	require.True(t, res.Success)
	assert.Equal(t, int64(25), res.Points)

	// Один раз за всю жизнь пользователя
	res = s.Award(context.Background(), "u1", "profile_completed", nil)
	assert.True(t, res.AlreadyAwarded)
	assert.Equal(t, int64(25), bal.points["u1"])

	// Для другого пользователя лимит свой
	res = s.Award(context.Background(), "u2", "profile_completed", nil)
	assert.True(t, res.Success)
}

func TestAwardDuplicateRace(t *testing.T) {
	// Эмулируем гонку: проверка журнала прошла, но вставка упёрлась
	// в уникальный индекс (параллельное начисление успело раньше)
	lg := &fakeLedger{appendErr: common.ErrDuplicateEntry}
	bal := &fakeBalances{}
	s := newTestService(testRules(), lg, bal, nil, nil)

	res := s.Award(context.Background(), "u1", "received_like_on_post", &Options{RelatedID: "post-1"})
	assert.False(t, res.Success)
	assert.True(t, res.AlreadyAwarded)
	assert.Empty(t, res.Error)
	assert.Empty(t, bal.points)
}

func TestAwardBalanceFailureDoesNotLoseAward(t *testing.T) {
	lg := &fakeLedger{}
	bal := &fakeBalances{addErr: errors.New("connection refused")}
	be := &fakeBadgeEvaluator{}
	s := newTestService(testRules(), lg, bal, be, nil)

	// Журнал записан — начисление состоялось, даже если кэш отстал
	res := s.Award(context.Background(), "u1", "new_post", nil)
	assert.True(t, res.Success)
	assert.Equal(t, int64(10), res.Points)
	assert.Equal(t, int64(0), res.Balance)
	assert.Len(t, lg.entries, 1)

	// Значки без актуального баланса не оцениваем
	assert.Equal(t, 0, be.calls)
}

func TestAwardBadgeFailureDoesNotFailAward(t *testing.T) {
	lg := &fakeLedger{}
	be := &fakeBadgeEvaluator{err: errors.New("badges store down")}
	s := newTestService(testRules(), lg, &fakeBalances{}, be, nil)

	res := s.Award(context.Background(), "u1", "new_post", nil)
	assert.True(t, res.Success)
	assert.Equal(t, 1, be.calls)
}

func TestAwardCheckRelatedFlag(t *testing.T) {
	lg := &fakeLedger{}
	s := newTestService(testRules(), lg, &fakeBalances{}, nil, nil)

	// Правило unlimited, но вызывающий просит дедупликацию по цели
	opts := &Options{RelatedID: "post-7", CheckRelated: true}
	res := s.Award(context.Background(), "u1", "new_post", opts)
	require.True(t, res.Success)

	res = s.Award(context.Background(), "u1", "new_post", opts)
	assert.True(t, res.AlreadyAwarded)
}

func TestAwardAliasResolvesToCanonicalName(t *testing.T) {
	lg := &fakeLedger{}
	s := newTestService(testRules(), lg, &fakeBalances{}, nil, nil)

	res := s.Award(context.Background(), "u1", "post_like", &Options{RelatedID: "post-9"})
	require.True(t, res.Success)

	// В журнал пишется каноническое имя, не псевдоним
	require.Len(t, lg.entries, 1)
	assert.Equal(t, "received_like_on_post", lg.entries[0].Action)

	// Дедупликация работает между псевдонимом и каноническим именем
	res = s.Award(context.Background(), "u1", "received_like_on_post", &Options{RelatedID: "post-9"})
	assert.True(t, res.AlreadyAwarded)
}

func TestAwardStoreUnavailable(t *testing.T) {
	rules := testRules()
	rules.err = errors.New("db down")
	s := newTestService(rules, &fakeLedger{}, &fakeBalances{}, nil, nil)

	res := s.Award(context.Background(), "u1", "new_post", nil)
	assert.False(t, res.Success)
	assert.Equal(t, ErrCodeStoreUnavailable, res.Error)

	// Сбой проверки лимита — тоже store_unavailable, а не тихий дубль
	lg := &fakeLedger{queryErr: errors.New("db down")}
	s = newTestService(testRules(), lg, &fakeBalances{}, nil, nil)
	res = s.Award(context.Background(), "u1", "daily_visit", nil)
	assert.Equal(t, ErrCodeStoreUnavailable, res.Error)
}

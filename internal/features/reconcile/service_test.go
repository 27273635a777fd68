package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLedger отдаёт заранее заданные суммы по журналу.
type fakeLedger struct {
	sums    map[string]int64
	users   []string
	sumErr  map[string]error
	listErr error
}

func (f *fakeLedger) SumPoints(_ context.Context, userID string) (int64, error) {
	if err := f.sumErr[userID]; err != nil {
		return 0, err
	}
	return f.sums[userID], nil
}

func (f *fakeLedger) KnownUserIDs(_ context.Context) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.users, nil
}

type fakeBalances struct {
	points map[string]int64
	setErr error
	sets   int
}

func (f *fakeBalances) Get(_ context.Context, userID string) (int64, error) {
	return f.points[userID], nil
}

func (f *fakeBalances) Set(_ context.Context, userID string, points int64) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.points[userID] = points
	f.sets++
	return nil
}

func TestReconcileUserCorrectsDrift(t *testing.T) {
	lg := &fakeLedger{sums: map[string]int64{"u1": 120}}
	bal := &fakeBalances{points: map[string]int64{"u1": 100}} // кэш отстал
	s := NewService(lg, bal)

	r, err := s.ReconcileUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, r.Corrected)
	assert.Equal(t, int64(100), r.OldBalance)
	assert.Equal(t, int64(120), r.NewBalance)
	assert.Equal(t, int64(120), bal.points["u1"])

	// Идемпотентность: повторный запуск ничего не меняет
	r, err = s.ReconcileUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, r.Corrected)
	assert.Equal(t, 1, bal.sets)
}

func TestReconcileUserMissingCacheRow(t *testing.T) {
	// Пользователь есть в журнале, но строки баланса ещё нет
	lg := &fakeLedger{sums: map[string]int64{"u1": 35}}
	bal := &fakeBalances{points: map[string]int64{}}
	s := NewService(lg, bal)

	r, err := s.ReconcileUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, r.Corrected)
	assert.Equal(t, int64(0), r.OldBalance)
	assert.Equal(t, int64(35), bal.points["u1"])
}

func TestReconcileAllContinuesOnFailure(t *testing.T) {
	lg := &fakeLedger{
		users: []string{"u1", "u2", "u3"},
		sums:  map[string]int64{"u1": 10, "u3": 30},
		sumErr: map[string]error{
			"u2": errors.New("db timeout"),
		},
	}
	bal := &fakeBalances{points: map[string]int64{"u1": 10, "u3": 25}}
	s := NewService(lg, bal)

	results, err := s.ReconcileAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)

	// u1 согласован, u2 упал, u3 исправлен — сбой одного не прервал остальных
	assert.False(t, results[0].Corrected)
	assert.NotEmpty(t, results[1].Error)
	assert.True(t, results[2].Corrected)
	assert.Equal(t, int64(30), bal.points["u3"])
}

func TestReconcileAllListFailure(t *testing.T) {
	lg := &fakeLedger{listErr: errors.New("db down")}
	s := NewService(lg, &fakeBalances{points: map[string]int64{}})

	_, err := s.ReconcileAll(context.Background())
	assert.Error(t, err)
}

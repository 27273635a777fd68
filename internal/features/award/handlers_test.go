package award

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(s *Service) *mux.Router {
	r := mux.NewRouter()
	NewHandler(s).Register(r)
	return r
}

func TestHandleAwardSuccess(t *testing.T) {
	s := newTestService(testRules(), &fakeLedger{}, &fakeBalances{}, nil, nil)
	router := newTestRouter(s)

	body := `{"user_id":"u1","action":"new_post"}`
	req := httptest.NewRequest(http.MethodPost, "/award", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"points":10,"balance":10}`, rec.Body.String())
}

func TestHandleAwardUnknownActionStill200(t *testing.T) {
	s := newTestService(testRules(), &fakeLedger{}, &fakeBalances{}, nil, nil)
	router := newTestRouter(s)

	// Ошибки начисления возвращаются структурой, не HTTP-статусом:
	// вызывающая платформа не должна падать из-за баллов
	body := `{"user_id":"u1","action":"no_such_action"}`
	req := httptest.NewRequest(http.MethodPost, "/award", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"rule_not_found_or_disabled"}`, rec.Body.String())
}

func TestHandleAwardBadBody(t *testing.T) {
	s := newTestService(testRules(), &fakeLedger{}, &fakeBalances{}, nil, nil)
	router := newTestRouter(s)

	req := httptest.NewRequest(http.MethodPost, "/award", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleAwardDuplicateTarget(t *testing.T) {
	s := newTestService(testRules(), &fakeLedger{}, &fakeBalances{}, nil, nil)
	router := newTestRouter(s)

	body := `{"user_id":"u1","action":"received_like_on_post","related_id":"post-1"}`
	for i, want := range []string{
		`{"success":true,"points":2,"balance":2}`,
		`{"success":false,"already_awarded":true}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/award", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, "запрос %d", i+1)
		assert.JSONEq(t, want, rec.Body.String(), "запрос %d", i+1)
	}
}

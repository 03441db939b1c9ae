package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dagnyr/canvas-critic/internal/catalog"
	"github.com/dagnyr/canvas-critic/internal/config"
	"github.com/dagnyr/canvas-critic/internal/domain"
	"github.com/dagnyr/canvas-critic/internal/review"
	"github.com/dagnyr/canvas-critic/internal/reviewapi"
)

// memStore keeps reviews newest first, like the Postgres repository.
type memStore struct {
	mu      sync.Mutex
	reviews []domain.Review
	err     error
}

func (m *memStore) Insert(_ context.Context, r domain.Review) (domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.Review{}, m.err
	}
	m.reviews = append([]domain.Review{r}, m.reviews...)
	return r, nil
}

func (m *memStore) ListByClass(_ context.Context, classID string) ([]domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []domain.Review{}
	for _, r := range m.reviews {
		if r.ClassID == classID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) fail(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

type staticHealth struct{ err error }

func (h staticHealth) HealthCheck(context.Context) error { return h.err }

func testCatalog(tb testing.TB) *catalog.Catalog {
	tb.Helper()
	cat, err := catalog.New([]domain.Class{
		{ID: "cs101", Code: "CS 101", Title: "Intro to Programming", Category: "Computer Science"},
		{ID: "cs201", Code: "CS 201", Title: "Data Structures", Category: "Computer Science"},
		{ID: "hist110", Code: "HIST 110", Title: "World History", Category: "History"},
	}, nil)
	require.NoError(tb, err)
	return cat
}

func buildTestServer(tb testing.TB, cfg config.Config) (*Server, *memStore) {
	tb.Helper()
	if cfg.CORSAllowedOrigins == nil {
		cfg.CORSAllowedOrigins = []string{"*"}
	}
	store := &memStore{}
	cat := testCatalog(tb)
	clock := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	seq := 0
	svc := review.NewService(store, cat, review.Options{
		MaxCommentLength: cfg.MaxCommentLength,
		Now: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			clock = clock.Add(time.Second)
			return clock
		},
		NewID: func() string {
			mu.Lock()
			defer mu.Unlock()
			seq++
			return fmt.Sprintf("00000000-0000-0000-0000-%012d", seq)
		},
	})
	return New(cfg, staticHealth{}, svc, cat, nil), store
}

func do(tb testing.TB, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	tb.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeReviews(tb testing.TB, rec *httptest.ResponseRecorder) reviewapi.ReviewsResponse {
	tb.Helper()
	var resp reviewapi.ReviewsResponse
	require.NoError(tb, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func decodeError(tb testing.TB, rec *httptest.ResponseRecorder) reviewapi.ErrorResponse {
	tb.Helper()
	var resp reviewapi.ErrorResponse
	require.NoError(tb, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestReviewsFlow_SummaryAcrossSubmissions(t *testing.T) {
	srv, _ := buildTestServer(t, config.Config{})
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/reviews?class_id=cs101", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"summary":null,"reviews":[]}`, rec.Body.String())
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	rec = do(t, h, http.MethodPost, "/reviews", `{"class_id":"cs101","overall":5,"difficulty":3,"engaging":4,"instruction":5,"final_intensity":2,"hours_per_week":10,"recommend":true,"comment":"great"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created reviewapi.Review
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "cs101", created.ClassID)
	assert.NotEmpty(t, created.ID)
	require.NotNil(t, created.Comment)
	assert.Equal(t, "great", *created.Comment)

	resp := decodeReviews(t, do(t, h, http.MethodGet, "/reviews?class_id=cs101", ""))
	require.NotNil(t, resp.Summary)
	assert.EqualValues(t, 1, resp.Summary.N)
	assert.InDelta(t, 5.0, resp.Summary.OverallAvg, 1e-9)
	require.NotNil(t, resp.Summary.HoursPerWeekAvg)
	assert.InDelta(t, 10.0, *resp.Summary.HoursPerWeekAvg, 1e-9)
	require.NotNil(t, resp.Summary.RecommendPct)
	assert.InDelta(t, 100.0, *resp.Summary.RecommendPct, 1e-9)

	rec = do(t, h, http.MethodPost, "/reviews", `{"class_id":"cs101","overall":3,"difficulty":3,"engaging":3,"instruction":3,"final_intensity":3,"hours_per_week":null,"recommend":false}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp = decodeReviews(t, do(t, h, http.MethodGet, "/reviews?class_id=cs101", ""))
	require.NotNil(t, resp.Summary)
	assert.EqualValues(t, 2, resp.Summary.N)
	assert.InDelta(t, 4.0, resp.Summary.OverallAvg, 1e-9)
	assert.InDelta(t, 50.0, *resp.Summary.RecommendPct, 1e-9)
	assert.InDelta(t, 10.0, *resp.Summary.HoursPerWeekAvg, 1e-9)
	require.Len(t, resp.Reviews, 2)
	assert.Equal(t, 3, resp.Reviews[0].Overall, "newest review first")
	assert.Nil(t, resp.Reviews[0].Comment)
}

func TestHandleGetReviews_RecommendSerializedAsInteger(t *testing.T) {
	srv, _ := buildTestServer(t, config.Config{})
	h := srv.Handler()

	rec := do(t, h, http.MethodPost, "/reviews", `{"class_id":"cs201","overall":4,"difficulty":2,"engaging":4,"instruction":4,"final_intensity":3,"recommend":"1"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/reviews?class_id=cs201", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var raw struct {
		Reviews []map[string]json.RawMessage `json:"reviews"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	require.Len(t, raw.Reviews, 1)
	assert.Equal(t, "1", string(raw.Reviews[0]["recommend"]))
	assert.Equal(t, "null", string(raw.Reviews[0]["hours_per_week"]))
}

func TestHandleGetReviews_MissingClassID(t *testing.T) {
	srv, _ := buildTestServer(t, config.Config{})

	for _, target := range []string{"/reviews", "/reviews?class_id=", "/reviews?class_id=%20%20"} {
		rec := do(t, srv.Handler(), http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, "BAD_REQUEST", decodeError(t, rec).Code)
	}
}

func TestHandleGetReviews_UnknownClassIsEmpty(t *testing.T) {
	srv, _ := buildTestServer(t, config.Config{})

	rec := do(t, srv.Handler(), http.MethodGet, "/reviews?class_id=nope", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"summary":null,"reviews":[]}`, rec.Body.String())
}

func TestHandleGetReviews_StoreFailure(t *testing.T) {
	srv, store := buildTestServer(t, config.Config{})
	store.fail(errors.New("connection refused"))

	rec := do(t, srv.Handler(), http.MethodGet, "/reviews?class_id=cs101", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, rec).Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestHandleSubmitReview_Rejections(t *testing.T) {
	valid := `"overall":4,"difficulty":3,"engaging":4,"instruction":4,"final_intensity":2`
	cases := []struct {
		name   string
		body   string
		status int
		field  string
	}{
		{"score above range", `{"class_id":"cs101","overall":6,"difficulty":3,"engaging":4,"instruction":4,"final_intensity":2}`, http.StatusUnprocessableEntity, "overall"},
		{"score below range", `{"class_id":"cs101","overall":4,"difficulty":0,"engaging":4,"instruction":4,"final_intensity":2}`, http.StatusUnprocessableEntity, "difficulty"},
		{"missing score", `{"class_id":"cs101","overall":4,"difficulty":3,"engaging":4,"instruction":4}`, http.StatusUnprocessableEntity, "final_intensity"},
		{"fractional score", `{"class_id":"cs101","overall":4.5,"difficulty":3,"engaging":4,"instruction":4,"final_intensity":2}`, http.StatusUnprocessableEntity, "overall"},
		{"negative hours", `{"class_id":"cs101",` + valid + `,"hours_per_week":-1}`, http.StatusUnprocessableEntity, "hours_per_week"},
		{"missing class", `{` + valid + `}`, http.StatusUnprocessableEntity, "class_id"},
		{"unknown class", `{"class_id":"zz999",` + valid + `}`, http.StatusUnprocessableEntity, "class_id"},
		{"bad recommend", `{"class_id":"cs101",` + valid + `,"recommend":"maybe"}`, http.StatusUnprocessableEntity, "recommend"},
		{"malformed json", `{"class_id":`, http.StatusUnprocessableEntity, ""},
		{"unknown field", `{"class_id":"cs101",` + valid + `,"rater":"x"}`, http.StatusBadRequest, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, store := buildTestServer(t, config.Config{})
			rec := do(t, srv.Handler(), http.MethodPost, "/reviews", tc.body)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())

			errResp := decodeError(t, rec)
			assert.Equal(t, "VALIDATION_ERROR", errResp.Code)
			if tc.field != "" {
				assert.Contains(t, errResp.Fields, tc.field)
			}
			assert.Empty(t, store.reviews, "rejected submissions must not be stored")
		})
	}
}

func TestHandleSubmitReview_EmptyBody(t *testing.T) {
	srv, _ := buildTestServer(t, config.Config{})
	req := httptest.NewRequest(http.MethodPost, "/reviews", http.NoBody)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandleSubmitReview_PayloadTooLarge(t *testing.T) {
	srv, _ := buildTestServer(t, config.Config{})
	body := `{"class_id":"cs101","comment":"` + strings.Repeat("a", maxRequestBody) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/reviews", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestHandleSubmitReview_CommentLimit(t *testing.T) {
	srv, _ := buildTestServer(t, config.Config{MaxCommentLength: 5})
	base := `{"class_id":"cs101","overall":4,"difficulty":3,"engaging":4,"instruction":4,"final_intensity":2,"comment":`

	rec := do(t, srv.Handler(), http.MethodPost, "/reviews", base+`"ééééé"}`)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, srv.Handler(), http.MethodPost, "/reviews", base+`"toolong"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decodeError(t, rec).Fields, "comment")
}

func TestHandleSubmitReview_StoreFailure(t *testing.T) {
	srv, store := buildTestServer(t, config.Config{})
	store.fail(errors.New("disk full"))

	rec := do(t, srv.Handler(), http.MethodPost, "/reviews", `{"class_id":"cs101","overall":4,"difficulty":3,"engaging":4,"instruction":4,"final_intensity":2}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, rec).Code)
}

func TestHandleSubmitReview_ConcurrentSubmissionsAllCounted(t *testing.T) {
	srv, _ := buildTestServer(t, config.Config{})
	h := srv.Handler()

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/reviews", strings.NewReader(`{"class_id":"hist110","overall":2,"difficulty":4,"engaging":2,"instruction":3,"final_intensity":5,"recommend":0}`))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusCreated, rec.Code)
		}()
	}
	wg.Wait()

	resp := decodeReviews(t, do(t, h, http.MethodGet, "/reviews?class_id=hist110", ""))
	require.NotNil(t, resp.Summary)
	assert.EqualValues(t, n, resp.Summary.N)
	assert.Len(t, resp.Reviews, n)
	assert.InDelta(t, 0.0, *resp.Summary.RecommendPct, 1e-9)
}

package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/rift-rewind/internal/blob"
	"github.com/pable/rift-rewind/internal/jobs"
	"github.com/pable/rift-rewind/internal/model"
	"github.com/pable/rift-rewind/internal/pipeline"
	"github.com/pable/rift-rewind/internal/store"
)

type cachingRunner struct {
	results *store.ResultCache
	release chan struct{}
}

func (r *cachingRunner) Run(ctx context.Context, id model.Identity) (*model.ResultRecord, error) {
	if r.release != nil {
		<-r.release
	}
	rec := model.ResultRecord{IdentityHash: id.Hash(), MatchCount: 7, Narrative: model.Narrative{"kda": "Sharp."}}
	if _, err := r.results.Put(ctx, id.Hash(), rec, 0); err != nil {
		return nil, err
	}
	return &rec, nil
}

type fakeInvalidator struct {
	results *store.ResultCache
	calls   int
}

func (f *fakeInvalidator) Invalidate(ctx context.Context, id model.Identity) (bool, error) {
	f.calls++
	return f.results.Invalidate(ctx, id.Hash())
}

type env struct {
	router  *chi.Mux
	queue   *jobs.Queue
	results *store.ResultCache
	status  *pipeline.StatusBoard
	runner  *cachingRunner
	inv     *fakeInvalidator
}

func newEnv(t *testing.T, release chan struct{}) *env {
	t.Helper()
	b := blob.NewMemory()
	results := store.NewResultCache(b, time.Hour, nil)
	status := pipeline.NewStatusBoard(store.NewStatusStore(b, time.Hour, nil), nil)
	runner := &cachingRunner{results: results, release: release}
	q := jobs.New(runner, 1, 2)
	q.Start(context.Background())
	t.Cleanup(func() { _ = q.Close() })
	inv := &fakeInvalidator{results: results}
	return &env{
		router:  NewRouter(Deps{Queue: q, Status: status, Results: results, Invalidator: inv}),
		queue:   q,
		results: results,
		status:  status,
		runner:  runner,
		inv:     inv,
	}
}

func (e *env) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

var bob = identityRequest{GameName: "Bob", TagLine: "EUW", Region: "euw1"}

func TestRouteSnapshot(t *testing.T) {
	e := newEnv(t, nil)
	var routes []string
	err := chi.Walk(e.router, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, method+" "+route)
		return nil
	})
	require.NoError(t, err)
	sort.Strings(routes)

	var metricsRoutes, apiRoutes []string
	for _, r := range routes {
		if strings.HasSuffix(r, " /metrics") {
			metricsRoutes = append(metricsRoutes, r)
		} else {
			apiRoutes = append(apiRoutes, r)
		}
	}
	assert.NotEmpty(t, metricsRoutes)
	assert.Equal(t, []string{
		"GET /api/health",
		"GET /api/regions",
		"GET /api/rewind/{hash}",
		"GET /api/rewind/{hash}/narrative/{slot}",
		"GET /api/rewind/{hash}/status",
		"POST /api/cache/check",
		"POST /api/cache/invalidate",
		"POST /api/rewind",
	}, apiRoutes)
}

func TestHealthAndRegions(t *testing.T) {
	e := newEnv(t, nil)
	rec := e.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = e.do(t, http.MethodGet, "/api/regions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var regions []model.Region
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &regions))
	assert.Len(t, regions, len(model.Regions))
}

func TestSubmitQueuesThenServesResult(t *testing.T) {
	release := make(chan struct{})
	e := newEnv(t, release)
	hash := model.NewIdentity(bob.GameName, bob.TagLine, bob.Region).Hash()

	rec := e.do(t, http.MethodPost, "/api/rewind", bob)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var sub submitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sub))
	assert.Equal(t, hash, sub.IdentityHash)
	assert.False(t, sub.Cached)

	rec = e.do(t, http.MethodGet, "/api/rewind/"+hash+"/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"queued"`)

	rec = e.do(t, http.MethodGet, "/api/rewind/"+hash, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	tk, ok := e.queue.Pending(hash)
	require.True(t, ok)
	close(release)
	_, err := tk.Wait(context.Background())
	require.NoError(t, err)

	rec = e.do(t, http.MethodGet, "/api/rewind/"+hash, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got model.ResultRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 7, got.MatchCount)

	rec = e.do(t, http.MethodGet, "/api/rewind/"+hash+"/narrative/kda", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"slot":"kda","text":"Sharp."}`, rec.Body.String())

	rec = e.do(t, http.MethodGet, "/api/rewind/"+hash+"/narrative/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/rewind", bob)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sub))
	assert.True(t, sub.Cached)
}

func TestSubmitRejectsBadInput(t *testing.T) {
	e := newEnv(t, nil)
	rec := e.do(t, http.MethodPost, "/api/rewind", identityRequest{GameName: "Bo", TagLine: "EUW", Region: "mars"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown region")

	req := httptest.NewRequest(http.MethodPost, "/api/rewind", bytes.NewBufferString("{"))
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusReadsBoard(t *testing.T) {
	e := newEnv(t, nil)
	e.status.Set(context.Background(), model.StatusDoc{IdentityHash: "abc", State: model.StateAnalyzing, Progress: model.Progress{Analyzed: 100, Planned: 190, Batch: 1}})

	rec := e.do(t, http.MethodGet, "/api/rewind/abc/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var doc model.StatusDoc
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, model.StateAnalyzing, doc.State)
	assert.Equal(t, 190, doc.Progress.Planned)

	rec = e.do(t, http.MethodGet, "/api/rewind/unknown/status", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCacheCheckAndInvalidate(t *testing.T) {
	e := newEnv(t, nil)
	hash := model.NewIdentity(bob.GameName, bob.TagLine, bob.Region).Hash()

	rec := e.do(t, http.MethodPost, "/api/cache/check", bob)
	require.Equal(t, http.StatusOK, rec.Code)
	var check cacheCheckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &check))
	assert.False(t, check.Cached)

	_, err := e.results.Put(context.Background(), hash, model.ResultRecord{IdentityHash: hash, MatchCount: 12}, 0)
	require.NoError(t, err)

	rec = e.do(t, http.MethodPost, "/api/cache/check", bob)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &check))
	assert.True(t, check.Cached)
	assert.Equal(t, 12, check.MatchCount)
	require.NotNil(t, check.ExpiresAt)

	rec = e.do(t, http.MethodPost, "/api/cache/invalidate", bob)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"identityHash":"`+hash+`","invalidated":true}`, rec.Body.String())
	assert.Equal(t, 1, e.inv.calls)

	rec = e.do(t, http.MethodPost, "/api/cache/check", bob)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &check))
	assert.False(t, check.Cached)
}

package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/rift-rewind/internal/blob"
	"github.com/pable/rift-rewind/internal/model"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)}
}

func TestCodecRejectsWrongKindAndSchema(t *testing.T) {
	now := time.Now()
	data, err := Encode(KindResult, map[string]int{"a": 1}, now, time.Time{})
	require.NoError(t, err)

	d, err := Decode(data, KindResult)
	require.NoError(t, err)
	assert.True(t, d.ExpiresAt.IsZero())
	assert.False(t, d.Expired(now.Add(1000*time.Hour)))
	var m map[string]int
	require.NoError(t, d.Into(&m))
	assert.Equal(t, 1, m["a"])

	_, err = Decode(data, KindCheckpoint)
	assert.Error(t, err)

	raw, _ := json.Marshal(envelope{Schema: 99, Kind: KindResult, Payload: json.RawMessage(`{}`)})
	_, err = Decode(encoder.EncodeAll(raw, nil), KindResult)
	assert.ErrorIs(t, err, ErrSchemaMismatch)

	_, err = Decode([]byte("not zstd"), KindResult)
	assert.Error(t, err)
}

func TestResultCacheExpiryDeletesLazily(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	mem := blob.NewMemory()
	rc := NewResultCache(mem, 0, clk.Now)
	assert.Equal(t, DefaultResultTTL, rc.TTL())

	rec := model.ResultRecord{IdentityHash: "h1", JobID: "job", MatchCount: 10}
	exp, err := rc.Put(ctx, "h1", rec, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, clk.Now().Add(time.Hour), exp)

	got, ok, err := rc.Get(ctx, "h1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "job", got.JobID)

	clk.Advance(time.Hour)
	_, ok, err = rc.Get(ctx, "h1")
	require.NoError(t, err)
	assert.False(t, ok, "expired record must read as absent")

	exists, _ := mem.Exists(ctx, ResultPath("h1"))
	assert.False(t, exists, "expired record must be physically removed")
}

func TestInvalidateReportsExistence(t *testing.T) {
	ctx := context.Background()
	rc := NewResultCache(blob.NewMemory(), time.Hour, nil)
	_, err := rc.Put(ctx, "h", model.ResultRecord{}, 0)
	require.NoError(t, err)

	ok, err := rc.Invalidate(ctx, "h")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = rc.Invalidate(ctx, "h")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckpointSaveStampsAndValidates(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	cs := NewCheckpointStore(blob.NewMemory(), 0, clk.Now)

	st := &model.CheckpointState{
		IdentityHash:   "abc",
		Status:         model.StatusPartial,
		AnalyzedRefs:   []string{"NA1_1"},
		UnanalyzedRefs: []string{"NA1_2"},
	}
	require.NoError(t, cs.Save(ctx, st))
	assert.Equal(t, clk.Now(), st.CreatedAt)
	assert.Equal(t, clk.Now().Add(DefaultCheckpointTTL), st.ExpiresAt)

	clk.Advance(time.Hour)
	require.NoError(t, cs.Save(ctx, st))
	got, ok, err := cs.Get(ctx, "abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, clk.Now().Add(-time.Hour), got.CreatedAt.UTC())
	assert.Equal(t, clk.Now(), got.LastUpdatedAt.UTC())

	bad := *st
	bad.UnanalyzedRefs = []string{"NA1_1"}
	assert.Error(t, cs.Save(ctx, &bad))

	clk.Advance(DefaultCheckpointTTL)
	_, ok, err = cs.Get(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBatchStoreLoadAll(t *testing.T) {
	ctx := context.Background()
	bs := NewBatchStore(blob.NewMemory(), time.Hour, nil)

	var m1, m2 model.MatchRecord
	m1.Metadata.MatchID = "NA1_1"
	m2.Metadata.MatchID = "NA1_2"
	require.NoError(t, bs.Put(ctx, "h", 1, []model.MatchRecord{m1}))
	require.NoError(t, bs.Put(ctx, "h", 2, []model.MatchRecord{m2}))

	all, err := bs.LoadAll(ctx, "h", 2)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "NA1_1", all[0].Metadata.MatchID)
	assert.Equal(t, "NA1_2", all[1].Metadata.MatchID)

	_, err = bs.LoadAll(ctx, "h", 3)
	assert.Error(t, err, "a missing batch must be reported")

	require.NoError(t, bs.DeleteAll(ctx, "h", 3))
	_, ok, err := bs.Get(ctx, "h", 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBatchOutlivesItsStampWhileCheckpointIsRefreshed(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	b := blob.NewMemory()
	cs := NewCheckpointStore(b, time.Hour, clk.Now)
	bs := NewBatchStore(b, time.Hour, clk.Now)

	var m model.MatchRecord
	m.Metadata.MatchID = "NA1_1"
	require.NoError(t, bs.Put(ctx, "h", 1, []model.MatchRecord{m}))
	st := &model.CheckpointState{IdentityHash: "h", Status: model.StatusPartial, LastBatchNumber: 1}
	require.NoError(t, cs.Save(ctx, st))

	for range 3 {
		clk.Advance(50 * time.Minute)
		require.NoError(t, cs.Save(ctx, st))
	}
	_, ok, err := cs.Get(ctx, "h")
	require.NoError(t, err)
	require.True(t, ok)

	all, err := bs.LoadAll(ctx, "h", 1)
	require.NoError(t, err, "batch must stay readable while its checkpoint lives")
	require.Len(t, all, 1)
	assert.Equal(t, "NA1_1", all[0].Metadata.MatchID)
}

func TestPaths(t *testing.T) {
	assert.Equal(t, "sessions/x/checkpoint", CheckpointPath("x"))
	assert.Equal(t, "cache/users/x/result", ResultPath("x"))
	assert.Equal(t, "sessions/x/batches/3", BatchPath("x", 3))
	assert.Equal(t, "status/x", StatusPath("x"))
}

func TestStatusStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	ss := NewStatusStore(blob.NewMemory(), 0, clk.Now)

	_, err := ss.Put(ctx, "h", model.StatusDoc{IdentityHash: "h", State: model.StateAnalyzing}, 0)
	require.NoError(t, err)
	doc, ok, err := ss.Get(ctx, "h")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.StateAnalyzing, doc.State)

	clk.Advance(DefaultCheckpointTTL)
	_, ok, err = ss.Get(ctx, "h")
	require.NoError(t, err)
	assert.False(t, ok)
}

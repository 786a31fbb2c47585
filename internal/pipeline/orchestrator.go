// Package pipeline drives one rewind job from cache lookup through batched
// fetching, checkpointing and narrative enrichment.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/pable/rift-rewind/internal/aggregator"
	"github.com/pable/rift-rewind/internal/metrics"
	"github.com/pable/rift-rewind/internal/model"
	"github.com/pable/rift-rewind/internal/narrative"
	"github.com/pable/rift-rewind/internal/retry"
	"github.com/pable/rift-rewind/internal/riot"
	"github.com/pable/rift-rewind/internal/sampler"
	"github.com/pable/rift-rewind/internal/store"
)

// Riot is the slice of the gameplay API a job needs. *riot.Client satisfies it.
type Riot interface {
	LookupAccount(ctx context.Context, id model.Identity) (*riot.Account, error)
	ListMatchRefs(ctx context.Context, puuid, platform string, since time.Time) ([]string, error)
	FetchMatchDetail(ctx context.Context, platform, ref string) (*model.MatchRecord, error)
	LeagueEntries(ctx context.Context, puuid, platform string) ([]model.LeagueEntry, error)
}

const (
	DefaultBatchSize       = 100
	DefaultSampleThreshold = 300
	DefaultWorkers         = 10
)

// Config tunes a job. Zero fields take the defaults above.
type Config struct {
	BatchSize       int
	SampleThreshold int
	Workers         int
	// Since bounds the listed history; zero lists everything the API returns.
	Since time.Time
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.SampleThreshold <= 0 {
		c.SampleThreshold = DefaultSampleThreshold
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	return c
}

// Deps are the collaborators of an Orchestrator, built once per process.
type Deps struct {
	Riot        Riot
	Enricher    *narrative.Enricher
	Checkpoints *store.CheckpointStore
	Results     *store.ResultCache
	Batches     *store.BatchStore
	Status      *StatusBoard
	Retry       retry.Policy
	Now         func() time.Time
}

// Orchestrator runs jobs. It is the only writer of checkpoints.
type Orchestrator struct {
	deps Deps
	cfg  Config

	mu      sync.Mutex
	running map[string]bool
}

func New(deps Deps, cfg Config) *Orchestrator {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Orchestrator{deps: deps, cfg: cfg.withDefaults(), running: make(map[string]bool)}
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() Config { return o.cfg }

func (o *Orchestrator) acquire(hash string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running[hash] {
		return false
	}
	o.running[hash] = true
	return true
}

func (o *Orchestrator) release(hash string) {
	o.mu.Lock()
	delete(o.running, hash)
	o.mu.Unlock()
}

// Running reports whether a job for hash is active in this process.
func (o *Orchestrator) Running(hash string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running[hash]
}

var (
	idEntropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	idEntropyMu sync.Mutex
)

func newJobID(now time.Time) string {
	idEntropyMu.Lock()
	defer idEntropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(now), idEntropy).String()
}

// Run returns the rewind for id, from cache when possible, otherwise by
// resuming or starting a job. Failures are *JobError, or ErrJobInFlight
// when the identity already has a job running here.
func (o *Orchestrator) Run(ctx context.Context, id model.Identity) (*model.ResultRecord, error) {
	id = model.NewIdentity(id.Name, id.Tag, id.Region)
	if err := id.Validate(); err != nil {
		je := invalidIdentityErr(err)
		metrics.Jobs.WithLabelValues(string(je.Kind)).Inc()
		return nil, je
	}
	hash := id.Hash()
	if !o.acquire(hash) {
		return nil, ErrJobInFlight
	}
	defer o.release(hash)

	logger := log.With().Str("identity", hash).Logger()
	ctx = logger.WithContext(ctx)
	start := time.Now()

	rec, outcome, err := o.run(ctx, id, hash)
	if err != nil {
		var je *JobError
		if !errors.As(err, &je) {
			je = upstreamErr(err)
		}
		logger.Error().Err(je.Err).Str("kind", string(je.Kind)).Msg("rewind failed")
		o.deps.Status.fail(context.WithoutCancel(ctx), hash, je)
		metrics.Jobs.WithLabelValues(string(je.Kind)).Inc()
		return nil, je
	}
	metrics.Jobs.WithLabelValues(outcome).Inc()
	if outcome != "cached" {
		metrics.JobDuration.Observe(time.Since(start).Seconds())
	}
	return rec, nil
}

func (o *Orchestrator) run(ctx context.Context, id model.Identity, hash string) (*model.ResultRecord, string, error) {
	logger := zerolog.Ctx(ctx)

	cached, ok, err := o.deps.Results.Get(ctx, hash)
	if err != nil {
		logger.Warn().Err(err).Msg("result cache read failed, treating as miss")
	}
	if ok {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		logger.Info().Str("job", cached.JobID).Msg("serving cached rewind")
		o.deps.Status.progress(ctx, hash, model.StateComplete,
			model.Progress{Analyzed: cached.MatchCount, Planned: cached.MatchCount}, &cached.Player)
		return &cached, "cached", nil
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()

	cp, ok, err := o.deps.Checkpoints.Get(ctx, hash)
	if err != nil {
		logger.Warn().Err(err).Msg("checkpoint unreadable, starting over")
		ok = false
	}

	var st *model.CheckpointState
	outcome := "complete"
	switch {
	case ok && cp.Status == model.StatusComplete:
		logger.Warn().Str("job", cp.JobID).Msg("complete checkpoint without a cached result, re-enriching")
		st = &cp
		outcome = "reconciled"
	case ok:
		logger.Info().Str("job", cp.JobID).Int("batch", cp.LastBatchNumber).
			Int("remaining", len(cp.UnanalyzedRefs)).Msg("resuming job")
		st = &cp
		outcome = "resumed"
	default:
		if st, err = o.newJob(ctx, id, hash); err != nil {
			return nil, "", err
		}
	}
	if st.PartialNarrative == nil {
		st.PartialNarrative = model.NewNarrative()
	}

	if len(st.UnanalyzedRefs) > 0 {
		acc, err := o.rebuild(ctx, st)
		if err != nil {
			logger.Warn().Err(err).Msg("stored batches unavailable, starting over")
			o.discard(ctx, hash, st.LastBatchNumber)
			if st, err = o.newJob(ctx, id, hash); err != nil {
				return nil, "", err
			}
			acc = aggregator.NewAccumulator(st.Player.PUUID, st.Player)
			outcome = "complete"
		}
		if err := o.fetchAll(ctx, st, acc); err != nil {
			return nil, "", err
		}
	}

	rec, err := o.finish(ctx, st)
	if err != nil {
		return nil, "", err
	}
	return rec, outcome, nil
}

// newJob resolves the identity and plans the refs to analyze. Nothing is
// persisted until the first batch lands.
func (o *Orchestrator) newJob(ctx context.Context, id model.Identity, hash string) (*model.CheckpointState, error) {
	logger := zerolog.Ctx(ctx)
	o.deps.Status.progress(ctx, hash, model.StateSearching, model.Progress{}, nil)

	var acct *riot.Account
	err := o.deps.Retry.Do(ctx, "lookup account", func(ctx context.Context) error {
		a, err := o.deps.Riot.LookupAccount(ctx, id)
		if err != nil {
			return finalRiotErr(err)
		}
		acct = a
		return nil
	})
	if err != nil {
		if errors.Is(err, riot.ErrNotFound) {
			return nil, inputErr(err)
		}
		return nil, upstreamErr(err)
	}

	player := model.PlayerSummary{GameName: acct.GameName, TagLine: acct.TagLine, Region: id.Region, PUUID: acct.PUUID}
	var entries []model.LeagueEntry
	err = o.deps.Retry.Do(ctx, "league entries", func(ctx context.Context) error {
		var err error
		entries, err = o.deps.Riot.LeagueEntries(ctx, acct.PUUID, id.Region)
		return finalRiotErr(err)
	})
	if err != nil {
		logger.Warn().Err(err).Msg("ranked standings unavailable, continuing unranked")
	} else {
		player.Solo, player.Flex = riot.SplitQueues(entries)
	}
	o.deps.Status.progress(ctx, hash, model.StateFound, model.Progress{}, &player)

	var refs []string
	err = o.deps.Retry.Do(ctx, "list matches", func(ctx context.Context) error {
		var err error
		refs, err = o.deps.Riot.ListMatchRefs(ctx, acct.PUUID, id.Region, o.cfg.Since)
		return finalRiotErr(err)
	})
	if err != nil {
		return nil, upstreamErr(err)
	}
	if len(refs) == 0 {
		return nil, noDataErr(fmt.Errorf("no ranked matches listed for %s", id))
	}

	now := o.deps.Now()
	planned := refs
	var plan *model.SamplingPlan
	if len(refs) > o.cfg.SampleThreshold {
		p := sampler.PlanAt(refs, now)
		plan = &p
		planned = p.SelectedRefs
		logger.Info().Int("total", p.TotalCount).Int("selected", p.SelectedCount).
			Str("tier", p.TierLabel).Msg("history sampled")
	}

	st := &model.CheckpointState{
		IdentityHash:     hash,
		Identity:         id,
		JobID:            newJobID(now),
		Player:           player,
		Status:           model.StatusPartial,
		TotalMatches:     len(refs),
		Sampling:         plan,
		AnalyzedRefs:     []string{},
		UnanalyzedRefs:   append([]string(nil), planned...),
		PartialNarrative: model.NewNarrative(),
	}
	logger.Info().Str("job", st.JobID).Int("planned", len(planned)).Msg("job started")
	return st, nil
}

// rebuild replays the stored batches of a resumed job into a fresh accumulator.
func (o *Orchestrator) rebuild(ctx context.Context, st *model.CheckpointState) (*aggregator.Accumulator, error) {
	acc := aggregator.NewAccumulator(st.Player.PUUID, st.Player)
	if st.LastBatchNumber == 0 {
		return acc, nil
	}
	prior, err := o.deps.Batches.LoadAll(ctx, st.IdentityHash, st.LastBatchNumber)
	if err != nil {
		return nil, err
	}
	acc.Add(prior)
	return acc, nil
}

// fetchAll runs batches until no refs remain. Each batch's raw records are
// stored before the checkpoint that counts them.
func (o *Orchestrator) fetchAll(ctx context.Context, st *model.CheckpointState, acc *aggregator.Accumulator) error {
	logger := zerolog.Ctx(ctx)
	planned := len(st.AnalyzedRefs) + len(st.UnanalyzedRefs)

	for len(st.UnanalyzedRefs) > 0 {
		if err := ctx.Err(); err != nil {
			return upstreamErr(fmt.Errorf("interrupted after batch %d: %w", st.LastBatchNumber, err))
		}
		n := min(o.cfg.BatchSize, len(st.UnanalyzedRefs))
		refs := st.UnanalyzedRefs[:n]
		batch := st.LastBatchNumber + 1
		o.deps.Status.progress(ctx, st.IdentityHash, model.StateAnalyzing,
			model.Progress{Analyzed: len(st.AnalyzedRefs), Planned: planned, Batch: batch}, &st.Player)

		matches, err := o.fetchBatch(ctx, st.Identity.Region, refs)
		if err != nil {
			return upstreamErr(fmt.Errorf("fetch batch %d: %w", batch, err))
		}

		err = o.deps.Retry.Do(ctx, "store batch", func(ctx context.Context) error {
			return o.deps.Batches.Put(ctx, st.IdentityHash, batch, matches)
		})
		if err != nil {
			return o.writeFailed(ctx, st, fmt.Errorf("store batch %d: %w", batch, err))
		}

		acc.Add(matches)
		st.AnalyzedRefs = append(st.AnalyzedRefs, refs...)
		st.UnanalyzedRefs = append([]string(nil), st.UnanalyzedRefs[n:]...)
		st.LastBatchNumber = batch
		st.PartialAnalytics = acc.Snapshot()

		if err := o.saveCheckpoint(ctx, st); err != nil {
			return o.writeFailed(ctx, st, fmt.Errorf("save checkpoint %d: %w", batch, err))
		}
		metrics.Batches.Inc()
		logger.Info().Int("batch", batch).Int("fetched", len(matches)).
			Int("analyzed", len(st.AnalyzedRefs)).Int("planned", planned).Msg("batch checkpointed")
	}
	return nil
}

// fetchBatch pulls match details with a bounded worker pool. Results keep
// the order of refs; a ref that still fails after retries is skipped.
func (o *Orchestrator) fetchBatch(ctx context.Context, platform string, refs []string) ([]model.MatchRecord, error) {
	results := make([]*model.MatchRecord, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Workers)
	for i, ref := range refs {
		g.Go(func() error {
			var m *model.MatchRecord
			err := o.deps.Retry.Do(gctx, "fetch match "+ref, func(ctx context.Context) error {
				var err error
				m, err = o.deps.Riot.FetchMatchDetail(ctx, platform, ref)
				return finalRiotErr(err)
			})
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				zerolog.Ctx(ctx).Warn().Err(err).Str("ref", ref).Msg("match skipped")
				metrics.MatchesFetched.WithLabelValues("skipped").Inc()
				return nil
			}
			results[i] = m
			metrics.MatchesFetched.WithLabelValues("ok").Inc()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make([]model.MatchRecord, 0, len(refs))
	for _, m := range results {
		if m != nil {
			out = append(out, *m)
		}
	}
	return out, nil
}

// finish enriches, writes the result and only then flips the checkpoint.
func (o *Orchestrator) finish(ctx context.Context, st *model.CheckpointState) (*model.ResultRecord, error) {
	logger := zerolog.Ctx(ctx)
	analytics := st.PartialAnalytics
	prog := model.Progress{Analyzed: len(st.AnalyzedRefs), Planned: len(st.AnalyzedRefs), Batch: st.LastBatchNumber}
	o.deps.Status.progress(ctx, st.IdentityHash, model.StateGenerating, prog, &st.Player)

	e := *o.deps.Enricher
	e.OnSlot = func(slot, text string) {
		st.PartialNarrative[slot] = text
		// A slot generated just before an interrupt is still worth keeping.
		if err := o.deps.Checkpoints.Save(context.WithoutCancel(ctx), st); err != nil {
			logger.Warn().Err(err).Str("slot", slot).Msg("narrative progress not saved")
		}
	}
	narr := e.Enrich(ctx, &analytics, st.PartialNarrative)
	if err := interrupted(ctx, "during narrative"); err != nil {
		return nil, err
	}
	insights := e.Insights(ctx, &analytics)
	if err := interrupted(ctx, "during insights"); err != nil {
		return nil, err
	}

	now := o.deps.Now()
	rec := model.ResultRecord{
		IdentityHash: st.IdentityHash,
		JobID:        st.JobID,
		Analytics:    analytics,
		Narrative:    narr,
		Insights:     insights,
		Player:       st.Player,
		MatchCount:   analytics.MatchesCounted,
		TotalMatches: st.TotalMatches,
		Sampling:     st.Sampling,
		CachedAt:     now,
		ExpiresAt:    now.Add(o.deps.Results.TTL()),
	}
	err := o.deps.Retry.Do(ctx, "write result", func(ctx context.Context) error {
		_, err := o.deps.Results.Put(ctx, st.IdentityHash, rec, 0)
		return err
	})
	if err != nil {
		return nil, o.writeFailed(ctx, st, err)
	}

	st.Status = model.StatusComplete
	st.PartialNarrative = narr
	if err := o.saveCheckpoint(ctx, st); err != nil {
		// The cached result is authoritative; the next run finds it first.
		logger.Warn().Err(err).Msg("checkpoint not marked complete")
	}
	if err := o.deps.Batches.DeleteAll(context.WithoutCancel(ctx), st.IdentityHash, st.LastBatchNumber); err != nil {
		logger.Warn().Err(err).Msg("stored batches not removed")
	}

	o.deps.Status.progress(ctx, st.IdentityHash, model.StateComplete, prog, &st.Player)
	logger.Info().Str("job", st.JobID).Int("matches", rec.MatchCount).Int("total", rec.TotalMatches).
		Int("slots", narr.Filled()).Msg("rewind complete")
	return &rec, nil
}

// interrupted reports a cancelled or expired ctx as an upstream interruption.
// The checkpoint is left in place so the next run resumes.
func interrupted(ctx context.Context, where string) error {
	if err := ctx.Err(); err != nil {
		return upstreamErr(fmt.Errorf("interrupted %s: %w", where, err))
	}
	return nil
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// writeFailed classifies a failed write. An interrupted write keeps the
// checkpoint and stored batches; any other failure discards them.
func (o *Orchestrator) writeFailed(ctx context.Context, st *model.CheckpointState, err error) error {
	if ctx.Err() != nil || isCancellation(err) {
		return upstreamErr(fmt.Errorf("interrupted after batch %d: %w", st.LastBatchNumber, err))
	}
	o.discard(ctx, st.IdentityHash, st.LastBatchNumber+1)
	return persistenceErr(err)
}

func (o *Orchestrator) saveCheckpoint(ctx context.Context, st *model.CheckpointState) error {
	return o.deps.Retry.Do(ctx, "save checkpoint", func(ctx context.Context) error {
		err := o.deps.Checkpoints.Save(ctx, st)
		if err != nil && st.Validate() != nil {
			return retry.Permanent(err)
		}
		return err
	})
}

// discard removes a job's checkpoint and stored batches so the next run
// starts clean. Failures are only logged.
func (o *Orchestrator) discard(ctx context.Context, hash string, lastBatch int) {
	ctx = context.WithoutCancel(ctx)
	logger := zerolog.Ctx(ctx)
	if _, err := o.deps.Checkpoints.Invalidate(ctx, hash); err != nil {
		logger.Warn().Err(err).Msg("checkpoint not discarded")
	}
	if err := o.deps.Batches.DeleteAll(ctx, hash, lastBatch); err != nil {
		logger.Warn().Err(err).Msg("stored batches not discarded")
	}
}

// Invalidate forgets everything stored for id so the next Run starts a
// fresh job. It reports whether a cached result existed.
func (o *Orchestrator) Invalidate(ctx context.Context, id model.Identity) (bool, error) {
	hash := model.NewIdentity(id.Name, id.Tag, id.Region).Hash()
	if cp, ok, err := o.deps.Checkpoints.Get(ctx, hash); err == nil && ok {
		o.discard(ctx, hash, cp.LastBatchNumber)
	} else if _, err := o.deps.Checkpoints.Invalidate(ctx, hash); err != nil {
		return false, err
	}
	if _, err := o.deps.Status.Clear(ctx, hash); err != nil {
		return false, err
	}
	existed, err := o.deps.Results.Invalidate(ctx, hash)
	if err != nil {
		return false, err
	}
	log.Info().Str("identity", hash).Bool("existed", existed).Msg("rewind invalidated")
	return existed, nil
}

// finalRiotErr marks errors that retrying cannot fix.
func finalRiotErr(err error) error {
	if errors.Is(err, riot.ErrNotFound) || errors.Is(err, riot.ErrForbidden) {
		return retry.Permanent(err)
	}
	return err
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/pable/rift-rewind/internal/blob"
	"github.com/pable/rift-rewind/internal/config"
	"github.com/pable/rift-rewind/internal/model"
	"github.com/pable/rift-rewind/internal/narrative"
	"github.com/pable/rift-rewind/internal/pipeline"
	"github.com/pable/rift-rewind/internal/retry"
	"github.com/pable/rift-rewind/internal/riot"
	"github.com/pable/rift-rewind/internal/store"
)

// stores groups the typed stores over one blob backend.
type stores struct {
	blobs       blob.Store
	checkpoints *store.CheckpointStore
	results     *store.ResultCache
	batches     *store.BatchStore
	status      *pipeline.StatusBoard
}

func (s *stores) Close() error { return s.blobs.Close() }

func openStores(ctx context.Context, c config.Config) (*stores, error) {
	if c.Store == blob.BackendSQLite || c.Store == blob.BackendBolt {
		if err := os.MkdirAll(filepath.Dir(c.DB), 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	b, err := blob.Open(ctx, c.Store, c.DB)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", c.Store, err)
	}
	return &stores{
		blobs:       b,
		checkpoints: store.NewCheckpointStore(b, c.CheckpointTTL, nil),
		results:     store.NewResultCache(b, c.ResultTTL, nil),
		batches:     store.NewBatchStore(b, c.CheckpointTTL, nil),
		status:      pipeline.NewStatusBoard(store.NewStatusStore(b, c.CheckpointTTL, nil), nil),
	}, nil
}

func retryPolicy(c config.Config) retry.Policy {
	return retry.Policy{
		MaxAttempts: c.RetryAttempts,
		BaseDelay:   c.RetryBaseDelay,
		MaxDelay:    c.RetryMaxDelay,
	}
}

// newOrchestrator wires the gameplay client, the text generator and the
// stores. Without an Anthropic key the narrative is left empty.
func newOrchestrator(c config.Config, s *stores, dryRun bool) (*pipeline.Orchestrator, error) {
	if err := c.RequireRiotKey(); err != nil {
		return nil, err
	}
	policy := retryPolicy(c)

	var gen narrative.Generator
	delay := c.NarrativeDelay
	if dryRun || c.AnthropicAPIKey == "" {
		if !dryRun {
			log.Warn().Msg("ANTHROPIC_API_KEY not set, narrative slots will be empty")
		}
		gen = narrative.StaticGenerator{}
		delay = 0
	} else {
		gen = narrative.NewAnthropicGenerator(c.AnthropicAPIKey, c.AnthropicModel)
	}
	enricher, err := narrative.NewEnricher(gen, policy, delay)
	if err != nil {
		return nil, fmt.Errorf("load narrative templates: %w", err)
	}
	enricher.Timeout = c.GenerateTimeout

	client := riot.NewClient(c.RiotAPIKey,
		riot.WithLimits(c.RiotRPS, c.RiotPer2Min),
		riot.WithTimeout(c.RequestTimeout),
	)
	return pipeline.New(pipeline.Deps{
		Riot:        client,
		Enricher:    enricher,
		Checkpoints: s.checkpoints,
		Results:     s.results,
		Batches:     s.batches,
		Status:      s.status,
		Retry:       policy,
	}, pipeline.Config{
		BatchSize:       c.BatchSize,
		SampleThreshold: c.SampleThreshold,
		Workers:         c.FetchWorkers,
		Since:           c.SinceTime(),
	}), nil
}

// storeOnlyOrchestrator can invalidate but not run jobs.
func storeOnlyOrchestrator(s *stores) *pipeline.Orchestrator {
	return pipeline.New(pipeline.Deps{
		Checkpoints: s.checkpoints,
		Results:     s.results,
		Batches:     s.batches,
		Status:      s.status,
	}, pipeline.Config{})
}

// parseRiotID splits "Name#TAG" and pairs it with the --region flag.
func parseRiotID(arg string) (model.Identity, error) {
	name, tag, ok := strings.Cut(arg, "#")
	if !ok {
		return model.Identity{}, fmt.Errorf("expected a Riot ID like Name#TAG, got %q", arg)
	}
	if region == "" {
		return model.Identity{}, fmt.Errorf("--region is required")
	}
	id := model.NewIdentity(name, tag, region)
	if err := id.Validate(); err != nil {
		return model.Identity{}, err
	}
	return id, nil
}

// resolveHash accepts either a Riot ID (with --region) or a raw identity hash.
func resolveHash(arg string) (string, error) {
	if strings.Contains(arg, "#") {
		id, err := parseRiotID(arg)
		if err != nil {
			return "", err
		}
		return id.Hash(), nil
	}
	if len(arg) != 64 {
		return "", fmt.Errorf("expected a Riot ID or a 64-character identity hash, got %q", arg)
	}
	return strings.ToLower(arg), nil
}

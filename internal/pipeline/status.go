package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pable/rift-rewind/internal/model"
	"github.com/pable/rift-rewind/internal/store"
)

// StatusBoard publishes the poll document of each job. Writes are best
// effort: a failed status write is logged and never fails the job.
type StatusBoard struct {
	docs *store.StatusStore
	now  func() time.Time
}

func NewStatusBoard(docs *store.StatusStore, now func() time.Time) *StatusBoard {
	if now == nil {
		now = time.Now
	}
	return &StatusBoard{docs: docs, now: now}
}

// Set stamps UpdatedAt and stores doc.
func (b *StatusBoard) Set(ctx context.Context, doc model.StatusDoc) {
	doc.UpdatedAt = b.now().UTC()
	if _, err := b.docs.Put(ctx, doc.IdentityHash, doc, 0); err != nil {
		log.Warn().Err(err).Str("identity", doc.IdentityHash).Str("state", string(doc.State)).Msg("status write failed")
	}
}

// Get returns the latest document for hash.
func (b *StatusBoard) Get(ctx context.Context, hash string) (model.StatusDoc, bool, error) {
	return b.docs.Get(ctx, hash)
}

// Clear removes the document for hash.
func (b *StatusBoard) Clear(ctx context.Context, hash string) (bool, error) {
	return b.docs.Invalidate(ctx, hash)
}

func (b *StatusBoard) progress(ctx context.Context, hash string, state model.JobState, p model.Progress, summary *model.PlayerSummary) {
	b.Set(ctx, model.StatusDoc{
		IdentityHash: hash,
		State:        state,
		Message:      LoadingMessage(hash, state, p.Batch),
		Progress:     p,
		Summary:      summary,
	})
}

func (b *StatusBoard) fail(ctx context.Context, hash string, je *JobError) {
	b.Set(ctx, model.StatusDoc{IdentityHash: hash, State: model.StateError, Message: je.Message})
}

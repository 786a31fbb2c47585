package narrative

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pable/rift-rewind/internal/metrics"
	"github.com/pable/rift-rewind/internal/model"
	"github.com/pable/rift-rewind/internal/retry"
)

// Enricher fills narrative slots one at a time. A slot whose generation
// fails after retries is left empty; the job carries on.
type Enricher struct {
	Gen       Generator
	Templates *Templates
	Retry     retry.Policy
	// Delay is the pause between consecutive calls to the text service.
	Delay time.Duration
	// Timeout bounds a single call; zero means no extra bound.
	Timeout time.Duration
	// OnSlot, if set, is called after each attempted slot so progress can
	// be persisted.
	OnSlot func(slot, text string)

	sleep func(ctx context.Context, d time.Duration) error
}

// NewEnricher uses the embedded templates.
func NewEnricher(gen Generator, policy retry.Policy, delay time.Duration) (*Enricher, error) {
	t, err := LoadTemplates()
	if err != nil {
		return nil, err
	}
	return &Enricher{Gen: gen, Templates: t, Retry: policy, Delay: delay}, nil
}

// Enrich returns a narrative with every known slot present. Slots already
// filled in existing are kept as-is and not regenerated.
func (e *Enricher) Enrich(ctx context.Context, a *model.Analytics, existing model.Narrative) model.Narrative {
	out := model.NewNarrative()
	for k, v := range existing {
		out[k] = v
	}
	vars := VarsFor(a)

	calls := 0
	for _, slot := range model.NarrativeSlots {
		if out[slot] != "" {
			continue
		}
		if !e.Templates.Has(slot) {
			metrics.NarrativeSlots.WithLabelValues("skipped").Inc()
			continue
		}
		if ctx.Err() != nil {
			break
		}
		if calls > 0 && e.pause(ctx) != nil {
			break
		}
		calls++

		text, err := e.generateSlot(ctx, slot, vars)
		if err != nil {
			log.Warn().Err(err).Str("slot", slot).Msg("narrative slot degraded")
			metrics.NarrativeSlots.WithLabelValues("degraded").Inc()
		} else {
			metrics.NarrativeSlots.WithLabelValues("ok").Inc()
		}
		out[slot] = text
		if e.OnSlot != nil {
			e.OnSlot(slot, text)
		}
	}
	return out
}

func (e *Enricher) generateSlot(ctx context.Context, slot string, vars Vars) (string, error) {
	req, err := e.Templates.Render(slot, vars)
	if err != nil {
		return "", err
	}
	var text string
	err = e.Retry.Do(ctx, "generate "+slot, func(ctx context.Context) error {
		raw, err := e.call(ctx, req)
		if err != nil {
			return err
		}
		text = Clean(raw)
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// Insights asks for structured coaching insights. Anything unusable yields
// the fallback structure.
func (e *Enricher) Insights(ctx context.Context, a *model.Analytics) model.Insights {
	req, err := e.Templates.RenderInsights(VarsFor(a))
	if err != nil {
		log.Warn().Err(err).Msg("insights prompt unavailable")
		return model.FallbackInsights()
	}
	if e.pause(ctx) != nil {
		return model.FallbackInsights()
	}

	var raw string
	err = e.Retry.Do(ctx, "generate insights", func(ctx context.Context) error {
		var err error
		raw, err = e.call(ctx, req)
		return err
	})
	if err != nil {
		log.Warn().Err(err).Msg("insights generation failed")
		return model.FallbackInsights()
	}

	var ins model.Insights
	if err := json.Unmarshal([]byte(extractJSON(raw)), &ins); err != nil {
		log.Warn().Err(err).Str("raw", truncate(raw, 200)).Msg("insights response is not valid JSON")
		return model.FallbackInsights()
	}
	fb := model.FallbackInsights()
	if len(ins.Strengths) == 0 {
		ins.Strengths = fb.Strengths
	}
	if len(ins.Weaknesses) == 0 {
		ins.Weaknesses = fb.Weaknesses
	}
	if len(ins.CoachingTips) == 0 {
		ins.CoachingTips = fb.CoachingTips
	}
	if ins.PlayStyle == "" {
		ins.PlayStyle = fb.PlayStyle
	}
	if ins.PersonalityTitle == "" {
		ins.PersonalityTitle = fb.PersonalityTitle
	}
	return ins
}

func (e *Enricher) call(ctx context.Context, req Request) (string, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}
	return e.Gen.Generate(ctx, req)
}

func (e *Enricher) pause(ctx context.Context) error {
	if e.Delay <= 0 {
		return ctx.Err()
	}
	if e.sleep != nil {
		return e.sleep(ctx, e.Delay)
	}
	t := time.NewTimer(e.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

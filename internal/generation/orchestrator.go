package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"applykit-backend/internal/llm"
	"applykit-backend/internal/shared/metrics"
	"applykit-backend/internal/shared/telemetry"
)

const (
	// GenerationTemperature is moderate; metadata extraction runs at zero.
	GenerationTemperature float32 = 0.7
	DefaultCallTimeout            = 90 * time.Second
)

// Input is what the caller collected from the user.
type Input struct {
	CV             string    `json:"cv"`
	JobDescription string    `json:"jobDescription"`
	Formality      Formality `json:"formality"`
}

// Content holds the three generated documents.
type Content struct {
	Resume        string `json:"resume"`
	CoverLetter   string `json:"coverLetter"`
	FollowUpEmail string `json:"followUpEmail"`
}

// Orchestrator issues the three generation calls concurrently.
type Orchestrator struct {
	llm         llm.Completer
	cleaner     Cleaner
	callTimeout time.Duration
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithCallTimeout bounds each model call independently.
func WithCallTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.callTimeout = d
		}
	}
}

// WithCleaner replaces the résumé cleaner.
func WithCleaner(c Cleaner) Option {
	return func(o *Orchestrator) { o.cleaner = c }
}

// NewOrchestrator builds an orchestrator around a completer.
func NewOrchestrator(c llm.Completer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		llm:         c,
		cleaner:     defaultCleaner,
		callTimeout: DefaultCallTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type outcome struct {
	text string
	err  error
}

// Generate runs all three channels to completion, then reports the first
// failure in résumé, cover letter, follow-up order.
func (o *Orchestrator) Generate(ctx context.Context, in Input) (Content, error) {
	if strings.TrimSpace(in.CV) == "" || strings.TrimSpace(in.JobDescription) == "" {
		return Content{}, fmt.Errorf("%w: cv and jobDescription are required", ErrInvalidInput)
	}
	if !in.Formality.Valid() {
		in.Formality = Neutral
	}

	metrics.IncGenerationStarted()
	start := time.Now()

	outcomes := make(map[Channel]*outcome, len(Channels))
	for _, ch := range Channels {
		outcomes[ch] = &outcome{}
	}

	// A plain Group has no shared context, so one failed channel does not
	// cancel the others. Wait only signals that some channel failed.
	var g errgroup.Group
	for _, ch := range Channels {
		ch := ch
		out := outcomes[ch]
		g.Go(func() error {
			out.text, out.err = o.call(ctx, ch, in)
			if out.err != nil {
				return &GenerationError{Channel: ch, Err: out.err}
			}
			return nil
		})
	}
	waitErr := g.Wait()

	metrics.ObserveGenerationDurationMs(metrics.SinceMillis(start))

	if waitErr != nil {
		metrics.IncGenerationFailed()
		return Content{}, firstFailure(outcomes)
	}

	resume := outcomes[ChannelResume].text
	if removed := o.cleaner.Removed(resume); removed > 0 {
		telemetry.Debug("generation.resume_cleaned", map[string]any{"bytes_removed": removed})
	}
	cleaned := o.cleaner.Clean(resume)

	metrics.IncGenerationCompleted()
	telemetry.Info("generation.completed", map[string]any{
		"duration_ms": metrics.SinceMillis(start),
		"formality":   in.Formality.String(),
	})
	return Content{
		Resume:        cleaned,
		CoverLetter:   outcomes[ChannelCoverLetter].text,
		FollowUpEmail: outcomes[ChannelFollowUpEmail].text,
	}, nil
}

// firstFailure logs every failed channel and returns the first one in
// Channels order, regardless of which finished first.
func firstFailure(outcomes map[Channel]*outcome) error {
	var first error
	for _, ch := range Channels {
		err := outcomes[ch].err
		if err == nil {
			continue
		}
		telemetry.Error("generation.channel_failed", map[string]any{
			"channel": string(ch),
			"error":   err.Error(),
		})
		if first == nil {
			first = &GenerationError{Channel: ch, Err: err}
		}
	}
	return first
}

func (o *Orchestrator) call(ctx context.Context, ch Channel, in Input) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()

	req := llm.Request{
		Messages:    BuildMessages(ch, in),
		Temperature: GenerationTemperature,
		JSON:        ch == ChannelResume,
		Label:       string(ch),
	}
	text, err := o.llm.Complete(callCtx, req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

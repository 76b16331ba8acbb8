package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"chat_dispatch/internal/config"
	"chat_dispatch/internal/dispatch"
	"chat_dispatch/internal/metrics"
	"chat_dispatch/internal/store"
	"chat_dispatch/internal/timewin"
)

// Source is the storage surface the pipeline reads during the query phase.
// *store.Store satisfies it.
type Source interface {
	MessagesForWindow(ctx context.Context, w timewin.Window) ([]store.MessageRow, error)
	PriorityConversations(ctx context.Context) (map[string]struct{}, error)
	Close() error
}

// OpenSource opens the storage handle for one run's query phase.
type OpenSource func() (Source, error)

// Summary is the outcome of one pipeline pass.
type Summary struct {
	RunID      string            `json:"run_id"`
	Date       string            `json:"date"`
	TZ         string            `json:"tz"`
	Rows       int               `json:"rows"`
	Grouped    int               `json:"conversations"`
	Selected   int               `json:"selected"`
	Failed     int               `json:"failed"`
	Results    []dispatch.Result `json:"results"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

// Runner wires the selection, redaction, and dispatch pipeline.
type Runner struct {
	cfg    config.Config
	loc    *time.Location
	open   OpenSource
	poster dispatch.Poster
	log    zerolog.Logger
	stats  *metrics.Metrics
}

func NewRunner(cfg config.Config, open OpenSource, poster dispatch.Poster, log zerolog.Logger, stats *metrics.Metrics) (*Runner, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.TZName, err)
	}
	return &Runner{cfg: cfg, loc: loc, open: open, poster: poster, log: log, stats: stats}, nil
}

// Run executes one full pass for the day containing now: query, group,
// select, dispatch. The storage handle is released before dispatch begins.
// Per-conversation delivery failures are recorded in the Summary, not
// returned as an error.
func (r *Runner) Run(ctx context.Context, now time.Time) (Summary, error) {
	window := timewin.Resolve(now, r.loc)
	summary := Summary{
		RunID:     uuid.NewString(),
		Date:      window.ISODate,
		TZ:        r.cfg.TZName,
		StartedAt: time.Now(),
	}
	log := r.log.With().Str("run_id", summary.RunID).Str("date", window.ISODate).Logger()

	group, priority, rows, err := r.collect(ctx, window)
	if err != nil {
		r.stats.RecordRun(0, 0, err)
		return summary, err
	}
	summary.Rows = rows
	summary.Grouped = group.Len()

	if group.Len() == 0 {
		summary.FinishedAt = time.Now()
		r.stats.RecordRun(0, 0, nil)
		log.Info().Msg("no messages today, nothing to dispatch")
		return summary, nil
	}

	candidates := SelectConversations(group, priority, r.cfg.MinConversations)
	summary.Selected = len(candidates)
	log.Info().
		Int("rows", rows).
		Int("conversations", group.Len()).
		Int("selected", len(candidates)).
		Msg("selection complete")

	payloads := make([]dispatch.Payload, 0, len(candidates))
	for _, c := range candidates {
		payloads = append(payloads, r.buildPayload(c.Key, window, group.Messages(c.Key)))
	}

	d := dispatch.NewDispatcher(r.poster, log)
	summary.Results = d.Send(ctx, payloads)
	summary.Failed = dispatch.FailureCount(summary.Results)
	summary.FinishedAt = time.Now()
	r.stats.RecordRun(len(summary.Results), summary.Failed, nil)

	if summary.Failed > 0 {
		log.Error().Int("failed", summary.Failed).Int("total", len(summary.Results)).Msg("run finished with delivery failures")
	} else {
		log.Info().Int("dispatched", len(summary.Results)).Msg("run finished")
	}
	return summary, nil
}

// collect opens the store, reads the day's rows and the priority registry,
// and closes the store again before anything else happens.
func (r *Runner) collect(ctx context.Context, window timewin.Window) (*ConversationGroup, map[string]struct{}, int, error) {
	src, err := r.open()
	if err != nil {
		return nil, nil, 0, fmt.Errorf("open store: %w", err)
	}
	defer src.Close()

	msgRows, err := src.MessagesForWindow(ctx, window)
	if err != nil {
		return nil, nil, 0, err
	}
	priority, err := src.PriorityConversations(ctx)
	if err != nil {
		return nil, nil, 0, err
	}
	return GroupRows(msgRows, r.cfg.NormalizeConvIDs), priority, len(msgRows), nil
}

func (r *Runner) buildPayload(key string, window timewin.Window, msgs []RedactedMessage) dispatch.Payload {
	out := make([]dispatch.Message, 0, len(msgs))
	for _, m := range msgs {
		wire := dispatch.Message{
			MessageText: m.Text,
			IsOffensive: m.IsOffensive,
			OffenseType: m.OffenseType,
			Modality:    m.Modality,
			IsGroup:     m.IsGroup,
			Ts:          m.Ts,
		}
		if r.cfg.IncludeSender {
			wire.Sender = m.Sender
		}
		out = append(out, wire)
	}
	return dispatch.Payload{
		ConvID:   key,
		DateTZ:   r.cfg.TZName,
		DateISO:  window.ISODate,
		Messages: out,
	}
}

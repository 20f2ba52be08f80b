package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/web3-frozen/crypto-alert/internal/alert"
	"github.com/web3-frozen/crypto-alert/internal/metrics"
	"github.com/web3-frozen/crypto-alert/internal/notifier"
)

const (
	defaultTrigger = "start"
	defaultTimeout = 15 * time.Second
)

var errNotTriggered = errors.New("message is not a trigger")

// Options tunes the dispatcher. Zero values select defaults.
type Options struct {
	TriggerWord string
	Timeout     time.Duration
	Dedup       Deduper
}

// Dispatcher routes inbound events to handlers one at a time and owns the alert registry.
type Dispatcher struct {
	registry *alert.Registry
	chat     Messenger
	dedup    Deduper
	logger   *slog.Logger
	trigger  string
	timeout  time.Duration
	handlers map[Kind]HandlerFunc
}

func New(reg *alert.Registry, chat Messenger, logger *slog.Logger, opts Options) *Dispatcher {
	if opts.TriggerWord == "" {
		opts.TriggerWord = defaultTrigger
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	d := &Dispatcher{
		registry: reg,
		chat:     chat,
		dedup:    opts.Dedup,
		logger:   logger,
		trigger:  opts.TriggerWord,
		timeout:  opts.Timeout,
		handlers: make(map[Kind]HandlerFunc),
	}
	d.Handle(KindTeamJoin, d.handleJoin)
	d.Handle(KindMessage, d.handleMessage)
	d.Handle(KindReactionAdded, d.handleReaction)
	d.Handle(KindPinAdded, d.handlePin)
	return d
}

// Handle registers h for kind, replacing any previous handler.
func (d *Dispatcher) Handle(kind Kind, h HandlerFunc) {
	d.handlers[kind] = h
}

// Run consumes events until ctx is done or the channel closes. Events are
// handled strictly one at a time, so the registry has a single writer.
func (d *Dispatcher) Run(ctx context.Context, events <-chan Event) {
	d.logger.Info("event dispatcher started")
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			_ = d.Dispatch(ctx, ev)
		}
	}
}

// Dispatch handles a single event. Registry misses and non-trigger messages are
// dropped and return nil.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) (err error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	} else if d.isDuplicate(ctx, ev) {
		metrics.EventsTotal.WithLabelValues(string(ev.Kind), "duplicate").Inc()
		return nil
	}

	h, ok := d.handlers[ev.Kind]
	if !ok {
		metrics.EventsTotal.WithLabelValues(string(ev.Kind), "unhandled").Inc()
		d.logger.Debug("no handler for event", "event_id", ev.ID, "kind", ev.Kind)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic in event handler", "event_id", ev.ID, "kind", ev.Kind, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("handler panic: %v", r)
		}
		metrics.EventDuration.WithLabelValues(string(ev.Kind)).Observe(time.Since(start).Seconds())
		metrics.EventsTotal.WithLabelValues(string(ev.Kind), outcome(err)).Inc()
		metrics.RegistryRecords.Set(float64(d.registry.Len()))

		switch {
		case err == nil:
		case errors.Is(err, errNotTriggered):
			err = nil
		case errors.Is(err, alert.ErrNotFound):
			d.logger.Info("no alert for event, dropping", "event_id", ev.ID, "kind", ev.Kind,
				"destination", ev.Destination, "subject", ev.Subject)
			err = nil
		default:
			d.logger.Error("event handler failed", "event_id", ev.ID, "kind", ev.Kind,
				"destination", ev.Destination, "subject", ev.Subject, "error", err)
		}
	}()

	return h(ctx, ev)
}

func (d *Dispatcher) isDuplicate(ctx context.Context, ev Event) bool {
	if d.dedup == nil {
		return false
	}
	first, err := d.dedup.Claim(ctx, ev.ID)
	if err != nil {
		// Handle the event anyway; a double edit is cheaper than a lost one.
		d.logger.Warn("event dedup unavailable", "event_id", ev.ID, "error", err)
		return false
	}
	if !first {
		d.logger.Debug("duplicate event delivery", "event_id", ev.ID, "kind", ev.Kind)
	}
	return !first
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, errNotTriggered):
		return "ignored"
	case errors.Is(err, alert.ErrNotFound):
		return "dropped"
	default:
		return "error"
	}
}

func (d *Dispatcher) handleJoin(ctx context.Context, ev Event) error {
	dest := ev.Destination
	if dest == "" {
		var err error
		dest, err = d.chat.OpenDirect(ctx, ev.Subject)
		if err != nil {
			return fmt.Errorf("open direct message: %w", err)
		}
	}
	return d.startAlert(ctx, dest, ev.Subject)
}

func (d *Dispatcher) handleMessage(ctx context.Context, ev Event) error {
	if !strings.EqualFold(strings.TrimSpace(ev.Text), d.trigger) {
		return errNotTriggered
	}
	return d.startAlert(ctx, ev.Destination, ev.Subject)
}

func (d *Dispatcher) handleReaction(ctx context.Context, ev Event) error {
	rec, err := d.registry.Get(ev.Destination, ev.Subject)
	if err != nil {
		return err
	}
	rec.MarkReaction()
	return d.refresh(ctx, rec)
}

func (d *Dispatcher) handlePin(ctx context.Context, ev Event) error {
	rec, err := d.registry.Get(ev.Destination, ev.Subject)
	if err != nil {
		return err
	}
	rec.MarkPin()
	return d.refresh(ctx, rec)
}

// startAlert posts the initial message and replaces any record for the pair.
func (d *Dispatcher) startAlert(ctx context.Context, dest, subject string) error {
	rec := alert.NewRecord(dest, subject)
	p := rec.PostPayload()

	id, err := d.chat.Post(ctx, p.Destination, p.Text)
	if err != nil {
		return fmt.Errorf("post alert: %w", err)
	}
	rec.LastMessageID = id
	d.registry.Upsert(rec)

	d.logger.Info("alert posted", "destination", dest, "subject", subject, "message_id", id)
	return nil
}

// refresh stores the record's flags, re-renders it in place and chains the new message id.
func (d *Dispatcher) refresh(ctx context.Context, rec alert.Record) error {
	d.registry.Upsert(rec)

	p, err := rec.UpdatePayload()
	if err != nil {
		return err
	}

	id, err := d.chat.Edit(ctx, p.Destination, p.MessageID, p.Text)
	if errors.Is(err, notifier.ErrNotFoundOnRemote) {
		d.logger.Warn("alert message vanished, reposting", "destination", p.Destination,
			"subject", rec.Subject, "message_id", p.MessageID)
		id, err = d.chat.Post(ctx, p.Destination, p.Text)
	}
	if err != nil {
		return fmt.Errorf("update alert: %w", err)
	}

	rec.LastMessageID = id
	d.registry.Upsert(rec)

	d.logger.Info("alert updated", "destination", rec.Destination, "subject", rec.Subject,
		"stage", rec.Stage().String(), "message_id", id)
	return nil
}

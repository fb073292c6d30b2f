package main

import (
	"context"
	"math"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

const (
	defaultMaxRetries  = 3
	defaultBackoffBase = 2.0

	maxBackoff = 10 * time.Minute
)

// CardSetter renames the bot inside a group.
type CardSetter interface {
	SetGroupCard(ctx context.Context, groupID, userID int64, card string) error
}

// Trigger is one event that may cause a card update.
type Trigger struct {
	GroupID int64
	SelfID  int64
}

type updaterOptions struct {
	TemplatePath   string
	ThrottleWindow time.Duration
	MaxRetries     int
	BackoffBase    float64 // seconds; attempt n waits BackoffBase^n
}

// CardUpdater decides when a group's card is refreshed and runs the
// bounded retry sequence against the remote call.
type CardUpdater struct {
	throttle     *groupThrottle
	recorder     *Recorder
	store        SnapshotStore
	setter       CardSetter
	clock        clock.Clock
	templatePath string
	maxRetries   int
	backoffBase  float64
	stats        *stats
	log          *zap.Logger

	// wait pauses the calling goroutine between attempts. Replaced in tests.
	wait func(ctx context.Context, d time.Duration) error
}

func newCardUpdater(opts updaterOptions, recorder *Recorder, store SnapshotStore, setter CardSetter, clk clock.Clock, st *stats, log *zap.Logger) *CardUpdater {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = defaultBackoffBase
	}
	u := &CardUpdater{
		throttle:     newGroupThrottle(opts.ThrottleWindow),
		recorder:     recorder,
		store:        store,
		setter:       setter,
		clock:        clk,
		templatePath: opts.TemplatePath,
		maxRetries:   opts.MaxRetries,
		backoffBase:  opts.BackoffBase,
		stats:        st,
		log:          log,
	}
	u.wait = u.sleep
	return u
}

// Handle processes one trigger. It blocks for the whole update sequence,
// backoff included, so callers run it on its own goroutine.
func (u *CardUpdater) Handle(ctx context.Context, t Trigger) Outcome {
	if t.GroupID == 0 {
		return Outcome{State: StateSkipped}
	}

	now := u.clock.Now()
	if !u.throttle.shouldUpdate(t.GroupID, now) {
		u.stats.triggers.WithLabelValues("throttled").Inc()
		return Outcome{State: StateThrottled}
	}
	u.stats.triggers.WithLabelValues("update").Inc()

	card := u.renderCard(ctx)
	out := u.execute(ctx, t, card)

	// Exhausted sequences are recorded too, which locks the group out for
	// a full window instead of retrying on every message.
	u.throttle.record(t.GroupID, now)

	u.stats.outcomes.WithLabelValues(string(out.State)).Inc()
	u.stats.updateDuration.Observe(u.clock.Since(now).Seconds())
	return out
}

func (u *CardUpdater) renderCard(ctx context.Context) string {
	tmpl := loadTemplate(u.templatePath, u.log)
	fresh, err := u.recorder.Record(ctx, tmpl.TimeFormat)
	if err != nil {
		// Whatever the store holds is older than this cycle.
		return tmpl.Render(fresh.Fields())
	}
	return tmpl.Render(latestFields(ctx, u.store, &fresh, u.log))
}

// latestFields prefers the stored snapshot, then fresh, then Unknown for
// every field.
func latestFields(ctx context.Context, store SnapshotStore, fresh *Snapshot, log *zap.Logger) CardFields {
	fields, err := store.Load(ctx)
	if err == nil {
		return fields
	}
	log.Warn("stored snapshot unavailable", zap.Error(err))
	if fresh != nil {
		return fresh.Fields()
	}
	return unknownFields()
}

func (u *CardUpdater) execute(ctx context.Context, t Trigger, card string) Outcome {
	out := Outcome{State: StateAttempting, Card: card}
	log := u.log.With(zap.Int64("group_id", t.GroupID), zap.String("card", card))

	for n := 0; !out.State.terminal(); n++ {
		out.Attempts++
		u.stats.attempts.Inc()

		err := u.setter.SetGroupCard(ctx, t.GroupID, t.SelfID, card)
		switch {
		case err == nil:
			out.State = StateSucceeded
			log.Info("group card updated", zap.Int("attempts", out.Attempts))

		case n+1 >= u.maxRetries:
			out.State = StateExhausted
			out.Err = err
			log.Error("group card update failed, retries exhausted",
				zap.Int("max_retries", u.maxRetries), zap.Error(err))

		default:
			delay := u.backoff(n)
			log.Warn("group card update failed, retrying",
				zap.Int("attempt", n+1), zap.Duration("delay", delay), zap.Error(err))
			if werr := u.wait(ctx, delay); werr != nil {
				out.State = StateExhausted
				out.Err = err
				log.Error("group card update abandoned", zap.Error(werr))
			}
		}
	}
	return out
}

// backoff is backoffBase^n seconds, capped at maxBackoff.
func (u *CardUpdater) backoff(n int) time.Duration {
	secs := math.Pow(u.backoffBase, float64(n))
	if math.IsNaN(secs) || secs >= maxBackoff.Seconds() {
		return maxBackoff
	}
	return time.Duration(secs * float64(time.Second))
}

func (u *CardUpdater) sleep(ctx context.Context, d time.Duration) error {
	timer := u.clock.Timer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

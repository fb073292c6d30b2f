package main

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

var defaultTriggers = []string{"message", "message_sent"}

// Dispatcher turns OneBot events into card update triggers. Each trigger
// runs on its own goroutine so backoff in one group never delays another.
type Dispatcher struct {
	ctx      context.Context
	updater  *CardUpdater
	triggers map[string]bool
	log      *zap.Logger

	wg sync.WaitGroup

	// onOutcome, if set, observes every finished trigger.
	onOutcome func(Trigger, Outcome)
}

func newDispatcher(ctx context.Context, updater *CardUpdater, postTypes []string, log *zap.Logger) *Dispatcher {
	if len(postTypes) == 0 {
		postTypes = defaultTriggers
	}
	triggers := make(map[string]bool, len(postTypes))
	for _, pt := range postTypes {
		triggers[pt] = true
	}
	return &Dispatcher{
		ctx:      ctx,
		updater:  updater,
		triggers: triggers,
		log:      log,
	}
}

// HandleEvent is the OneBot event callback. It never blocks on the update.
func (d *Dispatcher) HandleEvent(ev Event) {
	t, ok := d.triggerFor(ev)
	if !ok {
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		out := d.updater.Handle(d.ctx, t)
		d.log.Debug("trigger handled",
			zap.Int64("group_id", t.GroupID), zap.Stringer("outcome", out))
		if d.onOutcome != nil {
			d.onOutcome(t, out)
		}
	}()
}

func (d *Dispatcher) triggerFor(ev Event) (Trigger, bool) {
	if !d.triggers[ev.PostType] {
		return Trigger{}, false
	}
	if ev.MessageType != "group" || ev.GroupID == 0 {
		return Trigger{}, false
	}
	return Trigger{GroupID: ev.GroupID, SelfID: ev.SelfID}, true
}

// Wait blocks until every started update sequence has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

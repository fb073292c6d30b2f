package main

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/ncruces/go-strftime"
	"go.uber.org/zap"
)

// Recorder produces a fresh Snapshot and persists it.
type Recorder struct {
	sampler HostSampler
	probe   NetworkProbe
	store   SnapshotStore
	clock   clock.Clock
	stats   *stats
	log     *zap.Logger
}

func newRecorder(sampler HostSampler, probe NetworkProbe, store SnapshotStore, clk clock.Clock, st *stats, log *zap.Logger) *Recorder {
	return &Recorder{
		sampler: sampler,
		probe:   probe,
		store:   store,
		clock:   clk,
		stats:   st,
		log:     log,
	}
}

// Record samples the host and overwrites the stored snapshot. Sampling and
// probe failures are logged. The returned snapshot is always usable; the
// error only reports that it could not be stored.
func (r *Recorder) Record(ctx context.Context, timeFormat string) (Snapshot, error) {
	if timeFormat == "" {
		timeFormat = defaultTimeFormat
	}

	cpuPercent, err := r.sampler.CPUPercent(ctx)
	if err != nil {
		r.log.Warn("cpu sample failed", zap.Error(err))
		cpuPercent = 0
	}
	memPercent, err := r.sampler.MemoryPercent(ctx)
	if err != nil {
		r.log.Warn("memory sample failed", zap.Error(err))
		memPercent = 0
	}

	snap := Snapshot{
		CPUUsage:    cpuPercent,
		MemoryUsage: memPercent,
		CurrentTime: strftime.Format(timeFormat, r.clock.Now()),
	}

	status, err := r.probe.Probe(ctx)
	if err != nil {
		r.log.Warn("network probe failed", zap.Error(err))
		snap.NetworkLatency = Unknown
		snap.PacketLoss = Unknown
	} else {
		snap.NetworkLatency = status.Latency
		snap.PacketLoss = status.PacketLoss
	}

	r.stats.observeSnapshot(snap)

	if err := r.store.Save(ctx, snap); err != nil {
		r.stats.snapshotSaveErrors.Inc()
		r.log.Error("saving snapshot failed", zap.Error(err))
		return snap, err
	}
	return snap, nil
}

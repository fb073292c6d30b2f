package main

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeSampler struct {
	cpu, mem float64
	err      error
}

func (s *fakeSampler) CPUPercent(context.Context) (float64, error) { return s.cpu, s.err }
func (s *fakeSampler) MemoryPercent(context.Context) (float64, error) { return s.mem, s.err }

type fakeProbe struct {
	status NetworkStatus
	err    error
}

func (p *fakeProbe) Probe(context.Context) (NetworkStatus, error) { return p.status, p.err }

type failingStore struct {
	err error
}

func (s *failingStore) Save(context.Context, Snapshot) error { return s.err }
func (s *failingStore) Load(context.Context) (CardFields, error) { return nil, s.err }

// readOnlyStore refuses writes but still serves an older record.
type readOnlyStore struct {
	saveErr error
	stored  CardFields
}

func (s *readOnlyStore) Save(context.Context, Snapshot) error { return s.saveErr }
func (s *readOnlyStore) Load(context.Context) (CardFields, error) { return s.stored, nil }

type setCall struct {
	GroupID, UserID int64
	Card            string
}

// scriptedSetter fails its first len(errs) calls with the given errors
// (nil entries succeed) and succeeds afterwards.
type scriptedSetter struct {
	mu    sync.Mutex
	errs  []error
	calls []setCall
}

func (s *scriptedSetter) SetGroupCard(_ context.Context, groupID, userID int64, card string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.calls)
	s.calls = append(s.calls, setCall{GroupID: groupID, UserID: userID, Card: card})
	if n < len(s.errs) {
		return s.errs[n]
	}
	return nil
}

func (s *scriptedSetter) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

var testNow = time.Date(2026, 10, 17, 14, 5, 0, 0, time.Local)

type updaterFixture struct {
	updater *CardUpdater
	setter  *scriptedSetter
	clock   *clock.Mock
	store   *fileStore
	logs    *observer.ObservedLogs
	dir     string

	mu    sync.Mutex
	waits []time.Duration
}

func (f *updaterFixture) recordedWaits() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.waits...)
}

func testStats() *stats {
	return newStats(prometheus.NewRegistry())
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func newUpdaterFixture(t *testing.T, setter *scriptedSetter) *updaterFixture {
	t.Helper()
	dir := t.TempDir()
	log, logs := observedLogger()

	mock := clock.NewMock()
	mock.Set(testNow)

	store := newFileStore(filepath.Join(dir, "system_info.yml"), log)
	st := testStats()
	recorder := newRecorder(&fakeSampler{cpu: 42, mem: 77}, newStaticProbe(), store, mock, st, log)
	updater := newCardUpdater(updaterOptions{
		TemplatePath: filepath.Join(dir, "name.yml"),
	}, recorder, store, setter, mock, st, log)

	f := &updaterFixture{
		updater: updater,
		setter:  setter,
		clock:   mock,
		store:   store,
		logs:    logs,
		dir:     dir,
	}
	updater.wait = func(_ context.Context, d time.Duration) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.waits = append(f.waits, d)
		return nil
	}
	return f
}

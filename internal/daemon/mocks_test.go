package daemon

import (
	"context"
	"sync"

	"github.com/eliteGoblin/focusd/chronos/internal/domain"
)

type fakeRecorder struct {
	mu      sync.Mutex
	calls   int
	results []*domain.TickResult
	errs    []error
}

// Tick replays scripted results; the last one repeats.
func (r *fakeRecorder) Tick(ctx context.Context) (*domain.TickResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.calls
	r.calls++
	if i < len(r.errs) && r.errs[i] != nil {
		return nil, r.errs[i]
	}
	if len(r.results) == 0 {
		return &domain.TickResult{Skipped: true}, nil
	}
	if i >= len(r.results) {
		i = len(r.results) - 1
	}
	return r.results[i], nil
}

func (r *fakeRecorder) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type fakeRegistry struct {
	mu          sync.Mutex
	info        *domain.DaemonInfo
	registered  int
	heartbeats  int
	cleared     int
	registerErr error
}

func (r *fakeRegistry) Register(info domain.DaemonInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.registerErr != nil {
		return r.registerErr
	}
	r.registered++
	r.info = &info
	return nil
}

func (r *fakeRegistry) UpdateHeartbeat() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.info == nil {
		return domain.ErrNotRunning
	}
	r.heartbeats++
	return nil
}

func (r *fakeRegistry) Get() (*domain.DaemonInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.info == nil {
		return nil, nil
	}
	info := *r.info
	return &info, nil
}

func (r *fakeRegistry) IsAlive() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.info != nil, nil
}

func (r *fakeRegistry) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleared++
	r.info = nil
	return nil
}

func (r *fakeRegistry) GetRegistryPath() string { return "/tmp/daemon.json" }

func (r *fakeRegistry) snapshot() (registered, heartbeats, cleared int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registered, r.heartbeats, r.cleared
}

type fakeProcesses struct {
	running    map[int]bool
	terminated []int
}

func (p *fakeProcesses) Name(pid int) (string, error) { return "chronos", nil }
func (p *fakeProcesses) IsRunning(pid int) bool        { return p.running[pid] }
func (p *fakeProcesses) GetCurrentPID() int            { return 1 }

func (p *fakeProcesses) Terminate(pid int) error {
	p.terminated = append(p.terminated, pid)
	return nil
}

type fakeSummarySource struct {
	mu      sync.Mutex
	calls   int
	summary domain.TodaySummary
	err     error
}

func (s *fakeSummarySource) TodaySummary(ctx context.Context) (domain.TodaySummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return domain.TodaySummary{}, s.err
	}
	return s.summary, nil
}

func (s *fakeSummarySource) set(summary domain.TodaySummary, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = summary
	s.err = err
}

func (s *fakeSummarySource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingPublisher struct {
	mu        sync.Mutex
	summaries []domain.TodaySummary
}

func (p *recordingPublisher) Publish(summary domain.TodaySummary) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.summaries = append(p.summaries, summary)
}

func (p *recordingPublisher) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.summaries)
}

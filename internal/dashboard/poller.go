// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dashboard

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/sproutai/sprout-tui/internal/model"
)

// DefaultInterval is the polling period when none is configured.
const DefaultInterval = 10 * time.Second

// =============================================================================
// TABS
// =============================================================================

// Tab is a dashboard section.
type Tab int

const (
	TabEmergencies Tab = iota
	TabPatients
	TabSystem
)

// Tabs lists the tabs in display order.
var Tabs = []Tab{TabEmergencies, TabPatients, TabSystem}

// String returns the tab label.
func (t Tab) String() string {
	switch t {
	case TabEmergencies:
		return "Emergencies"
	case TabPatients:
		return "Patients"
	case TabSystem:
		return "System"
	default:
		return fmt.Sprintf("Tab(%d)", t)
	}
}

// ParseTab matches a tab by name, case-insensitively.
func ParseTab(s string) (Tab, bool) {
	for _, t := range Tabs {
		if strings.EqualFold(t.String(), s) {
			return t, true
		}
	}
	return TabEmergencies, false
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is the dashboard data at one point in time.
type Snapshot struct {
	Tab         Tab
	Emergencies []model.Emergency
	Users       []model.UserProfile
	Stats       model.SystemStats
	Loading     bool
	UpdatedAt   time.Time
}

// PendingCount returns the number of emergencies awaiting triage.
func (s Snapshot) PendingCount() int {
	n := 0
	for _, e := range s.Emergencies {
		if e.Status == model.StatusPending {
			n++
		}
	}
	return n
}

// UserCount returns the number of registered users.
func (s Snapshot) UserCount() int {
	return len(s.Users)
}

// =============================================================================
// POLLER
// =============================================================================

// Backend is the subset of the API client the poller needs.
type Backend interface {
	ListEmergencies(ctx context.Context) ([]model.Emergency, error)
	ListUsers(ctx context.Context) ([]model.UserProfile, error)
	UpdateEmergencyStatus(ctx context.Context, id string, status model.EmergencyStatus) error
}

// Notifier shows user feedback. *components.ToastQueue implements it.
type Notifier interface {
	Success(message string) string
	Error(message string) string
}

// Poller fetches the active tab's data periodically.
type Poller struct {
	backend  Backend
	notify   Notifier
	interval time.Duration

	mu          sync.Mutex
	tab         Tab
	emergencies []model.Emergency
	users       []model.UserProfile
	stats       model.SystemStats
	loading     bool
	updatedAt   time.Time
	gen         uint64
	cancel      context.CancelFunc
	done        chan struct{}
	onChange    func()
	rng         *rand.Rand
}

// NewPoller creates a poller. A non-positive interval uses DefaultInterval.
func NewPoller(backend Backend, notify Notifier, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		backend:  backend,
		notify:   notify,
		interval: interval,
		loading:  true,
		stats:    model.SystemStats{CPU: 12, Memory: 34, DB: "Healthy"},
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// OnChange registers fn to run after every fetch. It replaces any previous
// callback.
func (p *Poller) OnChange(fn func()) {
	p.mu.Lock()
	p.onChange = fn
	p.mu.Unlock()
}

// Enter makes tab active: it fetches now and then every interval until
// another Enter or Stop. Polling also ends when ctx is done.
func (p *Poller) Enter(ctx context.Context, tab Tab) {
	p.Stop()

	p.mu.Lock()
	p.tab = tab
	p.gen++
	gen := p.gen
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	log.Printf("DASHBOARD_ENTER | tab=%s interval=%v", tab, p.interval)
	go p.loop(ctx, gen, tab, done)
}

// Active reports whether polling is running.
func (p *Poller) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Stop ends polling and waits for an in-flight fetch to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.gen++
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (p *Poller) loop(ctx context.Context, gen uint64, tab Tab, done chan struct{}) {
	defer close(done)

	p.fetch(ctx, gen, tab)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.fetch(ctx, gen, tab)
		}
	}
}

// Refresh fetches the active tab once, outside the polling schedule.
func (p *Poller) Refresh(ctx context.Context) error {
	p.mu.Lock()
	gen, tab := p.gen, p.tab
	p.mu.Unlock()
	return p.fetch(ctx, gen, tab)
}

// fetch loads tab's data. Results are dropped if the active tab changed.
func (p *Poller) fetch(ctx context.Context, gen uint64, tab Tab) error {
	var (
		emergencies []model.Emergency
		users       []model.UserProfile
		err         error
	)
	switch tab {
	case TabEmergencies:
		emergencies, err = p.backend.ListEmergencies(ctx)
	case TabPatients:
		users, err = p.backend.ListUsers(ctx)
	}

	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		return nil
	}
	p.loading = false
	if err == nil {
		switch tab {
		case TabEmergencies:
			p.emergencies = emergencies
		case TabPatients:
			p.users = users
		}
		p.stats = p.mockStatsLocked()
		p.updatedAt = time.Now()
	}
	fn := p.onChange
	p.mu.Unlock()

	if err != nil {
		if ctx.Err() == nil {
			log.Printf("DASHBOARD_FETCH_FAILED | tab=%s error=%v", tab, err)
		}
	}
	if fn != nil {
		fn()
	}
	return err
}

// mockStatsLocked simulates host metrics.
func (p *Poller) mockStatsLocked() model.SystemStats {
	return model.SystemStats{
		CPU:    p.rng.Intn(20) + 10,
		Memory: p.rng.Intn(10) + 30,
		DB:     "Healthy",
	}
}

// UpdateStatus sets an emergency's status, reports the outcome as a toast
// and refreshes the active tab.
func (p *Poller) UpdateStatus(ctx context.Context, id string, status model.EmergencyStatus) error {
	if err := p.backend.UpdateEmergencyStatus(ctx, id, status); err != nil {
		log.Printf("DASHBOARD_STATUS_FAILED | id=%s status=%s error=%v", id, status, err)
		if p.notify != nil {
			p.notify.Error("Failed to update status")
		}
		return fmt.Errorf("failed to update status: %w", err)
	}

	log.Printf("DASHBOARD_STATUS_UPDATED | id=%s status=%s", id, status)
	if p.notify != nil {
		p.notify.Success("Status updated to " + string(status))
	}
	if err := p.Refresh(ctx); err != nil {
		log.Printf("DASHBOARD_REFRESH_FAILED | error=%v", err)
	}
	return nil
}

// Snapshot returns the current data.
func (p *Poller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{
		Tab:         p.tab,
		Emergencies: append([]model.Emergency(nil), p.emergencies...),
		Users:       append([]model.UserProfile(nil), p.users...),
		Stats:       p.stats,
		Loading:     p.loading,
		UpdatedAt:   p.updatedAt,
	}
}

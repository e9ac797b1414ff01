package report

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Monitor probes the reporting endpoint on an interval and signals online and
// offline transitions. It is the single source of the process connectivity
// flag; one monitor serves every protected region.
type Monitor struct {
	endpoint string
	interval time.Duration
	http     *http.Client
	onChange func(online bool)

	mu     sync.Mutex
	online bool

	stop chan struct{}
	done chan struct{}
}

// NewMonitor creates a connectivity monitor. onChange is invoked once per
// transition, never per probe.
func NewMonitor(endpoint string, interval time.Duration, onChange func(online bool)) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{
		endpoint: endpoint,
		interval: interval,
		http:     &http.Client{Timeout: 5 * time.Second},
		onChange: onChange,
		online:   true,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins probing in the background.
func (m *Monitor) Start(ctx context.Context) {
	go m.loop(ctx)
}

func (m *Monitor) loop(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stop:
			return
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	ok := false
	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, m.endpoint, nil)
	if err == nil {
		resp, err := m.http.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			ok = resp.StatusCode < 500
		}
	}

	m.mu.Lock()
	changed := ok != m.online
	m.online = ok
	m.mu.Unlock()

	if changed {
		if ok {
			slog.Info("Reporting endpoint reachable again")
		} else {
			slog.Warn("Reporting endpoint unreachable, queueing fault reports")
		}
		if m.onChange != nil {
			m.onChange(ok)
		}
	}
}

// Online returns the last observed connectivity state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Stop halts probing and waits for the loop to exit.
func (m *Monitor) Stop() {
	close(m.stop)
	<-m.done
}

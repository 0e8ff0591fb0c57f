package recon

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// mockProber is a configurable Prober. Hosts listed in up answer pings;
// neighbors maps an address to the MAC its ARP lookup returns.
type mockProber struct {
	up        map[string]bool
	neighbors map[string]string
	reachErr  map[string]error
	neighErr  map[string]error
	panicOn   string
	delay     time.Duration

	// onReach, if set, runs at the start of every Reachable call.
	onReach func(addr string)

	mu    sync.Mutex
	calls map[string]int

	inflight    atomic.Int32
	maxInflight atomic.Int32
}

func newMockProber() *mockProber {
	return &mockProber{
		up:        map[string]bool{},
		neighbors: map[string]string{},
		reachErr:  map[string]error{},
		neighErr:  map[string]error{},
		calls:     map[string]int{},
	}
}

// withHost marks addr reachable with the given neighbor entry.
func (m *mockProber) withHost(addr, mac string) *mockProber {
	m.up[addr] = true
	m.neighbors[addr] = mac
	return m
}

// withDelay makes every reachability check take d.
func (m *mockProber) withDelay(d time.Duration) *mockProber {
	m.delay = d
	return m
}

// Compile-time interface guard.
var _ Prober = (*mockProber)(nil)

func (m *mockProber) Reachable(ctx context.Context, addr string) (bool, error) {
	n := m.inflight.Add(1)
	defer m.inflight.Add(-1)
	for {
		cur := m.maxInflight.Load()
		if n <= cur || m.maxInflight.CompareAndSwap(cur, n) {
			break
		}
	}

	m.mu.Lock()
	m.calls[addr]++
	m.mu.Unlock()

	if m.onReach != nil {
		m.onReach(addr)
	}
	if addr == m.panicOn {
		panic("probe exploded")
	}
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	if err := m.reachErr[addr]; err != nil {
		return false, err
	}
	return m.up[addr], nil
}

func (m *mockProber) Neighbor(_ context.Context, addr string) (string, bool, error) {
	if err := m.neighErr[addr]; err != nil {
		return "", false, err
	}
	mac, ok := m.neighbors[addr]
	return mac, ok && mac != "", nil
}

// callCounts returns a copy of the per-address call counts.
func (m *mockProber) callCounts() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.calls))
	for k, v := range m.calls {
		out[k] = v
	}
	return out
}

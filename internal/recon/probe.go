package recon

import (
	"context"
	"errors"
	"fmt"

	"github.com/HerbHall/lanscan/pkg/models"
)

// ErrProbeFailed wraps failures of the reachability or neighbor-table
// facilities. It is fatal to the worker that hit it.
var ErrProbeFailed = errors.New("probe failed")

// ReachabilityChecker reports whether a host answers a single echo request.
// No reply is (false, nil); an error means the check itself could not run.
type ReachabilityChecker interface {
	Reachable(ctx context.Context, addr string) (bool, error)
}

// NeighborTable resolves an IPv4 address to its hardware address. A
// missing entry is ("", false, nil).
type NeighborTable interface {
	Neighbor(ctx context.Context, addr string) (mac string, found bool, err error)
}

// Prober is the capability a worker needs to probe one address.
type Prober interface {
	ReachabilityChecker
	NeighborTable
}

// NeighborProber combines a reachability checker and a neighbor table.
type NeighborProber struct {
	ReachabilityChecker
	NeighborTable
}

// Compile-time interface guard.
var _ Prober = NeighborProber{}

// Probe checks one address. It returns nil with a nil error when the host
// does not answer or has no usable neighbor entry yet; neither case is
// retried within the pass.
func Probe(ctx context.Context, p Prober, addr string) (*models.HostRecord, error) {
	up, err := p.Reachable(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("%w: reachability check for %s: %w", ErrProbeFailed, addr, err)
	}
	if !up {
		return nil, nil
	}

	mac, found, err := p.Neighbor(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("%w: neighbor lookup for %s: %w", ErrProbeFailed, addr, err)
	}
	if !found {
		return nil, nil
	}

	rec := models.NewHostRecord(addr, mac)
	return &rec, nil
}

package recon

import (
	"context"
	"fmt"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

// ICMPChecker sends a single echo request per check via pro-bing.
type ICMPChecker struct {
	timeout    time.Duration
	privileged bool
}

// Compile-time interface guard.
var _ ReachabilityChecker = (*ICMPChecker)(nil)

// NewICMPChecker creates a checker that waits at most timeout for a reply.
// Privileged mode uses raw sockets; otherwise unprivileged UDP ICMP is used,
// which on Linux requires net.ipv4.ping_group_range to include the process.
func NewICMPChecker(timeout time.Duration, privileged bool) *ICMPChecker {
	return &ICMPChecker{
		timeout:    timeout,
		privileged: privileged,
	}
}

// Reachable pings addr once. Losing the packet is not an error; failing to
// create or run the pinger is.
func (c *ICMPChecker) Reachable(ctx context.Context, addr string) (bool, error) {
	pinger, err := probing.NewPinger(addr)
	if err != nil {
		return false, fmt.Errorf("create pinger: %w", err)
	}

	pinger.Count = 1
	pinger.Timeout = c.timeout
	pinger.SetPrivileged(c.privileged)

	// Run pinger in a goroutine for context cancellation.
	done := make(chan error, 1)
	go func() {
		done <- pinger.Run()
	}()

	select {
	case runErr := <-done:
		if runErr != nil {
			return false, fmt.Errorf("ping %s: %w", addr, runErr)
		}
		return pinger.Statistics().PacketsRecv > 0, nil

	case <-ctx.Done():
		pinger.Stop()
		return false, ctx.Err()
	}
}

// Package recon implements the concurrent LAN scan engine: address
// distribution, per-address probing, aggregation and the pass scheduler.
package recon

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/HerbHall/lanscan/internal/config"
	"github.com/HerbHall/lanscan/pkg/models"
)

// NewProber returns the production prober: one ICMP echo per address
// followed by a lookup in the configured ARP table.
func NewProber(s *config.Settings) NeighborProber {
	return NeighborProber{
		ReachabilityChecker: NewICMPChecker(s.ProbeTimeout, s.Privileged),
		NeighborTable:       NewARPTable(s.ARPTablePath),
	}
}

// NewSchedulerConfig converts validated settings into the static pass input.
// The local host keeps its configured identity verbatim.
func NewSchedulerConfig(s *config.Settings) (SchedulerConfig, error) {
	subnet, err := ParseSubnet(s.SubnetCIDR)
	if err != nil {
		return SchedulerConfig{}, fmt.Errorf("subnet: %w", err)
	}
	return SchedulerConfig{
		Subnet:    subnet,
		Local:     models.HostRecord{IPv4: s.HostIPv4, MAC: s.HostMAC},
		Workers:   s.Workers,
		ProbeRate: s.ProbeRate,
	}, nil
}

// New builds a scheduler for settings that probes with prober and
// publishes to pub.
func New(s *config.Settings, prober Prober, pub Publisher, logger *zap.Logger, opts ...SchedulerOption) (*Scheduler, error) {
	cfg, err := NewSchedulerConfig(s)
	if err != nil {
		return nil, err
	}
	return NewScheduler(cfg, prober, pub, logger.Named("recon"), opts...), nil
}

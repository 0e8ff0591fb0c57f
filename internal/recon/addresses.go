package recon

import (
	"errors"
	"fmt"
	"net"
	"sync/atomic"
)

// HostsPerSubnet is the number of probe candidates in a /24 (.1 through .254).
const HostsPerSubnet = 254

// ErrInvalidSubnet is returned when a CIDR is not an IPv4 /24.
var ErrInvalidSubnet = errors.New("subnet must be an IPv4 /24")

// Subnet is a validated IPv4 /24 scan range.
type Subnet struct {
	network [4]byte
}

// ParseSubnet parses an IPv4 /24 CIDR. Host bits, if set, are masked off.
func ParseSubnet(cidr string) (Subnet, error) {
	_, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		return Subnet{}, fmt.Errorf("%w: %q: %v", ErrInvalidSubnet, cidr, err)
	}
	ip := ipnet.IP.To4()
	if ones, bits := ipnet.Mask.Size(); ip == nil || bits != 32 || ones != 24 {
		return Subnet{}, fmt.Errorf("%w: %q", ErrInvalidSubnet, cidr)
	}
	var s Subnet
	copy(s.network[:], ip)
	return s, nil
}

// String returns the subnet in CIDR notation.
func (s Subnet) String() string {
	return fmt.Sprintf("%d.%d.%d.0/24", s.network[0], s.network[1], s.network[2])
}

// Hosts returns every probe candidate in ascending order, host octets 1..254.
func (s Subnet) Hosts() []string {
	hosts := make([]string, 0, HostsPerSubnet)
	for octet := 1; octet <= HostsPerSubnet; octet++ {
		hosts = append(hosts, fmt.Sprintf("%d.%d.%d.%d", s.network[0], s.network[1], s.network[2], octet))
	}
	return hosts
}

// AddressSource hands out each candidate of a pass exactly once to any
// number of concurrent workers. Next never blocks; once it has returned
// false the source is permanently exhausted.
type AddressSource struct {
	addrs  []string
	cursor atomic.Int64
}

// NewAddressSource returns a source over a copy of addrs.
func NewAddressSource(addrs []string) *AddressSource {
	a := make([]string, len(addrs))
	copy(a, addrs)
	return &AddressSource{addrs: a}
}

// Next claims the next unclaimed candidate. The claim is a single atomic
// increment, so a contended pull can not be mistaken for exhaustion.
func (s *AddressSource) Next() (string, bool) {
	i := s.cursor.Add(1) - 1
	if i >= int64(len(s.addrs)) {
		return "", false
	}
	return s.addrs[i], true
}

// Len returns the total number of candidates.
func (s *AddressSource) Len() int { return len(s.addrs) }

// Claimed returns how many candidates have been handed out.
func (s *AddressSource) Claimed() int {
	n := s.cursor.Load()
	if n > int64(len(s.addrs)) {
		return len(s.addrs)
	}
	return int(n)
}

// Remaining returns how many candidates are still unclaimed.
func (s *AddressSource) Remaining() int {
	return len(s.addrs) - s.Claimed()
}

// Exhausted reports whether every candidate has been claimed.
func (s *AddressSource) Exhausted() bool {
	return s.Remaining() == 0
}

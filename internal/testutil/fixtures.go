package testutil

import (
	"fmt"

	"github.com/HerbHall/lanscan/pkg/models"
)

// LocalHost is the self entry used across scan tests.
var LocalHost = models.HostRecord{IPv4: "10.0.0.5", MAC: "aa:bb:cc:dd:ee:ff"}

// NewHostRecord returns a record on 10.0.0.0/24 for the given host octet
// with a MAC derived from it.
func NewHostRecord(octet int, opts ...func(*models.HostRecord)) models.HostRecord {
	r := models.HostRecord{
		IPv4: fmt.Sprintf("10.0.0.%d", octet),
		MAC:  fmt.Sprintf("02:00:00:00:00:%02x", octet),
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// WithMAC sets the record's MAC address.
func WithMAC(mac string) func(*models.HostRecord) {
	return func(r *models.HostRecord) { r.MAC = mac }
}

// ARPTable renders entries (IP to MAC) as /proc/net/arp text.
func ARPTable(entries ...models.HostRecord) string {
	out := "IP address       HW type     Flags       HW address            Mask     Device\n"
	for _, e := range entries {
		out += fmt.Sprintf("%-16s 0x1         0x2         %-21s *        eth0\n", e.IPv4, e.MAC)
	}
	return out
}

package recon

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"strings"
)

// zeroMAC marks an ARP entry whose resolution has not completed.
const zeroMAC = "00:00:00:00:00:00"

// ARPTable looks up neighbors in a Linux /proc/net/arp formatted file.
// The file is re-read on every lookup so entries populated by the preceding
// ping are visible.
type ARPTable struct {
	path string
}

// Compile-time interface guard.
var _ NeighborTable = (*ARPTable)(nil)

// NewARPTable returns a table backed by the file at path.
func NewARPTable(path string) *ARPTable {
	return &ARPTable{path: path}
}

// Neighbor returns the first complete entry for addr. An unreadable table
// is an error; no matching row is not.
func (t *ARPTable) Neighbor(ctx context.Context, addr string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(t.path)
	if err != nil {
		return "", false, fmt.Errorf("read neighbor table: %w", err)
	}
	mac, ok := LookupARP(string(data), addr)
	return mac, ok, nil
}

// ParseARPTable parses /proc/net/arp output into an IP to MAC map. The
// header row, short rows, incomplete entries and unparseable MACs are
// skipped. When an address appears more than once the first entry wins.
func ParseARPTable(output string) map[string]string {
	table := make(map[string]string)
	scanARP(output, func(ip, mac string) bool {
		if _, exists := table[ip]; !exists {
			table[ip] = mac
		}
		return true
	})
	return table
}

// LookupARP returns the first complete entry for addr in output.
func LookupARP(output, addr string) (string, bool) {
	var found string
	scanARP(output, func(ip, mac string) bool {
		if ip == addr {
			found = mac
			return false
		}
		return true
	})
	return found, found != ""
}

// scanARP calls fn for each complete entry until fn returns false.
// Format: IP address, HW type, Flags, HW address, Mask, Device.
func scanARP(output string, fn func(ip, mac string) bool) {
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			continue
		}
		ip := net.ParseIP(fields[0]).To4()
		if ip == nil {
			continue // header or non-IPv4 row
		}
		hw, err := net.ParseMAC(fields[3])
		if err != nil || hw.String() == zeroMAC {
			continue
		}
		if !fn(ip.String(), hw.String()) {
			return
		}
	}
}

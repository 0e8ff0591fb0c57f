package recon

import (
	"slices"

	"github.com/HerbHall/lanscan/pkg/models"
)

// Aggregate deduplicates records by dotted-quad address, inserts local
// last so its configured identity always wins, and returns the result
// ordered by numeric address value.
func Aggregate(records []models.HostRecord, local models.HostRecord) []models.HostRecord {
	byAddr := make(map[string]models.HostRecord, len(records)+1)
	add := func(r models.HostRecord) {
		r.IPv4 = models.CanonicalIPv4(r.IPv4)
		byAddr[r.IPv4] = r
	}
	for _, r := range records {
		add(r)
	}
	add(local)

	out := make([]models.HostRecord, 0, len(byAddr))
	for _, r := range byAddr {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b models.HostRecord) int {
		return models.CompareIPv4(a.IPv4, b.IPv4)
	})
	return out
}

// BuildSnapshot aggregates a pass into the snapshot that will be published.
func BuildSnapshot(records []models.HostRecord, local models.HostRecord, t models.ScanTime) *models.Snapshot {
	hosts := Aggregate(records, local)
	return models.NewSnapshot(t, hosts, RenderTable(hosts))
}

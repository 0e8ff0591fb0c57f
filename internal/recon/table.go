package recon

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/HerbHall/lanscan/pkg/models"
)

// RenderTable renders records as a plain-text table with one row per host,
// in the order given.
func RenderTable(records []models.HostRecord) string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{r.IPv4, r.MAC})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("IPv4", "MAC").
		Rows(rows...).
		String()
}

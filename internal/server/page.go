package server

import (
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/HerbHall/lanscan/pkg/models"
)

var indexPage = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>lanscan</title>
</head>
<body>
<h1>lanscan</h1>
{{- if .Snapshot.IsPlaceholder}}
<p>Last scan: {{.Status.LastUTC}}</p>
{{- else}}
<p>Last scan: {{.Status.LastUTC}} ({{.Status.LastCount}} hosts in {{.Status.LastTimeSec}}s)</p>
<pre>{{.Snapshot.Table}}</pre>
{{- end}}
<p><a href="{{.Base}}/json">json</a> | <a href="{{.Base}}/status">status</a></p>
</body>
</html>
`))

type indexData struct {
	Base     string
	Snapshot *models.Snapshot
	Status   models.ScanStatus
}

// handleIndex renders the tabular form of the current snapshot.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.source.Current()
	data := indexData{
		Base:     s.base,
		Snapshot: snap,
		Status:   snap.Status().Status,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexPage.Execute(w, data); err != nil {
		s.logger.Debug("render index", zap.Error(err))
	}
}

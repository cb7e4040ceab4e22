package web

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/RezaEskandarii/driveq/internal/state"
)

//go:embed templates/*.html
var templateFiles embed.FS

var templates = template.Must(
	template.New("").Funcs(template.FuncMap{
		"StatusBadgeClass": StatusBadgeClass,
	}).ParseFS(templateFiles, "templates/*.html"),
)

func render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ExecuteTemplate(w, name+".html", data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func StatusBadgeClass(status state.JobStatus) string {
	switch status {
	case state.StatusQueued:
		return "badge bg-info"
	case state.StatusRunning:
		return "badge bg-primary"
	case state.StatusSucceeded:
		return "badge bg-success"
	case state.StatusFailed:
		return "badge bg-danger"
	case state.StatusRetrying:
		return "badge bg-warning"
	case state.StatusCancelled:
		return "badge bg-secondary"
	default:
		return "badge bg-light text-dark"
	}
}

package templates

import (
	"embed"
	"fmt"
	"html/template"
	"time"
)

//go:embed *.html static/*
var FS embed.FS

var funcMap = template.FuncMap{
	"formatTime": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02 15:04")
	},
	"formatDate": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02")
	},
	"shortSHA": func(sha string) string {
		if len(sha) > 7 {
			return sha[:7]
		}
		return sha
	},
}

// Load parses all embedded page templates
func Load() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(FS, "*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return tmpl, nil
}

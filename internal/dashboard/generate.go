// Package dashboard renders Grafana dashboards for batch results stored in GreptimeDB.
package dashboard

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

//go:embed templates/*.json.tmpl
var templates embed.FS

// Options are the values substituted into the dashboard templates.
type Options struct {
	TrialTable      string
	EngagementTable string
}

// DefaultOptions uses the table names of the default sink configuration.
var DefaultOptions = Options{TrialTable: "mc_trials", EngagementTable: "mc_engagements"}

// Render parses dashboard templates and writes rendered dashboards to outDir. Datasource uids
// come from the GREPTIMEDB_DATASOURCE_UID and PROMETHEUS_DATASOURCE_UID environment variables.
func Render(outDir string, opts Options) error {
	funcMap := template.FuncMap{
		"env": func(key string) (string, error) {
			v := os.Getenv(key)
			if v == "" {
				return "", fmt.Errorf("environment variable %s not set", key)
			}
			return v, nil
		},
	}

	names, err := templates.ReadDir("templates")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	for _, entry := range names {
		name := entry.Name()
		t, err := template.New(name).Funcs(funcMap).ParseFS(templates, "templates/"+name)
		if err != nil {
			return err
		}
		outPath := filepath.Join(outDir, strings.TrimSuffix(name, ".tmpl"))
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		if err := t.Execute(f, opts); err != nil {
			f.Close()
			return fmt.Errorf("render %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}

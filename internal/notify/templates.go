package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	layoutFile      = "templates/layout.html"
	genericTemplate = "generic"
)

// EmailData is the view model of every email template
type EmailData struct {
	AppName       string
	RecipientName string
	Title         string
	Message       string
	Link          string
	Details       map[string]string
}

// Templates renders transactional emails. Each content template is parsed
// together with the shared layout.
type Templates struct {
	byName map[string]*template.Template
}

func LoadTemplates() (*Templates, error) {
	entries, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	t := &Templates{byName: make(map[string]*template.Template)}
	for _, path := range entries {
		if path == layoutFile {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(path, "templates/"), ".html")
		tmpl, err := template.New(name).ParseFS(templateFS, layoutFile, path)
		if err != nil {
			return nil, fmt.Errorf("parse email template %s: %w", name, err)
		}
		t.byName[name] = tmpl
	}
	if _, ok := t.byName[genericTemplate]; !ok {
		return nil, fmt.Errorf("missing %s email template", genericTemplate)
	}
	return t, nil
}

// Render executes the template for name, falling back to the generic one
func (t *Templates) Render(name string, data EmailData) (string, error) {
	tmpl, ok := t.byName[name]
	if !ok {
		tmpl = t.byName[genericTemplate]
	}
	if data.Details == nil {
		data.Details = map[string]string{}
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("render email %s: %w", name, err)
	}
	return buf.String(), nil
}

// Has reports whether a dedicated template exists for name
func (t *Templates) Has(name string) bool {
	_, ok := t.byName[name]
	return ok
}

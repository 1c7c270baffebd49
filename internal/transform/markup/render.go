// Package markup renders page sources into HTML documents.
package markup

import (
	"bytes"
	"fmt"
	"html/template"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yuin/goldmark"
)

// PartialsDir holds templates every page can include with {{template "name.html" .}}.
const PartialsDir = "partials"

// Renderer renders *.html and *.twig pages as html/template documents and
// *.md pages through goldmark.
type Renderer struct {
	// Root is the page source directory; partials are loaded from Root/partials.
	Root string
	// Data is passed to every template, extended with Date and DateTime.
	Data map[string]any
}

// Supported reports whether name has a renderable extension.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".twig", ".md":
		return true
	}
	return false
}

// OutputName maps a page file name to its rendered file name.
func OutputName(name string) string {
	return strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)) + ".html"
}

// Render renders one page.
func (r Renderer) Render(name string, src []byte) ([]byte, error) {
	if strings.EqualFold(filepath.Ext(name), ".md") {
		return r.renderMarkdown(name, src)
	}
	return r.renderTemplate(name, src)
}

func (r Renderer) renderTemplate(name string, src []byte) ([]byte, error) {
	tpl := template.New(filepath.Base(name)).Option("missingkey=zero")
	if r.Root != "" {
		partials, err := filepath.Glob(filepath.Join(r.Root, PartialsDir, "*.html"))
		if err != nil {
			return nil, err
		}
		if len(partials) > 0 {
			if _, err := tpl.ParseFiles(partials...); err != nil {
				return nil, fmt.Errorf("parse partials: %w", err)
			}
		}
	}
	if _, err := tpl.Parse(string(src)); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(name), err)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, withBuiltinData(r.Data)); err != nil {
		return nil, fmt.Errorf("render %s: %w", filepath.Base(name), err)
	}
	return buf.Bytes(), nil
}

var page = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
{{.Body}}</body>
</html>
`))

func (r Renderer) renderMarkdown(name string, src []byte) ([]byte, error) {
	var body bytes.Buffer
	if err := goldmark.Convert(src, &body); err != nil {
		return nil, fmt.Errorf("convert %s: %w", filepath.Base(name), err)
	}
	var buf bytes.Buffer
	err := page.Execute(&buf, map[string]any{
		"Title": strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)),
		// goldmark escapes raw HTML unless WithUnsafe is set
		"Body": template.HTML(body.String()), //nolint:gosec // goldmark output
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func withBuiltinData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data)+2)
	maps.Copy(out, data)
	now := time.Now().UTC()
	if _, ok := out["Date"]; !ok {
		out["Date"] = now.Format("2006-01-02")
	}
	if _, ok := out["DateTime"]; !ok {
		out["DateTime"] = now.Format(time.RFC3339)
	}
	return out
}

// LoadPages lists the renderable pages directly under root, sorted.
func LoadPages(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && Supported(e.Name()) {
			out = append(out, filepath.Join(root, e.Name()))
		}
	}
	return out, nil
}

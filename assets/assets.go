// Package assets embeds the web pages and builds their minified form.
package assets

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/svg"
)

//go:embed *.tpl style.css script.js logo.svg
var files embed.FS

// PageData is injected into the page templates.
type PageData struct {
	CSS string
	JS  string
	SVG string
}

// Pages holds the rendered, minified site.
type Pages struct {
	Home        []byte
	CreatePoint []byte
	Logo        []byte
}

// Render minifies the stylesheet, script and logo, inlines them into the page
// templates and minifies the resulting HTML.
func Render() (*Pages, error) {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/html", html.Minify)
	m.AddFunc("text/javascript", js.Minify)
	m.AddFunc("image/svg+xml", svg.Minify)

	cssMin, err := minifyFile(m, "text/css", "style.css")
	if err != nil {
		return nil, err
	}
	jsMin, err := minifyFile(m, "text/javascript", "script.js")
	if err != nil {
		return nil, err
	}
	svgMin, err := minifyFile(m, "image/svg+xml", "logo.svg")
	if err != nil {
		return nil, err
	}

	data := PageData{CSS: cssMin, JS: jsMin, SVG: svgMin}

	home, err := renderPage(m, "home.html.tpl", data)
	if err != nil {
		return nil, err
	}
	createPoint, err := renderPage(m, "create-point.html.tpl", data)
	if err != nil {
		return nil, err
	}

	return &Pages{Home: home, CreatePoint: createPoint, Logo: []byte(svgMin)}, nil
}

func minifyFile(m *minify.M, mediatype, name string) (string, error) {
	raw, err := files.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}

	out, err := m.String(mediatype, string(raw))
	if err != nil {
		return "", fmt.Errorf("minify %s: %w", name, err)
	}
	return out, nil
}

func renderPage(m *minify.M, name string, data PageData) ([]byte, error) {
	tmpl, err := template.ParseFS(files, name)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute %s: %w", name, err)
	}

	out, err := m.Bytes("text/html", buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("minify %s: %w", name, err)
	}
	return out, nil
}

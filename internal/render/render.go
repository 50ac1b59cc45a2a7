// Package render turns controller state into the HTML the page swaps in.
package render

import (
	"bytes"
	"embed"
	"html/template"
	"strings"

	"github.com/yanqian/ask-console/internal/domain/page"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	fragments = template.Must(template.New("fragments").Funcs(template.FuncMap{
		"lineBreaks": lineBreaks,
	}).ParseFS(templateFS, "templates/fragments.html"))
	index = template.Must(template.ParseFS(templateFS, "templates/index.html"))
)

// IndexData is the full page model.
type IndexData struct {
	Title     string
	CSRFToken string
	Options   template.HTML
	Panel     template.HTML
	Notice    template.HTML
	HasPanel  bool
}

type optionsData struct {
	Options  []page.ResponseTypeOption
	Selected string
}

// Panel renders the response container contents.
func Panel(panel page.Panel) (template.HTML, error) {
	return execute("panel", panel)
}

// Options renders the radio list for the response types.
func Options(options []page.ResponseTypeOption, selected string) (template.HTML, error) {
	return execute("options", optionsData{Options: options, Selected: selected})
}

// Notice renders a reload message.
func Notice(message string) (template.HTML, error) {
	return execute("notice", message)
}

// Index renders the whole page.
func Index(data IndexData) ([]byte, error) {
	var buf bytes.Buffer
	if err := index.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func execute(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := fragments.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// lineBreaks escapes text and turns newlines into <br> tags.
func lineBreaks(text string) template.HTML {
	escaped := template.HTMLEscapeString(text)
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
}

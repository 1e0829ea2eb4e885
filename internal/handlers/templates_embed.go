package handlers

import (
	"embed"
	"html/template"
)

// TemplatesFS embeds the server-rendered pages
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// LoadTemplates parses the embedded pages; names are the file base names
func LoadTemplates() (*template.Template, error) {
	return template.ParseFS(TemplatesFS, "templates/*.html")
}

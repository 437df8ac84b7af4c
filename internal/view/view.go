package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"

	"github.com/dustin/go-humanize"

	"github.com/angeloszaimis/azure-vote/internal/vote"
)

//go:embed templates/index.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// Page is the data handed to the index template.
type Page struct {
	vote.Results
	CSRFField template.HTML
}

type Renderer struct {
	index *template.Template
}

func New() (*Renderer, error) {
	funcs := template.FuncMap{
		"comma": humanize.Comma,
	}

	t, err := template.New("index.html").Funcs(funcs).ParseFS(templatesFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse index template: %w", err)
	}

	return &Renderer{index: t}, nil
}

// Render executes the template into a buffer first so a template error never
// leaves a half-written page behind.
func (r *Renderer) Render(w io.Writer, page Page) error {
	var buf bytes.Buffer
	if err := r.index.Execute(&buf, page); err != nil {
		return fmt.Errorf("render index: %w", err)
	}

	_, err := buf.WriteTo(w)
	return err
}

// Static serves the embedded stylesheet. Mount it under /static/ with the
// prefix stripped.
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}

package report

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nirvana-analytics/healthreport/dsl"
	"github.com/nirvana-analytics/healthreport/layout"
	"github.com/nirvana-analytics/healthreport/renderer"
	canvasrenderer "github.com/nirvana-analytics/healthreport/renderer/canvas"
)

//go:embed templates/health.tmpl
var healthTemplate []byte

// DefaultTemplate parses the built-in health report template.
func DefaultTemplate() (*dsl.Document, error) {
	doc, err := dsl.Parse(bytes.NewReader(healthTemplate))
	if err != nil {
		return nil, fmt.Errorf("parse built-in template: %w", err)
	}
	return doc, nil
}

// NarrativeSource produces the free-text analysis section, typically by
// calling an external generative service.
type NarrativeSource interface {
	Narrative(ctx context.Context, req Request) (string, error)
}

// StaticNarrative always returns the same text.
type StaticNarrative string

func (s StaticNarrative) Narrative(context.Context, Request) (string, error) {
	return string(s), nil
}

// NarrativeFunc adapts a function to NarrativeSource.
type NarrativeFunc func(ctx context.Context, req Request) (string, error)

func (f NarrativeFunc) Narrative(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Backend measures text for layout and writes the final file.
type Backend interface {
	layout.TextMeasurer
	renderer.Renderer
	LoadFonts() error
}

// Report is a generated document with its layout.
type Report struct {
	Document *layout.Document
	PDF      []byte
}

// Generator turns requests into PDF reports. It is safe for concurrent use;
// every call gets its own backend and layout engine.
type Generator struct {
	Template         *dsl.Document
	Narrative        NarrativeSource
	NarrativeTimeout time.Duration
	NewBackend       func() Backend
	Now              func() time.Time
}

func defaultBackend() Backend { return canvasrenderer.NewRenderer() }

// NewGenerator returns a generator for tmpl using the canvas PDF backend.
// narrative may be nil, in which case only Request.Narrative is used.
func NewGenerator(tmpl *dsl.Document, narrative NarrativeSource) *Generator {
	return &Generator{
		Template:         tmpl,
		Narrative:        narrative,
		NarrativeTimeout: 60 * time.Second,
		NewBackend:       defaultBackend,
		Now:              time.Now,
	}
}

// Generate validates req, resolves the narrative and loads fonts concurrently,
// then lays out and renders the report.
func (g *Generator) Generate(ctx context.Context, req Request) (*Report, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if g.Template == nil {
		return nil, fmt.Errorf("generator has no template")
	}
	newBackend := g.NewBackend
	if newBackend == nil {
		newBackend = defaultBackend
	}
	backend := newBackend()

	var narrative string
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		n, err := g.resolveNarrative(egCtx, req)
		narrative = n
		return err
	})
	eg.Go(func() error {
		if err := backend.LoadFonts(); err != nil {
			return fmt.Errorf("load fonts: %w", err)
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	doc, err := layout.Build(g.Template, req.Bindings(now(), narrative), layout.BuildOptions{Measurer: backend})
	if err != nil {
		return nil, fmt.Errorf("layout report: %w", err)
	}
	pdf, err := backend.Render(doc)
	if err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return &Report{Document: doc, PDF: pdf}, nil
}

func (g *Generator) resolveNarrative(ctx context.Context, req Request) (string, error) {
	if req.Narrative != "" || g.Narrative == nil {
		return req.Narrative, nil
	}
	if g.NarrativeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.NarrativeTimeout)
		defer cancel()
	}
	n, err := g.Narrative.Narrative(ctx, req)
	if err != nil {
		return "", fmt.Errorf("fetch narrative: %w", err)
	}
	return n, nil
}

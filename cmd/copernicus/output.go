package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/robert-malhotra/copernicus-cli/pkg/format"
	"github.com/robert-malhotra/copernicus-cli/pkg/stac"
)

const (
	outputText = "text"
	outputJSON = "json"
)

type printer struct {
	w        io.Writer
	mode     string
	renderer *format.Renderer
	printed  int
}

func newPrinter(w io.Writer, mode string) (*printer, error) {
	switch mode {
	case outputText:
		// lipgloss drops the colours when w is not a terminal.
		return &printer{w: w, mode: mode, renderer: format.NewStyledRenderer()}, nil
	case outputJSON:
		return &printer{w: w, mode: mode}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want %s or %s)", mode, outputText, outputJSON)
	}
}

func (p *printer) print(fc *stac.FeatureCollection) error {
	if p.mode == outputJSON {
		data, err := json.MarshalIndent(fc, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(p.w, string(data))
		return err
	}

	if len(fc.Features) == 0 {
		if p.printed == 0 {
			_, err := fmt.Fprintln(p.w, "no products found")
			return err
		}
		return nil
	}
	if p.printed > 0 {
		if _, err := fmt.Fprintln(p.w); err != nil {
			return err
		}
	}
	p.printed += len(fc.Features)
	_, err := fmt.Fprint(p.w, p.renderer.Render(fc))
	return err
}

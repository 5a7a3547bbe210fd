package ux

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Output formats accepted by --format
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Formatter writes one command result in the format chosen by --format.
type Formatter interface {
	Format(data interface{}) error
}

// StyledStringer is implemented by reports that can render with color
type StyledStringer interface {
	fmt.Stringer
	Styled(color bool) string
}

// FormatterOptions configures NewFormatter
type FormatterOptions struct {
	// Writer receives the output; os.Stdout when nil
	Writer io.Writer
	// NoColor renders styled reports without ANSI colors
	NoColor bool
}

// NewFormatter returns the formatter for format. An empty format means text.
func NewFormatter(format string, opts *FormatterOptions) (Formatter, error) {
	o := FormatterOptions{}
	if opts != nil {
		o = *opts
	}
	if o.Writer == nil {
		o.Writer = os.Stdout
	}

	switch strings.ToLower(format) {
	case FormatText, "":
		return textFormatter{w: o.Writer, color: !o.NoColor}, nil
	case FormatJSON:
		return jsonFormatter{w: o.Writer}, nil
	case FormatYAML:
		return yamlFormatter{w: o.Writer}, nil
	default:
		return nil, fmt.Errorf("unknown format: %s (supported: text, json, yaml)", format)
	}
}

type jsonFormatter struct {
	w io.Writer
}

func (f jsonFormatter) Format(data interface{}) error {
	enc := json.NewEncoder(f.w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(data)
}

type yamlFormatter struct {
	w io.Writer
}

func (f yamlFormatter) Format(data interface{}) error {
	enc := yaml.NewEncoder(f.w)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return err
	}
	return enc.Close()
}

// textFormatter prints reports for people: styled when the value knows
// how, otherwise through String.
type textFormatter struct {
	w     io.Writer
	color bool
}

func (f textFormatter) Format(data interface{}) error {
	var text string
	switch v := data.(type) {
	case string:
		text = v
	case StyledStringer:
		text = v.Styled(f.color)
	case fmt.Stringer:
		text = v.String()
	default:
		return fmt.Errorf("text output is not available for %T; use --format json or yaml", data)
	}
	_, err := fmt.Fprintln(f.w, text)
	return err
}

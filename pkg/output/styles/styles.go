// Package styles defines the visual styling for qlbundle's terminal output.
//
// Styles have semantic names ("Pack", "Success") and adaptive colors that
// adjust to light and dark terminal themes. The defaults are embedded from
// styles.yaml and can be replaced with LoadStylesFile.
package styles

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

//go:embed styles.yaml
var defaultStyles []byte

// ColorDef represents an adaptive color definition in YAML
type ColorDef struct {
	Light string `yaml:"light"`
	Dark  string `yaml:"dark"`
}

// StyleDef represents a style definition in YAML
type StyleDef struct {
	Bold         bool   `yaml:"bold,omitempty"`
	Italic       bool   `yaml:"italic,omitempty"`
	Underline    bool   `yaml:"underline,omitempty"`
	Foreground   string `yaml:"foreground,omitempty"`
	Background   string `yaml:"background,omitempty"`
	Width        int    `yaml:"width,omitempty"`
	Align        string `yaml:"align,omitempty"`
	MarginLeft   int    `yaml:"marginLeft,omitempty"`
	PaddingLeft  int    `yaml:"paddingLeft,omitempty"`
	PaddingRight int    `yaml:"paddingRight,omitempty"`
}

// Config represents the complete styles configuration
type Config struct {
	Colors map[string]ColorDef `yaml:"colors"`
	Styles map[string]StyleDef `yaml:"styles"`
}

var current Config

// StyleRegistry maps semantic names to lipgloss styles bound to the default
// renderer.
var StyleRegistry map[string]lipgloss.Style

func init() {
	if err := LoadStyles(defaultStyles); err != nil {
		panic(fmt.Sprintf("failed to load embedded styles: %v", err))
	}
}

// DefaultContent returns the embedded styles.yaml.
func DefaultContent() []byte {
	return defaultStyles
}

// LoadStyles replaces the active configuration with the given YAML.
func LoadStyles(data []byte) error {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("failed to parse styles: %w", err)
	}
	for name, def := range cfg.Styles {
		for _, ref := range []string{def.Foreground, def.Background} {
			if _, ok := cfg.Colors[ref]; ref != "" && !ok {
				return fmt.Errorf("style %s references unknown color %q", name, ref)
			}
		}
	}

	current = cfg
	StyleRegistry = Build(lipgloss.DefaultRenderer())
	return nil
}

// LoadStylesFile loads a user supplied styles file.
func LoadStylesFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read styles file %s: %w", path, err)
	}
	return LoadStyles(data)
}

// Build returns the active styles bound to r, so that color detection follows
// r's output rather than stdout.
func Build(r *lipgloss.Renderer) map[string]lipgloss.Style {
	registry := make(map[string]lipgloss.Style, len(current.Styles))
	for name, def := range current.Styles {
		registry[name] = buildStyle(r, def)
	}
	return registry
}

func color(name string) lipgloss.AdaptiveColor {
	def := current.Colors[name]
	return lipgloss.AdaptiveColor{Light: def.Light, Dark: def.Dark}
}

func buildStyle(r *lipgloss.Renderer, def StyleDef) lipgloss.Style {
	style := r.NewStyle()

	if def.Bold {
		style = style.Bold(true)
	}
	if def.Italic {
		style = style.Italic(true)
	}
	if def.Underline {
		style = style.Underline(true)
	}
	if def.Foreground != "" {
		style = style.Foreground(color(def.Foreground))
	}
	if def.Background != "" {
		style = style.Background(color(def.Background))
	}

	if def.Width > 0 {
		style = style.Width(def.Width)
	}
	switch def.Align {
	case "left":
		style = style.Align(lipgloss.Left)
	case "center":
		style = style.Align(lipgloss.Center)
	case "right":
		style = style.Align(lipgloss.Right)
	}

	if def.MarginLeft > 0 {
		style = style.MarginLeft(def.MarginLeft)
	}
	if def.PaddingLeft > 0 || def.PaddingRight > 0 {
		style = style.Padding(0, def.PaddingRight, 0, def.PaddingLeft)
	}
	return style
}

// GetStyle safely retrieves a style from the registry
func GetStyle(name string) lipgloss.Style {
	if style, ok := StyleRegistry[name]; ok {
		return style
	}
	return lipgloss.NewStyle()
}

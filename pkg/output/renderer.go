package output

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/arthur-debert/qlbundle/pkg/errors"
	"github.com/arthur-debert/qlbundle/pkg/logging"
	"github.com/arthur-debert/qlbundle/pkg/output/styles"
	"github.com/arthur-debert/qlbundle/pkg/pipeline"
	"github.com/arthur-debert/qlbundle/pkg/types"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"github.com/pterm/pterm"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Renderer writes styled output to a writer.
type Renderer struct {
	templates *template.Template
	writer    io.Writer
	noColor   bool
	styles    map[string]lipgloss.Style
}

// ColorDisabled reports whether output to w should be plain: NO_COLOR is set,
// or w is not a terminal.
func ColorDisabled(w io.Writer) bool {
	if termenv.EnvNoColor() {
		return true
	}
	f, ok := w.(*os.File)
	if !ok {
		return true
	}
	return !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
}

// NewRenderer creates a renderer for w. Color is used only when noColor is
// false and ColorDisabled(w) is false.
func NewRenderer(w io.Writer, noColor bool) (*Renderer, error) {
	log := logging.GetLogger("output.Renderer")

	noColor = noColor || ColorDisabled(w)
	lg := lipgloss.NewRenderer(w)
	if noColor {
		lg.SetColorProfile(termenv.Ascii)
	}
	log.Debug().
		Bool("noColor", noColor).
		Str("colorProfile", fmt.Sprintf("%v", lg.ColorProfile())).
		Msg("Creating renderer")

	r := &Renderer{
		writer:  w,
		noColor: noColor,
		styles:  styles.Build(lg),
	}

	tmpl, err := template.New("output").Funcs(r.funcs()).ParseFS(templatesFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	r.templates = tmpl
	return r, nil
}

func (r *Renderer) style(name, text string) string {
	style, ok := r.styles[name]
	if !ok {
		return text
	}
	return style.Render(text)
}

func (r *Renderer) funcs() template.FuncMap {
	return template.FuncMap{
		"style": r.style,
		"duration": func(d time.Duration) string {
			return d.Round(time.Millisecond).String()
		},
		"list": func(names []string) string {
			if len(names) == 0 {
				return r.style("Muted", "none")
			}
			return strings.Join(names, ", ")
		},
		"pack": func(id types.Identity) string {
			return r.style("Pack", id.FullName()) + " " + r.style("Version", id.Version)
		},
	}
}

// RenderReport writes the summary of a pipeline run.
func (r *Renderer) RenderReport(report *pipeline.Report) error {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, "report.tmpl", report); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	_, err := io.Copy(r.writer, &buf)
	return err
}

// RenderPacks writes a table of the packs in a snapshot.
func (r *Renderer) RenderPacks(snapshot types.Snapshot) error {
	if len(snapshot.Packages) == 0 {
		_, err := fmt.Fprintf(r.writer, "%s\n", r.style("Muted", "no packs found in "+snapshot.Root))
		return err
	}

	data := pterm.TableData{{"Name", "Version", "Role", "Extractor", "Dependencies"}}
	for _, p := range snapshot.Packages {
		deps := make([]string, 0, len(p.Dependencies))
		for _, d := range p.Dependencies {
			deps = append(deps, d.Name+"@"+d.Constraint)
		}
		data = append(data, []string{p.FullName(), p.Version, p.Role.String(), p.CompatibilityTag, strings.Join(deps, " ")})
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return fmt.Errorf("failed to render pack table: %w", err)
	}
	if r.noColor {
		table = pterm.RemoveColorFromString(table)
	}
	_, err = fmt.Fprintln(r.writer, table)
	return err
}

// RenderError renders an error message and the details of a BundleError.
func (r *Renderer) RenderError(err error) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", r.style("Error", "Error:"), err.Error())

	details := errors.GetErrorDetails(err)
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s %v\n", r.style("Muted", k+":"), details[k])
	}

	_, writeErr := io.WriteString(r.writer, b.String())
	return writeErr
}

// RenderMessage renders a single line in the named style.
func (r *Renderer) RenderMessage(style, message string) error {
	_, err := fmt.Fprintln(r.writer, r.style(style, message))
	return err
}

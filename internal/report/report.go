// Package report renders the console summary: a styled endpoint table and
// aggregate statistics, with unprotected endpoints front and center.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/railscope/railscope/internal/controllers"
	"github.com/railscope/railscope/internal/domain"
)

var (
	colorGet     = lipgloss.Color("42")
	colorPost    = lipgloss.Color("220")
	colorPutLike = lipgloss.Color("39")
	colorDelete  = lipgloss.Color("196")
	colorEngine  = lipgloss.Color("201")
	colorDim     = lipgloss.Color("241")

	headerStyle = lipgloss.NewStyle().Bold(true)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Underline(true)

	okStyle      = lipgloss.NewStyle().Foreground(colorGet)
	dangerStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorDelete)
	unknownStyle = lipgloss.NewStyle().Foreground(colorPost)
	dimStyle     = lipgloss.NewStyle().Foreground(colorDim)
)

func verbStyle(verb string) lipgloss.Style {
	var color lipgloss.Color
	switch verb {
	case domain.VerbGet:
		color = colorGet
	case domain.VerbPost:
		color = colorPost
	case domain.VerbPut, domain.VerbPatch:
		color = colorPutLike
	case domain.VerbDelete:
		color = colorDelete
	case domain.VerbAny:
		color = colorEngine
	default:
		color = colorDim
	}
	return lipgloss.NewStyle().Bold(true).Foreground(color)
}

// Print writes the endpoint table and summary block. Without ShowAll only
// unprotected and unknown endpoints are listed; statistics always cover the
// full set.
func Print(w io.Writer, endpoints []domain.ResolvedEndpoint, opts domain.Options) {
	if len(endpoints) == 0 {
		fmt.Fprintln(w, unknownStyle.Render("No endpoints discovered."))
		return
	}

	display := endpoints
	title := "Discovered Endpoints"
	if !opts.ShowAll {
		display = filterDisplay(endpoints)
		title = "Unprotected Endpoints"
	}

	fmt.Fprintln(w, titleStyle.Render(title))
	printTable(w, display)
	fmt.Fprintln(w)
	printSummary(w, endpoints)
}

func filterDisplay(endpoints []domain.ResolvedEndpoint) []domain.ResolvedEndpoint {
	var out []domain.ResolvedEndpoint
	for _, e := range endpoints {
		if e.AuthStatus != domain.AuthAuthenticated {
			out = append(out, e)
		}
	}
	return out
}

func printTable(w io.Writer, endpoints []domain.ResolvedEndpoint) {
	sorted := make([]domain.ResolvedEndpoint, len(endpoints))
	copy(sorted, endpoints)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Path != sorted[j].Path {
			return sorted[i].Path < sorted[j].Path
		}
		return sorted[i].Verb < sorted[j].Verb
	})

	fmt.Fprintf(w, "%s %s %s %s\n",
		headerStyle.Render(pad("Method", 8)),
		headerStyle.Render(pad("Path", 40)),
		headerStyle.Render(pad("Controller#Action", 42)),
		headerStyle.Render("Auth"))

	for _, e := range sorted {
		fmt.Fprintf(w, "%s %s %s %s\n",
			verbStyle(e.Verb).Render(pad(e.Verb, 8)),
			pad(truncate(e.Path, 40), 40),
			pad(truncate(e.ControllerAction(), 42), 42),
			authCell(e))
	}
}

func authCell(e domain.ResolvedEndpoint) string {
	if e.Flags.EngineMount {
		return dimStyle.Render("engine")
	}
	switch e.AuthStatus {
	case domain.AuthAuthenticated:
		filters := authFilters(e.EffectiveFilters)
		return okStyle.Render("✓ " + strings.Join(filters, ", "))
	case domain.AuthUnprotected:
		return dangerStyle.Render("⚠ NONE")
	default:
		return unknownStyle.Render("? unknown")
	}
}

// authFilters picks at most two auth filter names for display.
func authFilters(filters []string) []string {
	var out []string
	for _, f := range filters {
		if !controllers.IsAuthFilter(f) {
			continue
		}
		out = append(out, f)
		if len(out) == 2 {
			break
		}
	}
	return out
}

func printSummary(w io.Writer, endpoints []domain.ResolvedEndpoint) {
	total := len(endpoints)
	var authenticated, unprotected, unknown, conditional, engines, dynamic int
	for _, e := range endpoints {
		switch e.AuthStatus {
		case domain.AuthAuthenticated:
			authenticated++
		case domain.AuthUnprotected:
			unprotected++
		default:
			unknown++
		}
		if e.Flags.Conditional {
			conditional++
		}
		if e.Flags.EngineMount {
			engines++
		}
		if e.Flags.Dynamic {
			dynamic++
		}
	}

	pct := func(n int) int { return n * 100 / total }

	fmt.Fprintln(w, headerStyle.Render("Summary:"))
	fmt.Fprintf(w, "  Total endpoints:   %4d\n", total)
	fmt.Fprintf(w, "  Authenticated:     %4d  (%d%%)\n", authenticated, pct(authenticated))
	if unprotected > 0 {
		fmt.Fprintln(w, dangerStyle.Render(fmt.Sprintf("  UNPROTECTED:       %4d  (%d%%)", unprotected, pct(unprotected))))
	} else {
		fmt.Fprintf(w, "  UNPROTECTED:       %4d  (0%%)\n", 0)
	}
	if unknown > 0 {
		fmt.Fprintf(w, "  Unknown auth:      %4d  (%d%%)\n", unknown, pct(unknown))
	}
	if conditional > 0 {
		fmt.Fprintf(w, "  Conditional:       %4d  (%d%%)\n", conditional, pct(conditional))
	}
	if engines > 0 {
		fmt.Fprintf(w, "  Mounted engines:   %4d  (%d%%)\n", engines, pct(engines))
	}
	if dynamic > 0 {
		fmt.Fprintln(w, unknownStyle.Render(fmt.Sprintf("  Dynamic routes:    %4d  (%d%%)", dynamic, pct(dynamic))))
	}
}

// Markdown renders the endpoint table as a GitHub-flavored markdown summary
// for CI step output.
func Markdown(endpoints []domain.ResolvedEndpoint) string {
	var b strings.Builder
	b.WriteString("## Endpoint Discovery\n\n")
	b.WriteString("| Method | Path | Controller#Action | Auth |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, e := range endpoints {
		auth := string(e.AuthStatus)
		if e.AuthStatus == domain.AuthUnprotected {
			auth = "**UNPROTECTED**"
		}
		fmt.Fprintf(&b, "| %s | `%s` | `%s` | %s |\n",
			e.Verb, e.Path, e.ControllerAction(), auth)
	}
	return b.String()
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}
	return s[:width-1] + "…"
}

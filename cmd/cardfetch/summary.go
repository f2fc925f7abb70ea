package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/ramonehamilton/cardfetch/internal/mtg/deck"
	"github.com/ramonehamilton/cardfetch/internal/mtg/deckfetch"
	"github.com/ramonehamilton/cardfetch/internal/mtg/printing"
)

// summaryWriter prints run reports, styled only when writing to a terminal.
type summaryWriter struct {
	w       io.Writer
	title   lipgloss.Style
	section lipgloss.Style
	warn    lipgloss.Style
	fail    lipgloss.Style
	dim     lipgloss.Style
}

func newSummaryWriter(w io.Writer) *summaryWriter {
	s := &summaryWriter{
		w:       w,
		title:   lipgloss.NewStyle(),
		section: lipgloss.NewStyle(),
		warn:    lipgloss.NewStyle(),
		fail:    lipgloss.NewStyle(),
		dim:     lipgloss.NewStyle(),
	}
	if !isTerminal(w) {
		return s
	}

	s.title = s.title.Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#1B7F3B", Dark: "#5FD787"})
	s.section = s.section.Bold(true)
	s.warn = s.warn.Foreground(lipgloss.AdaptiveColor{Light: "#9A6700", Dark: "#FFD75F"})
	s.fail = s.fail.Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#B3261E", Dark: "#FF5F5F"})
	s.dim = s.dim.Faint(true)
	return s
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Print writes the resolved cards, tokens, dropped tokens and failures.
func (s *summaryWriter) Print(report *deckfetch.Report, err error) {
	if report == nil {
		return
	}

	if len(report.Resolutions) > 0 {
		fmt.Fprintln(s.w, s.section.Render("Cards"))
		s.printResolutions(report.Resolutions)
	}

	if len(report.Tokens) > 0 {
		fmt.Fprintln(s.w, s.section.Render("Tokens"))
		s.printResolutions(report.Tokens)
	}

	if len(report.Warnings) > 0 {
		fmt.Fprintln(s.w, s.warn.Render(fmt.Sprintf("Dropped %d token(s)", len(report.Warnings))))
		for _, w := range report.Warnings {
			fmt.Fprintf(s.w, "  %s\n", w)
		}
	}

	if len(report.Unavailable) > 0 {
		fmt.Fprintln(s.w, s.warn.Render("Catalog unavailable for: "+strings.Join(report.Unavailable, ", ")))
	}

	var unresolved *deckfetch.UnresolvedError
	if errors.As(err, &unresolved) {
		fmt.Fprintln(s.w, s.fail.Render("Not found:"))
		for _, name := range unresolved.Names {
			fmt.Fprintf(s.w, "  %s\n", name)
		}
	}

	if report.Artwork != nil {
		fmt.Fprintf(s.w, "Artwork: %d written, %d unchanged\n", report.Artwork.Written, report.Artwork.Unchanged)
	}

	if err == nil {
		fmt.Fprintln(s.w, s.title.Render(fmt.Sprintf("Resolved %d card(s) and %d token(s) in %s",
			len(report.Resolutions), len(report.Tokens), report.Duration.Round(time.Millisecond))))
	}
	footer := "run " + report.RunID
	if report.Lookups.Count > 0 {
		footer += fmt.Sprintf(", %d lookups, p95 %.0fms", report.Lookups.Count, report.Lookups.P95)
	}
	fmt.Fprintln(s.w, s.dim.Render(footer))
}

func (s *summaryWriter) printResolutions(resolutions []printing.Resolution) {
	width := 0
	for _, res := range resolutions {
		width = max(width, lipgloss.Width(res.Entry.DisplayName()))
	}

	for _, res := range resolutions {
		p := res.Printing
		line := fmt.Sprintf("  %3dx %-*s  %s #%s", res.Entry.Quantity, width, res.Entry.DisplayName(), strings.ToUpper(p.SetCode), p.CollectorNumber)
		var notes []string
		if res.Entry.Section != deck.SectionMain {
			notes = append(notes, string(res.Entry.Section))
		}
		if p.Treatment != "" && p.Treatment != printing.TreatmentNormal {
			notes = append(notes, string(p.Treatment))
		}
		if res.Token && res.Source != "" {
			notes = append(notes, "from "+res.Source)
		}
		if len(notes) > 0 {
			line += " " + s.dim.Render("("+strings.Join(notes, ", ")+")")
		}
		fmt.Fprintln(s.w, line)
	}
}

package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
)

// importProgress shows a spinner on a terminal and logs progress otherwise.
type importProgress struct {
	spinner *pterm.SpinnerPrinter
	logger  zerolog.Logger
}

func startImportProgress(w io.Writer, logger zerolog.Logger) *importProgress {
	p := &importProgress{logger: logger}
	if !isTerminal(w) {
		return p
	}

	spinner, err := pterm.DefaultSpinner.WithWriter(w).Start("Importing printings")
	if err != nil {
		logger.Debug().Err(err).Msg("Spinner unavailable")
		return p
	}
	p.spinner = spinner
	return p
}

// Update receives the running import count.
func (p *importProgress) Update(imported int) {
	if p.spinner == nil {
		p.logger.Info().Int("imported", imported).Msg("Importing printings")
		return
	}
	p.spinner.UpdateText(fmt.Sprintf("Imported %s printings", humanize.Comma(int64(imported))))
}

// Stop ends the spinner.
func (p *importProgress) Stop(err error) {
	if p.spinner == nil {
		return
	}
	if err != nil {
		p.spinner.Fail("Import failed")
		return
	}
	p.spinner.Success("Import finished")
}

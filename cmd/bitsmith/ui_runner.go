package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"bitsmith/internal/conv"
	"bitsmith/internal/driver"
	"bitsmith/internal/layout"
	"bitsmith/internal/script"
	"bitsmith/internal/ui"
)

func converterFor(s *script.Script) *conv.Converter {
	lay := layout.New(s.Target, s.Types)
	return conv.New(s.Types, lay, s.Syms)
}

type batchOutcome struct {
	results []driver.Result
	err     error
}

func runBatchWithUI(ctx context.Context, title string, s *script.Script, opts driver.Options) ([]driver.Result, error) {
	events := make(chan driver.Event, 256)
	outcomeCh := make(chan batchOutcome, 1)

	names := make([]string, len(s.Reqs))
	for i, req := range s.Reqs {
		names[i] = req.Name
	}

	go func() {
		// Materialize closes the events channel when the batch is over.
		optsCopy := opts
		optsCopy.Events = events
		res, err := driver.Materialize(ctx, converterFor(s), s.Reqs, optsCopy)
		outcomeCh <- batchOutcome{results: res, err: err}
	}()

	model := ui.NewProgressModel(title, names, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}

package main

import (
	"os"

	"golang.org/x/term"

	"combat-mc/internal/config"
	"combat-mc/internal/results"
)

// sinkMode selects how progress is shown on the terminal.
type sinkMode int

const (
	sinkNone sinkMode = iota
	sinkStdout
	sinkTUI
)

// interactiveMode picks the TUI when stdout is a terminal, plain lines otherwise.
func interactiveMode(printOnly bool) sinkMode {
	if !printOnly && term.IsTerminal(int(os.Stdout.Fd())) {
		return sinkTUI
	}
	return sinkStdout
}

// newWriters sets up trial sinks based on the output section of cfg and the terminal mode.
// Closing the returned writer closes every sink.
func newWriters(cfg *config.BatchFile, mode sinkMode, scenarioName string, events bool) (*results.MultiWriter, error) {
	mw := results.NewMultiWriter()
	switch mode {
	case sinkTUI:
		mw.Add(results.NewTUIWriter(scenarioName))
	case sinkStdout:
		mw.Add(results.NewStdoutWriter(term.IsTerminal(int(os.Stdout.Fd())), events))
	}

	out := cfg.Output
	if out.LogFile != "" {
		eventPath := ""
		if events {
			eventPath = out.LogFile + ".events"
		}
		fw, err := results.NewFileWriter(out.LogFile, eventPath)
		if err != nil {
			mw.Close()
			return nil, err
		}
		mw.Add(fw)
	}

	if g := out.Greptime; g != nil && g.Endpoint != "" {
		gw, err := results.NewGreptimeDBWriter(g.Endpoint, g.Database, g.TrialTable, g.EngagementTable)
		if err != nil {
			mw.Close()
			return nil, err
		}
		mw.Add(gw)
	}
	return mw, nil
}

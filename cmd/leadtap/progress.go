package main

import (
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"

	"github.com/rendis/leadtap/internal/model"
)

// spinnerSink renders progress events as the suffix of a terminal spinner.
type spinnerSink struct {
	s *spinner.Spinner
}

func newSpinnerSink(w io.Writer) *spinnerSink {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " starting browser"
	return &spinnerSink{s: s}
}

func (p *spinnerSink) Start() { p.s.Start() }

func (p *spinnerSink) Stop() { p.s.Stop() }

func (p *spinnerSink) Report(e model.ProgressEvent) {
	p.s.Lock()
	p.s.Suffix = suffix(e)
	p.s.Unlock()
}

func suffix(e model.ProgressEvent) string {
	if e.Total == 0 {
		return " " + e.Status
	}
	return fmt.Sprintf(" [%d/%d] %s", e.Current, e.Total, e.Status)
}

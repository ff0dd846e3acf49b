package collector

import (
	"sync/atomic"

	"github.com/rendis/leadtap/internal/model"
)

// Sink receives progress events. Report is called synchronously from the
// collection loop and must return promptly.
type Sink interface {
	Report(model.ProgressEvent)
}

type SinkFunc func(model.ProgressEvent)

func (f SinkFunc) Report(e model.ProgressEvent) { f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(model.ProgressEvent) {})

// ChannelSink forwards events to a channel the caller drains. Events are
// dropped rather than blocking the run when the channel is full.
type ChannelSink struct {
	ch      chan<- model.ProgressEvent
	dropped atomic.Int64
}

func NewChannelSink(ch chan<- model.ProgressEvent) *ChannelSink {
	return &ChannelSink{ch: ch}
}

func (s *ChannelSink) Report(e model.ProgressEvent) {
	select {
	case s.ch <- e:
	default:
		s.dropped.Add(1)
	}
}

// Dropped returns how many events did not fit in the channel.
func (s *ChannelSink) Dropped() int64 {
	return s.dropped.Load()
}

// Stats are live counters of a run, safe to read while it is in flight.
type Stats struct {
	Candidates atomic.Int64
	Processed  atomic.Int64
	Collected  atomic.Int64
	Failed     atomic.Int64
	Analyzed   atomic.Int64
}

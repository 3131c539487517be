package metrics

import (
	coremetrics "github.com/fletescerealeros/fletes/core/metrics"
	"github.com/fletescerealeros/fletes/core/model"
)

// MultiSink fans every record out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink over the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

func (m *MultiSink) RecordMessage(action model.ActionKind) {
	for _, s := range m.Sinks {
		s.RecordMessage(action)
	}
}

func (m *MultiSink) RecordProposal(score float64) {
	for _, s := range m.Sinks {
		s.RecordProposal(score)
	}
}

func (m *MultiSink) RecordResolution(status model.ProposalStatus) {
	for _, s := range m.Sinks {
		s.RecordResolution(status)
	}
}

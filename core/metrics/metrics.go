// Package metrics defines the observability contract of the engine. Sinks
// live under infra/metrics; the core records, it never exports.
package metrics

import "github.com/fletescerealeros/fletes/core/model"

// Sink receives engine-level counters. Implementations must be safe for
// concurrent use and must never block the message flow.
type Sink interface {
	// RecordMessage counts one classified inbound message. action is empty
	// when the message produced no structured action.
	RecordMessage(action model.ActionKind)
	// RecordProposal counts one created match proposal and observes its score.
	RecordProposal(score float64)
	// RecordResolution counts one proposal resolution by outcome.
	RecordResolution(status model.ProposalStatus)
}

// NopSink discards everything. It is the default when metrics are disabled.
type NopSink struct{}

func (NopSink) RecordMessage(model.ActionKind)        {}
func (NopSink) RecordProposal(float64)                {}
func (NopSink) RecordResolution(model.ProposalStatus) {}

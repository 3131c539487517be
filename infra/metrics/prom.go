// Package metrics contains the Sink implementations: Prometheus counters,
// InfluxDB line-protocol writes, and a fan-out over both.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/fletescerealeros/fletes/core/metrics"
	"github.com/fletescerealeros/fletes/core/model"
)

// PromSink records engine counters as Prometheus metrics.
type PromSink struct {
	messages    *prometheus.CounterVec
	proposals   prometheus.Counter
	scores      prometheus.Histogram
	resolutions *prometheus.CounterVec
}

// NewPromSink registers the metrics on the default Prometheus registerer.
// The HTTP server exposing them is started separately.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global one.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	messages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fletes_messages_total",
		Help: "Total number of classified inbound messages",
	}, []string{"action"})
	proposals := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fletes_proposals_total",
		Help: "Total number of match proposals created",
	})
	scores := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fletes_proposal_score",
		Help:    "Compatibility score of created proposals",
		Buckets: prometheus.LinearBuckets(0, 10, 11),
	})
	resolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fletes_resolutions_total",
		Help: "Total number of resolved proposals",
	}, []string{"status"})

	if err := reg.Register(messages); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			messages = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(proposals); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			proposals = are.ExistingCollector.(prometheus.Counter)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(scores); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			scores = are.ExistingCollector.(prometheus.Histogram)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(resolutions); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			resolutions = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}

	return &PromSink{messages: messages, proposals: proposals, scores: scores, resolutions: resolutions}, nil
}

var _ coremetrics.Sink = (*PromSink)(nil)

// RecordMessage increments the per-action message counter.
func (s *PromSink) RecordMessage(action model.ActionKind) {
	label := string(action)
	if label == "" {
		label = "none"
	}
	s.messages.WithLabelValues(label).Inc()
}

// RecordProposal counts the proposal and observes its score.
func (s *PromSink) RecordProposal(score float64) {
	s.proposals.Inc()
	s.scores.Observe(score)
}

// RecordResolution increments the per-outcome resolution counter.
func (s *PromSink) RecordResolution(status model.ProposalStatus) {
	s.resolutions.WithLabelValues(string(status)).Inc()
}

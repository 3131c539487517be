// Package classify turns free-form chat text into a reply and an optional
// structured action. Two interchangeable engines exist: the rule engine, an
// ordered first-match-wins chain of lexical patterns, and the delegate
// engine backed by a generative model. Both honor the same contract.
package classify

import (
	"context"

	"github.com/fletescerealeros/fletes/core/geo"
	"github.com/fletescerealeros/fletes/core/logger"
	"github.com/fletescerealeros/fletes/core/model"
)

// Result is what a classification pass yields: the reply to send back and,
// when the message carried intent, a structured action for the orchestrator.
type Result struct {
	Reply  string
	Action *model.Action
}

// Engine classifies one inbound message. actor is nil for unknown senders.
type Engine interface {
	Classify(ctx context.Context, text string, actor *model.Actor, history []model.Turn) (Result, error)
}

// RuleEngine is the rule-based classifier. It is pure computation and never
// returns an error.
type RuleEngine struct {
	gaz   *geo.Gazetteer
	log   logger.Logger
	rules []rule
}

// input bundles the two views of a message the patterns run against: the
// normalized text for keyword matching and the original casing for
// proper-noun extraction.
type input struct {
	raw   string
	norm  string
	actor *model.Actor
}

// rule is one (predicate, handler) pair of the chain; ok reports a match.
type rule func(in input) (Result, bool)

// NewRuleEngine builds the rule chain. Rule order is part of the observable
// contract: evaluation stops at the first match.
func NewRuleEngine(gaz *geo.Gazetteer, log logger.Logger) *RuleEngine {
	if log == nil {
		log = logger.Nop{}
	}
	e := &RuleEngine{gaz: gaz, log: log}
	e.rules = []rule{
		e.emptyReturn,
		e.freightRequest,
		e.capacityOffer,
		e.availability,
		e.help,
		e.confirm,
		e.reject,
	}
	return e
}

// Classify runs the chain. Unknown senders only ever hit the registration
// branch; everything else requires a registered actor.
func (e *RuleEngine) Classify(_ context.Context, text string, actor *model.Actor, _ []model.Turn) (Result, error) {
	in := input{raw: text, norm: geo.Normalize(text), actor: actor}
	if actor == nil {
		return e.register(in), nil
	}
	for _, r := range e.rules {
		if res, ok := r(in); ok {
			if res.Action != nil {
				e.log.Debugf("classified action %s", res.Action.Kind)
			}
			return res, nil
		}
	}
	return e.fallback(in), nil
}

package eventbus

import "github.com/fletescerealeros/fletes/core/model"

// Event is the union of everything published on the engine's bus. Exactly
// one of the payload pointers is set per event.
type Event struct {
	MessageClassified *MessageClassified
	ProposalCreated   *ProposalCreated
	ProposalResolved  *ProposalResolved
}

// MessageClassified fires once per inbound message, after classification.
type MessageClassified struct {
	Phone  string
	Action model.ActionKind // empty when the message carried no action
}

// ProposalCreated fires for every match proposal written by the engine.
type ProposalCreated struct {
	ProposalID int64
	Score      float64
}

// ProposalResolved fires when a pending proposal is accepted or rejected.
type ProposalResolved struct {
	ProposalID int64
	Status     model.ProposalStatus
}

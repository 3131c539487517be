// Package store defines the persistence contract the engine depends on.
// Implementations live under infra/store; the core never assumes anything
// about durability, retries or transactions.
package store

import (
	"context"
	"errors"

	"github.com/fletescerealeros/fletes/core/model"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

// ActorUpdate carries the mutable actor fields. Empty strings mean
// "leave unchanged".
type ActorUpdate struct {
	Name     string
	Role     model.Role
	Locality string
}

// TripExtras are the optional fields of a trip event.
type TripExtras struct {
	Date         string
	TimeEstimate string
	Cereal       string
	Tons         float64
	CapacityTons float64
}

// Store is the persistence collaborator. List results join the owning
// actor's name, phone and locality into the returned events and proposals.
type Store interface {
	FindOrCreateActor(ctx context.Context, phone, name string, role model.Role, locality string) (model.Actor, error)
	GetActor(ctx context.Context, phone string) (model.Actor, error)
	UpdateActor(ctx context.Context, phone string, upd ActorUpdate) error

	CreateTripEvent(ctx context.Context, actorID int64, kind model.EventKind, origin, destination string, extras TripExtras) (model.TripEvent, error)
	// ListActiveTripEvents returns active events of the given kind, newest
	// first. An empty kind selects all kinds.
	ListActiveTripEvents(ctx context.Context, kind model.EventKind) ([]model.TripEvent, error)
	UpdateTripEventStatus(ctx context.Context, id int64, status model.EventStatus) error

	CreateMatchProposal(ctx context.Context, capacityEventID, demandEventID, capacityActorID, demandActorID int64, score float64) (model.MatchProposal, error)
	ListActiveMatchProposals(ctx context.Context) ([]model.MatchProposal, error)
	UpdateProposalStatus(ctx context.Context, id int64, status model.ProposalStatus) error
	// MostRecentPendingProposalForActor returns the newest proposal in
	// "proposed" state naming the actor on either side. Older pending
	// proposals for the same actor stay unreachable until this one is
	// resolved; that shadowing is intentional.
	MostRecentPendingProposalForActor(ctx context.Context, actorID int64) (model.MatchProposal, error)

	SaveConversation(ctx context.Context, phone, role, content string) error
	// ConversationHistory returns the last limit turns, oldest first.
	ConversationHistory(ctx context.Context, phone string, limit int) ([]model.Turn, error)

	Stats(ctx context.Context) (model.Stats, error)
}

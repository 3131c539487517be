package model

import "time"

// Role describes what an actor does in the corridor. An actor that both
// hauls and produces is widened to RoleBoth on its first freight request.
type Role string

const (
	RoleCarrier  Role = "carrier"
	RoleProducer Role = "producer"
	RoleBoth     Role = "both"
)

// Actor is a registered phone contact, created on first message.
type Actor struct {
	ID           int64
	Phone        string
	Name         string
	Role         Role
	Locality     string
	Active       bool
	RegisteredAt time.Time
}

// EventKind distinguishes the three declarable trip events.
type EventKind string

const (
	KindCapacityOffer  EventKind = "capacity_offer"
	KindCapacityReturn EventKind = "capacity_return"
	KindDemandRequest  EventKind = "demand_request"
)

// EventStatus is the lifecycle state of a trip event. Proposal creation and
// acceptance never change it; status transitions are the caller's job.
type EventStatus string

const (
	EventActive    EventStatus = "active"
	EventMatched   EventStatus = "matched"
	EventCompleted EventStatus = "completed"
	EventCancelled EventStatus = "cancelled"
)

// Date tags and placeholder values used across classification and scoring.
const (
	DateToday      = "today"
	DateFlexible   = "flexible"
	PlaceToConfirm = "to-confirm"
)

// TripEvent is a declared capacity or demand on a route.
type TripEvent struct {
	ID           int64
	ActorID      int64
	Kind         EventKind
	Origin       string
	Destination  string
	Cereal       string
	Tons         float64
	CapacityTons float64
	Date         string // DateToday, DateFlexible or empty
	TimeEstimate string
	Status       EventStatus
	CreatedAt    time.Time

	// Owner contact, joined by list queries so notification texts can be
	// built without a second lookup.
	OwnerName     string
	OwnerPhone    string
	OwnerLocality string
}

// ProposalStatus follows proposed -> accepted | rejected. Both outcomes are
// terminal for this engine.
type ProposalStatus string

const (
	ProposalProposed ProposalStatus = "proposed"
	ProposalAccepted ProposalStatus = "accepted"
	ProposalRejected ProposalStatus = "rejected"
)

// MatchProposal pairs one capacity event with one demand event at a score.
type MatchProposal struct {
	ID              int64
	CapacityEventID int64
	DemandEventID   int64
	CapacityActorID int64
	DemandActorID   int64
	Score           float64
	Status          ProposalStatus
	CreatedAt       time.Time

	// Party contact, joined by the store.
	CapacityName     string
	CapacityPhone    string
	CapacityLocality string
	DemandName       string
	DemandPhone      string
	DemandLocality   string
}

// Turn is one entry of a phone's conversation history.
type Turn struct {
	Role    string // "user" or "assistant"
	Content string
}

// Notification is an outbound text the caller must deliver. The engine never
// sends anything itself.
type Notification struct {
	ActorID int64
	Phone   string
	Text    string
}

// Stats aggregates registry counters for the stats command.
type Stats struct {
	Actors          int
	Carriers        int
	Producers       int
	ActiveEvents    int
	CapacityReturns int
	DemandRequests  int
	Proposals       int
	Accepted        int
}

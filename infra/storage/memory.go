// Package storage provides the store.Store implementations: an in-memory
// registry for tests and single-session chat, and a SQLite-backed one for
// everything durable.
package storage

import (
	"context"
	"sync"
	"time"

	"github.com/fletescerealeros/fletes/core/model"
	"github.com/fletescerealeros/fletes/core/store"
)

// Memory is a mutex-guarded in-process store. All list results carry the
// owner joins the contract promises.
type Memory struct {
	mu        sync.Mutex
	actors    []model.Actor
	events    []model.TripEvent
	proposals []model.MatchProposal
	convs     map[string][]model.Turn

	nextActor    int64
	nextEvent    int64
	nextProposal int64
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{convs: map[string][]model.Turn{}}
}

var _ store.Store = (*Memory)(nil)

func (m *Memory) FindOrCreateActor(_ context.Context, phone, name string, role model.Role, locality string) (model.Actor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.actors {
		if a.Phone == phone {
			return a, nil
		}
	}
	m.nextActor++
	a := model.Actor{
		ID: m.nextActor, Phone: phone, Name: name, Role: role,
		Locality: locality, Active: true, RegisteredAt: time.Now(),
	}
	m.actors = append(m.actors, a)
	return a, nil
}

func (m *Memory) GetActor(_ context.Context, phone string) (model.Actor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.actors {
		if a.Phone == phone {
			return a, nil
		}
	}
	return model.Actor{}, store.ErrNotFound
}

func (m *Memory) UpdateActor(_ context.Context, phone string, upd store.ActorUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.actors {
		if m.actors[i].Phone != phone {
			continue
		}
		if upd.Name != "" {
			m.actors[i].Name = upd.Name
		}
		if upd.Role != "" {
			m.actors[i].Role = upd.Role
		}
		if upd.Locality != "" {
			m.actors[i].Locality = upd.Locality
		}
		return nil
	}
	return store.ErrNotFound
}

func (m *Memory) CreateTripEvent(_ context.Context, actorID int64, kind model.EventKind, origin, destination string, extras store.TripExtras) (model.TripEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextEvent++
	ev := model.TripEvent{
		ID: m.nextEvent, ActorID: actorID, Kind: kind,
		Origin: origin, Destination: destination,
		Cereal: extras.Cereal, Tons: extras.Tons, CapacityTons: extras.CapacityTons,
		Date: extras.Date, TimeEstimate: extras.TimeEstimate,
		Status: model.EventActive, CreatedAt: time.Now(),
	}
	m.events = append(m.events, ev)
	return m.joinEvent(ev), nil
}

func (m *Memory) ListActiveTripEvents(_ context.Context, kind model.EventKind) ([]model.TripEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.TripEvent
	for i := len(m.events) - 1; i >= 0; i-- {
		ev := m.events[i]
		if ev.Status != model.EventActive {
			continue
		}
		if kind != "" && ev.Kind != kind {
			continue
		}
		out = append(out, m.joinEvent(ev))
	}
	return out, nil
}

func (m *Memory) UpdateTripEventStatus(_ context.Context, id int64, status model.EventStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.events {
		if m.events[i].ID == id {
			m.events[i].Status = status
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *Memory) CreateMatchProposal(_ context.Context, capacityEventID, demandEventID, capacityActorID, demandActorID int64, score float64) (model.MatchProposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextProposal++
	p := model.MatchProposal{
		ID: m.nextProposal, CapacityEventID: capacityEventID, DemandEventID: demandEventID,
		CapacityActorID: capacityActorID, DemandActorID: demandActorID,
		Score: score, Status: model.ProposalProposed, CreatedAt: time.Now(),
	}
	m.proposals = append(m.proposals, p)
	return m.joinProposal(p), nil
}

func (m *Memory) ListActiveMatchProposals(_ context.Context) ([]model.MatchProposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.MatchProposal
	for i := len(m.proposals) - 1; i >= 0; i-- {
		if m.proposals[i].Status == model.ProposalProposed {
			out = append(out, m.joinProposal(m.proposals[i]))
		}
	}
	return out, nil
}

func (m *Memory) UpdateProposalStatus(_ context.Context, id int64, status model.ProposalStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.proposals {
		if m.proposals[i].ID == id {
			m.proposals[i].Status = status
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *Memory) MostRecentPendingProposalForActor(_ context.Context, actorID int64) (model.MatchProposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.proposals) - 1; i >= 0; i-- {
		p := m.proposals[i]
		if p.Status != model.ProposalProposed {
			continue
		}
		if p.CapacityActorID == actorID || p.DemandActorID == actorID {
			return m.joinProposal(p), nil
		}
	}
	return model.MatchProposal{}, store.ErrNotFound
}

func (m *Memory) SaveConversation(_ context.Context, phone, role, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.convs[phone] = append(m.convs[phone], model.Turn{Role: role, Content: content})
	return nil
}

func (m *Memory) ConversationHistory(_ context.Context, phone string, limit int) ([]model.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	turns := m.convs[phone]
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]model.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (m *Memory) Stats(_ context.Context) (model.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var s model.Stats
	for _, a := range m.actors {
		s.Actors++
		// Role buckets are exclusive; a role-both actor counts in neither.
		switch a.Role {
		case model.RoleCarrier:
			s.Carriers++
		case model.RoleProducer:
			s.Producers++
		}
	}
	for _, ev := range m.events {
		if ev.Status != model.EventActive {
			continue
		}
		s.ActiveEvents++
		switch ev.Kind {
		case model.KindCapacityReturn:
			s.CapacityReturns++
		case model.KindDemandRequest:
			s.DemandRequests++
		}
	}
	for _, p := range m.proposals {
		s.Proposals++
		if p.Status == model.ProposalAccepted {
			s.Accepted++
		}
	}
	return s, nil
}

func (m *Memory) joinEvent(ev model.TripEvent) model.TripEvent {
	if a, ok := m.actorByID(ev.ActorID); ok {
		ev.OwnerName, ev.OwnerPhone, ev.OwnerLocality = a.Name, a.Phone, a.Locality
	}
	return ev
}

func (m *Memory) joinProposal(p model.MatchProposal) model.MatchProposal {
	if a, ok := m.actorByID(p.CapacityActorID); ok {
		p.CapacityName, p.CapacityPhone, p.CapacityLocality = a.Name, a.Phone, a.Locality
	}
	if a, ok := m.actorByID(p.DemandActorID); ok {
		p.DemandName, p.DemandPhone, p.DemandLocality = a.Name, a.Phone, a.Locality
	}
	return p
}

func (m *Memory) actorByID(id int64) (model.Actor, bool) {
	for _, a := range m.actors {
		if a.ID == id {
			return a, true
		}
	}
	return model.Actor{}, false
}

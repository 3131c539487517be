package proposal

import (
	"context"
	"strings"
	"testing"

	"github.com/fletescerealeros/fletes/core/logger"
	"github.com/fletescerealeros/fletes/core/match"
	"github.com/fletescerealeros/fletes/core/model"
	"github.com/fletescerealeros/fletes/core/store"
)

// fakeStore records proposal writes and serves a canned pending proposal.
type fakeStore struct {
	nextID   int64
	created  []model.MatchProposal
	statuses map[int64]model.ProposalStatus
	pending  *model.MatchProposal
}

func newFakeStore() *fakeStore {
	return &fakeStore{statuses: map[int64]model.ProposalStatus{}}
}

func (f *fakeStore) FindOrCreateActor(context.Context, string, string, model.Role, string) (model.Actor, error) {
	return model.Actor{}, nil
}
func (f *fakeStore) GetActor(context.Context, string) (model.Actor, error) {
	return model.Actor{}, store.ErrNotFound
}
func (f *fakeStore) UpdateActor(context.Context, string, store.ActorUpdate) error { return nil }
func (f *fakeStore) CreateTripEvent(context.Context, int64, model.EventKind, string, string, store.TripExtras) (model.TripEvent, error) {
	return model.TripEvent{}, nil
}
func (f *fakeStore) ListActiveTripEvents(context.Context, model.EventKind) ([]model.TripEvent, error) {
	return nil, nil
}
func (f *fakeStore) UpdateTripEventStatus(context.Context, int64, model.EventStatus) error {
	return nil
}

func (f *fakeStore) CreateMatchProposal(_ context.Context, capEventID, demEventID, capActorID, demActorID int64, score float64) (model.MatchProposal, error) {
	f.nextID++
	p := model.MatchProposal{
		ID:              f.nextID,
		CapacityEventID: capEventID,
		DemandEventID:   demEventID,
		CapacityActorID: capActorID,
		DemandActorID:   demActorID,
		Score:           score,
		Status:          model.ProposalProposed,
	}
	f.created = append(f.created, p)
	return p, nil
}

func (f *fakeStore) ListActiveMatchProposals(context.Context) ([]model.MatchProposal, error) {
	return nil, nil
}

func (f *fakeStore) UpdateProposalStatus(_ context.Context, id int64, st model.ProposalStatus) error {
	f.statuses[id] = st
	return nil
}

func (f *fakeStore) MostRecentPendingProposalForActor(context.Context, int64) (model.MatchProposal, error) {
	if f.pending == nil {
		return model.MatchProposal{}, store.ErrNotFound
	}
	return *f.pending, nil
}

func (f *fakeStore) SaveConversation(context.Context, string, string, string) error { return nil }
func (f *fakeStore) ConversationHistory(context.Context, string, int) ([]model.Turn, error) {
	return nil, nil
}
func (f *fakeStore) Stats(context.Context) (model.Stats, error) { return model.Stats{}, nil }

var _ store.Store = (*fakeStore)(nil)

func carrier() model.Actor {
	return model.Actor{ID: 1, Phone: "5492396000001", Name: "Raúl", Role: model.RoleCarrier, Locality: "Pehuajó"}
}

func capacityEvent() model.TripEvent {
	return model.TripEvent{ID: 10, ActorID: 1, Kind: model.KindCapacityReturn,
		Origin: "Rosario", Destination: "Pehuajó", TimeEstimate: "2 horas",
		OwnerName: "Raúl", OwnerPhone: "5492396000001", OwnerLocality: "Pehuajó"}
}

func demandEvent(id, actorID int64, phone string) model.TripEvent {
	return model.TripEvent{ID: id, ActorID: actorID, Kind: model.KindDemandRequest,
		Origin: "Carlos Casares", Destination: "Rosario", Cereal: "soja", Tons: 28,
		OwnerName: "María", OwnerPhone: phone, OwnerLocality: "Carlos Casares"}
}

func TestForCapacityCreatesPairsBestFirst(t *testing.T) {
	st := newFakeStore()
	e := New(st, logger.Nop{})

	cands := []match.Candidate{
		{Event: demandEvent(20, 2, "5492396000002"), Score: 95},
		{Event: demandEvent(21, 3, "5492396000003"), Score: 70},
	}
	created, notifs, err := e.ForCapacity(context.Background(), capacityEvent(), carrier(), cands)
	if err != nil {
		t.Fatal(err)
	}
	if len(st.created) != 2 {
		t.Fatalf("created %d proposals, want 2", len(st.created))
	}
	if len(created) != 2 || created[0].Score != 95 || created[1].Score != 70 {
		t.Fatalf("proposals out of order: %+v", created)
	}
	if len(notifs) != 4 {
		t.Fatalf("got %d notifications, want 4", len(notifs))
	}

	// First pair: teaser to the producer without a score, scored summary back.
	toDemand, toCapacity := notifs[0], notifs[1]
	if toDemand.Phone != "5492396000002" {
		t.Fatalf("teaser went to %s", toDemand.Phone)
	}
	if strings.Contains(toDemand.Text, "Score") {
		t.Fatalf("teaser leaks the score: %s", toDemand.Text)
	}
	if !strings.Contains(toDemand.Text, "Respondé \"sí\" o \"no\"") {
		t.Fatalf("teaser misses the prompt: %s", toDemand.Text)
	}
	if toCapacity.Phone != "5492396000001" || !strings.Contains(toCapacity.Text, "Score de compatibilidad: 95/100") {
		t.Fatalf("capacity summary wrong: %+v", toCapacity)
	}
}

func TestForCapacityCapsAtThree(t *testing.T) {
	st := newFakeStore()
	e := New(st, logger.Nop{})

	var cands []match.Candidate
	for i := 0; i < 5; i++ {
		cands = append(cands, match.Candidate{Event: demandEvent(int64(20+i), int64(2+i), "549"), Score: float64(90 - i)})
	}
	created, notifs, err := e.ForCapacity(context.Background(), capacityEvent(), carrier(), cands)
	if err != nil {
		t.Fatal(err)
	}
	if len(created) != MaxCapacityProposals || len(st.created) != MaxCapacityProposals {
		t.Fatalf("created %d proposals, want %d", len(st.created), MaxCapacityProposals)
	}
	if len(notifs) != 2*MaxCapacityProposals {
		t.Fatalf("got %d notifications, want %d", len(notifs), 2*MaxCapacityProposals)
	}
}

func TestForDemandSingleBest(t *testing.T) {
	st := newFakeStore()
	e := New(st, logger.Nop{})

	producer := model.Actor{ID: 2, Phone: "5492396000002", Name: "María", Role: model.RoleProducer, Locality: "Carlos Casares"}
	demand := demandEvent(20, 2, "5492396000002")
	cands := []match.Candidate{
		{Event: capacityEvent(), Score: 95},
		{Event: model.TripEvent{ID: 11, ActorID: 4, OwnerPhone: "549x"}, Score: 60},
	}
	created, notifs, err := e.ForDemand(context.Background(), demand, producer, cands)
	if err != nil {
		t.Fatal(err)
	}
	if len(st.created) != 1 {
		t.Fatalf("created %d proposals, want 1", len(st.created))
	}
	if len(created) != 1 || created[0].CapacityEventID != 10 || created[0].DemandEventID != 20 {
		t.Fatalf("wrong pairing: %+v", created)
	}
	if len(notifs) != 2 {
		t.Fatalf("got %d notifications, want 2", len(notifs))
	}
	if notifs[0].Phone != "5492396000001" || strings.Contains(notifs[0].Text, "Score") {
		t.Fatalf("carrier teaser wrong: %+v", notifs[0])
	}
	if !strings.Contains(notifs[1].Text, "Score de compatibilidad: 95/100") ||
		!strings.Contains(notifs[1].Text, "Te aviso cuando confirme") {
		t.Fatalf("producer summary wrong: %s", notifs[1].Text)
	}
}

func TestForDemandNoCandidates(t *testing.T) {
	st := newFakeStore()
	e := New(st, logger.Nop{})
	created, notifs, err := e.ForDemand(context.Background(), demandEvent(20, 2, "549"), model.Actor{ID: 2}, nil)
	if err != nil || notifs != nil || created != nil {
		t.Fatalf("want no-op, got %v / %v / %v", created, notifs, err)
	}
	if len(st.created) != 0 {
		t.Fatal("proposal created with no candidates")
	}
}

func pendingProposal() model.MatchProposal {
	return model.MatchProposal{
		ID: 7, CapacityEventID: 10, DemandEventID: 20,
		CapacityActorID: 1, DemandActorID: 2,
		Score: 95, Status: model.ProposalProposed,
		CapacityName: "Raúl", CapacityPhone: "5492396000001", CapacityLocality: "Pehuajó",
		DemandName: "María", DemandPhone: "5492396000002", DemandLocality: "Carlos Casares",
	}
}

func TestResolveAcceptRevealsBothContacts(t *testing.T) {
	st := newFakeStore()
	p := pendingProposal()
	st.pending = &p
	e := New(st, logger.Nop{})

	resolved, notifs, err := e.Resolve(context.Background(), carrier(), true)
	if err != nil {
		t.Fatal(err)
	}
	if st.statuses[7] != model.ProposalAccepted {
		t.Fatalf("status = %s, want accepted", st.statuses[7])
	}
	if resolved == nil || resolved.ID != 7 || resolved.Status != model.ProposalAccepted {
		t.Fatalf("resolved proposal wrong: %+v", resolved)
	}
	if len(notifs) != 2 {
		t.Fatalf("got %d notifications, want 2", len(notifs))
	}
	// Carrier confirmed, so the producer's contact goes to the carrier.
	if notifs[0].Phone != "5492396000001" || !strings.Contains(notifs[0].Text, "María") ||
		!strings.Contains(notifs[0].Text, "5492396000002") {
		t.Fatalf("confirmer notification wrong: %+v", notifs[0])
	}
	if notifs[1].Phone != "5492396000002" || !strings.Contains(notifs[1].Text, "Raúl") ||
		!strings.Contains(notifs[1].Text, "5492396000001") {
		t.Fatalf("counterparty notification wrong: %+v", notifs[1])
	}
}

func TestResolveAcceptFromDemandSide(t *testing.T) {
	st := newFakeStore()
	p := pendingProposal()
	st.pending = &p
	e := New(st, logger.Nop{})

	producer := model.Actor{ID: 2, Phone: "5492396000002", Name: "María", Locality: "Carlos Casares"}
	resolved, notifs, err := e.Resolve(context.Background(), producer, true)
	if err != nil {
		t.Fatal(err)
	}
	if resolved == nil || resolved.Status != model.ProposalAccepted {
		t.Fatalf("resolved proposal wrong: %+v", resolved)
	}
	if !strings.Contains(notifs[0].Text, "Raúl") || !strings.Contains(notifs[0].Text, "5492396000001") {
		t.Fatalf("producer should receive the carrier's contact: %s", notifs[0].Text)
	}
	if notifs[1].ActorID != 1 {
		t.Fatalf("counterparty should be the carrier, got actor %d", notifs[1].ActorID)
	}
}

func TestResolveRejectIsSilentToCounterparty(t *testing.T) {
	st := newFakeStore()
	p := pendingProposal()
	st.pending = &p
	e := New(st, logger.Nop{})

	resolved, notifs, err := e.Resolve(context.Background(), carrier(), false)
	if err != nil {
		t.Fatal(err)
	}
	if st.statuses[7] != model.ProposalRejected {
		t.Fatalf("status = %s, want rejected", st.statuses[7])
	}
	if resolved == nil || resolved.Status != model.ProposalRejected {
		t.Fatalf("resolved proposal wrong: %+v", resolved)
	}
	if len(notifs) != 0 {
		t.Fatalf("reject should notify nobody here, got %+v", notifs)
	}
}

func TestResolveWithoutPending(t *testing.T) {
	e := New(newFakeStore(), logger.Nop{})

	resolved, notifs, err := e.Resolve(context.Background(), carrier(), true)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != nil {
		t.Fatalf("no proposal should resolve, got %+v", resolved)
	}
	if len(notifs) != 1 || !strings.Contains(notifs[0].Text, "No encontré ninguna propuesta") {
		t.Fatalf("confirm notice wrong: %+v", notifs)
	}

	resolved, notifs, err = e.Resolve(context.Background(), carrier(), false)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != nil {
		t.Fatalf("no proposal should resolve, got %+v", resolved)
	}
	if len(notifs) != 1 || !strings.Contains(notifs[0].Text, "ninguna propuesta pendiente para rechazar") {
		t.Fatalf("reject notice wrong: %+v", notifs)
	}
}

package conversation_test

import (
	"context"
	"strings"
	"testing"

	"github.com/fletescerealeros/fletes/core/classify"
	"github.com/fletescerealeros/fletes/core/conversation"
	"github.com/fletescerealeros/fletes/core/geo"
	"github.com/fletescerealeros/fletes/core/logger"
	"github.com/fletescerealeros/fletes/core/match"
	"github.com/fletescerealeros/fletes/core/model"
	"github.com/fletescerealeros/fletes/core/proposal"
	"github.com/fletescerealeros/fletes/infra/storage"
	"github.com/fletescerealeros/fletes/internal/eventbus"
)

const (
	carrierPhone  = "5492396111111"
	producerPhone = "5492396222222"
)

func newHandler(t *testing.T) (*conversation.Handler, *storage.Memory, *eventbus.Bus[eventbus.Event]) {
	t.Helper()
	gaz := geo.Defaults()
	st := storage.NewMemory()
	bus := eventbus.New[eventbus.Event]()
	t.Cleanup(bus.Close)
	h := conversation.New(
		st,
		classify.NewRuleEngine(gaz, logger.Nop{}),
		match.NewScorer(gaz, logger.Nop{}),
		proposal.New(st, logger.Nop{}),
		bus, logger.Nop{},
	)
	return h, st, bus
}

func send(t *testing.T, h *conversation.Handler, phone, text string) conversation.Result {
	t.Helper()
	res, err := h.Handle(context.Background(), conversation.Inbound{Phone: phone, Text: text})
	if err != nil {
		t.Fatalf("Handle(%q): %v", text, err)
	}
	return res
}

func registerBoth(t *testing.T, h *conversation.Handler) {
	t.Helper()
	send(t, h, carrierPhone, "Hola, soy Raúl, camionero de Pehuajó")
	send(t, h, producerPhone, "Buenas, soy María, productora de Carlos Casares")
}

func TestRegistrationCreatesActor(t *testing.T) {
	h, st, _ := newHandler(t)

	res := send(t, h, carrierPhone, "Hola, soy Raúl, camionero de Pehuajó")
	if res.Action == nil || res.Action.Kind != model.ActionRegisterUser {
		t.Fatalf("expected REGISTER_USER, got %+v", res.Action)
	}
	a, err := st.GetActor(context.Background(), carrierPhone)
	if err != nil {
		t.Fatal(err)
	}
	if a.Name != "Raúl" || a.Role != model.RoleCarrier || a.Locality != "Pehuajó" {
		t.Fatalf("actor wrong: %+v", a)
	}
	// Both turns of the exchange are persisted.
	turns, _ := st.ConversationHistory(context.Background(), carrierPhone, 0)
	if len(turns) != 2 || turns[0].Role != "user" || turns[1].Role != "assistant" {
		t.Fatalf("history wrong: %+v", turns)
	}
}

func TestFreightRequestThenEmptyReturnProposesMatch(t *testing.T) {
	h, st, bus := newHandler(t)
	registerBoth(t, h)
	sub := bus.Subscribe()

	res := send(t, h, producerPhone, "Necesito sacar 28 tn de soja a Rosario")
	if res.Action == nil || res.Action.Kind != model.ActionFreightRequest {
		t.Fatalf("expected FREIGHT_REQUEST, got %+v", res.Action)
	}
	if len(res.Notifications) != 0 {
		t.Fatalf("no capacity registered yet, got notifications %+v", res.Notifications)
	}

	res = send(t, h, carrierPhone, "Vuelvo de Rosario en 2 horas")
	if res.Action == nil || res.Action.Kind != model.ActionEmptyReturn {
		t.Fatalf("expected EMPTY_RETURN, got %+v", res.Action)
	}
	if len(res.Notifications) != 2 {
		t.Fatalf("expected teaser + summary, got %+v", res.Notifications)
	}
	teaser, summary := res.Notifications[0], res.Notifications[1]
	if teaser.Phone != producerPhone || strings.Contains(teaser.Text, "Score") {
		t.Fatalf("producer teaser wrong: %+v", teaser)
	}
	if summary.Phone != carrierPhone || !strings.Contains(summary.Text, "Score de compatibilidad") {
		t.Fatalf("carrier summary wrong: %+v", summary)
	}

	pending, err := st.MostRecentPendingProposalForActor(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if pending.Score < match.MinScore {
		t.Fatalf("implausible score %v", pending.Score)
	}

	// The bus saw the classification and the proposal.
	var sawMessage, sawProposal bool
	for len(sub.C()) > 0 {
		e := <-sub.C()
		if e.MessageClassified != nil {
			sawMessage = true
		}
		if e.ProposalCreated != nil {
			sawProposal = true
		}
	}
	if !sawMessage || !sawProposal {
		t.Fatalf("bus missed events: message=%v proposal=%v", sawMessage, sawProposal)
	}
}

func TestConfirmRevealsContacts(t *testing.T) {
	h, st, _ := newHandler(t)
	registerBoth(t, h)
	send(t, h, producerPhone, "Necesito sacar 28 tn de soja a Rosario")
	send(t, h, carrierPhone, "Vuelvo de Rosario en 2 horas")

	res := send(t, h, carrierPhone, "Dale, lo tomo")
	if res.Action == nil || res.Action.Kind != model.ActionConfirmMatch {
		t.Fatalf("expected CONFIRM_MATCH, got %+v", res.Action)
	}
	if !strings.Contains(res.Reply, "María") || !strings.Contains(res.Reply, producerPhone) {
		t.Fatalf("reply should reveal the producer's contact: %s", res.Reply)
	}
	if len(res.Notifications) != 1 || res.Notifications[0].Phone != producerPhone ||
		!strings.Contains(res.Notifications[0].Text, carrierPhone) {
		t.Fatalf("producer should get the carrier's contact: %+v", res.Notifications)
	}
	if _, err := st.MostRecentPendingProposalForActor(context.Background(), 1); err == nil {
		t.Fatal("proposal should no longer be pending")
	}
}

func TestRejectIsQuiet(t *testing.T) {
	h, st, _ := newHandler(t)
	registerBoth(t, h)
	send(t, h, producerPhone, "Necesito sacar 28 tn de soja a Rosario")
	send(t, h, carrierPhone, "Vuelvo de Rosario en 2 horas")

	res := send(t, h, producerPhone, "No gracias")
	if res.Action == nil || res.Action.Kind != model.ActionRejectMatch {
		t.Fatalf("expected REJECT_MATCH, got %+v", res.Action)
	}
	if res.Reply == "" {
		t.Fatal("rejector should get an acknowledgement")
	}
	if len(res.Notifications) != 0 {
		t.Fatalf("counterparty must not be notified on reject: %+v", res.Notifications)
	}
	if _, err := st.MostRecentPendingProposalForActor(context.Background(), 2); err == nil {
		t.Fatal("proposal should no longer be pending")
	}
}

func TestConfirmWithoutPendingProposal(t *testing.T) {
	h, _, _ := newHandler(t)
	registerBoth(t, h)

	res := send(t, h, carrierPhone, "Confirmo")
	if !strings.Contains(res.Reply, "No encontré ninguna propuesta") {
		t.Fatalf("expected the no-pending notice, got %q", res.Reply)
	}
}

func TestCarrierFreightRequestWidensRole(t *testing.T) {
	h, st, _ := newHandler(t)
	registerBoth(t, h)

	send(t, h, carrierPhone, "Necesito llevar 10 tn de trigo a Bahía Blanca")
	a, err := st.GetActor(context.Background(), carrierPhone)
	if err != nil {
		t.Fatal(err)
	}
	if a.Role != model.RoleBoth {
		t.Fatalf("role = %s, want both", a.Role)
	}
}

func TestOwnEventsNeverMatchThemselves(t *testing.T) {
	h, _, _ := newHandler(t)
	registerBoth(t, h)

	// Same actor posts demand then capacity on the same corridor.
	send(t, h, producerPhone, "Necesito sacar 28 tn de soja a Rosario")
	res := send(t, h, producerPhone, "Vuelvo de Rosario en 2 horas")
	if len(res.Notifications) != 0 {
		t.Fatalf("actor matched against itself: %+v", res.Notifications)
	}
}

func TestResolveTargetsMostRecentProposal(t *testing.T) {
	h, st, _ := newHandler(t)
	registerBoth(t, h)
	send(t, h, "5492396333333", "Hola, soy Pedro, productor de Henderson")

	send(t, h, producerPhone, "Necesito sacar 28 tn de soja a Rosario")
	send(t, h, "5492396333333", "Necesito sacar 15 tn de maíz a Rosario")
	res := send(t, h, carrierPhone, "Vuelvo de Rosario en 2 horas")
	if len(res.Notifications) != 4 {
		t.Fatalf("expected two proposal pairs, got %d notifications", len(res.Notifications))
	}

	// The carrier's confirm settles the newest pending proposal only; the
	// older one stays open.
	pending, err := st.MostRecentPendingProposalForActor(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	send(t, h, carrierPhone, "Sí")
	remaining, err := st.MostRecentPendingProposalForActor(context.Background(), 1)
	if err != nil {
		t.Fatal("older proposal should still be pending")
	}
	if remaining.ID == pending.ID {
		t.Fatal("confirm did not settle the newest proposal")
	}
}

func TestSecondProposalBeforeConfirmShadowsFirst(t *testing.T) {
	const otherCarrier = "5492396444444"
	h, st, _ := newHandler(t)
	registerBoth(t, h)
	send(t, h, otherCarrier, "Hola, soy Jorge, camionero de Bolívar")

	send(t, h, producerPhone, "Necesito sacar 28 tn de soja a Rosario")
	producer, err := st.GetActor(context.Background(), producerPhone)
	if err != nil {
		t.Fatal(err)
	}

	send(t, h, carrierPhone, "Vuelvo de Rosario en 2 horas")
	first, err := st.MostRecentPendingProposalForActor(context.Background(), producer.ID)
	if err != nil {
		t.Fatal(err)
	}
	// A second carrier declares before the producer answers the teaser.
	send(t, h, otherCarrier, "Vuelvo de Rosario en 3 horas")
	second, err := st.MostRecentPendingProposalForActor(context.Background(), producer.ID)
	if err != nil {
		t.Fatal(err)
	}
	if second.ID == first.ID {
		t.Fatal("second declaration did not create a new proposal")
	}

	// The bare confirm settles the proposal that landed last.
	res := send(t, h, producerPhone, "Sí")
	if !strings.Contains(res.Reply, "Jorge") || strings.Contains(res.Reply, "Raúl") {
		t.Fatalf("confirm should reveal the newest proposal's carrier: %q", res.Reply)
	}
	if len(res.Notifications) != 1 || res.Notifications[0].Phone != otherCarrier {
		t.Fatalf("counterparty notice wrong: %+v", res.Notifications)
	}

	// The shadowed proposal stays pending and a later confirm settles it.
	remaining, err := st.MostRecentPendingProposalForActor(context.Background(), producer.ID)
	if err != nil {
		t.Fatal("first proposal should still be pending")
	}
	if remaining.ID != first.ID {
		t.Fatalf("pending proposal = %d, want %d", remaining.ID, first.ID)
	}
	res = send(t, h, producerPhone, "Sí")
	if !strings.Contains(res.Reply, "Raúl") {
		t.Fatalf("second confirm should reveal the first carrier: %q", res.Reply)
	}
	if _, err := st.MostRecentPendingProposalForActor(context.Background(), producer.ID); err == nil {
		t.Fatal("no proposal should remain pending")
	}
}

func TestFutureTripOfferDoesNotFeedDemandMatching(t *testing.T) {
	h, st, _ := newHandler(t)
	registerBoth(t, h)

	res := send(t, h, carrierPhone, "Tengo un viaje a Rosario mañana")
	if res.Action == nil || res.Action.Kind != model.ActionCapacityOffer {
		t.Fatalf("expected CAPACITY_OFFER, got %+v", res.Action)
	}

	// Only empty returns serve incoming demand; the offer stays recorded.
	res = send(t, h, producerPhone, "Necesito sacar 28 tn de soja a Rosario")
	if len(res.Notifications) != 0 {
		t.Fatalf("offer should not produce proposals, got %+v", res.Notifications)
	}
	offers, err := st.ListActiveTripEvents(context.Background(), model.KindCapacityOffer)
	if err != nil {
		t.Fatal(err)
	}
	if len(offers) != 1 {
		t.Fatalf("offer not recorded: %+v", offers)
	}
}

func TestAvailabilityListing(t *testing.T) {
	h, _, _ := newHandler(t)
	registerBoth(t, h)

	res := send(t, h, producerPhone, "¿Qué viajes hay disponibles?")
	if res.Action == nil || res.Action.Kind != model.ActionQueryAvailability {
		t.Fatalf("expected QUERY_AVAILABILITY, got %+v", res.Action)
	}
	if !strings.Contains(res.Reply, "No hay viajes registrados") {
		t.Fatalf("expected empty-state reply, got %q", res.Reply)
	}

	send(t, h, carrierPhone, "Vuelvo de Rosario en 2 horas")
	res = send(t, h, producerPhone, "¿Qué viajes hay disponibles?")
	if !strings.Contains(res.Reply, "Disponibilidad actual") ||
		!strings.Contains(res.Reply, "Retornos vacíos (1)") ||
		!strings.Contains(res.Reply, "Raúl") {
		t.Fatalf("listing wrong: %q", res.Reply)
	}
}

func TestUnregisteredSenderOnlyRegisters(t *testing.T) {
	h, _, _ := newHandler(t)

	res := send(t, h, "5492396999999", "Vuelvo de Rosario en 2 horas")
	if res.Action != nil && res.Action.Kind != model.ActionRegisterUser {
		t.Fatalf("unknown sender produced %+v", res.Action)
	}
	if res.Reply == "" {
		t.Fatal("unknown sender should be asked to introduce themselves")
	}
}

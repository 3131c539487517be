package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fletescerealeros/fletes/core/model"
	"github.com/fletescerealeros/fletes/core/store"
)

// Both implementations must honor the same contract, so the suite runs
// against each.
func TestStoreContract(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		runStoreSuite(t, NewMemory())
	})
	t.Run("sqlite", func(t *testing.T) {
		s, err := NewSQLite(filepath.Join(t.TempDir(), "fletes.db"))
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { _ = s.Close() })
		runStoreSuite(t, s)
	})
}

func runStoreSuite(t *testing.T, st store.Store) {
	ctx := context.Background()

	t.Run("actors", func(t *testing.T) {
		a, err := st.FindOrCreateActor(ctx, "549111", "Raúl", model.RoleCarrier, "Pehuajó")
		if err != nil {
			t.Fatal(err)
		}
		if a.ID == 0 || !a.Active {
			t.Fatalf("actor not initialized: %+v", a)
		}
		// Second call with different fields must return the existing actor.
		again, err := st.FindOrCreateActor(ctx, "549111", "Otro", model.RoleProducer, "Bolívar")
		if err != nil {
			t.Fatal(err)
		}
		if again.ID != a.ID || again.Name != "Raúl" {
			t.Fatalf("find-or-create recreated the actor: %+v", again)
		}

		if _, err := st.GetActor(ctx, "549999"); err != store.ErrNotFound {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}

		if err := st.UpdateActor(ctx, "549111", store.ActorUpdate{Role: model.RoleBoth}); err != nil {
			t.Fatal(err)
		}
		a, err = st.GetActor(ctx, "549111")
		if err != nil {
			t.Fatal(err)
		}
		if a.Role != model.RoleBoth || a.Name != "Raúl" {
			t.Fatalf("partial update wrong: %+v", a)
		}
		if err := st.UpdateActor(ctx, "549999", store.ActorUpdate{Name: "X"}); err != store.ErrNotFound {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("trip events", func(t *testing.T) {
		a, _ := st.GetActor(ctx, "549111")
		first, err := st.CreateTripEvent(ctx, a.ID, model.KindCapacityReturn, "Rosario", "Pehuajó",
			store.TripExtras{Date: model.DateToday, TimeEstimate: "2 horas"})
		if err != nil {
			t.Fatal(err)
		}
		if first.Status != model.EventActive || first.OwnerPhone != "549111" {
			t.Fatalf("created event wrong: %+v", first)
		}
		second, err := st.CreateTripEvent(ctx, a.ID, model.KindDemandRequest, "Carlos Casares", "Rosario",
			store.TripExtras{Cereal: "soja", Tons: 28, Date: model.DateFlexible})
		if err != nil {
			t.Fatal(err)
		}

		all, err := st.ListActiveTripEvents(ctx, "")
		if err != nil {
			t.Fatal(err)
		}
		if len(all) != 2 || all[0].ID != second.ID {
			t.Fatalf("expected newest first, got %+v", all)
		}
		demands, err := st.ListActiveTripEvents(ctx, model.KindDemandRequest)
		if err != nil {
			t.Fatal(err)
		}
		if len(demands) != 1 || demands[0].Cereal != "soja" || demands[0].Tons != 28 {
			t.Fatalf("kind filter wrong: %+v", demands)
		}

		if err := st.UpdateTripEventStatus(ctx, first.ID, model.EventCompleted); err != nil {
			t.Fatal(err)
		}
		all, _ = st.ListActiveTripEvents(ctx, "")
		if len(all) != 1 {
			t.Fatalf("completed event still listed: %+v", all)
		}
	})

	t.Run("proposals", func(t *testing.T) {
		carrier, _ := st.GetActor(ctx, "549111")
		producer, err := st.FindOrCreateActor(ctx, "549222", "María", model.RoleProducer, "Carlos Casares")
		if err != nil {
			t.Fatal(err)
		}
		capEv, _ := st.CreateTripEvent(ctx, carrier.ID, model.KindCapacityReturn, "Rosario", "Pehuajó", store.TripExtras{})
		demEv, _ := st.CreateTripEvent(ctx, producer.ID, model.KindDemandRequest, "Carlos Casares", "Rosario", store.TripExtras{})

		older, err := st.CreateMatchProposal(ctx, capEv.ID, demEv.ID, carrier.ID, producer.ID, 80)
		if err != nil {
			t.Fatal(err)
		}
		newer, err := st.CreateMatchProposal(ctx, capEv.ID, demEv.ID, carrier.ID, producer.ID, 60)
		if err != nil {
			t.Fatal(err)
		}
		if newer.CapacityPhone != "549111" || newer.DemandName != "María" {
			t.Fatalf("party join missing: %+v", newer)
		}

		pending, err := st.MostRecentPendingProposalForActor(ctx, producer.ID)
		if err != nil {
			t.Fatal(err)
		}
		if pending.ID != newer.ID {
			t.Fatalf("expected newest pending %d, got %d", newer.ID, pending.ID)
		}

		if err := st.UpdateProposalStatus(ctx, newer.ID, model.ProposalRejected); err != nil {
			t.Fatal(err)
		}
		pending, err = st.MostRecentPendingProposalForActor(ctx, producer.ID)
		if err != nil {
			t.Fatal(err)
		}
		if pending.ID != older.ID {
			t.Fatalf("older proposal should surface after resolve, got %d", pending.ID)
		}

		if err := st.UpdateProposalStatus(ctx, older.ID, model.ProposalAccepted); err != nil {
			t.Fatal(err)
		}
		if _, err := st.MostRecentPendingProposalForActor(ctx, producer.ID); err != store.ErrNotFound {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}

		active, err := st.ListActiveMatchProposals(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(active) != 0 {
			t.Fatalf("resolved proposals still listed: %+v", active)
		}
	})

	t.Run("conversations", func(t *testing.T) {
		for _, msg := range []string{"hola", "respuesta", "segundo", "tercera"} {
			role := "user"
			if msg == "respuesta" || msg == "tercera" {
				role = "assistant"
			}
			if err := st.SaveConversation(ctx, "549111", role, msg); err != nil {
				t.Fatal(err)
			}
		}
		turns, err := st.ConversationHistory(ctx, "549111", 3)
		if err != nil {
			t.Fatal(err)
		}
		if len(turns) != 3 || turns[0].Content != "respuesta" || turns[2].Content != "tercera" {
			t.Fatalf("history wrong: %+v", turns)
		}
	})

	t.Run("stats", func(t *testing.T) {
		s, err := st.Stats(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if s.Actors != 2 || s.Proposals != 2 || s.Accepted != 1 {
			t.Fatalf("stats wrong: %+v", s)
		}
		// Role buckets are exclusive; the role-both actor counts in neither.
		if s.Carriers != 0 || s.Producers != 1 {
			t.Fatalf("role counters wrong: %+v", s)
		}
	})
}

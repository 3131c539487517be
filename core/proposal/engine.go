// Package proposal creates and resolves match proposals. A proposal pairs
// one capacity event with one demand event and waits for a confirm or
// reject message from either party. Resolving never touches the underlying
// trip events; their status is the orchestrating caller's responsibility.
package proposal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fletescerealeros/fletes/core/logger"
	"github.com/fletescerealeros/fletes/core/match"
	"github.com/fletescerealeros/fletes/core/model"
	"github.com/fletescerealeros/fletes/core/store"
)

// MaxCapacityProposals caps how many proposals a single capacity
// declaration can fan out to. The demand direction always commits to the
// single best candidate.
const MaxCapacityProposals = 3

// Engine drives the proposed -> accepted/rejected lifecycle.
type Engine struct {
	Store store.Store
	Log   logger.Logger
}

// New builds an Engine.
func New(st store.Store, log logger.Logger) Engine {
	if log == nil {
		log = logger.Nop{}
	}
	return Engine{Store: st, Log: log}
}

// ForCapacity creates up to MaxCapacityProposals proposals, best candidate
// first. Each proposal yields a notification pair: a score-free teaser to
// the demand actor and a scored summary to the capacity actor.
func (e Engine) ForCapacity(ctx context.Context, capacity model.TripEvent, actor model.Actor, cands []match.Candidate) ([]model.MatchProposal, []model.Notification, error) {
	var created []model.MatchProposal
	var out []model.Notification
	for i, c := range cands {
		if i >= MaxCapacityProposals {
			break
		}
		demand := c.Event
		p, err := e.Store.CreateMatchProposal(ctx, capacity.ID, demand.ID, actor.ID, demand.ActorID, c.Score)
		if err != nil {
			return created, out, fmt.Errorf("create proposal: %w", err)
		}
		e.Log.Infof("match proposed: capacity %d <-> demand %d (score %.0f)", capacity.ID, demand.ID, c.Score)
		created = append(created, p)

		out = append(out, model.Notification{
			ActorID: demand.ActorID,
			Phone:   demand.OwnerPhone,
			Text:    capacityTeaser(actor, capacity, demand),
		})
		out = append(out, model.Notification{
			ActorID: actor.ID,
			Phone:   actor.Phone,
			Text:    demandSummary(demand, p.Score),
		})
	}
	return created, out, nil
}

// ForDemand creates exactly one proposal from the best candidate, with the
// analogous notification pair.
func (e Engine) ForDemand(ctx context.Context, demand model.TripEvent, actor model.Actor, cands []match.Candidate) ([]model.MatchProposal, []model.Notification, error) {
	if len(cands) == 0 {
		return nil, nil, nil
	}
	best := cands[0]
	capacity := best.Event
	p, err := e.Store.CreateMatchProposal(ctx, capacity.ID, demand.ID, capacity.ActorID, actor.ID, best.Score)
	if err != nil {
		return nil, nil, fmt.Errorf("create proposal: %w", err)
	}
	e.Log.Infof("match proposed: capacity %d <-> demand %d (score %.0f)", capacity.ID, demand.ID, p.Score)

	teaser := fmt.Sprintf("🎯 ¡Hay carga para tu retorno vacío!\n\n🌾 %s de %s necesita mover %sa %s\n\n¿Te interesa? Respondé \"sí\" o \"no\".",
		orDefault(actor.Name, "Productor"), demand.Origin, cargoPhrase(demand), demand.Destination)
	summary := fmt.Sprintf("🎯 ¡Encontré un camionero!\n\n🚛 %s viene de %s hacia %s\n\nScore de compatibilidad: %.0f/100\n\nTe aviso cuando confirme. ✅",
		orDefault(capacity.OwnerName, "Camionero"), capacity.Origin, capacity.Destination, p.Score)

	return []model.MatchProposal{p}, []model.Notification{
		{ActorID: capacity.ActorID, Phone: capacity.OwnerPhone, Text: teaser},
		{ActorID: actor.ID, Phone: actor.Phone, Text: summary},
	}, nil
}

// Resolve settles the actor's single most recent pending proposal. Older
// pending proposals for the same actor are deliberately out of reach. When
// nothing is pending, the returned proposal is nil, a notice goes back to
// the actor and no state changes.
func (e Engine) Resolve(ctx context.Context, actor model.Actor, accept bool) (*model.MatchProposal, []model.Notification, error) {
	p, err := e.Store.MostRecentPendingProposalForActor(ctx, actor.ID)
	if errors.Is(err, store.ErrNotFound) {
		if accept {
			return nil, []model.Notification{{ActorID: actor.ID, Phone: actor.Phone,
				Text: "⚠️ No encontré ninguna propuesta de viaje pendiente para confirmar. Decime \"Ayuda\" si necesitás ver tus opciones."}}, nil
		}
		return nil, []model.Notification{{ActorID: actor.ID, Phone: actor.Phone,
			Text: "No tenés ninguna propuesta pendiente para rechazar."}}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("pending proposal lookup: %w", err)
	}

	if !accept {
		if err := e.Store.UpdateProposalStatus(ctx, p.ID, model.ProposalRejected); err != nil {
			return nil, nil, fmt.Errorf("reject proposal: %w", err)
		}
		e.Log.Infof("match %d rejected by %s", p.ID, actor.Name)
		p.Status = model.ProposalRejected
		// The classifier's acknowledgement is the only text the rejecting
		// actor sees; the counterparty is not told.
		return &p, nil, nil
	}

	if err := e.Store.UpdateProposalStatus(ctx, p.ID, model.ProposalAccepted); err != nil {
		return nil, nil, fmt.Errorf("accept proposal: %w", err)
	}
	p.Status = model.ProposalAccepted
	e.Log.Infof("match %d confirmed by %s", p.ID, actor.Name)

	isCapacitySide := actor.ID == p.CapacityActorID
	otherName, otherPhone, otherLocality := p.DemandName, p.DemandPhone, p.DemandLocality
	otherActorID := p.DemandActorID
	if !isCapacitySide {
		otherName, otherPhone, otherLocality = p.CapacityName, p.CapacityPhone, p.CapacityLocality
		otherActorID = p.CapacityActorID
	}

	toConfirmer := fmt.Sprintf("🎉 *¡Excelente! Match confirmado.* 🎉\n\nAcá tenés los datos para contactarlo:\n👤 *%s*\n📱 *%s*\n📍 %s\n\n¡Escribile ahora para coordinar! 🤝",
		otherName, otherPhone, otherLocality)
	toCounterparty := fmt.Sprintf("🎉 *¡Buenas noticias! Se confirmó el viaje.* 🎉\n\nEl usuario *%s* aceptó la propuesta.\n\nDatos de contacto:\n👤 *%s*\n📱 *%s*\n📍 %s\n\n¡Contáctense para coordinar la carga! 🚛",
		actor.Name, actor.Name, actor.Phone, orDefault(actor.Locality, "Zona Pehuajó"))

	return &p, []model.Notification{
		{ActorID: actor.ID, Phone: actor.Phone, Text: toConfirmer},
		{ActorID: otherActorID, Phone: otherPhone, Text: toCounterparty},
	}, nil
}

func capacityTeaser(actor model.Actor, capacity, demand model.TripEvent) string {
	var b strings.Builder
	b.WriteString("🎯 ¡Hay un camionero disponible para tu flete!\n\n")
	fmt.Fprintf(&b, "🚛 %s vuelve de %s hacia %s", orDefault(actor.Name, "Camionero"), capacity.Origin, capacity.Destination)
	if capacity.TimeEstimate != "" {
		fmt.Fprintf(&b, " (llega en %s)", capacity.TimeEstimate)
	}
	fmt.Fprintf(&b, ".\n\nTu pedido: %s%s → %s", cargoPhrase(demand), demand.Origin, demand.Destination)
	b.WriteString("\n\n¿Te interesa? Respondé \"sí\" o \"no\".")
	return b.String()
}

func demandSummary(demand model.TripEvent, score float64) string {
	return fmt.Sprintf("🎯 ¡Encontré carga para tu retorno!\n\n🌾 %s de %s necesita mover %sa %s\n\nScore de compatibilidad: %.0f/100\n\n¿Lo tomás? Respondé \"sí\" o \"no\".",
		orDefault(demand.OwnerName, "Productor"), orDefault(demand.OwnerLocality, demand.Origin), cargoPhrase(demand), demand.Destination, score)
}

// cargoPhrase renders "28 tn de soja " or "cereal " when fields are unset.
// The trailing space keeps the surrounding sentences readable.
func cargoPhrase(demand model.TripEvent) string {
	cereal := orDefault(demand.Cereal, "cereal")
	if demand.Tons > 0 {
		return fmt.Sprintf("%g tn de %s ", demand.Tons, cereal)
	}
	return cereal + " "
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// Package conversation orchestrates one inbound chat message end to end:
// persist the turn, classify it, execute the resulting action against the
// store, run matching, and collect the texts that must go back out. The
// handler never sends anything itself; transports deliver Result.
package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/fletescerealeros/fletes/core/classify"
	"github.com/fletescerealeros/fletes/core/logger"
	"github.com/fletescerealeros/fletes/core/match"
	"github.com/fletescerealeros/fletes/core/model"
	"github.com/fletescerealeros/fletes/core/proposal"
	"github.com/fletescerealeros/fletes/core/store"
	"github.com/fletescerealeros/fletes/internal/eventbus"
)

// historyLimit bounds how much context the classifier sees per message.
const historyLimit = 15

const errorReply = "⚠️ Tuve un problema para procesar tu mensaje. Probá de nuevo en un ratito."

const registerFirstReply = "Primero necesito conocerte. Decime tu nombre y si sos camionero o productor. 🙂"

// Inbound is one message as received from a transport. Name is the sender's
// profile name and may be empty.
type Inbound struct {
	Phone string
	Name  string
	Text  string
}

// Result is everything a transport must deliver after one message: the
// direct reply to the sender plus notifications to other actors.
type Result struct {
	Reply         string
	Action        *model.Action
	Notifications []model.Notification
}

// Handler wires the store, classifier, scorer and proposal engine together.
type Handler struct {
	store     store.Store
	classify  classify.Engine
	scorer    match.Scorer
	proposals proposal.Engine
	bus       *eventbus.Bus[eventbus.Event]
	log       logger.Logger
}

// New builds a Handler. bus may be nil when nothing observes the flow.
func New(st store.Store, cl classify.Engine, sc match.Scorer, pr proposal.Engine,
	bus *eventbus.Bus[eventbus.Event], log logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop{}
	}
	return &Handler{store: st, classify: cl, scorer: sc, proposals: pr, bus: bus, log: log}
}

// Handle processes one inbound message. Classifier failures degrade to an
// apology reply; store failures on the action path surface as errors.
func (h *Handler) Handle(ctx context.Context, in Inbound) (Result, error) {
	if err := h.store.SaveConversation(ctx, in.Phone, "user", in.Text); err != nil {
		h.log.Warnf("save inbound turn for %s: %v", in.Phone, err)
	}
	history, err := h.store.ConversationHistory(ctx, in.Phone, historyLimit)
	if err != nil {
		h.log.Warnf("history for %s: %v", in.Phone, err)
	}

	var actor *model.Actor
	if a, err := h.store.GetActor(ctx, in.Phone); err == nil {
		actor = &a
	} else if !errors.Is(err, store.ErrNotFound) {
		return Result{}, fmt.Errorf("actor lookup: %w", err)
	}

	cls, err := h.classify.Classify(ctx, in.Text, actor, history)
	if err != nil {
		h.log.Errorf("classify message from %s: %v", in.Phone, err)
		h.saveReply(ctx, in.Phone, errorReply)
		return Result{Reply: errorReply}, nil
	}

	h.publish(eventbus.Event{MessageClassified: &eventbus.MessageClassified{
		Phone: in.Phone, Action: actionKind(cls.Action),
	}})

	res := Result{Reply: cls.Reply, Action: cls.Action}
	if cls.Action != nil {
		if err := h.execute(ctx, in, actor, cls.Action, &res); err != nil {
			return Result{}, err
		}
	}

	h.saveReply(ctx, in.Phone, res.Reply)
	for _, n := range res.Notifications {
		if err := h.store.SaveConversation(ctx, n.Phone, "assistant", n.Text); err != nil {
			h.log.Warnf("save notification turn for %s: %v", n.Phone, err)
		}
	}
	return res, nil
}

func (h *Handler) execute(ctx context.Context, in Inbound, actor *model.Actor, act *model.Action, res *Result) error {
	switch act.Kind {
	case model.ActionRegisterUser:
		return h.register(ctx, in, act.Data)
	case model.ActionUpdateUser:
		return h.update(ctx, in, act.Data)
	case model.ActionEmptyReturn, model.ActionCapacityOffer:
		return h.declareCapacity(ctx, actor, act, res)
	case model.ActionFreightRequest:
		return h.declareDemand(ctx, actor, act.Data, res)
	case model.ActionQueryAvailability:
		return h.availability(ctx, act.Data, res)
	case model.ActionConfirmMatch:
		return h.resolve(ctx, actor, true, res)
	case model.ActionRejectMatch:
		return h.resolve(ctx, actor, false, res)
	default:
		h.log.Warnf("unknown action kind %q from %s", act.Kind, in.Phone)
		return nil
	}
}

func (h *Handler) register(ctx context.Context, in Inbound, d model.ActionData) error {
	name := d.Name
	if name == "" {
		name = in.Name
	}
	_, err := h.store.FindOrCreateActor(ctx, in.Phone, name, roleFromType(d.Type), d.Locality)
	if err != nil {
		return fmt.Errorf("register actor: %w", err)
	}
	return nil
}

func (h *Handler) update(ctx context.Context, in Inbound, d model.ActionData) error {
	upd := store.ActorUpdate{Name: d.Name, Locality: d.Locality}
	if d.Type != "" {
		upd.Role = roleFromType(d.Type)
	}
	if err := h.store.UpdateActor(ctx, in.Phone, upd); err != nil {
		return fmt.Errorf("update actor: %w", err)
	}
	return nil
}

// declareCapacity records an empty return or a capacity offer. Empty returns
// trigger matching against open demand; plain offers are record-only.
func (h *Handler) declareCapacity(ctx context.Context, actor *model.Actor, act *model.Action, res *Result) error {
	if actor == nil {
		res.Reply = registerFirstReply
		return nil
	}
	d := act.Data
	kind := model.KindCapacityReturn
	if act.Kind == model.ActionCapacityOffer {
		kind = model.KindCapacityOffer
	}
	ev, err := h.store.CreateTripEvent(ctx, actor.ID, kind, d.Origin, d.Destination, store.TripExtras{
		Date: d.Date, TimeEstimate: d.TimeEstimate, CapacityTons: d.CapacityTons,
	})
	if err != nil {
		return fmt.Errorf("create capacity event: %w", err)
	}
	ev.OwnerName, ev.OwnerPhone, ev.OwnerLocality = actor.Name, actor.Phone, actor.Locality
	if kind == model.KindCapacityOffer {
		return nil
	}

	demands, err := h.store.ListActiveTripEvents(ctx, model.KindDemandRequest)
	if err != nil {
		return fmt.Errorf("list demand events: %w", err)
	}
	demands = withoutActor(demands, actor.ID)

	cands := h.scorer.ForCapacity(ev, demands)
	created, notifs, err := h.proposals.ForCapacity(ctx, ev, *actor, cands)
	if err != nil {
		return err
	}
	h.publishProposals(created)
	res.Notifications = append(res.Notifications, notifs...)
	return nil
}

func (h *Handler) declareDemand(ctx context.Context, actor *model.Actor, d model.ActionData, res *Result) error {
	if actor == nil {
		res.Reply = registerFirstReply
		return nil
	}
	// A carrier asking for freight plays both sides from now on.
	if actor.Role == model.RoleCarrier {
		if err := h.store.UpdateActor(ctx, actor.Phone, store.ActorUpdate{Role: model.RoleBoth}); err != nil {
			return fmt.Errorf("widen actor role: %w", err)
		}
		actor.Role = model.RoleBoth
	}

	ev, err := h.store.CreateTripEvent(ctx, actor.ID, model.KindDemandRequest, d.Origin, d.Destination, store.TripExtras{
		Date: d.Date, Cereal: d.Cereal, Tons: d.Tons,
	})
	if err != nil {
		return fmt.Errorf("create demand event: %w", err)
	}
	ev.OwnerName, ev.OwnerPhone, ev.OwnerLocality = actor.Name, actor.Phone, actor.Locality

	// Only empty returns feed demand-side matching; future trip offers
	// stay record-only until the carrier declares the return.
	capacities, err := h.store.ListActiveTripEvents(ctx, model.KindCapacityReturn)
	if err != nil {
		return fmt.Errorf("list capacity events: %w", err)
	}
	capacities = withoutActor(capacities, actor.ID)

	cands := h.scorer.ForDemand(ev, capacities)
	created, notifs, err := h.proposals.ForDemand(ctx, ev, *actor, cands)
	if err != nil {
		return err
	}
	h.publishProposals(created)
	res.Notifications = append(res.Notifications, notifs...)
	return nil
}

func (h *Handler) resolve(ctx context.Context, actor *model.Actor, accept bool, res *Result) error {
	if actor == nil {
		res.Reply = registerFirstReply
		return nil
	}
	resolved, notifs, err := h.proposals.Resolve(ctx, *actor, accept)
	if err != nil {
		return err
	}
	if resolved != nil {
		h.publish(eventbus.Event{ProposalResolved: &eventbus.ProposalResolved{
			ProposalID: resolved.ID, Status: resolved.Status,
		}})
	}
	// Texts addressed to the sender become the reply; the rest go out as
	// notifications. On reject the classifier's acknowledgement stands.
	for _, n := range notifs {
		if n.Phone == actor.Phone {
			res.Reply = n.Text
		} else {
			res.Notifications = append(res.Notifications, n)
		}
	}
	return nil
}

func (h *Handler) publishProposals(created []model.MatchProposal) {
	for _, p := range created {
		h.publish(eventbus.Event{ProposalCreated: &eventbus.ProposalCreated{
			ProposalID: p.ID, Score: p.Score,
		}})
	}
}

func (h *Handler) publish(e eventbus.Event) {
	if h.bus != nil {
		h.bus.Publish(e)
	}
}

func (h *Handler) saveReply(ctx context.Context, phone, reply string) {
	if reply == "" {
		return
	}
	if err := h.store.SaveConversation(ctx, phone, "assistant", reply); err != nil {
		h.log.Warnf("save reply turn for %s: %v", phone, err)
	}
}

func withoutActor(events []model.TripEvent, actorID int64) []model.TripEvent {
	out := events[:0]
	for _, ev := range events {
		if ev.ActorID != actorID {
			out = append(out, ev)
		}
	}
	return out
}

func roleFromType(t string) model.Role {
	switch t {
	case "camionero", "transportista", "carrier":
		return model.RoleCarrier
	case "ambos", "both":
		return model.RoleBoth
	default:
		return model.RoleProducer
	}
}

func actionKind(a *model.Action) model.ActionKind {
	if a == nil {
		return ""
	}
	return a.Kind
}

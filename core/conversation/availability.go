package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/fletescerealeros/fletes/core/model"
)

// maxRowsPerSection caps each listing section; the header still carries the
// full count.
const maxRowsPerSection = 5

const emptyAvailabilityReply = "📋 No hay viajes registrados todavía. ¡Sé el primero!"

// availability answers QUERY_AVAILABILITY. Scope narrows the listing to one
// side of the market; anything else lists everything active.
func (h *Handler) availability(ctx context.Context, d model.ActionData, res *Result) error {
	events, err := h.store.ListActiveTripEvents(ctx, "")
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}

	var returns, demands, offers []model.TripEvent
	for _, ev := range events {
		switch ev.Kind {
		case model.KindCapacityReturn:
			returns = append(returns, ev)
		case model.KindDemandRequest:
			demands = append(demands, ev)
		case model.KindCapacityOffer:
			offers = append(offers, ev)
		}
	}
	switch d.Scope {
	case "cargas":
		returns, offers = nil, nil
	case "camiones":
		demands = nil
	}

	res.Reply = availabilityText(returns, demands, offers)
	return nil
}

func availabilityText(returns, demands, offers []model.TripEvent) string {
	if len(returns)+len(demands)+len(offers) == 0 {
		return emptyAvailabilityReply
	}

	var b strings.Builder
	b.WriteString("📋 *Disponibilidad actual:*\n\n")
	writeSection(&b, fmt.Sprintf("🔄 *Retornos vacíos (%d):*", len(returns)), returns, returnRow)
	writeSection(&b, fmt.Sprintf("🌾 *Pedidos de flete (%d):*", len(demands)), demands, demandRow)
	writeSection(&b, fmt.Sprintf("🚛 *Viajes ofrecidos (%d):*", len(offers)), offers, offerRow)
	return strings.TrimRight(b.String(), "\n")
}

func writeSection(b *strings.Builder, header string, events []model.TripEvent, row func(model.TripEvent) string) {
	if len(events) == 0 {
		return
	}
	b.WriteString(header)
	b.WriteString("\n")
	for i, ev := range events {
		if i == maxRowsPerSection {
			break
		}
		b.WriteString(row(ev))
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func returnRow(ev model.TripEvent) string {
	row := fmt.Sprintf("  • %s: %s → %s", ownerOr(ev, "Camionero"), ev.Origin, ev.Destination)
	if ev.TimeEstimate != "" {
		row += " (" + ev.TimeEstimate + ")"
	}
	return row
}

func demandRow(ev model.TripEvent) string {
	load := ""
	if ev.Tons > 0 {
		load = fmt.Sprintf("%gtn ", ev.Tons)
	}
	if ev.Cereal != "" {
		load += ev.Cereal + " "
	}
	return fmt.Sprintf("  • %s: %s%s → %s", ownerOr(ev, "Productor"), load, ev.Origin, ev.Destination)
}

func offerRow(ev model.TripEvent) string {
	return fmt.Sprintf("  • %s: %s → %s", ownerOr(ev, "Camionero"), ev.Origin, ev.Destination)
}

func ownerOr(ev model.TripEvent, fallback string) string {
	if ev.OwnerName != "" {
		return ev.OwnerName
	}
	return fallback
}

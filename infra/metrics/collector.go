package metrics

import (
	"context"

	coremetrics "github.com/fletescerealeros/fletes/core/metrics"
	"github.com/fletescerealeros/fletes/internal/eventbus"
)

// StartCollector subscribes to the event bus and forwards domain events to
// the sink. It stops when the context is canceled or the bus closes.
func StartCollector(ctx context.Context, bus *eventbus.Bus[eventbus.Event], sink coremetrics.Sink) {
	if bus == nil || sink == nil {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer sub.Cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub.C():
				if !ok {
					return
				}
				switch {
				case ev.MessageClassified != nil:
					sink.RecordMessage(ev.MessageClassified.Action)
				case ev.ProposalCreated != nil:
					sink.RecordProposal(ev.ProposalCreated.Score)
				case ev.ProposalResolved != nil:
					sink.RecordResolution(ev.ProposalResolved.Status)
				}
			}
		}
	}()
}

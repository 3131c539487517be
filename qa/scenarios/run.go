package scenarios

import (
	"context"
	"strings"
	"testing"

	"github.com/fletescerealeros/fletes/core/classify"
	"github.com/fletescerealeros/fletes/core/conversation"
	"github.com/fletescerealeros/fletes/core/geo"
	"github.com/fletescerealeros/fletes/core/logger"
	"github.com/fletescerealeros/fletes/core/match"
	"github.com/fletescerealeros/fletes/core/proposal"
	"github.com/fletescerealeros/fletes/infra/storage"
)

// RunScenario plays every step through a fresh in-memory stack and fails
// the test on the first expectation that does not hold.
func RunScenario(t *testing.T, sc *Scenario) {
	gaz := geo.Defaults()
	st := storage.NewMemory()
	handler := conversation.New(
		st,
		classify.NewRuleEngine(gaz, logger.Nop{}),
		match.NewScorer(gaz, logger.Nop{}),
		proposal.New(st, logger.Nop{}),
		nil, logger.Nop{},
	)

	ctx := context.Background()
	for i, step := range sc.Steps {
		res, err := handler.Handle(ctx, conversation.Inbound{
			Phone: step.Phone,
			Name:  step.Name,
			Text:  step.Say,
		})
		if err != nil {
			t.Fatalf("step %d (%q): %v", i+1, step.Say, err)
		}
		for _, want := range step.ReplyContains {
			if !strings.Contains(res.Reply, want) {
				t.Errorf("step %d (%q): reply %q does not contain %q", i+1, step.Say, res.Reply, want)
			}
		}
		if step.Notices != nil && len(res.Notifications) != *step.Notices {
			t.Errorf("step %d (%q): got %d notifications, want %d", i+1, step.Say, len(res.Notifications), *step.Notices)
		}
		for _, phone := range step.NoticeTo {
			if !noticedPhone(res, phone) {
				t.Errorf("step %d (%q): no notification for %s", i+1, step.Say, phone)
			}
		}
	}
}

func noticedPhone(res conversation.Result, phone string) bool {
	for _, n := range res.Notifications {
		if n.Phone == phone {
			return true
		}
	}
	return false
}

package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/fletescerealeros/fletes/core/logger"
	"github.com/fletescerealeros/fletes/core/model"
)

// Completer is the generative delegate: it receives the system instructions,
// the prior turns and the new message, and returns free text that may embed
// one fenced ```json block with the structured action.
type Completer interface {
	Complete(ctx context.Context, system string, turns []model.Turn, message string) (string, error)
}

// fencedActionRe extracts the single fenced JSON action block.
var fencedActionRe = regexp.MustCompile("(?s)```json\\s*\n?(.*?)\n?\\s*```")

// DelegateEngine classifies by round-tripping through a Completer. Its
// output contract is identical to the rule engine's.
type DelegateEngine struct {
	completer Completer
	system    string
	log       logger.Logger
}

// NewDelegateEngine wraps the completer. The system instructions are built
// once at startup and reused for every message.
func NewDelegateEngine(c Completer, system string, log logger.Logger) *DelegateEngine {
	if log == nil {
		log = logger.Nop{}
	}
	return &DelegateEngine{completer: c, system: system, log: log}
}

// Classify sends the message to the delegate and parses the optional action
// block. A malformed block is logged and dropped; the delegate's prose is
// still returned as the reply.
func (e *DelegateEngine) Classify(ctx context.Context, text string, _ *model.Actor, history []model.Turn) (Result, error) {
	out, err := e.completer.Complete(ctx, e.system, history, text)
	if err != nil {
		return Result{}, fmt.Errorf("delegate completion: %w", err)
	}

	reply := out
	var action *model.Action
	if m := fencedActionRe.FindStringSubmatch(out); m != nil {
		var a model.Action
		if err := json.Unmarshal([]byte(m[1]), &a); err != nil {
			e.log.Warnf("cannot parse delegate action block: %v", err)
		} else {
			action = &a
			reply = strings.TrimSpace(fencedActionRe.ReplaceAllString(out, ""))
		}
	}
	return Result{Reply: reply, Action: action}, nil
}

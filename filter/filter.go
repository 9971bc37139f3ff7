// Package filter evaluates expr expressions against EPG events, for
// client-side narrowing of a channel's guide before display or reservation.
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/riicho/tvsub/mlsub"
)

// EventFilter represents a compiled expr filter
type EventFilter struct {
	program *vm.Program
	expr    string
}

// helpers are the static functions available in every expression.
var helpers = map[string]interface{}{
	"contains": func(str, substr string) bool {
		return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
	},
	"startsWith": func(str, prefix string) bool {
		return strings.HasPrefix(strings.ToLower(str), strings.ToLower(prefix))
	},
	"endsWith": func(str, suffix string) bool {
		return strings.HasSuffix(strings.ToLower(str), strings.ToLower(suffix))
	},
	"lower": strings.ToLower,
	"upper": strings.ToUpper,
	"parseDate": func(dateStr string) time.Time {
		t, _ := time.Parse("2006-01-02", dateStr)
		return t
	},
	"now": time.Now,
}

// Compile compiles an expr filter expression.
func Compile(expression string) (*EventFilter, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, fmt.Errorf("empty filter expression")
	}

	env := map[string]interface{}{}
	for name, fn := range helpers {
		env[name] = fn
	}

	program, err := expr.Compile(expression,
		expr.Env(env),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compile filter expression: %w", err)
	}

	return &EventFilter{
		program: program,
		expr:    expression,
	}, nil
}

// Expression returns the source expression.
func (f *EventFilter) Expression() string {
	return f.expr
}

// Match evaluates the filter against one event.
func (f *EventFilter) Match(ev mlsub.Event) (bool, error) {
	env := map[string]interface{}{
		"Event":      ev,
		"Name":       ev.Name,
		"Text":       ev.Text,
		"ExtText":    ev.ExtText,
		"Category":   ev.Category,
		"Service":    ev.Service,
		"Resolution": ev.Resolution,
		"Network":    string(ev.Network),
		"Price":      ev.Price,
		"Duration":   ev.Duration,
		"SID":        ev.SID,
		"EID":        ev.EID,
		"Week":       ev.Week,
		"WeekText":   ev.WeekText,
		"Start":      ev.Start(),
	}
	for name, fn := range helpers {
		env[name] = fn
	}

	result, err := expr.Run(f.program, env)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate filter: %w", err)
	}

	matched, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("filter expression must evaluate to a boolean, got %T", result)
	}
	return matched, nil
}

// Apply returns the events matching the filter, preserving input order.
func (f *EventFilter) Apply(events []mlsub.Event) ([]mlsub.Event, error) {
	var matched []mlsub.Event
	for _, ev := range events {
		ok, err := f.Match(ev)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, ev)
		}
	}
	return matched, nil
}

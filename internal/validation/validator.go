package validation

import (
	"context"
	"fmt"
	"strings"
)

type Validator struct {
	registry *Registry
}

func New(registry *Registry) *Validator {
	return &Validator{registry: registry}
}

// Validate evaluates rs against in. It returns nil Errors when the input is
// accepted. The first failing rule of a field ends that field's checks. A
// non-nil error means a lookup failed and nothing can be concluded.
//
// Only Required rejects an empty value; every other rule passes on empty
// input.
func (v *Validator) Validate(ctx context.Context, in Input, rs Ruleset) (*Errors, error) {
	errs := NewErrors()
	for _, field := range rs {
		value := in.Get(field.Name)
		file := in.File(field.Name)
		empty := strings.TrimSpace(value) == "" && (file == nil || file.Size == 0)
		if field.has(Sometimes) && empty {
			continue
		}
		for _, rule := range field.Rules {
			if rule.Kind == Sometimes {
				continue
			}
			if empty && rule.Kind != Required {
				continue
			}
			e, ok := v.registry.lookup(rule.Kind)
			if !ok {
				return nil, fmt.Errorf("validation: no predicate registered for %s", rule.Kind)
			}
			c := Check{Field: field, Rule: rule, Value: value, File: file, Input: in}
			passed, err := e.predicate(ctx, c)
			if err != nil {
				return nil, fmt.Errorf("validate %s (%s): %w", field.Name, rule.Kind, err)
			}
			if passed {
				continue
			}
			msg := rule.Message
			if msg == "" {
				msg = e.message(c)
			}
			errs.Add(field.Name, msg)
			break
		}
	}
	if errs.Len() == 0 {
		return nil, nil
	}
	return errs, nil
}

package validation

import (
	"encoding/json"
	"strings"
)

// Errors collects messages per field in the order fields were declared.
type Errors struct {
	order  []string
	fields map[string][]string
}

func NewErrors() *Errors {
	return &Errors{fields: map[string][]string{}}
}

func (e *Errors) Add(field, message string) {
	if e.fields == nil {
		e.fields = map[string][]string{}
	}
	if _, ok := e.fields[field]; !ok {
		e.order = append(e.order, field)
	}
	e.fields[field] = append(e.fields[field], message)
}

func (e *Errors) Has(field string) bool {
	if e == nil {
		return false
	}
	_, ok := e.fields[field]
	return ok
}

func (e *Errors) Get(field string) []string {
	if e == nil {
		return nil
	}
	return e.fields[field]
}

func (e *Errors) First(field string) string {
	msgs := e.Get(field)
	if len(msgs) == 0 {
		return ""
	}
	return msgs[0]
}

func (e *Errors) Fields() []string {
	if e == nil {
		return nil
	}
	return append([]string(nil), e.order...)
}

// All flattens every message in field order.
func (e *Errors) All() []string {
	if e == nil {
		return nil
	}
	out := make([]string, 0, len(e.order))
	for _, f := range e.order {
		out = append(out, e.fields[f]...)
	}
	return out
}

func (e *Errors) Map() map[string][]string {
	out := make(map[string][]string, e.Len())
	if e == nil {
		return out
	}
	for k, v := range e.fields {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func (e *Errors) Len() int {
	if e == nil {
		return 0
	}
	return len(e.order)
}

func (e *Errors) Error() string {
	return "validation failed: " + strings.Join(e.All(), " ")
}

func (e *Errors) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Map())
}

package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func newModel() model {
	ctx, cancel := context.WithCancel(context.Background())
	return model{ctx: ctx, cancel: cancel, title: "migrate up", started: time.Unix(0, 0)}
}

func TestModelShowsElapsedWhileRunning(t *testing.T) {
	next, cmd := newModel().Update(tickMsg(time.Unix(2, 0)))
	if cmd == nil {
		t.Fatal("expected another tick while running")
	}
	if view := next.View(); !strings.Contains(view, "running 2s") {
		t.Fatalf("unexpected view: %q", view)
	}
}

func TestModelRendersDetailsOnCompletion(t *testing.T) {
	next, _ := newModel().Update(doneMsg{details: []string{"users: present"}})
	view := next.View()
	if !strings.Contains(view, "OK") || !strings.Contains(view, "users: present") {
		t.Fatalf("unexpected view: %q", view)
	}

	next, _ = newModel().Update(doneMsg{err: errors.New("table roles missing")})
	if view := next.View(); !strings.Contains(view, "FAILED") || !strings.Contains(view, "table roles missing") {
		t.Fatalf("unexpected failure view: %q", view)
	}
}

func TestModelCtrlCCancelsAction(t *testing.T) {
	m := newModel()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if !errors.Is(next.(model).err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", next.(model).err)
	}
	if m.ctx.Err() == nil {
		t.Fatal("expected action context canceled")
	}
}

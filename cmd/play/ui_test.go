package main

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/viewport"
)

func testUI() ConsoleUI {
	return ConsoleUI{
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		chatViewport: viewport.New(80, 20),
		metaViewport: viewport.New(30, 20),
		ready:        true,
		width:        110,
		height:       30,
	}
}

func TestTurnFailureShowsStallLineNotError(t *testing.T) {
	m := testUI()
	m.loading = true

	failure := errors.New(`collapse commit: delta transfer_item("ale_mug") rejected: holder missing`)
	updated, _ := m.Update(turnReplyMsg{err: failure})
	ui, ok := updated.(ConsoleUI)
	if !ok {
		t.Fatalf("Unexpected model type %T", updated)
	}

	if ui.loading {
		t.Error("Expected loading cleared after a failed turn")
	}
	if len(ui.transcript) != 1 || ui.transcript[0].content != turnStallText {
		t.Fatalf("Expected the stall line in the transcript, got %+v", ui.transcript)
	}

	view := ui.chatViewport.View()
	if strings.Contains(view, "transfer_item") || strings.Contains(view, "Error") {
		t.Errorf("Internal error text reached the chat panel: %q", view)
	}
	if !strings.Contains(view, "slips past") {
		t.Errorf("Expected the stall line rendered, got %q", view)
	}
}

package review

import (
	"testing"

	"go.uber.org/zap"
)

func TestMemQueue_EnqueueAndList(t *testing.T) {
	q := NewMemQueue()
	q.Enqueue(Entry{DecisionID: "d1", StateHash: "h1", PrimaryDriver: "fail_safe"})

	list := q.List()
	if len(list) != 1 {
		t.Fatalf("expected 1 pending entry, got %d", len(list))
	}
	if list[0].Status != StatusPending {
		t.Errorf("expected pending status, got %q", list[0].Status)
	}
}

func TestMemQueue_ApproveRemovesFromPendingList(t *testing.T) {
	q := NewMemQueue()
	q.Enqueue(Entry{DecisionID: "d1"})

	entry, ok := q.Approve("d1")
	if !ok {
		t.Fatal("expected Approve to succeed")
	}
	if entry.Status != StatusApproved {
		t.Errorf("expected approved status, got %q", entry.Status)
	}
	if len(q.List()) != 0 {
		t.Error("expected approved entry to no longer appear in List (pending-only)")
	}
}

func TestMemQueue_RejectRecordsNote(t *testing.T) {
	q := NewMemQueue()
	q.Enqueue(Entry{DecisionID: "d1"})

	entry, ok := q.Reject("d1", "insufficient evidence")
	if !ok {
		t.Fatal("expected Reject to succeed")
	}
	if entry.Status != StatusRejected {
		t.Errorf("expected rejected status, got %q", entry.Status)
	}
	if entry.Note != "insufficient evidence" {
		t.Errorf("expected note recorded, got %q", entry.Note)
	}
}

func TestMemQueue_ApproveUnknownDecisionFails(t *testing.T) {
	q := NewMemQueue()
	if _, ok := q.Approve("missing"); ok {
		t.Error("expected Approve of an unknown decision_id to fail")
	}
}

func TestMemQueue_DoubleApproveFails(t *testing.T) {
	q := NewMemQueue()
	q.Enqueue(Entry{DecisionID: "d1"})
	if _, ok := q.Approve("d1"); !ok {
		t.Fatal("expected first Approve to succeed")
	}
	if _, ok := q.Approve("d1"); ok {
		t.Error("expected second Approve of an already-approved decision to fail")
	}
}

func TestMemQueue_Get(t *testing.T) {
	q := NewMemQueue()
	q.Enqueue(Entry{DecisionID: "d1", PrimaryDriver: "confidence"})

	entry, ok := q.Get("d1")
	if !ok {
		t.Fatal("expected Get to find the entry")
	}
	if entry.PrimaryDriver != "confidence" {
		t.Errorf("expected primary driver confidence, got %q", entry.PrimaryDriver)
	}

	if _, ok := q.Get("missing"); ok {
		t.Error("expected Get of an unknown decision_id to fail")
	}
}

func TestServer_DispatchUnknownCommand(t *testing.T) {
	s := NewServer("/tmp/unused.sock", NewMemQueue(), zap.NewNop())
	resp := s.dispatch(Request{Cmd: "bogus"})
	if resp.OK {
		t.Error("expected OK false for an unknown command")
	}
}

func TestServer_DispatchApproveRequiresDecisionID(t *testing.T) {
	s := NewServer("/tmp/unused.sock", NewMemQueue(), zap.NewNop())
	resp := s.dispatch(Request{Cmd: "approve"})
	if resp.OK {
		t.Error("expected OK false when decision_id is missing")
	}
}

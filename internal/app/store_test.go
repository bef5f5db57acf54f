package app

import (
	"slices"
	"testing"
	"time"

	"github.com/dkeye/callhub/internal/domain"
)

func TestMemoryStoreLastBindWins(t *testing.T) {
	s := NewMemoryStore()

	if _, replaced := s.BindUser("u", "c1"); replaced {
		t.Fatal("first bind reported a replacement")
	}
	prev, replaced := s.BindUser("u", "c2")
	if !replaced || prev != "c1" {
		t.Fatalf("BindUser = %q, %v; want c1, true", prev, replaced)
	}
	if conn, _ := s.ConnectionOf("u"); conn != "c2" {
		t.Errorf("ConnectionOf(u) = %q, want c2", conn)
	}
	if _, ok := s.UserOf("c1"); ok {
		t.Error("superseded connection still resolves to the user")
	}

	// Losing the superseded connection must not drop the live mapping.
	if _, ok := s.UnbindConnection("c1"); ok {
		t.Error("UnbindConnection(c1) removed something")
	}
	if conn, ok := s.ConnectionOf("u"); !ok || conn != "c2" {
		t.Errorf("ConnectionOf(u) = %q, %v after stale unbind", conn, ok)
	}

	user, ok := s.UnbindConnection("c2")
	if !ok || user != "u" {
		t.Fatalf("UnbindConnection(c2) = %q, %v", user, ok)
	}
	if len(s.Users()) != 0 {
		t.Errorf("Users() = %v, want empty", s.Users())
	}
}

func TestMemoryStoreRebindConnectionToOtherUser(t *testing.T) {
	s := NewMemoryStore()
	s.BindUser("a", "c1")
	s.BindUser("b", "c1")

	if _, ok := s.ConnectionOf("a"); ok {
		t.Error("a still mapped after its connection was rebound")
	}
	if got := s.Users(); !slices.Equal(got, []domain.UserID{"b"}) {
		t.Errorf("Users() = %v", got)
	}
}

func TestMemoryStoreSessionsIndex(t *testing.T) {
	s := NewMemoryStore()
	t0 := time.Unix(100, 0)
	s.PutSession(domain.CallSession{RoomID: "r2", CallerID: "x", ReceiverID: "y", Status: domain.CallRequested, CreatedAt: t0.Add(time.Second)})
	s.PutSession(domain.CallSession{RoomID: "r1", CallerID: "y", ReceiverID: "x", Status: domain.CallAccepted, CreatedAt: t0})
	s.PutSession(domain.CallSession{RoomID: "r3", CallerID: "z", ReceiverID: "w", Status: domain.CallRequested, CreatedAt: t0})

	got := s.SessionsOf("x")
	if len(got) != 2 || got[0].RoomID != "r1" || got[1].RoomID != "r2" {
		t.Fatalf("SessionsOf(x) = %+v", got)
	}

	if !s.DeleteSession("r1") {
		t.Fatal("DeleteSession(r1) = false")
	}
	if s.DeleteSession("r1") {
		t.Error("second DeleteSession(r1) = true")
	}
	if got := s.SessionsOf("y"); len(got) != 1 || got[0].RoomID != "r2" {
		t.Errorf("SessionsOf(y) = %+v", got)
	}
	if got := s.SessionsOf("nobody"); len(got) != 0 {
		t.Errorf("SessionsOf(nobody) = %+v", got)
	}
}

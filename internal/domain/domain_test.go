package domain

import (
	"strings"
	"testing"
)

func TestParseUserID(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    UserID
		wantErr error
	}{
		{"plain", "u1", "u1", nil},
		{"trimmed", "  u2 ", "u2", nil},
		{"empty", "", "", ErrUserIDEmpty},
		{"blank", "   ", "", ErrUserIDEmpty},
		{"too long", strings.Repeat("x", MaxUserIDLen+1), "", ErrUserIDTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseUserID(tt.raw)
			if err != tt.wantErr {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewRoomIDUnique(t *testing.T) {
	seen := make(map[RoomID]bool)
	for i := 0; i < 1000; i++ {
		id := NewRoomID()
		if seen[id] {
			t.Fatalf("duplicate room id %s", id)
		}
		seen[id] = true
	}
}

func TestCallSessionPeer(t *testing.T) {
	s := CallSession{RoomID: "r1", CallerID: "a", ReceiverID: "b", Status: CallRequested}

	if p, ok := s.Peer("a"); !ok || p != "b" {
		t.Errorf("Peer(a) = %q, %v", p, ok)
	}
	if p, ok := s.Peer("b"); !ok || p != "a" {
		t.Errorf("Peer(b) = %q, %v", p, ok)
	}
	if _, ok := s.Peer("c"); ok {
		t.Error("Peer(c) should not resolve")
	}
	if s.HasParty("c") {
		t.Error("c is not a party")
	}
}

func TestCallStatusTerminal(t *testing.T) {
	for _, s := range []CallStatus{CallRejected, CallEnded} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []CallStatus{CallRequested, CallAccepted} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

package app

import (
	"cmp"
	"slices"

	"github.com/dkeye/callhub/internal/core"
	"github.com/dkeye/callhub/internal/domain"
)

// MemoryStore is the process-local core.Store. It is not safe for concurrent
// use; the hub confines it to its own goroutine.
type MemoryStore struct {
	connByUser map[domain.UserID]domain.ConnectionID
	userByConn map[domain.ConnectionID]domain.UserID

	sessions map[domain.RoomID]domain.CallSession
	byUser   map[domain.UserID]map[domain.RoomID]struct{}
}

var _ core.Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		connByUser: make(map[domain.UserID]domain.ConnectionID),
		userByConn: make(map[domain.ConnectionID]domain.UserID),
		sessions:   make(map[domain.RoomID]domain.CallSession),
		byUser:     make(map[domain.UserID]map[domain.RoomID]struct{}),
	}
}

func (s *MemoryStore) BindUser(user domain.UserID, conn domain.ConnectionID) (domain.ConnectionID, bool) {
	// A connection carries at most one identity.
	if other, ok := s.userByConn[conn]; ok && other != user {
		delete(s.connByUser, other)
	}
	prev, replaced := s.connByUser[user]
	if replaced {
		delete(s.userByConn, prev)
	}
	s.connByUser[user] = conn
	s.userByConn[conn] = user
	return prev, replaced
}

func (s *MemoryStore) UnbindConnection(conn domain.ConnectionID) (domain.UserID, bool) {
	user, ok := s.userByConn[conn]
	if !ok {
		return "", false
	}
	delete(s.userByConn, conn)
	delete(s.connByUser, user)
	return user, true
}

func (s *MemoryStore) ConnectionOf(user domain.UserID) (domain.ConnectionID, bool) {
	conn, ok := s.connByUser[user]
	return conn, ok
}

func (s *MemoryStore) UserOf(conn domain.ConnectionID) (domain.UserID, bool) {
	user, ok := s.userByConn[conn]
	return user, ok
}

func (s *MemoryStore) Users() []domain.UserID {
	out := make([]domain.UserID, 0, len(s.connByUser))
	for u := range s.connByUser {
		out = append(out, u)
	}
	slices.Sort(out)
	return out
}

func (s *MemoryStore) PutSession(cs domain.CallSession) {
	s.sessions[cs.RoomID] = cs
	s.index(cs.CallerID, cs.RoomID)
	s.index(cs.ReceiverID, cs.RoomID)
}

func (s *MemoryStore) Session(id domain.RoomID) (domain.CallSession, bool) {
	cs, ok := s.sessions[id]
	return cs, ok
}

func (s *MemoryStore) DeleteSession(id domain.RoomID) bool {
	cs, ok := s.sessions[id]
	if !ok {
		return false
	}
	delete(s.sessions, id)
	s.unindex(cs.CallerID, id)
	s.unindex(cs.ReceiverID, id)
	return true
}

// SessionsOf returns every session the user is party to, oldest first.
func (s *MemoryStore) SessionsOf(user domain.UserID) []domain.CallSession {
	rooms := s.byUser[user]
	out := make([]domain.CallSession, 0, len(rooms))
	for id := range rooms {
		out = append(out, s.sessions[id])
	}
	slices.SortFunc(out, func(a, b domain.CallSession) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.RoomID, b.RoomID)
	})
	return out
}

func (s *MemoryStore) index(user domain.UserID, id domain.RoomID) {
	rooms, ok := s.byUser[user]
	if !ok {
		rooms = make(map[domain.RoomID]struct{})
		s.byUser[user] = rooms
	}
	rooms[id] = struct{}{}
}

func (s *MemoryStore) unindex(user domain.UserID, id domain.RoomID) {
	rooms, ok := s.byUser[user]
	if !ok {
		return
	}
	delete(rooms, id)
	if len(rooms) == 0 {
		delete(s.byUser, user)
	}
}

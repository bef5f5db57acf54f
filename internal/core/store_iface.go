package core

import "github.com/dkeye/callhub/internal/domain"

// Store holds the registry and the call sessions of one hub instance.
//
// Methods are only called from the hub goroutine and need no locking.
// Values go in and out by copy, so a networked backend shared by several
// hub instances can implement it too.
type Store interface {
	// BindUser maps user to conn, replacing any previous connection of that
	// user. The previous connection, if any, is returned and forgets the user.
	BindUser(user domain.UserID, conn domain.ConnectionID) (prev domain.ConnectionID, replaced bool)
	// UnbindConnection removes the entry whose value is conn.
	UnbindConnection(conn domain.ConnectionID) (domain.UserID, bool)
	ConnectionOf(user domain.UserID) (domain.ConnectionID, bool)
	UserOf(conn domain.ConnectionID) (domain.UserID, bool)
	Users() []domain.UserID

	PutSession(s domain.CallSession)
	Session(id domain.RoomID) (domain.CallSession, bool)
	DeleteSession(id domain.RoomID) bool
	SessionsOf(user domain.UserID) []domain.CallSession
}

package chat

// Conn is one live client session as seen by the gateway
type Conn interface {
	// ID is unique among live connections
	ID() string
	// UserID returns the authenticated user, or false for an anonymous observer
	UserID() (uint, bool)
	// Send queues a frame without blocking. It fails with ErrConnectionClosed
	// or ErrSendBufferFull.
	Send(frame []byte) error
}

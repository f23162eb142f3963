package chat

// Event is one inbound event on a connection. The concrete types are
// JoinEvent, LeaveEvent, PublishEvent and DisconnectEvent.
type Event interface {
	eventName() string
}

// JoinEvent subscribes the connection to a project room
type JoinEvent struct {
	ProjectID uint
}

// LeaveEvent drops one subscription
type LeaveEvent struct {
	ProjectID uint
}

// PublishEvent submits a message. SenderID is optional; when set it must
// match the connection's authenticated user.
type PublishEvent struct {
	ProjectID  uint
	SenderID   uint
	Text       string
	Attachment *Attachment
}

// DisconnectEvent tears the connection down
type DisconnectEvent struct{}

func (JoinEvent) eventName() string       { return "join" }
func (LeaveEvent) eventName() string      { return "leave" }
func (PublishEvent) eventName() string    { return "publish" }
func (DisconnectEvent) eventName() string { return "disconnect" }

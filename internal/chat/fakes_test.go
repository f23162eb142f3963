package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

type fakeConn struct {
	id     string
	uid    uint
	authed bool

	mu     sync.Mutex
	frames [][]byte
	closed bool
	full   bool
}

func newConn(id string, uid uint) *fakeConn {
	return &fakeConn{id: id, uid: uid, authed: uid != 0}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) UserID() (uint, bool) { return c.uid, c.authed }

func (c *fakeConn) Send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnectionClosed
	}
	if c.full {
		return ErrSendBufferFull
	}
	c.frames = append(c.frames, append([]byte(nil), frame...))
	return nil
}

func (c *fakeConn) close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// framesOfType decodes every frame whose "type" matches
func (c *fakeConn) framesOfType(frameType string) []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []map[string]any
	for _, f := range c.frames {
		var m map[string]any
		if err := json.Unmarshal(f, &m); err != nil {
			continue
		}
		if m["type"] == frameType {
			out = append(out, m)
		}
	}
	return out
}

func (c *fakeConn) delivered() []Delivered {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []Delivered
	for _, f := range c.frames {
		var df deliveredFrame
		if err := json.Unmarshal(f, &df); err != nil || df.Type != FrameDelivered {
			continue
		}
		out = append(out, *df.Message)
	}
	return out
}

func (c *fakeConn) errorCodes() []string {
	var codes []string
	for _, f := range c.framesOfType(FrameError) {
		codes = append(codes, f["code"].(string))
	}
	return codes
}

type fakeOracle struct {
	mu      sync.Mutex
	members map[uint]map[uint]bool
	err     error
	calls   int
}

func newOracle() *fakeOracle {
	return &fakeOracle{members: make(map[uint]map[uint]bool)}
}

func (o *fakeOracle) add(projectID uint, userIDs ...uint) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.members[projectID] == nil {
		o.members[projectID] = make(map[uint]bool)
	}
	for _, id := range userIDs {
		o.members[projectID][id] = true
	}
}

func (o *fakeOracle) IsMember(_ context.Context, userID, projectID uint) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	if o.err != nil {
		return false, o.err
	}
	return o.members[projectID][userID], nil
}

type fakeStore struct {
	mu        sync.Mutex
	messages  []ChatMessage
	nextID    uint
	now       time.Time
	appendErr error
	listErr   error
	appends   int
	ctxErrs   []error
}

func newStore() *fakeStore {
	return &fakeStore{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (s *fakeStore) Append(ctx context.Context, d Draft) (*ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appends++
	s.ctxErrs = append(s.ctxErrs, ctx.Err())
	if s.appendErr != nil {
		return nil, s.appendErr
	}
	s.nextID++
	s.now = s.now.Add(time.Second)
	m := ChatMessage{
		ID:         s.nextID,
		ProjectID:  d.ProjectID,
		SenderID:   d.SenderID,
		Text:       d.Text,
		Attachment: d.Attachment,
		CreatedAt:  s.now,
	}
	s.messages = append(s.messages, m)
	return &m, nil
}

func (s *fakeStore) ListByProject(_ context.Context, projectID uint) ([]ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []ChatMessage
	for _, m := range s.messages {
		if m.ProjectID == projectID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeDirectory struct {
	names map[uint]string
	calls int
	mu    sync.Mutex
}

func (d *fakeDirectory) DisplayName(_ context.Context, userID uint) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	name, ok := d.names[userID]
	if !ok {
		return "", errors.New("no such user")
	}
	return name, nil
}

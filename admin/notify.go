package admin

import (
	"html"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
)

type NotificationKind string

const (
	NotifySuccess NotificationKind = "success"
	NotifyError   NotificationKind = "error"
)

// Notification is a user visible outcome of a submit or delete.
type Notification struct {
	Kind    NotificationKind `json:"kind"`
	Op      string           `json:"op"`
	Message string           `json:"message"`
	At      time.Time        `json:"at"`
}

type Notifier interface {
	Notify(n Notification)
}

// Inbox keeps the most recent notifications until they are drained.
// Messages are shown as plain text, so markup from upstream error bodies
// (storage gateways answer with HTML pages) is stripped.
type Inbox struct {
	mu     sync.Mutex
	items  []Notification
	limit  int
	now    func() time.Time
	policy *bluemonday.Policy
	logger zerolog.Logger
}

func NewInbox(limit int, logger zerolog.Logger) *Inbox {
	if limit < 1 {
		limit = 1
	}
	return &Inbox{limit: limit, now: time.Now, policy: bluemonday.StrictPolicy(), logger: logger}
}

func (i *Inbox) Notify(n Notification) {
	if n.At.IsZero() {
		n.At = i.now()
	}
	n.Message = strings.Join(strings.Fields(html.UnescapeString(i.policy.Sanitize(n.Message))), " ")

	event := i.logger.Info()
	if n.Kind == NotifyError {
		event = i.logger.Warn()
	}
	event.Str("op", n.Op).Str("kind", string(n.Kind)).Msg(n.Message)

	i.mu.Lock()
	defer i.mu.Unlock()
	i.items = append(i.items, n)
	if over := len(i.items) - i.limit; over > 0 {
		i.items = append([]Notification(nil), i.items[over:]...)
	}
}

// Drain returns pending notifications oldest first and empties the inbox.
func (i *Inbox) Drain() []Notification {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := i.items
	i.items = nil
	if out == nil {
		out = []Notification{}
	}
	return out
}

func (i *Inbox) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.items)
}

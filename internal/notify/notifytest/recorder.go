// Package notifytest provides a recording notify.Dispatcher for tests.
package notifytest

import (
	"context"
	"sync"

	"github.com/codr1/Padelicious/internal/notify"
)

type Sent struct {
	UserID  int64
	Staff   bool
	Kind    notify.Kind
	Title   string
	Message string
}

type Recorder struct {
	mu   sync.Mutex
	sent []Sent
}

func (r *Recorder) Notify(_ context.Context, userID int64, kind notify.Kind, title, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Sent{UserID: userID, Kind: kind, Title: title, Message: message})
}

func (r *Recorder) NotifyStaff(_ context.Context, kind notify.Kind, title, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Sent{Staff: true, Kind: kind, Title: title, Message: message})
}

func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Sent, len(r.sent))
	copy(out, r.sent)
	return out
}

func (r *Recorder) Count(kind notify.Kind) int {
	n := 0
	for _, s := range r.Sent() {
		if s.Kind == kind {
			n++
		}
	}
	return n
}

package store

import "github.com/aselya-coder/PraktisiMengajar/internal/model"

type EventKind string

const (
	EventLoaded     EventKind = "loaded"
	EventTentative  EventKind = "tentative"
	EventConfirmed  EventKind = "confirmed"
	EventReconciled EventKind = "reconciled"
)

// Event tells subscribers that the visible content changed.
type Event struct {
	Kind    EventKind
	Section model.SectionKey
	Source  Source
}

// Subscribe registers a listener. Events are dropped for a listener whose
// buffer is full, so a slow reader never blocks an update. The returned
// func unregisters the listener and closes the channel.
func (s *Store) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	closed := false
	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if closed {
			return
		}
		closed = true
		delete(s.subs, id)
		close(ch)
	}
}

func (s *Store) publish(ev Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

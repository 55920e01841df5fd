package memvfs

// Event classifies a mutation reported to the watch layer.
type Event int

const (
	EventCreated Event = iota
	EventDeleted
	EventModified
)

func (e Event) String() string {
	switch e {
	case EventCreated:
		return "created"
	case EventDeleted:
		return "deleted"
	case EventModified:
		return "modified"
	default:
		return "unknown"
	}
}

// Notifier receives one call per affected directory after a mutation
// commits. It runs synchronously with the structural lock released;
// delivery and queueing belong to the watch service, not here.
type Notifier func(dir *File, event Event, name string)

// notify fires the registered notifier, if any. Must be called with
// the structural lock released so a notifier may call back into the
// store.
func (s *FileStore) notify(dir *File, event Event, name string) {
	if s.notifier != nil {
		s.notifier(dir, event, name)
	}
}

// NotifyModified reports a content modification of the named entry to
// the watch layer. The byte-stream layer calls this after writes; the
// store itself has no visibility into byte-store mutations.
func (s *FileStore) NotifyModified(dir *File, name string) {
	s.notify(dir, EventModified, name)
}

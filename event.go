package dirwatch

// EventType classifies the outcome of comparing two observations of a path.
type EventType int

const (
	// EventAdded is emitted when a path is observed with no prior record.
	EventAdded EventType = iota
	// EventModified is emitted when an existing path's stat changed.
	EventModified
	// EventRemoved is emitted when a tracked path disappears.
	EventRemoved
	// EventStable is emitted when a path has been unchanged for the
	// configured number of consecutive scans since its last add/modify.
	EventStable
)

// String returns the string representation of the event type.
func (t EventType) String() string {
	switch t {
	case EventAdded:
		return "added"
	case EventModified:
		return "modified"
	case EventRemoved:
		return "removed"
	case EventStable:
		return "stable"
	default:
		return "unknown"
	}
}

// Event is the classified outcome of comparing an old FileStat (or absence)
// to a new FileStat for one path.
type Event struct {
	Type EventType
	Path string
}

// Equal reports whether two events are the same logical event. The Notifier
// uses this to collapse immediately-consecutive duplicates.
func (e Event) Equal(o Event) bool {
	return e.Type == o.Type && e.Path == o.Path
}

// String implements fmt.Stringer.
func (e Event) String() string {
	return e.Type.String() + " " + e.Path
}

// classify derives the event type for a path given its prior stat (nil when
// the path had no record) and its current stat. It is a total function: every
// (prev, cur) pair yields exactly one type.
func classify(prev *FileStat, cur FileStat) EventType {
	if prev != nil && prev.Equal(cur) {
		return EventStable
	}
	if cur.IsRemoved() {
		return EventRemoved
	}
	if prev == nil {
		return EventAdded
	}
	return EventModified
}

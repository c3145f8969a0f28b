package dirwatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEventType_String(t *testing.T) {
	tests := []struct {
		eventType EventType
		want      string
	}{
		{EventAdded, "added"},
		{EventModified, "modified"},
		{EventRemoved, "removed"},
		{EventStable, "stable"},
		{EventType(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.eventType.String())
		})
	}
}

func TestClassify(t *testing.T) {
	now := time.Now()
	live := NewFileStat("/tmp/a", now, 10)
	grown := NewFileStat("/tmp/a", now, 20)

	tests := []struct {
		name string
		prev *FileStat
		cur  FileStat
		want EventType
	}{
		{"no prior record", nil, live, EventAdded},
		{"changed stat", &live, grown, EventModified},
		{"tracked path removed", &live, NewRemovedStat("/tmp/a"), EventRemoved},
		{"untracked path removed", nil, NewRemovedStat("/tmp/a"), EventRemoved},
		{"unchanged stat", &live, NewFileStat("/tmp/a", now, 10), EventStable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.prev, tt.cur))
		})
	}
}

func TestEvent_Equal(t *testing.T) {
	a := Event{Type: EventAdded, Path: "/tmp/a"}
	assert.True(t, a.Equal(Event{Type: EventAdded, Path: "/tmp/a"}))
	assert.False(t, a.Equal(Event{Type: EventModified, Path: "/tmp/a"}))
	assert.False(t, a.Equal(Event{Type: EventAdded, Path: "/tmp/b"}))
}

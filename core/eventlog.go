package core

import (
	"encoding/json"
	"errors"
	"fmt"

	"stablevault/core/types"
	"stablevault/storage"
)

var eventNextKey = []byte("events/next")

func eventKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("events/%020d", seq))
}

// EventLog is the append-only record of every state transition. Sequence
// numbers start at 1 and grow without gaps, so replaying the log in order
// reconstructs the exact history any observer saw.
type EventLog struct {
	db   storage.Database
	next uint64
}

// OpenEventLog attaches to the database, resuming the sequence where a
// previous run stopped.
func OpenEventLog(db storage.Database) (*EventLog, error) {
	log := &EventLog{db: db, next: 1}
	raw, err := db.Get(eventNextKey)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return log, nil
	}
	if err != nil {
		return nil, err
	}
	var next uint64
	if err := json.Unmarshal(raw, &next); err != nil {
		return nil, fmt.Errorf("eventlog: decode cursor: %w", err)
	}
	if next > 0 {
		log.next = next
	}
	return log, nil
}

// Append assigns the next sequence number to the event and persists it.
func (l *EventLog) Append(evt *types.Event) error {
	if evt == nil {
		return errors.New("eventlog: nil event")
	}
	evt.Sequence = l.next
	encoded, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("eventlog: encode event: %w", err)
	}
	if err := l.db.Put(eventKey(l.next), encoded); err != nil {
		return err
	}
	cursor, err := json.Marshal(l.next + 1)
	if err != nil {
		return err
	}
	if err := l.db.Put(eventNextKey, cursor); err != nil {
		return err
	}
	l.next++
	return nil
}

// Len returns the number of recorded events.
func (l *EventLog) Len() uint64 {
	return l.next - 1
}

// Replay feeds every recorded event, in order, to the visitor. The visitor
// returning an error stops the replay.
func (l *EventLog) Replay(fn func(types.Event) error) error {
	for seq := uint64(1); seq < l.next; seq++ {
		raw, err := l.db.Get(eventKey(seq))
		if err != nil {
			return fmt.Errorf("eventlog: read %d: %w", seq, err)
		}
		var evt types.Event
		if err := json.Unmarshal(raw, &evt); err != nil {
			return fmt.Errorf("eventlog: decode %d: %w", seq, err)
		}
		if err := fn(evt); err != nil {
			return err
		}
	}
	return nil
}

package run

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"sync"
	"time"
)

// Entry is one journal.jsonl record. IDs are allocated from the run state's
// NextEventID counter so external tools can resume the sequence.
type Entry struct {
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	ID        string `json:"id"`
	Event     string `json:"event"`
	Data      any    `json:"data"`
}

// Journal appends structured events to a run's journal.jsonl and keeps the
// state counter in step.
type Journal struct {
	run *Run
	mu  sync.Mutex
	now func() time.Time
}

// JournalOption customizes a Journal during construction.
type JournalOption func(*Journal)

// WithJournalClock overrides the timestamp source (for tests).
func WithJournalClock(clock func() time.Time) JournalOption {
	return func(j *Journal) {
		if clock != nil {
			j.now = clock
		}
	}
}

// NewJournal builds a journal bound to the run.
func NewJournal(r *Run, opts ...JournalOption) *Journal {
	journal := &Journal{run: r, now: time.Now}
	for _, opt := range opts {
		opt(journal)
	}
	return journal
}

// Append records an event without touching the run status.
func (j *Journal) Append(eventType, event string, data any) (Entry, error) {
	return j.append(eventType, event, data, "")
}

// AppendStatus records an event and transitions the run status in the same
// state write.
func (j *Journal) AppendStatus(eventType, event string, data any, status Status) (Entry, error) {
	return j.append(eventType, event, data, status)
}

func (j *Journal) append(eventType, event string, data any, status Status) (Entry, error) {
	if event == "" {
		return Entry{}, fmt.Errorf("journal: event name is required")
	}
	if eventType == "" {
		eventType = "event"
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	state, err := j.run.LoadState()
	if err != nil {
		return Entry{}, err
	}
	entry := Entry{
		Timestamp: j.now().UTC().Format(time.RFC3339),
		Type:      eventType,
		ID:        strconv.Itoa(state.NextEventID),
		Event:     event,
		Data:      normalizeEventData(data),
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return Entry{}, fmt.Errorf("journal: encode %s: %w", event, err)
	}
	file, err := os.OpenFile(j.run.JournalPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return Entry{}, fmt.Errorf("journal: open %s: %w", j.run.JournalPath(), err)
	}
	defer file.Close()
	if _, err := file.Write(append(line, '\n')); err != nil {
		return Entry{}, fmt.Errorf("journal: append %s: %w", event, err)
	}

	state.NextEventID++
	state.UpdatedAt = j.now().UTC()
	if status != "" {
		state.Status = status
	}
	if err := j.run.SaveState(state); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Read returns every journal entry in append order. A missing journal file
// yields an empty slice.
func (j *Journal) Read() ([]Entry, error) {
	file, err := os.Open(j.run.JournalPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("journal: open %s: %w", j.run.JournalPath(), err)
	}
	defer file.Close()
	var entries []Entry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, fmt.Errorf("journal: parse entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("journal: scan %s: %w", j.run.JournalPath(), err)
	}
	return entries, nil
}

// normalizeEventData keeps journal entries valid even when callers hand over
// pre-encoded payloads. Raw bytes that fail to parse are wrapped as
// {"raw": "..."} instead of being rejected.
func normalizeEventData(data any) any {
	switch v := data.(type) {
	case nil:
		return map[string]any{}
	case json.RawMessage:
		return decodeRaw([]byte(v))
	case []byte:
		return decodeRaw(v)
	default:
		return data
	}
}

func decodeRaw(raw []byte) any {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return map[string]any{"raw": string(raw)}
	}
	return decoded
}

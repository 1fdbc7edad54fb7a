// Package dedup records which error diagnostics have already produced a sound.
//
// Records are keyed by file, line and message text. A file's records are dropped
// as soon as the file reports no errors, so a fixed-then-reintroduced error plays again.
package dedup

// Key identifies one potential notification.
type Key struct {
	File    string
	Line    int
	Message string
}

// Tracker is the in-memory dedup index. It is not safe for concurrent use;
// the narrator controller serializes every call.
type Tracker struct {
	files map[string]map[int]map[string]struct{}
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{files: make(map[string]map[int]map[string]struct{})}
}

// ShouldNotify reports whether key has not been marked since the last ClearFile of its file.
func (t *Tracker) ShouldNotify(key Key) bool {
	lines, ok := t.files[key.File]
	if !ok {
		return true
	}
	messages, ok := lines[key.Line]
	if !ok {
		return true
	}
	_, seen := messages[key.Message]
	return !seen
}

// MarkNotified records key. Call it only after a play attempt was started.
func (t *Tracker) MarkNotified(key Key) {
	lines, ok := t.files[key.File]
	if !ok {
		lines = make(map[int]map[string]struct{})
		t.files[key.File] = lines
	}
	messages, ok := lines[key.Line]
	if !ok {
		messages = make(map[string]struct{})
		lines[key.Line] = messages
	}
	messages[key.Message] = struct{}{}
}

// ClearFile drops every record for file, including its line maps.
func (t *Tracker) ClearFile(file string) {
	delete(t.files, file)
}

// Files returns the number of files with at least one record.
func (t *Tracker) Files() int {
	return len(t.files)
}

// Len returns the total number of recorded (file, line, message) triples.
func (t *Tracker) Len() int {
	total := 0
	for _, lines := range t.files {
		for _, messages := range lines {
			total += len(messages)
		}
	}
	return total
}

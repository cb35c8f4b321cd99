package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	NotesCreated        uint64
	NotesUpdated        uint64
	NotesDeleted        uint64
	AttachmentsStored   uint64
	AttachmentsRejected map[string]uint64
	AuthRejected        map[string]uint64
	HTTPRequests        uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	notesCreated      uint64
	notesUpdated      uint64
	notesDeleted      uint64
	attachmentsStored uint64
	httpRequests      uint64

	mu                  sync.Mutex
	attachmentsRejected map[string]uint64
	authRejected        map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		attachmentsRejected: make(map[string]uint64),
		authRejected:        make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	rejected := copyCounts(m.attachmentsRejected)
	auth := copyCounts(m.authRejected)
	m.mu.Unlock()

	return Snapshot{
		NotesCreated:        atomic.LoadUint64(&m.notesCreated),
		NotesUpdated:        atomic.LoadUint64(&m.notesUpdated),
		NotesDeleted:        atomic.LoadUint64(&m.notesDeleted),
		AttachmentsStored:   atomic.LoadUint64(&m.attachmentsStored),
		AttachmentsRejected: rejected,
		AuthRejected:        auth,
		HTTPRequests:        atomic.LoadUint64(&m.httpRequests),
	}
}

// IncNoteCreated increments the created counter.
func (m *InMemoryRecorder) IncNoteCreated() {
	atomic.AddUint64(&m.notesCreated, 1)
}

// IncNoteUpdated increments the updated counter.
func (m *InMemoryRecorder) IncNoteUpdated() {
	atomic.AddUint64(&m.notesUpdated, 1)
}

// IncNoteDeleted increments the deleted counter.
func (m *InMemoryRecorder) IncNoteDeleted() {
	atomic.AddUint64(&m.notesDeleted, 1)
}

// IncAttachmentStored increments the stored attachment counter.
func (m *InMemoryRecorder) IncAttachmentStored() {
	atomic.AddUint64(&m.attachmentsStored, 1)
}

// IncAttachmentRejected counts a rejected upload by reason.
func (m *InMemoryRecorder) IncAttachmentRejected(reason string) {
	m.mu.Lock()
	m.attachmentsRejected[reason]++
	m.mu.Unlock()
}

// IncAuthRejected counts an authorization rejection by reason.
func (m *InMemoryRecorder) IncAuthRejected(reason string) {
	m.mu.Lock()
	m.authRejected[reason]++
	m.mu.Unlock()
}

// ObserveHTTPRequest counts handled requests.
func (m *InMemoryRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	atomic.AddUint64(&m.httpRequests, 1)
}

func copyCounts(src map[string]uint64) map[string]uint64 {
	dst := make(map[string]uint64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

package albums

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

const (
	// DefaultFlushDelay is the quiet period after the last ingest before a buffer is flushed.
	DefaultFlushDelay = 1500 * time.Millisecond
	// DefaultMaxAlbumSize limits the number of attachments stored per album.
	DefaultMaxAlbumSize = 10
)

// ErrAlbumFull is returned when an ingest would push a buffer past the size cap.
// The buffer is left untouched and its pending flush is not rescheduled.
var ErrAlbumFull = errors.New("album buffer is full")

// Attachment is one buffered photo together with the context needed to
// resume the submitter's flow once the album is complete.
type Attachment struct {
	FileID string
	UserID int64
	ChatID int64
}

// FlushFunc receives the completed album in arrival order.
type FlushFunc func(ctx context.Context, albumKey string, attachments []Attachment)

type albumBuffer struct {
	mu          sync.Mutex
	attachments []Attachment
	// gen increases on every accepted ingest. A fired timer compares its
	// captured generation against the current one; a stale timer never flushes.
	gen     uint64
	timer   *time.Timer
	flushed bool
}

// Manager buffers bursts of photo messages that belong to one logical album
// and flushes each buffer as a single ordered batch after a debounce window.
// Buffers for different album keys are fully independent.
type Manager struct {
	buffers sync.Map // map[string]*albumBuffer
	delay   time.Duration
	maxSize int
}

// NewManager creates a new album manager with the given debounce delay and size cap.
func NewManager(delay time.Duration, maxSize int) *Manager {
	if delay <= 0 {
		delay = DefaultFlushDelay
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxAlbumSize
	}
	return &Manager{delay: delay, maxSize: maxSize}
}

// Ingest appends att to the buffer for albumKey, creating the buffer if absent,
// and (re)schedules the flush timer. Any not-yet-fired flush for the same key is
// superseded. A full buffer rejects the attachment with ErrAlbumFull.
func (m *Manager) Ingest(albumKey string, att Attachment, flush FlushFunc) error {
	var buf *albumBuffer
	for {
		val, _ := m.buffers.LoadOrStore(albumKey, &albumBuffer{})
		buf = val.(*albumBuffer)
		buf.mu.Lock()
		if !buf.flushed {
			break
		}
		// Lost a race against a concurrent flush of this key; the entry is
		// already removed from the map, start a fresh buffer.
		buf.mu.Unlock()
	}
	defer buf.mu.Unlock()

	if len(buf.attachments) >= m.maxSize {
		log.Printf("[AlbumManager Key:%s] Buffer limit (%d) reached, attachment dropped.", albumKey, m.maxSize)
		return ErrAlbumFull
	}

	buf.attachments = append(buf.attachments, att)
	buf.gen++
	gen := buf.gen

	if buf.timer != nil {
		buf.timer.Stop()
	}
	buf.timer = time.AfterFunc(m.delay, func() {
		m.flush(albumKey, gen, flush)
	})

	return nil
}

// flush finalizes the buffer for albumKey if no ingest superseded generation gen.
func (m *Manager) flush(albumKey string, gen uint64, fn FlushFunc) {
	val, ok := m.buffers.Load(albumKey)
	if !ok {
		return
	}
	buf := val.(*albumBuffer)

	buf.mu.Lock()
	if buf.flushed || buf.gen != gen {
		// Superseded by a later ingest or already handled; cancellation wins.
		buf.mu.Unlock()
		return
	}
	buf.flushed = true
	attachments := buf.attachments
	m.buffers.Delete(albumKey)
	buf.mu.Unlock()

	if len(attachments) == 0 {
		log.Printf("[AlbumManager Key:%s] Timer fired for an empty buffer, ignoring.", albumKey)
		return
	}

	log.Printf("[AlbumManager Key:%s] Flushing %d attachment(s).", albumKey, len(attachments))
	fn(context.Background(), albumKey, attachments)
}

// Shutdown stops all pending flush timers. Buffered attachments are discarded.
func (m *Manager) Shutdown() {
	stopped := 0
	m.buffers.Range(func(key, value interface{}) bool {
		buf := value.(*albumBuffer)
		buf.mu.Lock()
		if buf.timer != nil && buf.timer.Stop() {
			stopped++
		}
		buf.flushed = true
		buf.mu.Unlock()
		m.buffers.Delete(key)
		return true
	})
	log.Printf("[AlbumManager] Shutdown complete. Stopped %d pending timer(s).", stopped)
}

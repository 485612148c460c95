package audit

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/RishiKendai/vigil/internal/models"
)

// SecurityLog records security events such as blocked prompts and rejected attempts.
type SecurityLog struct {
	ring *RingBuffer[models.SecurityEvent]
	now  func() time.Time
}

func NewSecurityLog(capacity int) *SecurityLog {
	return &SecurityLog{ring: NewRingBuffer[models.SecurityEvent](capacity), now: time.Now}
}

func (l *SecurityLog) Record(event models.SecurityEvent) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now()
	}
	if l.ring.Push(event) {
		log.Trace().Int("capacity", l.ring.Cap()).Msg("Security log full, evicted oldest event")
	}
}

// Recent returns up to limit events, newest first, optionally filtered by type.
// A limit below one returns every buffered event.
func (l *SecurityLog) Recent(limit int, eventType models.SecurityEventType) []models.SecurityEvent {
	all := l.ring.Snapshot()
	out := make([]models.SecurityEvent, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if eventType != "" && all[i].Type != eventType {
			continue
		}
		out = append(out, all[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

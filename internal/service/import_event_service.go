package service

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/classync-go-api/internal/dto"
)

const importCompletedSubject = "classync.imports.completed"

// ImportEvent is the payload published after every import run so downstream
// consumers (dashboards, reporting) can refresh without polling.
type ImportEvent struct {
	TeacherEmail string               `json:"teacher_email"`
	Source       string               `json:"source"`
	Result       dto.ProcessingResult `json:"result"`
	CompletedAt  time.Time            `json:"completed_at"`
}

// ImportEventPublisher emits import lifecycle events. Publication is
// best-effort: a broker outage never fails the run.
type ImportEventPublisher interface {
	PublishCompleted(event ImportEvent)
}

type importEventPublisher struct {
	conn   *nats.Conn
	logger zerolog.Logger
}

// NewImportEventPublisher constructs the publisher. A nil connection
// degrades to logging only.
func NewImportEventPublisher(conn *nats.Conn, logger zerolog.Logger) ImportEventPublisher {
	return &importEventPublisher{
		conn:   conn,
		logger: logger.With().Str("component", "import_event_publisher").Logger(),
	}
}

func (p *importEventPublisher) PublishCompleted(event ImportEvent) {
	if event.CompletedAt.IsZero() {
		event.CompletedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn().Err(err).Msg("failed to encode import event")
		return
	}

	if p.conn == nil {
		p.logger.Debug().Str("subject", importCompletedSubject).Msg("nats disabled, import event dropped")
		return
	}

	if err := p.conn.Publish(importCompletedSubject, payload); err != nil {
		p.logger.Warn().Err(err).Str("subject", importCompletedSubject).Msg("failed to publish import event")
	}
}

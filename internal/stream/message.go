package stream

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/RishiKendai/vigil/internal/models"
)

// StreamMessage is one raw entry read from the code events stream.
type StreamMessage struct {
	ID     string
	Fields map[string]string
}

// CodeEvent is a parsed copy/paste report published by the editor.
type CodeEvent struct {
	UserID string
	Report models.CopyPasteReport
}

// ParseCodeEvent validates the stream fields userId, attemptId, action, content and lineCount.
// The stream entry ID becomes the event's idempotency key.
func ParseCodeEvent(msg *StreamMessage) (*CodeEvent, error) {
	userID := strings.TrimSpace(msg.Fields["userId"])
	if userID == "" {
		return nil, fmt.Errorf("missing userId")
	}
	attemptID := strings.TrimSpace(msg.Fields["attemptId"])
	if attemptID == "" {
		return nil, fmt.Errorf("missing attemptId")
	}

	action := models.CopyPasteAction(strings.ToLower(strings.TrimSpace(msg.Fields["action"])))
	if action != models.ActionCopy && action != models.ActionPaste {
		return nil, fmt.Errorf("invalid action %q", msg.Fields["action"])
	}

	content := msg.Fields["content"]
	if utf8.RuneCountInString(content) > models.MaxCopyPasteContent {
		return nil, fmt.Errorf("content exceeds %d characters", models.MaxCopyPasteContent)
	}

	lineCount := 0
	if raw := strings.TrimSpace(msg.Fields["lineCount"]); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid lineCount %q", raw)
		}
		lineCount = n
	}

	return &CodeEvent{
		UserID: userID,
		Report: models.CopyPasteReport{
			EventID:   msg.ID,
			AttemptID: attemptID,
			Action:    action,
			Content:   content,
			LineCount: lineCount,
		},
	}, nil
}

package mq

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	MessageTypeJobPending   MessageType = "job.pending"
	MessageTypeJobCompleted MessageType = "job.completed"
)

// Message — JSON конверт всех сообщений Riskwatch.
// Payload остаётся сырым до ParsePayload: тип известен только обработчику.
type Message struct {
	ID        string          `json:"id"`
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// JobPendingPayload будит воркер: job с этим ID ждёт обработки.
type JobPendingPayload struct {
	JobID uuid.UUID `json:"job_id"`
}

// JobCompletedPayload — итог scoring job для внешних подписчиков.
type JobCompletedPayload struct {
	JobID        uuid.UUID      `json:"job_id"`
	Status       string         `json:"status"` // SUCCEEDED или FAILED
	ModelVersion string         `json:"model_version,omitempty"`
	Scored       int            `json:"scored"`
	RiskCounts   map[string]int `json:"risk_counts,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// NewMessage кодирует payload в конверт с новым ID.
func NewMessage(msgType MessageType, payload any) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	return &Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Payload:   raw,
		Timestamp: time.Now().UTC(),
	}, nil
}

// ParsePayload декодирует payload конверта в T.
func ParsePayload[T any](msg *Message) (T, error) {
	var result T
	if len(msg.Payload) == 0 {
		return result, errors.New("empty payload")
	}
	if err := json.Unmarshal(msg.Payload, &result); err != nil {
		return result, fmt.Errorf("decode %s payload: %w", msg.Type, err)
	}
	return result, nil
}

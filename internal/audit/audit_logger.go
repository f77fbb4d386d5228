package audit

import (
	"encoding/json"
	"log"
	"time"
)

type Event struct {
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	Reference string    `json:"reference"`
	UserID    int       `json:"user_id"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	Details   any       `json:"details"`
}

type Logger struct{}

func NewLogger() *Logger {
	return &Logger{}
}

func (a *Logger) LogVote(reference string, voterID, candidateID int, amount, voteValue int64, status string) {
	event := Event{
		Timestamp: time.Now(),
		EventType: "VOTE",
		Reference: reference,
		UserID:    voterID,
		Amount:    amount,
		Status:    status,
		Details: map[string]int64{
			"candidate_id": int64(candidateID),
			"vote_value":   voteValue,
		},
	}
	a.log(event)
}

func (a *Logger) LogCredit(reference string, userID int, amount int64, status string) {
	event := Event{
		Timestamp: time.Now(),
		EventType: "CREDIT",
		Reference: reference,
		UserID:    userID,
		Amount:    amount,
		Status:    status,
	}
	a.log(event)
}

func (a *Logger) LogError(reference string, userID int, err error) {
	event := Event{
		Timestamp: time.Now(),
		EventType: "ERROR",
		Reference: reference,
		UserID:    userID,
		Status:    "FAILED",
		Details:   map[string]string{"error": err.Error()},
	}
	a.log(event)
}

func (a *Logger) LogOperation(reference string, userID int, operation, details string) {
	event := Event{
		Timestamp: time.Now(),
		EventType: operation,
		Reference: reference,
		UserID:    userID,
		Status:    "SUCCESS",
		Details:   map[string]string{"details": details},
	}
	a.log(event)
}

func (a *Logger) log(event Event) {
	data, _ := json.Marshal(event)
	log.Printf("AUDIT: %s", string(data))
}

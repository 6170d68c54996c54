package models

import "time"

type EventType string

const (
	EventProcessStart    EventType = "processStart"
	EventProcessProgress EventType = "processProgress"
	EventProcessError    EventType = "processError"
	EventProcessComplete EventType = "processComplete"
)

// Event is one batch lifecycle notification. Exactly one payload is set.
type Event struct {
	Type      EventType        `json:"type"`
	BatchID   string           `json:"batchId"`
	Timestamp time.Time        `json:"timestamp"`
	Start     *ProcessStart    `json:"start,omitempty"`
	Progress  *ProcessProgress `json:"progress,omitempty"`
	Error     *ProcessError    `json:"error,omitempty"`
	Complete  *ProcessComplete `json:"complete,omitempty"`
}

type ProcessStart struct {
	BatchID string `json:"batchId"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}

type ProcessProgress struct {
	BatchID       string     `json:"batchId"`
	Status        string     `json:"status"`
	Completed     int        `json:"completed"`
	Total         int        `json:"total"`
	CurrentResult ItemResult `json:"currentResult"`
}

type ProcessError struct {
	BatchID string `json:"batchId"`
	Status  string `json:"status"`
	File    string `json:"file"`
	Error   string `json:"error"`
}

type ProcessComplete struct {
	BatchID string      `json:"batchId"`
	Status  string      `json:"status"`
	Results BatchRecord `json:"results"`
}

// Payload returns the populated payload for wire encoding.
func (e Event) Payload() any {
	switch e.Type {
	case EventProcessStart:
		return e.Start
	case EventProcessProgress:
		return e.Progress
	case EventProcessError:
		return e.Error
	case EventProcessComplete:
		return e.Complete
	}
	return nil
}

func NewStartEvent(batchID string, total int) Event {
	return Event{
		Type:      EventProcessStart,
		BatchID:   batchID,
		Timestamp: time.Now(),
		Start:     &ProcessStart{BatchID: batchID, Total: total, Message: "Starting image processing"},
	}
}

func NewProgressEvent(batchID string, completed, total int, result ItemResult) Event {
	return Event{
		Type:      EventProcessProgress,
		BatchID:   batchID,
		Timestamp: time.Now(),
		Progress: &ProcessProgress{
			BatchID:       batchID,
			Status:        "progress",
			Completed:     completed,
			Total:         total,
			CurrentResult: result,
		},
	}
}

func NewErrorEvent(batchID, file, message string) Event {
	return Event{
		Type:      EventProcessError,
		BatchID:   batchID,
		Timestamp: time.Now(),
		Error:     &ProcessError{BatchID: batchID, Status: "error", File: file, Error: message},
	}
}

func NewCompleteEvent(record BatchRecord) Event {
	return Event{
		Type:      EventProcessComplete,
		BatchID:   record.ID,
		Timestamp: time.Now(),
		Complete:  &ProcessComplete{BatchID: record.ID, Status: "completed", Results: record},
	}
}

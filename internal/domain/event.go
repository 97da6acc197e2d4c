package domain

import "time"

// Post is a raw message pulled from an upstream channel before preprocessing.
type Post struct {
	TextRaw   string
	Source    string
	Lang      string
	CreatedAt time.Time
}

// EventStatus tracks how far an event travelled through the pipeline.
type EventStatus string

const (
	EventPending    EventStatus = "pending"
	EventProcessing EventStatus = "processing"
	EventDone       EventStatus = "done"
	EventFailed     EventStatus = "failed"
)

// Event is one ingested post after preprocessing, persisted in the events table.
type Event struct {
	ID            string
	Source        string
	TextRaw       string
	TextProcessed *string
	Lang          string
	Hashtags      []string
	Emojis        []string
	CreatedAt     time.Time
	Status        EventStatus
}

package domain

import "time"

// Message is a single channel message as returned by history reads.
type Message struct {
	ID          string
	Author      Member
	Content     string
	Timestamp   time.Time
	Attachments []string
}

package models

import "time"

// CommitTime records when a path first appeared in history.
type CommitTime struct {
	Created    time.Time `json:"created"`
	CreatedUTC time.Time `json:"created_utc"`
	Commit     string    `json:"commit"`
}

// Article is one note as listed in the index.
type Article struct {
	Title     string     `json:"title"`
	URL       string     `json:"url"`
	Path      string     `json:"path"`
	Timestamp CommitTime `json:"timestamp"`
}

// TopicGroup holds the articles of one topic directory, newest first.
type TopicGroup struct {
	Topic    string    `json:"topic"`
	Articles []Article `json:"articles"`
}

package models

import "time"

// RankedArchive is an archive as returned to the chat client together with
// the relevance score it was ranked by.
type RankedArchive struct {
	ID         uint      `json:"id"`
	Title      string    `json:"title"`
	FileNumber string    `json:"file_number"`
	Category   string    `json:"category"`
	Location   string    `json:"location"`
	Status     string    `json:"status"`
	CreateTime time.Time `json:"create_time"`
	Relevance  int       `json:"relevance"`
}

// QueryResult is the outcome of one processed chat query. When processing
// failed after validation only Error is populated.
type QueryResult struct {
	ChatID           uint            `json:"chat_id,omitempty"`
	SessionID        string          `json:"session_id,omitempty"`
	Answer           string          `json:"answer,omitempty"`
	RelevantArchives []RankedArchive `json:"relevant_archives,omitempty"`
	Recommendations  []string        `json:"recommendations,omitempty"`
	QueryType        string          `json:"query_type,omitempty"`
	ProcessingTimeMs int64           `json:"processing_time_ms,omitempty"`
	Error            string          `json:"error,omitempty"`
}

// Failed reports whether the result is a degraded error-only answer.
func (r *QueryResult) Failed() bool {
	return r.Error != ""
}

// ChatHistoryEntry is the client-facing view of a past interaction.
type ChatHistoryEntry struct {
	ID         uint      `json:"id"`
	Query      string    `json:"query"`
	Response   string    `json:"response"`
	CreateTime time.Time `json:"create_time"`
	QueryType  string    `json:"query_type"`
	IsHelpful  *bool     `json:"is_helpful"`
}

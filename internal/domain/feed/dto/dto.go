package dto

import "time"

// PostCreatedEvent is published for every newly persisted post
type PostCreatedEvent struct {
	CycleID         string    `json:"cycle_id,omitempty"`
	ChannelID       uint      `json:"channel_id"`
	ChannelUsername string    `json:"channel_username"`
	MessageID       int       `json:"message_id"`
	Text            string    `json:"text"`
	URL             string    `json:"url"`
	Date            time.Time `json:"date"`
}

// FeedPage is one page of a paginated listing
type FeedPage[T any] struct {
	Items   []T
	Offset  int
	HasNext bool
}

// NextOffset returns the offset of the following page
func (p FeedPage[T]) NextOffset() int {
	return p.Offset + len(p.Items)
}

// SuggestionsSummary is the admin view of suggestions
type SuggestionsSummary struct {
	Total  int
	Latest []SuggestionView
}

// SuggestionView is a suggestion shaped for display
type SuggestionView struct {
	ChannelUsername string
	UserID          *int64
	Comment         *string
	CreatedAt       time.Time
}

// AddChannelResult reports the outcome of the admin add-channel flow
type AddChannelResult struct {
	ChannelID  uint
	Username   string
	Title      string
	PostsAdded int
}

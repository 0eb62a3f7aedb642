package entities

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxPostTextLength bounds stored post text, in runes
const MaxPostTextLength = 4096

// Channel is an external channel whose posts are aggregated
type Channel struct {
	ID       uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username string    `gorm:"not null;uniqueIndex" json:"username"`
	Title    *string   `json:"title,omitempty"`
	AddedAt  time.Time `json:"addedAt"`
	IsActive bool      `gorm:"not null;default:true" json:"isActive"`
}

func (Channel) TableName() string {
	return "channels"
}

// DisplayTitle returns the title when known, otherwise the @username
func (c *Channel) DisplayTitle() string {
	if c.Title != nil && *c.Title != "" {
		return *c.Title
	}
	return "@" + c.Username
}

// Post is a stored channel message. (ChannelID, MessageID) is immutable once created.
type Post struct {
	ChannelID uint      `gorm:"primaryKey;autoIncrement:false" json:"channelId"`
	MessageID int       `gorm:"primaryKey;autoIncrement:false" json:"messageId"`
	Text      string    `json:"text"`
	Date      time.Time `json:"date"`
	URL       string    `json:"url"`
}

func (Post) TableName() string {
	return "posts"
}

// User is a bot user, created lazily on first interaction
type User struct {
	UserID    int64     `gorm:"primaryKey;autoIncrement:false" json:"userId"`
	FirstSeen time.Time `json:"firstSeen"`
}

func (User) TableName() string {
	return "users"
}

// SavedPost is a user bookmark of an existing post
type SavedPost struct {
	UserID    int64     `gorm:"primaryKey;autoIncrement:false" json:"userId"`
	ChannelID uint      `gorm:"primaryKey;autoIncrement:false" json:"channelId"`
	MessageID int       `gorm:"primaryKey;autoIncrement:false" json:"messageId"`
	SavedAt   time.Time `json:"savedAt"`
}

func (SavedPost) TableName() string {
	return "saved_posts"
}

// Suggestion is an append-only channel proposal from a user
type Suggestion struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          *int64    `json:"userId,omitempty"`
	ChannelUsername string    `json:"channelUsername"`
	Comment         *string   `json:"comment,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

func (Suggestion) TableName() string {
	return "suggestions"
}

// PostWithChannel is a post joined with the identity of its channel
type PostWithChannel struct {
	ChannelID       uint      `json:"channelId"`
	MessageID       int       `json:"messageId"`
	Text            string    `json:"text"`
	Date            time.Time `json:"date"`
	URL             string    `json:"url"`
	ChannelUsername string    `json:"channelUsername"`
	ChannelTitle    *string   `json:"channelTitle,omitempty"`
}

// SavedPostWithChannel is a saved post joined with channel identity and bookmark time
type SavedPostWithChannel struct {
	PostWithChannel
	SavedAt time.Time `json:"savedAt"`
}

// Stats holds independent entity counts
type Stats struct {
	Users      int64 `json:"users"`
	Posts      int64 `json:"posts"`
	Channels   int64 `json:"channels"`
	SavedPosts int64 `json:"saved_posts"`
}

// RawMessage is a message as returned by the content provider
type RawMessage struct {
	ID     int
	Text   string
	Date   time.Time
	IsText bool
}

// SaveResult is the outcome of a bookmark attempt
type SaveResult int

const (
	SaveResultSaved SaveResult = iota
	SaveResultAlreadySaved
	SaveResultPostNotFound
)

// OK reports whether a new bookmark was created
func (r SaveResult) OK() bool {
	return r == SaveResultSaved
}

func (r SaveResult) String() string {
	switch r {
	case SaveResultSaved:
		return "Post saved"
	case SaveResultAlreadySaved:
		return "Post already saved"
	case SaveResultPostNotFound:
		return "Post not found"
	default:
		return fmt.Sprintf("SaveResult(%d)", int(r))
	}
}

// NormalizeUsername strips surrounding whitespace and the leading @ marker
func NormalizeUsername(username string) string {
	return strings.TrimPrefix(strings.TrimSpace(username), "@")
}

// PostURL builds the public link of a channel message
func PostURL(baseURL, username string, messageID int) string {
	return fmt.Sprintf("%s/%s/%d", strings.TrimRight(baseURL, "/"), username, messageID)
}

// TruncateText cuts text to at most MaxPostTextLength runes
func TruncateText(text string) string {
	if utf8.RuneCountInString(text) <= MaxPostTextLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:MaxPostTextLength])
}

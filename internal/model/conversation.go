// Package model defines data structures for the conversation archive.
package model

// Role identifies the author of a conversational turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single conversational turn. Immutable once extracted.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is a stored conversation record.
//
// JSON field names follow the archive interchange format used by the
// capture clients, so exported bundles round-trip between installs.
type Conversation struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Provider string `json:"provider"`
	// Content is the legacy flat Markdown rendering kept for records
	// saved before per-message extraction existed.
	Content   string `json:"content,omitempty"`
	Timestamp int64  `json:"timestamp"`
	URL       string `json:"url,omitempty"`
	// ConversationID is the platform-native identifier parsed from the
	// provider's URL scheme. Natural key for duplicate detection; may be
	// empty when the provider exposes none.
	ConversationID string    `json:"conversationId,omitempty"`
	Tags           []string  `json:"tags"`
	IsFavorite     bool      `json:"isFavorite"`
	Notes          string    `json:"notes,omitempty"`
	MessageCount   int       `json:"messageCount"`
	Messages       []Message `json:"messages,omitempty"`
	ModifiedAt     int64     `json:"modifiedAt,omitempty"`
}

// ConversationUpdate carries the mutable fields of a conversation.
// Nil fields are left untouched by an update.
type ConversationUpdate struct {
	Title      *string   `json:"title,omitempty"`
	Content    *string   `json:"content,omitempty"`
	Tags       *[]string `json:"tags,omitempty"`
	IsFavorite *bool     `json:"isFavorite,omitempty"`
	Notes      *string   `json:"notes,omitempty"`
}

// Apply merges the update onto a conversation in place.
// The record identity is never touched here.
func (u *ConversationUpdate) Apply(c *Conversation) {
	if u.Title != nil {
		c.Title = *u.Title
	}
	if u.Content != nil {
		c.Content = *u.Content
	}
	if u.Tags != nil {
		c.Tags = *u.Tags
	}
	if u.IsFavorite != nil {
		c.IsFavorite = *u.IsFavorite
	}
	if u.Notes != nil {
		c.Notes = *u.Notes
	}
}

// ExportFormat selects the rendering used for single-conversation export.
type ExportFormat string

const (
	ExportFormatMarkdown ExportFormat = "markdown"
	ExportFormatJSON     ExportFormat = "json"
)

// Settings holds user preferences. All fields always carry a value;
// loading merges stored settings over DefaultSettings.
type Settings struct {
	AutoSave         bool         `json:"autoSave"`
	ExportFormat     ExportFormat `json:"exportFormat"`
	MaxConversations int          `json:"maxConversations"`
}

// DefaultSettings returns the settings applied when nothing is stored.
func DefaultSettings() Settings {
	return Settings{
		AutoSave:         false,
		ExportFormat:     ExportFormatMarkdown,
		MaxConversations: 100,
	}
}

// SettingsUpdate carries a partial settings change. Nil fields keep
// their current value.
type SettingsUpdate struct {
	AutoSave         *bool         `json:"autoSave,omitempty"`
	ExportFormat     *ExportFormat `json:"exportFormat,omitempty"`
	MaxConversations *int          `json:"maxConversations,omitempty"`
}

// Apply merges the update onto settings in place.
func (u *SettingsUpdate) Apply(s *Settings) {
	if u.AutoSave != nil {
		s.AutoSave = *u.AutoSave
	}
	if u.ExportFormat != nil {
		s.ExportFormat = *u.ExportFormat
	}
	if u.MaxConversations != nil {
		s.MaxConversations = *u.MaxConversations
	}
}

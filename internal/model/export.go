package model

// SearchFilters narrows a conversation search. Zero values mean
// "no constraint" except Favorite, which is a tri-state pointer.
type SearchFilters struct {
	Provider string `json:"provider,omitempty"`
	Favorite *bool  `json:"favorite,omitempty"`
	// StartDate and EndDate bound the creation timestamp inclusively,
	// in epoch milliseconds. Zero means unbounded.
	StartDate int64    `json:"startDate,omitempty"`
	EndDate   int64    `json:"endDate,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

// StorageUsage estimates how full the backing store is.
type StorageUsage struct {
	Bytes   int64   `json:"bytes"`
	KB      float64 `json:"kb"`
	Percent float64 `json:"percent"`
}

// Statistics summarizes the archive contents.
type Statistics struct {
	TotalConversations int            `json:"totalConversations"`
	FavoriteCount      int            `json:"favoriteCount"`
	ByProvider         map[string]int `json:"byProvider"`
	TotalMessages      int            `json:"totalMessages"`
	OldestTimestamp    *int64         `json:"oldestTimestamp"`
	NewestTimestamp    *int64         `json:"newestTimestamp"`
	StorageUsage       StorageUsage   `json:"storageUsage"`
}

// ExportBundle is the full-archive snapshot produced by export and
// consumed by import.
type ExportBundle struct {
	Version       string         `json:"version"`
	ExportDate    string         `json:"exportDate"`
	Conversations []Conversation `json:"conversations"`
	Settings      *Settings      `json:"settings,omitempty"`
	Statistics    *Statistics    `json:"statistics,omitempty"`
}

// MergeStrategy controls how import treats records that duplicate an
// existing platform conversation id.
type MergeStrategy string

const (
	// MergeSkip leaves the existing record untouched.
	MergeSkip MergeStrategy = "skip"
	// MergeUpdate overlays the incoming record onto the existing one.
	MergeUpdate MergeStrategy = "update"
)

// ImportError records a single record that failed to import.
type ImportError struct {
	Title string `json:"title"`
	Error string `json:"error"`
}

// ImportResult accounts for a completed import.
type ImportResult struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Updated  int           `json:"updated"`
	Errors   []ImportError `json:"errors"`
}

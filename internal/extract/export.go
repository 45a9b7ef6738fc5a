package extract

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/chatvault/chatvault/internal/model"
)

// JSONExport is the versioned envelope for the JSON rendering of an
// extraction result.
type JSONExport struct {
	Version        string          `json:"version"`
	ExportDate     string          `json:"exportDate"`
	Title          string          `json:"title"`
	Provider       string          `json:"provider"`
	URL            string          `json:"url"`
	ConversationID string          `json:"conversationId"`
	MessageCount   int             `json:"messageCount"`
	Messages       []model.Message `json:"messages"`
	Timestamp      int64           `json:"timestamp"`
}

// ExportJSON renders an extraction result as pretty-printed JSON with its
// download filename. It wraps the result it is given rather than
// re-extracting, so the Markdown and JSON renderings of one invocation
// always describe the same message list.
func ExportJSON(res *Result) ([]byte, string, error) {
	env := JSONExport{
		Version:        "1.0",
		ExportDate:     time.Now().UTC().Format(time.RFC3339),
		Title:          res.Title,
		Provider:       res.Provider,
		URL:            res.URL,
		ConversationID: res.ConversationID,
		MessageCount:   res.MessageCount,
		Messages:       res.Messages,
		Timestamp:      res.Timestamp,
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, "", err
	}

	filename := strings.TrimSuffix(res.Filename, ".md") + ".json"
	return data, filename, nil
}

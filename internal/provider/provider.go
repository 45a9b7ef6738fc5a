// Package provider identifies which chat platform produced a page and
// parses the platform-native conversation identifier from its URL.
package provider

import (
	"net/url"
	"regexp"
	"strings"
)

// Provider names a supported chat platform. The set is open: unrecognized
// hosts map to Unknown rather than an error.
type Provider string

const (
	ChatGPT  Provider = "chatgpt"
	Claude   Provider = "claude"
	Gemini   Provider = "gemini"
	DeepSeek Provider = "deepseek"
	Unknown  Provider = "unknown"
)

// hostMarkers maps hostname substrings to providers, checked in order.
var hostMarkers = []struct {
	substr   string
	provider Provider
}{
	{"chatgpt.com", ChatGPT},
	{"chat.openai.com", ChatGPT},
	{"claude.ai", Claude},
	{"gemini.google.com", Gemini},
	{"deepseek.com", DeepSeek},
}

// Detect identifies the provider from a hostname. Never fails; hosts that
// match nothing yield Unknown.
func Detect(hostname string) Provider {
	hostname = strings.ToLower(hostname)
	for _, m := range hostMarkers {
		if strings.Contains(hostname, m.substr) {
			return m.provider
		}
	}
	return Unknown
}

// Path-segment patterns for providers that embed the conversation id in
// the URL path.
var idPatterns = map[Provider]*regexp.Regexp{
	ChatGPT:  regexp.MustCompile(`/c/([a-zA-Z0-9-]+)`),
	Claude:   regexp.MustCompile(`/chat/([a-zA-Z0-9-]+)`),
	DeepSeek: regexp.MustCompile(`/chat/s/([a-zA-Z0-9-]+)`),
}

// ConversationID extracts the platform-native conversation identifier from
// a page URL. Returns the empty string when the URL carries none, the
// provider is unknown, or the URL does not parse; extraction id failures
// are never surfaced as errors.
func ConversationID(rawURL string, p Provider) string {
	if rawURL == "" {
		return ""
	}

	if p == Gemini {
		// Gemini keeps the conversation id in the URL fragment.
		u, err := url.Parse(rawURL)
		if err != nil {
			return ""
		}
		return u.Fragment
	}

	re, ok := idPatterns[p]
	if !ok {
		return ""
	}
	m := re.FindStringSubmatch(rawURL)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

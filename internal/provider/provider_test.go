package provider

import "testing"

func TestDetect(t *testing.T) {
	cases := []struct {
		hostname string
		want     Provider
	}{
		{"chatgpt.com", ChatGPT},
		{"chat.openai.com", ChatGPT},
		{"claude.ai", Claude},
		{"gemini.google.com", Gemini},
		{"chat.deepseek.com", DeepSeek},
		{"CLAUDE.AI", Claude},
		{"example.com", Unknown},
		{"", Unknown},
	}
	for _, tc := range cases {
		if got := Detect(tc.hostname); got != tc.want {
			t.Errorf("Detect(%q) = %q, want %q", tc.hostname, got, tc.want)
		}
	}
}

func TestConversationID(t *testing.T) {
	cases := []struct {
		name     string
		url      string
		provider Provider
		want     string
	}{
		{"chatgpt path", "https://chatgpt.com/c/abc-123-def", ChatGPT, "abc-123-def"},
		{"claude path", "https://claude.ai/chat/f00d-beef", Claude, "f00d-beef"},
		{"deepseek path", "https://chat.deepseek.com/chat/s/xyz789", DeepSeek, "xyz789"},
		{"gemini fragment", "https://gemini.google.com/app#conv42", Gemini, "conv42"},
		{"gemini no fragment", "https://gemini.google.com/app", Gemini, ""},
		{"chatgpt no id", "https://chatgpt.com/", ChatGPT, ""},
		{"unknown provider", "https://example.com/c/abc", Unknown, ""},
		{"empty url", "", ChatGPT, ""},
		{"unparseable url", "http://%zz#frag", Gemini, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ConversationID(tc.url, tc.provider); got != tc.want {
				t.Errorf("ConversationID(%q, %q) = %q, want %q", tc.url, tc.provider, got, tc.want)
			}
		})
	}
}

package edgetts

import (
	"strings"
	"testing"

	"geoguidego/pkg/tts"
)

func TestBuildSSML(t *testing.T) {
	tests := []struct {
		name     string
		req      tts.Request
		expected []string // Substrings that must be present
	}{
		{
			name:     "Normal text",
			req:      tts.Request{Text: "Перед вами Красная площадь", Voice: "ru-RU-DmitryNeural", Speed: 1.0, Pitch: 1.0},
			expected: []string{"Перед вами Красная площадь", "ru-RU-DmitryNeural", "rate='+0%'", "pitch='+0%'"},
		},
		{
			name:     "Slowed speed",
			req:      tts.Request{Text: "Hello", Voice: "v", Speed: 0.9, Pitch: 1.0},
			expected: []string{"rate='-10%'"},
		},
		{
			name:     "Raised pitch",
			req:      tts.Request{Text: "Hello", Voice: "v", Speed: 1.0, Pitch: 1.2},
			expected: []string{"pitch='+20%'"},
		},
		{
			name:     "Text with ampersand",
			req:      tts.Request{Text: "Ben & Jerry's", Voice: "v", Speed: 1, Pitch: 1},
			expected: []string{"Ben &amp; Jerry&apos;s"},
		},
		{
			name:     "Text with tags",
			req:      tts.Request{Text: "<speak>Hello</speak>", Voice: "v", Speed: 1, Pitch: 1},
			expected: []string{"&lt;speak&gt;Hello&lt;/speak&gt;"},
		},
		{
			name:     "Zero speed defaults to normal",
			req:      tts.Request{Text: "Hi", Voice: "v"},
			expected: []string{"rate='+0%'", "pitch='+0%'"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildSSML(tt.req)
			for _, exp := range tt.expected {
				if !strings.Contains(got, exp) {
					t.Errorf("buildSSML() = %v, expected to contain %v", got, exp)
				}
			}
		})
	}
}

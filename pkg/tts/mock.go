package tts

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Mock is a Provider that writes a placeholder file instead of audio.
// Used by tests and by the "mock" engine setting for development
// without network access.
type Mock struct {
	// Fail, when set, makes every Synthesize call return this error.
	Fail error
}

// Synthesize writes the request text into the output file.
func (m *Mock) Synthesize(_ context.Context, req Request, outputPath string) (string, error) {
	if m.Fail != nil {
		return "", m.Fail
	}
	if !strings.HasSuffix(outputPath, ".mp3") {
		outputPath += ".mp3"
	}
	content := fmt.Sprintf("MOCK voice=%s speed=%.2f pitch=%.2f\n%s\n", req.Voice, req.Speed, req.Pitch, req.Text)
	// Pad past the minimum-size sanity check downstream consumers apply
	if len(content) < MinAudioSize {
		content += strings.Repeat(" ", MinAudioSize-len(content))
	}
	if err := os.WriteFile(outputPath, []byte(content), 0o644); err != nil {
		return "", err
	}
	return "mp3", nil
}

// Voices returns a single placeholder voice.
func (m *Mock) Voices(_ context.Context) ([]Voice, error) {
	return []Voice{{ID: "mock", Name: "Mock", Language: "xx", IsNeural: false}}, nil
}

package edgetts

import (
	"bytes"
	"context"
	"os"
	"testing"

	"geoguidego/pkg/tracker"
)

func TestHandleBinaryMessage(t *testing.T) {
	p := NewProvider(tracker.New())

	tmpFile, err := os.CreateTemp("", "test_audio_*.mp3")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())
	defer tmpFile.Close()

	// Valid message: 2-byte header length, header, audio payload
	header := []byte("info")
	audio := []byte{0x01, 0x02, 0x03, 0x04}
	data := append([]byte{0x00, 0x04}, header...)
	data = append(data, audio...)

	if err := p.handleBinaryMessage(data, tmpFile); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	content, _ := os.ReadFile(tmpFile.Name())
	if !bytes.Equal(content, audio) {
		t.Errorf("Expected audio data %v, got %v", audio, content)
	}

	// Too short messages are ignored
	if err := p.handleBinaryMessage([]byte{0x00}, tmpFile); err != nil {
		t.Errorf("Too short message should be ignored, got %v", err)
	}
}

func TestVoices(t *testing.T) {
	p := NewProvider(tracker.New())
	voices, err := p.Voices(context.TODO())
	if err != nil {
		t.Fatalf("Voices failed: %v", err)
	}
	if len(voices) == 0 {
		t.Error("Expected at least one voice")
	}
	found := false
	for _, v := range voices {
		if v.ID == "ru-RU-DmitryNeural" {
			found = true
			break
		}
	}
	if !found {
		t.Error("Default voice not found in list")
	}
}

func TestGenerateSecMSGec(t *testing.T) {
	p := NewProvider(tracker.New())
	token := p.generateSecMSGec("token")
	if len(token) != 64 {
		// SHA256 hex string is 64 chars
		t.Errorf("Expected token length 64, got %d", len(token))
	}
}

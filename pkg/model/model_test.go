package model

import (
	"testing"
	"time"
)

func TestPOIKey(t *testing.T) {
	p := &POI{OSMID: 12345, OSMType: "node"}
	if got := p.Key(); got != "node/12345" {
		t.Errorf("Key() = %s, want node/12345", got)
	}
}

func TestCategoryEnabled(t *testing.T) {
	tests := []struct {
		name    string
		enabled []string
		id      string
		want    bool
	}{
		{"InSet", []string{"historical", "tourism"}, "tourism", true},
		{"NotInSet", []string{"historical"}, "tourism", false},
		{"EmptySet", []string{}, "historical", false},
		{"NilSet", nil, "historical", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Settings{EnabledCategories: tt.enabled}
			if got := s.CategoryEnabled(tt.id); got != tt.want {
				t.Errorf("CategoryEnabled(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestDefaultSettingsEnableAllCategories(t *testing.T) {
	s := DefaultSettings()
	if len(s.EnabledCategories) == 0 {
		t.Fatal("default settings must enable categories explicitly")
	}
	for _, id := range s.EnabledCategories {
		if !s.CategoryEnabled(id) {
			t.Errorf("default category %s not enabled", id)
		}
	}
}

func TestSettingsPause(t *testing.T) {
	s := Settings{PauseMS: 1500}
	if got := s.Pause(); got != 1500*time.Millisecond {
		t.Errorf("Pause() = %v, want 1.5s", got)
	}
}

package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNew_JSONCarriesService(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf, Service: "hotel"})

	log.Info("booking created", "room_id", "r-1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry[SERVICE] != "hotel" {
		t.Errorf("expected service attr 'hotel', got %v", entry[SERVICE])
	}
	if entry["room_id"] != "r-1" {
		t.Errorf("expected room_id attr 'r-1', got %v", entry["room_id"])
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf, Level: WARN})

	log.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn level, got %q", buf.String())
	}

	log.Warn("kept")
	if buf.Len() == 0 {
		t.Errorf("warn should be written at warn level")
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf}).With("request_id", "abc")

	log.Info("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry["request_id"] != "abc" {
		t.Errorf("expected request_id 'abc', got %v", entry["request_id"])
	}
}

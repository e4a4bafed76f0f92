package payload

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

var testPrompts = Prompts{
	System: "You are an expert AI radiologist analyzing medical images...",
	User:   "Analyze this image in detail with abnormalities, observations & recommendations.",
}

// wireRequest mirrors the JSON shape the remote API expects.
type wireRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"messages"`
}

type wirePart struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	ImageURL *struct {
		URL string `json:"url"`
	} `json:"image_url"`
}

func decodeWire(t *testing.T, v interface{}) (wireRequest, string, []wirePart) {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}

	var req wireRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		t.Fatalf("Failed to unmarshal request: %v", err)
	}
	if len(req.Messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(req.Messages))
	}

	var system string
	if err := json.Unmarshal(req.Messages[0].Content, &system); err != nil {
		t.Fatalf("System content should be a plain string: %v", err)
	}

	var parts []wirePart
	if err := json.Unmarshal(req.Messages[1].Content, &parts); err != nil {
		t.Fatalf("User content should be an array of parts: %v", err)
	}
	return req, system, parts
}

func TestFromBytes_Structure(t *testing.T) {
	b := NewBuilder("")
	req, err := b.FromBytes([]byte{0x89, 0x50, 0x4E, 0x47}, testPrompts)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	wire, system, parts := decodeWire(t, req)
	if wire.Model != "gpt-4o" {
		t.Errorf("Expected model gpt-4o, got %s", wire.Model)
	}
	if wire.Messages[0].Role != "system" || wire.Messages[1].Role != "user" {
		t.Errorf("Unexpected roles: %s, %s", wire.Messages[0].Role, wire.Messages[1].Role)
	}
	if system != testPrompts.System {
		t.Errorf("Expected system prompt %q, got %q", testPrompts.System, system)
	}
	if len(parts) != 2 {
		t.Fatalf("Expected 2 content parts, got %d", len(parts))
	}
	if parts[0].Type != "text" || parts[0].Text != testPrompts.User {
		t.Errorf("Unexpected text part: %+v", parts[0])
	}
	if parts[1].Type != "image_url" || parts[1].ImageURL == nil {
		t.Fatalf("Unexpected image part: %+v", parts[1])
	}
	if !strings.HasPrefix(parts[1].ImageURL.URL, "data:image/png;base64,") {
		t.Errorf("Expected data URI, got %s", parts[1].ImageURL.URL)
	}
}

func TestFromBytes_RoundTrip(t *testing.T) {
	images := [][]byte{
		{0x00},
		{0xFF, 0xFE, 0xFD},
		bytes.Repeat([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A}, 100),
		[]byte("not really an image but still bytes"),
	}

	b := NewBuilder("gpt-4o")
	for _, img := range images {
		req, err := b.FromBytes(img, testPrompts)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		_, _, parts := decodeWire(t, req)

		encoded := strings.TrimPrefix(parts[1].ImageURL.URL, "data:image/png;base64,")
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			t.Fatalf("Embedded image is not valid base64: %v", err)
		}
		if !bytes.Equal(decoded, img) {
			t.Errorf("Round trip mismatch: got %v, want %v", decoded, img)
		}
	}
}

func TestFromBase64_PassesThrough(t *testing.T) {
	b := NewBuilder("custom-vision")
	req, err := b.FromBase64("aGVsbG8=", testPrompts)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	wire, _, parts := decodeWire(t, req)
	if wire.Model != "custom-vision" {
		t.Errorf("Expected custom model, got %s", wire.Model)
	}
	if parts[1].ImageURL.URL != "data:image/png;base64,aGVsbG8=" {
		t.Errorf("Unexpected data URI: %s", parts[1].ImageURL.URL)
	}
}

func TestBuilder_EmptyImage(t *testing.T) {
	b := NewBuilder("")
	if _, err := b.FromBytes(nil, testPrompts); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("Expected ErrEmptyImage, got %v", err)
	}
	if _, err := b.FromBase64("", testPrompts); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("Expected ErrEmptyImage, got %v", err)
	}
}

func TestNewBuilder_DefaultModel(t *testing.T) {
	if NewBuilder("").Model() != DefaultModel {
		t.Errorf("Expected default model %s", DefaultModel)
	}
}

package util

import "testing"

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced json", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced bare", "```\n[1,2]\n```", `[1,2]`},
		{"single line", "```json {\"a\":1}```", `{"a":1}`},
		{"surrounding whitespace", "  \n```json\n{}\n```\n ", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripCodeFence(tt.in); got != tt.want {
				t.Errorf("StripCodeFence(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecodeModelJSON(t *testing.T) {
	var out struct {
		Name string `json:"name"`
	}
	if err := DecodeModelJSON("```json\n{\"name\":\"김치찌개\"}\n```", &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Name != "김치찌개" {
		t.Errorf("Name = %q, want 김치찌개", out.Name)
	}

	if err := DecodeModelJSON("", &out); err == nil {
		t.Error("expected error for empty output")
	}
	if err := DecodeModelJSON(`{"name": }`, &out); err == nil {
		t.Error("expected error for invalid JSON")
	}
	if err := DecodeModelJSON(`{}`, out); err == nil {
		t.Error("expected error for non-pointer target")
	}
}

func TestFirstInteger(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"90", 90, true},
		{"약 45분", 45, true},
		{" 30 minutes, maybe 40", 30, true},
		{"unknown", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := FirstInteger(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("FirstInteger(%q) = (%d, %v), want (%d, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

package util

import (
	"encoding/json"
	"errors"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

var firstIntegerRe = regexp.MustCompile(`\d+`)

// StripCodeFence removes a surrounding markdown code fence (```json ... ```)
// that language models sometimes wrap around JSON output.
func StripCodeFence(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}

	lines := strings.Split(cleaned, "\n")
	if len(lines) >= 3 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		return strings.TrimSpace(strings.Join(lines[1:len(lines)-1], "\n"))
	}

	// Single-line fence: ```json {...}```
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

// DecodeModelJSON strips any code fence from raw and unmarshals it into v.
func DecodeModelJSON(raw string, v interface{}) error {
	if reflect.ValueOf(v).Kind() != reflect.Ptr {
		return errors.New("input must be a pointer")
	}
	cleaned := StripCodeFence(raw)
	if cleaned == "" {
		return errors.New("model returned empty output")
	}
	return json.Unmarshal([]byte(cleaned), v)
}

// FirstInteger returns the first run of decimal digits in s.
func FirstInteger(s string) (int, bool) {
	match := firstIntegerRe.FindString(s)
	if match == "" {
		return 0, false
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return n, true
}

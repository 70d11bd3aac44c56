// Package jsonx recovers structured output from raw agent text. Agents wrap
// their JSON in prose, code fences, or byte-order marks; the extractor finds
// the first parseable object or array and discards the rest.

package jsonx

import (
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf16"
)

// ErrNoJSON indicates no JSON object or array could be parsed out of the text.
var ErrNoJSON = errors.New("jsonx: no JSON object or array found")

// FirstValue returns the first JSON object or array embedded in raw text.
func FirstValue(raw []byte) (any, error) {
	text := decodeText(raw)
	for i := 0; i < len(text); i++ {
		if text[i] != '{' && text[i] != '[' {
			continue
		}
		decoder := json.NewDecoder(strings.NewReader(text[i:]))
		var value any
		if err := decoder.Decode(&value); err == nil {
			return value, nil
		}
	}
	return nil, ErrNoJSON
}

// FirstObject returns the first JSON object embedded in raw text. Arrays are
// skipped; the task result contract is always an object.
func FirstObject(raw []byte) (map[string]any, error) {
	text := decodeText(raw)
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		decoder := json.NewDecoder(strings.NewReader(text[i:]))
		var value map[string]any
		if err := decoder.Decode(&value); err == nil {
			return value, nil
		}
	}
	return nil, ErrNoJSON
}

// decodeText normalizes agent output bytes to a UTF-8 string, honoring
// UTF-16 and UTF-8 byte-order marks.
func decodeText(raw []byte) string {
	switch {
	case len(raw) >= 2 && raw[0] == 0xFF && raw[1] == 0xFE:
		return decodeUTF16(raw[2:], false)
	case len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF:
		return decodeUTF16(raw[2:], true)
	case len(raw) >= 3 && raw[0] == 0xEF && raw[1] == 0xBB && raw[2] == 0xBF:
		return string(raw[3:])
	default:
		return string(raw)
	}
}

func decodeUTF16(raw []byte, bigEndian bool) string {
	units := make([]uint16, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		if bigEndian {
			units = append(units, uint16(raw[i])<<8|uint16(raw[i+1]))
		} else {
			units = append(units, uint16(raw[i+1])<<8|uint16(raw[i]))
		}
	}
	return string(utf16.Decode(units))
}

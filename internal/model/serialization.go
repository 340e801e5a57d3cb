package model

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

// Serialized blob handling. itemized_expenses and audited_by are stored as one
// JSON blob per row; records created by older portal versions may hold a
// double-encoded string, an empty value, or garbage. Decoding therefore never
// fails: a malformed blob is logged and treated as an empty sequence.

// DecodeItemizedExpenses parses the serialized expense lines of a receipt.
// ok is false when the blob was present but unparsable.
func DecodeItemizedExpenses(raw string) (items []ItemizedExpense, ok bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "null" {
		return []ItemizedExpense{}, true
	}

	if err := json.Unmarshal([]byte(trimmed), &items); err == nil {
		return items, true
	}

	// Older rows store the array double-encoded as a JSON string.
	var inner string
	if err := json.Unmarshal([]byte(trimmed), &inner); err == nil {
		if err := json.Unmarshal([]byte(inner), &items); err == nil {
			return items, true
		}
	}

	log.Warn().Str("blob", truncateBlob(trimmed)).Msg("malformed itemized_expenses blob, treating as empty")
	return []ItemizedExpense{}, false
}

// DecodeAuditorSet parses the serialized auditor-id set of a receipt.
// Malformed blobs decode to an empty set.
func DecodeAuditorSet(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "null" {
		return []string{}
	}

	var ids []string
	if err := json.Unmarshal([]byte(trimmed), &ids); err != nil {
		log.Warn().Str("blob", truncateBlob(trimmed)).Msg("malformed audited_by blob, treating as empty")
		return []string{}
	}
	return ids
}

// EncodeAuditorSet serializes an auditor-id set for persistence.
func EncodeAuditorSet(ids []string) string {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// AddAuditor returns the set with auditorID added, preserving set semantics:
// an id already present is not duplicated. added is false on a no-op.
func AddAuditor(ids []string, auditorID string) (result []string, added bool) {
	for _, id := range ids {
		if id == auditorID {
			return ids, false
		}
	}
	return append(ids, auditorID), true
}

// EncodeItemizedExpenses serializes expense lines for persistence.
func EncodeItemizedExpenses(items []ItemizedExpense) string {
	if items == nil {
		items = []ItemizedExpense{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func truncateBlob(s string) string {
	const max = 120
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	// Truncate on a rune boundary so the log line stays valid UTF-8
	return string([]rune(s)[:max]) + "..."
}

package model

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

func TestDecodeItemizedExpenses(t *testing.T) {
	items, ok := DecodeItemizedExpenses(`[{"description":"Cables","category":"parts","amount":"10"},{"description":"Solder","category":"parts","amount":"5.50"}]`)
	if !ok {
		t.Fatal("well-formed blob must decode")
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if !items[1].Amount.Equal(decimal.NewFromFloat(5.50)) {
		t.Fatalf("unexpected amount %s", items[1].Amount)
	}
}

func TestDecodeItemizedExpensesDoubleEncoded(t *testing.T) {
	// Older portal versions persisted the array as a JSON string.
	items, ok := DecodeItemizedExpenses(`"[{\"description\":\"Pizza\",\"category\":\"food\",\"amount\":\"24\"}]"`)
	if !ok {
		t.Fatal("double-encoded blob must decode")
	}
	if len(items) != 1 || items[0].Description != "Pizza" {
		t.Fatalf("unexpected items %+v", items)
	}
}

func TestDecodeItemizedExpensesToleratesEmpty(t *testing.T) {
	for _, raw := range []string{"", "  ", "null"} {
		items, ok := DecodeItemizedExpenses(raw)
		if !ok {
			t.Fatalf("blob %q must decode as empty, not fail", raw)
		}
		if len(items) != 0 {
			t.Fatalf("blob %q: expected no items, got %d", raw, len(items))
		}
	}
}

func TestDecodeItemizedExpensesMalformed(t *testing.T) {
	items, ok := DecodeItemizedExpenses(`{broken`)
	if ok {
		t.Fatal("garbage must report ok=false")
	}
	if items == nil || len(items) != 0 {
		t.Fatalf("garbage must yield an empty slice, got %v", items)
	}
}

func TestAuditorSetRoundTrip(t *testing.T) {
	set := DecodeAuditorSet(EncodeAuditorSet([]string{"a", "b"}))
	if len(set) != 2 || set[0] != "a" || set[1] != "b" {
		t.Fatalf("unexpected set %v", set)
	}
	if got := DecodeAuditorSet("not json"); len(got) != 0 {
		t.Fatalf("malformed blob must decode empty, got %v", got)
	}
	if got := EncodeAuditorSet(nil); got != "[]" {
		t.Fatalf("nil set must encode as [], got %s", got)
	}
}

func TestAddAuditor(t *testing.T) {
	set, added := AddAuditor(nil, "a")
	if !added || len(set) != 1 {
		t.Fatalf("first add must grow the set, got %v", set)
	}
	set, added = AddAuditor(set, "a")
	if added || len(set) != 1 {
		t.Fatalf("repeat add must be a no-op, got %v", set)
	}
	set, added = AddAuditor(set, "b")
	if !added || len(set) != 2 {
		t.Fatalf("distinct add must grow the set, got %v", set)
	}
}

func TestHasAuditor(t *testing.T) {
	rec := Receipt{AuditedBy: EncodeAuditorSet([]string{"a", "b"})}
	if !rec.HasAuditor("a") || !rec.HasAuditor("b") {
		t.Fatal("present auditors must be found")
	}
	if rec.HasAuditor("c") {
		t.Fatal("absent auditor must not be found")
	}
	empty := Receipt{}
	if empty.HasAuditor("a") {
		t.Fatal("empty blob holds no auditors")
	}
}

func TestTruncateBlobStaysValidUTF8(t *testing.T) {
	short := "unchanged"
	if got := truncateBlob(short); got != short {
		t.Fatalf("short blob must pass through, got %q", got)
	}

	long := strings.Repeat("文", 200)
	got := truncateBlob(long)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated blob must stay valid UTF-8, got %q", got)
	}
	if got != strings.Repeat("文", 120)+"..." {
		t.Fatalf("unexpected truncation %q", got)
	}
}

func TestStatusPredicates(t *testing.T) {
	for _, s := range []string{StatusPaid, StatusRejected} {
		if !IsTerminalStatus(s) {
			t.Fatalf("%s must be terminal", s)
		}
	}
	for _, s := range []string{StatusSubmitted, StatusUnderReview, StatusApproved, StatusInProgress} {
		if IsTerminalStatus(s) {
			t.Fatalf("%s must not be terminal", s)
		}
	}
	if ValidStatus("shipped") {
		t.Fatal("unknown status must be invalid")
	}
	if !ValidStatus(StatusUnderReview) {
		t.Fatal("known status must be valid")
	}
}

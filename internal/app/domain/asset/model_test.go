package asset

import (
	"strings"
	"testing"

	"github.com/xrf-labs/asset-registry/internal/app/fault"
)

const testFP = "fp-0123456789abcdef0123456789abcdef"

func TestNew(t *testing.T) {
	a, err := New("Gold Coin", "GLD", "one ounce", "org-1", testFP)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if a.ID == "" {
		t.Fatalf("expected minted id")
	}
	if a.Tradable || a.Listable {
		t.Fatalf("new assets must default to non-tradable, non-listable")
	}
	if a.UpdatedBy != testFP || a.OwnerFingerprint != testFP {
		t.Fatalf("creator fingerprint not recorded")
	}
	if a.UpdatedAt.Before(a.CreatedAt) {
		t.Fatalf("updated_at must not precede created_at")
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		org  string
		fp   string
	}{
		{"", "org-1", testFP},
		{"ab", "org-1", testFP},
		{strings.Repeat("x", MaxNameLen+1), "org-1", testFP},
		{"Gold Coin", "", testFP},
		{"Gold Coin", "   ", testFP},
		{"Gold Coin", "org-1", ""},
		{"Gold Coin", "org-1", "too-short"},
	}
	for _, tc := range cases {
		if _, err := New(tc.name, "GLD", "", tc.org, tc.fp); !fault.IsCode(err, fault.InvalidArgument) {
			t.Fatalf("name=%q org=%q fp=%q: expected InvalidArgument, got %v", tc.name, tc.org, tc.fp, err)
		}
	}
}

func TestUpdateApply(t *testing.T) {
	a, err := New("Gold Coin", "GLD", "one ounce", "org-1", testFP)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	name := "Silver Coin"
	tradable := true
	u := Update{Name: &name, Tradable: &tradable}

	next := u.Apply(a, "fp-fedcba9876543210fedcba9876543210")
	if next.Name != "Silver Coin" || !next.Tradable {
		t.Fatalf("supplied fields not applied: %+v", next)
	}
	if next.Symbol != "GLD" || next.Listable {
		t.Fatalf("unsupplied fields must be untouched: %+v", next)
	}
	if next.UpdatedBy == testFP {
		t.Fatalf("mutator fingerprint not stamped")
	}
	if a.Name != "Gold Coin" {
		t.Fatalf("apply must not mutate the input record")
	}
}

func TestUpdateEmptyAndValidate(t *testing.T) {
	if !(Update{}).Empty() {
		t.Fatalf("zero update must be empty")
	}
	bad := "x"
	if err := (Update{Name: &bad}).Validate(); !fault.IsCode(err, fault.InvalidArgument) {
		t.Fatalf("short rename must be rejected, got %v", err)
	}
}

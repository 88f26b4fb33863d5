package provider

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsRadiant(t *testing.T) {
	tests := []struct {
		slot int
		want bool
	}{
		{0, true},
		{2, true},
		{4, true},
		{128, false},
		{130, false},
		{132, false},
	}

	for _, tt := range tests {
		if got := IsRadiant(tt.slot); got != tt.want {
			t.Errorf("IsRadiant(%d) = %v, want %v", tt.slot, got, tt.want)
		}
	}
}

func TestDeriveWin(t *testing.T) {
	tests := []struct {
		name       string
		slot       int
		radiantWin bool
		want       bool
	}{
		{"radiant player, radiant win", 2, true, true},
		{"radiant player, dire win", 2, false, false},
		{"dire player, radiant win", 130, true, false},
		{"dire player, dire win", 130, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveWin(tt.slot, tt.radiantWin); got != tt.want {
				t.Errorf("DeriveWin(%d, %v) = %v, want %v", tt.slot, tt.radiantWin, got, tt.want)
			}
		})
	}
}

func TestErrorHelpers(t *testing.T) {
	quota := &Error{Kind: KindQuota, Provider: "stratz", StatusCode: 429, Message: "quota exceeded"}
	notFound := &Error{Kind: KindNotFound, Provider: "opendota", Message: "player not found"}
	transient := &Error{Kind: KindTransient, Provider: "opendota", StatusCode: 502, Message: "bad gateway"}

	if !IsQuota(quota) || IsQuota(notFound) || IsQuota(transient) {
		t.Error("IsQuota misclassified")
	}
	if !IsNotFound(notFound) || IsNotFound(quota) {
		t.Error("IsNotFound misclassified")
	}
	if !IsTransient(transient) || IsTransient(quota) {
		t.Error("IsTransient misclassified")
	}
}

func TestKindOf(t *testing.T) {
	typed := &Error{Kind: KindQuota, Provider: "stratz"}
	if KindOf(typed) != KindQuota {
		t.Error("KindOf should read the typed kind")
	}

	// Wrapped typed errors still classify.
	wrapped := fmt.Errorf("call failed: %w", typed)
	if KindOf(wrapped) != KindQuota {
		t.Error("KindOf should unwrap to the typed kind")
	}

	// Untyped errors default to transient so the cascade still runs.
	if KindOf(errors.New("boom")) != KindTransient {
		t.Error("untyped errors should classify as transient")
	}
}

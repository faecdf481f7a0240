package handlers

import (
	"math"
	"net/url"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestSanitizeName(t *testing.T) {
	if got := sanitizeName("  Ann\x00\x07 "); got != "Ann" {
		t.Errorf("got %q", got)
	}
	if got := sanitizeName(strings.Repeat("é", 150)); len([]rune(got)) != maxNameRunes {
		t.Errorf("expected %d runes, got %d", maxNameRunes, len([]rune(got)))
	}
}

func TestIsValidEmail(t *testing.T) {
	for email, want := range map[string]bool{
		"":                                 true,
		"ann@example.com":                  true,
		"ann@example":                      false,
		"not an address":                   false,
		strings.Repeat("a", 250) + "@x.io": false,
	} {
		if got := isValidEmail(email); got != want {
			t.Errorf("isValidEmail(%q) = %v", email, got)
		}
	}
}

func TestAllFinite(t *testing.T) {
	one, nan, inf := 1.0, math.NaN(), math.Inf(-1)
	if !allFinite(nil, &one) {
		t.Error("nil and finite should pass")
	}
	if allFinite(&one, &nan) || allFinite(&inf) {
		t.Error("NaN and Inf must fail")
	}
}

func TestQueryTerms(t *testing.T) {
	got := queryTerms("the Lamp and the lamp near window with blue glass door frame")
	want := []string{"lamp", "near", "window", "blue", "glass"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if queryTerms("the and") != nil {
		t.Error("stop words only should give no terms")
	}
}

func TestIntParam(t *testing.T) {
	v := url.Values{"limit": {"15"}, "after": {"x"}}
	if intParam(v, "limit", 20) != 15 || intParam(v, "after", 0) != 0 || intParam(v, "missing", 7) != 7 {
		t.Error("unexpected intParam result")
	}
}

func TestFormatTimeAgo(t *testing.T) {
	now := time.Now()
	cases := map[time.Duration]string{
		10 * time.Second:          "just now",
		time.Minute + time.Second: "1 minute ago",
		3 * time.Hour:             "3 hours ago",
		50 * time.Hour:            "2 days ago",
	}
	for ago, want := range cases {
		if got := formatTimeAgo(now.Add(-ago)); got != want {
			t.Errorf("%s: got %q, want %q", ago, got, want)
		}
	}
}

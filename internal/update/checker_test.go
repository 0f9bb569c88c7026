package update

import (
	"strings"
	"testing"
	"time"
)

func TestIsNewer(t *testing.T) {
	cases := []struct {
		latest, current string
		want            bool
	}{
		{"v1.1.0", "1.0.0", true},
		{"v1.0.0", "1.0.0", false},
		{"v0.9.0", "1.0.0", false},
		{"v1.1.0", "dev", false},
		{"v1.1.0", "", false},
		{"1.2.0", "v1.1.0", true},
	}

	for _, tc := range cases {
		if got := isNewer(tc.latest, tc.current); got != tc.want {
			t.Errorf("isNewer(%q, %q) = %v, want %v", tc.latest, tc.current, got, tc.want)
		}
	}
}

func TestFormatUpdateNotice(t *testing.T) {
	release := &ReleaseInfo{
		Version:     "v1.2.0",
		PublishedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Body:        "New merged-cell heuristics\nFaster cycle detection",
	}

	notice := FormatUpdateNotice("1.1.0", release)

	for _, want := range []string{
		"Current version: 1.1.0",
		"v1.2.0",
		"2026-03-01",
		"New merged-cell heuristics",
		"go install",
	} {
		if !strings.Contains(notice, want) {
			t.Errorf("notice missing %q:\n%s", want, notice)
		}
	}
}

func TestFormatUpdateNoticeTruncatesBody(t *testing.T) {
	release := &ReleaseInfo{
		Version:     "v2.0.0",
		PublishedAt: time.Now(),
		Body:        "one\ntwo\nthree\nfour\nfive\nsix\nseven",
	}

	notice := FormatUpdateNotice("1.0.0", release)
	if strings.Contains(notice, "six") {
		t.Error("release notes should be truncated to the first five lines")
	}
}

package crontab

import (
	"reflect"
	"strings"
	"testing"
)

func parseField(t *testing.T, f fieldSpec, text string) (BitSet, int, error) {
	t.Helper()
	s := newSource(strings.NewReader(text))
	return parseList(s, f, s.next())
}

func TestParseListAccepts(t *testing.T) {
	t.Parallel()
	minute := calendarFields[0]
	month := calendarFields[3]
	dow := calendarFields[4]
	tests := []struct {
		name string
		f    fieldSpec
		text string
		want []int
	}{
		{"single", minute, "7 ", []int{7}},
		{"list", minute, "1,2,30\n", []int{1, 2, 30}},
		{"range", minute, "10-13 ", []int{10, 11, 12, 13}},
		{"range step", minute, "0-20/10 ", []int{0, 10, 20}},
		{"star step", minute, "*/15 ", []int{0, 15, 30, 45}},
		{"start step", minute, "50/3 ", []int{50, 53, 56, 59}},
		{"month names", month, "jan,MAR-May ", []int{1, 3, 4, 5}},
		{"dow names", dow, "Mon-Fri ", []int{1, 2, 3, 4, 5}},
		{"dow trailing sun", dow, "sun\t", []int{0}},
		{"dow star", dow, "*\n", []int{0, 1, 2, 3, 4, 5, 6, 7}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			bits, _, err := parseField(t, tt.f, tt.text)
			if err != nil {
				t.Fatalf("parseList(%q) error: %v", tt.text, err)
			}
			if got := bits.Values(); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("parseList(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestParseListSkipsBlanks(t *testing.T) {
	t.Parallel()
	_, ch, err := parseField(t, calendarFields[0], "5 \t 6")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch != '6' {
		t.Fatalf("next char = %q, want '6'", rune(ch))
	}
}

func TestParseListRejects(t *testing.T) {
	t.Parallel()
	minute := calendarFields[0]
	hour := calendarFields[1]
	dom := calendarFields[2]
	month := calendarFields[3]
	tests := []struct {
		name string
		f    fieldSpec
		text string
	}{
		{"above range", minute, "60 "},
		{"range end above", hour, "20-24 "},
		{"below range", dom, "0 "},
		{"reversed", minute, "30-10 "},
		{"zero step", minute, "*/0 "},
		{"star garbage", minute, "*x "},
		{"number garbage", minute, "5x "},
		{"names not allowed", minute, "jan "},
		{"unknown name", month, "Foo "},
		{"eof after token", minute, "5"},
		{"empty", minute, "\n"},
		{"dangling comma", minute, "1,\n"},
		{"too long", minute, strings.Repeat("1", maxToken) + " "},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, _, err := parseField(t, tt.f, tt.text); err == nil {
				t.Fatalf("parseList(%q): expected error", tt.text)
			}
		})
	}
}

package crontab

import "testing"

func TestBitSetString(t *testing.T) {
	t.Parallel()
	tests := []struct {
		vals []int
		want string
	}{
		{nil, "-"},
		{[]int{5}, "5"},
		{[]int{0, 1, 2, 3, 10, 20, 21}, "0-3,10,20-21"},
	}
	for _, tt := range tests {
		var b BitSet
		for _, v := range tt.vals {
			b.set(v)
		}
		if got := b.String(); got != tt.want {
			t.Fatalf("String(%v) = %q, want %q", tt.vals, got, tt.want)
		}
	}
}

func TestBitSetNextFrom(t *testing.T) {
	t.Parallel()
	var b BitSet
	b.set(3)
	b.set(40)
	tests := []struct {
		from, high int
		want       int
		ok         bool
	}{
		{0, 59, 3, true},
		{3, 59, 3, true},
		{4, 59, 40, true},
		{41, 59, 0, false},
		{4, 30, 0, false},
	}
	for _, tt := range tests {
		got, ok := b.nextFrom(tt.from, tt.high)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("nextFrom(%d,%d) = %d,%v want %d,%v", tt.from, tt.high, got, ok, tt.want, tt.ok)
		}
	}
}

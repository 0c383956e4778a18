package crontab

import (
	"math/bits"
	"strconv"
	"strings"
)

// BitSet is a fixed-size bit vector indexed by field value (bit v set means
// value v is selected). Every calendar field fits in 64 bits.
type BitSet uint64

func (b BitSet) Has(v int) bool {
	if v < 0 || v > 63 {
		return false
	}
	return b&(1<<uint(v)) != 0
}

func (b *BitSet) set(v int) { *b |= 1 << uint(v) }

// setRange selects every value in [low, high].
func (b *BitSet) setRange(low, high int) {
	for v := low; v <= high; v++ {
		b.set(v)
	}
}

func (b BitSet) Count() int { return bits.OnesCount64(uint64(b)) }

func (b BitSet) IsZero() bool { return b == 0 }

// Values lists the selected values in ascending order.
func (b BitSet) Values() []int {
	out := make([]int, 0, b.Count())
	for x := uint64(b); x != 0; x &= x - 1 {
		out = append(out, bits.TrailingZeros64(x))
	}
	return out
}

// nextFrom returns the smallest selected value in [v, high].
func (b BitSet) nextFrom(v, high int) (int, bool) {
	if v < 0 {
		v = 0
	}
	if v > high || v > 63 {
		return 0, false
	}
	x := uint64(b) >> uint(v)
	if x == 0 {
		return 0, false
	}
	n := v + bits.TrailingZeros64(x)
	if n > high {
		return 0, false
	}
	return n, true
}

// String renders the set as a compact list such as "0-5,10,20-30".
func (b BitSet) String() string {
	vals := b.Values()
	if len(vals) == 0 {
		return "-"
	}
	var sb strings.Builder
	for i := 0; i < len(vals); {
		j := i
		for j+1 < len(vals) && vals[j+1] == vals[j]+1 {
			j++
		}
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(vals[i]))
		if j > i {
			sb.WriteByte('-')
			sb.WriteString(strconv.Itoa(vals[j]))
		}
		i = j + 1
	}
	return sb.String()
}

package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// ratioSampler admits num out of every den events in a fixed rotation.
// A zero ratio admits everything.
type ratioSampler struct {
	ratio atomic.Uint64 // num<<32 | den
	seq   atomic.Uint64
}

func newRatioSampler(num, den int) *ratioSampler {
	s := &ratioSampler{}
	s.Set(num, den)
	return s
}

// Set replaces the ratio and restarts the rotation.
func (s *ratioSampler) Set(num, den int) {
	if num <= 0 || den <= 0 {
		num, den = 0, 0
	}
	if num > den {
		num = den
	}
	s.ratio.Store(uint64(uint32(num))<<32 | uint64(uint32(den)))
	s.seq.Store(0)
}

// Ratio returns the configured numerator and denominator.
func (s *ratioSampler) Ratio() (int, int) {
	r := s.ratio.Load()
	return int(r >> 32), int(uint32(r))
}

// Allow reports whether the next event passes.
func (s *ratioSampler) Allow() bool {
	num, den := s.Ratio()
	if num == 0 || den == 0 {
		return true
	}
	n := s.seq.Add(1) - 1
	return n%uint64(den) < uint64(num)
}

// parseRatioSpec accepts "a/b", "N" (one in N), "P%" and the keywords
// "all" or "off". It returns 0,0 for "no sampling" and -1,-1 when spec is invalid.
func parseRatioSpec(spec string) (int, int) {
	spec = strings.ToLower(strings.TrimSpace(spec))
	switch spec {
	case "", "all", "off", "none":
		return 0, 0
	}
	if pct, ok := strings.CutSuffix(spec, "%"); ok {
		v, err := strconv.Atoi(strings.TrimSpace(pct))
		if err != nil || v < 0 || v > 100 {
			return -1, -1
		}
		if v == 100 {
			return 0, 0
		}
		return v, 100
	}
	if a, b, ok := strings.Cut(spec, "/"); ok {
		num, err1 := strconv.Atoi(strings.TrimSpace(a))
		den, err2 := strconv.Atoi(strings.TrimSpace(b))
		if err1 != nil || err2 != nil {
			return -1, -1
		}
		return num, den
	}
	v, err := strconv.Atoi(spec)
	if err != nil {
		return -1, -1
	}
	if v <= 1 {
		return 0, 0
	}
	return 1, v
}

package logger

import (
	"strconv"
	"strings"
	"sync"
)

// sampler lets num of every den calls through. A zero ratio disables it.
type sampler struct {
	mu       sync.Mutex
	num, den int
	n        int
}

func newSampler(num, den int) *sampler {
	s := &sampler{}
	s.set(num, den)
	return s
}

func (s *sampler) set(num, den int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if num <= 0 || den <= 0 {
		num, den = 0, 0
	}
	s.num, s.den, s.n = min(num, den), den, 0
}

func (s *sampler) allow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.den == 0 {
		return true
	}
	s.n = s.n%s.den + 1
	return s.n <= s.num
}

// parseRatio reads "n/d" or "d" (meaning 1/d). Unparseable or
// non-positive values disable sampling.
func parseRatio(ratio string) (int, int) {
	if a, b, ok := strings.Cut(ratio, "/"); ok {
		num, err1 := strconv.Atoi(strings.TrimSpace(a))
		den, err2 := strconv.Atoi(strings.TrimSpace(b))
		if err1 != nil || err2 != nil || num <= 0 || den <= 0 {
			return 0, 0
		}
		return num, den
	}
	if den, err := strconv.Atoi(strings.TrimSpace(ratio)); err == nil && den > 0 {
		return 1, den
	}
	return 0, 0
}

// Package rand provides the production uniform sample source. Tests use
// scripted sequences instead.
package rand

import (
	"math/rand"
	"sync"
	"time"
)

type Source struct {
	mu sync.Mutex
	r  *rand.Rand
}

func NewSource() *Source {
	return &Source{r: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (s *Source) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

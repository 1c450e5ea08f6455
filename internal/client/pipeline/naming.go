package pipeline

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/repopix/internal/timex"
)

// Namer renames uploads to their upload time, yyyyMMddHHmmss plus the
// original extension. Names issued within the same second get -1, -2, ...
type Namer struct {
	clock timex.Clock

	mu      sync.Mutex
	last    string
	counter int
}

func NewNamer(c timex.Clock) *Namer {
	return &Namer{clock: c}
}

func (n *Namer) Name(original string) string {
	stamp := n.clock.Now().Format("20060102150405")

	n.mu.Lock()
	if stamp == n.last {
		n.counter++
	} else {
		n.last = stamp
		n.counter = 0
	}
	counter := n.counter
	n.mu.Unlock()

	ext := ""
	if i := strings.LastIndex(original, "."); i > 0 {
		ext = original[i:]
	}
	if counter > 0 {
		return fmt.Sprintf("%s-%d%s", stamp, counter, ext)
	}
	return stamp + ext
}

func (n *Namer) Reset() {
	n.mu.Lock()
	n.last = ""
	n.counter = 0
	n.mu.Unlock()
}

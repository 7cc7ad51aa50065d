package session

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Stats accumulates the Summary counters for one run, the same
// lock-guarded running-total shape as the teacher's own Stats type:
// every update takes the lock, String() takes a read lock and renders
// a final report.
type Stats struct {
	mu sync.RWMutex

	filesTransferred int64
	filesHardlinked  int64
	filesSkipped     int64
	dirsCreated      int64
	bytesTransferred int64
	warnings         int64
	errors           int64

	strategyCounts map[string]int64

	start time.Time
}

// NewStats creates an initialized Stats with its clock started.
func NewStats() *Stats {
	return &Stats{
		strategyCounts: make(map[string]int64, 3),
		start:          time.Now(),
	}
}

func (s *Stats) AddBytes(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bytesTransferred += n
}

func (s *Stats) AddTransfer(strategy string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filesTransferred++
	s.strategyCounts[strategy]++
}

func (s *Stats) AddHardlink() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filesHardlinked++
}

func (s *Stats) AddDir() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirsCreated++
}

func (s *Stats) AddSkipped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filesSkipped++
}

func (s *Stats) AddWarning() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings++
}

func (s *Stats) AddError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors++
}

// Errors reports the running count of per-entry errors.
func (s *Stats) Errors() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errors
}

// String renders the final Summary report (§7 user-visible behavior).
func (s *Stats) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dt := time.Since(s.start)
	speedKBs := 0.0
	if secs := dt.Seconds(); secs > 0 {
		speedKBs = float64(s.bytesTransferred) / 1024 / secs
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, `
Transferred:   %10d Bytes (%7.2f kByte/s)
Files copied:  %10d
Hard-linked:   %10d
Directories:   %10d
Skipped:       %10d
Warnings:      %10d
Errors:        %10d
Elapsed time:  %v
`,
		s.bytesTransferred, speedKBs,
		s.filesTransferred,
		s.filesHardlinked,
		s.dirsCreated,
		s.filesSkipped,
		s.warnings,
		s.errors,
		dt.Round(time.Millisecond))

	if len(s.strategyCounts) > 0 {
		fmt.Fprintf(&buf, "By strategy:\n")
		for _, k := range []string{"reflink", "range-copy", "buffered"} {
			if n, ok := s.strategyCounts[k]; ok && n > 0 {
				fmt.Fprintf(&buf, "  %-12s %10d\n", k, n)
			}
		}
	}
	return buf.String()
}

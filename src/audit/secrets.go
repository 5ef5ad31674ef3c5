package audit

import (
	"sort"
	"sync"

	"github.com/zricethezav/gitleaks/v8/detect"
)

// Scanner runs the gitleaks default rule set over descriptor text.
// The detector is built on first use and reused; Scanner is safe for
// concurrent use.
type Scanner struct {
	once     sync.Once
	mu       sync.Mutex
	detector *detect.Detector
	initErr  error
}

// NewScanner returns a Scanner with a lazily initialised detector.
func NewScanner() *Scanner { return &Scanner{} }

// Scan returns one critical finding per secret detected in data.
func (s *Scanner) Scan(file string, data []byte) ([]Finding, error) {
	s.once.Do(func() {
		s.detector, s.initErr = detect.NewDetectorDefaultConfig()
	})
	if s.initErr != nil {
		return nil, s.initErr
	}

	// The detector accumulates findings internally; serialise access.
	s.mu.Lock()
	hits := s.detector.DetectBytes(data)
	s.mu.Unlock()
	if len(hits) == 0 {
		return nil, nil
	}

	findings := make([]Finding, 0, len(hits))
	for _, h := range hits {
		findings = append(findings, Finding{
			File:     file,
			Line:     h.StartLine + 1, // gitleaks is 0-indexed
			Rule:     h.RuleID,
			Severity: SeverityCritical,
			Message:  h.Description,
		})
	}
	sort.Slice(findings, func(i, j int) bool { return findings[i].Line < findings[j].Line })
	return findings, nil
}

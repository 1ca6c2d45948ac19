package domain

import (
	"fmt"
	"time"
)

// PointsPerList is the fixed size of the advantages and disadvantages lists.
const PointsPerList = 2

// SummaryRecord is a generated summary with its extracted points.
type SummaryRecord struct {
	ID            string
	DocID         string
	SummaryType   SummaryType
	SummaryText   string
	Advantages    []string
	Disadvantages []string
	SourceName    string
	CreatedAt     time.Time
}

// ValidateSummaryRecord validates a SummaryRecord instance
func ValidateSummaryRecord(s *SummaryRecord) error {
	if s == nil {
		return fmt.Errorf("summary record cannot be nil")
	}
	if s.DocID == "" {
		return fmt.Errorf("summary record DocID is required")
	}
	if len(s.Advantages) != PointsPerList {
		return fmt.Errorf("summary record must have %d advantages, got %d", PointsPerList, len(s.Advantages))
	}
	if len(s.Disadvantages) != PointsPerList {
		return fmt.Errorf("summary record must have %d disadvantages, got %d", PointsPerList, len(s.Disadvantages))
	}
	return nil
}

// Answer is the refined response to a question.
type Answer struct {
	DocID    string
	Question string
	Text     string
	Source   string
	Degraded bool
}

package models

type Severity string

const (
	SeverityCritical  Severity = "critical"
	SeverityAttention Severity = "attention"
	SeverityInfo      Severity = "info"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityAttention, SeverityInfo:
		return true
	}
	return false
}

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	}
	return false
}

type IssueStatus string

const (
	StatusOpen      IssueStatus = "open"
	StatusPlanned   IssueStatus = "planned"
	StatusFixed     IssueStatus = "fixed"
	StatusDismissed IssueStatus = "dismissed"
)

func (s IssueStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusPlanned, StatusFixed, StatusDismissed:
		return true
	}
	return false
}

// Issue is one finding produced by analysis.
type Issue struct {
	ID             string      `json:"id"`
	ScreenID       string      `json:"screenId,omitempty"`
	Title          string      `json:"title"`
	Severity       Severity    `json:"severity"`
	Confidence     Confidence  `json:"confidence"`
	Evidence       string      `json:"evidence"`
	Description    string      `json:"description"`
	Impact         string      `json:"impact"`
	Recommendation string      `json:"recommendation"`
	EdgeCases      string      `json:"edgeCases,omitempty"`
	Status         IssueStatus `json:"status"`
	Anchors        Anchors     `json:"anchors"`
}

func (i Issue) Clone() Issue {
	out := i
	out.Anchors = append(Anchors{}, i.Anchors...)
	return out
}

// ComputeHealth derives the overall health from issue severities only.
func ComputeHealth(issues []Issue) Health {
	health := HealthOK
	for _, issue := range issues {
		switch issue.Severity {
		case SeverityCritical:
			return HealthCritical
		case SeverityAttention:
			health = HealthAttention
		}
	}
	return health
}

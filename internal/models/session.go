package models

import (
	"time"
)

type SessionState string

const (
	SessionDraft     SessionState = "draft"
	SessionRunning   SessionState = "running"
	SessionCompleted SessionState = "completed"
)

type Health string

const (
	HealthOK        Health = "ok"
	HealthAttention Health = "attention"
	HealthCritical  Health = "critical"
)

type Strictness string

const (
	StrictnessLight  Strictness = "light"
	StrictnessNormal Strictness = "normal"
	StrictnessStrict Strictness = "strict"
)

func (s Strictness) Valid() bool {
	switch s {
	case StrictnessLight, StrictnessNormal, StrictnessStrict:
		return true
	}
	return false
}

// AnalysisOptions is the analysis configuration captured on a session.
type AnalysisOptions struct {
	Sequential         bool       `json:"sequential"`
	Strictness         Strictness `json:"strictness"`
	AccessibilityFocus bool       `json:"accessibilityFocus"`
}

// DefaultAnalysisOptions returns the options a new session starts with.
func DefaultAnalysisOptions() AnalysisOptions {
	return AnalysisOptions{
		Sequential:         false,
		Strictness:         StrictnessNormal,
		AccessibilityFocus: true,
	}
}

type ScreenType string

const (
	ScreenUpload ScreenType = "upload"
	ScreenURL    ScreenType = "url"
)

func (t ScreenType) Valid() bool {
	return t == ScreenUpload || t == ScreenURL
}

type Screen struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Type       ScreenType `json:"type"`
	PreviewURL string     `json:"previewUrl"`
	Order      int        `json:"order"`
}

// Session is one review unit. OverallHealth is derived from Issues and is only
// changed through SetIssues.
type Session struct {
	ID              string          `json:"id"`
	CreatedAt       time.Time       `json:"createdAt"`
	Screens         []Screen        `json:"screens"`
	Options         AnalysisOptions `json:"options"`
	OverallHealth   Health          `json:"overallHealth"`
	Issues          []Issue         `json:"issues"`
	State           SessionState    `json:"state"`
	ScreensExcluded []string        `json:"screensExcluded,omitempty"`
}

// NewSession builds an empty draft session.
func NewSession(id string, createdAt time.Time, options AnalysisOptions) Session {
	return Session{
		ID:            id,
		CreatedAt:     createdAt,
		Screens:       []Screen{},
		Options:       options,
		OverallHealth: HealthOK,
		Issues:        []Issue{},
		State:         SessionDraft,
	}
}

// SetIssues replaces the issue set and recomputes the overall health.
func (s *Session) SetIssues(issues []Issue) {
	if issues == nil {
		issues = []Issue{}
	}
	s.Issues = issues
	s.OverallHealth = ComputeHealth(issues)
}

// Clone returns a deep copy so callers can mutate it without aliasing.
func (s Session) Clone() Session {
	out := s
	out.Screens = append([]Screen{}, s.Screens...)
	out.Issues = make([]Issue, len(s.Issues))
	for i, issue := range s.Issues {
		out.Issues[i] = issue.Clone()
	}
	if s.ScreensExcluded != nil {
		out.ScreensExcluded = append([]string{}, s.ScreensExcluded...)
	}
	return out
}

func (s *Session) FindScreen(id string) (Screen, bool) {
	for _, screen := range s.Screens {
		if screen.ID == id {
			return screen, true
		}
	}
	return Screen{}, false
}

// ScreenForIssue returns the screen an issue refers to, or the first screen
// when the reference is absent or dangling.
func (s *Session) ScreenForIssue(issue Issue) (Screen, bool) {
	if issue.ScreenID != "" {
		if screen, ok := s.FindScreen(issue.ScreenID); ok {
			return screen, true
		}
	}
	if len(s.Screens) == 0 {
		return Screen{}, false
	}
	return s.Screens[0], true
}

func (s *Session) FindIssue(id string) (int, bool) {
	for i, issue := range s.Issues {
		if issue.ID == id {
			return i, true
		}
	}
	return -1, false
}

// SeverityCounts tallies issues per severity, used by history summaries.
func (s *Session) SeverityCounts() map[Severity]int {
	counts := map[Severity]int{
		SeverityCritical:  0,
		SeverityAttention: 0,
		SeverityInfo:      0,
	}
	for _, issue := range s.Issues {
		counts[issue.Severity]++
	}
	return counts
}

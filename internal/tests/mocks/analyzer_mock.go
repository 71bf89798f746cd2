package mocks

import (
	"context"
	"uxreview/internal/models"
)

type AnalyzerMock struct {
	AnalyzeFunc      func(ctx context.Context, session models.Session) (*models.Session, error)
	RecheckIssueFunc func(ctx context.Context, issueID string, session models.Session) (models.IssueStatus, error)
}

// Analyze completes the session without issues unless AnalyzeFunc is set.
func (m *AnalyzerMock) Analyze(ctx context.Context, session models.Session) (*models.Session, error) {
	if m.AnalyzeFunc != nil {
		return m.AnalyzeFunc(ctx, session)
	}
	out := session.Clone()
	out.SetIssues(nil)
	out.State = models.SessionCompleted
	return &out, nil
}

func (m *AnalyzerMock) RecheckIssue(ctx context.Context, issueID string, session models.Session) (models.IssueStatus, error) {
	if m.RecheckIssueFunc != nil {
		return m.RecheckIssueFunc(ctx, issueID, session)
	}
	return models.StatusOpen, nil
}

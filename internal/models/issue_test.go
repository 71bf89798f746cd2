package models

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func issuesWith(severities ...Severity) []Issue {
	out := make([]Issue, len(severities))
	for i, s := range severities {
		out[i] = Issue{ID: string(rune('a' + i)), Severity: s, Status: StatusOpen}
	}
	return out
}

func TestComputeHealth(t *testing.T) {
	assert.Equal(t, HealthOK, ComputeHealth(nil))
	assert.Equal(t, HealthOK, ComputeHealth(issuesWith(SeverityInfo, SeverityInfo)))
	assert.Equal(t, HealthAttention, ComputeHealth(issuesWith(SeverityInfo, SeverityAttention)))
	assert.Equal(t, HealthCritical, ComputeHealth(issuesWith(SeverityAttention, SeverityCritical, SeverityInfo)))
}

func TestComputeHealthIgnoresOrderAndStatus(t *testing.T) {
	issues := issuesWith(SeverityInfo, SeverityAttention, SeverityCritical, SeverityInfo, SeverityAttention)
	want := ComputeHealth(issues)

	r := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]Issue{}, issues...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		for j := range shuffled {
			shuffled[j].Status = []IssueStatus{StatusOpen, StatusPlanned, StatusFixed, StatusDismissed}[r.Intn(4)]
		}
		assert.Equal(t, want, ComputeHealth(shuffled))
	}
}

func TestSetIssuesRecomputesHealth(t *testing.T) {
	var s Session
	s.SetIssues(issuesWith(SeverityCritical))
	assert.Equal(t, HealthCritical, s.OverallHealth)

	s.SetIssues(nil)
	assert.Equal(t, HealthOK, s.OverallHealth)
	assert.NotNil(t, s.Issues)
}

func TestEnumsValid(t *testing.T) {
	assert.True(t, SeverityAttention.Valid())
	assert.False(t, Severity("urgent").Valid())
	assert.True(t, ConfidenceMedium.Valid())
	assert.False(t, Confidence("").Valid())
	assert.True(t, StatusDismissed.Valid())
	assert.False(t, IssueStatus("closed").Valid())
	assert.True(t, StrictnessStrict.Valid())
	assert.False(t, ScreenType("file").Valid())
}

package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"uxreview/internal/apperrors"
	"uxreview/internal/models"
)

type reviewResponse struct {
	Issues *[]reviewIssue `json:"issues"`
}

type reviewIssue struct {
	ID             string          `json:"id"`
	ScreenID       string          `json:"screenId"`
	Title          string          `json:"title"`
	Severity       string          `json:"severity"`
	Confidence     string          `json:"confidence"`
	Evidence       string          `json:"evidence"`
	Description    string          `json:"description"`
	Impact         string          `json:"impact"`
	Recommendation string          `json:"recommendation"`
	EdgeCases      string          `json:"edgeCases"`
	Anchors        *[]reviewAnchor `json:"anchors"`
}

type reviewAnchor struct {
	Type   string   `json:"type"`
	X      *float64 `json:"x"`
	Y      *float64 `json:"y"`
	Width  *float64 `json:"width"`
	Height *float64 `json:"height"`
	Label  string   `json:"label"`
}

// parseReviewResponse validates the model output and normalizes it into
// issues bound to session. Ids that are missing or repeated are replaced
// with issue-<unixMillis>-<index>.
func parseReviewResponse(raw string, session models.Session, now time.Time) ([]models.Issue, error) {
	body := strings.TrimSpace(raw)
	if body == "" {
		return nil, apperrors.New(apperrors.ErrModelResponse, msgEmptyResponse)
	}

	var resp reviewResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return nil, invalidResponse(fmt.Errorf("decode response: %w", err))
	}
	if resp.Issues == nil {
		return nil, invalidResponse(fmt.Errorf("response has no issues field"))
	}

	issues := make([]models.Issue, 0, len(*resp.Issues))
	supplied := make(map[string]bool, len(*resp.Issues))
	for i, ri := range *resp.Issues {
		issue, err := normalizeIssue(ri, session)
		if err != nil {
			return nil, invalidResponse(fmt.Errorf("issue %d: %w", i, err))
		}
		if issue.ID != "" {
			supplied[issue.ID] = true
		}
		issues = append(issues, issue)
	}

	seen := make(map[string]bool, len(issues))
	for i := range issues {
		if id := issues[i].ID; id == "" || seen[id] {
			issues[i].ID = synthesizeIssueID(now, i, func(candidate string) bool {
				return supplied[candidate] || seen[candidate]
			})
		}
		seen[issues[i].ID] = true
	}
	return issues, nil
}

// synthesizeIssueID returns issue-<unixMillis>-<index>, suffixed until taken
// reports it free.
func synthesizeIssueID(now time.Time, index int, taken func(string) bool) string {
	base := fmt.Sprintf("issue-%d-%d", now.UnixMilli(), index)
	id := base
	for n := 1; taken(id); n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	return id
}

func normalizeIssue(ri reviewIssue, session models.Session) (models.Issue, error) {
	required := []struct {
		name  string
		value string
	}{
		{"title", ri.Title},
		{"severity", ri.Severity},
		{"evidence", ri.Evidence},
		{"impact", ri.Impact},
		{"recommendation", ri.Recommendation},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return models.Issue{}, fmt.Errorf("missing %s", f.name)
		}
	}
	if ri.Anchors == nil {
		return models.Issue{}, fmt.Errorf("missing anchors")
	}

	severity := models.Severity(strings.ToLower(strings.TrimSpace(ri.Severity)))
	if !severity.Valid() {
		return models.Issue{}, fmt.Errorf("unknown severity %q", ri.Severity)
	}
	confidence := models.Confidence(strings.ToLower(strings.TrimSpace(ri.Confidence)))
	if !confidence.Valid() {
		confidence = models.ConfidenceLow
	}

	anchors := make(models.Anchors, 0, len(*ri.Anchors))
	for j, ra := range *ri.Anchors {
		typ := models.AnchorType(strings.ToLower(strings.TrimSpace(ra.Type)))
		anchor, err := models.DecodeAnchor(typ, ra.X, ra.Y, ra.Width, ra.Height, ra.Label)
		if err != nil {
			return models.Issue{}, fmt.Errorf("anchor %d: %w", j, err)
		}
		anchors = append(anchors, anchor)
	}

	screenID := strings.TrimSpace(ri.ScreenID)
	if _, ok := session.FindScreen(screenID); !ok {
		screenID = ""
	}
	description := strings.TrimSpace(ri.Description)
	if description == "" {
		description = strings.TrimSpace(ri.Evidence)
	}

	return models.Issue{
		ID:             strings.TrimSpace(ri.ID),
		ScreenID:       screenID,
		Title:          strings.TrimSpace(ri.Title),
		Severity:       severity,
		Confidence:     confidence,
		Evidence:       strings.TrimSpace(ri.Evidence),
		Description:    description,
		Impact:         strings.TrimSpace(ri.Impact),
		Recommendation: strings.TrimSpace(ri.Recommendation),
		EdgeCases:      strings.TrimSpace(ri.EdgeCases),
		Status:         models.StatusOpen,
		Anchors:        anchors,
	}, nil
}

func invalidResponse(err error) error {
	return apperrors.Wrap(apperrors.ErrModelResponse, msgInvalidResponse, err)
}

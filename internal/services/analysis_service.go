package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"uxreview/internal/apperrors"
	"uxreview/internal/config"
	"uxreview/internal/llm/client"
	"uxreview/internal/logging"
	"uxreview/internal/models"

	"go.uber.org/zap"
)

const (
	msgNoImages        = "No valid images could be processed for analysis. If you uploaded files, please try re-uploading them."
	msgEmptyResponse   = "AI returned an empty response."
	msgInvalidResponse = "AI returned an invalid response. Please try again."
	msgAnalysisFailed  = "Analysis failed. Please try again."
	msgCancelled       = "Analysis was cancelled."
	msgTimedOut        = "Analysis timed out. Please try again."
)

// Analyzer turns a session with screens into a completed session with issues.
type Analyzer interface {
	Analyze(ctx context.Context, session models.Session) (*models.Session, error)
	RecheckIssue(ctx context.Context, issueID string, session models.Session) (models.IssueStatus, error)
}

// KeyResolver finds the API key for a provider id.
type KeyResolver interface {
	ResolveApiKey(provider string) (string, error)
}

// VisionModelFactory builds the client for a resolved catalog model.
type VisionModelFactory func(ctx context.Context, providerID, apiKey string, opts client.Options) (client.VisionModel, error)

type AnalysisServiceConfig struct {
	Models ModelConfigService
	Keys   KeyResolver
	Images ImageResolver
	// PreferredModel returns the catalog key to use; "" selects the first
	// enabled model.
	PreferredModel func(ctx context.Context) string
	NewModel       VisionModelFactory
	Clock          func() time.Time
	Logger         *zap.Logger
}

type AnalysisService struct {
	models         ModelConfigService
	keys           KeyResolver
	images         ImageResolver
	preferredModel func(ctx context.Context) string
	newModel       VisionModelFactory
	clock          func() time.Time
	logger         *zap.Logger
}

func NewAnalysisService(cfg AnalysisServiceConfig) *AnalysisService {
	s := &AnalysisService{
		models:         cfg.Models,
		keys:           cfg.Keys,
		images:         cfg.Images,
		preferredModel: cfg.PreferredModel,
		newModel:       cfg.NewModel,
		clock:          cfg.Clock,
		logger:         logging.OrNop(cfg.Logger),
	}
	if s.newModel == nil {
		s.newModel = client.NewVisionModel
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.preferredModel == nil {
		s.preferredModel = func(context.Context) string { return "" }
	}
	return s
}

func (s *AnalysisService) Analyze(ctx context.Context, session models.Session) (*models.Session, error) {
	vision, err := s.visionModel(ctx)
	if err != nil {
		return nil, err
	}

	images, excluded, err := s.images.Resolve(ctx, session.Screens)
	if err != nil {
		return nil, contextError(ctx, err)
	}
	if len(images) == 0 {
		return nil, apperrors.New(apperrors.ErrResourceResolution, msgNoImages)
	}
	if len(excluded) > 0 {
		s.logger.Warn("analysing with excluded screens",
			zap.String("session_id", session.ID),
			zap.Strings("excluded", excluded))
	}

	system, err := client.Prompt(client.PromptReview)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrConfiguration, msgAnalysisFailed, err)
	}

	started := s.clock()
	raw, err := vision.GenerateJSON(ctx, client.VisionRequest{
		SystemInstruction: system,
		Prompt:            buildReviewPrompt(session, excluded),
		Images:            images,
		Schema:            client.ReviewResponseSchema(),
	})
	if err != nil {
		return nil, modelError(ctx, err)
	}
	s.logger.Info("vision model responded",
		zap.String("session_id", session.ID),
		zap.String("model", vision.Name()),
		zap.Int("images", len(images)),
		zap.Duration("elapsed", s.clock().Sub(started)))

	issues, err := parseReviewResponse(raw, session, s.clock())
	if err != nil {
		return nil, err
	}

	out := session.Clone()
	out.SetIssues(issues)
	out.State = models.SessionCompleted
	out.ScreensExcluded = excluded
	if len(excluded) == 0 {
		out.ScreensExcluded = nil
	}
	return &out, nil
}

// RecheckIssue asks the model whether one issue is still visible on its
// screen.
func (s *AnalysisService) RecheckIssue(ctx context.Context, issueID string, session models.Session) (models.IssueStatus, error) {
	idx, ok := session.FindIssue(issueID)
	if !ok {
		return "", apperrors.New(apperrors.ErrNotFound, "Issue not found.")
	}
	issue := session.Issues[idx]
	screen, ok := session.ScreenForIssue(issue)
	if !ok {
		return "", apperrors.Validation("Please add at least one screen to analyze.")
	}

	vision, err := s.visionModel(ctx)
	if err != nil {
		return "", err
	}
	images, _, err := s.images.Resolve(ctx, []models.Screen{screen})
	if err != nil {
		return "", contextError(ctx, err)
	}
	if len(images) == 0 {
		return "", apperrors.New(apperrors.ErrResourceResolution, msgNoImages)
	}

	system, err := client.Prompt(client.PromptRecheck)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrConfiguration, msgAnalysisFailed, err)
	}
	raw, err := vision.GenerateJSON(ctx, client.VisionRequest{
		SystemInstruction: system,
		Prompt:            buildRecheckPrompt(issue),
		Images:            images,
		Schema:            client.RecheckResponseSchema(),
	})
	if err != nil {
		return "", modelError(ctx, err)
	}

	var verdict struct {
		Status   string `json:"status"`
		Evidence string `json:"evidence"`
	}
	body := strings.TrimSpace(raw)
	if body == "" {
		return "", apperrors.New(apperrors.ErrModelResponse, msgEmptyResponse)
	}
	if err := json.Unmarshal([]byte(body), &verdict); err != nil {
		return "", apperrors.Wrap(apperrors.ErrModelResponse, msgInvalidResponse, err)
	}
	status := models.IssueStatus(strings.ToLower(strings.TrimSpace(verdict.Status)))
	if status != models.StatusOpen && status != models.StatusFixed {
		return "", apperrors.Wrap(apperrors.ErrModelResponse, msgInvalidResponse,
			fmt.Errorf("unexpected recheck status %q", verdict.Status))
	}
	s.logger.Info("issue rechecked",
		zap.String("session_id", session.ID),
		zap.String("issue_id", issueID),
		zap.String("status", string(status)),
		zap.String("evidence", verdict.Evidence))
	return status, nil
}

func (s *AnalysisService) visionModel(ctx context.Context) (client.VisionModel, error) {
	var (
		providerID = client.ProviderGemini
		apiName    string
	)
	if s.models != nil {
		mdl, err := s.models.ResolveModel(s.preferredModel(ctx))
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrConfiguration, err.Error(), err)
		}
		providerID, apiName = mdl.ProviderID, mdl.APIName
	}

	envName := config.APIKeyEnv[providerID]
	if envName == "" {
		envName = strings.ToUpper(providerID) + "_API_KEY"
	}
	missing := fmt.Sprintf("%s is not configured. Please check your environment settings.", envName)

	var apiKey string
	if s.keys != nil {
		key, err := s.keys.ResolveApiKey(providerID)
		if err != nil {
			s.logger.Warn("api key lookup failed", zap.String("provider", providerID), zap.Error(err))
		}
		apiKey = key
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, apperrors.Configuration(missing)
	}

	vision, err := s.newModel(ctx, providerID, apiKey, client.Options{Model: apiName})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrConfiguration, msgAnalysisFailed, err)
	}
	return vision, nil
}

func contextError(ctx context.Context, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return apperrors.Wrap(apperrors.ErrCancelled, msgCancelled, err)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return apperrors.Wrap(apperrors.ErrModelResponse, msgTimedOut, err)
	}
	return apperrors.Wrap(apperrors.ErrResourceResolution, msgNoImages, err)
}

func modelError(ctx context.Context, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return apperrors.Wrap(apperrors.ErrCancelled, msgCancelled, err)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return apperrors.Wrap(apperrors.ErrModelResponse, msgTimedOut, err)
	}
	return apperrors.Wrap(apperrors.ErrModelResponse, msgAnalysisFailed, err)
}

func buildReviewPrompt(session models.Session, excluded []string) string {
	var b strings.Builder
	opts := session.Options

	b.WriteString("Analysis options:\n")
	fmt.Fprintf(&b, "- strictness: %s\n", opts.Strictness)
	switch opts.Strictness {
	case models.StrictnessLight:
		b.WriteString("  Report only issues that clearly hurt the user.\n")
	case models.StrictnessStrict:
		b.WriteString("  Also report minor polish issues that have visible evidence.\n")
	}
	if opts.AccessibilityFocus {
		b.WriteString("- accessibility focus: on. Pay extra attention to contrast, target size, labels and focus visibility.\n")
	} else {
		b.WriteString("- accessibility focus: off\n")
	}
	if opts.Sequential {
		b.WriteString("- flow: the screens are consecutive steps of one flow. Also report issues between steps.\n")
	} else {
		b.WriteString("- flow: review each screen on its own.\n")
	}

	skip := make(map[string]bool, len(excluded))
	for _, id := range excluded {
		skip[id] = true
	}
	b.WriteString("\nScreens (images follow in this order):\n")
	for _, screen := range orderedScreens(session.Screens) {
		if skip[screen.ID] {
			continue
		}
		fmt.Fprintf(&b, "- id=%s name=%q order=%d\n", screen.ID, screen.Name, screen.Order)
	}
	if len(excluded) > 0 {
		b.WriteString("\nThese screens could not be loaded and have no image. Do not report issues for them:\n")
		for _, screen := range session.Screens {
			if skip[screen.ID] {
				fmt.Fprintf(&b, "- id=%s name=%q\n", screen.ID, screen.Name)
			}
		}
	}
	b.WriteString("\nRespond with JSON matching the response schema.")
	return b.String()
}

func buildRecheckPrompt(issue models.Issue) string {
	anchors, _ := json.Marshal(issue.Anchors)
	var b strings.Builder
	fmt.Fprintf(&b, "Issue: %s\n", issue.Title)
	fmt.Fprintf(&b, "Original evidence: %s\n", issue.Evidence)
	fmt.Fprintf(&b, "Anchors: %s\n", anchors)
	b.WriteString("\nIs this issue still visible? Respond with JSON matching the response schema.")
	return b.String()
}

func orderedScreens(screens []models.Screen) []models.Screen {
	out := append([]models.Screen{}, screens...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

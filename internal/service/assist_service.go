package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/correction-api/internal/models"
	appErrors "github.com/noah-isme/correction-api/pkg/errors"
)

type completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

var rubricLine = regexp.MustCompile(`(?i)^\s*(?:[-*•]\s*)?(.+?)\s*:\s*(\d+(?:[.,]\d+)?)\s*points?\b`)

// AssistService sends grading prompts to the language model.
type AssistService struct {
	llm       completer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssistService constructs an AssistService.
func NewAssistService(llm completer, validate *validator.Validate, logger *zap.Logger) *AssistService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssistService{llm: llm, validator: validate, logger: logger}
}

// Correct grades one copy against the rubric and returns the feedback text.
func (s *AssistService) Correct(ctx context.Context, req CorrectionRequest) (string, error) {
	prompt := fmt.Sprintf(`Tu es professeur de %s en classe de %s.
Corrige la copie d'élève ci-dessous en appliquant strictement le barème.

Barème :
%s

Copie :
%s

Pour chaque critère, indique les points obtenus et une justification courte.
Termine par la note finale au format « Note finale : X/Y » et un commentaire constructif adressé à l'élève.`,
		req.Subject, req.ClassLevel, req.Rubric, req.Content)
	return s.llm.Complete(ctx, prompt, 0)
}

// SuggestRubric asks for a rubric totalling totalPoints and parses it into criteria.
func (s *AssistService) SuggestRubric(ctx context.Context, classLevel, subject string, totalPoints float64) (*models.RubricSuggestion, error) {
	if strings.TrimSpace(classLevel) == "" || strings.TrimSpace(subject) == "" || totalPoints <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "classLevel, subject and a positive totalPoints are required")
	}
	prompt := fmt.Sprintf(`Propose un barème de correction sur %s points pour une évaluation de %s en classe de %s.
Réponds uniquement avec une ligne par critère au format "Critère: N points".`,
		strconv.FormatFloat(totalPoints, 'f', -1, 64), subject, classLevel)

	raw, err := s.llm.Complete(ctx, prompt, 0)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCollaborator.Code, appErrors.ErrCollaborator.Status, "rubric suggestion failed")
	}
	criteria := ParseRubric(raw)
	if len(criteria) == 0 {
		s.logger.Warn("rubric suggestion could not be parsed", zap.String("raw", raw))
		return nil, appErrors.Clone(appErrors.ErrCollaborator, "rubric suggestion could not be parsed")
	}
	suggestion := &models.RubricSuggestion{Criteria: criteria, Raw: raw}
	for _, c := range criteria {
		suggestion.TotalPoints += c.Points
	}
	return suggestion, nil
}

// SuggestExercises asks for exercises and returns one entry per non-empty line.
func (s *AssistService) SuggestExercises(ctx context.Context, req models.ExerciseRequest) ([]string, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exercise request")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Propose des exercices pour une classe de %s.\n", req.ClassLevel)
	fmt.Fprintf(&b, "Objectifs pédagogiques : %s\n", req.Objectives)
	fmt.Fprintf(&b, "Durée disponible : %s\n", req.Duration)
	if req.Format != "" {
		fmt.Fprintf(&b, "Format souhaité : %s\n", req.Format)
	}
	if req.Interests != "" {
		fmt.Fprintf(&b, "Centres d'intérêt des élèves : %s\n", req.Interests)
	}
	b.WriteString("Donne un exercice par ligne, sans puces.")

	raw, err := s.llm.Complete(ctx, b.String(), 0)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCollaborator.Code, appErrors.ErrCollaborator.Status, "exercise suggestion failed")
	}
	return ParseExercises(raw), nil
}

// ParseRubric extracts "description: N points" lines. Decimal commas are accepted.
func ParseRubric(raw string) []models.Criterion {
	var criteria []models.Criterion
	for _, line := range strings.Split(raw, "\n") {
		m := rubricLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		points, err := strconv.ParseFloat(strings.Replace(m[2], ",", ".", 1), 64)
		if err != nil {
			continue
		}
		criteria = append(criteria, models.Criterion{
			ID:          uuid.NewString(),
			Description: strings.TrimSpace(m[1]),
			Points:      points,
		})
	}
	return criteria
}

// ParseExercises keeps trimmed non-empty lines that are not sub-items.
func ParseExercises(raw string) []string {
	out := []string{}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "-") {
			continue
		}
		out = append(out, line)
	}
	return out
}

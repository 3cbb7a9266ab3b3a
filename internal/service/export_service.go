package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/correction-api/internal/models"
	"github.com/noah-isme/correction-api/pkg/export"
	appErrors "github.com/noah-isme/correction-api/pkg/errors"
)

const resultExcerptLength = 120

type projectReader interface {
	Get(ctx context.Context, id string) (*models.CorrectionProject, error)
}

// Renderer turns a dataset into a downloadable document.
type Renderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// ExportFile is a rendered export.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders the active copies of a project.
type ExportService struct {
	projects  projectReader
	renderers map[string]Renderer
	logger    *zap.Logger
}

// NewExportService constructs an ExportService with the csv and pdf renderers.
func NewExportService(projects projectReader, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		projects: projects,
		renderers: map[string]Renderer{
			"csv": export.NewCSVExporter(),
			"pdf": export.NewPDFExporter(),
		},
		logger: logger,
	}
}

// Export renders the project in the requested format.
func (s *ExportService) Export(ctx context.Context, projectID, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	project, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	data, err := renderer.Render(buildCorrectionDataset(project))
	if err != nil {
		s.logger.Error("export rendering failed", zap.String("correction_id", projectID), zap.String("format", format), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("%s.%s", sanitizeFilename(project.Title), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Data:        data,
	}, nil
}

func buildCorrectionDataset(project *models.CorrectionProject) export.Dataset {
	headers := []string{"File", "Submitted", "Status", "Result"}
	active := project.ActiveCopies()
	rows := make([]map[string]string, 0, len(active))
	sections := make([]export.Section, 0, len(active))
	for _, c := range active {
		status, result := "pending", ""
		if c.CorrectionResult != nil {
			status, result = "corrected", *c.CorrectionResult
			sections = append(sections, export.Section{Heading: c.Name, Body: result})
		}
		rows = append(rows, map[string]string{
			"File":      c.Name,
			"Submitted": c.CreatedAt.UTC().Format(time.RFC3339),
			"Status":    status,
			"Result":    excerpt(result, resultExcerptLength),
		})
	}
	return export.Dataset{
		Title:    fmt.Sprintf("%s - %s (%s)", project.Title, project.Subject, project.ClassLevel),
		Headers:  headers,
		Rows:     rows,
		Sections: sections,
	}
}

func excerpt(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "correction"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "\"", "")
	result := replacer.Replace(raw)
	if runes := []rune(result); len(runes) > 100 {
		return string(runes[:100])
	}
	return result
}

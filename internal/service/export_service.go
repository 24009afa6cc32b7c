package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/aleks-coins-api/internal/models"
	appErrors "github.com/noah-isme/aleks-coins-api/pkg/errors"
	"github.com/noah-isme/aleks-coins-api/pkg/export"
	"github.com/noah-isme/aleks-coins-api/pkg/storage"
)

type sectionLister interface {
	ListSection(ctx context.Context, periodKey, sectionID string) ([]models.StudentPeriodRecord, error)
}

type leaderboardProvider interface {
	Leaderboard(ctx context.Context) (*models.Leaderboard, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFormat identifies a rendered export type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportRequest describes which dataset to render.
type ExportRequest struct {
	Kind      string
	PeriodKey string
	SectionID string
	Format    ExportFormat
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       ExportFormat
	ExpiresAt    time.Time
}

// ExportService builds scoreboard datasets and persists rendered files.
type ExportService struct {
	progress    sectionLister
	leaderboard leaderboardProvider
	storage     fileStorage
	csv         csvRenderer
	pdf         pdfRenderer
	signer      *storage.SignedURLSigner
	logger      *zap.Logger
	cfg         ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(progress sectionLister, leaderboard leaderboardProvider, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		progress:    progress,
		leaderboard: leaderboard,
		storage:     store,
		csv:         csv,
		pdf:         pdf,
		signer:      signer,
		logger:      logger,
		cfg:         cfg,
	}
}

// Generate builds the requested dataset and stores the rendered export.
func (s *ExportService) Generate(ctx context.Context, req ExportRequest) (*ExportResult, error) {
	dataset, title, err := s.buildDataset(ctx, req)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch req.Format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %s", req.Format))
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(req)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to store export: %w", err)
	}

	token, expiresAt, err := s.signer.Generate(uuid.NewString(), relPath)
	if err != nil {
		return nil, fmt.Errorf("failed to sign export url: %w", err)
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/export/%s", prefix, token),
		Format:       req.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *ExportService) buildDataset(ctx context.Context, req ExportRequest) (export.Dataset, string, error) {
	switch req.Kind {
	case "section":
		records, err := s.progress.ListSection(ctx, req.PeriodKey, req.SectionID)
		if err != nil {
			return export.Dataset{}, "", err
		}
		rows := make([]map[string]string, 0, len(records))
		for _, record := range records {
			rows = append(rows, map[string]string{
				"Student ID":       record.StudentID,
				"Name":             record.Name,
				"Coins":            strconv.Itoa(record.Coins),
				"Working Days":     strconv.Itoa(record.PeriodDays),
				"Percent Complete": strconv.FormatFloat(record.PercentComplete, 'f', 1, 64),
			})
		}
		dataset := export.Dataset{
			Headers: []string{"Student ID", "Name", "Coins", "Working Days", "Percent Complete"},
			Rows:    rows,
		}
		title := fmt.Sprintf("Section %s Progress (%s)", req.SectionID, req.PeriodKey)
		return dataset, title, nil
	case "leaderboard":
		board, err := s.leaderboard.Leaderboard(ctx)
		if err != nil {
			return export.Dataset{}, "", err
		}
		rows := make([]map[string]string, 0, len(board.Entries))
		for rank, entry := range board.Entries {
			rows = append(rows, map[string]string{
				"Rank":       strconv.Itoa(rank + 1),
				"Student ID": entry.StudentID,
				"Name":       entry.Name,
				"Balance":    strconv.Itoa(entry.Balance),
			})
		}
		dataset := export.Dataset{
			Headers: []string{"Rank", "Student ID", "Name", "Balance"},
			Rows:    rows,
		}
		return dataset, "Coin Leaderboard", nil
	default:
		return export.Dataset{}, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown export kind %q", req.Kind))
	}
}

func (s *ExportService) buildFilename(req ExportRequest) string {
	stamp := time.Now().UTC().Format("20060102T150405")
	parts := []string{req.Kind}
	if req.PeriodKey != "" {
		parts = append(parts, req.PeriodKey)
	}
	if req.SectionID != "" {
		parts = append(parts, req.SectionID)
	}
	parts = append(parts, stamp)
	name := strings.Join(parts, "_")
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '-'
		}
	}, name)
	return fmt.Sprintf("%s.%s", name, req.Format)
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string) (relPath string, err error) {
	_, relPath, _, err = s.signer.Parse(token, false)
	if err != nil {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired export token")
	}
	return relPath, nil
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Cleanup removes exports older than the configured TTL.
func (s *ExportService) Cleanup() {
	removed, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL)
	if err != nil {
		s.logger.Warn("export cleanup failed", zap.Error(err))
		return
	}
	if len(removed) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(removed)))
	}
}

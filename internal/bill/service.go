package bill

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// IDGenerator generates unique IDs for bills
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service is the bill store: it persists bills and their receipt files
type Service struct {
	db          DB
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with a uuid ID generator and the wall clock
func NewService(db DB, storage Storage) *Service {
	return &Service{
		db:          db,
		storage:     storage,
		idGenerator: &uuidGenerator{},
		timeSource:  &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	repeatedSpaces      = regexp.MustCompile(`\s+`)
)

// sanitizeFilename strips special characters and truncates long names
func sanitizeFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = repeatedSpaces.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}

	return base + ext
}

// ContentTypeFor guesses a receipt MIME type from its file name
func ContentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// ReceiptURL is the path a stored receipt is served from
func ReceiptURL(id string) string {
	return "/bills/" + id + "/receipt"
}

// receiptPath is where a bill's receipt lives in Storage, one directory per month
func receiptPath(b *Bill) string {
	return path.Join(b.CreatedAt.UTC().Format("2006-01"), fmt.Sprintf("%s_%s", b.ID, sanitizeFilename(b.FileName)))
}

// List returns all bills in the order they were created
func (s *Service) List(ctx context.Context) ([]*Bill, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bills, err := s.db.ListBills()
	if err != nil {
		return nil, fmt.Errorf("listing bills: %w", err)
	}
	return bills, nil
}

// Create stores the receipt, then saves a pending bill pointing at it
func (s *Service) Create(ctx context.Context, p Payload) (*Bill, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := &Bill{
		ID:         s.idGenerator.Generate(),
		Email:      p.Email,
		Type:       p.Type,
		Name:       strings.TrimSpace(p.Name),
		Amount:     p.Amount,
		Date:       p.Date,
		VAT:        p.VAT,
		Pct:        p.Pct,
		Commentary: p.Commentary,
		FileName:   filepath.Base(p.FileName),
		Status:     StatusPending,
		CreatedAt:  s.timeSource.Now(),
	}

	savedPath, err := s.storage.Save(receiptPath(b), p.File)
	if err != nil {
		return nil, fmt.Errorf("saving receipt: %w", err)
	}
	b.FileURL = ReceiptURL(b.ID)

	if err := s.db.SaveBill(b); err != nil {
		if delErr := s.storage.Delete(savedPath); delErr != nil {
			slog.Warn("Failed to remove orphaned receipt", "path", savedPath, "error", delErr)
		}
		return nil, fmt.Errorf("saving bill to database: %w", err)
	}

	slog.Info("Bill created", "id", b.ID, "email", b.Email, "type", b.Type, "file", b.FileName)
	return b, nil
}

// Get retrieves a bill by ID
func (s *Service) Get(ctx context.Context, id string) (*Bill, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := s.db.GetBill(id)
	if err != nil {
		return nil, fmt.Errorf("getting bill: %w", err)
	}
	return b, nil
}

// ReceiptFile returns the receipt bytes and content type for a bill
func (s *Service) ReceiptFile(ctx context.Context, id string) ([]byte, string, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if b.FileURL == "" {
		return nil, "", fmt.Errorf("%w: bill %s has no receipt", ErrNotFound, id)
	}

	data, err := s.storage.Get(receiptPath(b))
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt file: %w", err)
	}
	return data, ContentTypeFor(b.FileName), nil
}

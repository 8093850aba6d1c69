package receipt

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zombor/expense-reports/internal/apperr"
	"github.com/zombor/expense-reports/internal/blob"
	"github.com/zombor/expense-reports/internal/ownership"
	"github.com/zombor/expense-reports/internal/scanning"
)

// IDGenerator generates unique IDs for receipts
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// FieldExtractor turns an image into canonical receipt fields
type FieldExtractor interface {
	Extract(ctx context.Context, imageData []byte, contentType string) (*scanning.Fields, error)
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// Service handles receipt operations
type Service struct {
	db          DB
	storage     blob.Storage
	extractor   FieldExtractor
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with a UUID generator and the system clock
func NewService(db DB, storage blob.Storage, extractor FieldExtractor) *Service {
	return NewServiceWithDeps(db, storage, extractor, uuidGenerator{}, systemClock{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, storage blob.Storage, extractor FieldExtractor, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		storage:     storage,
		extractor:   extractor,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	repeatedSpaces      = regexp.MustCompile(`\s+`)
)

// sanitizeFilename strips special characters and truncates the long names phones generate
func sanitizeFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = repeatedSpaces.ReplaceAllString(base, " ")
	base = strings.ReplaceAll(strings.TrimSpace(base), " ", "-")

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}
	if unsafeFilenameChars.MatchString(strings.TrimPrefix(ext, ".")) {
		ext = ""
	}
	return base + ext
}

func uploadPrefix(owner string) string {
	return "uploads/" + owner + "/"
}

// ownsImage reports whether an image reference is a file directly inside
// the owner's upload area. Deeper paths belong to no owner.
func ownsImage(owner, ref string) bool {
	parts := strings.Split(strings.TrimPrefix(ref, "/"), "/")
	return len(parts) == 3 && parts[0] == "uploads" && parts[1] == owner && parts[2] != ""
}

// UploadImage stores a receipt image for owner and returns its reference
func (s *Service) UploadImage(owner, filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", apperr.Validationf("file is empty")
	}

	key := fmt.Sprintf("%s%d-%s", uploadPrefix(owner), s.timeSource.Now().UnixMilli(), sanitizeFilename(filename))
	savedPath, err := s.storage.Save(key, data)
	if err != nil {
		return "", fmt.Errorf("saving file: %w", err)
	}
	return savedPath, nil
}

// AnalyzeImage runs extraction on one of the owner's uploaded images. The
// result is returned for review and is not persisted.
func (s *Service) AnalyzeImage(ctx context.Context, owner, imageRef string) (*scanning.Fields, error) {
	if strings.TrimSpace(imageRef) == "" {
		return nil, apperr.Validationf("image reference is required")
	}
	if !ownsImage(owner, imageRef) {
		return nil, fmt.Errorf("%w: image belongs to another owner", apperr.ErrForbidden)
	}

	ref := strings.TrimPrefix(imageRef, "/")
	data, err := s.storage.Get(ref)
	if err != nil {
		return nil, fmt.Errorf("getting image: %w", err)
	}

	fields, err := s.extractor.Extract(ctx, data, contentTypeFor(ref, data))
	if err != nil {
		slog.Error("Failed to analyze receipt image", "image", ref, "error", err)
		return nil, err
	}
	return fields, nil
}

// contentTypeFor picks a MIME type from the extension, falling back to sniffing
func contentTypeFor(name string, data []byte) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	}
	return http.DetectContentType(data)
}

// CreateReceipt validates reviewed fields and persists a new receipt
func (s *Service) CreateReceipt(owner string, in CreateInput) (*Receipt, error) {
	now := s.timeSource.Now()

	if in.ImageURL != "" && !ownsImage(owner, in.ImageURL) {
		return nil, fmt.Errorf("%w: image belongs to another owner", apperr.ErrForbidden)
	}

	date, err := parseDate(in.Date, now)
	if err != nil {
		return nil, err
	}

	receipt := &Receipt{
		ID:        s.idGenerator.Generate(),
		OwnerID:   owner,
		ImageURL:  strings.TrimPrefix(in.ImageURL, "/"),
		Date:      date,
		Category:  optionalText(in.Category),
		Notes:     optionalText(in.Notes),
		Company:   optionalText(in.Company),
		Time:      optionalText(in.Time),
		Items:     optionalText(in.Items),
		CreatedAt: now.UTC(),
	}

	amounts := []struct {
		name string
		in   Numeric
		out  **decimal.Decimal
	}{
		{"amount", in.Amount, &receipt.Amount},
		{"subtotal", in.Subtotal, &receipt.Subtotal},
		{"tax", in.Tax, &receipt.Tax},
		{"tip", in.Tip, &receipt.Tip},
		{"total", in.Total, &receipt.Total},
	}
	for _, a := range amounts {
		if *a.out, err = parseNumeric(a.name, a.in); err != nil {
			return nil, err
		}
	}

	// amount mirrors total when total is known; total is never back-filled
	if receipt.Total != nil {
		total := *receipt.Total
		receipt.Amount = &total
	}

	if err := s.db.SaveReceipt(receipt); err != nil {
		return nil, fmt.Errorf("saving receipt to database: %w", err)
	}
	return receipt, nil
}

// ListReceipts returns the owner's receipts, newest created first
func (s *Service) ListReceipts(owner string) ([]*Receipt, error) {
	receipts, err := s.db.ListReceipts(owner)
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	slices.SortStableFunc(receipts, func(a, b *Receipt) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(b.ID, a.ID))
	})
	return receipts, nil
}

// ListReceiptsInRange returns the owner's receipts dated within
// [start, end] inclusive, oldest date first.
func (s *Service) ListReceiptsInRange(owner string, start, end time.Time) ([]*Receipt, error) {
	all, err := s.db.ListReceipts(owner)
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}

	from, to := DateOnly(start), DateOnly(end)
	receipts := make([]*Receipt, 0, len(all))
	for _, r := range all {
		d := DateOnly(r.Date)
		if d.Before(from) || d.After(to) {
			continue
		}
		receipts = append(receipts, r)
	}
	slices.SortStableFunc(receipts, func(a, b *Receipt) int {
		return cmp.Or(
			a.Date.Compare(b.Date),
			a.CreatedAt.Compare(b.CreatedAt),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return receipts, nil
}

// DeleteReceipt removes one of the owner's receipts and its image. A
// missing receipt is apperr.ErrNotFound; another owner's is apperr.ErrForbidden.
func (s *Service) DeleteReceipt(owner, id string) error {
	receipt, err := s.db.DeleteReceipt(id, func(r *Receipt) error {
		return ownership.Assert(owner, r)
	})
	if err != nil {
		return fmt.Errorf("deleting receipt: %w", err)
	}

	if receipt.ImageURL == "" {
		return nil
	}
	shared, err := s.imageInUse(owner, receipt.ImageURL)
	if err != nil {
		slog.Warn("Keeping receipt image, could not check other references", "image", receipt.ImageURL, "error", err)
		return nil
	}
	if shared {
		return nil
	}
	if err := s.storage.Delete(receipt.ImageURL); err != nil {
		slog.Warn("Failed to delete receipt image", "image", receipt.ImageURL, "error", err)
	}
	return nil
}

// imageInUse reports whether any of the owner's remaining receipts still
// reference the image. Uploads are owner-scoped so no other owner can.
func (s *Service) imageInUse(owner, imageURL string) (bool, error) {
	remaining, err := s.db.ListReceipts(owner)
	if err != nil {
		return false, err
	}
	for _, r := range remaining {
		if r.ImageURL == imageURL {
			return true, nil
		}
	}
	return false, nil
}

// DateOnly truncates t to its calendar date at UTC midnight
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD or RFC 3339 value into its calendar date
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := time.Parse(time.DateOnly, s); err == nil {
		return d, nil
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return DateOnly(ts), nil
	}
	return time.Time{}, apperr.Validationf("invalid date %q, expected YYYY-MM-DD", s)
}

func parseDate(s string, now time.Time) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return DateOnly(now), nil
	}
	return ParseDate(s)
}

func parseNumeric(name string, n Numeric) (*decimal.Decimal, error) {
	s := strings.TrimSpace(string(n))
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, apperr.Validationf("%s must be a number, got %q", name, s)
	}
	if !scanning.PlausibleMoney(d) {
		return nil, apperr.Validationf("%s is out of range", name)
	}
	return &d, nil
}

func optionalText(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

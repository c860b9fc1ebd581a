package payment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/paymentmanager/backend/internal/domain/payment"
	"github.com/paymentmanager/backend/internal/domain/shared"
	"github.com/paymentmanager/backend/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// EvidenceStorage stores evidence file bytes.
// Implemented by the infrastructure layer (S3, in-memory).
type EvidenceStorage interface {
	// PutObject stores data under key
	PutObject(ctx context.Context, key string, data []byte, contentType string) error

	// GetObject returns the bytes stored under key; shared.ErrNotFound if absent
	GetObject(ctx context.Context, key string) ([]byte, error)

	// DeleteObject removes the object under key
	DeleteObject(ctx context.Context, key string) error
}

// EvidenceKey returns the storage key of an evidence file
func EvidenceKey(evidenceID, ext string) string {
	return "evidence/" + evidenceID + ext
}

// Service implements payment.Store on top of a repository and object storage
type Service struct {
	repo     payment.Repository
	storage  EvidenceStorage
	rules    *payment.FieldRules
	now      func() time.Time
	location *time.Location
	logger   *zap.Logger
}

var _ payment.Store = (*Service)(nil)

// Option configures a Service
type Option func(*Service)

// WithClock overrides the time source used for derived statuses and timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLocation sets the zone "today" is computed in (default UTC)
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		s.location = loc
	}
}

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a new payment Service
func NewService(repo payment.Repository, storage EvidenceStorage, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		storage:  storage,
		rules:    payment.NewFieldRules(),
		now:      time.Now,
		location: time.UTC,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) today() valueobject.Date {
	return valueobject.DateOf(s.now(), s.location)
}

// MaxListScan caps the rows List reads for one request
const MaxListScan = 10000

// List returns one page of payments. Search and ordering come from the
// repository; the status filter and the totals use the derived status.
//
// The derived status depends on today's date, so neither the filter nor
// the page can be pushed into SQL: every search match is loaded, up to
// MaxListScan newest rows, and paginated here.
func (s *Service) List(ctx context.Context, q payment.ListQuery) (*payment.Page, error) {
	q = q.Normalize()
	if q.Status != "" && !q.Status.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invalid payment status: "+q.Status.String())
	}

	all, err := s.repo.Search(ctx, payment.SearchFilter{Search: q.Search, Limit: MaxListScan})
	if err != nil {
		return nil, err
	}
	if len(all) == MaxListScan {
		s.logger.Warn("Payment listing reached the scan cap, older payments are left out",
			zap.Int("cap", MaxListScan), zap.String("search", q.Search))
	}

	today := s.today()
	matched := make([]payment.Listed, 0, len(all))
	for i := range all {
		p := &all[i]
		st := p.DerivedStatus(today)
		if q.Status != "" && st != q.Status {
			continue
		}
		matched = append(matched, payment.Listed{Payment: p, DerivedStatus: st})
	}

	start, end := shared.PageBounds(len(matched), q.Page, q.PageSize)
	return payment.NewPage(matched[start:end], int64(len(matched)), q.Page, q.PageSize), nil
}

// Get returns a single payment by ID
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	return s.repo.FindByID(ctx, id)
}

// Create validates and stores a new payment
func (s *Service) Create(ctx context.Context, p *payment.Payment) (*payment.Payment, error) {
	if p == nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Payment is required")
	}
	if p.Status == "" {
		p.Status = payment.StatusPending
	}
	p.Currency = valueobject.NewCurrency(p.Currency.String())

	fields := s.rules.Check(payment.InputFromPayment(p))
	if _, err := valueobject.ParseAmount(p.DueAmount.String()); err != nil {
		fields[payment.FieldDueAmount] = payment.MsgAmountFormat
	}
	if err := payment.NewValidationError(fields); err != nil {
		return nil, err
	}
	if p.Status == payment.StatusCompleted && !p.HasEvidence() {
		return nil, shared.ErrEvidenceRequired
	}

	p.BaseEntity = shared.NewBaseEntityAt(s.now())

	if err := s.repo.Save(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("payment created", zap.String("payment_id", p.ID.String()))
	return p, nil
}

// Update applies a partial update to an existing payment
func (s *Service) Update(ctx context.Context, id uuid.UUID, u payment.Update) (*payment.Payment, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.Apply(u); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("payment updated", zap.String("payment_id", id.String()))
	return p, nil
}

// Delete removes a payment and its evidence file
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if p.HasEvidence() {
		s.removeEvidence(ctx, p.EvidenceID, p.EvidenceExt)
	}
	s.logger.Info("payment deleted", zap.String("payment_id", id.String()))
	return nil
}

// UploadEvidence stores an evidence file and attaches it to the payment.
// A previously attached file is replaced.
func (s *Service) UploadEvidence(ctx context.Context, id uuid.UUID, file payment.EvidenceUpload) (*payment.EvidenceRef, error) {
	ext, err := payment.EvidenceExtension(file.Filename)
	if err != nil {
		return nil, err
	}
	if file.Size > payment.MaxEvidenceSize {
		return nil, errFileTooLarge()
	}
	if file.Content == nil {
		return nil, shared.NewDomainError(shared.CodeInvalidFile, "File content is required")
	}
	data, err := io.ReadAll(io.LimitReader(file.Content, payment.MaxEvidenceSize+1))
	if err != nil {
		return nil, shared.WrapDomainError(shared.CodeInvalidFile, "Failed to read file", err)
	}
	if int64(len(data)) > payment.MaxEvidenceSize {
		return nil, errFileTooLarge()
	}

	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	evidenceID := uuid.New().String()
	if err := s.storage.PutObject(ctx, EvidenceKey(evidenceID, ext), data, payment.EvidenceContentType(ext)); err != nil {
		return nil, fmt.Errorf("failed to store evidence: %w", err)
	}

	prevID, prevExt := p.EvidenceID, p.EvidenceExt
	p.AttachEvidence(evidenceID, ext, payment.EvidenceName(file.Filename))
	if err := s.repo.Save(ctx, p); err != nil {
		s.removeEvidence(ctx, evidenceID, ext)
		return nil, err
	}
	if prevID != "" {
		s.removeEvidence(ctx, prevID, prevExt)
	}

	s.logger.Info("evidence uploaded",
		zap.String("payment_id", id.String()),
		zap.String("evidence_id", evidenceID),
		zap.Int("size", len(data)),
	)
	return &payment.EvidenceRef{EvidenceID: evidenceID, Extension: ext}, nil
}

// DownloadEvidence returns a stored evidence file
func (s *Service) DownloadEvidence(ctx context.Context, evidenceID string) (*payment.EvidenceFile, error) {
	if _, err := uuid.Parse(evidenceID); err != nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invalid evidence id")
	}
	p, err := s.repo.FindByEvidenceID(ctx, evidenceID)
	if err != nil {
		return nil, err
	}
	data, err := s.storage.GetObject(ctx, EvidenceKey(evidenceID, p.EvidenceExt))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError(shared.CodeNotFound, "File not found")
		}
		return nil, fmt.Errorf("failed to read evidence: %w", err)
	}
	return &payment.EvidenceFile{
		Data:        data,
		Filename:    p.EvidenceFilename(),
		ContentType: payment.EvidenceContentType(p.EvidenceExt),
	}, nil
}

func (s *Service) removeEvidence(ctx context.Context, evidenceID, ext string) {
	if err := s.storage.DeleteObject(ctx, EvidenceKey(evidenceID, ext)); err != nil {
		s.logger.Warn("failed to delete evidence object",
			zap.String("evidence_id", evidenceID),
			zap.Error(err),
		)
	}
}

func errFileTooLarge() error {
	return shared.NewDomainError(shared.CodeFileTooLarge,
		fmt.Sprintf("File size exceeds the maximum limit of %d MB.", payment.MaxEvidenceSize>>20))
}

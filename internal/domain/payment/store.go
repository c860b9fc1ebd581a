package payment

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/paymentmanager/backend/internal/domain/shared"
)

// DefaultPageSize is used when a list query does not name one
const DefaultPageSize = 50

// MaxEvidenceSize is the largest evidence file accepted (10 MiB)
const MaxEvidenceSize int64 = 10 << 20

var evidenceContentTypes = map[string]string{
	".pdf": "application/pdf",
	".png": "image/png",
	".jpg": "image/jpeg",
}

// EvidenceExtension returns the lower-cased extension of filename if it is
// an accepted evidence type
func EvidenceExtension(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := evidenceContentTypes[ext]; !ok {
		return "", shared.NewDomainError(shared.CodeInvalidFile, "Only PDF, PNG and JPG files are allowed")
	}
	return ext, nil
}

// MaxEvidenceNameLen bounds a stored evidence file name in bytes
const MaxEvidenceNameLen = 255

// EvidenceName reduces an uploaded filename to the base name kept with the
// payment. Directory parts from either separator are dropped and an
// over-long name is cut before its extension.
func EvidenceName(filename string) string {
	name := strings.TrimSpace(filename)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if len(name) <= MaxEvidenceNameLen {
		return name
	}
	ext := filepath.Ext(name)
	if len(ext) >= MaxEvidenceNameLen {
		ext = ""
	}
	stem := strings.ToValidUTF8(name[:MaxEvidenceNameLen-len(ext)], "")
	return stem + ext
}

// EvidenceContentType returns the MIME type for an evidence extension
func EvidenceContentType(ext string) string {
	if ct, ok := evidenceContentTypes[strings.ToLower(ext)]; ok {
		return ct
	}
	return "application/octet-stream"
}

// ListQuery selects one page of payments
type ListQuery struct {
	Page     int
	PageSize int
	Search   string
	Status   Status // empty means any
}

// Normalize fills defaults for missing paging values
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	q.Search = strings.TrimSpace(q.Search)
	return q
}

// Page is one page of payments plus the pagination metadata
type Page = shared.Paginated[Listed]

// Listed is a stored payment together with the values computed for listings
type Listed struct {
	*Payment
	DerivedStatus Status
}

// NewPage builds a page from its items and the total number of matches
func NewPage(items []Listed, total int64, page, pageSize int) *Page {
	p := shared.NewPaginated(items, total, page, pageSize)
	return &p
}

// EvidenceUpload is a file about to be attached to a payment
type EvidenceUpload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// EvidenceRef identifies a stored evidence file
type EvidenceRef struct {
	EvidenceID string
	Extension  string
}

// EvidenceFile is a downloaded evidence file
type EvidenceFile struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Store is the persistence port the payment editor commits through
type Store interface {
	// Create stores a new payment and returns it with its ID assigned
	Create(ctx context.Context, p *Payment) (*Payment, error)

	// Update applies a partial update to an existing payment
	Update(ctx context.Context, id uuid.UUID, u Update) (*Payment, error)

	// Delete removes a payment
	Delete(ctx context.Context, id uuid.UUID) error

	// List returns one page of payments
	List(ctx context.Context, q ListQuery) (*Page, error)

	// UploadEvidence attaches an evidence file to a payment
	UploadEvidence(ctx context.Context, id uuid.UUID, file EvidenceUpload) (*EvidenceRef, error)

	// DownloadEvidence returns a stored evidence file
	DownloadEvidence(ctx context.Context, evidenceID string) (*EvidenceFile, error)
}

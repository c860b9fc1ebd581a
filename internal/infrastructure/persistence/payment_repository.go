package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/paymentmanager/backend/internal/domain/payment"
	"github.com/paymentmanager/backend/internal/domain/shared"
	"github.com/paymentmanager/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// searchColumns are matched by a free-text payment search
var searchColumns = []string{
	"payee_first_name",
	"payee_last_name",
	"payee_address_line_1",
	"payee_address_line_2",
	"payee_city",
	"payee_country",
	"payee_email",
}

// GormPaymentRepository implements payment.Repository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

var _ payment.Repository = (*GormPaymentRepository)(nil)

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment by its ID
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return model.ToDomain(), nil
}

// FindByEvidenceID finds the payment an evidence file is attached to
func (r *GormPaymentRepository) FindByEvidenceID(ctx context.Context, evidenceID string) (*payment.Payment, error) {
	if evidenceID == "" {
		return nil, shared.ErrNotFound
	}
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("evidence_file_id = ?", evidenceID).
		First(&model).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return model.ToDomain(), nil
}

// Search returns the payments matching the filter, newest first, up to
// filter.Limit rows
func (r *GormPaymentRepository) Search(ctx context.Context, filter payment.SearchFilter) ([]payment.Payment, error) {
	query := r.db.WithContext(ctx).Model(&models.PaymentModel{})
	if term := strings.TrimSpace(filter.Search); term != "" {
		pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
		conds := make([]string, len(searchColumns))
		args := make([]any, len(searchColumns))
		for i, col := range searchColumns {
			conds[i] = "LOWER(" + col + `) LIKE ? ESCAPE '\'`
			args[i] = pattern
		}
		query = query.Where(strings.Join(conds, " OR "), args...)
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []models.PaymentModel
	if err := query.Order("created_at DESC").Order("id").Find(&rows).Error; err != nil {
		return nil, shared.WrapDomainError(shared.CodePersistenceFailed, "failed to search payments", err)
	}

	payments := make([]payment.Payment, len(rows))
	for i := range rows {
		payments[i] = *rows[i].ToDomain()
	}
	return payments, nil
}

// Save creates or updates a payment
func (r *GormPaymentRepository) Save(ctx context.Context, p *payment.Payment) error {
	if p == nil || p.IsNew() {
		return shared.NewDomainError(shared.CodeInvalidInput, "payment must have an ID before it is saved")
	}
	model := models.PaymentModelFromDomain(p)
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(model).Error; err != nil {
		return shared.WrapDomainError(shared.CodePersistenceFailed, "failed to save payment", err)
	}
	return nil
}

// SaveBatch creates multiple payments in one transaction
func (r *GormPaymentRepository) SaveBatch(ctx context.Context, payments []*payment.Payment) error {
	if len(payments) == 0 {
		return nil
	}
	batch := make([]*models.PaymentModel, 0, len(payments))
	for _, p := range payments {
		if p == nil || p.IsNew() {
			return shared.NewDomainError(shared.CodeInvalidInput, "payment must have an ID before it is saved")
		}
		batch = append(batch, models.PaymentModelFromDomain(p))
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(batch, 100).Error
	})
	if err != nil {
		return shared.WrapDomainError(shared.CodePersistenceFailed, "failed to save payments", err)
	}
	return nil
}

// Delete deletes a payment
func (r *GormPaymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.PaymentModel{}, "id = ?", id)
	if result.Error != nil {
		return shared.WrapDomainError(shared.CodePersistenceFailed, "failed to delete payment", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	return shared.WrapDomainError(shared.CodePersistenceFailed, "failed to load payment", err)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

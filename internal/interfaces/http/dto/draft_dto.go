package dto

import "github.com/paymentmanager/backend/internal/application/paymentform"

// CreateDraftRequest opens an editor draft, optionally on a stored payment
type CreateDraftRequest struct {
	PaymentID string `json:"payment_id" binding:"omitempty,uuid"`
}

// DraftFieldRequest changes one field of a draft
type DraftFieldRequest struct {
	Field string `json:"field" binding:"required,payment_field"`
	Value string `json:"value"`
}

// DraftResponse is the state of an editor draft together with the
// notifications raised since the previous response
type DraftResponse struct {
	DraftID       string                     `json:"draft_id"`
	State         paymentform.Snapshot       `json:"state"`
	Notifications []paymentform.Notification `json:"notifications"`
}

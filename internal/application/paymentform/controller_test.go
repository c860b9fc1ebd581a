package paymentform

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/paymentmanager/backend/internal/application/referencedata"
	"github.com/paymentmanager/backend/internal/domain/payment"
	"github.com/paymentmanager/backend/internal/domain/shared"
	"github.com/paymentmanager/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

type harness struct {
	ctrl   *Controller
	source *fakeSource
	store  *MockStore
	sink   *recordingSink
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		source: newFakeSource(),
		store:  new(MockStore),
		sink:   &recordingSink{},
	}
	base := []Option{
		WithDebounce(0),
		WithNotificationSink(h.sink),
		WithConsistencyValidator(payment.NewConsistencyValidator(
			payment.WithClock(func() time.Time { return testNow }),
		)),
	}
	h.ctrl = NewController(referencedata.NewResolver(h.source), h.store, append(base, opts...)...)
	wait(t, h.ctrl.Init(context.Background()))
	return h
}

func wait(t *testing.T, p *Pending) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	select {
	case <-p.Done():
	case <-ctx.Done():
		t.Fatal("timed out waiting for lookups")
	}
	return p.Err()
}

func (h *harness) set(t *testing.T, field payment.Field, value string) Snapshot {
	t.Helper()
	_, p := h.ctrl.OnFieldChange(field, value)
	require.NoError(t, wait(t, p))
	return h.ctrl.Snapshot()
}

func (h *harness) fillValid(t *testing.T) Snapshot {
	t.Helper()
	h.set(t, payment.FieldFirstName, "Asha")
	h.set(t, payment.FieldLastName, "Menon")
	h.set(t, payment.FieldEmail, "asha@example.com")
	h.set(t, payment.FieldPhone, "+919876543210")
	h.set(t, payment.FieldAddress1, "12 Beach Road")
	h.set(t, payment.FieldCountry, "India")
	h.set(t, payment.FieldState, "Goa")
	h.set(t, payment.FieldCity, "Panaji")
	h.set(t, payment.FieldPostalCode, "403001")
	h.set(t, payment.FieldDueDate, "2024-07-01")
	return h.set(t, payment.FieldDueAmount, "1200.50")
}

func TestController_InitialState(t *testing.T) {
	h := newHarness(t)
	snap := h.ctrl.Snapshot()

	assert.Len(t, snap.Countries, 3)
	assert.True(t, snap.Editable[payment.FieldCountry])
	assert.False(t, snap.Editable[payment.FieldState])
	assert.False(t, snap.Editable[payment.FieldCity])
	assert.False(t, snap.Editable[payment.FieldCurrency])
	assert.True(t, snap.Editable[payment.FieldFirstName])
	assert.False(t, snap.Valid)
	assert.Equal(t, payment.MsgRequired, snap.Errors[payment.FieldCountry])
}

func TestController_CountryCascade(t *testing.T) {
	h := newHarness(t)
	snap := h.set(t, payment.FieldCountry, "India")

	assert.Equal(t, []string{"Goa", "Kerala"}, snap.States)
	assert.Equal(t, []string{"Mumbai", "Panaji", "Kochi"}, snap.Cities)
	assert.Equal(t, "INR", snap.Values.Currency)
	assert.True(t, snap.Editable[payment.FieldState])
	assert.True(t, snap.Editable[payment.FieldCity])
	assert.Equal(t, payment.MsgRequired, snap.Errors[payment.FieldState])

	snap = h.set(t, payment.FieldState, "Goa")
	assert.Equal(t, []string{"Panaji"}, snap.Cities)

	snap = h.set(t, payment.FieldState, "")
	assert.Equal(t, []string{"Mumbai", "Panaji", "Kochi"}, snap.Cities)

	// Every key went upstream exactly once
	assert.Equal(t, 1, h.source.count("states:India"))
	assert.Equal(t, 1, h.source.count("cities:India"))
	assert.Equal(t, 1, h.source.count("cities:India|Goa"))
}

func TestController_RepeatedCountryUsesCache(t *testing.T) {
	h := newHarness(t)
	h.set(t, payment.FieldCountry, "India")
	h.set(t, payment.FieldCountry, "France")
	h.set(t, payment.FieldCountry, "India")

	assert.Equal(t, 1, h.source.count("states:India"))
	assert.Equal(t, 1, h.source.count("cities:India"))
	assert.Equal(t, 1, h.source.count("currency:India"))
	assert.Equal(t, 1, h.source.count("countries"))
}

func TestController_CountryWithoutStates(t *testing.T) {
	h := newHarness(t)
	snap := h.set(t, payment.FieldCountry, "Monaco")

	assert.Empty(t, snap.States)
	assert.False(t, snap.Editable[payment.FieldState])
	assert.NotContains(t, snap.Errors, payment.FieldState)
	assert.Equal(t, []string{"Monaco"}, snap.Cities)
}

func TestController_InvalidCountryClearsDependents(t *testing.T) {
	h := newHarness(t)
	h.set(t, payment.FieldCountry, "India")
	h.set(t, payment.FieldState, "Goa")
	h.set(t, payment.FieldCity, "Panaji")

	snap := h.set(t, payment.FieldCountry, "Atlantis")
	assert.Empty(t, snap.Values.State)
	assert.Empty(t, snap.Values.City)
	assert.Empty(t, snap.Values.Currency)
	assert.Empty(t, snap.States)
	assert.Empty(t, snap.Cities)
	assert.False(t, snap.Editable[payment.FieldState])
	assert.Equal(t, payment.MsgSelection, snap.Errors[payment.FieldCountry])
}

func TestController_StaleCountryResponseDiscarded(t *testing.T) {
	h := newHarness(t)
	gate := h.source.gate("states:India")

	_, first := h.ctrl.OnFieldChange(payment.FieldCountry, "India")
	_, second := h.ctrl.OnFieldChange(payment.FieldCountry, "France")
	require.NoError(t, wait(t, second))

	close(gate)
	require.NoError(t, wait(t, first))

	snap := h.ctrl.Snapshot()
	assert.Equal(t, "France", snap.Values.Country)
	assert.Equal(t, []string{"Bretagne", "Normandie"}, snap.States)
	assert.Equal(t, "EUR", snap.Values.Currency)
}

func TestController_DataSourceUnavailable(t *testing.T) {
	h := newHarness(t)
	h.set(t, payment.FieldCountry, "India")
	h.source.fail("cities:India|Kerala")

	_, p := h.ctrl.OnFieldChange(payment.FieldState, "Kerala")
	err := wait(t, p)
	assert.True(t, errors.Is(err, shared.ErrDataSourceUnavailable))

	snap := h.ctrl.Snapshot()
	assert.Equal(t, []string{"Goa", "Kerala"}, snap.States)
	assert.Equal(t, []string{"Mumbai", "Panaji", "Kochi"}, snap.Cities)

	notes := h.sink.all()
	require.NotEmpty(t, notes)
	assert.Equal(t, LevelError, notes[len(notes)-1].Level)
	assert.Equal(t, "Could not load cities. Please try again.", notes[len(notes)-1].Message)
}

func TestController_ConsistencyViolations(t *testing.T) {
	h := newHarness(t)

	snap := h.set(t, payment.FieldDueDate, "2024-06-15")
	assert.Equal(t, payment.ViolationFutureDateRequired, snap.Violation)
	assert.Equal(t, payment.ViolationFutureDateRequired.Message(), snap.Errors[payment.FieldDueDate])

	snap = h.set(t, payment.FieldStatus, "due_now")
	assert.Equal(t, payment.ViolationNone, snap.Violation)

	snap = h.set(t, payment.FieldStatus, "completed")
	assert.Equal(t, payment.ViolationEvidenceRequired, snap.Violation)
	assert.Equal(t, payment.ViolationEvidenceRequired.Message(), snap.Errors[payment.FieldEvidenceID])

	snap = h.set(t, payment.FieldEvidenceID, "ev-123")
	assert.Equal(t, payment.ViolationNone, snap.Violation)

	snap = h.set(t, payment.FieldDueDate, "15-06-2024")
	assert.Equal(t, payment.MsgDateFormat, snap.Errors[payment.FieldDueDate])
}

func TestController_SubmitInvalidGeographyDoesNotCallStore(t *testing.T) {
	h := newHarness(t)
	h.fillValid(t)
	h.set(t, payment.FieldCity, "Atlantis")

	err := h.ctrl.Submit(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrValidationFailed))

	var verr *payment.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, payment.MsgSelection, verr.Fields[payment.FieldCity])

	h.store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	h.store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestController_SubmitCreatesAndResets(t *testing.T) {
	h := newHarness(t)
	snap := h.fillValid(t)
	require.True(t, snap.Valid, "errors: %v", snap.Errors)

	h.store.On("Create", mock.Anything, mock.MatchedBy(func(p *payment.Payment) bool {
		return p.IsNew() &&
			p.Country == "India" && p.State == "Goa" && p.City == "Panaji" &&
			p.Currency == "INR" &&
			p.Status == payment.StatusPending &&
			p.DueAmount.Equal(decimal.RequireFromString("1200.50"))
	})).Return(&payment.Payment{}, nil).Once()

	require.NoError(t, h.ctrl.Submit(context.Background()))
	h.store.AssertExpectations(t)

	after := h.ctrl.Snapshot()
	assert.Empty(t, after.Values.FirstName)
	assert.Empty(t, after.Values.Country)
	assert.Empty(t, after.ID)
	assert.Contains(t, h.sink.all(), Notification{Level: LevelInfo, Message: "Payment is saved"})
}

func TestController_SubmitPersistenceFailureKeepsEdits(t *testing.T) {
	h := newHarness(t)
	h.fillValid(t)
	h.store.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("503 Service Unavailable")).Once()

	err := h.ctrl.Submit(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrPersistenceFailed))

	snap := h.ctrl.Snapshot()
	assert.Equal(t, "Asha", snap.Values.FirstName)
	assert.Equal(t, "Panaji", snap.Values.City)
	assert.True(t, snap.Valid)
}

func TestController_LoadAndUpdate(t *testing.T) {
	h := newHarness(t)
	id := uuid.New()
	stored := &payment.Payment{
		FirstName:    "Jean",
		LastName:     "Dupont",
		Email:        "jean@example.fr",
		Phone:        "+33612345678",
		AddressLine1: "3 Rue de la Paix",
		Country:      "France",
		State:        "Bretagne",
		City:         "Rennes",
		PostalCode:   "35000",
		Currency:     "EUR",
		DueAmount:    decimal.RequireFromString("80"),
		Status:       payment.StatusPending,
		DueDate:      valueobject.NewDate(2024, 7, 1),
	}
	stored.ID = id

	require.NoError(t, wait(t, h.ctrl.Load(stored)))
	snap := h.ctrl.Snapshot()
	assert.Equal(t, id.String(), snap.ID)
	assert.Equal(t, []string{"Rennes"}, snap.Cities)
	require.True(t, snap.Valid, "errors: %v", snap.Errors)

	h.set(t, payment.FieldDueAmount, "95.00")
	h.set(t, payment.FieldStatus, "overdue")
	h.set(t, payment.FieldDueDate, "2024-06-01")

	h.store.On("Update", mock.Anything, id, mock.MatchedBy(func(u payment.Update) bool {
		return u.DueAmount.Equal(decimal.RequireFromString("95")) &&
			*u.Status == payment.StatusOverdue &&
			u.DueDate.String() == "2024-06-01"
	})).Return(stored, nil).Once()

	require.NoError(t, h.ctrl.Submit(context.Background()))
	h.store.AssertExpectations(t)
	assert.Contains(t, h.sink.all(), Notification{Level: LevelInfo, Message: "Payment is updated."})
}

func TestController_Reset(t *testing.T) {
	h := newHarness(t)
	h.fillValid(t)

	snap := h.ctrl.Reset()
	assert.Empty(t, snap.Values.FirstName)
	assert.Empty(t, snap.States)
	assert.Empty(t, snap.Cities)
	assert.False(t, snap.Editable[payment.FieldState])
	assert.Len(t, snap.Countries, 3)
}

func TestController_FilteredViews(t *testing.T) {
	h := newHarness(t, WithDebounce(time.Hour))

	snap, p := h.ctrl.OnFieldChange(payment.FieldCountry, "fr")
	assert.Len(t, snap.Countries, 1)
	assert.Equal(t, "France", snap.Countries[0].Name)

	// The lookup is still waiting for the quiet period
	select {
	case <-p.Done():
		t.Fatal("lookup ran before the debounce period")
	default:
	}
	assert.Equal(t, 0, h.source.count("states:France"))

	h.ctrl.Reset()
	require.NoError(t, wait(t, p))
}

func TestController_DebounceSkipsSupersededCountry(t *testing.T) {
	h := newHarness(t, WithDebounce(30*time.Millisecond))

	_, first := h.ctrl.OnFieldChange(payment.FieldCountry, "India")
	_, second := h.ctrl.OnFieldChange(payment.FieldCountry, "France")
	require.NoError(t, wait(t, first))
	require.NoError(t, wait(t, second))

	assert.Equal(t, 0, h.source.count("states:India"))
	assert.Equal(t, 1, h.source.count("states:France"))
	assert.Equal(t, []string{"Bretagne", "Normandie"}, h.ctrl.Snapshot().States)
}

func TestController_CloseCancelsDebouncedLookups(t *testing.T) {
	h := newHarness(t, WithDebounce(time.Hour))

	_, p := h.ctrl.OnFieldChange(payment.FieldCountry, "India")
	h.ctrl.Close()

	require.NoError(t, wait(t, p))
	assert.Zero(t, h.source.count("states:India"))
	assert.Empty(t, h.ctrl.Snapshot().Values.Country)
}

func TestController_CountryChangeInvalidatesBeforeLookups(t *testing.T) {
	h := newHarness(t, WithDebounce(50*time.Millisecond))
	require.True(t, h.fillValid(t).Valid)

	snap, p := h.ctrl.OnFieldChange(payment.FieldCountry, "France")
	assert.Equal(t, "France", snap.Values.Country)
	assert.Empty(t, snap.Values.State)
	assert.Empty(t, snap.Values.City)
	assert.Empty(t, snap.Values.Currency)
	assert.Empty(t, snap.States)
	assert.Empty(t, snap.Cities)
	assert.True(t, snap.Loading)

	err := h.ctrl.Submit(context.Background())
	require.ErrorIs(t, err, ErrLookupsPending)
	assert.ErrorIs(t, err, shared.ErrValidationFailed)

	require.NoError(t, wait(t, p))
	snap = h.ctrl.Snapshot()
	assert.Equal(t, []string{"Bretagne", "Normandie"}, snap.States)
	assert.Equal(t, "EUR", snap.Values.Currency)

	err = h.ctrl.Submit(context.Background())
	var verr *payment.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, payment.MsgRequired, verr.Fields[payment.FieldCity])

	h.store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestController_StateChangeBlocksSubmitUntilCitiesArrive(t *testing.T) {
	h := newHarness(t, WithDebounce(50*time.Millisecond))
	require.True(t, h.fillValid(t).Valid)

	_, p := h.ctrl.OnFieldChange(payment.FieldState, "Kerala")
	require.ErrorIs(t, h.ctrl.Submit(context.Background()), ErrLookupsPending)

	require.NoError(t, wait(t, p))
	err := h.ctrl.Submit(context.Background())
	var verr *payment.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, payment.MsgSelection, verr.Fields[payment.FieldCity])

	h.store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestController_FailedCountryLookupCanBeRetried(t *testing.T) {
	h := newHarness(t)
	h.source.fail("states:India")

	_, p := h.ctrl.OnFieldChange(payment.FieldCountry, "India")
	require.ErrorIs(t, wait(t, p), shared.ErrDataSourceUnavailable)
	assert.False(t, h.ctrl.Snapshot().Editable[payment.FieldState])

	h.source.heal("states:India")
	snap := h.set(t, payment.FieldCountry, "India")

	assert.Equal(t, 2, h.source.count("states:India"))
	assert.Equal(t, []string{"Goa", "Kerala"}, snap.States)
	assert.True(t, snap.Editable[payment.FieldState])
	assert.Equal(t, 1, h.source.count("currency:India"))
}

func TestController_LoadedPaymentLocksFieldsOutsideUpdate(t *testing.T) {
	h := newHarness(t)
	id := uuid.New()
	stored := &payment.Payment{
		FirstName:    "Jean",
		LastName:     "Dupont",
		Email:        "jean@example.fr",
		Phone:        "+33612345678",
		AddressLine1: "3 Rue de la Paix",
		Country:      "France",
		State:        "Bretagne",
		City:         "Rennes",
		PostalCode:   "35000",
		Currency:     "EUR",
		DueAmount:    decimal.RequireFromString("80"),
		Status:       payment.StatusPending,
		DueDate:      valueobject.NewDate(2024, 7, 1),
	}
	stored.ID = id
	require.NoError(t, wait(t, h.ctrl.Load(stored)))

	snap := h.ctrl.Snapshot()
	assert.False(t, snap.Editable[payment.FieldFirstName])
	assert.False(t, snap.Editable[payment.FieldCountry])
	assert.True(t, snap.Editable[payment.FieldDueAmount])
	assert.True(t, h.ctrl.Locked(payment.FieldCity))
	assert.False(t, h.ctrl.Locked(payment.FieldStatus))

	for field, value := range map[payment.Field]string{
		payment.FieldFirstName: "Pierre",
		payment.FieldCountry:   "India",
		payment.FieldCity:      "Panaji",
	} {
		snap, p := h.ctrl.OnFieldChange(field, value)
		assert.ErrorIs(t, wait(t, p), ErrFieldLocked)
		assert.Equal(t, "Jean", snap.Values.FirstName)
		assert.Equal(t, "France", snap.Values.Country)
		assert.Equal(t, "Rennes", snap.Values.City)
	}
	assert.Zero(t, h.source.count("states:India"))

	h.set(t, payment.FieldDueAmount, "95")
	h.store.On("Update", mock.Anything, id, mock.MatchedBy(func(u payment.Update) bool {
		return u.DueAmount.Equal(decimal.RequireFromString("95"))
	})).Return(stored, nil).Once()

	require.NoError(t, h.ctrl.Submit(context.Background()))
	h.store.AssertExpectations(t)

	// A fresh draft is not locked
	assert.False(t, h.ctrl.Locked(payment.FieldFirstName))
}

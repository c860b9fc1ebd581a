package paymentform

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paymentmanager/backend/internal/application/referencedata"
	"github.com/paymentmanager/backend/internal/domain/geography"
	"github.com/paymentmanager/backend/internal/domain/payment"
	"github.com/paymentmanager/backend/internal/domain/shared"
	"github.com/paymentmanager/backend/internal/domain/shared/valueobject"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
)

// Snapshot is the observable state of the payment being edited
type Snapshot struct {
	ID        string                   `json:"id,omitempty"`
	Values    payment.Input            `json:"values"`
	Errors    map[payment.Field]string `json:"errors"`
	Editable  map[payment.Field]bool   `json:"editable"`
	Violation payment.Violation        `json:"violation"`
	Valid     bool                     `json:"valid"`
	Loading   bool                     `json:"loading"`

	// Lists filtered by what has been typed into each field
	Countries []geography.Country `json:"countries"`
	States    []string            `json:"states"`
	Cities    []string            `json:"cities"`
}

// lookupsKey is the debounce key shared by country and state changes
const lookupsKey = "lookups"

var (
	// ErrFieldLocked rejects a change to a field a saved payment cannot update
	ErrFieldLocked = shared.NewDomainError(shared.CodeInvalidInput, "Field cannot be changed on a saved payment")
	// ErrLookupsPending rejects a submit while reference data for the
	// current selection is still being resolved
	ErrLookupsPending = shared.NewDomainError(shared.CodeValidationFailed, "Reference data is still loading")
)

// Controller binds the reference-data cascade, the field constraints and
// the consistency validator around one in-progress payment.
//
// Every command and every lookup completion runs as one turn under a single
// mutex. Lookups run in their own goroutines and re-enter through apply,
// where responses for a superseded selection are dropped.
type Controller struct {
	mu sync.Mutex

	resolver  *referencedata.Resolver
	store     payment.Store
	sink      NotificationSink
	rules     *payment.FieldRules
	validator *payment.ConsistencyValidator
	logger    *zap.Logger
	ctx       context.Context
	delay     time.Duration
	debounce  *debouncer

	cascade     *referencedata.Cascade
	constraints Constraints
	id          uuid.UUID
	input       payment.Input
	epoch       uint64
	inflight    int
	// lookupsDue is set while a debounced dispatch has not run yet
	lookupsDue bool
	submitting bool
}

// Option is a functional option for configuring the controller
type Option func(*Controller)

// WithNotificationSink sets where progress and user messages go
func WithNotificationSink(sink NotificationSink) Option {
	return func(c *Controller) {
		if sink != nil {
			c.sink = sink
		}
	}
}

// WithConsistencyValidator sets the status/due date/evidence validator
func WithConsistencyValidator(v *payment.ConsistencyValidator) Option {
	return func(c *Controller) {
		if v != nil {
			c.validator = v
		}
	}
}

// WithDebounce sets the quiet period before typing triggers lookups
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) {
		c.delay = d
	}
}

// WithLogger sets the logger for the controller
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithContext sets the context lookups triggered by field changes run under
func WithContext(ctx context.Context) Option {
	return func(c *Controller) {
		c.ctx = ctx
	}
}

// NewController creates a controller editing a fresh, empty payment
func NewController(resolver *referencedata.Resolver, store payment.Store, opts ...Option) *Controller {
	c := &Controller{
		resolver:  resolver,
		store:     store,
		sink:      nopSink{},
		rules:     payment.NewFieldRules(),
		validator: payment.NewConsistencyValidator(),
		logger:    zap.NewNop(),
		ctx:       context.Background(),
		delay:     DefaultDebounce,
		cascade:   referencedata.NewCascade(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.debounce = newDebouncer(c.delay)
	c.rebindLocked()
	return c
}

// Init resolves the country list
func (c *Controller) Init(ctx context.Context) *Pending {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := newPending()
	c.dispatchLocked(ctx, c.cascade.Init(), p)
	p.finish(nil)
	return p
}

// Load starts editing a stored payment, discarding any edits in progress
func (c *Controller) Load(pay *payment.Payment) *Pending {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resetLocked()
	c.id = pay.ID
	c.input = payment.InputFromPayment(pay)

	p := newPending()
	reqs := c.cascade.Restore(pay.Country, pay.State, pay.City, pay.Currency.String())
	c.rebindLocked()
	c.dispatchLocked(c.ctx, reqs, p)
	p.finish(nil)
	return p
}

// Snapshot returns the current state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Locked reports whether field rejects changes. A loaded payment only
// accepts changes to the fields an update carries.
func (c *Controller) Locked(field payment.Field) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lockedLocked(field)
}

func (c *Controller) lockedLocked(field payment.Field) bool {
	return c.id != uuid.Nil && !field.Updatable()
}

// OnFieldChange records a new field value. The returned snapshot reflects
// the value immediately, including the selections a geography change
// invalidates; the lookups it triggers are debounced and complete through
// the returned Pending. A change to a locked field is ignored and the
// Pending fails with ErrFieldLocked.
func (c *Controller) OnFieldChange(field payment.Field, value string) (Snapshot, *Pending) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := newPending()
	switch {
	case c.lockedLocked(field):
		p.finish(ErrFieldLocked)
	case field.IsGeography():
		c.changeGeographyLocked(field, value, p)
	default:
		c.input.Set(field, value)
		p.finish(nil)
	}
	return c.snapshotLocked(), p
}

func (c *Controller) changeGeographyLocked(field payment.Field, value string, p *Pending) {
	switch field {
	case payment.FieldCountry:
		c.input.Country = value
		c.cascade.ChooseCountry(value)
		s := c.cascade.State()
		c.input.State, c.input.City, c.input.Currency = s.State, s.City, s.Currency
	case payment.FieldState:
		c.input.State = value
		c.cascade.ChooseState(value)
	case payment.FieldCity:
		c.input.City = value
		c.cascade.SelectCity(value)
		p.finish(nil)
		return
	default:
		// currency is derived from the country
		p.finish(nil)
		return
	}
	c.rebindLocked()
	c.scheduleLocked(p)
}

// Submit validates the payment and hands it to the store: create when it
// has never been saved, update otherwise. Nothing reaches the store while
// any field is invalid or the current selection still has lookups due or
// in flight. On success the controller resets.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return shared.NewDomainError(shared.CodeInvalidInput, "Payment is already being saved")
	}
	if c.lookupsDue || c.inflight > 0 {
		c.mu.Unlock()
		return ErrLookupsPending
	}
	errs, _ := c.validateLocked()
	if len(errs) > 0 {
		c.mu.Unlock()
		return payment.NewValidationError(errs)
	}
	pay, err := c.input.ToPayment()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	id, epoch := c.id, c.epoch
	c.submitting = true
	c.mu.Unlock()

	c.sink.ProgressStarted()
	msg := msgSaved
	if id == uuid.Nil {
		_, err = c.store.Create(ctx, pay)
	} else {
		msg = msgUpdated
		_, err = c.store.Update(ctx, id, payment.Update{
			DueAmount: &pay.DueAmount,
			Status:    &pay.Status,
			DueDate:   &pay.DueDate,
		})
	}
	c.sink.ProgressEnded()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitting = false
	if err != nil {
		c.logger.Warn("Failed to save payment", zap.String("payment_id", id.String()), zap.Error(err))
		c.sink.Notify(Notification{Level: LevelError, Message: msgSaveFailed})
		return shared.WrapDomainError(shared.CodePersistenceFailed, "Payment could not be saved", err)
	}
	c.sink.Notify(Notification{Level: LevelInfo, Message: msg})
	if c.epoch == epoch {
		c.resetLocked()
	}
	return nil
}

// Reset discards all edits and empties the cascade
func (c *Controller) Reset() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
	return c.snapshotLocked()
}

// Close stops debounced lookups and resets the cascade, so lookups still
// in flight are discarded as stale. The controller must not be used afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *Controller) resetLocked() {
	c.epoch++
	c.lookupsDue = false
	c.debounce.StopAll()
	c.cascade.Reset()
	c.id = uuid.Nil
	c.input = payment.Input{}
	c.rebindLocked()
}

// scheduleLocked dispatches whatever the current selection needs once the
// debounce period has passed without another geography change
func (c *Controller) scheduleLocked(p *Pending) {
	if c.delay <= 0 {
		c.dispatchLocked(c.ctx, c.cascade.Requests(), p)
		p.finish(nil)
		return
	}
	epoch := c.epoch
	c.lookupsDue = true
	c.debounce.Schedule(lookupsKey, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.epoch == epoch {
			c.lookupsDue = false
			c.dispatchLocked(c.ctx, c.cascade.Requests(), p)
		}
		p.finish(nil)
	}, func() {
		p.finish(nil)
	})
}

func (c *Controller) dispatchLocked(ctx context.Context, reqs []referencedata.Request, p *Pending) {
	for _, req := range reqs {
		p.add(1)
		c.inflight++
		c.sink.ProgressStarted()
		go c.fetch(ctx, req, p)
	}
}

func (c *Controller) fetch(ctx context.Context, req referencedata.Request, p *Pending) {
	resp := c.resolver.Fetch(ctx, req)
	c.sink.ProgressEnded()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight--
	p.finish(c.applyLocked(resp, p))
}

func (c *Controller) applyLocked(resp referencedata.Response, p *Pending) error {
	follow, err := c.cascade.Apply(resp)
	switch {
	case errors.Is(err, shared.ErrStaleResponse):
		c.logger.Debug("Discarded stale reference data", zap.String("request", resp.Request.String()))
		return nil
	case err != nil:
		c.sink.Notify(Notification{
			Level:   LevelError,
			Message: fmt.Sprintf(msgLookupFailedFn, resp.Request.Kind),
		})
		return err
	}
	if resp.Request.Kind == referencedata.KindCurrency && !resp.Empty() {
		c.input.Currency = c.cascade.State().Currency
	}
	c.rebindLocked()
	c.dispatchLocked(c.ctx, follow, p)
	return nil
}

func (c *Controller) rebindLocked() {
	c.constraints = Bind(c.cascade.State())
}

func (c *Controller) violationLocked() payment.Violation {
	status := payment.StatusPending
	if c.input.Status != "" {
		st, err := payment.ParseStatus(c.input.Status)
		if err != nil {
			return payment.ViolationNone
		}
		status = st
	}
	// an unparseable date is reported by the field rules
	due, _ := valueobject.ParseDate(c.input.DueDate)
	return c.validator.Validate(status, due, c.input.EvidenceID)
}

func (c *Controller) validateLocked() (map[payment.Field]string, payment.Violation) {
	errs := c.rules.Check(c.input)
	for f, msg := range c.constraints.CheckAll(c.input) {
		if _, ok := errs[f]; !ok {
			errs[f] = msg
		}
	}
	violation := c.violationLocked()
	if !violation.OK() {
		if _, ok := errs[violation.Field()]; !ok {
			errs[violation.Field()] = violation.Message()
		}
	}
	return errs, violation
}

func (c *Controller) snapshotLocked() Snapshot {
	errs, violation := c.validateLocked()
	s := c.cascade.State()

	editable := make(map[payment.Field]bool, len(payment.AllFields))
	for _, f := range payment.AllFields {
		editable[f] = !c.lockedLocked(f) && c.constraints.Editable(f)
	}

	snap := Snapshot{
		Values:    c.input,
		Errors:    errs,
		Editable:  editable,
		Violation: violation,
		Valid:     len(errs) == 0,
		Loading:   c.inflight > 0 || c.lookupsDue,
		Countries: filterCountries(s.Countries, c.input.Country),
		States:    filterStrings(s.States, c.input.State),
		Cities:    filterStrings(s.Cities, c.input.City),
	}
	if c.id != uuid.Nil {
		snap.ID = c.id.String()
	}
	return snap
}

func filterStrings(list []string, query string) []string {
	if query == "" {
		return slices.Clone(list)
	}
	fold := cases.Fold()
	q := fold.String(query)
	out := make([]string, 0, len(list))
	for _, v := range list {
		if strings.Contains(fold.String(v), q) {
			out = append(out, v)
		}
	}
	return out
}

func filterCountries(list []geography.Country, query string) []geography.Country {
	if query == "" {
		return slices.Clone(list)
	}
	fold := cases.Fold()
	q := fold.String(query)
	out := make([]geography.Country, 0, len(list))
	for _, c := range list {
		if strings.Contains(fold.String(c.Name), q) {
			out = append(out, c)
		}
	}
	return out
}

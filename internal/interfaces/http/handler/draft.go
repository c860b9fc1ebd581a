package handler

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	paymentapp "github.com/paymentmanager/backend/internal/application/payment"
	"github.com/paymentmanager/backend/internal/application/paymentform"
	"github.com/paymentmanager/backend/internal/application/referencedata"
	"github.com/paymentmanager/backend/internal/domain/payment"
	"github.com/paymentmanager/backend/internal/domain/shared"
	"github.com/paymentmanager/backend/internal/infrastructure/logger"
	"github.com/paymentmanager/backend/internal/infrastructure/notify"
	"github.com/paymentmanager/backend/internal/interfaces/http/dto"
	"github.com/paymentmanager/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// DraftOptions configures draft sessions
type DraftOptions struct {
	TTL      time.Duration // idle time before a draft is discarded
	Capacity uint64        // most drafts kept at once; the least recently used goes first
	Debounce time.Duration
}

// draftSession is one payment editor kept between requests
type draftSession struct {
	controller *paymentform.Controller
	buffer     *notify.BufferSink
	ctx        context.Context
	cancel     context.CancelFunc
}

func (s *draftSession) close() {
	s.controller.Close()
	s.cancel()
}

// DraftHandler exposes payment editors as server-side draft sessions.
// A draft runs the country, state, city and currency cascade and the field
// checks of one payment form; submitting it creates or updates the payment.
type DraftHandler struct {
	BaseHandler
	resolver       *referencedata.Resolver
	paymentService *paymentapp.Service
	sessions       *ttlcache.Cache[string, *draftSession]
	debounce       time.Duration
	logger         *zap.Logger
}

// NewDraftHandler creates a DraftHandler and starts expiring idle drafts.
// Call Stop to discard every draft.
func NewDraftHandler(resolver *referencedata.Resolver, paymentService *paymentapp.Service, opts DraftOptions, log *zap.Logger) *DraftHandler {
	if log == nil {
		log = zap.NewNop()
	}
	cacheOpts := []ttlcache.Option[string, *draftSession]{
		ttlcache.WithTTL[string, *draftSession](opts.TTL),
	}
	if opts.Capacity > 0 {
		cacheOpts = append(cacheOpts, ttlcache.WithCapacity[string, *draftSession](opts.Capacity))
	}
	sessions := ttlcache.New(cacheOpts...)
	sessions.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *draftSession]) {
		item.Value().close()
		log.Debug("Draft closed", zap.String("draft_id", item.Key()), zap.Int("reason", int(reason)))
	})
	go sessions.Start()

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = paymentform.DefaultDebounce
	}
	return &DraftHandler{
		resolver:       resolver,
		paymentService: paymentService,
		sessions:       sessions,
		debounce:       debounce,
		logger:         log,
	}
}

// Stop discards every draft and stops the expiry goroutine
func (h *DraftHandler) Stop() {
	h.sessions.DeleteAll()
	h.sessions.Stop()
}

// Len returns the number of open drafts
func (h *DraftHandler) Len() int {
	return h.sessions.Len()
}

// Create godoc
//
//	@Summary		Open a payment draft
//	@Description	Opens an empty draft, or a draft editing the payment named by payment_id
//	@Tags			drafts
//	@Accept			json
//	@Produce		json
//	@Param			wait	query	bool	false	"Wait for the lookups the draft triggers"
//	@Router			/drafts [post]
func (h *DraftHandler) Create(c *gin.Context) {
	var req dto.CreateDraftRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.HandleValidationError(c, err)
			return
		}
	}

	var existing *payment.Payment
	if req.PaymentID != "" {
		p, err := h.paymentService.Get(c.Request.Context(), uuid.MustParse(req.PaymentID))
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				h.NotFound(c, "Payment not found")
				return
			}
			h.HandleError(c, err)
			return
		}
		existing = p
	}

	id := uuid.NewString()
	session := h.newSession(id)
	var pending *paymentform.Pending
	if existing != nil {
		pending = session.controller.Load(existing)
	} else {
		pending = session.controller.Init(session.ctx)
	}
	h.sessions.Set(id, session, ttlcache.DefaultTTL)
	h.await(c, pending)

	h.log(c, id).Info("Draft opened", zap.Bool("editing", existing != nil))
	h.Created(c, h.response(id, session, session.controller.Snapshot()))
}

// Get godoc
//
//	@Summary	Get the state of a payment draft
//	@Tags		drafts
//	@Produce	json
//	@Param		draftId	path	string	true	"Draft ID"
//	@Router		/drafts/{draftId} [get]
func (h *DraftHandler) Get(c *gin.Context) {
	id, session, ok := h.session(c)
	if !ok {
		return
	}
	h.Success(c, h.response(id, session, session.controller.Snapshot()))
}

// ChangeField godoc
//
//	@Summary		Change one field of a payment draft
//	@Description	Country and state changes trigger debounced lookups; pass wait=true to return after they complete
//	@Tags			drafts
//	@Accept			json
//	@Produce		json
//	@Param			draftId	path	string					true	"Draft ID"
//	@Param			request	body	dto.DraftFieldRequest	true	"Field and value"
//	@Param			wait	query	bool					false	"Wait for triggered lookups"
//	@Router			/drafts/{draftId} [patch]
func (h *DraftHandler) ChangeField(c *gin.Context) {
	id, session, ok := h.session(c)
	if !ok {
		return
	}

	var req dto.DraftFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	field, known := payment.ParseField(req.Field)
	if !known {
		h.ErrorWithCode(c, dto.ErrCodeInvalidInput, "Unknown field: "+req.Field)
		return
	}

	if session.controller.Locked(field) {
		h.ValidationError(c, []dto.ValidationDetail{{
			Field:   string(field),
			Message: paymentform.ErrFieldLocked.Message,
		}})
		return
	}

	snapshot, pending := session.controller.OnFieldChange(field, req.Value)
	if h.await(c, pending) {
		snapshot = session.controller.Snapshot()
	}
	h.Success(c, h.response(id, session, snapshot))
}

// Submit godoc
//
//	@Summary		Save a payment draft
//	@Description	Creates the payment, or updates the payment the draft was opened on. The draft is reset on success.
//	@Tags			drafts
//	@Produce		json
//	@Param			draftId	path	string	true	"Draft ID"
//	@Router			/drafts/{draftId}/submit [post]
func (h *DraftHandler) Submit(c *gin.Context) {
	id, session, ok := h.session(c)
	if !ok {
		return
	}

	if err := session.controller.Submit(logger.WithDraftID(c.Request.Context(), id)); err != nil {
		h.log(c, id).Info("Draft rejected", zap.Error(err))
		h.HandleError(c, err)
		return
	}

	h.log(c, id).Info("Draft submitted")
	h.Success(c, h.response(id, session, session.controller.Snapshot()))
}

// Reset godoc
//
//	@Summary	Discard the edits of a payment draft
//	@Tags		drafts
//	@Produce	json
//	@Param		draftId	path	string	true	"Draft ID"
//	@Router		/drafts/{draftId}/reset [post]
func (h *DraftHandler) Reset(c *gin.Context) {
	id, session, ok := h.session(c)
	if !ok {
		return
	}
	h.Success(c, h.response(id, session, session.controller.Reset()))
}

// Delete godoc
//
//	@Summary	Close a payment draft
//	@Tags		drafts
//	@Produce	json
//	@Param		draftId	path	string	true	"Draft ID"
//	@Router		/drafts/{draftId} [delete]
func (h *DraftHandler) Delete(c *gin.Context) {
	id := c.Param("draftId")
	item, found := h.sessions.GetAndDelete(id)
	if !found {
		h.NotFound(c, "Draft not found")
		return
	}
	item.Value().close()
	h.Success(c, dto.MessageResponse{Message: "Draft discarded"})
}

func (h *DraftHandler) newSession(id string) *draftSession {
	log := h.logger.With(zap.String("draft_id", id))
	ctx, cancel := context.WithCancel(logger.WithDraftID(logger.WithContext(context.Background(), log), id))
	buffer := notify.NewBufferSink(notify.DefaultBufferCapacity)

	controller := paymentform.NewController(h.resolver, h.paymentService,
		paymentform.WithNotificationSink(notify.Fanout{buffer, notify.NewLogSink(log)}),
		paymentform.WithDebounce(h.debounce),
		paymentform.WithLogger(log),
		paymentform.WithContext(ctx),
	)
	return &draftSession{controller: controller, buffer: buffer, ctx: ctx, cancel: cancel}
}

func (h *DraftHandler) log(c *gin.Context, id string) *logger.ContextLogger {
	return logger.WithLogger(logger.WithDraftID(c.Request.Context(), id), h.logger)
}

func (h *DraftHandler) session(c *gin.Context) (string, *draftSession, bool) {
	id := c.Param("draftId")
	item := h.sessions.Get(id)
	if item == nil {
		h.NotFound(c, "Draft not found")
		return "", nil, false
	}
	return id, item.Value(), true
}

// await blocks until pending completes when the request asks for it.
// Lookup failures reach the client as notifications.
func (h *DraftHandler) await(c *gin.Context, pending *paymentform.Pending) bool {
	if c.Query("wait") != "true" {
		return false
	}
	if err := pending.Wait(c.Request.Context()); err != nil {
		h.logger.Debug("Draft lookups finished with error", zap.Error(err))
	}
	return true
}

func (h *DraftHandler) response(id string, session *draftSession, snapshot paymentform.Snapshot) dto.DraftResponse {
	return dto.DraftResponse{
		DraftID:       id,
		State:         snapshot,
		Notifications: session.buffer.Drain(),
	}
}

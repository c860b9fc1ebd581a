package paymentform

// Level is the severity of a user notification
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Notification is a toast-style user message
type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// NotificationSink receives fire-and-forget progress and user messages.
// Implementations must not block.
type NotificationSink interface {
	ProgressStarted()
	ProgressEnded()
	Notify(n Notification)
}

type nopSink struct{}

func (nopSink) ProgressStarted()      {}
func (nopSink) ProgressEnded()        {}
func (nopSink) Notify(_ Notification) {}

const (
	msgSaved          = "Payment is saved"
	msgUpdated        = "Payment is updated."
	msgSaveFailed     = "Payment could not be saved. Please try again."
	msgLookupFailedFn = "Could not load %s. Please try again."
)

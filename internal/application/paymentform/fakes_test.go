package paymentform

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/paymentmanager/backend/internal/domain/geography"
	"github.com/paymentmanager/backend/internal/domain/payment"
	"github.com/stretchr/testify/mock"
)

// fakeSource serves fixed geography data. Lookups for a country listed in
// gates block until its channel is closed.
type fakeSource struct {
	mu        sync.Mutex
	countries []geography.Country
	states    map[string][]string
	cities    map[string][]string
	currency  map[string]string
	gates     map[string]chan struct{}
	failing   map[string]bool
	calls     []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		countries: []geography.Country{
			{Name: "India", ISO2: "IN"},
			{Name: "France", ISO2: "FR"},
			{Name: "Monaco", ISO2: "MC"},
		},
		states: map[string][]string{
			"India":  {"Goa", "Kerala"},
			"France": {"Bretagne", "Normandie"},
		},
		cities: map[string][]string{
			"India":           {"Mumbai", "Panaji", "Kochi"},
			"India|Goa":       {"Panaji"},
			"India|Kerala":    {"Kochi"},
			"France":          {"Rennes", "Rouen"},
			"France|Bretagne": {"Rennes"},
			"Monaco":          {"Monaco"},
		},
		currency: map[string]string{"India": "INR", "France": "EUR", "Monaco": "EUR"},
		gates:    map[string]chan struct{}{},
		failing:  map[string]bool{},
	}
}

func (f *fakeSource) record(call, country string) error {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	gate := f.gates[call]
	fail := f.failing[call]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if fail {
		return errors.New("upstream timeout")
	}
	return nil
}

func (f *fakeSource) gate(call string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[call] = ch
	return ch
}

func (f *fakeSource) fail(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[call] = true
}

func (f *fakeSource) heal(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.failing, call)
}

func (f *fakeSource) count(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeSource) ListCountries(_ context.Context) ([]geography.Country, error) {
	if err := f.record("countries", ""); err != nil {
		return nil, err
	}
	return f.countries, nil
}

func (f *fakeSource) ListStates(_ context.Context, country string) ([]string, error) {
	if err := f.record("states:"+country, country); err != nil {
		return nil, err
	}
	return f.states[country], nil
}

func (f *fakeSource) ListCities(_ context.Context, country string) ([]string, error) {
	if err := f.record("cities:"+country, country); err != nil {
		return nil, err
	}
	return f.cities[country], nil
}

func (f *fakeSource) ListCitiesForState(_ context.Context, country, state string) ([]string, error) {
	if err := f.record("cities:"+country+"|"+state, country); err != nil {
		return nil, err
	}
	return f.cities[country+"|"+state], nil
}

func (f *fakeSource) GetCurrency(_ context.Context, country string) (string, error) {
	if err := f.record("currency:"+country, country); err != nil {
		return "", err
	}
	return f.currency[country], nil
}

// MockStore is a mock implementation of payment.Store
type MockStore struct {
	mock.Mock
}

var _ payment.Store = (*MockStore)(nil)

func (m *MockStore) Create(ctx context.Context, p *payment.Payment) (*payment.Payment, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Payment), args.Error(1)
}

func (m *MockStore) Update(ctx context.Context, id uuid.UUID, u payment.Update) (*payment.Payment, error) {
	args := m.Called(ctx, id, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Payment), args.Error(1)
}

func (m *MockStore) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStore) List(ctx context.Context, q payment.ListQuery) (*payment.Page, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Page), args.Error(1)
}

func (m *MockStore) UploadEvidence(ctx context.Context, id uuid.UUID, file payment.EvidenceUpload) (*payment.EvidenceRef, error) {
	args := m.Called(ctx, id, file)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.EvidenceRef), args.Error(1)
}

func (m *MockStore) DownloadEvidence(ctx context.Context, evidenceID string) (*payment.EvidenceFile, error) {
	args := m.Called(ctx, evidenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.EvidenceFile), args.Error(1)
}

// recordingSink keeps every notification
type recordingSink struct {
	mu            sync.Mutex
	started       int
	ended         int
	notifications []Notification
}

func (r *recordingSink) ProgressStarted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *recordingSink) ProgressEnded() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ended++
}

func (r *recordingSink) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, n)
}

func (r *recordingSink) all() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.notifications...)
}

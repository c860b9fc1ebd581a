package referencedata

import (
	"slices"

	"github.com/paymentmanager/backend/internal/domain/geography"
	"github.com/paymentmanager/backend/internal/domain/shared"
)

// State is the cascade working set: the current selections and the lists
// resolved for them.
type State struct {
	Country  string
	State    string
	City     string
	Currency string

	Countries []geography.Country
	States    []string
	Cities    []string

	// CitiesKey is the lookup the Cities list was resolved for
	CitiesKey geography.Key
}

// CountryValid reports whether the selected country is in the country list
func (s State) CountryValid() bool {
	return slices.ContainsFunc(s.Countries, func(c geography.Country) bool {
		return c.Name == s.Country
	})
}

// StateValid reports whether the selected state is in the states list
func (s State) StateValid() bool {
	return s.State != "" && geography.Contains(s.States, s.State)
}

// CityValid reports whether the selected city is in the cities list
func (s State) CityValid() bool {
	return geography.Contains(s.Cities, s.City)
}

// CitiesScope returns the lookup the cities list must come from for the
// current selection: state-scoped when the state is valid, else country-scoped.
func (s State) CitiesScope() geography.Key {
	if s.StateValid() {
		return geography.StateKey(s.Country, s.State)
	}
	return geography.CountryKey(s.Country)
}

// Cascade drives the country, state, city and currency dependencies. It
// performs no I/O and no locking: selection methods return the Requests to
// resolve, and their Responses are handed back through Apply. Callers must
// serialize all calls.
type Cascade struct {
	state State

	// country whose dependent lists were last requested
	requestedFor string
	// cities lookup currently in flight
	pendingCities *geography.Key
}

// NewCascade creates an empty cascade
func NewCascade() *Cascade {
	return &Cascade{}
}

// State returns a copy of the working set
func (c *Cascade) State() State {
	s := c.state
	s.Countries = slices.Clone(s.Countries)
	s.States = slices.Clone(s.States)
	s.Cities = slices.Clone(s.Cities)
	return s
}

// Init returns the request for the country list unless it is already known
func (c *Cascade) Init() []Request {
	if len(c.state.Countries) > 0 {
		return nil
	}
	return []Request{{Kind: KindCountries}}
}

// Reset clears every selection and dependent list. The country list is kept.
func (c *Cascade) Reset() {
	c.state = State{Countries: c.state.Countries}
	c.requestedFor = ""
	c.pendingCities = nil
}

// ChooseCountry changes the country without issuing lookups. State, city
// and currency selections are unset and the previous country's lists
// dropped. Requests returns what the new selection needs.
func (c *Cascade) ChooseCountry(country string) {
	if country == c.state.Country {
		return
	}
	c.state = State{
		Country:   country,
		Countries: c.state.Countries,
	}
	c.requestedFor = ""
	c.pendingCities = nil
}

// SelectCountry is ChooseCountry followed by Requests: a valid country
// requests its states, country-scoped cities and currency.
func (c *Cascade) SelectCountry(country string) []Request {
	c.ChooseCountry(country)
	return c.Requests()
}

// ChooseState changes the state without issuing lookups. The city
// selection is kept.
func (c *Cascade) ChooseState(state string) {
	c.state.State = state
}

// SelectState changes the state. The city selection is kept and re-checked
// against the list resolved for the new scope.
func (c *Cascade) SelectState(state string) []Request {
	c.ChooseState(state)
	return c.citiesRequest()
}

// Requests returns the lookups the current selection still lacks. Lookups
// already issued and not failed are not repeated.
func (c *Cascade) Requests() []Request {
	return append(c.countryRequests(), c.citiesRequest()...)
}

// SelectCity changes the city
func (c *Cascade) SelectCity(city string) {
	c.state.City = city
}

// Restore sets all selections at once, as when editing a stored payment,
// and returns whatever lookups the restored selection needs.
func (c *Cascade) Restore(country, state, city, currency string) []Request {
	c.state = State{
		Country:   country,
		State:     state,
		City:      city,
		Currency:  currency,
		Countries: c.state.Countries,
	}
	c.requestedFor = ""
	c.pendingCities = nil
	return append(c.Init(), c.Requests()...)
}

// Apply folds a response into the working set. A response whose key no
// longer matches the current selection is dropped with ErrStaleResponse.
// A failed response leaves the lists unchanged and returns its error; the
// failed lookup is issued again by the next Requests.
// An empty response leaves the previous list and selection unchanged.
// Apply may return follow-up requests made necessary by the new data.
func (c *Cascade) Apply(resp Response) ([]Request, error) {
	req := resp.Request
	if c.isStale(req) {
		return nil, shared.ErrStaleResponse
	}
	if req.Kind == KindCities {
		c.pendingCities = nil
	}
	if resp.Err != nil {
		if req.Kind == KindStates || req.Kind == KindCurrency {
			c.requestedFor = ""
		}
		return nil, resp.Err
	}
	if resp.Empty() {
		return nil, nil
	}

	switch req.Kind {
	case KindCountries:
		c.state.Countries = resp.Countries
		return c.countryRequests(), nil
	case KindStates:
		c.state.States = resp.Values
		return c.citiesRequest(), nil
	case KindCities:
		c.state.Cities = resp.Values
		c.state.CitiesKey = req.Key
	case KindCurrency:
		c.state.Currency = resp.Currency
	}
	return nil, nil
}

func (c *Cascade) isStale(req Request) bool {
	switch req.Kind {
	case KindCountries:
		return false
	case KindCities:
		return req.Key != c.state.CitiesScope()
	default:
		return req.Key.Country != c.state.Country
	}
}

// countryRequests issues the dependent lookups of a valid country once
func (c *Cascade) countryRequests() []Request {
	if !c.state.CountryValid() || c.requestedFor == c.state.Country {
		return nil
	}
	c.requestedFor = c.state.Country
	key := geography.CountryKey(c.state.Country)
	reqs := []Request{
		{Kind: KindStates, Key: key},
		{Kind: KindCurrency, Key: key},
	}
	return append(reqs, c.citiesRequest()...)
}

// citiesRequest issues a cities lookup when the current scope differs from
// the one the list was resolved for and none is in flight for it
func (c *Cascade) citiesRequest() []Request {
	if !c.state.CountryValid() {
		return nil
	}
	scope := c.state.CitiesScope()
	if len(c.state.Cities) > 0 && c.state.CitiesKey == scope {
		return nil
	}
	if c.pendingCities != nil && *c.pendingCities == scope {
		return nil
	}
	c.pendingCities = &scope
	return []Request{{Kind: KindCities, Key: scope}}
}

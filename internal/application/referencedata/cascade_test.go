package referencedata

import (
	"errors"
	"testing"

	"github.com/paymentmanager/backend/internal/domain/geography"
	"github.com/paymentmanager/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCountries = []geography.Country{
	{Name: "India", ISO2: "IN"},
	{Name: "France", ISO2: "FR"},
}

func countriesLoaded(t *testing.T) *Cascade {
	t.Helper()
	c := NewCascade()
	reqs := c.Init()
	require.Equal(t, []Request{{Kind: KindCountries}}, reqs)
	follow, err := c.Apply(Response{Request: reqs[0], Countries: testCountries})
	require.NoError(t, err)
	assert.Empty(t, follow)
	assert.Empty(t, c.Init())
	return c
}

func statesReq(country string) Request {
	return Request{Kind: KindStates, Key: geography.CountryKey(country)}
}

func citiesReq(country, state string) Request {
	return Request{Kind: KindCities, Key: geography.StateKey(country, state)}
}

func currencyReq(country string) Request {
	return Request{Kind: KindCurrency, Key: geography.CountryKey(country)}
}

func TestCascade_SelectValidCountry(t *testing.T) {
	c := countriesLoaded(t)

	reqs := c.SelectCountry("India")
	assert.ElementsMatch(t, []Request{statesReq("India"), currencyReq("India"), citiesReq("India", "")}, reqs)

	_, err := c.Apply(Response{Request: statesReq("India"), Values: []string{"Goa", "Kerala"}})
	require.NoError(t, err)
	_, err = c.Apply(Response{Request: citiesReq("India", ""), Values: []string{"Mumbai", "Panaji"}})
	require.NoError(t, err)
	_, err = c.Apply(Response{Request: currencyReq("India"), Currency: "INR"})
	require.NoError(t, err)

	s := c.State()
	assert.True(t, s.CountryValid())
	assert.Equal(t, []string{"Goa", "Kerala"}, s.States)
	assert.Equal(t, []string{"Mumbai", "Panaji"}, s.Cities)
	assert.Equal(t, "INR", s.Currency)
	assert.Equal(t, geography.CountryKey("India"), s.CitiesKey)

	// Same country again issues nothing
	assert.Empty(t, c.SelectCountry("India"))
}

func TestCascade_InvalidCountryClearsEverything(t *testing.T) {
	c := countriesLoaded(t)
	c.SelectCountry("India")
	_, _ = c.Apply(Response{Request: statesReq("India"), Values: []string{"Goa"}})
	c.SelectState("Goa")
	c.SelectCity("Panaji")

	reqs := c.SelectCountry("Indi")
	assert.Empty(t, reqs)

	s := c.State()
	assert.False(t, s.CountryValid())
	assert.Empty(t, s.State)
	assert.Empty(t, s.City)
	assert.Empty(t, s.Currency)
	assert.Empty(t, s.States)
	assert.Empty(t, s.Cities)
	assert.Len(t, s.Countries, 2)
}

func TestCascade_CountryChangeDropsPreviousLists(t *testing.T) {
	c := countriesLoaded(t)
	c.SelectCountry("India")
	_, _ = c.Apply(Response{Request: statesReq("India"), Values: []string{"Goa"}})
	_, _ = c.Apply(Response{Request: citiesReq("India", ""), Values: []string{"Panaji"}})
	c.SelectState("Goa")

	c.SelectCountry("France")
	s := c.State()
	assert.Empty(t, s.States)
	assert.Empty(t, s.Cities)
	assert.Empty(t, s.State)
}

func TestCascade_StaleStatesDiscarded(t *testing.T) {
	c := countriesLoaded(t)
	first := c.SelectCountry("India")
	second := c.SelectCountry("France")
	assert.Contains(t, first, statesReq("India"))
	assert.Contains(t, second, statesReq("France"))

	_, err := c.Apply(Response{Request: statesReq("France"), Values: []string{"Bretagne", "Normandie"}})
	require.NoError(t, err)

	// India's response arrives after France was selected
	_, err = c.Apply(Response{Request: statesReq("India"), Values: []string{"Goa", "Kerala"}})
	assert.True(t, errors.Is(err, shared.ErrStaleResponse))

	_, err = c.Apply(Response{Request: currencyReq("India"), Currency: "INR"})
	assert.True(t, errors.Is(err, shared.ErrStaleResponse))

	s := c.State()
	assert.Equal(t, "France", s.Country)
	assert.Equal(t, []string{"Bretagne", "Normandie"}, s.States)
	assert.Empty(t, s.Currency)
}

func TestCascade_StateChangeRescopesCities(t *testing.T) {
	c := countriesLoaded(t)
	c.SelectCountry("India")
	_, _ = c.Apply(Response{Request: statesReq("India"), Values: []string{"Goa", "Kerala"}})
	_, _ = c.Apply(Response{Request: citiesReq("India", ""), Values: []string{"Mumbai", "Panaji", "Kochi"}})

	reqs := c.SelectState("Goa")
	assert.Equal(t, []Request{citiesReq("India", "Goa")}, reqs)
	_, err := c.Apply(Response{Request: citiesReq("India", "Goa"), Values: []string{"Panaji"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Panaji"}, c.State().Cities)

	// Clearing the state falls back to the country-scoped list
	reqs = c.SelectState("")
	assert.Equal(t, []Request{citiesReq("India", "")}, reqs)
	_, err = c.Apply(Response{Request: citiesReq("India", ""), Values: []string{"Mumbai", "Panaji", "Kochi"}})
	require.NoError(t, err)
	s := c.State()
	assert.Equal(t, []string{"Mumbai", "Panaji", "Kochi"}, s.Cities)
	assert.Equal(t, geography.CountryKey("India"), s.CitiesKey)

	// A late state-scoped response for the cleared state is stale
	_, err = c.Apply(Response{Request: citiesReq("India", "Goa"), Values: []string{"Panaji"}})
	assert.True(t, errors.Is(err, shared.ErrStaleResponse))
}

func TestCascade_InvalidStateUsesCountryScope(t *testing.T) {
	c := countriesLoaded(t)
	c.SelectCountry("India")
	_, _ = c.Apply(Response{Request: statesReq("India"), Values: []string{"Goa"}})
	_, _ = c.Apply(Response{Request: citiesReq("India", ""), Values: []string{"Panaji"}})

	assert.Empty(t, c.SelectState("Go"))
	assert.Equal(t, geography.CountryKey("India"), c.State().CitiesScope())
}

func TestCascade_EmptyResultKeepsPreviousList(t *testing.T) {
	c := countriesLoaded(t)
	c.SelectCountry("India")
	_, _ = c.Apply(Response{Request: statesReq("India"), Values: []string{"Goa", "Ladakh"}})
	_, _ = c.Apply(Response{Request: citiesReq("India", ""), Values: []string{"Panaji", "Leh"}})
	c.SelectCity("Leh")

	c.SelectState("Ladakh")
	_, err := c.Apply(Response{Request: citiesReq("India", "Ladakh"), Values: nil})
	require.NoError(t, err)

	s := c.State()
	assert.Equal(t, []string{"Panaji", "Leh"}, s.Cities)
	assert.Equal(t, "Leh", s.City)
	assert.True(t, s.CityValid())
}

func TestCascade_FailedResponseLeavesState(t *testing.T) {
	c := countriesLoaded(t)
	c.SelectCountry("India")
	_, _ = c.Apply(Response{Request: statesReq("India"), Values: []string{"Goa"}})

	failure := shared.WrapDomainError(shared.CodeDataSourceUnavailable, "Failed to load cities", errors.New("timeout"))
	_, err := c.Apply(Response{Request: citiesReq("India", ""), Err: failure})
	assert.True(t, errors.Is(err, shared.ErrDataSourceUnavailable))
	assert.Equal(t, []string{"Goa"}, c.State().States)

	// The failed lookup is no longer pending, so it can be issued again
	assert.Equal(t, []Request{citiesReq("India", "")}, c.SelectState(""))
}

func TestCascade_FailedCountryLookupIsRetried(t *testing.T) {
	failure := shared.WrapDomainError(shared.CodeDataSourceUnavailable, "Failed to load states", errors.New("timeout"))

	for _, failed := range []Request{statesReq("India"), currencyReq("India")} {
		t.Run(failed.Kind.String(), func(t *testing.T) {
			c := countriesLoaded(t)
			c.SelectCountry("India")

			_, err := c.Apply(Response{Request: failed, Err: failure})
			require.ErrorIs(t, err, shared.ErrDataSourceUnavailable)

			// Re-selecting the same country asks again
			reqs := c.SelectCountry("India")
			assert.Contains(t, reqs, statesReq("India"))
			assert.Contains(t, reqs, currencyReq("India"))
		})
	}
}

func TestCascade_ChooseDefersRequests(t *testing.T) {
	c := countriesLoaded(t)
	c.SelectCountry("India")
	_, _ = c.Apply(Response{Request: statesReq("India"), Values: []string{"Goa"}})
	_, _ = c.Apply(Response{Request: currencyReq("India"), Currency: "INR"})
	c.SelectState("Goa")
	c.SelectCity("Panaji")

	c.ChooseCountry("France")

	s := c.State()
	assert.Equal(t, "France", s.Country)
	assert.Empty(t, s.State)
	assert.Empty(t, s.City)
	assert.Empty(t, s.Currency)
	assert.Empty(t, s.States)
	assert.Empty(t, s.Cities)

	assert.ElementsMatch(t, []Request{statesReq("France"), currencyReq("France"), citiesReq("France", "")}, c.Requests())
	assert.Empty(t, c.Requests(), "issued lookups are not repeated")
}

func TestCascade_StatesArrivingValidateTypedState(t *testing.T) {
	c := countriesLoaded(t)
	c.SelectCountry("India")
	// State typed before its list arrived: still country-scoped
	assert.Empty(t, c.SelectState("Goa"))

	follow, err := c.Apply(Response{Request: statesReq("India"), Values: []string{"Goa"}})
	require.NoError(t, err)
	assert.Equal(t, []Request{citiesReq("India", "Goa")}, follow)

	// The country-scoped response that was in flight is now stale
	_, err = c.Apply(Response{Request: citiesReq("India", ""), Values: []string{"Mumbai"}})
	assert.True(t, errors.Is(err, shared.ErrStaleResponse))
}

func TestCascade_Restore(t *testing.T) {
	c := NewCascade()
	reqs := c.Restore("India", "Goa", "Panaji", "INR")
	assert.Equal(t, []Request{{Kind: KindCountries}}, reqs)

	follow, err := c.Apply(Response{Request: reqs[0], Countries: testCountries})
	require.NoError(t, err)
	assert.ElementsMatch(t, []Request{statesReq("India"), currencyReq("India"), citiesReq("India", "")}, follow)

	s := c.State()
	assert.Equal(t, "Goa", s.State)
	assert.Equal(t, "Panaji", s.City)
	assert.Equal(t, "INR", s.Currency)
}

func TestCascade_Reset(t *testing.T) {
	c := countriesLoaded(t)
	c.SelectCountry("India")
	c.Reset()

	s := c.State()
	assert.Empty(t, s.Country)
	assert.Empty(t, s.States)
	assert.Len(t, s.Countries, 2)
}

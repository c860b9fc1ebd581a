package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/paymentmanager/backend/internal/application/referencedata"
	"github.com/paymentmanager/backend/internal/interfaces/http/dto"
)

// GeographyHandler serves the cached country, state, city and currency lists
type GeographyHandler struct {
	BaseHandler
	resolver *referencedata.Resolver
}

// NewGeographyHandler creates a new GeographyHandler
func NewGeographyHandler(resolver *referencedata.Resolver) *GeographyHandler {
	return &GeographyHandler{resolver: resolver}
}

// ListCountries godoc
//
//	@Summary	List countries
//	@Tags		geography
//	@Produce	json
//	@Router		/geo/countries [get]
func (h *GeographyHandler) ListCountries(c *gin.Context) {
	countries, err := h.resolver.ResolveCountries(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, countries)
}

// ListStates godoc
//
//	@Summary	List the states of a country
//	@Tags		geography
//	@Produce	json
//	@Param		country	path	string	true	"Country name"
//	@Router		/geo/countries/{country}/states [get]
func (h *GeographyHandler) ListStates(c *gin.Context) {
	country, ok := h.country(c)
	if !ok {
		return
	}

	states, err := h.resolver.ResolveStates(c.Request.Context(), country)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.StatesResponse{Country: country, States: states})
}

// ListCities godoc
//
//	@Summary	List the cities of a country, or of one of its states
//	@Tags		geography
//	@Produce	json
//	@Param		country	path	string	true	"Country name"
//	@Param		state	query	string	false	"State name"
//	@Router		/geo/countries/{country}/cities [get]
func (h *GeographyHandler) ListCities(c *gin.Context) {
	country, ok := h.country(c)
	if !ok {
		return
	}
	state := strings.TrimSpace(c.Query("state"))

	cities, err := h.resolver.ResolveCities(c.Request.Context(), country, state)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.CitiesResponse{Country: country, State: state, Cities: cities})
}

// GetCurrency godoc
//
//	@Summary	Get the currency of a country
//	@Tags		geography
//	@Produce	json
//	@Param		country	path	string	true	"Country name"
//	@Router		/geo/countries/{country}/currency [get]
func (h *GeographyHandler) GetCurrency(c *gin.Context) {
	country, ok := h.country(c)
	if !ok {
		return
	}

	currency, err := h.resolver.ResolveCurrency(c.Request.Context(), country)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.CurrencyResponse{Country: country, Currency: currency})
}

func (h *GeographyHandler) country(c *gin.Context) (string, bool) {
	country := strings.TrimSpace(c.Param("country"))
	if country == "" {
		h.ErrorWithCode(c, dto.ErrCodeInvalidInput, "Country is required")
		return "", false
	}
	return country, true
}

package dto

// StatesResponse lists the states of a country
type StatesResponse struct {
	Country string   `json:"country"`
	States  []string `json:"states"`
}

// CitiesResponse lists the cities of a country, or of one of its states
type CitiesResponse struct {
	Country string   `json:"country"`
	State   string   `json:"state,omitempty"`
	Cities  []string `json:"cities"`
}

// CurrencyResponse names the currency used by a country
type CurrencyResponse struct {
	Country  string `json:"country"`
	Currency string `json:"currency"`
}

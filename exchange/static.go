package exchange

// staticRates is the last-resort fallback table used when no provider is
// reachable and no cached row exists. Rates are pegged to the reference
// currency and intentionally coarse.
var staticRates = map[string]float64{
	"CAD": 1.0,
	"USD": 0.74,
	"EUR": 0.64,
	"GBP": 0.55,
	"AUD": 1.07,
	"NZD": 1.17,
	"JPY": 105.0,
	"CNY": 5.21,
	"INR": 61.5,
	"BRL": 3.91,
	"MXN": 12.5,
	"NOK": 7.74,
	"SEK": 7.65,
	"DKK": 4.77,
	"CHF": 0.65,
	"PLN": 2.88,
	"ZAR": 13.4,
}

package exchange

import "github.com/prometheus/client_golang/prometheus"

var (
	rateLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_rate_lookups_total",
			Help: "Total number of exchange rate lookups by result source",
		},
		[]string{"source"},
	)

	providerFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_rate_provider_fetches_total",
			Help: "Total number of provider fetch attempts by outcome",
		},
		[]string{"provider", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(rateLookupsTotal)
	prometheus.MustRegister(providerFetchesTotal)
}

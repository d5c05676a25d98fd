package stripe

import "github.com/prometheus/client_golang/prometheus"

var (
	intentsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_payment_intents_created_total",
			Help: "Total number of payment intents created",
		},
	)

	ordersProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_orders_processed_total",
			Help: "Total number of order process attempts by outcome",
		},
		[]string{"outcome"},
	)

	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_stripe_webhook_events_total",
			Help: "Total number of Stripe webhook events received by type",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(intentsCreatedTotal)
	prometheus.MustRegister(ordersProcessedTotal)
	prometheus.MustRegister(webhookEventsTotal)
}

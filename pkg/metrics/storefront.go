package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Storefront groups the collectors for cart, coupon, checkout and chat activity.
// Every method is safe on a nil receiver.
type Storefront struct {
	cartMutations  *prometheus.CounterVec
	persistFailure *prometheus.CounterVec
	coupons        *prometheus.CounterVec
	checkouts      *prometheus.CounterVec
	activeCarts    prometheus.Gauge
	chatMessages   *prometheus.CounterVec
}

// NewStorefront registers the storefront collectors on reg.
func NewStorefront(reg prometheus.Registerer) *Storefront {
	if reg == nil {
		return &Storefront{}
	}
	s := &Storefront{
		cartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Cart mutations by operation and result.",
		}, []string{"op", "result"}),
		persistFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_persist_failures_total",
			Help:      "Cart snapshot save/load failures.",
		}, []string{"op"}),
		coupons: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_applications_total",
			Help:      "Coupon application attempts by result code.",
		}, []string{"result"}),
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_outcomes_total",
			Help:      "Terminal checkout outcomes by payment method.",
		}, []string{"method", "status"}),
		activeCarts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cart_sessions_active",
			Help:      "Cart sessions currently held in memory.",
		}),
		chatMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_messages_total",
			Help:      "Live chat messages by sender.",
		}, []string{"sender"}),
	}
	reg.MustRegister(s.cartMutations, s.persistFailure, s.coupons, s.checkouts, s.activeCarts, s.chatMessages)
	return s
}

// CartMutation counts one cart operation.
func (s *Storefront) CartMutation(op string, err error) {
	if s == nil || s.cartMutations == nil {
		return
	}
	s.cartMutations.WithLabelValues(normalizeLabel(op), resultLabel(err)).Inc()
}

// PersistFailure counts a failed snapshot save or load.
func (s *Storefront) PersistFailure(op string) {
	if s == nil || s.persistFailure == nil {
		return
	}
	s.persistFailure.WithLabelValues(normalizeLabel(op)).Inc()
}

// CouponResult counts an applyCoupon attempt. result is "applied" or an error code.
func (s *Storefront) CouponResult(result string) {
	if s == nil || s.coupons == nil {
		return
	}
	s.coupons.WithLabelValues(normalizeLabel(result)).Inc()
}

// CheckoutOutcome counts a terminal checkout outcome.
func (s *Storefront) CheckoutOutcome(method, status string) {
	if s == nil || s.checkouts == nil {
		return
	}
	s.checkouts.WithLabelValues(normalizeLabel(method), normalizeLabel(status)).Inc()
}

// SetActiveCarts publishes the number of in-memory cart sessions.
func (s *Storefront) SetActiveCarts(n int) {
	if s == nil || s.activeCarts == nil {
		return
	}
	s.activeCarts.Set(float64(n))
}

// ChatMessage counts a chat message.
func (s *Storefront) ChatMessage(sender string) {
	if s == nil || s.chatMessages == nil {
		return
	}
	s.chatMessages.WithLabelValues(normalizeLabel(sender)).Inc()
}

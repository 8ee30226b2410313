package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Checkout calculation outcomes recorded in CheckoutCalculationsTotal.
const (
	CheckoutResultOK           = "ok"
	CheckoutResultInvalidPromo = "invalid_promo"
	CheckoutResultInvalidInput = "invalid_input"
	CheckoutResultError        = "error"
)

// DomainMetrics groups the catalog and checkout collectors.
type DomainMetrics struct {
	// CheckoutCalculationsTotal counts checkout calculations by outcome.
	CheckoutCalculationsTotal *prometheus.CounterVec
	// CheckoutPromoAppliedTotal counts successful calculations per configured promo code.
	CheckoutPromoAppliedTotal *prometheus.CounterVec
	// CheckoutBasketItems observes the number of line items per calculation.
	CheckoutBasketItems prometheus.Histogram
	// BookCacheRequestsTotal counts book cache lookups by result (hit, miss, error).
	BookCacheRequestsTotal *prometheus.CounterVec
}

var (
	domainOnce    sync.Once
	domainMetrics *DomainMetrics
)

// MustRegisterDomainMetrics initialises the process-wide domain collectors once and
// returns them. Later calls return the same instance.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) *DomainMetrics {
	domainOnce.Do(func() {
		domainMetrics = NewDomainMetrics(namespace, reg)
	})
	return domainMetrics
}

// NewDomainMetrics creates and registers a fresh set of domain collectors. Collectors
// already present on reg are reused.
func NewDomainMetrics(namespace string, reg prometheus.Registerer) *DomainMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &DomainMetrics{
		CheckoutCalculationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_calculations_total",
			Help:      "Count of checkout price calculations by outcome.",
		}, []string{"result"}),
		CheckoutPromoAppliedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_promo_applied_total",
			Help:      "Count of successful checkout calculations per promo code.",
		}, []string{"code"}),
		CheckoutBasketItems: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checkout_basket_items",
			Help:      "Number of line items per checkout calculation.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100},
		}),
		BookCacheRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "book_cache_requests_total",
			Help:      "Count of book cache lookups by result.",
		}, []string{"result"}),
	}

	mustRegisterCollector(reg, m.CheckoutCalculationsTotal, func(existing prometheus.Collector) {
		if v, ok := existing.(*prometheus.CounterVec); ok {
			m.CheckoutCalculationsTotal = v
		}
	})
	mustRegisterCollector(reg, m.CheckoutPromoAppliedTotal, func(existing prometheus.Collector) {
		if v, ok := existing.(*prometheus.CounterVec); ok {
			m.CheckoutPromoAppliedTotal = v
		}
	})
	mustRegisterCollector(reg, m.CheckoutBasketItems, func(existing prometheus.Collector) {
		if v, ok := existing.(prometheus.Histogram); ok {
			m.CheckoutBasketItems = v
		}
	})
	mustRegisterCollector(reg, m.BookCacheRequestsTotal, func(existing prometheus.Collector) {
		if v, ok := existing.(*prometheus.CounterVec); ok {
			m.BookCacheRequestsTotal = v
		}
	})
	return m
}

// ObserveCheckout records a calculation outcome. A nil receiver is a no-op.
func (m *DomainMetrics) ObserveCheckout(result string, items int) {
	if m == nil {
		return
	}
	m.CheckoutCalculationsTotal.WithLabelValues(result).Inc()
	m.CheckoutBasketItems.Observe(float64(items))
}

// ObservePromoApplied records a successful calculation that used code.
func (m *DomainMetrics) ObservePromoApplied(code string) {
	if m == nil || code == "" {
		return
	}
	m.CheckoutPromoAppliedTotal.WithLabelValues(code).Inc()
}

// ObserveBookCache records a cache lookup result.
func (m *DomainMetrics) ObserveBookCache(result string) {
	if m == nil {
		return
	}
	m.BookCacheRequestsTotal.WithLabelValues(result).Inc()
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}

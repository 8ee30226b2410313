package obs_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-books/internal/obs"
)

func TestDomainMetricsObserve(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := obs.NewDomainMetrics("books", registry)

	m.ObserveCheckout(obs.CheckoutResultOK, 3)
	m.ObserveCheckout(obs.CheckoutResultInvalidPromo, 1)
	m.ObservePromoApplied("code1")
	m.ObservePromoApplied("")
	m.ObserveBookCache("hit")

	require.Equal(t, 1.0, testutil.ToFloat64(m.CheckoutCalculationsTotal.WithLabelValues(obs.CheckoutResultOK)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.CheckoutCalculationsTotal.WithLabelValues(obs.CheckoutResultInvalidPromo)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.CheckoutPromoAppliedTotal.WithLabelValues("code1")))
	require.Equal(t, 1, testutil.CollectAndCount(m.CheckoutPromoAppliedTotal))
	require.Equal(t, 1.0, testutil.ToFloat64(m.BookCacheRequestsTotal.WithLabelValues("hit")))

	again := obs.NewDomainMetrics("books", registry)
	again.ObserveCheckout(obs.CheckoutResultOK, 1)
	require.Equal(t, 2.0, testutil.ToFloat64(m.CheckoutCalculationsTotal.WithLabelValues(obs.CheckoutResultOK)))
}

func TestNilDomainMetricsIsNoop(t *testing.T) {
	var m *obs.DomainMetrics
	m.ObserveCheckout(obs.CheckoutResultOK, 1)
	m.ObservePromoApplied("code1")
	m.ObserveBookCache("miss")
}

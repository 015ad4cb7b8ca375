package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tokensIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_tokens_issued_total",
		Help: "Magic-link tokens issued, by delivery channel.",
	}, []string{"channel"})

	tokensVerified = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_tokens_verified_total",
		Help: "Magic-link verification attempts, by outcome.",
	}, []string{"result"})

	guardRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_guard_rejections_total",
		Help: "Protected requests rejected by the access guard, by reason.",
	}, []string{"reason"})
)

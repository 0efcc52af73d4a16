package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var (
	// LoginStartedTotal counts login attempts that reached the provider
	// redirect, labelled by provider id.
	LoginStartedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loginbroker_logins_started_total",
		Help: "Total number of login attempts redirected to a provider.",
	}, []string{"provider"})

	// LoginCompletedTotal counts callbacks that ended in a session.
	LoginCompletedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loginbroker_logins_completed_total",
		Help: "Total number of login attempts that issued a session.",
	}, []string{"provider"})

	// LoginFailedTotal counts failed attempts, labelled by provider id and
	// the failure kind from the error taxonomy.
	LoginFailedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loginbroker_logins_failed_total",
		Help: "Total number of failed login attempts.",
	}, []string{"provider", "kind"})

	// AccountsCreatedTotal counts first-time logins that created an account.
	AccountsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "loginbroker_accounts_created_total",
		Help: "Total number of accounts created from first-time logins.",
	})
)

// Register registers the broker metrics on the given registerer. It should
// be called once at application startup.
func Register(reg prometheus.Registerer) {
	if reg == nil {
		log.Error().Msg("Prometheus registry is nil, cannot register broker metrics")
		return
	}
	for _, c := range []prometheus.Collector{
		LoginStartedTotal,
		LoginCompletedTotal,
		LoginFailedTotal,
		AccountsCreatedTotal,
	} {
		if err := reg.Register(c); err != nil {
			log.Warn().Err(err).Msg("Failed to register broker metric")
		}
	}
}

package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Register adds every libcash collector to reg. Collectors already
// registered are skipped, so Register may be called more than once.
func Register(reg prometheus.Registerer, logger zerolog.Logger) {
	registerIfNotExists(reg, txBuiltTotal, "tx_built_total", logger)
	registerIfNotExists(reg, broadcastTotal, "broadcast_total", logger)
	registerIfNotExists(reg, feeRounds, "fee_rounds", logger)
	registerIfNotExists(reg, selectionFailuresTotal, "selection_failures_total", logger)
	registerIfNotExists(reg, watchActiveSubscriptions, "watch_active_subscriptions", logger)
}

func registerIfNotExists(reg prometheus.Registerer, collector prometheus.Collector, name string, logger zerolog.Logger) {
	if err := reg.Register(collector); err != nil {
		var alreadyRegErr prometheus.AlreadyRegisteredError
		if errors.As(err, &alreadyRegErr) {
			logger.Debug().Str("collector", name).Msg("metric already registered")
			return
		}
		logger.Error().Err(err).Str("collector", name).Msg("failed to register metric")
	}
}

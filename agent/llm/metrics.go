package llm

import (
	"time"

	"github.com/tanpawarit/Chative-Local-Concierge/agent/metrics"
)

func observe(provider string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.ModelCalls.WithLabelValues(provider, status).Inc()
	metrics.ModelDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
}

package jobs

import (
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
)

// RegisterQueueMetrics publishes queue depth gauges on the given
// registerer. The inspector hits Redis on every scrape, so a scrape
// during an outage reports zero rather than failing the whole exposition.
func RegisterQueueMetrics(reg prometheus.Registerer, inspector *asynq.Inspector) {
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "inkwell_jobs_pending",
		Help: "Tasks waiting in the default queue.",
	}, func() float64 {
		info, err := inspector.GetQueueInfo(QueueDefault)
		if err != nil || info == nil {
			return 0
		}
		return float64(info.Pending)
	}))
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "inkwell_jobs_active",
		Help: "Tasks currently being processed from the default queue.",
	}, func() float64 {
		info, err := inspector.GetQueueInfo(QueueDefault)
		if err != nil || info == nil {
			return 0
		}
		return float64(info.Active)
	}))
}

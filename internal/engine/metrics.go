package engine

import "github.com/prometheus/client_golang/prometheus"

var (
	jobsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quantcloud_jobs_created_total",
			Help: "Total number of simulated jobs submitted.",
		},
		[]string{"kind"},
	)

	jobsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quantcloud_jobs_finished_total",
			Help: "Total number of simulated jobs that reached a terminal state.",
		},
		[]string{"kind", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(jobsCreated)
	prometheus.MustRegister(jobsFinished)
}

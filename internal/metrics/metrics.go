package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Throughput metrics - Track deployment volume
var (
	ModulesInstalled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deployer_modules_installed_total",
			Help: "Total number of modules installed by backend mode",
		},
		[]string{"mode"},
	)

	InstancesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deployer_instances_created_total",
			Help: "Total number of contract instances created by backend mode",
		},
		[]string{"mode"},
	)

	DeploymentsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deployer_deployments_completed_total",
		Help: "Total number of deployments that returned a contract id",
	})
)

// Performance metrics - Track network round trips
var (
	SubmissionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "deployer_submission_duration_seconds",
		Help:    "Time from simulation to a terminal transaction status",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
	})

	ConfirmationPolls = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "deployer_confirmation_polls",
		Help:    "Number of getTransaction polls before a terminal status",
		Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
	})
)

// State metrics
var (
	LastSequence = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "deployer_last_account_sequence",
		Help: "Sequence number of the source account at the last fetch",
	})
)

// Error metrics - Track failures
var (
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deployer_errors_total",
			Help: "Total number of failed deployments by error kind",
		},
		[]string{"kind"},
	)
)

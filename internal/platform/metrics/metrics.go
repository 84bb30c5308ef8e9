package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	RequestLatency *prometheus.HistogramVec

	HospitalsRegistered prometheus.Counter
	HospitalDecisions   *prometheus.CounterVec
	PatientsRegistered  prometheus.Counter

	DocumentsAttached *prometheus.CounterVec

	CampaignTransitions *prometheus.CounterVec

	DonationsRecorded  prometheus.Counter
	DonationsDuplicate prometheus.Counter
	DonationAmount     prometheus.Counter

	ChallengesIssued   prometheus.Counter
	ChallengesConsumed prometheus.Counter
	ChallengesFailed   *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics with the default registry.
func New() *Metrics {
	return &Metrics{
		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "medfund_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
		HospitalsRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medfund_hospitals_registered_total",
			Help: "Total hospitals registered",
		}),
		HospitalDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "medfund_hospital_decisions_total",
			Help: "Hospital verification decisions by outcome",
		}, []string{"decision"}),
		PatientsRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medfund_patients_registered_total",
			Help: "Total patients registered",
		}),
		DocumentsAttached: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "medfund_documents_attached_total",
			Help: "Evidence documents attached by type",
		}, []string{"type"}),
		CampaignTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "medfund_campaign_transitions_total",
			Help: "Campaign status transitions by target state",
		}, []string{"to"}),
		DonationsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medfund_donations_recorded_total",
			Help: "Donations folded into campaign totals",
		}),
		DonationsDuplicate: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medfund_donations_duplicate_total",
			Help: "Donation submissions deduplicated by tx hash",
		}),
		DonationAmount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medfund_donation_amount_total",
			Help: "Sum of recorded donation amounts in minor units",
		}),
		ChallengesIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medfund_wallet_challenges_issued_total",
			Help: "Wallet auth challenges issued",
		}),
		ChallengesConsumed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medfund_wallet_challenges_consumed_total",
			Help: "Wallet auth challenges consumed successfully",
		}),
		ChallengesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "medfund_wallet_challenges_failed_total",
			Help: "Wallet auth challenge failures by reason",
		}, []string{"reason"}),
	}
}

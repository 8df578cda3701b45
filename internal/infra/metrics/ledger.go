package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paidTimeGrantedSeconds,
		giftCodeRedemptionsTotal,
		trialsGrantedTotal,
		referralBonusesTotal,
	)
}

var (
	paidTimeGrantedSeconds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_paid_time_granted_seconds_total",
			Help: "Paid time added to accounts, labeled by source.",
		},
		[]string{"source"}, // 'payment', 'trial', 'gift_code', 'referral'
	)

	giftCodeRedemptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gift_code_redemptions_total",
			Help: "Gift code redemption attempts, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	trialsGrantedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trial_periods_granted_total",
			Help: "Total number of trial periods granted.",
		},
	)

	referralBonusesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "referral_bonuses_total",
			Help: "Total number of referral bonuses granted to referrers.",
		},
	)
)

func AddPaidTime(source string, seconds float64) {
	paidTimeGrantedSeconds.WithLabelValues(norm(source)).Add(seconds)
}

func IncGiftCodeRedemption(outcome string) {
	giftCodeRedemptionsTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncTrialGranted() { trialsGrantedTotal.Inc() }

func IncReferralBonus() { referralBonusesTotal.Inc() }

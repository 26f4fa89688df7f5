// Package metrics exports Prometheus counters fed by the session event bus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/catbutler/credits-engine/events"
	"github.com/catbutler/credits-engine/notifications"
)

const namespace = "catbutler"

// Collector holds the credits metrics. Handle is an events.Handler and can
// be attached to any number of session buses.
type Collector struct {
	CreditsEarned *prometheus.CounterVec
	CreditsSpent  *prometheus.CounterVec
	Achievements  *prometheus.CounterVec
	Unlocks       *prometheus.CounterVec
	DailyRewards  prometheus.Counter
	StreakRewards prometheus.Counter
	Notifications *prometheus.CounterVec
	Sessions      prometheus.Gauge
}

// New registers the metrics with reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		CreditsEarned: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credits_earned_total",
			Help:      "Credits granted, by transaction type.",
		}, []string{"type"}),
		CreditsSpent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credits_spent_total",
			Help:      "Credits debited, by transaction type.",
		}, []string{"type"}),
		Achievements: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "achievements_unlocked_total",
			Help:      "Achievements unlocked, by id.",
		}, []string{"achievement"}),
		Unlocks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_unlocked_total",
			Help:      "Cosmetic items unlocked, by item id.",
		}, []string{"item"}),
		DailyRewards: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "daily_login_rewards_total",
			Help:      "Daily login rewards granted.",
		}),
		StreakRewards: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_streak_rewards_total",
			Help:      "Login streak bonuses granted.",
		}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_created_total",
			Help:      "Notifications created, by type.",
		}, []string{"type"}),
		Sessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Open user sessions.",
		}),
	}
}

// Handle records one domain event.
func (c *Collector) Handle(e events.Event) {
	switch ev := e.(type) {
	case events.CreditsEarned:
		c.CreditsEarned.WithLabelValues(ev.Type).Add(float64(ev.Amount))
	case events.CreditsSpent:
		c.CreditsSpent.WithLabelValues(ev.Type).Add(float64(ev.Amount))
	case events.AchievementUnlocked:
		c.Achievements.WithLabelValues(ev.ID).Inc()
	case events.ItemUnlocked:
		c.Unlocks.WithLabelValues(ev.ItemID).Inc()
	case events.DailyLoginReward:
		c.DailyRewards.Inc()
	case events.LoginStreakReward:
		c.StreakRewards.Inc()
	}
}

// NotificationCreated counts one new notification.
func (c *Collector) NotificationCreated(n notifications.Notification) {
	c.Notifications.WithLabelValues(string(n.Type)).Inc()
}

func (c *Collector) SessionOpened() { c.Sessions.Inc() }

func (c *Collector) SessionClosed() { c.Sessions.Dec() }

// Package metrics holds the prometheus collectors exposed on /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	AuthFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_failures_total",
		Help: "Number of failed authentication attempts",
	})

	Checkins = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkins_total",
		Help: "Number of successful attendance check-ins",
	}, []string{"method"})

	CheckinFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkin_failures_total",
		Help: "Number of rejected attendance check-ins",
	}, []string{"reason"})

	HabitMarks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "habit_marks_total",
		Help: "Number of habit completion toggles and logs",
	}, []string{"action"})

	RemindersSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reminders_sent_total",
		Help: "Number of reminders delivered",
	})
)

func init() {
	prometheus.MustRegister(AuthFailures, Checkins, CheckinFailures, HabitMarks, RemindersSent)
}

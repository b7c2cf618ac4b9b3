package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	notesSavedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "notely",
		Name:      "notes_saved_total",
		Help:      "Notes saved by edit sessions, labelled by session mode.",
	}, []string{"mode"})

	remindersScheduledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "notely",
		Name:      "reminders_scheduled_total",
		Help:      "Reminders scheduled.",
	})

	remindersCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "notely",
		Name:      "reminders_cancelled_total",
		Help:      "Scheduled reminders cancelled before firing.",
	})

	remindersFiredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "notely",
		Name:      "reminders_fired_total",
		Help:      "Reminder deliveries, labelled by result.",
	}, []string{"result"})

	remindersPending = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "notely",
		Name:      "reminders_pending",
		Help:      "Reminders waiting to fire.",
	})

	editSessionsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "notely",
		Name:      "edit_sessions_open",
		Help:      "Open edit sessions.",
	})
)

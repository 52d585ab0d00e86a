// Package observability registers the bot's Prometheus metrics.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	turnsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workoutbot",
		Subsystem: "dialog",
		Name:      "turns_total",
		Help:      "Number of dialog turns grouped by the rule that handled them.",
	}, []string{"rule"})

	workoutsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workoutbot",
		Name:      "workouts_finished_total",
		Help:      "Number of finished activities grouped by activity keyword.",
	}, []string{"activity"})

	distanceHistogram = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "workoutbot",
		Name:      "workout_distance",
		Help:      "Distance reported for finished activities.",
		Buckets:   []float64{1, 2, 5, 10, 21, 42, 100, 200},
	})

	durationHistogram = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "workoutbot",
		Name:      "workout_duration_seconds",
		Help:      "Elapsed time of finished activities.",
		Buckets:   []float64{60, 300, 900, 1800, 3600, 7200, 14400},
	})

	storeErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workoutbot",
		Name:      "store_errors_total",
		Help:      "Session store failures grouped by operation.",
	}, []string{"op"})

	deliveryErrorCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "workoutbot",
		Name:      "delivery_errors_total",
		Help:      "Replies that could not be delivered.",
	})

	recorderErrorCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "workoutbot",
		Name:      "recorder_errors_total",
		Help:      "Finished workouts that could not be recorded.",
	})

	sessionsEvictedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "workoutbot",
		Name:      "sessions_expired_total",
		Help:      "Idle contexts dropped by the cleanup sweep.",
	})
)

func init() {
	prometheus.MustRegister(
		turnsCounter,
		workoutsCounter,
		distanceHistogram,
		durationHistogram,
		storeErrorCounter,
		deliveryErrorCounter,
		recorderErrorCounter,
		sessionsEvictedCounter,
	)
}

// RecordTurn counts a dialog turn handled by rule.
func RecordTurn(rule string) {
	turnsCounter.WithLabelValues(rule).Inc()
}

// RecordWorkout counts a finished activity and observes its distance and time.
func RecordWorkout(activity string, distance uint32, elapsed time.Duration) {
	workoutsCounter.WithLabelValues(activity).Inc()
	distanceHistogram.Observe(float64(distance))
	durationHistogram.Observe(elapsed.Seconds())
}

// RecordStoreError counts a failed session store operation ("get" or "save").
func RecordStoreError(op string) {
	storeErrorCounter.WithLabelValues(op).Inc()
}

// RecordDeliveryError counts a reply the transport failed to deliver.
func RecordDeliveryError() {
	deliveryErrorCounter.Inc()
}

// RecordRecorderError counts a workout the history recorder rejected.
func RecordRecorderError() {
	recorderErrorCounter.Inc()
}

// RecordSessionsExpired counts contexts removed by an idle sweep.
func RecordSessionsExpired(n int) {
	sessionsEvictedCounter.Add(float64(n))
}

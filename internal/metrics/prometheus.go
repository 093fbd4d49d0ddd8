// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every Prometheus collector wivrnd exports, registered
// against the default registry on construction.
type Metrics struct {
	ShardsSentTotal           *prometheus.CounterVec
	FramesSentTotal           *prometheus.CounterVec
	FeedbackReceivedTotal     *prometheus.CounterVec
	TrackingReceivedTotal     prometheus.Counter
	ReplayedDatagramsTotal    prometheus.Counter
	SessionsActive            prometheus.Gauge
	SessionsStartedTotal      prometheus.Counter
	SessionsTornDownTotal     *prometheus.CounterVec
	HandshakesCompletedTotal  *prometheus.CounterVec
	PairingCeremoniesTotal    *prometheus.CounterVec
	TimeOffsetEstimateSeconds *prometheus.GaugeVec
}

// NewMetrics constructs and registers every collector.
func NewMetrics() *Metrics {
	m := &Metrics{
		ShardsSentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wivrnd_shards_sent_total",
			Help: "Total number of video shards sent to headsets, by stream index.",
		}, []string{"stream_index"}),
		FramesSentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wivrnd_frames_sent_total",
			Help: "Total number of encoded frames split and sent to headsets, by stream index.",
		}, []string{"stream_index"}),
		FeedbackReceivedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wivrnd_feedback_received_total",
			Help: "Total number of feedback messages received from headsets, by stream index.",
		}, []string{"stream_index"}),
		TrackingReceivedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wivrnd_tracking_received_total",
			Help: "Total number of tracking samples received from headsets.",
		}),
		ReplayedDatagramsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wivrnd_replayed_datagrams_total",
			Help: "Total number of stream-channel datagrams dropped as replays or out-of-window duplicates.",
		}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wivrnd_sessions_active",
			Help: "Number of currently established sessions.",
		}),
		SessionsStartedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wivrnd_sessions_started_total",
			Help: "Total number of sessions established.",
		}),
		SessionsTornDownTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wivrnd_sessions_torn_down_total",
			Help: "Total number of sessions torn down, by reason.",
		}, []string{"reason"}),
		HandshakesCompletedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wivrnd_handshakes_completed_total",
			Help: "Total number of handshakes completed, by outcome.",
		}, []string{"outcome"}),
		PairingCeremoniesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wivrnd_pairing_ceremonies_total",
			Help: "Total number of pairing ceremonies run, by outcome.",
		}, []string{"outcome"}),
		TimeOffsetEstimateSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "wivrnd_time_offset_estimate_seconds",
			Help: "Current estimated headset-to-server clock offset, by session.",
		}, []string{"session_id"}),
	}
	m.register()
	return m
}

func (m *Metrics) register() {
	prometheus.MustRegister(
		m.ShardsSentTotal,
		m.FramesSentTotal,
		m.FeedbackReceivedTotal,
		m.TrackingReceivedTotal,
		m.ReplayedDatagramsTotal,
		m.SessionsActive,
		m.SessionsStartedTotal,
		m.SessionsTornDownTotal,
		m.HandshakesCompletedTotal,
		m.PairingCeremoniesTotal,
		m.TimeOffsetEstimateSeconds,
	)
}

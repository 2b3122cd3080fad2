package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Collector struct {
	connectionsActive prometheus.Gauge
	roomsCreatedTotal prometheus.Counter
	messagesTotal     *prometheus.CounterVec
	broadcastsTotal   prometheus.Counter
}

func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		connectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "watchsync_connections_active",
			Help: "Number of currently open member channels",
		}),
		roomsCreatedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "watchsync_rooms_created_total",
			Help: "Total number of rooms created",
		}),
		messagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "watchsync_messages_total",
			Help: "Total number of websocket messages received by type",
		}, []string{"type"}),
		broadcastsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "watchsync_broadcasts_total",
			Help: "Total number of messages fanned out to room members",
		}),
	}
}

func (c *Collector) ConnectionOpened() {
	c.connectionsActive.Inc()
}

func (c *Collector) ConnectionClosed() {
	c.connectionsActive.Dec()
}

func (c *Collector) RoomCreated() {
	c.roomsCreatedTotal.Inc()
}

func (c *Collector) MessageReceived(messageType string) {
	c.messagesTotal.WithLabelValues(messageType).Inc()
}

func (c *Collector) Broadcast(recipients int) {
	c.broadcastsTotal.Add(float64(recipients))
}

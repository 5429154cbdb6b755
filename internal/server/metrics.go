package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics 服务器指标，注册在独立的 Registry 上
type Metrics struct {
	Registry *prometheus.Registry

	Players           prometheus.Gauge
	Rooms             prometheus.Gauge
	Ticks             prometheus.Counter
	TickDuration      prometheus.Histogram
	QueueDepth        prometheus.Histogram
	InputsAccepted    prometheus.Counter
	InputsDropped     *prometheus.CounterVec // reason: overflow / rate_limited / stale_epoch
	TimingAdjustments *prometheus.CounterVec // value: -1 / 0 / 1
	SendDropped       *prometheus.CounterVec // channel
	Teleports         prometheus.Counter
}

// NewMetrics 创建并注册所有指标
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Players: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shooter",
			Name:      "players_connected",
			Help:      "当前在线的玩家数",
		}),
		Rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shooter",
			Name:      "rooms",
			Help:      "当前房间数",
		}),
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shooter",
			Name:      "room_ticks_total",
			Help:      "所有房间执行的 tick 总数",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "shooter",
			Name:      "room_tick_seconds",
			Help:      "单个房间 tick 的耗时",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 12),
		}),
		QueueDepth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "shooter",
			Name:      "input_queue_depth",
			Help:      "tick 开始时每个身体的输入队列长度",
			Buckets:   prometheus.LinearBuckets(0, 1, 11),
		}),
		InputsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shooter",
			Name:      "inputs_accepted_total",
			Help:      "进入输入队列的记录数",
		}),
		InputsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shooter",
			Name:      "inputs_dropped_total",
			Help:      "被丢弃的输入",
		}, []string{"reason"}),
		TimingAdjustments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shooter",
			Name:      "timing_adjustments_total",
			Help:      "下发的节奏提示",
		}, []string{"value"}),
		SendDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shooter",
			Name:      "send_dropped_total",
			Help:      "因发送队列满被丢弃的消息",
		}, []string{"channel"}),
		Teleports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shooter",
			Name:      "teleports_total",
			Help:      "传送次数",
		}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Players,
		m.Rooms,
		m.Ticks,
		m.TickDuration,
		m.QueueDepth,
		m.InputsAccepted,
		m.InputsDropped,
		m.TimingAdjustments,
		m.SendDropped,
		m.Teleports,
	)
	return m
}

func adjustmentLabel(adj int8) string {
	switch {
	case adj > 0:
		return "1"
	case adj < 0:
		return "-1"
	default:
		return "0"
	}
}

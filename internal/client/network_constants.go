package client

import (
	"time"

	"shooter/pkg/core"
)

// ===== 预测与网络配置（客户端专用）=====
const (
	// 每次发送最近 N 条输入，单个包丢失可以由下一个包补上
	InputSendWindow = 4

	// 单个渲染帧最多追赶的固定步数
	MaxCatchUpSteps = 5

	// 入站队列长度
	inboundQueueSize = 256
)

// Config 客户端配置
type Config struct {
	ServerAddr  string
	Proto       string // tcp | kcp | ws
	PlayerName  string
	RoomID      string
	DialTimeout time.Duration
	JoinTimeout time.Duration

	Movement      *core.MovementConfig
	Interpolation InterpolationConfig
}

// DefaultConfig 返回默认客户端配置
func DefaultConfig() Config {
	return Config{
		ServerAddr:    "127.0.0.1:8080",
		Proto:         "tcp",
		PlayerName:    "player",
		DialTimeout:   5 * time.Second,
		JoinTimeout:   10 * time.Second,
		Movement:      core.DefaultMovementConfig(),
		Interpolation: DefaultInterpolationConfig(core.FixedDeltaTime),
	}
}

// InterpolationConfig 远端插值参数。具体数值只影响手感，不影响正确性。
type InterpolationConfig struct {
	// SendInterval 服务器发送快照的间隔（秒）
	SendInterval float64
	// BufferMultiplier 插值延迟 = SendInterval * BufferMultiplier
	BufferMultiplier float64
	// Capacity 缓冲上限，超出时丢弃最旧的快照
	Capacity int

	// 时间轴前方的快照数超过 CatchUpThreshold 时加速，
	// 每多一个快照加速 CatchUpSpeed，最多 MaxCatchUp
	CatchUpThreshold int
	CatchUpSpeed     float64
	MaxCatchUp       float64
	// 前方快照数少于 SlowdownThreshold 时减速 SlowdownSpeed，避免缓冲被吃空
	SlowdownThreshold int
	SlowdownSpeed     float64

	// SnapThreshold 时间轴与目标相差超过该值（秒）时直接跳过去
	SnapThreshold float64
}

// DefaultInterpolationConfig sendInterval 为快照间隔（秒）
func DefaultInterpolationConfig(sendInterval float64) InterpolationConfig {
	return InterpolationConfig{
		SendInterval:      sendInterval,
		BufferMultiplier:  2,
		Capacity:          64,
		CatchUpThreshold:  4,
		CatchUpSpeed:      0.02,
		MaxCatchUp:        0.25,
		SlowdownThreshold: 1,
		SlowdownSpeed:     0.04,
		SnapThreshold:     sendInterval * 32,
	}
}

// BufferTime 插值延迟（秒）
func (c InterpolationConfig) BufferTime() float64 {
	return c.SendInterval * c.BufferMultiplier
}

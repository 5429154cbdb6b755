package server

import (
	"time"

	"golang.org/x/time/rate"

	"shooter/pkg/core"
	"shooter/pkg/utils"
)

const (
	DefaultRoomID = "default" // 默认房间 ID

	heartbeatInterval = 5 * time.Second
	heartbeatTimeout  = 15 * time.Second
	readTimeout       = heartbeatTimeout
	writeTimeout      = 1 * time.Second
)

// Config 服务器配置
type Config struct {
	Addr  string // 监听地址
	Proto string // tcp / kcp / ws

	TickRate      int // 每秒 tick 数，客户端必须一致
	SnapshotEvery int // 每隔多少 tick 广播一次远端快照

	MaxPlayers     int           // 每个房间的人数上限
	MaxRooms       int           // 房间数上限
	ReconnectGrace time.Duration // 断线后保留身体的时间
	RoomIdleTTL    time.Duration // 空房间多久后回收（默认房间除外）

	InputRate  rate.Limit // 每个连接每秒允许的入站消息数
	InputBurst int

	JWTSecret  string
	SessionTTL time.Duration

	Movement *core.MovementConfig
	Spawns   []core.Vec3 // 出生点，按玩家 ID 轮流使用
}

// DefaultConfig 默认配置。JWT 密钥从 JWT_SECRET 读取。
func DefaultConfig() *Config {
	return &Config{
		Addr:           ":8080",
		Proto:          "tcp",
		TickRate:       core.TickRate,
		SnapshotEvery:  3,
		MaxPlayers:     16,
		MaxRooms:       100,
		ReconnectGrace: 30 * time.Second,
		RoomIdleTTL:    60 * time.Second,
		InputRate:      rate.Limit(4 * core.TickRate),
		InputBurst:     64,
		JWTSecret:      utils.GetEnvDefault("JWT_SECRET", "shooter-dev-secret-change-in-production"),
		SessionTTL:     5 * time.Minute,
		Movement:       core.DefaultMovementConfig(),
		Spawns: []core.Vec3{
			{X: 0, Z: 0},
			{X: 20, Z: 0},
			{X: 0, Z: 20},
			{X: 20, Z: 20},
		},
	}
}

// TickDuration 一个 tick 的真实时长
func (c *Config) TickDuration() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

func (c *Config) spawnPoint(playerID int32) core.Vec3 {
	if len(c.Spawns) == 0 {
		return core.Vec3{}
	}
	i := int(playerID-1) % len(c.Spawns)
	if i < 0 {
		i = 0
	}
	return c.Spawns[i]
}

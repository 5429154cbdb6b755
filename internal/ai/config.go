package ai

import "shooter/pkg/core"

// BotConfig 机器人的行为参数
type BotConfig struct {
	// ThinkInterval 重新决策的间隔（帧），两次决策之间保持上一次的输入
	ThinkInterval int

	// MistakeRate 每次决策随机失误的概率 (0.0-1.0)
	MistakeRate float64

	// ChaseRange 追逐其他玩家的最大距离（米）
	ChaseRange float64

	// Home 活动中心，ArenaRadius 之外会掉头回来
	Home        core.Vec3
	ArenaRadius float64

	// MaxTurn 每帧最多转动的角度
	MaxTurn float64

	// JumpChance 游荡和追逐时每次决策起跳的概率
	JumpChance float64

	// StrafeChance 追逐时左右横移的概率
	StrafeChance float64

	// LookSensitivity 与移动参数保持一致，用来把目标角度换算成视角输入
	LookSensitivity float64
}

// WithHome 以 home 为活动中心的副本
func (c BotConfig) WithHome(home core.Vec3) *BotConfig {
	c.Home = home
	return &c
}

// 普通难度：反应慢，偶尔犯错
var BotConfigNormal = BotConfig{
	ThinkInterval:   20,
	MistakeRate:     0.05,
	ChaseRange:      25,
	Home:            core.Vec3{X: 10, Z: 10},
	ArenaRadius:     40,
	MaxTurn:         4,
	JumpChance:      0.1,
	StrafeChance:    0.2,
	LookSensitivity: 1,
}

// 困难难度：转身快，横移跳跃更频繁
var BotConfigHard = BotConfig{
	ThinkInterval:   6,
	MistakeRate:     0,
	ChaseRange:      40,
	Home:            core.Vec3{X: 10, Z: 10},
	ArenaRadius:     40,
	MaxTurn:         12,
	JumpChance:      0.25,
	StrafeChance:    0.5,
	LookSensitivity: 1,
}

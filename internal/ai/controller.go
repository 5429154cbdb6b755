package ai

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"

	"shooter/internal/client"
	"shooter/internal/ai/bt"
	"shooter/pkg/core"
)

// BotController 用行为树产生输入的机器人，实现 client.InputSource
type BotController struct {
	rnd    *rand.Rand
	config *BotConfig

	thinkCounter int
	thought      bool
	cachedMove   client.FrameInput

	blackboard Blackboard
	tree       bt.Node[*Blackboard]
}

// NewBotController 创建机器人。相同的 seed 和输入序列产生相同的决策。
func NewBotController(seed int64, config *BotConfig) *BotController {
	if config == nil {
		config = &BotConfigNormal
	}
	rnd := rand.New(rand.NewSource(seed))

	c := &BotController{
		rnd:    rnd,
		config: config,
	}
	c.blackboard = Blackboard{
		RNG:    rnd,
		Config: config,
	}

	c.tree = &bt.Selector[*Blackboard]{Children: []bt.Node[*Blackboard]{
		bt.If(condOutOfArena, actReturnHome),
		bt.If(condStuck, actUnstick),
		bt.If(condHasTarget, actChase),
		&bt.Action[*Blackboard]{Do: actWander},
	}}
	return c
}

// Observe 更新可见的其他玩家，每帧在 Poll 之前调用
func (c *BotController) Observe(remotes []client.RemoteView) {
	c.blackboard.Remotes = remotes
}

// Poll 每帧调用一次。移动方向按决策间隔更新，视角每帧向目标角度转动。
func (c *BotController) Poll(self core.MotionState) client.FrameInput {
	bb := &c.blackboard
	bb.Self = self
	bb.Frame++
	if !bb.HasYaw {
		bb.DesiredYaw = self.Facing.Y
		bb.HasYaw = true
	}

	out := c.cachedMove
	c.thinkCounter++
	if !c.thought || c.thinkCounter >= c.config.ThinkInterval {
		c.think()
		out = bb.NextInput
		c.cachedMove = client.FrameInput{MoveX: out.MoveX, MoveY: out.MoveY}
	}

	step := turnStep(self.Facing.Y, bb.DesiredYaw, c.config.MaxTurn)
	out.LookX = step / sensitivity(c.config)
	return out
}

func (c *BotController) think() {
	bb := &c.blackboard

	// 卡住检测只在有移动意图时累计
	if c.thought && (c.cachedMove.MoveX != 0 || c.cachedMove.MoveY != 0) &&
		bb.Self.Position.Sub(bb.LastPos).Horizontal().Len() < stuckDistance {
		bb.StuckTicks++
	} else {
		bb.StuckTicks = 0
	}
	bb.LastPos = bb.Self.Position

	c.thought = true
	c.thinkCounter = 0
	bb.ResetDecision()
	_ = c.tree.Tick(bb)

	// 应用随机失误
	if c.config.MistakeRate > 0 && c.rnd.Float64() < c.config.MistakeRate {
		switch c.rnd.Intn(3) {
		case 0:
			bb.NextInput = client.FrameInput{}
		case 1:
			dirs := []client.FrameInput{{MoveY: 1}, {MoveY: -1}, {MoveX: -1}, {MoveX: 1}}
			bb.NextInput = dirs[c.rnd.Intn(len(dirs))]
		case 2:
			// 保持原输入
		}
	}
}

// Config 当前配置
func (c *BotController) Config() *BotConfig {
	return c.config
}

// SetConfig 切换难度
func (c *BotController) SetConfig(config *BotConfig) {
	if config == nil {
		return
	}
	c.config = config
	c.blackboard.Config = config
}

func sensitivity(cfg *BotConfig) float64 {
	if cfg.LookSensitivity <= 0 {
		return 1
	}
	return cfg.LookSensitivity
}

// yawTo 从 from 看向 to 的偏航角，与移动模型一致：yaw=0 朝 +Z，yaw=90 朝 +X
func yawTo(from, to core.Vec3, fallback float64) float64 {
	dx, dz := to.X-from.X, to.Z-from.Z
	if dx == 0 && dz == 0 {
		return fallback
	}
	return core.WrapAngle(mgl64.RadToDeg(math.Atan2(dx, dz)))
}

// turnStep 沿最短方向从 current 转向 desired，单步不超过 maxTurn
func turnStep(current, desired, maxTurn float64) float64 {
	d := core.WrapAngle(desired - current)
	if d > 180 {
		d -= 360
	}
	if maxTurn > 0 {
		d = math.Max(-maxTurn, math.Min(maxTurn, d))
	}
	return d
}

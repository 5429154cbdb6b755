package ai

import (
	"math/rand"

	"shooter/internal/client"
	"shooter/pkg/core"
)

type Blackboard struct {
	Self    core.MotionState
	Remotes []client.RemoteView
	RNG     *rand.Rand
	Config  *BotConfig

	Frame int

	Target    *client.RemoteView
	NextInput client.FrameInput

	// 期望的偏航角，每帧按 MaxTurn 逐步转过去
	DesiredYaw float64
	HasYaw     bool

	// 卡住检测：决策间隔内水平位移过小
	LastPos    core.Vec3
	StuckTicks int

	// 游荡方向保持的决策次数
	WanderLeft int
}

// ResetDecision 新一轮决策前清空上一轮的结论，跨轮的状态保留
func (bb *Blackboard) ResetDecision() {
	bb.Target = nil
	bb.NextInput = client.FrameInput{}
}

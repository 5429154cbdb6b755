package ai

import (
	"shooter/internal/ai/bt"
)

const (
	// stuckDistance 一个决策间隔内水平位移小于它视为没动
	stuckDistance = 0.1
	// stuckLimit 连续几次没动判定为卡住
	stuckLimit = 3
	// closeRange 追到这个距离内停下只做横移
	closeRange = 2.0
)

// ========== 回到场地 ==========

func condOutOfArena(bb *Blackboard) bool {
	if bb.Config.ArenaRadius <= 0 {
		return false
	}
	return bb.Self.Position.Sub(bb.Config.Home).Horizontal().Len() > bb.Config.ArenaRadius
}

func actReturnHome(bb *Blackboard) bt.Status {
	bb.DesiredYaw = yawTo(bb.Self.Position, bb.Config.Home, bb.Self.Facing.Y)
	bb.WanderLeft = 0
	bb.NextInput.MoveY = 1
	return bt.StatusRunning
}

// ========== 脱困 ==========

func condStuck(bb *Blackboard) bool {
	return bb.StuckTicks >= stuckLimit
}

// actUnstick 跳起并转向身后的随机方向
func actUnstick(bb *Blackboard) bt.Status {
	bb.DesiredYaw = bb.Self.Facing.Y + 90 + bb.RNG.Float64()*180
	bb.StuckTicks = 0
	bb.WanderLeft = 2
	bb.NextInput.MoveY = 1
	bb.NextInput.Jump = true
	return bt.StatusRunning
}

// ========== 追逐 ==========

// condHasTarget 选出范围内最近的可见玩家
func condHasTarget(bb *Blackboard) bool {
	best := -1.0
	for i := range bb.Remotes {
		r := &bb.Remotes[i]
		if !r.Visible {
			continue
		}
		d := r.Position.Sub(bb.Self.Position).Horizontal().Len()
		if d > bb.Config.ChaseRange {
			continue
		}
		if best < 0 || d < best {
			best = d
			bb.Target = r
		}
	}
	return bb.Target != nil
}

func actChase(bb *Blackboard) bt.Status {
	target := bb.Target
	bb.DesiredYaw = yawTo(bb.Self.Position, target.Position, bb.Self.Facing.Y)

	if target.Position.Sub(bb.Self.Position).Horizontal().Len() > closeRange {
		bb.NextInput.MoveY = 1
	}
	if bb.RNG.Float64() < bb.Config.StrafeChance {
		if bb.RNG.Intn(2) == 0 {
			bb.NextInput.MoveX = -1
		} else {
			bb.NextInput.MoveX = 1
		}
	}
	bb.NextInput.Jump = bb.RNG.Float64() < bb.Config.JumpChance
	return bt.StatusRunning
}

// ========== 游荡 ==========

func actWander(bb *Blackboard) bt.Status {
	if bb.WanderLeft <= 0 {
		bb.DesiredYaw = bb.RNG.Float64() * 360
		bb.WanderLeft = 3 + bb.RNG.Intn(4)
	}
	bb.WanderLeft--
	bb.NextInput.MoveY = 1
	bb.NextInput.Jump = bb.RNG.Float64() < bb.Config.JumpChance
	return bt.StatusRunning
}

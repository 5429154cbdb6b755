package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// MotionState 某个 tick 的物理状态。位置和速度只有结合 Tick 与产生它的输入才有意义。
type MotionState struct {
	Tick     Tick
	Position Vec3
	Velocity Vec3
	Facing   Vec2 // X 俯仰角 [-90, 90]，Y 偏航角 [0, 360)，单位：度
	Jump     bool // 随状态携带，保证重放结果一致

	// TimingAdjustment 服务器给客户端的节奏提示：+1 加快，0 保持，-1 放慢
	TimingAdjustment int8
}

// Collider 物理碰撞协作方（由引擎/地图提供）
type Collider interface {
	// Grounded 向下探测是否着地
	Grounded(pos Vec3) bool
	// Move 按位移移动并处理碰撞，返回最终位置以及是否被地面挡住
	Move(from, delta Vec3) (Vec3, bool)
}

// groundSkin 着地判定的容差（米）
const groundSkin = 0.05

// FlatGround 无限大的水平地面
type FlatGround struct {
	Height float64
}

func (g FlatGround) Grounded(pos Vec3) bool {
	return pos.Y <= g.Height+groundSkin
}

func (g FlatGround) Move(from, delta Vec3) (Vec3, bool) {
	to := from.Add(delta)
	if to.Y < g.Height {
		to.Y = g.Height
		return to, true
	}
	return to, false
}

// Step 着地检测 + Simulate + 碰撞处理。预测端和权威端都必须走这里。
func Step(c Collider, prev MotionState, in InputRecord, cfg *MovementConfig) MotionState {
	next := Simulate(prev, in, c.Grounded(prev.Position), cfg)

	to, hitGround := c.Move(prev.Position, next.Velocity.Scale(cfg.DeltaTime))
	next.Position = to
	if hitGround && next.Velocity.Y < 0 {
		next.Velocity.Y = 0
	}

	if !next.Position.Finite() || !next.Velocity.Finite() {
		// 不让 NaN 污染后续所有状态：原地停住
		next.Position = prev.Position
		next.Velocity = Vec3{}
	}
	return next
}

// Simulate 确定性移动函数：(上一状态, 输入, 是否着地) -> 新状态。
// 不依赖时钟、随机数或参数以外的任何值。
//
// 参与加法的乘积都显式转换为 float64，Go 规范规定显式转换会舍入，
// 从而禁止编译器在某些架构上生成融合乘加，保证两端逐位一致。
func Simulate(prev MotionState, in InputRecord, grounded bool, cfg *MovementConfig) MotionState {
	dt := cfg.DeltaTime
	next := prev
	next.Tick = in.Tick
	next.Jump = in.Jump
	next.TimingAdjustment = 0

	next.Facing = applyLook(prev.Facing, in.Look, cfg.LookSensitivity)

	move := Vec2{X: sign(in.Move.X), Y: sign(in.Move.Y)}
	wish := wishDirection(move, next.Facing.Y)
	vel := prev.Velocity

	if grounded {
		if !in.Jump {
			vel = applyFriction(vel, cfg.Friction, cfg.StopSpeed, dt)
		}
		vel = accelerate(vel, wish, wishSpeed(wish, cfg.GroundMaxSpeed), cfg.GroundAccel, dt)
		if in.Jump {
			vel.Y = cfg.JumpSpeed
		} else {
			vel.Y = -cfg.StickToGround
		}
	} else {
		if move.Y == 0 && move.X != 0 {
			// 纯横移：加速度更大、上限更低（strafe jump）
			vel = accelerate(vel, wish, wishSpeed(wish, cfg.StrafeMaxSpeed), cfg.StrafeAccel, dt)
		} else {
			accel := cfg.AirAccel
			if vel.Horizontal().Dot(wish) < 0 {
				accel = cfg.AirDecel
			}
			vel = accelerate(vel, wish, wishSpeed(wish, cfg.AirMaxSpeed), accel, dt)
			vel = airControl(vel, wish, move, cfg.AirControl, dt)
		}
		vel.Y = vel.Y - float64(cfg.Gravity*dt)
	}

	next.Velocity = vel
	next.Position = prev.Position.Add(vel.Scale(dt))
	return next
}

func applyLook(facing, look Vec2, sensitivity float64) Vec2 {
	pitch := mgl64.Clamp(facing.X-float64(look.Y*sensitivity), -90, 90)
	yaw := WrapAngle(facing.Y + float64(look.X*sensitivity))
	return Vec2{X: pitch, Y: yaw}
}

// wishDirection 把移动轴按偏航角旋转到世界坐标。
// yaw=0 时前方为 +Z，右方为 +X。
func wishDirection(move Vec2, yawDeg float64) Vec3 {
	if move.X == 0 && move.Y == 0 {
		return Vec3{}
	}
	sin, cos := math.Sincos(mgl64.DegToRad(yawDeg))
	w := Vec3{
		X: float64(cos*move.X) + float64(sin*move.Y),
		Z: float64(-sin*move.X) + float64(cos*move.Y),
	}
	return w.Normalize()
}

func wishSpeed(wish Vec3, maxSpeed float64) float64 {
	if wish == (Vec3{}) {
		return 0
	}
	return maxSpeed
}

// applyFriction 水平速度按固定减速度趋向 0，低速时按 stopSpeed 计算以保证停下
func applyFriction(vel Vec3, friction, stopSpeed, dt float64) Vec3 {
	speed := vel.Horizontal().Len()
	if speed == 0 {
		return vel
	}
	control := math.Max(speed, stopSpeed)
	drop := float64(float64(control*friction) * dt)
	newSpeed := speed - drop
	if newSpeed < 0 {
		newSpeed = 0
	}
	scale := newSpeed / speed
	return Vec3{X: float64(vel.X * scale), Y: vel.Y, Z: float64(vel.Z * scale)}
}

// accelerate 朝 wish 方向加速，wish 方向上的速度分量不超过 maxSpeed
func accelerate(vel, wish Vec3, maxSpeed, accel, dt float64) Vec3 {
	if maxSpeed == 0 {
		return vel
	}
	current := vel.Dot(wish)
	add := maxSpeed - current
	if add <= 0 {
		return vel
	}
	accelSpeed := float64(float64(accel*dt) * maxSpeed)
	if accelSpeed > add {
		accelSpeed = add
	}
	return vel.Add(wish.Scale(accelSpeed))
}

// airControl 空中转向：不改变水平速率，只把方向往 wish 方向拉，
// 强度与 dot² 成正比（夹角越大越弱）。只在有前后输入时生效。
func airControl(vel, wish Vec3, move Vec2, control, dt float64) Vec3 {
	if move.Y == 0 || control == 0 || wish == (Vec3{}) {
		return vel
	}
	vy := vel.Y
	h := vel.Horizontal()
	speed := h.Len()
	dir := h.Normalize()

	dot := dir.Dot(wish)
	if dot > 0 {
		k := float64(float64(float64(32*control)*float64(dot*dot)) * dt)
		dir = dir.Scale(speed).Add(wish.Scale(k)).Normalize()
	}

	out := dir.Scale(speed)
	out.Y = vy
	return out
}

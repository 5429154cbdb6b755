package server

import "shooter/pkg/core"

// Simulator 某个玩家身体的权威模拟：只根据实际收到的输入推进，
// 并根据输入队列的积压情况给客户端节奏提示。
type Simulator struct {
	collider core.Collider
	cfg      *core.MovementConfig
	queue    *core.InputQueue
	state    core.MotionState
	epoch    uint32 // 每次传送加一
}

// NewSimulator 以出生状态创建模拟器。collider 为 nil 时使用平地。
func NewSimulator(spawn core.MotionState, collider core.Collider, cfg *core.MovementConfig) *Simulator {
	if collider == nil {
		collider = core.FlatGround{}
	}
	if cfg == nil {
		cfg = core.DefaultMovementConfig()
	}
	spawn.TimingAdjustment = 0
	q := core.NewInputQueue(core.InputQueueCapacity)
	// 出生 tick 及之前的输入不再生效
	q.ResetTo(spawn.Tick)
	return &Simulator{
		collider: collider,
		cfg:      cfg,
		queue:    q,
		state:    spawn,
	}
}

// EnqueueClientInputs 接收一批客户端输入。
// 过期和重复的记录被忽略；accepted 为入队条数，dropped 为因队列满被挤掉的最旧条数。
func (s *Simulator) EnqueueClientInputs(records []core.InputRecord) (accepted, dropped int) {
	return s.queue.Enqueue(records...)
}

// Tick 推进一个服务器 tick，返回要发给拥有者的状态以及是否真的前进了。
//
//	队列为空：不前进，提示 -1
//	积压多于一条：只处理一条，提示 +1
//	恰好一条：处理，提示 0
func (s *Simulator) Tick() (core.MotionState, bool) {
	n := s.queue.Len()
	if n == 0 {
		out := s.state
		out.TimingAdjustment = -1
		return out, false
	}

	in, _ := s.queue.Dequeue()
	s.state = core.Step(s.collider, s.state, in, s.cfg)

	out := s.state
	if n > 1 {
		out.TimingAdjustment = 1
	}
	return out, true
}

// Teleport 把身体放到 pos，速度清零，丢弃尚未处理的输入，传送代数加一。
// 返回的状态 tick 不小于已接受的最大输入 tick。
// 客户端收到传送之前发出的输入 tick 可能更大，它们靠代数区分，见 AcceptsEpoch。
func (s *Simulator) Teleport(pos core.Vec3) core.MotionState {
	tick := s.state.Tick
	if last, ok := s.queue.LastAccepted(); ok && last > tick {
		tick = last
	}
	s.state.Tick = tick
	s.state.Position = pos
	s.state.Velocity = core.Vec3{}
	s.state.Jump = false
	s.state.TimingAdjustment = 0
	s.queue.ResetTo(tick)
	s.epoch++
	return s.state
}

// Epoch 当前传送代数，随传送和重连响应下发给客户端
func (s *Simulator) Epoch() uint32 {
	return s.epoch
}

// AcceptsEpoch 只有携带当前代数的输入批次才能入队，
// 其余的是客户端在传送前按旧位置预测的输入
func (s *Simulator) AcceptsEpoch(epoch uint32) bool {
	return epoch == s.epoch
}

// State 当前权威状态
func (s *Simulator) State() core.MotionState {
	return s.state
}

// QueueLen 队列中尚未处理的输入数
func (s *Simulator) QueueLen() int {
	return s.queue.Len()
}

// QueueCapacity 输入队列上限
func (s *Simulator) QueueCapacity() int {
	return s.queue.Capacity()
}

// Destroy 身体被移除时清空输入队列
func (s *Simulator) Destroy() {
	s.queue.Clear()
}

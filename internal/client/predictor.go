package client

import "shooter/pkg/core"

// correctionEpsilon 小于该距离（米）的校正不计入统计
const correctionEpsilon = 1e-6

// PredictionStats 预测校正统计
type PredictionStats struct {
	Corrections        int     // 重放后位置发生变化的次数
	Resyncs            int     // 找不到对应历史、直接采用权威状态的次数
	StaleStates        int     // 过期（tick 不大于已确认 tick）的权威状态数
	LastCorrectionDist float64 // 最近一次校正的位移
}

// Predictor 本地玩家的客户端预测：输入立即生效，收到权威状态后回滚重放。
type Predictor struct {
	collider core.Collider
	cfg      *core.MovementConfig
	clock    *core.TickClock
	history  *core.PredictionHistory

	state   core.MotionState
	lastAck core.Tick
	hasAck  bool
	stats   PredictionStats
}

// NewPredictor 以出生状态创建预测器。clock 接收服务器的节奏提示，可以为 nil。
func NewPredictor(state core.MotionState, collider core.Collider, cfg *core.MovementConfig, clock *core.TickClock) *Predictor {
	if collider == nil {
		collider = core.FlatGround{}
	}
	if cfg == nil {
		cfg = core.DefaultMovementConfig()
	}
	return &Predictor{
		collider: collider,
		cfg:      cfg,
		clock:    clock,
		history:  core.NewPredictionHistory(0),
		state:    state,
		lastAck:  state.Tick,
		hasAck:   true,
	}
}

// Step 记录并立即应用本 tick 的输入，返回新的预测状态。
// tick 不递增的输入被忽略。
func (p *Predictor) Step(in core.InputRecord) core.MotionState {
	in = in.Sanitize()
	if in.Tick <= p.state.Tick || !p.history.Append(in) {
		return p.state
	}
	p.state = core.Step(p.collider, p.state, in, p.cfg)
	return p.state
}

// OutgoingInputs 需要发送的最近 InputSendWindow 条未确认输入
func (p *Predictor) OutgoingInputs() []core.InputRecord {
	return p.history.Latest(InputSendWindow)
}

// OnAuthoritativeState 处理服务器下发的权威状态，返回是否进行了校正。
func (p *Predictor) OnAuthoritativeState(s core.MotionState) bool {
	if s.TimingAdjustment != 0 && p.clock != nil {
		p.clock.AdjustTiming(s.TimingAdjustment)
	}
	s.TimingAdjustment = 0

	if p.hasAck && s.Tick <= p.lastAck {
		p.stats.StaleStates++
		return false
	}
	p.lastAck = s.Tick
	p.hasAck = true

	p.history.Acknowledge(s.Tick)
	pending := p.history.Pending()

	if len(pending) > 0 && pending[0].Tick != s.Tick+1 {
		// 历史和权威状态接不上（传送、历史溢出），直接采用，不重放
		p.adopt(s)
		p.stats.Resyncs++
		return true
	}

	corrected := s
	for _, rec := range pending {
		corrected = core.Step(p.collider, corrected, rec, p.cfg)
	}
	p.adopt(corrected)
	return true
}

func (p *Predictor) adopt(s core.MotionState) {
	if dist := s.Position.Sub(p.state.Position).Len(); dist > correctionEpsilon {
		p.stats.Corrections++
		p.stats.LastCorrectionDist = dist
	}
	p.state = s
}

// Reset 传送或重连：清空历史，直接使用给定状态。
// tick 计数只会前进：给定状态落后于本地时沿用本地 tick，
// 后续输入的 tick 仍然大于已经发出的所有输入，不会与旧输入重号。
func (p *Predictor) Reset(state core.MotionState) {
	state.TimingAdjustment = 0
	tick := p.state.Tick
	if p.clock != nil && p.clock.Current() > tick {
		tick = p.clock.Current()
	}
	if state.Tick > tick {
		tick = state.Tick
		if p.clock != nil {
			p.clock.Reset(tick)
		}
	}
	state.Tick = tick

	p.history.Clear()
	p.state = state
	p.lastAck = tick
	p.hasAck = true
}

// Destroy 释放身体时清空所有缓冲
func (p *Predictor) Destroy() {
	p.history.Clear()
}

// State 当前预测状态
func (p *Predictor) State() core.MotionState {
	return p.state
}

// PendingCount 未确认的输入数
func (p *Predictor) PendingCount() int {
	return p.history.Len()
}

// LastAcknowledged 最近确认的 tick
func (p *Predictor) LastAcknowledged() core.Tick {
	return p.lastAck
}

func (p *Predictor) Stats() PredictionStats {
	return p.stats
}

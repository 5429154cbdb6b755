package client

import (
	"math"
	"sort"

	"shooter/pkg/core"
)

// stateSnapshot 远端玩家状态快照（客户端插值缓冲）
type stateSnapshot struct {
	localTime  float64 // 本地收到的时间
	remoteTime float64 // 服务器批次时间
	position   core.Vec3
	rotation   core.Vec2
}

// RemoteSmoother 远端玩家插值缓冲。
// 渲染时间轴落后于服务器时间 BufferTime，缓冲积压时加速追赶，快吃空时减速。
type RemoteSmoother struct {
	cfg    InterpolationConfig
	buffer []stateSnapshot

	timeline    float64 // 当前渲染的服务器时间
	timescale   float64
	initialized bool
}

// NewRemoteSmoother 创建插值缓冲器
func NewRemoteSmoother(cfg InterpolationConfig) *RemoteSmoother {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultInterpolationConfig(cfg.SendInterval).Capacity
	}
	return &RemoteSmoother{
		cfg:       cfg,
		buffer:    make([]stateSnapshot, 0, cfg.Capacity),
		timescale: 1,
	}
}

// OnSnapshotReceived 加入一个快照，按 remoteTimestamp 排序。
// 比最旧快照还旧、时间戳重复或含非有限值的快照被拒绝；缓冲满时挤掉最旧的。
func (s *RemoteSmoother) OnSnapshotReceived(localReceipt, remoteTimestamp float64, pos core.Vec3, rot core.Vec2) bool {
	if math.IsNaN(remoteTimestamp) || math.IsInf(remoteTimestamp, 0) || !pos.Finite() || !rot.Finite() {
		return false
	}
	if len(s.buffer) > 0 && remoteTimestamp < s.buffer[0].remoteTime {
		return false
	}

	i := sort.Search(len(s.buffer), func(i int) bool {
		return s.buffer[i].remoteTime >= remoteTimestamp
	})
	if i < len(s.buffer) && s.buffer[i].remoteTime == remoteTimestamp {
		return false
	}

	snap := stateSnapshot{
		localTime:  localReceipt,
		remoteTime: remoteTimestamp,
		position:   pos,
		rotation:   rot,
	}
	s.buffer = append(s.buffer, stateSnapshot{})
	copy(s.buffer[i+1:], s.buffer[i:])
	s.buffer[i] = snap

	// 限制缓冲区大小
	if over := len(s.buffer) - s.cfg.Capacity; over > 0 {
		s.buffer = append(s.buffer[:0], s.buffer[over:]...)
	}

	if !s.initialized {
		s.timeline = remoteTimestamp - s.cfg.BufferTime()
		s.initialized = true
	}
	return true
}

// Update 推进渲染时间轴并返回插值结果（每个渲染帧调用）。
// localNow 为本地时间（秒），dt 为距上一帧的时间。缓冲为空时 ok 为 false。
func (s *RemoteSmoother) Update(localNow, dt float64) (pos core.Vec3, rot core.Vec2, ok bool) {
	if len(s.buffer) == 0 {
		return core.Vec3{}, core.Vec2{}, false
	}
	if dt < 0 || math.IsNaN(dt) {
		dt = 0
	}

	s.timeline += dt * s.timescale

	// 用最新快照估算服务器当前时间，时间轴偏得太远时直接对齐
	latest := s.buffer[len(s.buffer)-1]
	target := localNow - latest.localTime + latest.remoteTime - s.cfg.BufferTime()
	if math.Abs(target-s.timeline) > s.cfg.SnapThreshold {
		s.timeline = target
	}
	s.timescale = s.adjustTimescale()

	pos, rot = s.sample(s.timeline)
	s.discardConsumed(s.timeline)
	return pos, rot, true
}

// adjustTimescale 根据时间轴前方的快照数决定下一帧的播放速度
func (s *RemoteSmoother) adjustTimescale() float64 {
	ahead := 0
	for i := len(s.buffer) - 1; i >= 0 && s.buffer[i].remoteTime > s.timeline; i-- {
		ahead++
	}
	if excess := ahead - s.cfg.CatchUpThreshold; excess > 0 {
		return 1 + math.Min(float64(excess)*s.cfg.CatchUpSpeed, s.cfg.MaxCatchUp)
	}
	if ahead < s.cfg.SlowdownThreshold {
		return 1 - s.cfg.SlowdownSpeed
	}
	return 1
}

// sample 在时间轴两侧的快照之间插值；历史不足时停在最近的已知快照上
func (s *RemoteSmoother) sample(t float64) (core.Vec3, core.Vec2) {
	first := s.buffer[0]
	last := s.buffer[len(s.buffer)-1]
	if len(s.buffer) == 1 || t >= last.remoteTime {
		return last.position, last.rotation
	}
	if t <= first.remoteTime {
		return first.position, first.rotation
	}

	// 找到第一个时间戳 > t 的快照，前一个即为 prev
	i := sort.Search(len(s.buffer), func(i int) bool {
		return s.buffer[i].remoteTime > t
	})
	prev, next := s.buffer[i-1], s.buffer[i]
	alpha := (t - prev.remoteTime) / (next.remoteTime - prev.remoteTime)
	return core.LerpVec3(prev.position, next.position, alpha), core.LerpFacing(prev.rotation, next.rotation, alpha)
}

// discardConsumed 清理过期快照（保留时间轴之前的最后一个）
func (s *RemoteSmoother) discardConsumed(t float64) {
	cutoff := -1
	for i := 0; i < len(s.buffer); i++ {
		if s.buffer[i].remoteTime <= t {
			cutoff = i
		} else {
			break
		}
	}
	if cutoff > 0 {
		s.buffer = append(s.buffer[:0], s.buffer[cutoff:]...)
	}
}

// Reset 清空缓冲并把时间轴归零（重连、传送）
func (s *RemoteSmoother) Reset() {
	s.buffer = s.buffer[:0]
	s.timeline = 0
	s.timescale = 1
	s.initialized = false
}

// Len 缓冲中的快照数
func (s *RemoteSmoother) Len() int {
	return len(s.buffer)
}

// Timeline 当前渲染的服务器时间
func (s *RemoteSmoother) Timeline() float64 {
	return s.timeline
}

// Timescale 当前播放速度
func (s *RemoteSmoother) Timescale() float64 {
	return s.timescale
}

package core

// InputRecord 一个 tick 的离散输入
type InputRecord struct {
	Tick Tick
	Move Vec2 // 每个轴只取 -1/0/+1：X 横移，Y 前后
	Look Vec2 // 本 tick 内视角增量的平均值：X 水平，Y 垂直
	Jump bool
}

// InputSampler 把每帧的连续输入转换成每 tick 一条 InputRecord。
// 两个 tick 之间可能有多次鼠标采样，全部进入环形缓冲，采样时取平均。
type InputSampler struct {
	look  [LookSampleCapacity]Vec2
	head  int // 下一个写入位置
	count int

	moveX, moveY float64
	jump         bool
}

// NewInputSampler 创建输入采样器
func NewInputSampler() *InputSampler {
	return &InputSampler{}
}

// SetContinuousInput 每个渲染帧调用（一个 tick 内可能调用多次）。
// 移动轴取最新值；跳跃在本 tick 内只要按下过就保留。
func (s *InputSampler) SetContinuousInput(moveX, moveY, lookX, lookY float64, jump bool) {
	s.moveX = finiteOr(moveX, 0)
	s.moveY = finiteOr(moveY, 0)
	s.jump = s.jump || jump

	s.look[s.head] = Vec2{X: finiteOr(lookX, 0), Y: finiteOr(lookY, 0)}
	s.head = (s.head + 1) % LookSampleCapacity
	if s.count < LookSampleCapacity {
		s.count++
	}
}

// AverageLook 缓冲内视角增量的平均值。没有采样时 0/0 得到 NaN，按 0 处理。
func (s *InputSampler) AverageLook() Vec2 {
	var sum Vec2
	for i := 0; i < s.count; i++ {
		sum = sum.Add(s.look[i])
	}
	n := float64(s.count)
	return Vec2{
		X: finiteOr(sum.X/n, 0),
		Y: finiteOr(sum.Y/n, 0),
	}
}

// Sample 在 tick 边界调用：产出本 tick 的输入并清空缓冲
func (s *InputSampler) Sample(tick Tick) InputRecord {
	rec := InputRecord{
		Tick: tick,
		Move: Vec2{X: sign(s.moveX), Y: sign(s.moveY)},
		Look: s.AverageLook(),
		Jump: s.jump,
	}
	s.head = 0
	s.count = 0
	s.jump = false
	return rec
}

// Sanitize 清理来自网络的输入：移动轴截断为符号，非有限视角置零
func (r InputRecord) Sanitize() InputRecord {
	r.Move = Vec2{X: sign(r.Move.X), Y: sign(r.Move.Y)}
	r.Look = Vec2{X: finiteOr(r.Look.X, 0), Y: finiteOr(r.Look.Y, 0)}
	return r
}

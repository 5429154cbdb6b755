package core

import "time"

// Tick 固定步序号，客户端与服务器共用同一套编号
type Tick uint32

// TickClock 维护当前 tick，并接受服务器下发的节奏修正。
// 修正不会直接改写计数器（那会打乱预测重放），而是在之后的若干步中
// 多跑一步或少跑一步。
type TickClock struct {
	current     Tick
	pending     int // >0 需要追加的步数，<0 需要跳过的步数
	sinceAdjust int
}

// NewTickClock 从指定 tick 开始计数
func NewTickClock(start Tick) *TickClock {
	return &TickClock{current: start, sinceAdjust: AdjustInterval}
}

// Current 当前 tick
func (c *TickClock) Current() Tick {
	return c.current
}

// Advance 前进一步并返回新的 tick
func (c *TickClock) Advance() Tick {
	c.current++
	return c.current
}

// Reset 重置计数器并丢弃未执行的修正（传送、重连）
func (c *TickClock) Reset(t Tick) {
	c.current = t
	c.pending = 0
	c.sinceAdjust = AdjustInterval
}

// AdjustTiming 记录服务器的节奏提示：+1 加快，-1 放慢，0 保持。
// 超出范围的值会被钳制，不会报错。
func (c *TickClock) AdjustTiming(steps int8) {
	s := int(steps)
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	c.pending += s
	if c.pending > MaxPendingAdjust {
		c.pending = MaxPendingAdjust
	} else if c.pending < -MaxPendingAdjust {
		c.pending = -MaxPendingAdjust
	}
}

// Pending 未执行的修正步数
func (c *TickClock) Pending() int {
	return c.pending
}

// Due 对应一个名义固定步，调用方此次应执行 Advance 的次数：
// 通常为 1；消耗一次正修正时为 2，消耗一次负修正时为 0。
// 两次修正之间至少间隔 AdjustInterval 个名义步。
func (c *TickClock) Due() int {
	if c.sinceAdjust < AdjustInterval || c.pending == 0 {
		c.sinceAdjust++
		return 1
	}
	c.sinceAdjust = 0
	if c.pending > 0 {
		c.pending--
		return 2
	}
	c.pending++
	return 0
}

// Accumulator 把真实流逝时间换算为名义固定步数
type Accumulator struct {
	step     time.Duration
	acc      time.Duration
	maxSteps int
}

// NewAccumulator step 为固定步长；maxSteps 限制单帧最多追赶的步数
func NewAccumulator(step time.Duration, maxSteps int) *Accumulator {
	if maxSteps <= 0 {
		maxSteps = 1
	}
	return &Accumulator{step: step, maxSteps: maxSteps}
}

// Add 累加流逝时间，返回本帧应执行的名义步数
func (a *Accumulator) Add(elapsed time.Duration) int {
	if elapsed < 0 {
		elapsed = 0
	}
	a.acc += elapsed
	steps := int(a.acc / a.step)
	a.acc -= time.Duration(steps) * a.step
	if steps > a.maxSteps {
		// 卡顿太久时丢弃积压，避免越追越慢
		steps = a.maxSteps
	}
	return steps
}

// Reset 清空累积时间
func (a *Accumulator) Reset() {
	a.acc = 0
}

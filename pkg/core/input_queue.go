package core

// InputQueue 服务器端每个玩家的输入队列（FIFO，有上限）。
// 只接受 tick 严格大于已接受最大 tick 的记录，客户端重复发送的历史会被自然去重。
type InputQueue struct {
	items        []InputRecord
	capacity     int
	lastAccepted Tick
	hasAccepted  bool
}

// NewInputQueue capacity<=0 时使用 InputQueueCapacity
func NewInputQueue(capacity int) *InputQueue {
	if capacity <= 0 {
		capacity = InputQueueCapacity
	}
	return &InputQueue{
		items:    make([]InputRecord, 0, capacity),
		capacity: capacity,
	}
}

// Enqueue 按顺序尝试加入记录。
// accepted 为接受的条数，evicted 为因超出容量被挤掉的最旧条数。
func (q *InputQueue) Enqueue(records ...InputRecord) (accepted, evicted int) {
	for _, rec := range records {
		if q.hasAccepted && rec.Tick <= q.lastAccepted {
			continue
		}
		q.items = append(q.items, rec.Sanitize())
		q.lastAccepted = rec.Tick
		q.hasAccepted = true
		accepted++

		if over := len(q.items) - q.capacity; over > 0 {
			q.items = append(q.items[:0], q.items[over:]...)
			evicted += over
		}
	}
	return accepted, evicted
}

// Dequeue 取出最旧的记录
func (q *InputQueue) Dequeue() (InputRecord, bool) {
	if len(q.items) == 0 {
		return InputRecord{}, false
	}
	rec := q.items[0]
	q.items = append(q.items[:0], q.items[1:]...)
	return rec, true
}

func (q *InputQueue) Len() int {
	return len(q.items)
}

func (q *InputQueue) Capacity() int {
	return q.capacity
}

// LastAccepted 已接受的最大 tick；ok 为 false 表示尚未接受过任何输入
func (q *InputQueue) LastAccepted() (Tick, bool) {
	return q.lastAccepted, q.hasAccepted
}

// Clear 清空队列，保留去重水位
func (q *InputQueue) Clear() {
	q.items = q.items[:0]
}

// ResetTo 清空队列并把去重水位设为 tick（传送后旧输入不再生效）
func (q *InputQueue) ResetTo(tick Tick) {
	q.items = q.items[:0]
	q.lastAccepted = tick
	q.hasAccepted = true
}

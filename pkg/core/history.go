package core

// PredictionHistory 客户端尚未被服务器确认的输入，按 tick 递增排列（最旧在前）
type PredictionHistory struct {
	records []InputRecord
	limit   int
}

// NewPredictionHistory limit<=0 时使用 MaxHistory
func NewPredictionHistory(limit int) *PredictionHistory {
	if limit <= 0 {
		limit = MaxHistory
	}
	return &PredictionHistory{
		records: make([]InputRecord, 0, limit),
		limit:   limit,
	}
}

// Append 追加一条输入。tick 不大于最新记录时拒绝。
func (h *PredictionHistory) Append(rec InputRecord) bool {
	if n := len(h.records); n > 0 && rec.Tick <= h.records[n-1].Tick {
		return false
	}
	h.records = append(h.records, rec)
	if len(h.records) > h.limit {
		h.records = append(h.records[:0], h.records[len(h.records)-h.limit:]...)
	}
	return true
}

// Acknowledge 丢弃所有 tick <= ack 的记录，返回丢弃数量
func (h *PredictionHistory) Acknowledge(ack Tick) int {
	cut := 0
	for cut < len(h.records) && h.records[cut].Tick <= ack {
		cut++
	}
	if cut > 0 {
		h.records = append(h.records[:0], h.records[cut:]...)
	}
	return cut
}

// Pending 所有未确认的记录（只读视图，下次修改前有效）
func (h *PredictionHistory) Pending() []InputRecord {
	return h.records
}

// Latest 最新的 n 条记录（复制）
func (h *PredictionHistory) Latest(n int) []InputRecord {
	if n > len(h.records) {
		n = len(h.records)
	}
	if n <= 0 {
		return nil
	}
	out := make([]InputRecord, n)
	copy(out, h.records[len(h.records)-n:])
	return out
}

// Front 最旧的记录
func (h *PredictionHistory) Front() (InputRecord, bool) {
	if len(h.records) == 0 {
		return InputRecord{}, false
	}
	return h.records[0], true
}

func (h *PredictionHistory) Len() int {
	return len(h.records)
}

func (h *PredictionHistory) Clear() {
	h.records = h.records[:0]
}

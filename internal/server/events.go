package server

import "shooter/pkg/core"

type EventKind int

const (
	EventUnknown EventKind = iota
	EventJoin
	EventInput
	EventPing
	EventPong
	EventReconnect
)

func (k EventKind) String() string {
	switch k {
	case EventJoin:
		return "join"
	case EventInput:
		return "input"
	case EventPing:
		return "ping"
	case EventPong:
		return "pong"
	case EventReconnect:
		return "reconnect"
	default:
		return "unknown"
	}
}

type JoinEvent struct {
	PlayerName string
	RoomID     string // 房间 ID，空字符串表示自动分配到默认房间
}

type InputEvent struct {
	Timestamp float64 // 客户端批次时间
	Epoch     uint32
	Inputs    []core.InputRecord
}

type PingEvent struct {
	ClientTime int64
}

type PongEvent struct {
	ClientTime int64
	ServerTime int64
}

type ReconnectEvent struct {
	SessionToken string
}

// ServerEvent 服务器收到的一条消息，只填与 Kind 对应的字段
type ServerEvent struct {
	Kind      EventKind
	Join      *JoinEvent
	Input     *InputEvent
	Ping      *PingEvent
	Pong      *PongEvent
	Reconnect *ReconnectEvent
}

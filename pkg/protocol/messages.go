package protocol

import (
	"fmt"

	"shooter/pkg/core"
)

// MessageType 消息类型，决定 Payload 的解析方式
type MessageType uint8

const (
	MessageTypeUnspecified MessageType = iota
	MessageTypeJoinRequest
	MessageTypeJoinResponse
	MessageTypeInputBatch
	MessageTypeStateUpdate
	MessageTypeRemoteSnapshot
	MessageTypeTeleport
	MessageTypePlayerJoin
	MessageTypePlayerLeave
	MessageTypePing
	MessageTypePong
	MessageTypeReconnectRequest
	MessageTypeReconnectResponse
)

var messageTypeNames = map[MessageType]string{
	MessageTypeUnspecified:       "Unspecified",
	MessageTypeJoinRequest:       "JoinRequest",
	MessageTypeJoinResponse:      "JoinResponse",
	MessageTypeInputBatch:        "InputBatch",
	MessageTypeStateUpdate:       "StateUpdate",
	MessageTypeRemoteSnapshot:    "RemoteSnapshot",
	MessageTypeTeleport:          "Teleport",
	MessageTypePlayerJoin:        "PlayerJoin",
	MessageTypePlayerLeave:       "PlayerLeave",
	MessageTypePing:              "Ping",
	MessageTypePong:              "Pong",
	MessageTypeReconnectRequest:  "ReconnectRequest",
	MessageTypeReconnectResponse: "ReconnectResponse",
}

func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("MessageType(%d)", uint8(t))
}

// Channel 逻辑通道。可靠通道保证送达和顺序，不可靠通道允许丢弃。
type Channel uint8

const (
	ChannelReliable Channel = iota
	ChannelUnreliable
)

func (c Channel) String() string {
	if c == ChannelUnreliable {
		return "unreliable"
	}
	return "reliable"
}

// ChannelOf 每种消息固定走一个通道。
// 高频且可被下一条覆盖的消息（输入、状态、快照、心跳）走不可靠通道。
func ChannelOf(t MessageType) Channel {
	switch t {
	case MessageTypeInputBatch, MessageTypeStateUpdate, MessageTypeRemoteSnapshot,
		MessageTypePing, MessageTypePong:
		return ChannelUnreliable
	default:
		return ChannelReliable
	}
}

// MaxInputsPerBatch 一个 InputBatch 最多携带的输入条数
const MaxInputsPerBatch = 4

// Packet 外层信封。Timestamp 为发送方的批次时间（秒），
// 远端快照不单独携带时间戳，直接使用它。
type Packet struct {
	Type      MessageType
	Timestamp float64
	Payload   []byte
}

// Message 所有可编码的消息
type Message interface {
	MessageType() MessageType
	appendProto(b []byte) []byte
	unmarshalProto(b []byte) error
}

// PlayerInfo 其他玩家的基本信息（加入通知、房间快照）
type PlayerInfo struct {
	PlayerID int32
	Name     string
	Position core.Vec3
	Facing   core.Vec2
}

type JoinRequest struct {
	PlayerName string
	RoomID     string // 空字符串表示自动分配
}

type JoinResponse struct {
	Success       bool
	PlayerID      int32
	ErrorMessage  string
	TickRate      int32
	SnapshotEvery int32 // 快照广播间隔（tick）
	Spawn         core.MotionState
	SessionToken  string
	RoomID        string
	Players       []PlayerInfo
}

// InputBatch 最近若干 tick 的输入，重叠发送以容忍丢包
type InputBatch struct {
	Inputs []core.InputRecord
	Epoch  uint32 // 发送方已知的传送代数
}

// StateUpdate 权威状态，只发给拥有者
type StateUpdate struct {
	State core.MotionState
}

// RemoteSnapshot 广播给其他观察者，只含位置和朝向
type RemoteSnapshot struct {
	PlayerID int32
	Position core.Vec3
	Rotation core.Vec2
}

// Teleport 重置某个身体的位置，所有客户端清空该身体的缓冲
type Teleport struct {
	PlayerID int32
	State    core.MotionState
	Epoch    uint32 // 传送后的新代数，之后的输入批次都要带上它
}

type PlayerJoin struct {
	Player PlayerInfo
}

type PlayerLeave struct {
	PlayerID int32
}

type Ping struct {
	ClientTime int64
}

type Pong struct {
	ClientTime int64
	ServerTime int64
	ServerTick uint32
}

type ReconnectRequest struct {
	SessionToken string
}

type ReconnectResponse struct {
	Success      bool
	ErrorMessage string
	PlayerID     int32
	State        core.MotionState
	Players      []PlayerInfo
	Epoch        uint32
}

func (*JoinRequest) MessageType() MessageType       { return MessageTypeJoinRequest }
func (*JoinResponse) MessageType() MessageType      { return MessageTypeJoinResponse }
func (*InputBatch) MessageType() MessageType        { return MessageTypeInputBatch }
func (*StateUpdate) MessageType() MessageType       { return MessageTypeStateUpdate }
func (*RemoteSnapshot) MessageType() MessageType    { return MessageTypeRemoteSnapshot }
func (*Teleport) MessageType() MessageType          { return MessageTypeTeleport }
func (*PlayerJoin) MessageType() MessageType        { return MessageTypePlayerJoin }
func (*PlayerLeave) MessageType() MessageType       { return MessageTypePlayerLeave }
func (*Ping) MessageType() MessageType              { return MessageTypePing }
func (*Pong) MessageType() MessageType              { return MessageTypePong }
func (*ReconnectRequest) MessageType() MessageType  { return MessageTypeReconnectRequest }
func (*ReconnectResponse) MessageType() MessageType { return MessageTypeReconnectResponse }

// newMessage 按类型创建空消息，用于解码
var newMessage = map[MessageType]func() Message{
	MessageTypeJoinRequest:       func() Message { return &JoinRequest{} },
	MessageTypeJoinResponse:      func() Message { return &JoinResponse{} },
	MessageTypeInputBatch:        func() Message { return &InputBatch{} },
	MessageTypeStateUpdate:       func() Message { return &StateUpdate{} },
	MessageTypeRemoteSnapshot:    func() Message { return &RemoteSnapshot{} },
	MessageTypeTeleport:          func() Message { return &Teleport{} },
	MessageTypePlayerJoin:        func() Message { return &PlayerJoin{} },
	MessageTypePlayerLeave:       func() Message { return &PlayerLeave{} },
	MessageTypePing:              func() Message { return &Ping{} },
	MessageTypePong:              func() Message { return &Pong{} },
	MessageTypeReconnectRequest:  func() Message { return &ReconnectRequest{} },
	MessageTypeReconnectResponse: func() Message { return &ReconnectResponse{} },
}

package protocol

import (
	"fmt"

	"shooter/pkg/core"
)

// ========== 辅助构造方法 ==========

// NewPacket 把消息编码进信封
func NewPacket(msg Message, timestamp float64) *Packet {
	return &Packet{
		Type:      msg.MessageType(),
		Timestamp: timestamp,
		Payload:   msg.appendProto(nil),
	}
}

// Encode 编码消息并序列化信封，返回可直接写入帧的字节
func Encode(msg Message, timestamp float64) []byte {
	return MarshalPacket(NewPacket(msg, timestamp))
}

// NewInputBatchPacket 构造输入批次，超出 MaxInputsPerBatch 时只保留最新的记录
func NewInputBatchPacket(inputs []core.InputRecord, epoch uint32, timestamp float64) *Packet {
	if len(inputs) > MaxInputsPerBatch {
		inputs = inputs[len(inputs)-MaxInputsPerBatch:]
	}
	return NewPacket(&InputBatch{Inputs: inputs, Epoch: epoch}, timestamp)
}

// NewStateUpdatePacket 构造权威状态消息
func NewStateUpdatePacket(state core.MotionState, timestamp float64) *Packet {
	return NewPacket(&StateUpdate{State: state}, timestamp)
}

// NewRemoteSnapshotPacket 构造远端快照消息
func NewRemoteSnapshotPacket(playerID int32, pos core.Vec3, rot core.Vec2, timestamp float64) *Packet {
	return NewPacket(&RemoteSnapshot{PlayerID: playerID, Position: pos, Rotation: rot}, timestamp)
}

// NewTeleportPacket 构造传送消息
func NewTeleportPacket(playerID int32, state core.MotionState, epoch uint32, timestamp float64) *Packet {
	return NewPacket(&Teleport{PlayerID: playerID, State: state, Epoch: epoch}, timestamp)
}

// NewPingPacket 构造心跳消息包
func NewPingPacket(clientTime int64) *Packet {
	return NewPacket(&Ping{ClientTime: clientTime}, 0)
}

// NewPongPacket 构造心跳响应消息包
func NewPongPacket(clientTime, serverTime int64, serverTick uint32) *Packet {
	return NewPacket(&Pong{ClientTime: clientTime, ServerTime: serverTime, ServerTick: serverTick}, 0)
}

// ========== 序列化与反序列化 ==========

// MarshalPacket 将 Packet 对象转换为字节切片
func MarshalPacket(pkt *Packet) []byte {
	b := appendVarint(nil, 1, uint64(pkt.Type))
	b = appendDouble(b, 2, pkt.Timestamp)
	return appendBytes(b, 3, pkt.Payload)
}

// UnmarshalPacket 将字节切片转换为 Packet 对象
func UnmarshalPacket(data []byte) (*Packet, error) {
	pkt := &Packet{}
	d := &decoder{b: data}
	for {
		num, ok := d.next()
		if !ok {
			break
		}
		switch num {
		case 1:
			pkt.Type = MessageType(d.varint())
		case 2:
			pkt.Timestamp = d.double()
		case 3:
			pkt.Payload = d.bytes()
		default:
			d.skip()
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	return pkt, nil
}

// ========== 消息解析辅助 ==========

// Decode 按信封类型解析 Payload
func Decode(pkt *Packet) (Message, error) {
	factory, ok := newMessage[pkt.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownMessage, pkt.Type)
	}
	msg := factory()
	if err := msg.unmarshalProto(pkt.Payload); err != nil {
		return nil, fmt.Errorf("解析 %v 失败: %w", pkt.Type, err)
	}
	return msg, nil
}

// DecodeBytes 反序列化信封并解析 Payload
func DecodeBytes(data []byte) (*Packet, Message, error) {
	pkt, err := UnmarshalPacket(data)
	if err != nil {
		return nil, nil, fmt.Errorf("解析包失败: %w", err)
	}
	msg, err := Decode(pkt)
	if err != nil {
		return pkt, nil, err
	}
	return pkt, msg, nil
}

// MarshalState 单独序列化一个运动状态，用于持久化
func MarshalState(s core.MotionState) []byte {
	return appendMotionState(nil, s)
}

// UnmarshalState MarshalState 的逆操作
func UnmarshalState(data []byte) (core.MotionState, error) {
	d := &decoder{b: data}
	s := readMotionState(d)
	return s, d.err
}

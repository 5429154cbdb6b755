package server

import (
	"fmt"

	"shooter/pkg/protocol"
)

// DecodePacket 解析服务器收到的数据包。
// 只应由服务器发出的消息类型返回 EventUnknown。
func DecodePacket(data []byte) (*ServerEvent, error) {
	pkt, msg, err := protocol.DecodeBytes(data)
	if err != nil {
		return nil, fmt.Errorf("解析包失败: %w", err)
	}

	switch m := msg.(type) {
	case *protocol.JoinRequest:
		return &ServerEvent{
			Kind: EventJoin,
			Join: &JoinEvent{PlayerName: m.PlayerName, RoomID: m.RoomID},
		}, nil

	case *protocol.InputBatch:
		return &ServerEvent{
			Kind:  EventInput,
			Input: &InputEvent{Timestamp: pkt.Timestamp, Epoch: m.Epoch, Inputs: m.Inputs},
		}, nil

	case *protocol.Ping:
		return &ServerEvent{
			Kind: EventPing,
			Ping: &PingEvent{ClientTime: m.ClientTime},
		}, nil

	case *protocol.Pong:
		return &ServerEvent{
			Kind: EventPong,
			Pong: &PongEvent{ClientTime: m.ClientTime, ServerTime: m.ServerTime},
		}, nil

	case *protocol.ReconnectRequest:
		return &ServerEvent{
			Kind:      EventReconnect,
			Reconnect: &ReconnectEvent{SessionToken: m.SessionToken},
		}, nil

	default:
		return &ServerEvent{Kind: EventUnknown}, nil
	}
}

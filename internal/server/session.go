package server

import (
	"shooter/pkg/core"
	"shooter/pkg/protocol"
)

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -destination=./mocks/session_mock.go -package=mocks . Session,PoseStore

// Session 房间看到的客户端连接
type Session interface {
	ID() int32
	// Send 按通道发送一帧。不可靠通道在队列满时直接丢弃，可靠通道返回 ErrSendQueueFull。
	Send(ch protocol.Channel, data []byte) error
	Close()
	CloseWithoutNotify()
	SetPlayerID(id int32)
	SetRoomID(roomID string)
	RoomID() string
}

// PoseStore 按玩家名保存最后的位置，重新加入时恢复
type PoseStore interface {
	Save(name string, state core.MotionState) error
	Load(name string) (core.MotionState, bool, error)
}

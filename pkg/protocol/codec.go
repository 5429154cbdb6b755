package protocol

import "shooter/pkg/core"

// 各消息的 proto3 编解码。字段编号与 api/proto/shooter/v1/game.proto 保持一致。

func (m *JoinRequest) appendProto(b []byte) []byte {
	b = appendString(b, 1, m.PlayerName)
	return appendString(b, 2, m.RoomID)
}

func (m *JoinRequest) unmarshalProto(b []byte) error {
	d := &decoder{b: b}
	for {
		num, ok := d.next()
		if !ok {
			return d.err
		}
		switch num {
		case 1:
			m.PlayerName = d.string()
		case 2:
			m.RoomID = d.string()
		default:
			d.skip()
		}
	}
}

func (m *JoinResponse) appendProto(b []byte) []byte {
	b = appendBool(b, 1, m.Success)
	b = appendSint(b, 2, int64(m.PlayerID))
	b = appendString(b, 3, m.ErrorMessage)
	b = appendVarint(b, 4, uint64(m.TickRate))
	b = appendVarint(b, 5, uint64(m.SnapshotEvery))
	b = appendMessage(b, 6, false, func(b []byte) []byte { return appendMotionState(b, m.Spawn) })
	b = appendString(b, 7, m.SessionToken)
	b = appendString(b, 8, m.RoomID)
	return appendPlayers(b, 9, m.Players)
}

func (m *JoinResponse) unmarshalProto(b []byte) error {
	d := &decoder{b: b}
	for {
		num, ok := d.next()
		if !ok {
			return d.err
		}
		switch num {
		case 1:
			m.Success = d.bool()
		case 2:
			m.PlayerID = int32(d.sint())
		case 3:
			m.ErrorMessage = d.string()
		case 4:
			m.TickRate = int32(d.varint())
		case 5:
			m.SnapshotEvery = int32(d.varint())
		case 6:
			d.message(func(sub *decoder) { m.Spawn = readMotionState(sub) })
		case 7:
			m.SessionToken = d.string()
		case 8:
			m.RoomID = d.string()
		case 9:
			d.message(func(sub *decoder) { m.Players = append(m.Players, readPlayerInfo(sub)) })
		default:
			d.skip()
		}
	}
}

func (m *InputBatch) appendProto(b []byte) []byte {
	for _, in := range m.Inputs {
		b = appendMessage(b, 1, true, func(b []byte) []byte { return appendInputRecord(b, in) })
	}
	return appendVarint(b, 2, uint64(m.Epoch))
}

// unmarshalProto 超出 MaxInputsPerBatch 的记录直接丢弃（只保留最新的几条）
func (m *InputBatch) unmarshalProto(b []byte) error {
	d := &decoder{b: b}
	for {
		num, ok := d.next()
		if !ok {
			if len(m.Inputs) > MaxInputsPerBatch {
				m.Inputs = m.Inputs[len(m.Inputs)-MaxInputsPerBatch:]
			}
			return d.err
		}
		switch num {
		case 1:
			d.message(func(sub *decoder) { m.Inputs = append(m.Inputs, readInputRecord(sub)) })
		case 2:
			m.Epoch = uint32(d.varint())
		default:
			d.skip()
		}
	}
}

func (m *StateUpdate) appendProto(b []byte) []byte {
	return appendMessage(b, 1, false, func(b []byte) []byte { return appendMotionState(b, m.State) })
}

func (m *StateUpdate) unmarshalProto(b []byte) error {
	return decodeState(b, &m.State)
}

func (m *RemoteSnapshot) appendProto(b []byte) []byte {
	b = appendSint(b, 1, int64(m.PlayerID))
	b = appendMessage(b, 2, false, func(b []byte) []byte { return appendVec3(b, m.Position) })
	return appendMessage(b, 3, false, func(b []byte) []byte { return appendVec2(b, m.Rotation) })
}

func (m *RemoteSnapshot) unmarshalProto(b []byte) error {
	d := &decoder{b: b}
	for {
		num, ok := d.next()
		if !ok {
			return d.err
		}
		switch num {
		case 1:
			m.PlayerID = int32(d.sint())
		case 2:
			d.message(func(sub *decoder) { m.Position = readVec3(sub) })
		case 3:
			d.message(func(sub *decoder) { m.Rotation = readVec2(sub) })
		default:
			d.skip()
		}
	}
}

func (m *Teleport) appendProto(b []byte) []byte {
	b = appendSint(b, 1, int64(m.PlayerID))
	b = appendMessage(b, 2, false, func(b []byte) []byte { return appendMotionState(b, m.State) })
	return appendVarint(b, 3, uint64(m.Epoch))
}

func (m *Teleport) unmarshalProto(b []byte) error {
	d := &decoder{b: b}
	for {
		num, ok := d.next()
		if !ok {
			return d.err
		}
		switch num {
		case 1:
			m.PlayerID = int32(d.sint())
		case 2:
			d.message(func(sub *decoder) { m.State = readMotionState(sub) })
		case 3:
			m.Epoch = uint32(d.varint())
		default:
			d.skip()
		}
	}
}

func (m *PlayerJoin) appendProto(b []byte) []byte {
	return appendMessage(b, 1, false, func(b []byte) []byte { return appendPlayerInfo(b, m.Player) })
}

func (m *PlayerJoin) unmarshalProto(b []byte) error {
	d := &decoder{b: b}
	for {
		num, ok := d.next()
		if !ok {
			return d.err
		}
		switch num {
		case 1:
			d.message(func(sub *decoder) { m.Player = readPlayerInfo(sub) })
		default:
			d.skip()
		}
	}
}

func (m *PlayerLeave) appendProto(b []byte) []byte {
	return appendSint(b, 1, int64(m.PlayerID))
}

func (m *PlayerLeave) unmarshalProto(b []byte) error {
	d := &decoder{b: b}
	for {
		num, ok := d.next()
		if !ok {
			return d.err
		}
		switch num {
		case 1:
			m.PlayerID = int32(d.sint())
		default:
			d.skip()
		}
	}
}

func (m *Ping) appendProto(b []byte) []byte {
	return appendSint(b, 1, m.ClientTime)
}

func (m *Ping) unmarshalProto(b []byte) error {
	d := &decoder{b: b}
	for {
		num, ok := d.next()
		if !ok {
			return d.err
		}
		switch num {
		case 1:
			m.ClientTime = d.sint()
		default:
			d.skip()
		}
	}
}

func (m *Pong) appendProto(b []byte) []byte {
	b = appendSint(b, 1, m.ClientTime)
	b = appendSint(b, 2, m.ServerTime)
	return appendVarint(b, 3, uint64(m.ServerTick))
}

func (m *Pong) unmarshalProto(b []byte) error {
	d := &decoder{b: b}
	for {
		num, ok := d.next()
		if !ok {
			return d.err
		}
		switch num {
		case 1:
			m.ClientTime = d.sint()
		case 2:
			m.ServerTime = d.sint()
		case 3:
			m.ServerTick = uint32(d.varint())
		default:
			d.skip()
		}
	}
}

func (m *ReconnectRequest) appendProto(b []byte) []byte {
	return appendString(b, 1, m.SessionToken)
}

func (m *ReconnectRequest) unmarshalProto(b []byte) error {
	d := &decoder{b: b}
	for {
		num, ok := d.next()
		if !ok {
			return d.err
		}
		switch num {
		case 1:
			m.SessionToken = d.string()
		default:
			d.skip()
		}
	}
}

func (m *ReconnectResponse) appendProto(b []byte) []byte {
	b = appendBool(b, 1, m.Success)
	b = appendString(b, 2, m.ErrorMessage)
	b = appendSint(b, 3, int64(m.PlayerID))
	b = appendMessage(b, 4, false, func(b []byte) []byte { return appendMotionState(b, m.State) })
	b = appendPlayers(b, 5, m.Players)
	return appendVarint(b, 6, uint64(m.Epoch))
}

func (m *ReconnectResponse) unmarshalProto(b []byte) error {
	d := &decoder{b: b}
	for {
		num, ok := d.next()
		if !ok {
			return d.err
		}
		switch num {
		case 1:
			m.Success = d.bool()
		case 2:
			m.ErrorMessage = d.string()
		case 3:
			m.PlayerID = int32(d.sint())
		case 4:
			d.message(func(sub *decoder) { m.State = readMotionState(sub) })
		case 5:
			d.message(func(sub *decoder) { m.Players = append(m.Players, readPlayerInfo(sub)) })
		case 6:
			m.Epoch = uint32(d.varint())
		default:
			d.skip()
		}
	}
}

func decodeState(b []byte, s *core.MotionState) error {
	d := &decoder{b: b}
	for {
		num, ok := d.next()
		if !ok {
			return d.err
		}
		switch num {
		case 1:
			d.message(func(sub *decoder) { *s = readMotionState(sub) })
		default:
			d.skip()
		}
	}
}

package protocol

import (
	"google.golang.org/protobuf/encoding/protowire"

	"shooter/pkg/core"
)

// ========== 向量 ==========

func appendVec3(b []byte, v core.Vec3) []byte {
	b = appendDouble(b, 1, v.X)
	b = appendDouble(b, 2, v.Y)
	return appendDouble(b, 3, v.Z)
}

func readVec3(d *decoder) core.Vec3 {
	var v core.Vec3
	for {
		num, ok := d.next()
		if !ok {
			return v
		}
		switch num {
		case 1:
			v.X = d.double()
		case 2:
			v.Y = d.double()
		case 3:
			v.Z = d.double()
		default:
			d.skip()
		}
	}
}

func appendVec2(b []byte, v core.Vec2) []byte {
	b = appendDouble(b, 1, v.X)
	return appendDouble(b, 2, v.Y)
}

func readVec2(d *decoder) core.Vec2 {
	var v core.Vec2
	for {
		num, ok := d.next()
		if !ok {
			return v
		}
		switch num {
		case 1:
			v.X = d.double()
		case 2:
			v.Y = d.double()
		default:
			d.skip()
		}
	}
}

// ========== InputRecord ==========

func appendInputRecord(b []byte, in core.InputRecord) []byte {
	b = appendVarint(b, 1, uint64(in.Tick))
	b = appendMessage(b, 2, false, func(b []byte) []byte { return appendVec2(b, in.Move) })
	b = appendMessage(b, 3, false, func(b []byte) []byte { return appendVec2(b, in.Look) })
	return appendBool(b, 4, in.Jump)
}

func readInputRecord(d *decoder) core.InputRecord {
	var in core.InputRecord
	for {
		num, ok := d.next()
		if !ok {
			return in
		}
		switch num {
		case 1:
			in.Tick = core.Tick(d.varint())
		case 2:
			d.message(func(sub *decoder) { in.Move = readVec2(sub) })
		case 3:
			d.message(func(sub *decoder) { in.Look = readVec2(sub) })
		case 4:
			in.Jump = d.bool()
		default:
			d.skip()
		}
	}
}

// ========== MotionState ==========

func appendMotionState(b []byte, s core.MotionState) []byte {
	b = appendVarint(b, 1, uint64(s.Tick))
	b = appendMessage(b, 2, false, func(b []byte) []byte { return appendVec3(b, s.Position) })
	b = appendMessage(b, 3, false, func(b []byte) []byte { return appendVec3(b, s.Velocity) })
	b = appendMessage(b, 4, false, func(b []byte) []byte { return appendVec2(b, s.Facing) })
	b = appendBool(b, 5, s.Jump)
	return appendSint(b, 6, int64(s.TimingAdjustment))
}

func readMotionState(d *decoder) core.MotionState {
	var s core.MotionState
	for {
		num, ok := d.next()
		if !ok {
			return s
		}
		switch num {
		case 1:
			s.Tick = core.Tick(d.varint())
		case 2:
			d.message(func(sub *decoder) { s.Position = readVec3(sub) })
		case 3:
			d.message(func(sub *decoder) { s.Velocity = readVec3(sub) })
		case 4:
			d.message(func(sub *decoder) { s.Facing = readVec2(sub) })
		case 5:
			s.Jump = d.bool()
		case 6:
			s.TimingAdjustment = clampAdjustment(d.sint())
		default:
			d.skip()
		}
	}
}

// clampAdjustment 节奏提示只允许 -1/0/+1
func clampAdjustment(v int64) int8 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// ========== PlayerInfo ==========

func appendPlayerInfo(b []byte, p PlayerInfo) []byte {
	b = appendSint(b, 1, int64(p.PlayerID))
	b = appendString(b, 2, p.Name)
	b = appendMessage(b, 3, false, func(b []byte) []byte { return appendVec3(b, p.Position) })
	return appendMessage(b, 4, false, func(b []byte) []byte { return appendVec2(b, p.Facing) })
}

func readPlayerInfo(d *decoder) PlayerInfo {
	var p PlayerInfo
	for {
		num, ok := d.next()
		if !ok {
			return p
		}
		switch num {
		case 1:
			p.PlayerID = int32(d.sint())
		case 2:
			p.Name = d.string()
		case 3:
			d.message(func(sub *decoder) { p.Position = readVec3(sub) })
		case 4:
			d.message(func(sub *decoder) { p.Facing = readVec2(sub) })
		default:
			d.skip()
		}
	}
}

func appendPlayers(b []byte, num protowire.Number, players []PlayerInfo) []byte {
	for _, p := range players {
		b = appendMessage(b, num, true, func(b []byte) []byte { return appendPlayerInfo(b, p) })
	}
	return b
}

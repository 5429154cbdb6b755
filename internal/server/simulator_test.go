package server

import (
	"math"
	"testing"

	"pgregory.net/rapid"

	"shooter/internal/client"
	"shooter/pkg/core"
)

func sameMotion(a, b core.MotionState) bool {
	bits := func(s core.MotionState) [8]uint64 {
		return [8]uint64{
			math.Float64bits(s.Position.X), math.Float64bits(s.Position.Y), math.Float64bits(s.Position.Z),
			math.Float64bits(s.Velocity.X), math.Float64bits(s.Velocity.Y), math.Float64bits(s.Velocity.Z),
			math.Float64bits(s.Facing.X), math.Float64bits(s.Facing.Y),
		}
	}
	return a.Tick == b.Tick && a.Jump == b.Jump && bits(a) == bits(b)
}

func forward(tick core.Tick) core.InputRecord {
	return core.InputRecord{Tick: tick, Move: core.Vec2{Y: 1}}
}

func TestSimulatorEmptyQueueHolds(t *testing.T) {
	spawn := core.MotionState{Tick: 100, Position: core.Vec3{X: 3}}
	sim := NewSimulator(spawn, nil, nil)

	state, advanced := sim.Tick()
	if advanced {
		t.Fatal("advanced without input")
	}
	if state.TimingAdjustment != -1 {
		t.Errorf("TimingAdjustment = %d, want -1", state.TimingAdjustment)
	}
	if state.Tick != 100 || state.Position != spawn.Position {
		t.Errorf("state changed: %+v", state)
	}
	if sim.State().TimingAdjustment != 0 {
		t.Error("timing hint leaked into the stored state")
	}
}

func TestSimulatorTimingHints(t *testing.T) {
	sim := NewSimulator(core.MotionState{Tick: 100}, nil, nil)
	sim.EnqueueClientInputs([]core.InputRecord{forward(101), forward(102), forward(103)})

	tests := []struct {
		wantTick core.Tick
		wantAdj  int8
		advanced bool
	}{
		{101, 1, true},
		{102, 1, true},
		{103, 0, true},
		{103, -1, false},
	}
	for i, tt := range tests {
		state, advanced := sim.Tick()
		if state.Tick != tt.wantTick || state.TimingAdjustment != tt.wantAdj || advanced != tt.advanced {
			t.Errorf("tick %d: got (tick %d, adj %d, %v), want (%d, %d, %v)",
				i, state.Tick, state.TimingAdjustment, advanced, tt.wantTick, tt.wantAdj, tt.advanced)
		}
	}
}

func TestSimulatorRejectsStaleAndDuplicates(t *testing.T) {
	sim := NewSimulator(core.MotionState{Tick: 100}, nil, nil)

	accepted, _ := sim.EnqueueClientInputs([]core.InputRecord{forward(99), forward(100), forward(101)})
	if accepted != 1 {
		t.Errorf("accepted = %d, want 1 (ticks <= spawn are stale)", accepted)
	}
	accepted, _ = sim.EnqueueClientInputs([]core.InputRecord{forward(101), forward(102)})
	if accepted != 1 {
		t.Errorf("accepted = %d, want 1 (101 is a duplicate)", accepted)
	}
	if sim.QueueLen() != 2 {
		t.Errorf("QueueLen = %d, want 2", sim.QueueLen())
	}
}

func TestSimulatorQueueBounded(t *testing.T) {
	sim := NewSimulator(core.MotionState{}, nil, nil)
	var batch []core.InputRecord
	for i := 1; i <= core.InputQueueCapacity+5; i++ {
		batch = append(batch, forward(core.Tick(i)))
	}
	_, dropped := sim.EnqueueClientInputs(batch)
	if dropped != 5 {
		t.Errorf("dropped = %d, want 5", dropped)
	}
	if sim.QueueLen() != core.InputQueueCapacity {
		t.Errorf("QueueLen = %d, want %d", sim.QueueLen(), core.InputQueueCapacity)
	}
	state, _ := sim.Tick()
	if state.Tick != 6 {
		t.Errorf("oldest surviving input should be tick 6, got %d", state.Tick)
	}
}

func TestSimulatorTeleport(t *testing.T) {
	sim := NewSimulator(core.MotionState{Tick: 10, Velocity: core.Vec3{Z: 5}}, nil, nil)
	sim.EnqueueClientInputs([]core.InputRecord{forward(11), forward(12), forward(13)})
	sim.Tick()

	pos := core.Vec3{X: 50, Z: -50}
	state := sim.Teleport(pos)
	if state.Position != pos || state.Velocity != (core.Vec3{}) {
		t.Errorf("teleport state = %+v", state)
	}
	if state.Tick != 13 {
		t.Errorf("teleport tick = %d, want 13 (last accepted input)", state.Tick)
	}
	if sim.QueueLen() != 0 {
		t.Errorf("queue not cleared: %d", sim.QueueLen())
	}
	if accepted, _ := sim.EnqueueClientInputs([]core.InputRecord{forward(12), forward(13)}); accepted != 0 {
		t.Errorf("pre-teleport inputs accepted: %d", accepted)
	}
	if sim.Epoch() != 1 || sim.AcceptsEpoch(0) || !sim.AcceptsEpoch(1) {
		t.Errorf("epoch after teleport = %d", sim.Epoch())
	}
}

func TestSimulatorDestroyClearsQueue(t *testing.T) {
	sim := NewSimulator(core.MotionState{}, nil, nil)
	sim.EnqueueClientInputs([]core.InputRecord{forward(1), forward(2)})
	sim.Destroy()
	if sim.QueueLen() != 0 {
		t.Errorf("QueueLen = %d after Destroy", sim.QueueLen())
	}
}

// 出生在 tick 100，客户端在 101 向前走一步：两端算出同一个状态，确认后没有可见变化
func TestPredictionMatchesAuthorityAtTick101(t *testing.T) {
	spawn := core.MotionState{Tick: 100, Position: core.Vec3{X: 1, Z: 2}}
	clock := core.NewTickClock(spawn.Tick)
	predictor := client.NewPredictor(spawn, nil, nil, clock)
	sim := NewSimulator(spawn, nil, nil)

	in := core.InputRecord{Tick: clock.Advance(), Move: core.Vec2{Y: 1}, Look: core.Vec2{X: 2.5}}
	predicted := predictor.Step(in)
	if predicted.Tick != 101 {
		t.Fatalf("predicted tick = %d", predicted.Tick)
	}

	sim.EnqueueClientInputs(predictor.OutgoingInputs())
	authority, advanced := sim.Tick()
	if !advanced || authority.TimingAdjustment != 0 {
		t.Fatalf("authority tick: advanced=%v adj=%d", advanced, authority.TimingAdjustment)
	}
	if !sameMotion(predicted, authority) {
		t.Fatalf("authority differs from prediction:\n%+v\n%+v", predicted, authority)
	}

	predictor.OnAuthoritativeState(authority)
	if !sameMotion(predictor.State(), predicted) {
		t.Errorf("visible change after acknowledgement: %+v", predictor.State())
	}
	if stats := predictor.Stats(); stats.Corrections != 0 {
		t.Errorf("Corrections = %d, want 0", stats.Corrections)
	}
	if predictor.PendingCount() != 0 {
		t.Errorf("PendingCount = %d, want 0", predictor.PendingCount())
	}
}

// 输入批次重叠发送：连续丢包不超过窗口时，服务器最终得到与客户端完全相同的轨迹
func TestAuthorityConvergesUnderLoss(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		spawn := core.MotionState{Tick: 100}
		predictor := client.NewPredictor(spawn, nil, nil, nil)
		sim := NewSimulator(spawn, nil, nil)

		n := rapid.IntRange(1, 60).Draw(t, "n")
		axis := rapid.SampledFrom([]float64{-1, 0, 1})
		lost := 0
		for i := 1; i <= n; i++ {
			in := core.InputRecord{
				Tick: spawn.Tick + core.Tick(i),
				Move: core.Vec2{X: axis.Draw(t, "mx"), Y: axis.Draw(t, "my")},
				Look: core.Vec2{X: rapid.Float64Range(-5, 5).Draw(t, "lx")},
				Jump: rapid.Bool().Draw(t, "jump"),
			}
			predictor.Step(in)

			drop := rapid.Bool().Draw(t, "drop") && lost < client.InputSendWindow-1 && i < n
			if drop {
				lost++
			} else {
				lost = 0
				sim.EnqueueClientInputs(predictor.OutgoingInputs())
			}
			if state, advanced := sim.Tick(); advanced {
				predictor.OnAuthoritativeState(state)
			}
		}
		for sim.QueueLen() > 0 {
			state, _ := sim.Tick()
			predictor.OnAuthoritativeState(state)
		}

		if !sameMotion(sim.State(), predictor.State()) {
			t.Fatalf("diverged:\nserver %+v\nclient %+v", sim.State(), predictor.State())
		}
		if c := predictor.Stats().Corrections; c != 0 {
			t.Fatalf("Corrections = %d, want 0", c)
		}
	})
}

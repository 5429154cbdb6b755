package client

import (
	"testing"

	"pgregory.net/rapid"

	"shooter/pkg/core"
)

func drawInputs(t *rapid.T, from core.Tick, n int) []core.InputRecord {
	axis := rapid.SampledFrom([]float64{-1, 0, 1})
	out := make([]core.InputRecord, n)
	for i := range out {
		out[i] = core.InputRecord{
			Tick: from + core.Tick(i),
			Move: core.Vec2{X: axis.Draw(t, "mx"), Y: axis.Draw(t, "my")},
			Look: core.Vec2{
				X: rapid.Float64Range(-5, 5).Draw(t, "lx"),
				Y: rapid.Float64Range(-5, 5).Draw(t, "ly"),
			},
			Jump: rapid.Bool().Draw(t, "jump"),
		}
	}
	return out
}

// authority 用同一个移动函数计算 1..k 的权威状态
func authority(spawn core.MotionState, inputs []core.InputRecord, cfg *core.MovementConfig) core.MotionState {
	state := spawn
	for _, in := range inputs {
		state = core.Step(core.FlatGround{}, state, in, cfg)
	}
	return state
}

func TestPredictorReplayConvergence(t *testing.T) {
	cfg := core.DefaultMovementConfig()
	rapid.Check(t, func(t *rapid.T) {
		spawn := core.MotionState{Tick: 100, Position: core.Vec3{Y: rapid.Float64Range(0, 3).Draw(t, "y")}}
		n := rapid.IntRange(1, 60).Draw(t, "n")
		inputs := drawInputs(t, spawn.Tick+1, n)
		k := rapid.IntRange(0, n).Draw(t, "k")

		p := NewPredictor(spawn, core.FlatGround{}, cfg, core.NewTickClock(spawn.Tick))
		for _, in := range inputs {
			p.Step(in)
		}
		predicted := p.State()

		server := authority(spawn, inputs[:k], cfg)
		if k == 0 {
			// 服务器还没处理任何输入，状态 tick 等于已确认的出生 tick
			if p.OnAuthoritativeState(server) {
				t.Fatal("state at the acknowledged tick should be ignored")
			}
		} else {
			p.OnAuthoritativeState(server)
		}

		if got := p.State(); got != predicted {
			t.Fatalf("replay drifted after ack %d/%d:\n got %+v\nwant %+v", k, n, got, predicted)
		}
		if got := p.PendingCount(); got != n-k {
			t.Fatalf("PendingCount = %d, want %d", got, n-k)
		}
		if p.Stats().Corrections != 0 {
			t.Fatalf("Corrections = %d under perfect agreement", p.Stats().Corrections)
		}
	})
}

func TestPredictorTrimsHistory(t *testing.T) {
	cfg := core.DefaultMovementConfig()
	rapid.Check(t, func(t *rapid.T) {
		p := NewPredictor(core.MotionState{}, nil, cfg, nil)
		n := rapid.IntRange(0, 40).Draw(t, "n")
		for _, in := range drawInputs(t, 1, n) {
			p.Step(in)
		}

		ack := core.Tick(rapid.IntRange(1, 50).Draw(t, "ack"))
		p.OnAuthoritativeState(core.MotionState{Tick: ack})

		for _, rec := range p.OutgoingInputs() {
			if rec.Tick <= ack {
				t.Fatalf("tick %d <= ack %d still pending", rec.Tick, ack)
			}
		}
		want := n - int(ack)
		if want < 0 {
			want = 0
		}
		if p.PendingCount() != want {
			t.Fatalf("PendingCount = %d, want %d", p.PendingCount(), want)
		}
		if p.LastAcknowledged() != ack {
			t.Fatalf("LastAcknowledged = %d, want %d", p.LastAcknowledged(), ack)
		}
	})
}

func TestPredictorCorrectsAndReplays(t *testing.T) {
	cfg := core.DefaultMovementConfig()
	p := NewPredictor(core.MotionState{}, core.FlatGround{}, cfg, nil)

	forward := func(tick core.Tick) core.InputRecord {
		return core.InputRecord{Tick: tick, Move: core.Vec2{Y: 1}}
	}
	for tick := core.Tick(1); tick <= 5; tick++ {
		p.Step(forward(tick))
	}

	// 服务器认为 tick 2 时玩家被推到了 x=3
	server := authority(core.MotionState{}, []core.InputRecord{forward(1), forward(2)}, cfg)
	server.Position.X = 3

	if !p.OnAuthoritativeState(server) {
		t.Fatal("correction not applied")
	}
	want := authority(server, []core.InputRecord{forward(3), forward(4), forward(5)}, cfg)
	if got := p.State(); got != want {
		t.Errorf("State = %+v, want %+v", got, want)
	}
	stats := p.Stats()
	if stats.Corrections != 1 || stats.LastCorrectionDist < 2.99 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestPredictorAdoptsUnknownTick(t *testing.T) {
	cfg := core.DefaultMovementConfig()
	p := NewPredictor(core.MotionState{}, nil, cfg, nil)
	for tick := core.Tick(1); tick <= core.MaxHistory+40; tick++ {
		p.Step(core.InputRecord{Tick: tick, Move: core.Vec2{X: 1}})
	}

	// tick 10 的输入早已被挤出历史，无法重放
	server := core.MotionState{Tick: 10, Position: core.Vec3{X: -7, Y: 0}}
	if !p.OnAuthoritativeState(server) {
		t.Fatal("state not adopted")
	}
	if got := p.State(); got != server {
		t.Errorf("State = %+v, want %+v", got, server)
	}
	if p.Stats().Resyncs != 1 {
		t.Errorf("Resyncs = %d, want 1", p.Stats().Resyncs)
	}

	// 比所有历史都新的状态：没有可重放的输入
	ahead := core.MotionState{Tick: 10000, Position: core.Vec3{Z: 4}}
	p.OnAuthoritativeState(ahead)
	if got := p.State(); got != ahead {
		t.Errorf("State = %+v, want %+v", got, ahead)
	}
	if p.PendingCount() != 0 {
		t.Errorf("PendingCount = %d, want 0", p.PendingCount())
	}
}

func TestPredictorStaleStateOnlyAdjustsTiming(t *testing.T) {
	clock := core.NewTickClock(0)
	p := NewPredictor(core.MotionState{}, nil, nil, clock)
	for tick := core.Tick(1); tick <= 6; tick++ {
		p.Step(core.InputRecord{Tick: tick, Move: core.Vec2{Y: 1}})
	}
	p.OnAuthoritativeState(forwardState(5))
	before := p.State()

	if p.OnAuthoritativeState(core.MotionState{Tick: 3, Position: core.Vec3{X: 50}, TimingAdjustment: 1}) {
		t.Fatal("stale state applied")
	}
	if p.State() != before {
		t.Error("stale state changed the prediction")
	}
	if clock.Pending() != 1 {
		t.Errorf("clock pending = %d, want 1", clock.Pending())
	}
	if p.Stats().StaleStates != 1 {
		t.Errorf("StaleStates = %d, want 1", p.Stats().StaleStates)
	}
}

// forwardState 一直按住前进时 tick 1..tick 的权威状态
func forwardState(tick core.Tick) core.MotionState {
	var inputs []core.InputRecord
	for i := core.Tick(1); i <= tick; i++ {
		inputs = append(inputs, core.InputRecord{Tick: i, Move: core.Vec2{Y: 1}})
	}
	return authority(core.MotionState{}, inputs, core.DefaultMovementConfig())
}

func TestPredictorRejectsNonIncreasingInput(t *testing.T) {
	p := NewPredictor(core.MotionState{Tick: 10}, nil, nil, nil)
	before := p.State()
	p.Step(core.InputRecord{Tick: 10, Move: core.Vec2{Y: 1}})
	p.Step(core.InputRecord{Tick: 4, Move: core.Vec2{Y: 1}})
	if p.State() != before || p.PendingCount() != 0 {
		t.Errorf("old input applied: %+v pending=%d", p.State(), p.PendingCount())
	}
}

func TestPredictorOutgoingWindow(t *testing.T) {
	p := NewPredictor(core.MotionState{}, nil, nil, nil)
	for tick := core.Tick(1); tick <= 9; tick++ {
		p.Step(core.InputRecord{Tick: tick})
	}
	out := p.OutgoingInputs()
	if len(out) != InputSendWindow {
		t.Fatalf("len = %d, want %d", len(out), InputSendWindow)
	}
	if out[0].Tick != 6 || out[len(out)-1].Tick != 9 {
		t.Errorf("window = %d..%d, want 6..9", out[0].Tick, out[len(out)-1].Tick)
	}
}

func TestPredictorReset(t *testing.T) {
	clock := core.NewTickClock(0)
	clock.AdjustTiming(1)
	p := NewPredictor(core.MotionState{}, nil, nil, clock)
	for tick := core.Tick(1); tick <= 5; tick++ {
		p.Step(core.InputRecord{Tick: tick, Move: core.Vec2{Y: 1}})
	}

	target := core.MotionState{Tick: 42, Position: core.Vec3{X: 10, Y: 0, Z: 10}, TimingAdjustment: -1}
	p.Reset(target)

	target.TimingAdjustment = 0
	if p.State() != target {
		t.Errorf("State = %+v, want %+v", p.State(), target)
	}
	if p.PendingCount() != 0 || p.LastAcknowledged() != 42 {
		t.Errorf("pending=%d ack=%d", p.PendingCount(), p.LastAcknowledged())
	}
	if clock.Current() != 42 || clock.Pending() != 0 {
		t.Errorf("clock = %d pending %d", clock.Current(), clock.Pending())
	}
}

// 权威端的传送 tick 落后于本地时，本地 tick 不回退，之后的输入编号继续递增
func TestPredictorResetKeepsTickMonotonic(t *testing.T) {
	clock := core.NewTickClock(0)
	p := NewPredictor(core.MotionState{}, nil, nil, clock)
	for i := 0; i < 20; i++ {
		p.Step(core.InputRecord{Tick: clock.Advance(), Move: core.Vec2{Y: 1}})
	}

	target := core.MotionState{Tick: 15, Position: core.Vec3{X: 30, Z: 40}}
	p.Reset(target)

	if clock.Current() != 20 {
		t.Fatalf("clock rewound to %d", clock.Current())
	}
	got := p.State()
	if got.Tick != 20 || got.Position != target.Position || got.Velocity != (core.Vec3{}) {
		t.Errorf("State = %+v, want teleport pose at tick 20", got)
	}
	if p.LastAcknowledged() != 20 || p.PendingCount() != 0 {
		t.Errorf("ack=%d pending=%d", p.LastAcknowledged(), p.PendingCount())
	}

	// 传送前按旧位置算出的权威状态不能把身体拉回去
	if p.OnAuthoritativeState(core.MotionState{Tick: 17, Position: core.Vec3{Z: 3}}) {
		t.Error("pre-teleport state applied")
	}
	next := p.Step(core.InputRecord{Tick: clock.Advance(), Move: core.Vec2{Y: 1}})
	if next.Tick != 21 {
		t.Errorf("next tick = %d, want 21", next.Tick)
	}
	if out := p.OutgoingInputs(); len(out) != 1 || out[0].Tick != 21 {
		t.Errorf("outgoing = %+v, want only tick 21", out)
	}
}

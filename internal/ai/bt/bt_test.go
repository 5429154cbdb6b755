package bt

import "testing"

type counter struct{ calls []string }

func record(name string, status Status) *Action[*counter] {
	return &Action[*counter]{Do: func(c *counter) Status {
		c.calls = append(c.calls, name)
		return status
	}}
}

func TestComposites(t *testing.T) {
	tests := []struct {
		name      string
		node      Node[*counter]
		want      Status
		wantCalls int
	}{
		{"selector stops at success", &Selector[*counter]{Children: []Node[*counter]{record("a", StatusFailure), record("b", StatusSuccess), record("c", StatusSuccess)}}, StatusSuccess, 2},
		{"selector stops at running", &Selector[*counter]{Children: []Node[*counter]{record("a", StatusRunning), record("b", StatusSuccess)}}, StatusRunning, 1},
		{"selector all fail", &Selector[*counter]{Children: []Node[*counter]{record("a", StatusFailure), record("b", StatusFailure)}}, StatusFailure, 2},
		{"sequence stops at failure", &Sequence[*counter]{Children: []Node[*counter]{record("a", StatusSuccess), record("b", StatusFailure), record("c", StatusSuccess)}}, StatusFailure, 2},
		{"sequence all succeed", &Sequence[*counter]{Children: []Node[*counter]{record("a", StatusSuccess), record("b", StatusSuccess)}}, StatusSuccess, 2},
		{"empty selector", &Selector[*counter]{}, StatusFailure, 0},
		{"empty sequence", &Sequence[*counter]{}, StatusSuccess, 0},
		{"nil action", &Action[*counter]{}, StatusFailure, 0},
		{"nil condition", &Condition[*counter]{}, StatusFailure, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &counter{}
			if got := tt.node.Tick(c); got != tt.want {
				t.Errorf("Tick = %v, want %v", got, tt.want)
			}
			if len(c.calls) != tt.wantCalls {
				t.Errorf("calls = %v, want %d", c.calls, tt.wantCalls)
			}
		})
	}
}

func TestIf(t *testing.T) {
	c := &counter{}
	node := If(func(*counter) bool { return false }, record("a", StatusSuccess).Do)
	if got := node.Tick(c); got != StatusFailure || len(c.calls) != 0 {
		t.Errorf("false branch: %v %v", got, c.calls)
	}

	node = If(func(*counter) bool { return true }, record("a", StatusSuccess).Do, record("b", StatusRunning).Do)
	if got := node.Tick(c); got != StatusRunning || len(c.calls) != 2 {
		t.Errorf("true branch: %v %v", got, c.calls)
	}
}

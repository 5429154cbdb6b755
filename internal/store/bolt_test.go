package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/boltdb/bolt"

	"shooter/pkg/core"
)

func openTemp(t *testing.T) (*BoltStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "poses.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s, path
}

func TestSaveLoad(t *testing.T) {
	s, path := openTemp(t)

	if _, ok, err := s.Load("alice"); ok || err != nil {
		t.Fatalf("Load on empty store = %v, %v", ok, err)
	}

	want := core.MotionState{
		Tick:             42,
		Position:         core.Vec3{X: 1.5, Y: 0, Z: -3.25},
		Velocity:         core.Vec3{X: 0.1},
		Facing:           core.Vec2{X: -10, Y: 270},
		Jump:             true,
		TimingAdjustment: 1,
	}
	if err := s.Save("alice", want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	s.Close()

	// 重新打开后仍然存在
	s, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	got, ok, err := s.Load("alice")
	if err != nil || !ok {
		t.Fatalf("Load = %v, %v", ok, err)
	}
	want.TimingAdjustment = 0
	if got != want {
		t.Errorf("Load = %+v, want %+v", got, want)
	}
	if _, ok, _ := s.Load("bob"); ok {
		t.Error("unexpected pose for bob")
	}
}

func TestSaveOverwrites(t *testing.T) {
	s, _ := openTemp(t)
	defer s.Close()

	s.Save("alice", core.MotionState{Tick: 1, Position: core.Vec3{X: 1}})
	s.Save("alice", core.MotionState{Tick: 2, Position: core.Vec3{X: 2}})

	got, _, _ := s.Load("alice")
	if got.Tick != 2 || got.Position.X != 2 {
		t.Errorf("Load = %+v, want the second save", got)
	}
}

func TestCorruptValue(t *testing.T) {
	s, _ := openTemp(t)
	defer s.Close()

	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(poseBucket).Put([]byte("alice"), []byte{0x0a, 0xff})
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok, err := s.Load("alice"); ok || err == nil {
		t.Errorf("Load of corrupt value = %v, %v", ok, err)
	}
}

func TestClosed(t *testing.T) {
	s, _ := openTemp(t)
	s.Close()
	s.Close()

	if err := s.Save("alice", core.MotionState{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Save after Close = %v", err)
	}
	if _, _, err := s.Load("alice"); !errors.Is(err, ErrClosed) {
		t.Errorf("Load after Close = %v", err)
	}
}

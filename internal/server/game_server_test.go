package server

import (
	"context"
	"testing"
	"time"

	"shooter/internal/client"
	"shooter/pkg/core"
	"shooter/pkg/protocol"
)

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func startServer(t *testing.T, proto string) *GameServer {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	cfg.Proto = proto
	cfg.JWTSecret = "test-secret"

	srv := NewGameServer(cfg, nil)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-srv.Ready():
	case err := <-errCh:
		t.Fatalf("server failed to start: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not start")
	}
	t.Cleanup(srv.Shutdown)
	return srv
}

func connectClient(t *testing.T, srv *GameServer, proto, name string) *client.NetworkClient {
	t.Helper()
	cfg := client.DefaultConfig()
	cfg.ServerAddr = srv.Addr().String()
	cfg.Proto = proto
	cfg.PlayerName = name
	cfg.JoinTimeout = 3 * time.Second

	nc := client.NewNetworkClient(cfg)
	if err := nc.Connect(context.Background()); err != nil {
		t.Fatalf("%s connect: %v", name, err)
	}
	t.Cleanup(nc.Close)
	return nc
}

func TestServerEndToEnd(t *testing.T) {
	for _, proto := range []string{"tcp", "ws", "kcp"} {
		t.Run(proto, func(t *testing.T) {
			srv := startServer(t, proto)
			alice := connectClient(t, srv, proto, "alice")
			bob := connectClient(t, srv, proto, "bob")

			if alice.PlayerID() != 1 || bob.PlayerID() != 2 {
				t.Fatalf("player ids = %d, %d", alice.PlayerID(), bob.PlayerID())
			}
			welcome := bob.Welcome()
			if len(welcome.Players) != 1 || welcome.Players[0].Name != "alice" {
				t.Errorf("bob welcome players = %+v", welcome.Players)
			}

			eventually(t, "alice to hear about bob", func() bool {
				p, ok := alice.ReceivePlayerJoin()
				return ok && p.PlayerID == 2
			})

			// alice 按自己的预测发送输入，服务器算出的状态必须与预测一致
			spawn := alice.Welcome().Spawn
			predictor := client.NewPredictor(spawn, nil, nil, nil)
			var predicted core.MotionState
			for i := 1; i <= 3; i++ {
				predicted = predictor.Step(core.InputRecord{Tick: spawn.Tick + core.Tick(i), Move: core.Vec2{Y: 1}})
			}
			if err := alice.Send(&protocol.InputBatch{Inputs: predictor.OutgoingInputs()}); err != nil {
				t.Fatalf("send inputs: %v", err)
			}

			eventually(t, "authoritative state for the last input", func() bool {
				for {
					s, ok := alice.ReceiveState()
					if !ok {
						return false
					}
					if s.Tick == predicted.Tick {
						if !sameMotion(s, predicted) {
							t.Fatalf("server state %+v differs from prediction %+v", s, predicted)
						}
						return true
					}
				}
			})

			eventually(t, "bob to see alice's snapshot", func() bool {
				for {
					ev, ok := bob.ReceiveSnapshot()
					if !ok {
						return false
					}
					if ev.PlayerID == 1 && ev.Position == predicted.Position {
						return true
					}
				}
			})
		})
	}
}

func TestServerReconnect(t *testing.T) {
	srv := startServer(t, "tcp")
	alice := connectClient(t, srv, "tcp", "alice")
	id := alice.PlayerID()

	alice.Close()
	if err := alice.Connect(context.Background()); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if alice.PlayerID() != id {
		t.Errorf("PlayerID = %d after reconnect, want %d", alice.PlayerID(), id)
	}
	resp := alice.ReceiveReconnect()
	if resp == nil || !resp.Success || resp.PlayerID != id {
		t.Fatalf("reconnect response = %+v", resp)
	}
	if srv.Rooms().GetRoomStats()[DefaultRoomID].PlayerCount != 1 {
		t.Errorf("reconnect should reuse the body, stats = %+v", srv.Rooms().GetRoomStats())
	}
}

func TestServerTeleportReachesClients(t *testing.T) {
	srv := startServer(t, "tcp")
	alice := connectClient(t, srv, "tcp", "alice")

	pos := core.Vec3{X: 30, Z: 40}
	if err := srv.Teleport("", alice.PlayerID(), pos); err != nil {
		t.Fatalf("teleport: %v", err)
	}
	eventually(t, "teleport", func() bool {
		tp := alice.ReceiveTeleport()
		return tp != nil && tp.PlayerID == alice.PlayerID() && tp.State.Position == pos
	})
}

package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"shooter/pkg/protocol"
)

func newPipeConnection(t *testing.T) (*Connection, net.Conn, *GameServer) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.JWTSecret = "test-secret"
	srv := NewGameServer(cfg, nil)
	serverSide, clientSide := net.Pipe()
	t.Cleanup(func() {
		serverSide.Close()
		clientSide.Close()
	})
	return NewConnection(serverSide, srv), clientSide, srv
}

func TestConnectionSendQueues(t *testing.T) {
	c, _, srv := newPipeConnection(t)

	// 没有发送协程，队列只进不出
	for i := 0; i < reliableQueueSize; i++ {
		if err := c.Send(protocol.ChannelReliable, []byte{1}); err != nil {
			t.Fatalf("reliable send %d: %v", i, err)
		}
	}
	if err := c.Send(protocol.ChannelReliable, []byte{1}); !errors.Is(err, ErrSendQueueFull) {
		t.Errorf("reliable overflow = %v, want ErrSendQueueFull", err)
	}

	for i := 0; i < unreliableQueueSize+10; i++ {
		if err := c.Send(protocol.ChannelUnreliable, []byte{2}); err != nil {
			t.Fatalf("unreliable send %d: %v", i, err)
		}
	}
	if got := testutil.ToFloat64(srv.metrics.SendDropped.WithLabelValues(protocol.ChannelUnreliable.String())); got != 10 {
		t.Errorf("dropped unreliable = %v, want 10", got)
	}

	c.CloseWithoutNotify()
	if err := c.Send(protocol.ChannelUnreliable, []byte{3}); !errors.Is(err, ErrConnClosed) {
		t.Errorf("send after close = %v, want ErrConnClosed", err)
	}
}

func TestConnectionJoinOverPipe(t *testing.T) {
	c, peer, srv := newPipeConnection(t)
	if err := srv.manager.Run(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(srv.manager.Shutdown)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go c.Handle(ctx, &wg)
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})

	_ = peer.SetDeadline(time.Now().Add(3 * time.Second))
	if err := protocol.WriteFrame(peer, protocol.Encode(&protocol.JoinRequest{PlayerName: "alice"}, 0)); err != nil {
		t.Fatal(err)
	}

	// 加入响应之前可能已经有状态更新，跳过直到拿到响应
	for {
		data, err := protocol.ReadFrame(peer)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		_, msg, err := protocol.DecodeBytes(data)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		resp, ok := msg.(*protocol.JoinResponse)
		if !ok {
			continue
		}
		if !resp.Success || resp.PlayerID != 1 || resp.RoomID != DefaultRoomID || resp.SessionToken == "" {
			t.Fatalf("join response = %+v", resp)
		}
		break
	}
	if c.ID() != 1 || c.RoomID() != DefaultRoomID {
		t.Errorf("connection bound to %d/%q", c.ID(), c.RoomID())
	}

	// 已经加入的连接不能再次加入
	if err := c.handleMessage(protocol.Encode(&protocol.JoinRequest{PlayerName: "again"}, 0)); err == nil {
		t.Error("second join accepted")
	}
}

func TestConnectionAnswersPing(t *testing.T) {
	c, _, _ := newPipeConnection(t)
	if err := c.onPing(&ServerEvent{Kind: EventPing, Ping: &PingEvent{ClientTime: 1234}}); err != nil {
		t.Fatal(err)
	}

	select {
	case data := <-c.unreliableChan:
		pkt, msg, err := protocol.DecodeBytes(data)
		if err != nil {
			t.Fatal(err)
		}
		pong, ok := msg.(*protocol.Pong)
		if !ok || pkt.Type != protocol.MessageTypePong || pong.ClientTime != 1234 || pong.ServerTime <= 0 {
			t.Errorf("reply = %v %+v", pkt.Type, msg)
		}
	default:
		t.Fatal("no pong queued on the unreliable channel")
	}
}

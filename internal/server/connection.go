package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"shooter/pkg/logger"
	"shooter/pkg/protocol"
)

var (
	ErrSendQueueFull = errors.New("发送队列满")
	ErrConnClosed    = errors.New("连接已关闭")
)

const (
	reliableQueueSize   = 64
	unreliableQueueSize = 256
)

// Connection 表示一个客户端连接
type Connection struct {
	conn     net.Conn
	server   *GameServer
	playerID atomic.Int32
	roomID   atomic.Value // string
	limiter  *rate.Limiter

	// 发送队列：可靠消息优先
	reliableChan   chan []byte
	unreliableChan chan []byte
	closeCh        chan struct{}
	closed         bool
	closeMu        sync.Mutex

	lastRecvTime atomic.Int64 // UnixNano
	rtt          atomic.Int64 // 毫秒
}

// NewConnection 创建新连接，连接到服务器上
func NewConnection(conn net.Conn, server *GameServer) *Connection {
	c := &Connection{
		conn:           conn,
		server:         server,
		limiter:        rate.NewLimiter(server.cfg.InputRate, server.cfg.InputBurst),
		reliableChan:   make(chan []byte, reliableQueueSize),
		unreliableChan: make(chan []byte, unreliableQueueSize),
		closeCh:        make(chan struct{}),
	}
	c.playerID.Store(-1) // -1 表示未分配
	c.roomID.Store("")
	c.lastRecvTime.Store(time.Now().UnixNano())
	return c
}

func (c *Connection) log() *logrus.Entry {
	return logger.Log.WithFields(logrus.Fields{"player": c.ID(), "remote": c.conn.RemoteAddr()})
}

// Handle 处理连接，直到上下文取消或连接关闭
func (c *Connection) Handle(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	c.log().Debug("连接处理开始")

	wg.Add(3)
	go c.startHeartbeat(ctx, wg)
	go c.sendLoop(ctx, wg)
	go c.receiveLoop(ctx, wg)

	select {
	case <-ctx.Done():
		c.CloseWithoutNotify()
	case <-c.closeCh:
	}
}

// Close 关闭连接，身体进入等待重连状态
func (c *Connection) Close() {
	c.closeWithNotify(true)
}

// CloseWithoutNotify 关闭连接但不通知房间
func (c *Connection) CloseWithoutNotify() {
	c.closeWithNotify(false)
}

func (c *Connection) closeWithNotify(notify bool) {
	c.closeMu.Lock()
	if c.closed {
		c.closeMu.Unlock()
		return
	}
	c.closed = true
	close(c.closeCh)
	c.closeMu.Unlock()

	if c.conn != nil {
		c.conn.Close()
	}

	if notify {
		if playerID := c.ID(); playerID >= 0 {
			c.server.removePlayer(c.RoomID(), playerID, c)
		}
	}

	c.log().WithField("rtt", c.RTT()).Info("连接已关闭")
}

// Send 发送一帧（异步）。不可靠消息在队列满时丢弃并计数。
func (c *Connection) Send(ch protocol.Channel, data []byte) error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return ErrConnClosed
	}

	if ch == protocol.ChannelUnreliable {
		select {
		case c.unreliableChan <- data:
		default:
			c.server.metrics.SendDropped.WithLabelValues(ch.String()).Inc()
		}
		return nil
	}

	select {
	case c.reliableChan <- data:
		return nil
	default:
		c.server.metrics.SendDropped.WithLabelValues(ch.String()).Inc()
		return ErrSendQueueFull
	}
}

func (c *Connection) sendMessage(msg protocol.Message) error {
	return c.sendPacket(protocol.NewPacket(msg, 0))
}

func (c *Connection) sendPacket(pkt *protocol.Packet) error {
	return c.Send(protocol.ChannelOf(pkt.Type), protocol.MarshalPacket(pkt))
}

// sendLoop 发送循环
func (c *Connection) sendLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		var data []byte
		select {
		case <-ctx.Done():
			return
		case <-c.closeCh:
			return
		case data = <-c.reliableChan:
		default:
			select {
			case <-ctx.Done():
				return
			case <-c.closeCh:
				return
			case data = <-c.reliableChan:
			case data = <-c.unreliableChan:
			}
		}

		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := protocol.WriteFrame(c.conn, data); err != nil {
			c.log().WithError(err).Warn("发送数据失败")
			c.Close()
			return
		}
	}
}

// receiveLoop 接收循环
func (c *Connection) receiveLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}

		_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))
		data, err := protocol.ReadFrame(c.conn)
		if err != nil {
			var netErr net.Error
			switch {
			case errors.As(err, &netErr) && netErr.Timeout():
				c.log().Info("读取超时")
			case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
			default:
				c.log().WithError(err).Warn("读取数据失败")
			}
			c.Close()
			return
		}
		c.lastRecvTime.Store(time.Now().UnixNano())

		if len(data) == 0 {
			continue
		}
		if !c.limiter.Allow() {
			c.server.metrics.InputsDropped.WithLabelValues("rate_limited").Inc()
			continue
		}

		if err := c.handleMessage(data); err != nil {
			c.log().WithError(err).Debug("处理消息失败")
		}
	}
}

// eventHandlers 按事件类型分发
var eventHandlers = map[EventKind]func(c *Connection, ev *ServerEvent) error{
	EventJoin:      (*Connection).onJoin,
	EventInput:     (*Connection).onInput,
	EventPing:      (*Connection).onPing,
	EventPong:      (*Connection).onPong,
	EventReconnect: (*Connection).onReconnect,
}

// handleMessage 处理接收到的消息
func (c *Connection) handleMessage(data []byte) error {
	event, err := DecodePacket(data)
	if err != nil {
		return fmt.Errorf("反序列化失败: %w", err)
	}

	handler, ok := eventHandlers[event.Kind]
	if !ok {
		return fmt.Errorf("%w: %v", protocol.ErrUnknownMessage, event.Kind)
	}
	return handler(c, event)
}

func (c *Connection) onJoin(ev *ServerEvent) error {
	if c.ID() >= 0 {
		return fmt.Errorf("玩家已加入")
	}
	req := &protocol.JoinRequest{PlayerName: ev.Join.PlayerName, RoomID: ev.Join.RoomID}
	if err := c.server.manager.Join(c, req); err != nil {
		_ = c.sendMessage(&protocol.JoinResponse{Success: false, PlayerID: -1, ErrorMessage: err.Error()})
		return fmt.Errorf("处理加入请求失败: %w", err)
	}
	c.log().Info("加入成功")
	return nil
}

func (c *Connection) onInput(ev *ServerEvent) error {
	playerID := c.ID()
	if playerID < 0 {
		return nil
	}
	c.server.manager.EnqueueInput(c.RoomID(), playerID, ev.Input.Epoch, ev.Input.Inputs)
	return nil
}

func (c *Connection) onReconnect(ev *ServerEvent) error {
	if c.ID() >= 0 {
		return fmt.Errorf("玩家已加入")
	}
	fail := func(err error) error {
		_ = c.sendMessage(&protocol.ReconnectResponse{Success: false, PlayerID: -1, ErrorMessage: err.Error()})
		return fmt.Errorf("处理重连请求失败: %w", err)
	}

	claims, err := c.server.tokens.Verify(ev.Reconnect.SessionToken)
	if err != nil {
		return fail(err)
	}
	if err := c.server.manager.Reconnect(c, claims); err != nil {
		return fail(err)
	}
	c.log().WithField("room", claims.RoomID).Info("重连成功")
	return nil
}

func (c *Connection) onPing(ev *ServerEvent) error {
	return c.sendPacket(protocol.NewPongPacket(ev.Ping.ClientTime, time.Now().UnixMilli(), c.server.uptimeTicks()))
}

func (c *Connection) onPong(ev *ServerEvent) error {
	if ev.Pong.ClientTime <= 0 {
		return nil
	}
	c.rtt.Store(time.Now().UnixMilli() - ev.Pong.ClientTime)
	return nil
}

// String 返回连接的字符串表示
func (c *Connection) String() string {
	if c.ID() >= 0 {
		return fmt.Sprintf("Connection{%d, %s}", c.ID(), c.conn.RemoteAddr())
	}
	return fmt.Sprintf("Connection{%s}", c.conn.RemoteAddr())
}

func (c *Connection) ID() int32 {
	return c.playerID.Load()
}

func (c *Connection) SetPlayerID(playerID int32) {
	c.playerID.Store(playerID)
}

func (c *Connection) RoomID() string {
	id, _ := c.roomID.Load().(string)
	return id
}

func (c *Connection) SetRoomID(roomID string) {
	c.roomID.Store(roomID)
}

// RTT 最近一次心跳的往返时间
func (c *Connection) RTT() time.Duration {
	return time.Duration(c.rtt.Load()) * time.Millisecond
}

func (c *Connection) startHeartbeat(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closeCh:
			return
		case <-ticker.C:
			lastRecv := time.Unix(0, c.lastRecvTime.Load())
			if time.Since(lastRecv) > heartbeatTimeout {
				c.log().Info("心跳超时")
				c.Close()
				return
			}
			_ = c.sendPacket(protocol.NewPingPacket(time.Now().UnixMilli()))
		}
	}
}

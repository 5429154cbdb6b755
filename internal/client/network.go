package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
	kcp "github.com/xtaci/kcp-go/v5"

	"shooter/pkg/core"
	"shooter/pkg/logger"
	"shooter/pkg/protocol"
)

var (
	ErrSendQueueFull = errors.New("发送队列满")
	ErrNotConnected  = errors.New("未连接到服务器")
	ErrJoinRejected  = errors.New("服务器拒绝加入")
)

// SnapshotEvent 收到的远端快照，附带本地接收时间
type SnapshotEvent struct {
	PlayerID   int32
	ReceivedAt time.Time
	RemoteTime float64
	Position   core.Vec3
	Rotation   core.Vec2
}

// NetworkClient 网络客户端。
// 接收协程把消息按类型放进各自的队列，游戏循环在 tick 开始时非阻塞地取走。
type NetworkClient struct {
	cfg  Config
	conn net.Conn

	connected atomic.Bool
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	dispatcher *protocol.Dispatcher[*NetworkClient]

	// 入站队列
	stateChan     chan core.MotionState
	snapshotChan  chan SnapshotEvent
	teleportChan  chan *protocol.Teleport
	joinChan      chan protocol.PlayerInfo
	leaveChan     chan int32
	welcomeChan   chan *protocol.JoinResponse
	reconnectChan chan *protocol.ReconnectResponse
	errChan       chan error

	// 出站队列：可靠消息优先
	reliableChan   chan []byte
	unreliableChan chan []byte

	// 玩家信息
	playerID     atomic.Int32
	sessionToken string
	welcome      *protocol.JoinResponse

	droppedUnreliable atomic.Int64
}

// NewNetworkClient 创建网络客户端
func NewNetworkClient(cfg Config) *NetworkClient {
	nc := &NetworkClient{
		cfg:            cfg,
		dispatcher:     protocol.NewDispatcher[*NetworkClient](),
		stateChan:      make(chan core.MotionState, inboundQueueSize),
		snapshotChan:   make(chan SnapshotEvent, inboundQueueSize),
		teleportChan:   make(chan *protocol.Teleport, 16),
		joinChan:       make(chan protocol.PlayerInfo, 16),
		leaveChan:      make(chan int32, 16),
		welcomeChan:    make(chan *protocol.JoinResponse, 1),
		reconnectChan:  make(chan *protocol.ReconnectResponse, 1),
		errChan:        make(chan error, 1),
		reliableChan:   make(chan []byte, 64),
		unreliableChan: make(chan []byte, 256),
	}
	nc.ctx, nc.cancel = context.WithCancel(context.Background())
	nc.playerID.Store(-1)
	nc.registerHandlers()
	return nc
}

func (nc *NetworkClient) registerHandlers() {
	protocol.Handle(nc.dispatcher, (*NetworkClient).onJoinResponse)
	protocol.Handle(nc.dispatcher, (*NetworkClient).onReconnectResponse)
	protocol.Handle(nc.dispatcher, (*NetworkClient).onStateUpdate)
	protocol.Handle(nc.dispatcher, (*NetworkClient).onRemoteSnapshot)
	protocol.Handle(nc.dispatcher, (*NetworkClient).onTeleport)
	protocol.Handle(nc.dispatcher, (*NetworkClient).onPlayerJoin)
	protocol.Handle(nc.dispatcher, (*NetworkClient).onPlayerLeave)
	protocol.Handle(nc.dispatcher, (*NetworkClient).onPing)
	protocol.Handle(nc.dispatcher, (*NetworkClient).onPong)
}

// Connect 连接到服务器并加入房间。持有会话 token 时改为重连。
func (nc *NetworkClient) Connect(ctx context.Context) error {
	log := logger.Log.WithFields(logrus.Fields{"addr": nc.cfg.ServerAddr, "proto": nc.cfg.Proto})
	log.Info("连接到服务器")

	conn, err := nc.dial(ctx)
	if err != nil {
		return fmt.Errorf("连接服务器失败: %w", err)
	}

	nc.conn = conn
	nc.cancel()
	nc.ctx, nc.cancel = context.WithCancel(context.Background())
	nc.connected.Store(true)
	log.WithField("remote", conn.RemoteAddr()).Info("已连接到服务器")

	nc.wg.Add(2)
	go nc.receiveLoop()
	go nc.sendLoop()

	waitCtx, cancel := context.WithTimeout(ctx, nc.cfg.JoinTimeout)
	defer cancel()

	if nc.sessionToken != "" {
		return nc.awaitReconnect(waitCtx)
	}
	return nc.awaitJoin(waitCtx)
}

func (nc *NetworkClient) awaitJoin(ctx context.Context) error {
	req := &protocol.JoinRequest{PlayerName: nc.cfg.PlayerName, RoomID: nc.cfg.RoomID}
	if err := nc.Send(req); err != nil {
		nc.Close()
		return fmt.Errorf("发送加入请求失败: %w", err)
	}

	select {
	case resp := <-nc.welcomeChan:
		if !resp.Success {
			nc.Close()
			return fmt.Errorf("%w: %s", ErrJoinRejected, resp.ErrorMessage)
		}
		nc.welcome = resp
		nc.sessionToken = resp.SessionToken
		nc.playerID.Store(resp.PlayerID)
		logger.Log.WithFields(logrus.Fields{"player": resp.PlayerID, "room": resp.RoomID}).Info("加入成功")
		return nil
	case err := <-nc.errChan:
		nc.Close()
		return err
	case <-ctx.Done():
		nc.Close()
		return fmt.Errorf("等待加入响应超时: %w", ctx.Err())
	}
}

func (nc *NetworkClient) awaitReconnect(ctx context.Context) error {
	if err := nc.Send(&protocol.ReconnectRequest{SessionToken: nc.sessionToken}); err != nil {
		nc.Close()
		return fmt.Errorf("发送重连请求失败: %w", err)
	}

	select {
	case resp := <-nc.reconnectChan:
		if !resp.Success {
			nc.sessionToken = ""
			nc.Close()
			return fmt.Errorf("%w: %s", ErrJoinRejected, resp.ErrorMessage)
		}
		nc.playerID.Store(resp.PlayerID)
		// 交给游戏循环处理：重置预测和插值
		select {
		case nc.reconnectChan <- resp:
		default:
		}
		logger.Log.WithField("player", resp.PlayerID).Info("重连成功")
		return nil
	case err := <-nc.errChan:
		nc.Close()
		return err
	case <-ctx.Done():
		nc.Close()
		return fmt.Errorf("等待重连响应超时: %w", ctx.Err())
	}
}

func (nc *NetworkClient) dial(ctx context.Context) (net.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, nc.cfg.DialTimeout)
	defer cancel()

	switch nc.cfg.Proto {
	case "", "tcp":
		var d net.Dialer
		conn, err := d.DialContext(dialCtx, "tcp", nc.cfg.ServerAddr)
		if err != nil {
			return nil, err
		}
		if tcpConn, ok := conn.(*net.TCPConn); ok {
			_ = tcpConn.SetNoDelay(true)
		}
		return conn, nil
	case "kcp":
		conn, err := kcp.DialWithOptions(nc.cfg.ServerAddr, nil, 0, 0)
		if err != nil {
			return nil, err
		}
		conn.SetStreamMode(true)
		conn.SetNoDelay(1, 10, 2, 1)
		return conn, nil
	case "ws":
		ws, _, err := websocket.Dial(dialCtx, "ws://"+nc.cfg.ServerAddr+"/ws", nil)
		if err != nil {
			return nil, err
		}
		ws.SetReadLimit(protocol.MaxPacketSize + 4)
		// NetConn 的生命周期跟随 Background，由 Close 关闭
		return websocket.NetConn(context.Background(), ws, websocket.MessageBinary), nil
	default:
		return nil, fmt.Errorf("不支持的协议: %s", nc.cfg.Proto)
	}
}

// Close 关闭连接。入站队列保留，重连后继续使用。
func (nc *NetworkClient) Close() {
	if !nc.connected.CompareAndSwap(true, false) {
		return
	}
	nc.cancel()
	if nc.conn != nil {
		nc.conn.Close()
	}
	nc.wg.Wait()
	logger.Log.WithField("player", nc.PlayerID()).Info("网络客户端已关闭")
}

// PlayerID 服务器分配的玩家 ID，未加入时为 -1
func (nc *NetworkClient) PlayerID() int32 {
	return nc.playerID.Load()
}

// Welcome 加入响应（出生状态、tick 率、已有玩家）
func (nc *NetworkClient) Welcome() *protocol.JoinResponse {
	return nc.welcome
}

// IsConnected 检查是否已连接
func (nc *NetworkClient) IsConnected() bool {
	return nc.connected.Load()
}

// Errors 连接出错时收到一个错误
func (nc *NetworkClient) Errors() <-chan error {
	return nc.errChan
}

// DroppedUnreliable 因队列满被丢弃的不可靠消息数
func (nc *NetworkClient) DroppedUnreliable() int64 {
	return nc.droppedUnreliable.Load()
}

// ========== 消息接收 ==========

// receiveLoop 接收循环
func (nc *NetworkClient) receiveLoop() {
	defer nc.wg.Done()

	for {
		data, err := protocol.ReadFrame(nc.conn)
		if err != nil {
			switch {
			case nc.ctx.Err() != nil:
			case errors.Is(err, io.EOF):
				nc.reportError(fmt.Errorf("服务器关闭了连接: %w", err))
			default:
				nc.reportError(fmt.Errorf("读取失败: %w", err))
			}
			return
		}
		if len(data) == 0 {
			continue
		}

		if err := nc.dispatcher.Dispatch(nc, data); err != nil {
			logger.Log.WithError(err).Debug("处理消息失败")
		}
	}
}

func (nc *NetworkClient) reportError(err error) {
	select {
	case nc.errChan <- err:
	default:
	}
}

func (nc *NetworkClient) onJoinResponse(_ *protocol.Packet, resp *protocol.JoinResponse) error {
	select {
	case nc.welcomeChan <- resp:
	default:
	}
	return nil
}

func (nc *NetworkClient) onReconnectResponse(_ *protocol.Packet, resp *protocol.ReconnectResponse) error {
	select {
	case nc.reconnectChan <- resp:
	default:
	}
	return nil
}

// onStateUpdate 队列满时丢弃：下一个 tick 的状态会覆盖它
func (nc *NetworkClient) onStateUpdate(_ *protocol.Packet, msg *protocol.StateUpdate) error {
	select {
	case nc.stateChan <- msg.State:
	default:
	}
	return nil
}

func (nc *NetworkClient) onRemoteSnapshot(pkt *protocol.Packet, msg *protocol.RemoteSnapshot) error {
	ev := SnapshotEvent{
		PlayerID:   msg.PlayerID,
		ReceivedAt: time.Now(),
		RemoteTime: pkt.Timestamp,
		Position:   msg.Position,
		Rotation:   msg.Rotation,
	}
	select {
	case nc.snapshotChan <- ev:
	default:
	}
	return nil
}

// 可靠消息不能丢：队列满时等待游戏循环取走
func (nc *NetworkClient) onTeleport(_ *protocol.Packet, msg *protocol.Teleport) error {
	return deliver(nc.ctx, nc.teleportChan, msg)
}

func (nc *NetworkClient) onPlayerJoin(_ *protocol.Packet, msg *protocol.PlayerJoin) error {
	return deliver(nc.ctx, nc.joinChan, msg.Player)
}

func (nc *NetworkClient) onPlayerLeave(_ *protocol.Packet, msg *protocol.PlayerLeave) error {
	return deliver(nc.ctx, nc.leaveChan, msg.PlayerID)
}

func (nc *NetworkClient) onPing(_ *protocol.Packet, msg *protocol.Ping) error {
	return nc.SendPacket(protocol.NewPongPacket(msg.ClientTime, time.Now().UnixMilli(), 0))
}

func (nc *NetworkClient) onPong(*protocol.Packet, *protocol.Pong) error {
	return nil
}

func deliver[T any](ctx context.Context, ch chan<- T, v T) error {
	select {
	case ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ========== 消息发送 ==========

// Send 按消息类型选择通道发送
func (nc *NetworkClient) Send(msg protocol.Message) error {
	return nc.SendAt(msg, 0)
}

// SendAt 发送并在信封中带上时间戳
func (nc *NetworkClient) SendAt(msg protocol.Message, timestamp float64) error {
	return nc.SendPacket(protocol.NewPacket(msg, timestamp))
}

// SendPacket 发送已经构造好的信封，按消息类型选择通道
func (nc *NetworkClient) SendPacket(pkt *protocol.Packet) error {
	if !nc.IsConnected() {
		return ErrNotConnected
	}
	data := protocol.MarshalPacket(pkt)

	if protocol.ChannelOf(pkt.Type) == protocol.ChannelUnreliable {
		select {
		case nc.unreliableChan <- data:
		default:
			nc.droppedUnreliable.Add(1)
		}
		return nil
	}

	select {
	case nc.reliableChan <- data:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// sendLoop 发送循环，可靠队列优先
func (nc *NetworkClient) sendLoop() {
	defer nc.wg.Done()

	for {
		var data []byte
		select {
		case data = <-nc.reliableChan:
		default:
			select {
			case <-nc.ctx.Done():
				return
			case data = <-nc.reliableChan:
			case data = <-nc.unreliableChan:
			}
		}

		if err := protocol.WriteFrame(nc.conn, data); err != nil {
			if nc.ctx.Err() == nil {
				nc.reportError(fmt.Errorf("发送失败: %w", err))
			}
			return
		}
	}
}

// ========== 状态接收（非阻塞）==========

// ReceiveState 取出一个权威状态
func (nc *NetworkClient) ReceiveState() (core.MotionState, bool) {
	select {
	case s := <-nc.stateChan:
		return s, true
	default:
		return core.MotionState{}, false
	}
}

// ReceiveSnapshot 取出一个远端快照
func (nc *NetworkClient) ReceiveSnapshot() (SnapshotEvent, bool) {
	select {
	case s := <-nc.snapshotChan:
		return s, true
	default:
		return SnapshotEvent{}, false
	}
}

// ReceiveTeleport 取出一个传送消息
func (nc *NetworkClient) ReceiveTeleport() *protocol.Teleport {
	select {
	case t := <-nc.teleportChan:
		return t
	default:
		return nil
	}
}

// ReceivePlayerJoin 接收玩家加入
func (nc *NetworkClient) ReceivePlayerJoin() (protocol.PlayerInfo, bool) {
	select {
	case p := <-nc.joinChan:
		return p, true
	default:
		return protocol.PlayerInfo{}, false
	}
}

// ReceivePlayerLeave 接收玩家离开，没有时返回 -1
func (nc *NetworkClient) ReceivePlayerLeave() int32 {
	select {
	case id := <-nc.leaveChan:
		return id
	default:
		return -1
	}
}

// ReceiveReconnect 重连成功后的状态
func (nc *NetworkClient) ReceiveReconnect() *protocol.ReconnectResponse {
	select {
	case r := <-nc.reconnectChan:
		return r
	default:
		return nil
	}
}

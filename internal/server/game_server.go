package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"shooter/pkg/core"
	"shooter/pkg/logger"
)

// GameServer 游戏服务器
type GameServer struct {
	cfg     *Config
	manager *RoomManager
	tokens  *TokenIssuer
	metrics *Metrics

	// 网络
	listener  ServerListener
	startedAt time.Time
	ready     chan struct{}

	// 控制
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	shutdown  chan struct{}
	closeOnce sync.Once
}

// NewGameServer 创建新的游戏服务器。store 为 nil 时不保存位置。
func NewGameServer(cfg *Config, store PoseStore) *GameServer {
	ctx, cancel := context.WithCancel(context.Background())
	metrics := NewMetrics()
	tokens := NewTokenIssuer(cfg.JWTSecret, cfg.SessionTTL)

	return &GameServer{
		cfg:      cfg,
		manager:  NewRoomManager(ctx, cfg, tokens, store, metrics),
		tokens:   tokens,
		metrics:  metrics,
		ready:    make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
		shutdown: make(chan struct{}),
	}
}

// Start 启动服务器，阻塞到 Shutdown
func (s *GameServer) Start() error {
	log := logger.Log.WithFields(logrus.Fields{"addr": s.cfg.Addr, "proto": s.cfg.Proto})
	log.Info("启动游戏服务器")

	listener, err := newListener(s.cfg.Proto, s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("监听失败: %w", err)
	}
	if s.ctx.Err() != nil {
		listener.Close()
		return s.ctx.Err()
	}
	s.listener = listener
	s.startedAt = time.Now()

	if err := s.manager.Run(); err != nil {
		listener.Close()
		return fmt.Errorf("创建默认房间失败: %w", err)
	}

	// 启动连接接受循环
	s.wg.Add(1)
	go s.acceptLoop()

	log.WithField("listen", listener.Addr()).Info("服务器监听中")
	close(s.ready)

	// 等待关闭信号
	<-s.shutdown
	return nil
}

// Ready 监听成功后关闭
func (s *GameServer) Ready() <-chan struct{} {
	return s.ready
}

// Addr 实际监听地址，Ready 之后有效
func (s *GameServer) Addr() net.Addr {
	return s.listener.Addr()
}

func (s *GameServer) Metrics() *Metrics {
	return s.metrics
}

func (s *GameServer) Rooms() *RoomManager {
	return s.manager
}

// Teleport 传送指定房间内的玩家
func (s *GameServer) Teleport(roomID string, playerID int32, pos core.Vec3) error {
	if roomID == "" {
		roomID = DefaultRoomID
	}
	return s.manager.Teleport(roomID, playerID, pos)
}

// Shutdown 优雅关闭服务器
func (s *GameServer) Shutdown() {
	s.closeOnce.Do(func() {
		logger.Log.Info("正在关闭服务器...")

		s.cancel()
		select {
		case <-s.ready:
			s.listener.Close()
		default:
		}
		s.manager.Shutdown()

		close(s.shutdown)
		s.wg.Wait()

		logger.Log.Info("服务器已关闭")
	})
}

// acceptLoop 接受客户端连接
func (s *GameServer) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.ctx.Err() != nil {
				logger.Log.Debug("停止接受新连接")
				return
			}
			logger.Log.WithError(err).Warn("接受连接失败")
			continue
		}

		logger.Log.WithField("remote", conn.RemoteAddr()).Info("新连接")

		connection := NewConnection(conn, s)
		s.wg.Add(1)
		go connection.Handle(s.ctx, &s.wg)
	}
}

// removePlayer 连接断开，通知所在房间
func (s *GameServer) removePlayer(roomID string, playerID int32, session Session) {
	s.manager.Leave(roomID, playerID, session)
}

// uptimeTicks 服务器启动以来经过的 tick 数
func (s *GameServer) uptimeTicks() uint32 {
	if s.startedAt.IsZero() {
		return 0
	}
	return uint32(time.Since(s.startedAt) / s.cfg.TickDuration())
}

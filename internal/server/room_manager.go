package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"shooter/pkg/core"
	"shooter/pkg/logger"
	"shooter/pkg/protocol"
)

var (
	ErrTooManyRooms = errors.New("房间数已达上限")
	ErrNoSuchRoom   = errors.New("房间不存在")
)

type RoomManager struct {
	ctx     context.Context
	cfg     *Config
	tokens  *TokenIssuer
	store   PoseStore
	metrics *Metrics

	rooms     map[string]*Room // 房间 ID -> 房间
	roomMutex sync.RWMutex     // 保护 rooms map
	wg        sync.WaitGroup   // 等待组
	shutdown  chan struct{}    // 关闭信号
	closeOnce sync.Once
}

// NewRoomManager 创建新的房间管理器
func NewRoomManager(ctx context.Context, cfg *Config, tokens *TokenIssuer, store PoseStore, metrics *Metrics) *RoomManager {
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &RoomManager{
		ctx:      ctx,
		cfg:      cfg,
		tokens:   tokens,
		store:    store,
		metrics:  metrics,
		rooms:    make(map[string]*Room),
		shutdown: make(chan struct{}),
	}
}

// Run 启动清理协程并创建默认房间
func (m *RoomManager) Run() error {
	m.wg.Add(1)
	go m.cleanupLoop()

	_, err := m.getOrCreateRoom(DefaultRoomID)
	return err
}

// cleanupLoop 定期清理空房间
func (m *RoomManager) cleanupLoop() {
	defer m.wg.Done()

	interval := m.cfg.RoomIdleTTL / 2
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.shutdown:
			return
		case <-ticker.C:
			m.cleanupEmptyRooms()
		}
	}
}

// cleanupEmptyRooms 清理空置超时的房间（保留默认房间）
func (m *RoomManager) cleanupEmptyRooms() {
	m.roomMutex.Lock()
	defer m.roomMutex.Unlock()

	for roomID, room := range m.rooms {
		if roomID == DefaultRoomID {
			continue
		}
		if room.PlayerCount() == 0 && room.IdleFor() >= m.cfg.RoomIdleTTL {
			logger.Log.WithField("room", roomID).Info("清理空房间")
			room.Shutdown()
			delete(m.rooms, roomID)
			m.metrics.Rooms.Dec()
		}
	}
}

// getOrCreateRoom 获取或创建房间
func (m *RoomManager) getOrCreateRoom(roomID string) (*Room, error) {
	m.roomMutex.Lock()
	defer m.roomMutex.Unlock()

	if room, exists := m.rooms[roomID]; exists {
		return room, nil
	}
	if len(m.rooms) >= m.cfg.MaxRooms {
		return nil, fmt.Errorf("%w (%d)", ErrTooManyRooms, m.cfg.MaxRooms)
	}

	logger.Log.WithField("room", roomID).Info("创建新房间")
	room := NewRoom(m.ctx, roomID, m.cfg, m.tokens, m.store, m.metrics)
	m.rooms[roomID] = room
	m.metrics.Rooms.Inc()

	// 启动房间循环
	m.wg.Add(1)
	go room.Run(&m.wg)

	return room, nil
}

func (m *RoomManager) getRoom(roomID string) (*Room, bool) {
	m.roomMutex.RLock()
	defer m.roomMutex.RUnlock()
	room, ok := m.rooms[roomID]
	return room, ok
}

// Join 玩家加入房间，房间不存在时创建
func (m *RoomManager) Join(session Session, req *protocol.JoinRequest) error {
	roomID := req.RoomID
	if roomID == "" {
		roomID = DefaultRoomID
	}

	room, err := m.getOrCreateRoom(roomID)
	if err != nil {
		return err
	}

	session.SetRoomID(roomID)
	if err := room.Join(session, req); err != nil {
		session.SetRoomID("")
		return err
	}

	logger.Log.WithFields(logrus.Fields{"player": session.ID(), "room": roomID}).Info("玩家加入房间")
	return nil
}

// Reconnect 凭 token 中的房间和玩家 ID 重新绑定身体
func (m *RoomManager) Reconnect(session Session, claims *Claims) error {
	room, ok := m.getRoom(claims.RoomID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchRoom, claims.RoomID)
	}

	session.SetRoomID(claims.RoomID)
	if err := room.Reconnect(session, claims.PlayerID); err != nil {
		session.SetRoomID("")
		return err
	}
	return nil
}

// EnqueueInput 将输入放入对应房间
func (m *RoomManager) EnqueueInput(roomID string, playerID int32, epoch uint32, inputs []core.InputRecord) {
	room, ok := m.getRoom(roomID)
	if !ok {
		logger.Log.WithFields(logrus.Fields{"player": playerID, "room": roomID}).Debug("房间不存在，输入被丢弃")
		return
	}
	room.EnqueueInput(playerID, epoch, inputs)
}

// Leave 玩家断线
func (m *RoomManager) Leave(roomID string, playerID int32, session Session) {
	room, ok := m.getRoom(roomID)
	if !ok {
		return
	}
	room.Leave(playerID, session)
}

// Teleport 传送指定房间内的玩家
func (m *RoomManager) Teleport(roomID string, playerID int32, pos core.Vec3) error {
	room, ok := m.getRoom(roomID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchRoom, roomID)
	}
	return room.Teleport(playerID, pos)
}

// CreateRoom 创建新房间（返回房间 ID）
func (m *RoomManager) CreateRoom() (string, error) {
	roomID := uuid.NewString()
	if _, err := m.getOrCreateRoom(roomID); err != nil {
		return "", err
	}
	return roomID, nil
}

// Shutdown 关闭所有房间并等待房间循环结束
func (m *RoomManager) Shutdown() {
	m.closeOnce.Do(func() {
		close(m.shutdown)

		m.roomMutex.Lock()
		logger.Log.Infof("关闭 %d 个房间...", len(m.rooms))
		for roomID, room := range m.rooms {
			room.Shutdown()
			delete(m.rooms, roomID)
			m.metrics.Rooms.Dec()
		}
		m.roomMutex.Unlock()

		m.wg.Wait()
		logger.Log.Info("所有房间已关闭")
	})
}

// RoomStats 房间统计信息
type RoomStats struct {
	PlayerCount int
	IdleFor     time.Duration
}

// GetRoomStats 获取房间统计信息
func (m *RoomManager) GetRoomStats() map[string]RoomStats {
	m.roomMutex.RLock()
	defer m.roomMutex.RUnlock()

	stats := make(map[string]RoomStats, len(m.rooms))
	for roomID, room := range m.rooms {
		stats[roomID] = RoomStats{
			PlayerCount: room.PlayerCount(),
			IdleFor:     room.IdleFor(),
		}
	}
	return stats
}

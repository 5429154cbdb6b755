package server

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"shooter/pkg/core"
	"shooter/pkg/logger"
	"shooter/pkg/protocol"
)

var (
	ErrRoomFull     = errors.New("房间已满")
	ErrRoomClosed   = errors.New("房间已关闭")
	ErrNoSuchPlayer = errors.New("玩家不存在")
)

// MaxNameRunes 玩家名最多保留的字符数
const MaxNameRunes = 32

// pendingFactor 两个 tick 之间每个身体最多暂存输入队列容量的几倍
const pendingFactor = 4

// Room 一个世界：持有所有身体，在单个协程里按固定步长推进。
// 网络协程只通过通道投递事件，事件在 tick 之间处理，输入在下一个 tick 开始时取走。
type Room struct {
	id      string
	cfg     *Config
	tokens  *TokenIssuer
	store   PoseStore
	metrics *Metrics
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	bodies       map[int32]*body
	order        []int32 // 按加入顺序遍历，广播顺序稳定
	nextPlayerID int32
	tick         core.Tick

	playerCount atomic.Int32
	emptySince  atomic.Int64 // UnixNano，有人时为 0

	joinCh      chan joinRequest
	inputCh     chan inputEvent
	leaveCh     chan leaveEvent
	teleportCh  chan teleportRequest
	reconnectCh chan reconnectRequest
}

// body 房间内的一个玩家身体
type body struct {
	id      int32
	name    string
	session Session // nil 表示断线，等待重连
	lostAt  time.Time
	sim     *Simulator
	pending []core.InputRecord
}

type joinRequest struct {
	session Session
	req     *protocol.JoinRequest
	respCh  chan error
}

type inputEvent struct {
	playerID int32
	epoch    uint32
	inputs   []core.InputRecord
}

type leaveEvent struct {
	playerID int32
	session  Session
}

type teleportRequest struct {
	playerID int32
	position core.Vec3
	respCh   chan error
}

type reconnectRequest struct {
	session  Session
	playerID int32
	respCh   chan error
}

// NewRoom 创建房间。store 可以为 nil。
func NewRoom(parent context.Context, id string, cfg *Config, tokens *TokenIssuer, store PoseStore, metrics *Metrics) *Room {
	ctx, cancel := context.WithCancel(parent)
	if metrics == nil {
		metrics = NewMetrics()
	}

	r := &Room{
		id:           id,
		cfg:          cfg,
		tokens:       tokens,
		store:        store,
		metrics:      metrics,
		now:          time.Now,
		ctx:          ctx,
		cancel:       cancel,
		bodies:       make(map[int32]*body),
		nextPlayerID: 1,
		joinCh:       make(chan joinRequest),
		inputCh:      make(chan inputEvent, 256),
		leaveCh:      make(chan leaveEvent, 256),
		teleportCh:   make(chan teleportRequest, 16),
		reconnectCh:  make(chan reconnectRequest),
	}
	r.emptySince.Store(r.now().UnixNano())
	return r
}

func (r *Room) ID() string {
	return r.id
}

// PlayerCount 房间内的身体数（包括等待重连的）
func (r *Room) PlayerCount() int {
	return int(r.playerCount.Load())
}

// IdleFor 房间空置了多久，有人时为 0
func (r *Room) IdleFor() time.Duration {
	since := r.emptySince.Load()
	if since == 0 {
		return 0
	}
	return r.now().Sub(time.Unix(0, since))
}

// Run 房间主循环
func (r *Room) Run(wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(r.cfg.TickDuration())
	defer ticker.Stop()

	log := logger.Log.WithField("room", r.id)
	log.WithField("tps", r.cfg.TickRate).Info("房间循环启动")

	for {
		select {
		case <-r.ctx.Done():
			r.destroy()
			log.Info("房间循环停止")
			return

		case req := <-r.joinCh:
			req.respCh <- r.handleJoin(req.session, req.req)

		case req := <-r.reconnectCh:
			req.respCh <- r.handleReconnect(req.session, req.playerID)

		case req := <-r.teleportCh:
			req.respCh <- r.handleTeleport(req.playerID, req.position)

		case ev := <-r.inputCh:
			r.handleInput(ev)

		case ev := <-r.leaveCh:
			r.handleLeave(ev.playerID, ev.session)

		case <-ticker.C:
			r.step()
		}
	}
}

func (r *Room) Shutdown() {
	r.cancel()
}

// Join 玩家加入，成功时加入响应已经发出
func (r *Room) Join(session Session, req *protocol.JoinRequest) error {
	respCh := make(chan error, 1)
	return r.request(func() bool {
		select {
		case r.joinCh <- joinRequest{session: session, req: req, respCh: respCh}:
			return true
		case <-r.ctx.Done():
			return false
		}
	}, respCh)
}

// Reconnect 把已有身体绑定到新连接
func (r *Room) Reconnect(session Session, playerID int32) error {
	respCh := make(chan error, 1)
	return r.request(func() bool {
		select {
		case r.reconnectCh <- reconnectRequest{session: session, playerID: playerID, respCh: respCh}:
			return true
		case <-r.ctx.Done():
			return false
		}
	}, respCh)
}

// Teleport 把玩家放到指定位置，所有客户端清空该身体的缓冲
func (r *Room) Teleport(playerID int32, pos core.Vec3) error {
	respCh := make(chan error, 1)
	return r.request(func() bool {
		select {
		case r.teleportCh <- teleportRequest{playerID: playerID, position: pos, respCh: respCh}:
			return true
		case <-r.ctx.Done():
			return false
		}
	}, respCh)
}

func (r *Room) request(submit func() bool, respCh chan error) error {
	if !submit() {
		return ErrRoomClosed
	}
	select {
	case <-r.ctx.Done():
		return ErrRoomClosed
	case err := <-respCh:
		return err
	}
}

// EnqueueInput 投递一批输入，下一个 tick 开始时进入输入队列。
// epoch 为客户端已知的传送代数，过期的整批丢弃。
func (r *Room) EnqueueInput(playerID int32, epoch uint32, inputs []core.InputRecord) {
	select {
	case <-r.ctx.Done():
	case r.inputCh <- inputEvent{playerID: playerID, epoch: epoch, inputs: inputs}:
	}
}

// Leave 连接断开。身体保留 ReconnectGrace 等待重连。
// 只有身体仍绑定在该连接上时才生效，已经被新连接接管的身体不受影响。
func (r *Room) Leave(playerID int32, session Session) {
	select {
	case <-r.ctx.Done():
	case r.leaveCh <- leaveEvent{playerID: playerID, session: session}:
	}
}

// ========== 房间协程内部 ==========

// timestamp 批次时间：房间 tick 换算成秒
func (r *Room) timestamp() float64 {
	return float64(r.tick) / float64(r.cfg.TickRate)
}

func (r *Room) step() {
	start := time.Now()
	r.tick++
	ts := r.timestamp()

	for _, id := range r.order {
		b := r.bodies[id]
		r.drainInputs(b)
		r.metrics.QueueDepth.Observe(float64(b.sim.QueueLen()))

		state, _ := b.sim.Tick()
		r.metrics.TimingAdjustments.WithLabelValues(adjustmentLabel(state.TimingAdjustment)).Inc()

		if b.session != nil {
			r.send(b, protocol.ChannelUnreliable, protocol.MarshalPacket(protocol.NewStateUpdatePacket(state, ts)))
		}
	}

	if every := r.cfg.SnapshotEvery; every <= 1 || r.tick%core.Tick(every) == 0 {
		r.broadcastSnapshots(ts)
	}

	r.expireDisconnected()

	r.metrics.Ticks.Inc()
	r.metrics.TickDuration.Observe(time.Since(start).Seconds())
}

func (r *Room) drainInputs(b *body) {
	if len(b.pending) == 0 {
		return
	}
	accepted, dropped := b.sim.EnqueueClientInputs(b.pending)
	b.pending = b.pending[:0]

	r.metrics.InputsAccepted.Add(float64(accepted))
	if dropped > 0 {
		r.metrics.InputsDropped.WithLabelValues("overflow").Add(float64(dropped))
		logger.Log.WithFields(logrus.Fields{"room": r.id, "player": b.id, "dropped": dropped}).Debug("输入队列溢出")
	}
}

// broadcastSnapshots 每个身体的位置和朝向发给除拥有者以外的所有人
func (r *Room) broadcastSnapshots(ts float64) {
	for _, id := range r.order {
		b := r.bodies[id]
		state := b.sim.State()
		data := protocol.MarshalPacket(protocol.NewRemoteSnapshotPacket(b.id, state.Position, state.Facing, ts))
		r.broadcast(protocol.ChannelUnreliable, data, b.id)
	}
}

func (r *Room) expireDisconnected() {
	if len(r.bodies) == 0 {
		return
	}
	now := r.now()
	var expired []int32
	for _, id := range r.order {
		b := r.bodies[id]
		if b.session == nil && now.Sub(b.lostAt) >= r.cfg.ReconnectGrace {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		r.removeBody(id, "重连超时")
	}
}

func (r *Room) handleJoin(session Session, req *protocol.JoinRequest) error {
	if len(r.bodies) >= r.cfg.MaxPlayers {
		return fmt.Errorf("%w: %s (%d/%d)", ErrRoomFull, r.id, len(r.bodies), r.cfg.MaxPlayers)
	}

	playerID := r.nextPlayerID
	name := playerName(req.PlayerName, playerID)
	log := logger.Log.WithFields(logrus.Fields{"room": r.id, "player": playerID, "name": name})

	spawn := core.MotionState{Tick: r.tick, Position: r.cfg.spawnPoint(playerID)}
	if r.store != nil {
		saved, ok, err := r.store.Load(name)
		switch {
		case err != nil:
			log.WithError(err).Warn("读取保存的位置失败")
		case ok && saved.Position.Finite() && saved.Facing.Finite():
			spawn.Position = saved.Position
			spawn.Facing = saved.Facing
			log.WithField("pos", saved.Position).Info("恢复上次的位置")
		}
	}

	token, err := r.tokens.Issue(playerID, r.id, name)
	if err != nil {
		return fmt.Errorf("生成会话 token 失败: %w", err)
	}

	b := &body{
		id:      playerID,
		name:    name,
		session: session,
		sim:     NewSimulator(spawn, nil, r.cfg.Movement),
	}

	resp := &protocol.JoinResponse{
		Success:       true,
		PlayerID:      playerID,
		TickRate:      int32(r.cfg.TickRate),
		SnapshotEvery: int32(r.cfg.SnapshotEvery),
		Spawn:         spawn,
		SessionToken:  token,
		RoomID:        r.id,
		Players:       r.playerInfos(),
	}
	session.SetPlayerID(playerID)
	if err := session.Send(protocol.ChannelReliable, protocol.Encode(resp, r.timestamp())); err != nil {
		session.SetPlayerID(-1)
		return fmt.Errorf("发送加入响应失败: %w", err)
	}

	r.broadcast(protocol.ChannelReliable, protocol.Encode(&protocol.PlayerJoin{Player: b.info()}, r.timestamp()), -1)

	r.nextPlayerID++
	r.bodies[playerID] = b
	r.order = append(r.order, playerID)
	r.playerCount.Add(1)
	r.emptySince.Store(0)
	r.metrics.Players.Inc()

	log.WithField("spawn", spawn.Position).Info("玩家加入")
	return nil
}

// playerName 名字会写进会话 token 和位置库，限制长度并去掉非法编码
func playerName(raw string, playerID int32) string {
	name := strings.TrimSpace(strings.ToValidUTF8(raw, ""))
	if utf8.RuneCountInString(name) > MaxNameRunes {
		name = string([]rune(name)[:MaxNameRunes])
	}
	if name == "" {
		name = fmt.Sprintf("player-%d", playerID)
	}
	return name
}

func (r *Room) handleReconnect(session Session, playerID int32) error {
	b, ok := r.bodies[playerID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoSuchPlayer, playerID)
	}
	if b.session != nil && b.session != session {
		b.session.CloseWithoutNotify()
	}
	b.session = session
	b.lostAt = time.Time{}
	b.pending = b.pending[:0]
	session.SetPlayerID(playerID)

	// 原地传送：旧连接上的预测历史全部作废
	state := b.sim.Teleport(b.sim.State().Position)
	resp := &protocol.ReconnectResponse{
		Success:  true,
		PlayerID: playerID,
		State:    state,
		Players:  r.playerInfos(),
		Epoch:    b.sim.Epoch(),
	}
	if err := session.Send(protocol.ChannelReliable, protocol.Encode(resp, r.timestamp())); err != nil {
		r.disconnect(b)
		return fmt.Errorf("发送重连响应失败: %w", err)
	}
	r.broadcast(protocol.ChannelReliable, r.teleportFrame(b, state), playerID)

	logger.Log.WithFields(logrus.Fields{"room": r.id, "player": playerID}).Info("玩家重连")
	return nil
}

func (r *Room) handleTeleport(playerID int32, pos core.Vec3) error {
	b, ok := r.bodies[playerID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoSuchPlayer, playerID)
	}
	if !pos.Finite() {
		return fmt.Errorf("无效的传送位置: %+v", pos)
	}
	b.pending = b.pending[:0]
	state := b.sim.Teleport(pos)
	r.broadcast(protocol.ChannelReliable, r.teleportFrame(b, state), -1)
	r.metrics.Teleports.Inc()

	logger.Log.WithFields(logrus.Fields{"room": r.id, "player": playerID, "pos": pos}).Info("玩家传送")
	return nil
}

func (r *Room) teleportFrame(b *body, state core.MotionState) []byte {
	return protocol.MarshalPacket(protocol.NewTeleportPacket(b.id, state, b.sim.Epoch(), r.timestamp()))
}

func (r *Room) handleInput(ev inputEvent) {
	b, ok := r.bodies[ev.playerID]
	if !ok || b.session == nil {
		return
	}
	if !b.sim.AcceptsEpoch(ev.epoch) {
		r.metrics.InputsDropped.WithLabelValues("stale_epoch").Add(float64(len(ev.inputs)))
		return
	}
	b.pending = append(b.pending, ev.inputs...)
	if over := len(b.pending) - pendingFactor*b.sim.QueueCapacity(); over > 0 {
		b.pending = append(b.pending[:0], b.pending[over:]...)
		r.metrics.InputsDropped.WithLabelValues("overflow").Add(float64(over))
	}
}

func (r *Room) handleLeave(playerID int32, session Session) {
	b, ok := r.bodies[playerID]
	if !ok || b.session == nil || b.session != session {
		return
	}
	r.disconnect(b)
	if r.cfg.ReconnectGrace <= 0 {
		r.removeBody(playerID, "断开连接")
	}
}

// disconnect 解绑连接，身体留在世界里
func (r *Room) disconnect(b *body) {
	b.session = nil
	b.lostAt = r.now()
	b.pending = b.pending[:0]
	logger.Log.WithFields(logrus.Fields{"room": r.id, "player": b.id}).Info("玩家断线，等待重连")
}

func (r *Room) removeBody(playerID int32, reason string) {
	b, ok := r.bodies[playerID]
	if !ok {
		return
	}
	r.savePose(b)
	b.sim.Destroy()
	b.pending = nil

	delete(r.bodies, playerID)
	r.order = slices.DeleteFunc(r.order, func(id int32) bool { return id == playerID })
	if r.playerCount.Add(-1) == 0 {
		r.emptySince.Store(r.now().UnixNano())
	}
	r.metrics.Players.Dec()

	logger.Log.WithFields(logrus.Fields{"room": r.id, "player": playerID, "reason": reason}).Info("玩家离开")

	r.broadcast(protocol.ChannelReliable, protocol.Encode(&protocol.PlayerLeave{PlayerID: playerID}, r.timestamp()), -1)
}

func (r *Room) savePose(b *body) {
	if r.store == nil {
		return
	}
	if err := r.store.Save(b.name, b.sim.State()); err != nil {
		logger.Log.WithError(err).WithFields(logrus.Fields{"room": r.id, "player": b.id}).Warn("保存位置失败")
	}
}

// destroy 房间关闭：保存位置、清空所有缓冲、关闭连接
func (r *Room) destroy() {
	for _, id := range r.order {
		b := r.bodies[id]
		r.savePose(b)
		b.sim.Destroy()
		if b.session != nil {
			b.session.CloseWithoutNotify()
		}
		r.metrics.Players.Dec()
	}
	r.bodies = make(map[int32]*body)
	r.order = nil
	r.playerCount.Store(0)
}

func (r *Room) broadcast(ch protocol.Channel, data []byte, exclude int32) {
	for _, id := range r.order {
		if id == exclude {
			continue
		}
		if b := r.bodies[id]; b.session != nil {
			r.send(b, ch, data)
		}
	}
}

// send 可靠消息发不出去说明对端已经跟不上，断开它等待重连
func (r *Room) send(b *body, ch protocol.Channel, data []byte) {
	err := b.session.Send(ch, data)
	if err == nil {
		return
	}
	log := logger.Log.WithError(err).WithFields(logrus.Fields{"room": r.id, "player": b.id, "channel": ch})
	if ch == protocol.ChannelUnreliable {
		log.Debug("发送失败")
		return
	}
	log.Warn("可靠消息发送失败，断开连接")
	b.session.CloseWithoutNotify()
	r.disconnect(b)
}

func (r *Room) playerInfos() []protocol.PlayerInfo {
	infos := make([]protocol.PlayerInfo, 0, len(r.order))
	for _, id := range r.order {
		infos = append(infos, r.bodies[id].info())
	}
	return infos
}

func (b *body) info() protocol.PlayerInfo {
	state := b.sim.State()
	return protocol.PlayerInfo{
		PlayerID: b.id,
		Name:     b.name,
		Position: state.Position,
		Facing:   state.Facing,
	}
}

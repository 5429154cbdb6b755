package client

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"shooter/pkg/core"
	"shooter/pkg/logger"
	"shooter/pkg/protocol"
)

// FrameInput 一个渲染帧的连续输入
type FrameInput struct {
	MoveX, MoveY float64
	LookX, LookY float64
	Jump         bool
}

// InputSource 输入来源（键鼠、手柄或机器人），每个渲染帧调用一次
type InputSource interface {
	Poll(self core.MotionState) FrameInput
}

// RemoteView 远端玩家当前帧的渲染结果
type RemoteView struct {
	PlayerID int32
	Name     string
	Position core.Vec3
	Facing   core.Vec2
	Visible  bool // 还没有收到过快照时为 false
}

type remoteBody struct {
	smoother *RemoteSmoother
	view     RemoteView
}

// NetworkGameClient 客户端世界：持有本地身体的预测器和所有远端身体的插值器。
// 所有方法都在游戏循环所在的单个协程中调用。
type NetworkGameClient struct {
	network *NetworkClient
	welcome *protocol.JoinResponse // 创建世界所依据的加入响应
	input   InputSource
	cfg     Config

	playerID    int32
	clock       *core.TickClock
	sampler     *core.InputSampler
	predictor   *Predictor
	accumulator *core.Accumulator
	interp      InterpolationConfig
	remotes     map[int32]*remoteBody
	epoch       uint32 // 最近一次传送或重连的代数

	start   time.Time
	last    time.Time
	started bool
}

// NewNetworkGameClient 根据加入响应创建客户端世界
func NewNetworkGameClient(network *NetworkClient, input InputSource, cfg Config) (*NetworkGameClient, error) {
	welcome := network.Welcome()
	if welcome == nil {
		return nil, errors.New("尚未加入房间")
	}
	if cfg.Movement == nil {
		cfg.Movement = core.DefaultMovementConfig()
	}

	tickRate := welcome.TickRate
	if tickRate <= 0 {
		tickRate = core.TickRate
	}
	step := time.Second / time.Duration(tickRate)

	interp := cfg.Interpolation
	if welcome.SnapshotEvery > 0 {
		interp.SendInterval = float64(welcome.SnapshotEvery) / float64(tickRate)
	}

	clock := core.NewTickClock(welcome.Spawn.Tick)
	ngc := &NetworkGameClient{
		network:     network,
		welcome:     welcome,
		input:       input,
		cfg:         cfg,
		playerID:    welcome.PlayerID,
		clock:       clock,
		sampler:     core.NewInputSampler(),
		predictor:   NewPredictor(welcome.Spawn, core.FlatGround{}, cfg.Movement, clock),
		accumulator: core.NewAccumulator(step, MaxCatchUpSteps),
		interp:      interp,
		remotes:     make(map[int32]*remoteBody),
	}
	for _, p := range welcome.Players {
		ngc.addRemote(p)
	}
	return ngc, nil
}

// Start 开始计时，第一次 Update 之前调用
func (ngc *NetworkGameClient) Start(now time.Time) {
	ngc.start = now
	ngc.last = now
	ngc.accumulator.Reset()
	ngc.started = true
}

// Update 每个渲染帧调用一次：
// 先处理网络消息，再采集输入、执行到期的固定步，最后更新远端插值。
func (ngc *NetworkGameClient) Update(now time.Time) error {
	if !ngc.started {
		ngc.Start(now)
	}
	dt := now.Sub(ngc.last)
	if dt < 0 {
		dt = 0
	}
	ngc.last = now
	localNow := ngc.localTime(now)

	// 1. 网络消息只在这里处理，不会打断模拟
	ngc.drainNetwork()

	// 2. 连续输入
	if ngc.input != nil {
		in := ngc.input.Poll(ngc.predictor.State())
		ngc.sampler.SetContinuousInput(in.MoveX, in.MoveY, in.LookX, in.LookY, in.Jump)
	}

	// 3. 固定步，节奏修正由 clock.Due 分摊执行
	for steps := ngc.accumulator.Add(dt); steps > 0; steps-- {
		for n := ngc.clock.Due(); n > 0; n-- {
			ngc.fixedStep(localNow)
		}
	}

	// 4. 远端插值
	for _, body := range ngc.remotes {
		pos, rot, ok := body.smoother.Update(localNow, dt.Seconds())
		if ok {
			body.view.Position = pos
			body.view.Facing = rot
			body.view.Visible = true
		}
	}
	return nil
}

func (ngc *NetworkGameClient) fixedStep(localNow float64) {
	tick := ngc.clock.Advance()
	rec := ngc.sampler.Sample(tick)
	ngc.predictor.Step(rec)

	if !ngc.network.IsConnected() {
		return
	}
	batch := protocol.NewInputBatchPacket(ngc.predictor.OutgoingInputs(), ngc.epoch, localNow)
	if err := ngc.network.SendPacket(batch); err != nil {
		logger.Log.WithError(err).WithField("tick", tick).Debug("发送输入失败")
	}
}

// drainNetwork 取走所有已到达的消息
func (ngc *NetworkGameClient) drainNetwork() {
	if r := ngc.network.ReceiveReconnect(); r != nil {
		ngc.epoch = r.Epoch
		ngc.predictor.Reset(r.State)
		for _, body := range ngc.remotes {
			body.smoother.Reset()
		}
		for _, p := range r.Players {
			ngc.addRemote(p)
		}
	}

	for {
		p, ok := ngc.network.ReceivePlayerJoin()
		if !ok {
			break
		}
		ngc.addRemote(p)
	}

	for {
		id := ngc.network.ReceivePlayerLeave()
		if id < 0 {
			break
		}
		ngc.removeRemote(id)
	}

	for {
		tp := ngc.network.ReceiveTeleport()
		if tp == nil {
			break
		}
		ngc.applyTeleport(tp)
	}

	for {
		state, ok := ngc.network.ReceiveState()
		if !ok {
			break
		}
		ngc.predictor.OnAuthoritativeState(state)
	}

	for {
		snap, ok := ngc.network.ReceiveSnapshot()
		if !ok {
			break
		}
		body, exists := ngc.remotes[snap.PlayerID]
		if !exists {
			// 快照可能比加入通知先到
			body = ngc.addRemote(protocol.PlayerInfo{PlayerID: snap.PlayerID})
		}
		if body == nil {
			continue
		}
		body.smoother.OnSnapshotReceived(ngc.localTime(snap.ReceivedAt), snap.RemoteTime, snap.Position, snap.Rotation)
	}
}

func (ngc *NetworkGameClient) applyTeleport(tp *protocol.Teleport) {
	if tp.PlayerID == ngc.playerID {
		ngc.epoch = tp.Epoch
		ngc.predictor.Reset(tp.State)
		logger.Log.WithFields(logrus.Fields{"player": tp.PlayerID, "tick": tp.State.Tick}).Info("本地玩家被传送")
		return
	}
	body, ok := ngc.remotes[tp.PlayerID]
	if !ok {
		return
	}
	body.smoother.Reset()
	body.view.Position = tp.State.Position
	body.view.Facing = tp.State.Facing
}

func (ngc *NetworkGameClient) addRemote(p protocol.PlayerInfo) *remoteBody {
	if p.PlayerID == ngc.playerID {
		return nil
	}
	if body, ok := ngc.remotes[p.PlayerID]; ok {
		if p.Name != "" {
			body.view.Name = p.Name
		}
		return body
	}
	body := &remoteBody{
		smoother: NewRemoteSmoother(ngc.interp),
		view: RemoteView{
			PlayerID: p.PlayerID,
			Name:     p.Name,
			Position: p.Position,
			Facing:   p.Facing,
		},
	}
	ngc.remotes[p.PlayerID] = body
	logger.Log.WithField("player", p.PlayerID).Debug("远端玩家加入")
	return body
}

func (ngc *NetworkGameClient) removeRemote(id int32) {
	body, ok := ngc.remotes[id]
	if !ok {
		return
	}
	body.smoother.Reset()
	delete(ngc.remotes, id)
	logger.Log.WithField("player", id).Debug("远端玩家离开")
}

func (ngc *NetworkGameClient) localTime(t time.Time) float64 {
	return t.Sub(ngc.start).Seconds()
}

// LocalState 本地玩家的预测状态
func (ngc *NetworkGameClient) LocalState() core.MotionState {
	return ngc.predictor.State()
}

// Epoch 输入批次当前携带的传送代数
func (ngc *NetworkGameClient) Epoch() uint32 {
	return ngc.epoch
}

// Predictor 本地玩家的预测器
func (ngc *NetworkGameClient) Predictor() *Predictor {
	return ngc.predictor
}

// PlayerID 本地玩家 ID
func (ngc *NetworkGameClient) PlayerID() int32 {
	return ngc.playerID
}

// Remotes 所有远端玩家当前的渲染结果
func (ngc *NetworkGameClient) Remotes() []RemoteView {
	views := make([]RemoteView, 0, len(ngc.remotes))
	for _, body := range ngc.remotes {
		views = append(views, body.view)
	}
	return views
}

// Destroy 清空所有身体的缓冲并关闭网络
func (ngc *NetworkGameClient) Destroy() {
	ngc.release()
	if ngc.network != nil {
		ngc.network.Close()
	}
}

func (ngc *NetworkGameClient) release() {
	ngc.predictor.Destroy()
	for id, body := range ngc.remotes {
		body.smoother.Reset()
		delete(ngc.remotes, id)
	}
}

// PrepareWorld 每次 Connect 成功后调用。
// 重连成功时加入响应不变，沿用 world，由重连响应重置预测；
// 重连被拒后重新加入会得到新的玩家 ID 和出生状态，旧世界作废，按新的加入响应重建。
func PrepareWorld(world *NetworkGameClient, network *NetworkClient, input InputSource, cfg Config) (*NetworkGameClient, error) {
	if world != nil && world.network == network && world.welcome == network.Welcome() {
		return world, nil
	}
	if world != nil {
		world.release()
		logger.Log.WithFields(logrus.Fields{"old": world.playerID, "new": network.PlayerID()}).Info("重新加入，重建客户端世界")
	}
	return NewNetworkGameClient(network, input, cfg)
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"shooter/internal/client"
	"shooter/internal/ai"
	"shooter/pkg/logger"
	"shooter/pkg/utils"
)

// frameInterval 渲染帧间隔，比 tick 快，验证输入采样和插值
const frameInterval = time.Second / 120

func main() {
	cfg := client.DefaultConfig()

	flag.StringVar(&cfg.ServerAddr, "addr", utils.GetEnvDefault("SERVER_ADDR", "localhost:8080"), "服务器地址")
	flag.StringVar(&cfg.Proto, "proto", cfg.Proto, "传输协议：tcp | kcp | ws")
	flag.StringVar(&cfg.RoomID, "room", cfg.RoomID, "房间 ID，为空时进入默认房间")
	name := flag.String("name", "bot", "玩家名前缀")
	bots := flag.Int("bots", 1, "机器人数量")
	hard := flag.Bool("hard", false, "使用困难难度")
	seed := flag.Int64("seed", time.Now().UnixNano(), "随机种子")
	flag.Parse()

	logger.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	botCfg := &ai.BotConfigNormal
	if *hard {
		botCfg = &ai.BotConfigHard
	}

	logger.Log.WithFields(logrus.Fields{"server": cfg.ServerAddr, "proto": cfg.Proto, "bots": *bots}).Info("启动机器人")

	g, ctx := errgroup.WithContext(ctx)
	for i := range *bots {
		botConfig := cfg
		botConfig.PlayerName = fmt.Sprintf("%s-%d", *name, i+1)
		controller := ai.NewBotController(*seed+int64(i), botCfg)
		g.Go(func() error {
			runBot(ctx, botConfig, controller)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Log.WithError(err).Error("机器人异常退出")
		os.Exit(1)
	}
	logger.Log.Info("所有机器人已停止")
}

// runBot 断线后等待一段时间用会话 token 重连，直到 ctx 结束
func runBot(ctx context.Context, cfg client.Config, controller *ai.BotController) {
	network := client.NewNetworkClient(cfg)
	defer network.Close()
	log := logger.Log.WithField("bot", cfg.PlayerName)

	var world *client.NetworkGameClient
	defer func() {
		if world != nil {
			world.Destroy()
		}
	}()

	for ctx.Err() == nil {
		if err := network.Connect(ctx); err != nil {
			log.WithError(err).Warn("连接失败，稍后重试")
			if !sleep(ctx, 2*time.Second) {
				return
			}
			continue
		}

		prev := world
		var err error
		world, err = client.PrepareWorld(world, network, controller, cfg)
		if err != nil {
			log.WithError(err).Error("创建客户端世界失败")
			return
		}
		if world != prev {
			// 每次重新加入都围绕新的出生点活动
			controller.SetConfig(controller.Config().WithHome(world.LocalState().Position))
		}

		err = play(ctx, network, world, controller, log)
		network.Close()
		if err != nil {
			log.WithError(err).Warn("连接中断，准备重连")
			if !sleep(ctx, time.Second) {
				return
			}
		}
	}
}

// play 驱动帧循环直到连接出错或 ctx 结束
func play(ctx context.Context, network *client.NetworkClient, world *client.NetworkGameClient, controller *ai.BotController, log *logrus.Entry) error {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()
	report := time.NewTicker(10 * time.Second)
	defer report.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-network.Errors():
			return err
		case now := <-ticker.C:
			controller.Observe(world.Remotes())
			if err := world.Update(now); err != nil {
				return err
			}
		case <-report.C:
			stats := world.Predictor().Stats()
			state := world.LocalState()
			log.WithFields(logrus.Fields{
				"tick":        state.Tick,
				"pos":         state.Position,
				"remotes":     len(world.Remotes()),
				"corrections": stats.Corrections,
				"resyncs":     stats.Resyncs,
				"dropped":     network.DroppedUnreliable(),
			}).Info("机器人状态")
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"shooter/internal/server"
	"shooter/internal/store"
	"shooter/pkg/logger"
	"shooter/pkg/utils"
)

func main() {
	cfg := server.DefaultConfig()

	// 命令行参数
	flag.StringVar(&cfg.Addr, "addr", utils.GetEnvDefault("ADDR", cfg.Addr), "服务器监听地址")
	flag.StringVar(&cfg.Proto, "proto", cfg.Proto, "传输协议：tcp | kcp | ws")
	flag.IntVar(&cfg.MaxPlayers, "max-players", cfg.MaxPlayers, "每个房间的最大玩家数")
	flag.IntVar(&cfg.MaxRooms, "rooms", cfg.MaxRooms, "最大房间数")
	flag.DurationVar(&cfg.ReconnectGrace, "grace", cfg.ReconnectGrace, "断线后保留身体的时间")
	adminAddr := flag.String("admin", utils.GetEnvDefault("ADMIN_ADDR", ":9100"), "运维接口地址，为空时不启动")
	dbPath := flag.String("db", utils.GetEnvDefault("DB_PATH", "shooter.db"), "位置数据库文件，为空时不保存")
	flag.Parse()

	logger.Init()

	if err := run(cfg, *adminAddr, *dbPath); err != nil {
		logger.Log.WithError(err).Error("服务器异常退出")
		os.Exit(1)
	}
	logger.Log.Info("服务器已关闭，再见！")
}

func run(cfg *server.Config, adminAddr, dbPath string) error {
	var poses server.PoseStore
	if dbPath != "" {
		db, err := store.Open(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()
		poses = db
	}

	gameServer := server.NewGameServer(cfg, poses)

	logger.Log.WithFields(logrus.Fields{
		"addr":        cfg.Addr,
		"proto":       cfg.Proto,
		"tps":         cfg.TickRate,
		"max_players": cfg.MaxPlayers,
		"admin":       adminAddr,
	}).Info("FPS 联机服务器")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(gameServer.Start)

	if adminAddr != "" {
		admin := &http.Server{
			Addr:              adminAddr,
			Handler:           server.NewAdminHandler(gameServer),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return admin.Shutdown(shutdownCtx)
		})
	}

	// 收到信号或任一组件出错时关闭
	g.Go(func() error {
		<-ctx.Done()
		gameServer.Shutdown()
		return nil
	})

	return g.Wait()
}

package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/coder/websocket"
	kcp "github.com/xtaci/kcp-go/v5"

	"shooter/pkg/logger"
	"shooter/pkg/protocol"
)

type ServerListener interface {
	Accept() (net.Conn, error)
	Close() error
	Addr() net.Addr
}

func newListener(proto, addr string) (ServerListener, error) {
	switch proto {
	case "", "tcp":
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, err
		}
		return &tcpListener{listener: listener}, nil
	case "kcp":
		listener, err := kcp.ListenWithOptions(addr, nil, 0, 0)
		if err != nil {
			return nil, err
		}
		return &kcpListener{listener: listener}, nil
	case "ws":
		return newWSListener(addr)
	default:
		return nil, fmt.Errorf("不支持的协议: %s", proto)
	}
}

type tcpListener struct {
	listener net.Listener
}

func (l *tcpListener) Accept() (net.Conn, error) {
	conn, err := l.listener.Accept()
	if err != nil {
		return nil, err
	}
	// 开启 TCP_NODELAY，禁用 Nagle 算法以减少延迟
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		tcpConn.SetNoDelay(true)
	}
	return conn, nil
}

func (l *tcpListener) Close() error {
	return l.listener.Close()
}

func (l *tcpListener) Addr() net.Addr {
	return l.listener.Addr()
}

type kcpListener struct {
	listener *kcp.Listener
}

func (l *kcpListener) Accept() (net.Conn, error) {
	session, err := l.listener.AcceptKCP()
	if err != nil {
		return nil, err
	}
	// 与客户端一致：流模式 + 快速重传
	session.SetStreamMode(true)
	session.SetNoDelay(1, 10, 2, 1)
	return session, nil
}

func (l *kcpListener) Close() error {
	return l.listener.Close()
}

func (l *kcpListener) Addr() net.Addr {
	return l.listener.Addr()
}

// wsListener 在 /ws 上升级 WebSocket，把每个连接包装成 net.Conn 交给 Accept
type wsListener struct {
	listener net.Listener
	server   *http.Server
	conns    chan net.Conn
	ctx      context.Context
	cancel   context.CancelFunc
}

func newWSListener(addr string) (*wsListener, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	l := &wsListener{
		listener: listener,
		conns:    make(chan net.Conn),
		ctx:      ctx,
		cancel:   cancel,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", l.accept)
	l.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := l.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Error("WebSocket 服务退出")
		}
	}()
	return l, nil
}

func (l *wsListener) accept(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // 不检查 Origin，客户端不是浏览器
	})
	if err != nil {
		logger.Log.WithError(err).Warn("WebSocket 升级失败")
		return
	}
	ws.SetReadLimit(protocol.MaxPacketSize + 4)

	// 连接的生命周期跟随监听器，而不是这次 HTTP 请求
	conn := websocket.NetConn(l.ctx, ws, websocket.MessageBinary)
	select {
	case l.conns <- conn:
	case <-l.ctx.Done():
		conn.Close()
	}
}

func (l *wsListener) Accept() (net.Conn, error) {
	select {
	case conn := <-l.conns:
		return conn, nil
	case <-l.ctx.Done():
		return nil, net.ErrClosed
	}
}

func (l *wsListener) Close() error {
	l.cancel()
	return l.server.Close()
}

func (l *wsListener) Addr() net.Addr {
	return l.listener.Addr()
}

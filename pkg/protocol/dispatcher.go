package protocol

import "fmt"

// HandlerFunc 处理一条已解码的消息。C 为调用方上下文（连接、客户端等）。
type HandlerFunc[C any] func(ctx C, pkt *Packet, msg Message) error

// TypedHandlerFunc 直接拿到具体消息类型的处理函数
type TypedHandlerFunc[C any, T Message] func(ctx C, pkt *Packet, msg T) error

// Dispatcher 按消息类型分发的处理表
type Dispatcher[C any] struct {
	handlers map[MessageType]HandlerFunc[C]
}

func NewDispatcher[C any]() *Dispatcher[C] {
	return &Dispatcher[C]{handlers: make(map[MessageType]HandlerFunc[C])}
}

// Register 注册处理函数，同一类型重复注册时覆盖
func (d *Dispatcher[C]) Register(t MessageType, h HandlerFunc[C]) {
	d.handlers[t] = h
}

// Handle 注册类型化处理函数，负责断言消息类型
func Handle[C any, T Message](d *Dispatcher[C], h TypedHandlerFunc[C, T]) {
	var zero T
	t := zero.MessageType()
	d.Register(t, func(ctx C, pkt *Packet, msg Message) error {
		typed, ok := msg.(T)
		if !ok {
			return fmt.Errorf("%w: %v 的负载类型为 %T", ErrUnknownMessage, t, msg)
		}
		return h(ctx, pkt, typed)
	})
}

// Handles 是否注册了该类型
func (d *Dispatcher[C]) Handles(t MessageType) bool {
	_, ok := d.handlers[t]
	return ok
}

// Dispatch 解码并调用对应的处理函数。没有注册的类型返回 ErrUnknownMessage。
func (d *Dispatcher[C]) Dispatch(ctx C, data []byte) error {
	pkt, err := UnmarshalPacket(data)
	if err != nil {
		return fmt.Errorf("解析包失败: %w", err)
	}
	h, ok := d.handlers[pkt.Type]
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnknownMessage, pkt.Type)
	}
	msg, err := Decode(pkt)
	if err != nil {
		return err
	}
	return h(ctx, pkt, msg)
}

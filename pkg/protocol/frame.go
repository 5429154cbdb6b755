package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxPacketSize 单帧最大字节数
const MaxPacketSize = 4096

// WriteFrame 写出 4 字节大端长度前缀和数据体
func WriteFrame(w io.Writer, data []byte) error {
	if len(data) > MaxPacketSize {
		return fmt.Errorf("%w: %d bytes", ErrPacketTooLarge, len(data))
	}
	buf := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(buf, uint32(len(data)))
	copy(buf[4:], data)
	// 一次写出，避免长度和数据体被拆成两个 KCP/WebSocket 消息
	_, err := w.Write(buf)
	return err
}

// ReadFrame 读取一帧。长度为 0 的帧返回空切片。
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(header[:])
	if length > MaxPacketSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrPacketTooLarge, length)
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}

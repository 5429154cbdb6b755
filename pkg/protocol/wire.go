package protocol

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

var (
	ErrTruncated      = errors.New("消息被截断或格式错误")
	ErrUnknownMessage = errors.New("未知消息类型")
	ErrPacketTooLarge = errors.New("消息过大")
)

// 编码遵循 proto3 规则：零值字段不写出。
// 字段编号见 api/proto/shooter/v1/game.proto。

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendSint(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeZigZag(v))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}

// appendDouble 按位写出，-0 也会保留
func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	bits := math.Float64bits(v)
	if bits == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, bits)
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// appendMessage 写出嵌套消息。always 为 true 时即使为空也写出（repeated 元素）。
func appendMessage(b []byte, num protowire.Number, always bool, fn func([]byte) []byte) []byte {
	inner := fn(nil)
	if len(inner) == 0 && !always {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, inner)
}

// decoder 顺序读取字段。出错后所有读取返回零值，错误记在 err 中。
// 读取方法会校验线型，线型不符的字段按未知字段跳过。
type decoder struct {
	b   []byte
	err error

	num protowire.Number
	typ protowire.Type
}

func (d *decoder) fail(n int) {
	if d.err == nil {
		d.err = fmt.Errorf("%w: %v", ErrTruncated, protowire.ParseError(n))
	}
	d.b = nil
}

// next 读取下一个字段的 tag，返回字段编号
func (d *decoder) next() (protowire.Number, bool) {
	if d.err != nil || len(d.b) == 0 {
		return 0, false
	}
	num, typ, n := protowire.ConsumeTag(d.b)
	if n < 0 {
		d.fail(n)
		return 0, false
	}
	d.b = d.b[n:]
	d.num, d.typ = num, typ
	return num, true
}

// want 当前字段线型不符时跳过并返回 false
func (d *decoder) want(typ protowire.Type) bool {
	if d.typ == typ {
		return true
	}
	d.skip()
	return false
}

func (d *decoder) varint() uint64 {
	if !d.want(protowire.VarintType) {
		return 0
	}
	v, n := protowire.ConsumeVarint(d.b)
	if n < 0 {
		d.fail(n)
		return 0
	}
	d.b = d.b[n:]
	return v
}

func (d *decoder) sint() int64 {
	return protowire.DecodeZigZag(d.varint())
}

func (d *decoder) bool() bool {
	return protowire.DecodeBool(d.varint())
}

func (d *decoder) double() float64 {
	if !d.want(protowire.Fixed64Type) {
		return 0
	}
	v, n := protowire.ConsumeFixed64(d.b)
	if n < 0 {
		d.fail(n)
		return 0
	}
	d.b = d.b[n:]
	return math.Float64frombits(v)
}

func (d *decoder) bytes() []byte {
	if !d.want(protowire.BytesType) {
		return nil
	}
	v, n := protowire.ConsumeBytes(d.b)
	if n < 0 {
		d.fail(n)
		return nil
	}
	d.b = d.b[n:]
	return v
}

func (d *decoder) string() string {
	return string(d.bytes())
}

// message 解码嵌套消息，错误向上传递
func (d *decoder) message(fn func(*decoder)) {
	if d.typ != protowire.BytesType {
		d.skip()
		return
	}
	sub := &decoder{b: d.bytes()}
	if d.err != nil {
		return
	}
	fn(sub)
	if sub.err != nil {
		d.err = sub.err
		d.b = nil
	}
}

// skip 跳过当前字段，保持前向兼容
func (d *decoder) skip() {
	n := protowire.ConsumeFieldValue(d.num, d.typ, d.b)
	if n < 0 {
		d.fail(n)
		return
	}
	d.b = d.b[n:]
}

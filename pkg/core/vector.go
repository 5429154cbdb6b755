package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec2 二维向量。
// 输入中 X 为横移轴、Y 为前后轴；朝向中 X 为俯仰角(pitch)、Y 为偏航角(yaw)。
type Vec2 struct {
	X, Y float64
}

// Vec3 三维向量（世界坐标，Y 轴向上）
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec2) Mgl() mgl64.Vec2 { return mgl64.Vec2{v.X, v.Y} }

func (v Vec3) Mgl() mgl64.Vec3 { return mgl64.Vec3{v.X, v.Y, v.Z} }

// Vec2From 从 mathgl 向量转换
func Vec2From(m mgl64.Vec2) Vec2 { return Vec2{m[0], m[1]} }

// Vec3From 从 mathgl 向量转换
func Vec3From(m mgl64.Vec3) Vec3 { return Vec3{m[0], m[1], m[2]} }

func (v Vec2) Add(o Vec2) Vec2 { return Vec2From(v.Mgl().Add(o.Mgl())) }

func (v Vec2) Scale(s float64) Vec2 { return Vec2From(v.Mgl().Mul(s)) }

func (v Vec3) Add(o Vec3) Vec3 { return Vec3From(v.Mgl().Add(o.Mgl())) }

func (v Vec3) Sub(o Vec3) Vec3 { return Vec3From(v.Mgl().Sub(o.Mgl())) }

func (v Vec3) Scale(s float64) Vec3 { return Vec3From(v.Mgl().Mul(s)) }

// Dot 点积。不用 mgl64 的 Dot：每一项要显式取整，
// 避免编译器融合乘加导致不同平台上结果不同。
func (v Vec3) Dot(o Vec3) float64 {
	return float64(v.X*o.X) + float64(v.Y*o.Y) + float64(v.Z*o.Z)
}

func (v Vec3) Len() float64 { return math.Sqrt(v.Dot(v)) }

// Horizontal 去掉竖直分量
func (v Vec3) Horizontal() Vec3 { return Vec3{X: v.X, Z: v.Z} }

// Normalize 归一化，零向量返回零向量
func (v Vec3) Normalize() Vec3 {
	l := v.Len()
	if l == 0 {
		return Vec3{}
	}
	return Vec3{v.X / l, v.Y / l, v.Z / l}
}

// Finite 检查两个分量都不是 NaN/Inf
func (v Vec2) Finite() bool {
	return isFinite(v.X) && isFinite(v.Y)
}

func (v Vec3) Finite() bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// finiteOr 非有限值替换为 fallback
func finiteOr(f, fallback float64) float64 {
	if isFinite(f) {
		return f
	}
	return fallback
}

// sign 截断为 -1/0/+1
func sign(f float64) float64 {
	switch {
	case f > 0:
		return 1
	case f < 0:
		return -1
	default:
		return 0
	}
}

// Lerp 线性插值
func Lerp(a, b, t float64) float64 {
	return a + float64((b-a)*t)
}

// LerpVec3 逐分量线性插值，与 Lerp 逐项结果相同
func LerpVec3(a, b Vec3, t float64) Vec3 {
	from := a.Mgl()
	return Vec3From(from.Add(b.Mgl().Sub(from).Mul(t)))
}

// LerpAngle 按最短路径插值角度（度）
func LerpAngle(a, b, t float64) float64 {
	delta := math.Mod(b-a, 360)
	if delta > 180 {
		delta -= 360
	} else if delta < -180 {
		delta += 360
	}
	return WrapAngle(a + float64(delta*t))
}

// LerpFacing 插值朝向：俯仰角线性，偏航角走最短路径
func LerpFacing(a, b Vec2, t float64) Vec2 {
	return Vec2{X: Lerp(a.X, b.X, t), Y: LerpAngle(a.Y, b.Y, t)}
}

// WrapAngle 把角度规范到 [0, 360)
func WrapAngle(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	if deg >= 360 {
		deg = 0
	}
	return deg
}

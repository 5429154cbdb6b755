package core

// 固定步长配置（客户端与服务器共用）
const (
	TickRate       = 60
	FixedDeltaTime = 1.0 / TickRate
)

// 缓冲区容量
const (
	LookSampleCapacity = 64  // 一个 tick 内最多保留的视角采样数
	InputQueueCapacity = 10  // 服务器每个玩家的输入队列上限
	MaxHistory         = 256 // 客户端预测历史上限
)

// 节奏修正
const (
	MaxPendingAdjust = 8  // 累积的未执行修正步数上限
	AdjustInterval   = 10 // 每隔多少个名义步最多执行一次修正
)

// MovementConfig 移动参数。客户端和服务器必须使用完全相同的值，否则预测与校正会一直打架。
type MovementConfig struct {
	DeltaTime float64 // 固定步长（秒）

	GroundAccel    float64 // 地面加速度
	GroundMaxSpeed float64 // 地面最大速度（米/秒）
	Friction       float64 // 地面摩擦
	StopSpeed      float64 // 低速时摩擦按该速度计算，保证能停下

	AirAccel    float64 // 空中加速度
	AirDecel    float64 // 空中反向输入（与当前水平速度夹角大于 90°）时的减速度
	AirMaxSpeed float64 // 空中目标速度
	AirControl  float64 // 空中转向系数

	StrafeAccel    float64 // 纯横移（空中）加速度，比 AirAccel 大
	StrafeMaxSpeed float64 // 纯横移目标速度，比 AirMaxSpeed 小

	JumpSpeed     float64
	Gravity       float64
	StickToGround float64 // 着地时的向下速度

	LookSensitivity float64 // 每单位视角输入转动的角度
}

// DefaultMovementConfig 默认参数（CPM 风格手感）
func DefaultMovementConfig() *MovementConfig {
	return &MovementConfig{
		DeltaTime:       FixedDeltaTime,
		GroundAccel:     14,
		GroundMaxSpeed:  7,
		Friction:        6,
		StopSpeed:       2,
		AirAccel:        2,
		AirDecel:        2.5,
		AirMaxSpeed:     7,
		AirControl:      0.3,
		StrafeAccel:     50,
		StrafeMaxSpeed:  1,
		JumpSpeed:       8,
		Gravity:         20,
		StickToGround:   1,
		LookSensitivity: 1,
	}
}

package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log 全局日志实例。未调用 Init 时也可直接使用（默认配置）。
var Log = logrus.New()

// Init 根据环境变量初始化全局日志，应在 main 启动时调用一次。
//
//	LOG_LEVEL  日志级别，默认 info，调试时可设为 debug
//	LOG_FORMAT json 用于生产采集，其他值使用带时间戳的文本格式
func Init() {
	logLevel, ok := os.LookupEnv("LOG_LEVEL")
	if !ok {
		logLevel = "info"
	}
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	Log.SetLevel(level)

	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		Log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	Log.SetOutput(os.Stdout)
}

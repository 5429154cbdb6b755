package utils

import "os"

// GetEnvDefault 读取环境变量，未设置或为空时返回默认值
func GetEnvDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

package common

import (
	"time"

	"github.com/google/uuid"
)

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// Now 以 UTC 返回當前時間，供儲存層統一時間戳
func Now() time.Time {
	return time.Now().UTC()
}


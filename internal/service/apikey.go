package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

const (
	// APIKeyPrefix API Key 的固定前缀
	APIKeyPrefix = "sk-sm-v1-"
	// apiKeyEntropyBytes 随机部分的字节数，编码后为 48 个十六进制字符
	apiKeyEntropyBytes = 24
)

// APIKeyService API Key 生成服务
//
// 生成的令牌不落库，也不与已有 Key 做唯一性校验，直到 SaveUser 时才持久化。
type APIKeyService struct {
	random io.Reader
}

// NewAPIKeyService 创建API Key服务
func NewAPIKeyService() *APIKeyService {
	return &APIKeyService{random: rand.Reader}
}

// Generate 生成一个新的 API Key
//
// 返回值:
//   - string: "sk-sm-v1-" 加 48 位大写十六进制
//   - error: 熵源读取失败
func (s *APIKeyService) Generate() (string, error) {
	buf := make([]byte, apiKeyEntropyBytes)
	if _, err := io.ReadFull(s.random, buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return APIKeyPrefix + strings.ToUpper(hex.EncodeToString(buf)), nil
}

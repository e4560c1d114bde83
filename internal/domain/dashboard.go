package domain

import "time"

// Dashboard 管理后台数据快照
type Dashboard struct {
	Users   []User       `json:"users"`
	APIKeys []APIKeyView `json:"apikeys"`
}

// StatusCounts 统计在线与离线的 API Key 数量
func (d *Dashboard) StatusCounts() (online, offline int) {
	for _, k := range d.APIKeys {
		if k.Status == KeyStatusOffline {
			offline++
		} else {
			online++
		}
	}
	return online, offline
}

// DirectoryEventType 目录变更事件类型
type DirectoryEventType string

const (
	EventUserSaved   DirectoryEventType = "user_saved"
	EventUserDeleted DirectoryEventType = "user_deleted"
)

// DirectoryEvent 推送给在线仪表盘的变更通知
type DirectoryEvent struct {
	Type     DirectoryEventType `json:"type"`
	UserID   int64              `json:"userId"`
	APIKeyID int64              `json:"apiKeyId,omitempty"`
	At       time.Time          `json:"at"`
}

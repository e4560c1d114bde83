package domain

import "time"

// KeyStatus API Key 的在线状态（由创建时间推导，不代表实际可用性）
type KeyStatus string

const (
	KeyStatusOnline  KeyStatus = "online"
	KeyStatusOffline KeyStatus = "offline"
)

// DefaultOfflineAfter 默认离线阈值：创建超过 30 天即视为离线
const DefaultOfflineAfter = 30 * 24 * time.Hour

// APIKey API密钥实体
//
// OutOfDate 虽然名为"过期时间"，实际记录的是创建时刻，
// 仪表盘根据它与当前时间的差值推导在线状态。
type APIKey struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Key       string    `json:"key" gorm:"column:key;type:varchar(64);not null"`
	OutOfDate time.Time `json:"out_of_date" gorm:"column:out_of_date;not null"`
}

// TableName 指定 GORM 表名
func (APIKey) TableName() string {
	return "api_key"
}

// APIKeyView 仪表盘中展示的 API Key，附带推导出的状态
type APIKeyView struct {
	APIKey
	Status KeyStatus `json:"status"`
}

// KeyStatusAt 计算 API Key 在 now 时刻的状态
//
// 参数:
//   - outOfDate: API Key 的创建时间
//   - now: 当前时间
//   - offlineAfter: 离线阈值，<=0 时使用 DefaultOfflineAfter
//
// 返回值:
//   - KeyStatus: 年龄严格大于阈值为 offline，否则为 online
func KeyStatusAt(outOfDate, now time.Time, offlineAfter time.Duration) KeyStatus {
	if offlineAfter <= 0 {
		offlineAfter = DefaultOfflineAfter
	}
	if now.Sub(outOfDate) > offlineAfter {
		return KeyStatusOffline
	}
	return KeyStatusOnline
}

// View 返回带状态的只读视图
func (k APIKey) View(now time.Time, offlineAfter time.Duration) APIKeyView {
	return APIKeyView{
		APIKey: k,
		Status: KeyStatusAt(k.OutOfDate, now, offlineAfter),
	}
}

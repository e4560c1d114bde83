package domain

// User 绑定一个 API Key 的用户
//
// 一个用户独占一个 API Key（1:1），APIKeyID 必须指向已存在的 api_key 行。
type User struct {
	ID        int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	FirstName string `json:"first_name" gorm:"column:first_name;type:varchar(255);not null"`
	LastName  string `json:"last_name" gorm:"column:last_name;type:varchar(255);not null"`
	Email     string `json:"email" gorm:"type:varchar(255);not null"`
	APIKeyID  int64  `json:"api_key_id" gorm:"column:api_key_id;index;not null"`
}

// TableName 指定 GORM 表名
func (User) TableName() string {
	return "user"
}

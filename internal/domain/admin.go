package domain

// Admin 后台管理员
//
// Password 保存 bcrypt 哈希，从不保存明文。邮箱不做唯一性约束。
type Admin struct {
	ID       int64  `json:"-" gorm:"primaryKey;autoIncrement"`
	Email    string `json:"email" gorm:"type:varchar(255);index;not null"`
	Password string `json:"-" gorm:"column:password;type:varchar(255);not null"`
}

// TableName 指定 GORM 表名
func (Admin) TableName() string {
	return "admin"
}

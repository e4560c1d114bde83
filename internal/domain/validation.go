package domain

import "errors"

// ErrMissingFields 必填字段缺失
var ErrMissingFields = errors.New("all fields are required")

// NewUserInput 保存用户的输入
type NewUserInput struct {
	FirstName string
	LastName  string
	Email     string
	APIKey    string
}

// Validate 只做存在性检查，不校验格式
func (in NewUserInput) Validate() error {
	return RequireFields(in.FirstName, in.LastName, in.Email, in.APIKey)
}

// RequireFields 任意字段为空字符串即返回 ErrMissingFields，空白字符视为已填写
func RequireFields(values ...string) error {
	for _, v := range values {
		if v == "" {
			return ErrMissingFields
		}
	}
	return nil
}

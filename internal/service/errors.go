// Package service 承载业务规则，把仓储结果映射为统一的业务错误。
package service

import "errors"

// 业务错误哨兵，handler 层据此选 HTTP 状态码与错误体。
var (
	ErrNotFound     = errors.New("instance not found")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrMissingItems = errors.New("Missing items.")
)

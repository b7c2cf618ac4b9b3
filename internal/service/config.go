// Package service implements the business logic layer
// Package service 实现业务逻辑层
package service

import (
	"time"

	"github.com/haierkeys/notely-service/internal/domain"
)

// ServiceConfig service layer configuration
// ServiceConfig 服务层配置
type ServiceConfig struct {
	Session  SessionServiceConfig  // Edit session config // 编辑会话配置
	Reminder ReminderServiceConfig // Reminder config // 提醒配置
}

// SessionServiceConfig edit session configuration
// SessionServiceConfig 编辑会话配置
type SessionServiceConfig struct {
	DefaultColor domain.Color // Color of new notes // 新建笔记的默认颜色
}

// ReminderServiceConfig reminder service configuration
// ReminderServiceConfig 提醒服务配置
type ReminderServiceConfig struct {
	FireTimeout time.Duration // Timeout of one delivery // 单次投递超时
}

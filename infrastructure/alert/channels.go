package alert

import (
	"fmt"

	"go.uber.org/zap"

	"grid-deployer-go/infrastructure/logger"
)

// ZapChannel 将告警写入结构化日志
type ZapChannel struct {
	logger *logger.Logger
	name   string
}

// NewZapChannel 创建日志告警通道
func NewZapChannel(name string, l *logger.Logger) *ZapChannel {
	return &ZapChannel{logger: l, name: name}
}

// Send 发送告警到日志
func (c *ZapChannel) Send(alert Alert) error {
	if c.logger == nil {
		return fmt.Errorf("logger not set")
	}
	fields := []zap.Field{
		zap.String("level", alert.Level),
		zap.Time("at", alert.Timestamp),
	}
	for k, v := range alert.Fields {
		fields = append(fields, zap.Any(k, v))
	}

	switch alert.Level {
	case "ERROR", "CRITICAL":
		c.logger.Error(alert.Message, fields...)
	case "WARNING":
		c.logger.Warn(alert.Message, fields...)
	default:
		c.logger.Info(alert.Message, fields...)
	}
	return nil
}

// Name 返回通道名称
func (c *ZapChannel) Name() string {
	return c.name
}

// MockChannel 模拟告警通道（用于测试）
type MockChannel struct {
	name   string
	alerts []Alert
}

// NewMockChannel 创建模拟告警通道
func NewMockChannel(name string) *MockChannel {
	return &MockChannel{name: name}
}

// Send 记录告警（用于测试验证）
func (c *MockChannel) Send(alert Alert) error {
	c.alerts = append(c.alerts, alert)
	return nil
}

// Name 返回通道名称
func (c *MockChannel) Name() string {
	return c.name
}

// GetAlerts 获取所有接收到的告警
func (c *MockChannel) GetAlerts() []Alert {
	return c.alerts
}

// Count 返回接收到的告警数量
func (c *MockChannel) Count() int {
	return len(c.alerts)
}

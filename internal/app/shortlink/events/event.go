package events

import (
	"context"
	"time"
)

const (
	TypeLinkCreated    = "link.created"
	TypeLinkRedirected = "link.redirected"
)

// Event 是对外发布的短链事件：新建绑定或一次成功跳转
type Event struct {
	Type string    `json:"type"`
	Code string    `json:"code"`
	URL  string    `json:"url"`
	At   time.Time `json:"at"`
}

// Publisher 发布器接口（Kafka / 日志）
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

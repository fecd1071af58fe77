package events

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/entity"
	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/repository"
	"github.com/jasperfordesq-ai/nexus-broker/internal/goroutine"
	"github.com/jasperfordesq-ai/nexus-broker/internal/logger"
)

const publishTimeout = 10 * time.Second

// Dispatcher рассылает событие всем публикаторам в фоне.
// Publish не ждёт доставки и всегда возвращает nil: ответ клиенту уже определён фиксацией транзакции.
type Dispatcher struct {
	publishers []namedPublisher
	async      func(ctx context.Context, fn func(context.Context))
}

type namedPublisher struct {
	name string
	pub  repository.EventPublisher
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{async: goroutine.SafeGoWithContext}
}

// Add подключает публикатор. nil пропускается.
func (d *Dispatcher) Add(name string, pub repository.EventPublisher) *Dispatcher {
	if pub != nil {
		d.publishers = append(d.publishers, namedPublisher{name: name, pub: pub})
	}
	return d
}

func (d *Dispatcher) Publish(ctx context.Context, ev entity.ModerationEvent) error {
	if len(d.publishers) == 0 {
		return nil
	}
	// Контекст запроса отменяется сразу после ответа, доставке нужен свой.
	base := context.WithoutCancel(ctx)
	for _, p := range d.publishers {
		p := p
		d.async(base, func(ctx context.Context) {
			ctx, cancel := context.WithTimeout(ctx, publishTimeout)
			defer cancel()
			if err := p.pub.Publish(ctx, ev); err != nil {
				logger.Get().WithError(err).WithFields(logrus.Fields{
					"publisher": p.name,
					"event":     ev.Type,
					"copy_id":   ev.CopyID,
				}).Warn("событие модерации не доставлено")
			}
		})
	}
	return nil
}

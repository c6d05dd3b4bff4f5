package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/models"
	"go.uber.org/zap"
)

// OrderPlaced asks the dispatcher to announce a durably persisted order.
type OrderPlaced struct {
	Order *models.Order
}

// dispatchActor does the actual best-effort work. Every failure is logged and
// swallowed: the order is already persisted by the time a message arrives
// here, and the user-facing outcome must not regress.
type dispatchActor struct {
	email  *EmailSender
	config *config.NotifyConfig
	logger *zap.Logger
}

func (a *dispatchActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *OrderPlaced:
		a.dispatch(msg.Order)

	case *actor.Started:
		a.logger.Info("Notification dispatcher started")

	case *actor.Stopped:
		a.logger.Info("Notification dispatcher stopped")
	}
}

func (a *dispatchActor) dispatch(order *models.Order) {
	sendCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := a.email.SendOrderNotification(sendCtx, order); err != nil {
		a.logger.Error("Order notification email failed",
			zap.String("order_id", order.ID),
			zap.Error(err))
	}

	link, err := WhatsAppLink(a.config.WhatsAppNumber, order)
	if err != nil {
		a.logger.Warn("WhatsApp link unavailable",
			zap.String("order_id", order.ID),
			zap.Error(err))
		return
	}
	a.logger.Info("WhatsApp order link ready",
		zap.String("order_id", order.ID),
		zap.String("link", link))
}

// Dispatcher is the fire-and-forget entry point used by the checkout flow.
// Notify returns immediately; delivery happens on the actor's mailbox.
type Dispatcher struct {
	system *actor.ActorSystem
	pid    *actor.PID
	logger *zap.Logger
}

func NewDispatcher(system *actor.ActorSystem, cfg *config.NotifyConfig, email *EmailSender, logger *zap.Logger) (*Dispatcher, error) {
	props := actor.PropsFromProducer(func() actor.Actor {
		return &dispatchActor{
			email:  email,
			config: cfg,
			logger: logger.Named("notify-actor"),
		}
	})
	pid, err := system.Root.SpawnNamed(props, "notification-dispatcher")
	if err != nil {
		return nil, fmt.Errorf("failed to spawn notification dispatcher: %w", err)
	}

	return &Dispatcher{system: system, pid: pid, logger: logger}, nil
}

// Notify never blocks and never reports an error to the caller.
func (d *Dispatcher) Notify(order *models.Order) {
	d.system.Root.Send(d.pid, &OrderPlaced{Order: order})
}

package live

import (
	"fmt"
	"time"

	"github.com/epitaphe360/shareyoursales-go/api"
	"github.com/epitaphe360/shareyoursales-go/cache"
	"github.com/epitaphe360/shareyoursales-go/notify"
)

// EventType enumerates the fixed server event vocabulary. There are no
// dynamic event types.
type EventType string

const (
	EventCommissionCreated    EventType = "commission_created"
	EventCommissionUpdated    EventType = "commission_updated"
	EventPaymentCreated       EventType = "payment_created"
	EventPaymentStatusChanged EventType = "payment_status_changed"
	EventSaleCreated          EventType = "sale_created"
	EventDashboardUpdate      EventType = "dashboard_update"
)

// EventData carries the event-specific fields. One explicit schema covers
// the whole vocabulary; unused fields stay zero.
type EventData struct {
	ID     string  `json:"id,omitempty"`
	Amount float64 `json:"amount,omitempty"`
	Status string  `json:"status,omitempty"`
}

// Event is one inbound frame from the live channel.
type Event struct {
	Type EventType `json:"type"`
	Data EventData `json:"data"`
}

// Handler consumes an event. Handlers run on the channel's read loop.
type Handler func(Event)

const commissionNotificationDuration = 10 * time.Second

// apply translates an event into its notification and cache invalidations.
// Invalidation is idempotent, so racing a local mutation's own invalidation
// for the same key is harmless.
func (c *Channel) apply(event Event) {
	user := c.sessions.User()
	role := ""
	userID := ""
	if user != nil {
		role = string(user.Role)
		userID = user.ID
	}

	switch event.Type {
	case EventCommissionCreated:
		c.notifier.Push(notify.Success, fmt.Sprintf("New commission earned: %.2f", event.Data.Amount), commissionNotificationDuration)
		c.invalidate(cache.CommissionsKey(), cache.DashboardStatsKey(role))

	case EventCommissionUpdated:
		c.notifier.Push(notify.Info, fmt.Sprintf("Commission %s updated", event.Data.ID), 0)
		c.invalidate(cache.CommissionsKey(), cache.CommissionByIDKey(event.Data.ID))

	case EventPaymentCreated:
		c.notifier.Push(notify.Success, fmt.Sprintf("Payment received: %.2f", event.Data.Amount), 0)
		c.invalidate(cache.PaymentsKey(), cache.AffiliateBalanceKey(userID))

	case EventPaymentStatusChanged:
		c.notifier.Push(paymentStatusNotification(event.Data.Status), fmt.Sprintf("Payment %s is now %s", event.Data.ID, event.Data.Status), 0)
		c.invalidate(cache.PaymentsKey(), cache.PaymentByIDKey(event.Data.ID))

	case EventSaleCreated:
		c.notifier.Push(notify.Info, fmt.Sprintf("New sale recorded: %.2f", event.Data.Amount), 0)
		c.invalidate(cache.SalesKey(), cache.DashboardStatsKey(role))

	case EventDashboardUpdate:
		c.invalidate(cache.DashboardKey(), cache.DashboardStatsKey(role))

	default:
		c.logger.Debug().Str("type", string(event.Type)).Msg("ignoring unknown event type")
	}
}

func paymentStatusNotification(status string) notify.Type {
	switch status {
	case api.PaymentCompleted:
		return notify.Success
	case api.PaymentFailed:
		return notify.Warning
	default:
		return notify.Info
	}
}

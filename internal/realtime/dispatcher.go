package realtime

import (
	"context"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"

	"bus_tracker/internal/metrics"
	"bus_tracker/internal/models"
)

// NotificationSource is what the dispatcher reads.
type NotificationSource interface {
	NotificationsForUsers(ctx context.Context, userIDs []uint) ([]models.Notification, error)
}

// Dispatcher re-sends each connected user's full notification list every
// cycle. There is no delivery cursor: a connected client that does nothing
// keeps receiving everything stored for it.
type Dispatcher struct {
	store NotificationSource
	hub   *Hub
	task  Periodic
}

func NewDispatcher(store NotificationSource, hub *Hub, interval, timeout time.Duration, nr *newrelic.Application) *Dispatcher {
	d := &Dispatcher{store: store, hub: hub}
	d.task = Periodic{
		Name:     "notification-dispatcher",
		Interval: interval,
		Timeout:  timeout,
		Tick:     d.Tick,
		NewRelic: nr,
	}
	return d
}

// Run blocks until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) { d.task.Run(ctx) }

// Tick performs one dispatch cycle.
func (d *Dispatcher) Tick(ctx context.Context) error {
	users := d.hub.ConnectedUsers()
	if len(users) == 0 {
		return nil
	}

	list, err := d.store.NotificationsForUsers(ctx, users)
	if err != nil {
		return err
	}

	byUser := GroupByUser(list)
	sent := 0
	for userID, items := range byUser {
		n, err := d.hub.SendToUser(userID, EventNewNotification, items)
		if err != nil {
			return err
		}
		sent += n
	}
	metrics.TaskDelivered.WithLabelValues(d.task.Name).Add(float64(sent))
	logrus.WithFields(logrus.Fields{
		"recipients": len(byUser),
		"messages":   sent,
	}).Debug("notifications dispatched")
	return nil
}

// GroupByUser partitions notifications by recipient, keeping input order
// within each group.
func GroupByUser(list []models.Notification) map[uint][]models.Notification {
	out := make(map[uint][]models.Notification)
	for _, n := range list {
		out[n.UserID] = append(out[n.UserID], n)
	}
	return out
}

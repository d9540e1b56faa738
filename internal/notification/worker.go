package notification

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"checkin-backend/internal/cluster"
	"checkin-backend/internal/model"
	"checkin-backend/internal/store"
)

// Alert is a capacity warning for one cluster.
type Alert struct {
	Cluster   cluster.Cluster
	Remaining int
}

// PushSender defines the interface for sending a web push notification.
type PushSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of PushSender using the webpush
// library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool manages a pool of workers delivering capacity alerts. Delivery
// is best effort: failures are logged and never reach the admission path.
type WorkerPool struct {
	size    int
	jobs    chan Alert
	store   store.Store
	webpush *webpush.Options
	sender  PushSender
	webhook WebhookPoster
}

// NewWorkerPool creates a new worker pool. webhook may be nil when no
// webhook is configured.
func NewWorkerPool(size int, st store.Store, webpushOptions *webpush.Options, webhook WebhookPoster) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Alert, size*4),
		store:   st,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		webhook: webhook,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Worker %d started", id)
	for {
		select {
		case alert := <-wp.jobs:
			log.Printf("Worker %d processing alert for cluster %s (%d remaining)", id, alert.Cluster, alert.Remaining)
			wp.deliver(ctx, alert)
		case <-ctx.Done():
			log.Printf("Worker %d shutting down", id)
			return
		}
	}
}

// Notify queues a capacity alert without blocking the caller. A full queue
// drops the alert.
func (wp *WorkerPool) Notify(c cluster.Cluster, remaining int) {
	select {
	case wp.jobs <- Alert{Cluster: c, Remaining: remaining}:
	default:
		log.Printf("alert queue full; dropping alert for cluster %s", c)
	}
}

// deliver posts the alert to the webhook and fans it out to every push
// subscription.
func (wp *WorkerPool) deliver(ctx context.Context, alert Alert) {
	message := fmt.Sprintf("Cluster %s is almost full: %d seats remaining.", alert.Cluster, alert.Remaining)

	if wp.webhook != nil {
		if err := wp.webhook.Post(ctx, message); err != nil {
			log.Printf("Error posting webhook alert for cluster %s: %v", alert.Cluster, err)
		}
	}

	subscriptions, err := wp.store.Subscriptions(ctx)
	if err != nil {
		log.Printf("Error fetching subscriptions: %v", err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	log.Printf("Sending %d push notifications for cluster %s", len(subscriptions), alert.Cluster)
	for _, sub := range subscriptions {
		wp.sendPush(ctx, sub, []byte(message))
	}
}

// sendPush sends a single web push notification.
func (wp *WorkerPool) sendPush(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}

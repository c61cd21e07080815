// Package webhooks implements the daemon's at-least-once, retrying event
// fan-out: subscriptions register interest in EventKinds, and Emit posts a
// JSON payload to every matching, enabled subscription without blocking
// the caller.
package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/ziadkadry99/agentgw/internal/agentgwerr"
)

const (
	requestTimeout = 30 * time.Second
	maxAttempts    = 3
	initialBackoff = 250 * time.Millisecond
)

// Dispatcher holds the process's webhook subscriptions and delivers events
// to them fire-and-forget: Emit returns immediately and delivery (with
// retries) happens on a background goroutine per subscription.
type Dispatcher struct {
	mu     sync.RWMutex
	subs   map[string]Subscription
	client *http.Client
}

// NewDispatcher returns an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		subs:   map[string]Subscription{},
		client: &http.Client{Timeout: requestTimeout},
	}
}

// Register adds or replaces a subscription by name.
func (d *Dispatcher) Register(sub Subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs[sub.Name] = sub
}

// Unregister removes a subscription by name.
func (d *Dispatcher) Unregister(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.subs, name)
}

// Subscriptions returns a snapshot of every registered subscription.
func (d *Dispatcher) Subscriptions() []Subscription {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Subscription, 0, len(d.subs))
	for _, s := range d.subs {
		out = append(out, s)
	}
	return out
}

// Emit fans an event out to every enabled subscription interested in kind.
// The originating operation does not wait: each delivery, including its
// retries, runs on its own goroutine.
func (d *Dispatcher) Emit(kind EventKind, data any) {
	event := Event{Kind: kind, Timestamp: time.Now().UTC(), Data: data}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("webhooks: encoding event %s: %v", kind, err)
		return
	}

	for _, sub := range d.Subscriptions() {
		if !sub.Wants(kind) {
			continue
		}
		go d.deliver(sub, payload)
	}
}

// deliver POSTs payload to sub.URL, retrying on non-2xx responses or
// transport errors with exponential backoff, up to maxAttempts total.
// There is no persistent queue: an undelivered event after the final
// attempt is dropped, with a log entry, per the daemon's at-least-once
// (not guaranteed-delivery) contract.
func (d *Dispatcher) deliver(sub Subscription, payload []byte) {
	backoff := initialBackoff
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		err := d.attempt(ctx, sub, payload)
		cancel()

		if err == nil {
			return
		}
		lastErr = err

		if attempt < maxAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}

	log.Printf("webhooks: giving up on %s after %d attempts: %v", sub.Name, maxAttempts, fmt.Errorf("%w: %w", agentgwerr.ErrWebhookDelivery, lastErr))
}

func (d *Dispatcher) attempt(ctx context.Context, sub Subscription, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if sub.Secret != "" {
		req.Header.Set("X-Webhook-Secret", sub.Secret)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("subscriber returned status %d", resp.StatusCode)
	}
	return nil
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/qrgate/portal/internal/logging"
	"github.com/qrgate/portal/internal/mail"
	"github.com/qrgate/portal/internal/mq"
)

// Event types published on the portal channel.
const (
	EventTokenIssued     = "token.issued"
	EventChangeRequested = "resident.change_requested"
)

const eventTypeAttr = "event_type"

// Event is the envelope published to the message queue.
type Event struct {
	Type       string          `json:"type"`
	ResidentID string          `json:"resident_id,omitempty"`
	Recipient  string          `json:"recipient,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Publisher sends events best effort. A nil Publisher drops everything.
type Publisher struct {
	backend mq.Backend
	channel string
	log     logging.Logger
}

func NewPublisher(backend mq.Backend, channel string, log logging.Logger) *Publisher {
	if log == nil {
		log = logging.Nop()
	}
	return &Publisher{backend: backend, channel: channel, log: log}
}

// Publish never fails the caller; broker errors are logged.
func (p *Publisher) Publish(ctx context.Context, evt Event) {
	if p == nil || p.backend == nil {
		return
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		p.log.Error(ctx, "encode event", "type", evt.Type, "error", err)
		return
	}
	id, err := p.backend.Publish(ctx, p.channel, data, map[string]string{eventTypeAttr: evt.Type})
	if err != nil {
		p.log.Warn(ctx, "publish event", "type", evt.Type, "error", err)
		return
	}
	p.log.Debug(ctx, "event published", "type", evt.Type, "message_id", id)
}

// EventWorker consumes portal events. Change requests are forwarded to the
// admin notify address when one is configured.
type EventWorker struct {
	sender   mail.Sender
	notifyTo string
	log      logging.Logger
}

func NewEventWorker(sender mail.Sender, notifyTo string, log logging.Logger) *EventWorker {
	if sender == nil {
		sender = mail.Disabled{}
	}
	if log == nil {
		log = logging.Nop()
	}
	return &EventWorker{sender: sender, notifyTo: strings.TrimSpace(notifyTo), log: log}
}

// Run blocks consuming channel until ctx is done.
func (w *EventWorker) Run(ctx context.Context, backend mq.Backend, channel string) error {
	w.log.Info(ctx, "worker subscribed", "channel", channel)
	return backend.Subscribe(ctx, channel, w.Handle)
}

// Handle processes one message. Malformed messages are dropped, not retried.
func (w *EventWorker) Handle(ctx context.Context, msg mq.Message) error {
	var evt Event
	if err := json.Unmarshal(msg.Data, &evt); err != nil {
		w.log.Warn(ctx, "drop malformed event", "message_id", msg.ID, "error", err)
		return nil
	}

	switch evt.Type {
	case EventChangeRequested:
		return w.notifyChange(ctx, evt)
	case EventTokenIssued:
		w.log.Info(ctx, "token issued", "resident_id", evt.ResidentID)
		return nil
	default:
		w.log.Debug(ctx, "ignore event", "type", evt.Type)
		return nil
	}
}

func (w *EventWorker) notifyChange(ctx context.Context, evt Event) error {
	if w.notifyTo == "" {
		w.log.Info(ctx, "change request received; no notify address", "recipient", evt.Recipient)
		return nil
	}
	err := w.sender.Send(ctx, mail.Email{
		To:      []string{w.notifyTo},
		Subject: "Resident change request",
		HTML:    changeRequestHTML(evt),
	})
	if errors.Is(err, mail.ErrDisabled) {
		w.log.Warn(ctx, "change request not forwarded; mail disabled", "recipient", evt.Recipient)
		return nil
	}
	if err != nil {
		return fmt.Errorf("forward change request: %w", err)
	}
	return nil
}

func changeRequestHTML(evt Event) string {
	var fields map[string]any
	_ = json.Unmarshal(evt.Data, &fields)

	keys := make([]string, 0, len(fields))
	for k, v := range fields {
		if v != nil {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "<p>%s requested a change:</p><ul>", html.EscapeString(evt.Recipient))
	for _, k := range keys {
		fmt.Fprintf(&b, "<li>%s: %s</li>", html.EscapeString(k), html.EscapeString(fmt.Sprint(fields[k])))
	}
	b.WriteString("</ul>")
	return b.String()
}

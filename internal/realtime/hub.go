// Package realtime carries live updates to viewer sessions, in-process through the event bus and
// across processes through redis pub/sub.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/recruit-pipeline/internal/domain/events"
	"strings"
)

// Envelope is the wire form of a live event.
type Envelope struct {
	Kind    events.Kind     `json:"kind"`
	Viewer  string          `json:"viewer"`
	Payload json.RawMessage `json:"payload"`
}

func newEnvelope(kind events.Kind, viewerEmail string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to encode %s event: %w", kind, err)
	}
	return Envelope{Kind: kind, Viewer: strings.ToLower(viewerEmail), Payload: raw}, nil
}

// Hub publishes live events on the in-process bus, on the topics of each recipient viewer.
type Hub struct {
	bus EventBus.Bus
}

func NewHub(bus EventBus.Bus) *Hub {
	return &Hub{bus: bus}
}

func (h *Hub) Bus() EventBus.Bus {
	return h.bus
}

func (h *Hub) PublishProposal(_ context.Context, recipients []string, event events.ProposalChanged) error {
	for _, viewer := range recipients {
		h.bus.Publish(events.ProposalChangedTopic(viewer), event)
	}
	return nil
}

func (h *Hub) PublishMessage(_ context.Context, recipients []string, event events.MessageReceived) error {
	for _, viewer := range recipients {
		h.bus.Publish(events.MessageReceivedTopic(viewer), event)
	}
	return nil
}

func (h *Hub) PublishReconnected(viewerEmail string) {
	h.bus.Publish(events.ChannelReconnectedTopic(viewerEmail), events.ChannelReconnected{ViewerEmail: viewerEmail})
}

// Dispatch decodes an envelope received from another process and publishes it in-process.
func (h *Hub) Dispatch(envelope Envelope) error {
	switch envelope.Kind {
	case events.KindProposalChanged:
		var event events.ProposalChanged
		if err := json.Unmarshal(envelope.Payload, &event); err != nil {
			return fmt.Errorf("malformed %s payload: %w", envelope.Kind, err)
		}
		return h.PublishProposal(context.Background(), []string{envelope.Viewer}, event)
	case events.KindMessageReceived:
		var event events.MessageReceived
		if err := json.Unmarshal(envelope.Payload, &event); err != nil {
			return fmt.Errorf("malformed %s payload: %w", envelope.Kind, err)
		}
		return h.PublishMessage(context.Background(), []string{envelope.Viewer}, event)
	case events.KindChannelReconnected:
		h.PublishReconnected(envelope.Viewer)
		return nil
	default:
		return fmt.Errorf("unknown live event kind %q", envelope.Kind)
	}
}

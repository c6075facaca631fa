package http

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dmchat/dmchat-server/internal/core"
	"github.com/dmchat/dmchat-server/internal/proto"
)

// dispatchInbound maps a decoded frame to a router call. Frames outside
// the protocol produce an error frame; events with missing fields or
// unknown recipients are dropped inside the router without a response.
func dispatchInbound(ctx context.Context, router *core.Router, client *core.Client, inbound proto.Inbound) (*proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypePrivateMessage:
		var data proto.PrivateMessageData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, err
		}
		router.Send(ctx, client, data.ToUsername, data.Content)
		return nil, nil
	case proto.InboundTypeHistory:
		var data proto.HistoryData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, err
		}
		router.History(ctx, client, data.WithUsername)
		return nil, nil
	default:
		return &proto.Error{Code: "invalid_message", Msg: "unknown message type"}, nil
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventMessageSent:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventMessageSent,
			Data: proto.MessageSent{
				ID:         event.Message.ID,
				SenderID:   event.Message.SenderID,
				ReceiverID: event.Message.ReceiverID,
				Content:    event.Message.Content,
				CreatedAt:  event.Message.CreatedAt.Format(time.RFC3339),
			},
		}
	case core.EventIncomingMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventMessage,
			Data: proto.IncomingMessage{
				From:      event.From,
				Content:   event.Message.Content,
				CreatedAt: event.Message.CreatedAt.Format(time.RFC3339),
			},
		}
	case core.EventHistory:
		entries := make([]proto.HistoryEntry, 0, len(event.History))
		for _, msg := range event.History {
			entries = append(entries, proto.HistoryEntry{
				ID:        msg.ID,
				Content:   msg.Content,
				CreatedAt: msg.CreatedAt.Format(time.RFC3339),
				Sender:    msg.Sender,
				Receiver:  msg.Receiver,
			})
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventHistory,
			Data:  entries,
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

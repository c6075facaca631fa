package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/dmchat/dmchat-server/internal/proto"
)

func wsURL(ts *httptest.Server, token string) string {
	url := strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
	if token != "" {
		url += "?token=" + token
	}
	return url
}

func dialWS(t *testing.T, ctx context.Context, ts *httptest.Server, token string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, wsURL(ts, token), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "done") })

	return conn
}

func sendInbound(t *testing.T, ctx context.Context, conn *websocket.Conn, msgType string, data any) {
	t.Helper()

	payload, _ := json.Marshal(data)
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: msgType, Data: payload}); err != nil {
		t.Fatalf("send %s: %v", msgType, err)
	}
}

// readEventFrame reads frames until one with the given event name arrives.
func readEventFrame(t *testing.T, ctx context.Context, conn *websocket.Conn, event string) json.RawMessage {
	t.Helper()

	for {
		var outbound struct {
			Type  string          `json:"type"`
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			t.Fatalf("read outbound waiting for %s: %v", event, err)
		}
		if outbound.Type == proto.OutboundTypeEvent && outbound.Event == event {
			return outbound.Data
		}
	}
}

func TestWebSocketRejectsMissingToken(t *testing.T) {
	ts := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, _, err := websocket.Dial(ctx, wsURL(ts, ""), nil); err == nil {
		t.Fatalf("expected dial without token to fail")
	}
	if _, _, err := websocket.Dial(ctx, wsURL(ts, "garbage"), nil); err == nil {
		t.Fatalf("expected dial with invalid token to fail")
	}
}

func TestWebSocketSendAndReceive(t *testing.T) {
	ts := startTestServer(t)

	aliceToken := registerUser(t, ts, "alice", "password123")
	bobToken := registerUser(t, ts, "bob", "password123")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connAlice := dialWS(t, ctx, ts, aliceToken)
	connBob := dialWS(t, ctx, ts, bobToken)

	sendInbound(t, ctx, connAlice, proto.InboundTypePrivateMessage, proto.PrivateMessageData{
		ToUsername: "bob",
		Content:    "hi there",
	})

	ackData := readEventFrame(t, ctx, connAlice, proto.EventMessageSent)
	var ack proto.MessageSent
	if err := json.Unmarshal(ackData, &ack); err != nil {
		t.Fatalf("unmarshal ack: %v", err)
	}
	if ack.Content != "hi there" || ack.ID == 0 {
		t.Fatalf("unexpected ack: %+v", ack)
	}

	msgData := readEventFrame(t, ctx, connBob, proto.EventMessage)
	var msg proto.IncomingMessage
	if err := json.Unmarshal(msgData, &msg); err != nil {
		t.Fatalf("unmarshal message: %v", err)
	}
	if msg.From != "alice" || msg.Content != "hi there" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestWebSocketOfflineDeliveryViaHistory(t *testing.T) {
	ts := startTestServer(t)

	aliceToken := registerUser(t, ts, "alice", "password123")
	bobToken := registerUser(t, ts, "bob", "password123")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Alice sends while Bob has no session at all.
	connAlice := dialWS(t, ctx, ts, aliceToken)
	sendInbound(t, ctx, connAlice, proto.InboundTypePrivateMessage, proto.PrivateMessageData{
		ToUsername: "bob",
		Content:    "hi",
	})
	readEventFrame(t, ctx, connAlice, proto.EventMessageSent)

	// Bob connects later and fetches the conversation.
	connBob := dialWS(t, ctx, ts, bobToken)
	sendInbound(t, ctx, connBob, proto.InboundTypeHistory, proto.HistoryData{WithUsername: "alice"})

	historyData := readEventFrame(t, ctx, connBob, proto.EventHistory)
	var entries []proto.HistoryEntry
	if err := json.Unmarshal(historyData, &entries); err != nil {
		t.Fatalf("unmarshal history: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(entries))
	}
	if entries[0].Sender != "alice" || entries[0].Receiver != "bob" || entries[0].Content != "hi" {
		t.Fatalf("unexpected history entry: %+v", entries[0])
	}
}

func TestWebSocketHistorySymmetry(t *testing.T) {
	ts := startTestServer(t)

	aliceToken := registerUser(t, ts, "alice", "password123")
	bobToken := registerUser(t, ts, "bob", "password123")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connAlice := dialWS(t, ctx, ts, aliceToken)
	connBob := dialWS(t, ctx, ts, bobToken)

	sendInbound(t, ctx, connAlice, proto.InboundTypePrivateMessage, proto.PrivateMessageData{ToUsername: "bob", Content: "one"})
	readEventFrame(t, ctx, connAlice, proto.EventMessageSent)
	sendInbound(t, ctx, connBob, proto.InboundTypePrivateMessage, proto.PrivateMessageData{ToUsername: "alice", Content: "two"})
	readEventFrame(t, ctx, connBob, proto.EventMessageSent)

	sendInbound(t, ctx, connAlice, proto.InboundTypeHistory, proto.HistoryData{WithUsername: "bob"})
	sendInbound(t, ctx, connBob, proto.InboundTypeHistory, proto.HistoryData{WithUsername: "alice"})

	var fromAlice, fromBob []proto.HistoryEntry
	if err := json.Unmarshal(readEventFrame(t, ctx, connAlice, proto.EventHistory), &fromAlice); err != nil {
		t.Fatalf("unmarshal alice history: %v", err)
	}
	if err := json.Unmarshal(readEventFrame(t, ctx, connBob, proto.EventHistory), &fromBob); err != nil {
		t.Fatalf("unmarshal bob history: %v", err)
	}

	if len(fromAlice) != 2 || len(fromBob) != 2 {
		t.Fatalf("expected both sides to see 2 entries, got %d and %d", len(fromAlice), len(fromBob))
	}
	for i := range fromAlice {
		if fromAlice[i].ID != fromBob[i].ID || fromAlice[i].Content != fromBob[i].Content {
			t.Fatalf("histories diverge at %d: %+v vs %+v", i, fromAlice[i], fromBob[i])
		}
	}
}

func TestWebSocketUnknownTypeGetsErrorFrame(t *testing.T) {
	ts := startTestServer(t)

	aliceToken := registerUser(t, ts, "alice", "password123")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(t, ctx, ts, aliceToken)
	sendInbound(t, ctx, conn, "bogus", struct{}{})

	var outbound proto.Outbound
	if err := wsjson.Read(ctx, conn, &outbound); err != nil {
		t.Fatalf("read outbound: %v", err)
	}
	if outbound.Type != proto.OutboundTypeError || outbound.Error == nil || outbound.Error.Code != "invalid_message" {
		t.Fatalf("expected invalid_message error, got %+v", outbound)
	}
}

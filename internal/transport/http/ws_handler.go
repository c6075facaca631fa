package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/dmchat/dmchat-server/internal/auth"
	"github.com/dmchat/dmchat-server/internal/core"
	"github.com/dmchat/dmchat-server/internal/proto"
)

// WSHandler upgrades HTTP connections into authenticated chat sessions.
// The credential token is checked before the upgrade: a connect attempt
// without a valid token is rejected outright and no session ever exists.
type WSHandler struct {
	router      *core.Router
	presence    *core.Presence
	authService *auth.Service
	msgPerMin   int
	log         *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(router *core.Router, presence *core.Presence, authService *auth.Service, msgPerMin int, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{
		router:      router,
		presence:    presence,
		authService: authService,
		msgPerMin:   msgPerMin,
		log:         logger,
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	claims, err := h.authService.ValidateToken(credentialToken(r))
	if err != nil {
		h.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("ws connect rejected")
		stdhttp.Error(w, "invalid token", stdhttp.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	client := core.NewClient()
	h.presence.Register(claims.UserID, client)
	defer h.presence.Unregister(client)

	h.log.Info().
		Int64("user_id", claims.UserID).
		Str("username", claims.Username).
		Str("client_id", client.ID).
		Msg("ws session opened")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	limiter := newRateLimiter(h.msgPerMin)
	stopReset := make(chan struct{})
	defer close(stopReset)
	limiter.startReset(stopReset)

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client, limiter)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("client_id", client.ID).Msg("ws connection closed with error")
		}
	}

	// Close before the deferred Unregister fires, so the socket is dead by
	// the time the registry entry disappears.
	conn.Close(status, reason)
	h.log.Info().Int64("user_id", claims.UserID).Str("client_id", client.ID).Msg("ws session closed")
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, limiter *rateLimiter) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		if !limiter.allow() {
			h.log.Warn().Str("client_id", client.ID).Msg("inbound frame rate limited, dropped")
			continue
		}

		protoErr, err := dispatchInbound(ctx, h.router, client, inbound)
		if err != nil {
			h.log.Warn().Err(err).Str("client_id", client.ID).Msg("failed to decode inbound frame")
			return err
		}
		if protoErr != nil {
			if writeErr := wsjson.Write(ctx, conn, proto.Outbound{
				Type:  proto.OutboundTypeError,
				Error: protoErr,
			}); writeErr != nil {
				return writeErr
			}
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("client_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// credentialToken pulls the token from the Authorization header or, for
// browser clients that cannot set headers on websocket dials, from the
// token query parameter.
func credentialToken(r *stdhttp.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		if after, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
			return after
		}
	}
	return r.URL.Query().Get("token")
}

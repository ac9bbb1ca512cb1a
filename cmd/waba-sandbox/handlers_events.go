package main

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/cssbruno/waba-sandbox/internal/models"
)

func (s *Server) handleListEvents() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events := s.deps.Bus.Recent(queryLimit(r, 50))
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"events": events,
			"total":  len(events),
		})
	}
}

// handleEventStream upgrades to a websocket and tails the bus. Events are
// buffered per connection; once the buffer is full new events are dropped
// until the client drains it, so publishers never stall.
func (s *Server) handleEventStream() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			s.logger.Warnf("Websocket accept failed: %v", err)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")

		ctx := r.Context()
		feed := make(chan models.SandboxEvent, 64)

		unsubscribe := s.deps.Bus.Subscribe(func(event models.SandboxEvent) {
			select {
			case feed <- event:
			default:
				// Drop on a full buffer; the subscriber callback must not block
			}
		})
		defer unsubscribe()

		s.logger.WithField("remote", r.RemoteAddr).Debug("Event stream opened")

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-feed:
				writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
				err := wsjson.Write(writeCtx, conn, event)
				cancel()
				if err != nil {
					s.logger.Debugf("Event stream write failed: %v", err)
					return
				}
			}
		}
	}
}

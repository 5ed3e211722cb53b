package api

import (
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	log "github.com/sirupsen/logrus"
)

// streamUpdates writes the current address and every subsequent change to
// the client until either side goes away. Client messages are ignored.
func (s *Service) streamUpdates(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("Failed to accept websocket client")
		return
	}
	defer c.Close(websocket.StatusNormalClosure, "closing")

	ctx := c.CloseRead(r.Context())

	updates, unsub := s.src.Subscribe()
	defer unsub()

	log.WithField("remote", r.RemoteAddr).Debug("Websocket subscriber connected")
	defer log.WithField("remote", r.RemoteAddr).Debug("Websocket subscriber disconnected")

	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				c.Close(websocket.StatusGoingAway, "shutting down")
				return
			}
			if err := wsjson.Write(ctx, c, s.updateMessage(u)); err != nil {
				log.WithError(err).Debug("Failed to write update to websocket subscriber")
				return
			}
		}
	}
}

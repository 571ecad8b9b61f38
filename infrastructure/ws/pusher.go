package ws

import "go.uber.org/zap"

// Pusher wraps a hub behind the live-push capability the pipelines depend
// on. Delivery is best effort; a false return means the recipient simply
// sees the durable record on its next poll.
type Pusher struct {
	hub IHub
	log *zap.SugaredLogger
}

func NewPusher(hub IHub, log *zap.SugaredLogger) *Pusher {
	return &Pusher{hub: hub, log: log}
}

func (p *Pusher) PushToUser(userId string, event EventType, data any) bool {
	payload, err := EncodeEvent(event, data)
	if err != nil {
		p.log.Errorw("encode event failed", "event", event, "error", err)
		return false
	}
	return p.hub.SendToClient(userId, payload)
}

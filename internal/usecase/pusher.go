package usecase

import "buzzline/infrastructure/ws"

// LivePusher is the live-push capability injected into the pipelines,
// decoupling them from any concrete transport. Push failures never fail the
// operation that triggered them.
type LivePusher interface {
	PushToUser(userId string, event ws.EventType, data any) bool
}

package hub

import (
	"context"
	"slices"

	"github.com/DoyleJ11/snake-duel/internal/session"
	"go.uber.org/zap"
)

type HubMsg interface{ isHubMsg() }

type RegisterSession struct {
	Session *session.Session
}

type GetSession struct {
	ID    string
	Reply chan *session.Session
}

type ListSessions struct {
	Reply chan []string
}

type RemoveSession struct {
	ID string
}

type ShutdownHub struct {
	Done chan struct{} // closed once every session has been told to stop; may be nil
}

func (RegisterSession) isHubMsg() {}
func (GetSession) isHubMsg()      {}
func (ListSessions) isHubMsg()    {}
func (RemoveSession) isHubMsg()   {}
func (ShutdownHub) isHubMsg()     {}

// Hub owns the registry of live sessions. Only its loop touches the map.
type Hub struct {
	inbox    chan HubMsg
	sessions map[string]*session.Session
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *zap.Logger
}

func NewHub(parent context.Context, logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		sessions: make(map[string]*session.Session),
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Post is Inbox without the risk of blocking on a stopped hub.
func (h *Hub) Post(m HubMsg) bool {
	if h.ctx.Err() != nil {
		return false
	}
	select {
	case h.inbox <- m:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.stopAll()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case RegisterSession:
				s := msg.Session
				select {
				case <-s.Done():
					// Finished before we heard of it; its RemoveSession already went by.
					break
				default:
					h.sessions[s.ID()] = s
					h.logger.Debug("session registered", zap.String("session_id", s.ID()), zap.Int("active", len(h.sessions)))
				}

			case GetSession:
				msg.Reply <- h.sessions[msg.ID] // May be nil

			case ListSessions:
				ids := make([]string, 0, len(h.sessions))
				for id := range h.sessions {
					ids = append(ids, id)
				}
				slices.Sort(ids)
				msg.Reply <- ids

			case RemoveSession:
				delete(h.sessions, msg.ID)

			case ShutdownHub:
				h.stopAll()
				h.cancel()
				if msg.Done != nil {
					close(msg.Done)
				}
				return
			}
		}
	}
}

func (h *Hub) stopAll() {
	for _, s := range h.sessions {
		s.Stop()
	}
	h.logger.Info("hub stopped", zap.Int("sessions", len(h.sessions)))
	clear(h.sessions)
}

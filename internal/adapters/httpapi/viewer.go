package httpapi

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kateb7566/system-health-monitor-etl/internal/adapters/observability"
	"github.com/kateb7566/system-health-monitor-etl/internal/ports"
)

type viewerState int32

const (
	stateConnecting viewerState = iota
	stateSubscribed
	stateStreaming
	stateClosing
	stateClosed
)

func (s viewerState) String() string {
	switch s {
	case stateConnecting:
		return "connecting"
	case stateSubscribed:
		return "subscribed"
	case stateStreaming:
		return "streaming"
	case stateClosing:
		return "closing"
	case stateClosed:
		return "closed"
	}
	return "unknown"
}

// viewer relays every message on the metrics channel to one websocket
// client, verbatim, until either side goes away.
type viewer struct {
	id        string
	conn      *websocket.Conn
	bus       ports.Bus
	channel   string
	poll      time.Duration
	writeWait time.Duration
	obs       ports.Observability

	mu    sync.Mutex
	state viewerState
	sub   ports.Subscription

	closeOnce sync.Once
}

func (s *Server) handleLiveMetrics(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.deps.Obs.LogWarn("viewer_upgrade_failed", ports.Field{Key: "reason", Value: err.Error()})
		return
	}

	v := &viewer{
		id:        requestID(r),
		conn:      conn,
		bus:       s.deps.Bus,
		channel:   s.deps.Channel,
		poll:      s.cfg.PollTimeout,
		writeWait: s.cfg.WriteWait,
		obs:       s.deps.Obs,
	}
	v.run(r.Context())
}

func (v *viewer) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	defer v.close()

	sub, err := v.bus.Subscribe(ctx, v.channel)
	if err != nil {
		v.obs.LogError("viewer_subscribe_failed", err, v.fields()...)
		return
	}
	v.mu.Lock()
	v.sub = sub
	v.mu.Unlock()
	v.setState(stateSubscribed)

	v.obs.AddGauge(observability.ActiveViewers, 1)
	defer v.obs.AddGauge(observability.ActiveViewers, -1)
	v.obs.LogInfo("viewer_connected", v.fields()...)

	go v.readLoop(cancel)

	v.setState(stateStreaming)
	for {
		msg, ok, err := sub.Next(ctx, v.poll)
		if err != nil {
			if ctx.Err() != nil {
				v.obs.LogInfo("viewer_disconnected", v.fields()...)
				return
			}
			v.obs.LogError("viewer_receive_failed", err, v.fields()...)
			return
		}
		if !ok {
			continue
		}

		_ = v.conn.SetWriteDeadline(time.Now().Add(v.writeWait))
		if err := v.conn.WriteMessage(websocket.TextMessage, msg.Payload); err != nil {
			v.obs.LogInfo("viewer_send_failed", append(v.fields(), ports.Field{Key: "reason", Value: err.Error()})...)
			return
		}
		v.obs.IncCounter(observability.ViewerMessages, 1)
	}
}

// readLoop drains client frames; any read error means the client is gone.
func (v *viewer) readLoop(cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := v.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// close attempts every cleanup step once, even if an earlier one failed.
func (v *viewer) close() {
	v.closeOnce.Do(func() {
		v.setState(stateClosing)

		v.mu.Lock()
		sub := v.sub
		v.mu.Unlock()

		var errs []error
		if sub != nil {
			ctx, cancel := context.WithTimeout(context.Background(), v.writeWait)
			if err := sub.Unsubscribe(ctx); err != nil {
				errs = append(errs, err)
			}
			cancel()
			if err := sub.Close(); err != nil {
				errs = append(errs, err)
			}
		}

		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = v.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		if err := v.conn.Close(); err != nil {
			errs = append(errs, err)
		}

		v.setState(stateClosed)
		if err := errors.Join(errs...); err != nil {
			v.obs.LogWarn("viewer_cleanup_incomplete", append(v.fields(), ports.Field{Key: "reason", Value: err.Error()})...)
		}
	})
}

func (v *viewer) setState(s viewerState) {
	v.mu.Lock()
	v.state = s
	v.mu.Unlock()
}

func (v *viewer) currentState() viewerState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *viewer) fields() []ports.Field {
	return []ports.Field{
		{Key: "viewer", Value: v.id},
		{Key: "state", Value: v.currentState().String()},
	}
}

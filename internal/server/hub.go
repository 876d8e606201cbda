package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/san-kum/cableheat/internal/config"
	"github.com/san-kum/cableheat/internal/metrics"
	"github.com/san-kum/cableheat/internal/sim"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Message types. Clients send env, preset, start and stop; the hub answers
// with the rest.
const (
	TypeEnv       = "env"
	TypePreset    = "preset"
	TypeStart     = "start"
	TypeStop      = "stop"
	TypeEnvSet    = "envSet"
	TypeStarted   = "started"
	TypeSnapshot  = "snapshot"
	TypeCompleted = "completed"
	TypeStopped   = "stopped"
	TypeError     = "error"
)

var errClosed = errors.New("connection closed")

type Msg struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// Summary is the content of completed and stopped messages.
type Summary struct {
	Steps     int                `json:"steps"`
	Phase     string             `json:"phase"`
	Conductor float64            `json:"conductor"`
	Metrics   map[string]float64 `json:"metrics"`
	Error     string             `json:"error,omitempty"`
}

// Hub serves one websocket connection. It owns at most one running driver
// and forwards its snapshots to the peer. All writes go through send so the
// connection has a single writer.
type Hub struct {
	conn *websocket.Conn
	log  log.FieldLogger

	send chan Msg
	done chan struct{}

	mu      sync.Mutex
	cfg     *config.Config
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup
}

func NewHub(conn *websocket.Conn, cfg *config.Config, logger log.FieldLogger) *Hub {
	return &Hub{
		conn: conn,
		log:  logger,
		cfg:  cfg.Clone(),
		send: make(chan Msg, 16),
		done: make(chan struct{}),
	}
}

// Serve reads requests until the peer goes away, then stops any run.
func (h *Hub) Serve() {
	go h.handleResponse()
	defer h.shutdown()

	for {
		var msg Msg
		if err := h.conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.WithError(err).Debug("read failed")
			}
			return
		}
		h.handleRequest(msg)
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	if h.cancel != nil {
		h.cancel()
	}
	h.mu.Unlock()
	close(h.done)
	h.wg.Wait()
}

func (h *Hub) handleResponse() {
	for {
		select {
		case reply := <-h.send:
			if err := h.conn.WriteJSON(&reply); err != nil {
				h.log.WithError(err).Warn("write failed")
			}
		case <-h.done:
			return
		}
	}
}

func (h *Hub) reply(msg Msg) error {
	select {
	case h.send <- msg:
		return nil
	case <-h.done:
		return errClosed
	}
}

func (h *Hub) replyError(err error) {
	h.reply(Msg{Type: TypeError, Content: err.Error()})
}

func (h *Hub) handleRequest(msg Msg) {
	switch msg.Type {
	case TypeEnv:
		h.setEnv(msg.Content)
	case TypePreset:
		cfg := config.GetPreset(msg.Content)
		if cfg == nil {
			h.replyError(fmt.Errorf("unknown preset: %s", msg.Content))
			return
		}
		h.mu.Lock()
		h.cfg = cfg
		h.mu.Unlock()
		h.reply(Msg{Type: TypeEnvSet, Content: "preset " + msg.Content})
	case TypeStart:
		if err := h.start(); err != nil {
			h.replyError(err)
		}
	case TypeStop:
		h.mu.Lock()
		if h.cancel != nil {
			h.cancel()
		}
		running := h.running
		h.mu.Unlock()
		if !running {
			h.reply(Msg{Type: TypeStopped, Content: "not running"})
		}
	default:
		h.log.WithField("type", msg.Type).Warn("no such type")
		h.replyError(fmt.Errorf("no such type: %s", msg.Type))
	}
}

// setEnv applies a YAML or JSON document on top of the current configuration.
func (h *Hub) setEnv(content string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		h.replyError(errors.New("cannot change configuration while running"))
		return
	}
	cfg := h.cfg.Clone()
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		h.replyError(fmt.Errorf("parse env: %w", err))
		return
	}
	if err := cfg.Validate(); err != nil {
		h.replyError(err)
		return
	}
	h.cfg = cfg
	h.reply(Msg{Type: TypeEnvSet, Content: "env is set"})
}

func (h *Hub) start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		return errors.New("already running")
	}
	sc, err := h.cfg.SimConfig()
	if err != nil {
		return err
	}
	d, err := sim.New(h.cfg.Params(), sc, sim.WithLogger(h.log))
	if err != nil {
		return err
	}
	d.AddRenderer(h)
	for _, m := range metrics.Default(sc, h.cfg.AmbientTemperature) {
		d.AddMetric(m)
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.running = true
	h.reply(Msg{Type: TypeStarted})

	h.wg.Add(1)
	go h.run(ctx, d)
	return nil
}

func (h *Hub) run(ctx context.Context, d *sim.Driver) {
	defer h.wg.Done()

	result, err := d.Run(ctx)

	h.mu.Lock()
	h.cancel()
	h.cancel = nil
	h.running = false
	h.mu.Unlock()

	summary := Summary{
		Steps:     result.StepsTaken,
		Phase:     result.Phase.String(),
		Conductor: result.Final.Conductor(),
		Metrics:   result.Metrics,
	}
	typ := TypeCompleted
	if err != nil {
		typ = TypeStopped
		summary.Error = err.Error()
	}
	data, _ := json.Marshal(summary)
	h.reply(Msg{Type: typ, Content: string(data)})
}

// Render sends a snapshot to the peer. It fails once the peer is gone, which
// the driver records without stopping.
func (h *Hub) Render(s sim.Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return h.reply(Msg{Type: TypeSnapshot, Content: string(data)})
}

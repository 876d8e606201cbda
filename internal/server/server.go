package server

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/san-kum/cableheat/internal/config"
	log "github.com/sirupsen/logrus"
)

type Server struct {
	addr     string
	upgrader websocket.Upgrader
	cfg      *config.Config
	log      log.FieldLogger
}

// NewServer serves sessions that start from cfg. A nil logger uses the
// standard logger.
func NewServer(addr string, upgrader websocket.Upgrader, cfg *config.Config, logger log.FieldLogger) *Server {
	if logger == nil {
		logger = log.StandardLogger()
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Server{
		addr:     addr,
		upgrader: upgrader,
		cfg:      cfg,
		log:      logger,
	}
}

// serveWs handles websocket requests from the peer.
func (s *Server) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("upgrade failed")
		return
	}
	defer conn.Close()

	logger := s.log.WithField("remote", r.RemoteAddr)
	logger.Info("session opened")
	NewHub(conn, s.cfg, logger).Serve()
	logger.Info("session closed")
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWs)
	return mux
}

func (s *Server) Serve() error {
	s.log.WithField("addr", s.addr).Info("listening")
	return http.ListenAndServe(s.addr, s.Handler())
}

// Package server wires the capture/encode/audio/fanout pipeline to the
// network: a gin-gonic health endpoint and a gorilla/websocket media
// session, matching the teacher's webservice.WebMaster bootstrap (router
// setup, route groups, graceful Close) generalized from device sessions
// to single-host viewer sessions.
package server

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"desktopcast/internal/audio"
	"desktopcast/internal/capture"
	"desktopcast/internal/config"
	"desktopcast/internal/control"
	"desktopcast/internal/encode"
	"desktopcast/internal/fanout"
	"desktopcast/internal/input"
	"desktopcast/internal/pipeline"
	"desktopcast/internal/registry"
)

// Server owns the full pipeline and the two listeners it runs: a health
// port and the /ws media port.
type Server struct {
	cfg config.Config

	capture  *capture.Stage
	encode   *encode.Stage
	audio    *audio.Stage
	registry *registry.Registry
	fanout   *fanout.Worker
	injector *input.Injector

	healthRouter *gin.Engine
	wsRouter     *gin.Engine
	upgrader     websocket.Upgrader
}

// screenSize adapts a capture.Source to input.ScreenSize.
type screenSize struct{ src capture.Source }

func (s screenSize) Width() int  { return s.src.Width() }
func (s screenSize) Height() int { return s.src.Height() }

// New builds the server with a concrete capture source and, on linux,
// wires loopback audio and X11 pointer injection. Audio/injector failures
// are logged and disable that stage only; the rest of the server still
// starts.
func New(cfg config.Config, src capture.Source, cursor capture.CursorSource) *Server {
	var reg *registry.Registry

	captureStage := capture.NewStage(src, cursor, cfg.CaptureQueueCapacity,
		func() bool { return reg.Len() > 0 },
		func() bool { return reg.Len() > 0 })

	encodeStage := encode.NewStage(captureStage.Output(), cfg.EncodeQueueCapacity,
		cfg.TargetFPS, cfg.BitrateKbps, cfg.HardwareEncode, cfg.JPEGOnly)

	reg = registry.New(cfg.MaxClients, func(*registry.Session) {
		encodeStage.RequestKeyframe()
	})

	s := &Server{
		cfg:      cfg,
		capture:  captureStage,
		encode:   encodeStage,
		registry: reg,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}

	var audioQueue *pipeline.Queue[[]byte]
	if cfg.AudioEnabled {
		if audSrc, err := audio.NewPulseSource(cfg.AudioSampleHz, cfg.AudioChannels); err != nil {
			log.Printf("[server] audio backend absent, disabling audio stage: %v", err)
		} else {
			s.audio = audio.NewStage(audSrc, cfg.AudioQueueCapacity)
			audioQueue = s.audio.Output()
		}
	}
	if audioQueue == nil {
		audioQueue = pipeline.NewQueue[[]byte](cfg.AudioQueueCapacity)
	}

	s.fanout = fanout.New(reg, encodeStage.Output(), audioQueue, func(id string) {
		reg.Remove(id)
	})

	if inj, err := input.New(cfg.Display, screenSize{src: src}); err != nil {
		log.Printf("[server] pointer injection unavailable: %v", err)
	} else {
		s.injector = inj
	}

	s.setupRouters()
	return s
}

func (s *Server) setupRouters() {
	gin.SetMode(gin.ReleaseMode)

	health := gin.New()
	health.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	s.healthRouter = health

	ws := gin.New()
	ws.GET("/ws", s.handleWS)
	s.wsRouter = ws
}

// Run starts both listeners and every pipeline worker; it blocks until
// ctx is cancelled.
func (s *Server) Run(ctx context.Context) {
	go s.capture.Run(ctx, s.cfg.TargetFPS)
	go s.encode.Run(ctx)
	if s.audio != nil {
		go s.audio.Run(ctx)
	}
	go s.fanout.Run(ctx)

	healthSrv := &http.Server{Addr: portAddr(s.cfg.HealthPort), Handler: s.healthRouter}
	wsSrv := &http.Server{Addr: portAddr(s.cfg.VideoPort), Handler: s.wsRouter}

	go func() {
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[server] health listener stopped: %v", err)
		}
	}()
	go func() {
		if err := wsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[server] ws listener stopped: %v", err)
		}
	}()

	<-ctx.Done()
	_ = healthSrv.Close()
	_ = wsSrv.Close()
}

func portAddr(port int) string {
	return ":" + strconv.Itoa(port)
}

// Close shuts down every pipeline stage.
func (s *Server) Close() {
	if s.injector != nil {
		_ = s.injector.Close()
	}
	if s.audio != nil {
		_ = s.audio.Close()
	}
	_ = s.encode.Close()
	_ = s.capture.Close()
}

// handleWS upgrades the connection, admits it into the registry (or
// refuses with a clean close if at capacity), and runs the inbound
// control-message loop until the client disconnects.
func (s *Server) handleWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[server] websocket upgrade failed: %v", err)
		return
	}

	session := registry.NewSession(conn)
	if !s.registry.Add(session) {
		log.Printf("[server] refusing session %s: registry full", session.ID)
		_ = conn.Close()
		return
	}
	log.Printf("[server] session %s attached (%d/%d)", session.ID, s.registry.Len(), s.cfg.MaxClients)

	defer func() {
		s.registry.Remove(session.ID)
		_ = conn.Close()
		log.Printf("[server] session %s detached", session.ID)
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return // socket closed; tear down and remove the session
		}
		session.Touch()
		if msgType != websocket.TextMessage {
			continue
		}
		msg, err := control.Parse(data)
		if err != nil {
			continue // malformed control message; drop it and keep reading
		}
		s.dispatch(session, msg)
	}
}

func (s *Server) dispatch(session *registry.Session, msg control.Message) {
	switch msg.Kind {
	case control.KindHello:
		session.Version = msg.Version
	case control.KindRequestKeyframe:
		session.SetNeedsKeyframe(true)
		s.encode.RequestKeyframe()
	case control.KindPointer:
		if s.injector == nil {
			return
		}
		s.injector.Inject(input.Event{
			U: msg.U, V: msg.V,
			Pressed: msg.Pressed, Down: msg.Down, Up: msg.Up,
			Button: msg.Button,
		})
	}
}

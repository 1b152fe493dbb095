package server

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/zeusync/arena/internal/core/battle"
	"github.com/zeusync/arena/internal/core/events/bus"
	"github.com/zeusync/arena/internal/core/npc"
	"github.com/zeusync/arena/internal/core/observability/log"
	"github.com/zeusync/arena/internal/core/roster"
)

// Server hosts one battle per WebSocket connection.
type Server struct {
	config Config
	logger log.Log
	root   log.Log // unscoped, handed to battles
	table  *roster.Table
	brain  *npc.Config
	bus    bus.EventBus

	upgrader websocket.Upgrader
	http     *http.Server

	rngMu sync.Mutex
	rng   *rand.Rand

	// Connection tracking
	mu      sync.Mutex
	conns   sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	clients int64 // atomic

	// Battle counters
	battles    int64 // atomic
	playerWins int64 // atomic
	enemyWins  int64 // atomic

	// Server state
	running int32 // atomic bool
	closed  int32 // atomic bool
}

// Config holds server configuration
type Config struct {
	ListenAddr      string
	ShutdownTimeout time.Duration
	MaxClients      int
	MaxMessageSize  int64
	WriteTimeout    time.Duration
	SendBuffer      int

	// Seed feeds the per-connection seeds; each battle gets its own random source.
	Seed       int64
	RosterSize int
	TeamSize   int
	Battle     battle.Config
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() Config {
	return Config{
		ListenAddr:      "127.0.0.1:8080",
		ShutdownTimeout: 5 * time.Second,
		MaxClients:      1000,
		MaxMessageSize:  4 * 1024,
		WriteTimeout:    10 * time.Second,
		SendBuffer:      16,
		Seed:            time.Now().UnixNano(),
		RosterSize:      20,
		TeamSize:        3,
		Battle:          battle.DefaultConfig(),
	}
}

// NewServer creates a battle server. A nil table or brain falls back to the
// builtin ones.
func NewServer(config Config, table *roster.Table, brain *npc.Config, eventBus bus.EventBus, logger log.Log) (*Server, error) {
	if err := config.Battle.Validate(); err != nil {
		return nil, err
	}
	if config.RosterSize <= 0 || config.TeamSize <= 0 || config.TeamSize > config.RosterSize {
		return nil, fmt.Errorf("%w: team %d of roster %d", ErrInvalidTeamSize, config.TeamSize, config.RosterSize)
	}
	if table == nil {
		table = roster.DefaultTable()
	}
	if brain == nil {
		var err error
		if brain, err = npc.LoadConfig(npc.DefaultBrain); err != nil {
			return nil, err
		}
	}
	if eventBus == nil {
		eventBus = bus.New()
	}
	if logger == nil {
		logger = log.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config: config,
		logger: logger.With(log.String("component", "server")),
		root:   logger,
		table:  table,
		brain:  brain,
		bus:    eventBus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		rng:    rand.New(rand.NewSource(config.Seed)),
		ctx:    ctx,
		cancel: cancel,
	}
	s.http = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.logger.Info("Server created",
		log.String("listen_addr", config.ListenAddr),
		log.Int("max_clients", config.MaxClients),
		log.Duration("write_timeout", config.WriteTimeout),
		log.Int64("seed", config.Seed))

	return s, nil
}

// Handler routes /ws to the battle socket and /healthz to a liveness probe.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if atomic.LoadInt32(&s.closed) == 1 {
			http.Error(w, ErrServerClosed.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Start binds the listen address and serves in the background.
func (s *Server) Start(_ context.Context) error {
	if atomic.LoadInt32(&s.closed) == 1 {
		return ErrServerClosed
	}
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		return ErrServerAlreadyRunning
	}

	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		atomic.StoreInt32(&s.running, 0)
		s.logger.Error("Failed to create listener", log.Error(err))
		return err
	}

	s.logger.Info("Server listening", log.String("addr", ln.Addr().String()))

	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Serve failed", log.Error(err))
		}
	}()
	return nil
}

// Run starts the server and stops it once ctx is done.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	return s.Stop(stopCtx)
}

// Stop shuts the HTTP server down and ends every battle.
func (s *Server) Stop(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.running, 1, 0) {
		return ErrServerNotRunning
	}

	s.logger.Info("Stopping server")

	err := s.http.Shutdown(ctx)
	s.closeConnections()

	s.logger.Info("Server stopped", log.Int64("battles", atomic.LoadInt64(&s.battles)))
	return err
}

// Close ends every battle and rejects new connections. It does not touch the
// listener; use Stop for that.
func (s *Server) Close() error {
	if atomic.LoadInt32(&s.running) == 1 {
		return s.Stop(context.Background())
	}
	s.closeConnections()
	return nil
}

func (s *Server) closeConnections() {
	s.mu.Lock()
	atomic.StoreInt32(&s.closed, 1)
	s.mu.Unlock()

	s.cancel()
	s.conns.Wait()
}

// track registers a connection; it fails once the server is closing.
func (s *Server) track() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if atomic.LoadInt32(&s.closed) == 1 {
		return ErrServerClosed
	}
	if s.config.MaxClients > 0 && int(atomic.LoadInt64(&s.clients)) >= s.config.MaxClients {
		return ErrMaxClientsReached
	}
	s.conns.Add(1)
	atomic.AddInt64(&s.clients, 1)
	return nil
}

func (s *Server) untrack() {
	atomic.AddInt64(&s.clients, -1)
	s.conns.Done()
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	team, err := s.teamSize(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.track(); err != nil {
		s.logger.Warn("Rejecting connection",
			log.String("remote_addr", r.RemoteAddr),
			log.Error(err))
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	defer s.untrack()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Upgrade failed", log.Error(err))
		return
	}

	c, err := s.newConnection(conn, team)
	if err != nil {
		s.logger.Error("Failed to start battle", log.Error(err))
		msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "battle setup failed")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}

	c.logger.Info("Client connected",
		log.String("remote_addr", r.RemoteAddr),
		log.Int("team", team),
		log.Int64("total_clients", atomic.LoadInt64(&s.clients)))

	c.serve(s.ctx)

	c.logger.Info("Client disconnected", log.Int64("total_clients", atomic.LoadInt64(&s.clients)-1))
}

func (s *Server) teamSize(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("team")
	if raw == "" {
		return s.config.TeamSize, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > s.config.RosterSize {
		return 0, fmt.Errorf("%w: %q (want 1..%d)", ErrInvalidTeamSize, raw, s.config.RosterSize)
	}
	return n, nil
}

func (s *Server) nextSeed() int64 {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Int63()
}

// newBattle builds an initialized session for one client: a fresh roster,
// its first team units as players, and a generated enemy team.
func (s *Server) newBattle(id string, team int) (*battle.Session, error) {
	rng := rand.New(rand.NewSource(s.nextSeed()))
	gen := roster.NewGenerator(s.table, rng)

	recruits, err := gen.GenerateRoster(s.config.RosterSize)
	if err != nil {
		return nil, fmt.Errorf("generate roster: %w", err)
	}
	brain, err := npc.NewBrain(s.brain, rng, s.root)
	if err != nil {
		return nil, err
	}

	session, err := battle.NewSession(s.config.Battle,
		battle.WithID(id),
		battle.WithLogger(s.root),
		battle.WithRand(rng),
		battle.WithRoster(gen),
		battle.WithTargetPicker(brain),
		battle.WithEventBus(s.bus),
	)
	if err != nil {
		return nil, err
	}
	if _, err := s.bus.SubscribeTopic(id, battle.EventBattleFinished, s.onBattleFinished); err != nil {
		_ = session.Close()
		return nil, err
	}
	if err := session.Initialize(roster.Team(recruits, team), nil); err != nil {
		_ = session.Close()
		return nil, err
	}
	return session, nil
}

func (s *Server) onBattleFinished(event bus.Event) error {
	finish, ok := event.Data().(battle.FinishEvent)
	if !ok {
		return nil
	}
	atomic.AddInt64(&s.battles, 1)
	switch finish.Result {
	case battle.ResultPlayerWon:
		atomic.AddInt64(&s.playerWins, 1)
	case battle.ResultEnemyWon:
		atomic.AddInt64(&s.enemyWins, 1)
	}
	s.logger.Info("Battle finished",
		log.String("session", event.Source()),
		log.String("result", finish.Result.String()),
		log.Int("turns", finish.Turns))
	return nil
}

// GetStats returns server statistics
func (s *Server) GetStats() Stats {
	return Stats{
		ClientCount: atomic.LoadInt64(&s.clients),
		Battles:     atomic.LoadInt64(&s.battles),
		PlayerWins:  atomic.LoadInt64(&s.playerWins),
		EnemyWins:   atomic.LoadInt64(&s.enemyWins),
		Running:     atomic.LoadInt32(&s.running) == 1,
	}
}

// Stats contains server statistics
type Stats struct {
	ClientCount int64
	Battles     int64
	PlayerWins  int64
	EnemyWins   int64
	Running     bool
}

// connection pairs one socket with one battle.
type connection struct {
	server  *Server
	conn    *websocket.Conn
	session *battle.Session
	runner  *battle.Runner
	logger  log.Log
	send    chan []byte

	digest uint64 // last pushed state, runner goroutine only
}

func (s *Server) newConnection(conn *websocket.Conn, team int) (*connection, error) {
	id := uuid.NewString()
	session, err := s.newBattle(id, team)
	if err != nil {
		return nil, err
	}
	c := &connection{
		server:  s,
		conn:    conn,
		session: session,
		logger:  s.logger.With(log.String("session", id)),
		send:    make(chan []byte, max(s.config.SendBuffer, 1)),
	}
	c.runner = battle.NewRunner(session, c.pushState)
	return c, nil
}

// serve runs the battle, the reader and the writer until one of them stops.
func (c *connection) serve(ctx context.Context) {
	defer func() {
		if err := c.session.Close(); err != nil {
			c.logger.Warn("Failed to close session", log.Error(err))
		}
		_ = c.conn.Close()
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.runner.Run(gctx) })
	g.Go(func() error { return c.writeLoop(gctx) })
	g.Go(func() error { return c.readLoop(gctx) })
	g.Go(func() error {
		// unblocks the reader
		<-gctx.Done()
		_ = c.conn.SetReadDeadline(time.Now())
		return nil
	})

	if err := g.Wait(); err != nil && !isClosing(err) {
		c.logger.Warn("Connection ended", log.Error(err))
	}
}

func isClosing(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, battle.ErrRunnerStopped) ||
		websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived)
}

func (c *connection) readLoop(ctx context.Context) error {
	c.conn.SetReadLimit(c.server.config.MaxMessageSize)
	for {
		_, p, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		if err := c.dispatch(ctx, p); err != nil {
			if ctx.Err() != nil || errors.Is(err, battle.ErrRunnerStopped) {
				return err
			}
			c.logger.Debug("Command rejected", log.Error(err))
			if err := c.pushError(ctx, err); err != nil {
				return err
			}
		}
	}
}

func (c *connection) dispatch(ctx context.Context, p []byte) error {
	cmd, err := decodeCommand(p)
	if err != nil {
		return err
	}
	switch cmd.Action {
	case ActionTarget:
		return c.runner.SubmitTarget(ctx, cmd.Target)
	case ActionPause:
		return c.runner.SetPaused(ctx, cmd.Paused)
	case ActionRestart:
		return c.runner.Restart(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, cmd.Action)
	}
}

func (c *connection) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
			_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			return ctx.Err()
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.server.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return err
			}
		}
	}
}

// pushState queues a state frame when the encoded snapshot changed. A full
// queue drops the frame and forgets the digest so the next tick resends.
func (c *connection) pushState(snap battle.Snapshot) {
	frame, err := stateFrame(snap)
	if err != nil {
		c.logger.Error("Failed to encode state", log.Error(err))
		return
	}
	digest := xxhash.Sum64(frame)
	if digest == c.digest {
		return
	}
	select {
	case c.send <- frame:
		c.digest = digest
	default:
		c.digest = 0
		c.logger.Debug("Send queue full, state frame dropped")
	}
}

func (c *connection) pushError(ctx context.Context, cause error) error {
	frame, err := errorFrame(cause)
	if err != nil {
		return err
	}
	select {
	case c.send <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

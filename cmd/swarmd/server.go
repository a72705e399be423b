package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/swarmflow/api/handlers"
	"github.com/BaSui01/swarmflow/config"
	"github.com/BaSui01/swarmflow/internal/metrics"
	"github.com/BaSui01/swarmflow/internal/server"
	"github.com/BaSui01/swarmflow/internal/telemetry"
	"github.com/BaSui01/swarmflow/swarm"
	"github.com/BaSui01/swarmflow/swarm/events"
	"github.com/BaSui01/swarmflow/swarm/runtime"
)

// bootstrapConcurrency 启动时并发创建 agent 的上限
const bootstrapConcurrency = 4

// =============================================================================
// 🖥️ 服务器
// =============================================================================

// Server 组装协调器、事件观察者、运维 API 与指标端点
type Server struct {
	cfg        *config.Config
	configPath string
	logger     *zap.Logger
	level      zap.AtomicLevel
	providers  *telemetry.Providers

	registry    *prometheus.Registry
	collector   *metrics.Collector
	bus         *events.Bus
	publisher   *events.RedisPublisher
	coordinator *swarm.Coordinator

	health *handlers.HealthHandler
	stream *handlers.EventStreamHandler

	apiHandler     http.Handler
	httpManager    *server.Manager
	metricsManager *server.Manager
	reloader       *config.Reloader

	// 中间件后台任务的生命周期
	bgCtx    context.Context
	bgCancel context.CancelFunc
}

// NewServer 创建服务器。Redis 发布器启用时在此处建立连接，连接失败直接返回错误
func NewServer(cfg *config.Config, configPath string, logger *zap.Logger, level zap.AtomicLevel, providers *telemetry.Providers) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		cfg:        cfg,
		configPath: configPath,
		logger:     logger,
		level:      level,
		providers:  providers,
		registry:   prometheus.NewRegistry(),
	}
	s.bgCtx, s.bgCancel = context.WithCancel(context.Background())

	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.collector = metrics.NewCollector("swarmflow", s.registry, logger)

	s.bus = events.NewBus(logger)
	s.bus.Subscribe(s.collector)

	if cfg.Events.RedisEnabled {
		dialCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		pub, err := events.DialRedisPublisher(dialCtx, cfg.Events.Redis, logger)
		cancel()
		if err != nil {
			s.bgCancel()
			return nil, fmt.Errorf("connect event publisher: %w", err)
		}
		s.publisher = pub
		s.bus.Subscribe(pub.Handler())
	}

	opts := append(providers.CoordinatorOptions(), swarm.WithEventBus(s.bus))
	coordinator, err := swarm.New(cfg.Swarm, runtime.NewLocalClient(logger), logger, opts...)
	if err != nil {
		s.bgCancel()
		s.closePublisher()
		return nil, fmt.Errorf("create coordinator: %w", err)
	}
	s.coordinator = coordinator

	s.initHandlers()
	s.initManagers()

	if configPath != "" {
		s.initReloader()
	}

	return s, nil
}

// initHandlers 注册路由与中间件
func (s *Server) initHandlers() {
	s.health = handlers.NewHealthHandler(s.logger)
	s.health.RegisterCheck(handlers.NewSwarmHealthCheck(s.coordinator))
	if s.publisher != nil {
		s.health.RegisterCheck(handlers.NewRedisHealthCheck("redis", s.publisher.Ping))
	}

	swarmHandler := handlers.NewSwarmHandler(s.coordinator, s.logger)

	streamConfig := handlers.DefaultStreamConfig()
	streamConfig.Buffer = s.cfg.Events.StreamBuffer
	s.stream = handlers.NewEventStreamHandler(s.coordinator, streamConfig, s.logger)

	mux := http.NewServeMux()

	// 健康检查
	mux.HandleFunc("GET /health", s.health.HandleHealth)
	mux.HandleFunc("GET /healthz", s.health.HandleHealth)
	mux.HandleFunc("GET /ready", s.health.HandleReady)
	mux.HandleFunc("GET /version", s.health.HandleVersion(Version, BuildTime, GitCommit))

	// Swarm 只读视图
	mux.HandleFunc("GET /v1/stats", swarmHandler.HandleStats)
	mux.HandleFunc("GET /v1/agents", swarmHandler.HandleListAgents)
	mux.HandleFunc("GET /v1/agents/{id}", swarmHandler.HandleGetAgent)
	mux.HandleFunc("GET /v1/tasks", swarmHandler.HandleListTasks)
	mux.HandleFunc("GET /v1/tasks/{id}", swarmHandler.HandleGetTask)

	// 事件流
	mux.HandleFunc("GET /v1/events", s.stream.HandleEvents)

	s.apiHandler = Chain(mux,
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		OTelTracing(),
		RequestLogger(s.logger, s.collector),
		RateLimiter(s.bgCtx, s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.logger),
	)
}

func (s *Server) initManagers() {
	apiConfig := server.DefaultConfig()
	apiConfig.Name = "api"
	apiConfig.Addr = fmt.Sprintf(":%d", s.cfg.Server.HTTPPort)
	apiConfig.ReadTimeout = s.cfg.Server.ReadTimeout
	apiConfig.WriteTimeout = s.cfg.Server.WriteTimeout
	apiConfig.ShutdownTimeout = s.cfg.Server.ShutdownTimeout

	s.httpManager = server.NewManager(s.apiHandler, apiConfig, s.logger)
	s.httpManager.RegisterOnShutdown(s.stream.Close)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		Registry:          s.registry,
		EnableOpenMetrics: true,
	}))

	metricsConfig := server.DefaultConfig()
	metricsConfig.Name = "metrics"
	metricsConfig.Addr = fmt.Sprintf(":%d", s.cfg.Server.MetricsPort)
	metricsConfig.ReadTimeout = 10 * time.Second
	metricsConfig.WriteTimeout = 10 * time.Second
	metricsConfig.ShutdownTimeout = s.cfg.Server.ShutdownTimeout

	s.metricsManager = server.NewManager(metricsMux, metricsConfig, s.logger)
}

// initReloader 配置文件热更新：日志级别即时生效，其余字段提示需要重启
func (s *Server) initReloader() {
	loader := config.NewLoader().WithConfigPath(s.configPath)
	s.reloader = config.NewReloader(loader, s.cfg, s.logger)
	s.reloader.OnReload(func(_, newCfg *config.Config, changes []config.ConfigChange) {
		for _, change := range changes {
			if change.Path == "Log.Level" {
				level, err := zapcore.ParseLevel(newCfg.Log.Level)
				if err != nil {
					continue
				}
				s.level.SetLevel(level)
				s.logger.Info("log level changed", zap.String("level", level.String()))
				continue
			}
			if change.RequiresRestart {
				s.logger.Warn("config change requires restart", zap.String("path", change.Path))
			}
		}
	})
}

// =============================================================================
// 🚀 运行
// =============================================================================

// Run 启动 API、指标端点与统计采样，初始化 swarm 并创建预置 agent，
// 阻塞直到 ctx 结束或任一组件失败
func (s *Server) Run(ctx context.Context) error {
	defer s.cleanup()

	if err := s.coordinator.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize swarm: %w", err)
	}

	if s.reloader != nil {
		if err := s.reloader.Watch(ctx); err != nil {
			s.logger.Warn("config hot reload disabled", zap.Error(err))
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.httpManager.Run(gctx) })
	g.Go(func() error { return s.metricsManager.Run(gctx) })
	g.Go(func() error {
		return s.collector.RunSampler(gctx, s.cfg.Server.StatsInterval, s.coordinator.Statistics)
	})
	g.Go(func() error { return s.bootstrapAgents(gctx) })

	s.logger.Info("SwarmFlow serving",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.String("session_id", s.coordinator.SessionID()),
	)

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return err
}

// bootstrapAgents 并发创建配置中的预置 agent，任一失败即终止服务
func (s *Server) bootstrapAgents(ctx context.Context) error {
	if len(s.cfg.BootstrapAgents) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bootstrapConcurrency)

	for _, agentConfig := range s.cfg.BootstrapAgents {
		g.Go(func() error {
			agent, err := s.coordinator.AddAgent(gctx, agentConfig)
			if err != nil {
				return fmt.Errorf("bootstrap agent %q: %w", agentConfig.Name, err)
			}
			s.logger.Info("bootstrap agent added",
				zap.String("agent_id", agent.ID),
				zap.String("name", agent.Name),
				zap.Strings("capabilities", agent.Capabilities.Strings()),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	s.logger.Info("bootstrap complete", zap.Int("agents", len(s.cfg.BootstrapAgents)))
	return nil
}

// cleanup 关闭协调器与外部连接
func (s *Server) cleanup() {
	if s.reloader != nil {
		s.reloader.Stop()
	}
	s.stream.Close()
	s.bgCancel()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if s.coordinator.IsInitialized() {
		if err := s.coordinator.Shutdown(ctx); err != nil {
			s.logger.Warn("swarm shutdown error", zap.Error(err))
		}
	}
	s.closePublisher()
}

func (s *Server) closePublisher() {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Close(); err != nil {
		s.logger.Warn("event publisher close error", zap.Error(err))
	}
}

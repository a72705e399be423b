package swarm

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/swarmflow/swarm/consensus"
	"github.com/BaSui01/swarmflow/swarm/events"
	"github.com/BaSui01/swarmflow/swarm/fabric"
	"github.com/BaSui01/swarmflow/swarm/runtime"
	"github.com/BaSui01/swarmflow/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Option customizes a Coordinator.
type Option func(*options)

type options struct {
	bus            *events.Bus
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	now            func() time.Time
}

// WithEventBus publishes events on bus instead of a private one.
func WithEventBus(bus *events.Bus) Option {
	return func(o *options) { o.bus = bus }
}

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithMeterProvider overrides the global OpenTelemetry meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// WithClock overrides the time source used for activity and health checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Coordinator 是应用代码使用的 swarm 门面。
//
// 它持有 agent 与任务注册表，组合消息通道 (fabric) 与共识引擎，并运行周期性健康检查。
// 锁顺序：lifecycleMu → agentsMu → tasksMu；事件总是在释放锁之后发布。
type Coordinator struct {
	config   Config
	runtime  runtime.Client
	balancer Balancer
	bus      *events.Bus
	ins      *instruments
	logger   *zap.Logger
	now      func() time.Time

	// lifecycleMu 串行化 Initialize 与 Shutdown
	lifecycleMu sync.Mutex

	stateMu   sync.RWMutex
	state     State
	sessionID string
	fabric    *fabric.Fabric
	engine    *consensus.Engine
	health    *healthChecker

	agentsMu   sync.RWMutex
	agents     map[string]*Agent
	agentOrder []string

	tasksMu   sync.RWMutex
	tasks     map[string]*Task
	taskOrder []string
}

// New creates a Coordinator. No runtime session is opened until Initialize
// or the first mutating call.
func New(config Config, client runtime.Client, logger *zap.Logger, opts ...Option) (*Coordinator, error) {
	if client == nil {
		return nil, types.NewError(types.ErrInvalidRequest, "runtime client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	balancer, err := NewBalancer(config.LoadBalancing)
	if err != nil {
		return nil, err
	}
	ins, err := newInstruments(o.tracerProvider, o.meterProvider)
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "failed to create instruments").WithCause(err)
	}

	logger = logger.With(zap.String("component", "swarm_coordinator"))
	bus := o.bus
	if bus == nil {
		bus = events.NewBus(logger)
	}

	return &Coordinator{
		config:   config,
		runtime:  client,
		balancer: balancer,
		bus:      bus,
		ins:      ins,
		logger:   logger,
		now:      o.now,
		state:    StateUninitialized,
		agents:   make(map[string]*Agent),
		tasks:    make(map[string]*Task),
	}, nil
}

// Config returns the coordinator configuration.
func (c *Coordinator) Config() Config { return c.config }

// Events returns the bus the coordinator publishes on.
func (c *Coordinator) Events() *events.Bus { return c.bus }

// Subscribe registers h for swarm events and returns its unsubscribe func.
func (c *Coordinator) Subscribe(h events.Handler) func() {
	return c.bus.Subscribe(h)
}

// State returns the lifecycle state.
func (c *Coordinator) State() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// IsInitialized reports whether a session is open.
func (c *Coordinator) IsInitialized() bool {
	return c.State() == StateInitialized
}

// SessionID returns the runtime session id, empty when not initialized.
func (c *Coordinator) SessionID() string {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.sessionID
}

// =============================================================================
// Lifecycle
// =============================================================================

// Initialize opens a runtime session, creates the fabric and consensus
// engine, and starts the health checker. Calling it while initialized is a
// no-op. Runtime failures are returned unchanged in meaning.
func (c *Coordinator) Initialize(ctx context.Context) (err error) {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if c.IsInitialized() {
		return nil
	}

	ctx, span := c.ins.start(ctx, "swarm.initialize")
	defer func() { finish(span, err) }()

	if !c.runtime.IsInitialized() {
		if err := c.runtime.Initialize(ctx); err != nil {
			return runtimeError("initialize runtime", err)
		}
	}

	session, err := c.runtime.InitializeSwarm(ctx, runtime.SwarmConfig{
		Name:      c.config.Name,
		Topology:  c.config.Topology,
		MaxAgents: c.config.MaxAgents,
	})
	if err != nil {
		return runtimeError("initialize swarm", err)
	}

	engine, err := consensus.New(c.config.Consensus, c.logger, consensus.WithHooks(consensus.Hooks{
		OnProposal: c.onProposal,
		OnVote:     c.onVote,
		OnResolved: c.onResolved,
	}))
	if err != nil {
		_ = c.runtime.ShutdownSwarm(ctx, session.SessionID)
		return err
	}

	var fab *fabric.Fabric
	if c.config.EnableCommunication {
		fab = fabric.New(c.config.Fabric, c.logger, fabric.WithHooks(fabric.Hooks{
			OnMessage:  c.onMessage,
			OnRegister: c.onRegister,
		}))
	}

	health := newHealthChecker(c, c.config.HealthCheckInterval, c.logger)

	c.stateMu.Lock()
	c.state = StateInitialized
	c.sessionID = session.SessionID
	c.fabric = fab
	c.engine = engine
	c.health = health
	c.stateMu.Unlock()

	health.start()

	span.SetAttributes(attribute.String("swarm.session_id", session.SessionID))
	c.logger.Info("swarm initialized",
		zap.String("session_id", session.SessionID),
		zap.String("topology", c.config.Topology),
		zap.String("load_balancing", string(c.config.LoadBalancing)),
		zap.Bool("communication", c.config.EnableCommunication),
	)
	c.bus.Publish(events.SwarmInitialized{SessionID: session.SessionID, Timestamp: c.now()})
	return nil
}

// Shutdown stops the health checker, closes the runtime session, and clears
// both registries. The coordinator may be initialized again afterwards. A
// runtime failure is returned after local teardown completes.
func (c *Coordinator) Shutdown(ctx context.Context) (err error) {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if !c.IsInitialized() {
		return nil
	}

	ctx, span := c.ins.start(ctx, "swarm.shutdown")
	defer func() { finish(span, err) }()

	c.stateMu.Lock()
	sessionID := c.sessionID
	fab, engine, health := c.fabric, c.engine, c.health
	c.state = StateShutDown
	c.sessionID = ""
	c.fabric, c.engine, c.health = nil, nil, nil
	c.stateMu.Unlock()

	health.stop()
	engine.Close()
	if fab != nil {
		fab.Close()
	}

	if rerr := c.runtime.ShutdownSwarm(ctx, sessionID); rerr != nil {
		err = runtimeError("shutdown swarm", rerr)
	}

	c.agentsMu.Lock()
	c.tasksMu.Lock()
	agentCount, taskCount := len(c.agents), len(c.tasks)
	c.agents = make(map[string]*Agent)
	c.agentOrder = nil
	c.tasks = make(map[string]*Task)
	c.taskOrder = nil
	c.tasksMu.Unlock()
	c.agentsMu.Unlock()

	c.logger.Info("swarm shut down",
		zap.String("session_id", sessionID),
		zap.Int("agents", agentCount),
		zap.Int("tasks", taskCount),
	)
	c.bus.Publish(events.SwarmShutdown{SessionID: sessionID, Timestamp: c.now()})
	return err
}

// ensureInitialized 延迟初始化：在首次变更操作前自动打开会话
func (c *Coordinator) ensureInitialized(ctx context.Context) error {
	if c.IsInitialized() {
		return nil
	}
	return c.Initialize(ctx)
}

func (c *Coordinator) components() (*fabric.Fabric, *consensus.Engine) {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.fabric, c.engine
}

// consensusEngine returns the live engine, initializing lazily.
func (c *Coordinator) consensusEngine(ctx context.Context) (*consensus.Engine, error) {
	if err := c.ensureInitialized(ctx); err != nil {
		return nil, err
	}
	_, engine := c.components()
	if engine == nil {
		return nil, types.NewError(types.ErrEngineClosed, "swarm was shut down")
	}
	return engine, nil
}

// commFabric fails fast when communication is disabled, then initializes
// lazily.
func (c *Coordinator) commFabric(ctx context.Context) (*fabric.Fabric, error) {
	if !c.config.EnableCommunication {
		return nil, types.NewError(types.ErrCommunicationDisabled, "communication is disabled for this swarm")
	}
	if err := c.ensureInitialized(ctx); err != nil {
		return nil, err
	}
	fab, _ := c.components()
	if fab == nil {
		return nil, types.NewError(types.ErrFabricClosed, "swarm was shut down")
	}
	return fab, nil
}

// =============================================================================
// Agents
// =============================================================================

// AddAgent spawns an agent through the runtime and registers it idle with
// zero load. Capabilities are validated before the runtime is called. If the
// swarm is shut down while the runtime is spawning, the agent is not
// registered and ENGINE_CLOSED is returned.
func (c *Coordinator) AddAgent(ctx context.Context, cfg AgentConfig) (_ Agent, err error) {
	ctx, span := c.ins.start(ctx, "swarm.add_agent",
		attribute.String("agent.type", cfg.Type),
		attribute.StringSlice("agent.capabilities", cfg.Capabilities),
	)
	defer func() { finish(span, err) }()

	caps, err := NewCapabilitySet(cfg.Capabilities...)
	if err != nil {
		return Agent{}, err
	}
	if err := c.ensureInitialized(ctx); err != nil {
		return Agent{}, err
	}
	sessionID := c.SessionID()

	spawned, err := c.runtime.SpawnAgent(ctx, runtime.AgentConfig{
		Name:         cfg.Name,
		Type:         cfg.Type,
		Capabilities: caps.Strings(),
		Metadata:     cfg.Metadata,
	})
	if err != nil {
		return Agent{}, runtimeError("spawn agent", err)
	}
	if spawned == nil || spawned.AgentID == "" {
		return Agent{}, types.NewError(types.ErrRuntimeFailure, "runtime returned an empty agent id")
	}

	now := c.now()
	agent := &Agent{
		ID:           spawned.AgentID,
		Name:         cfg.Name,
		Type:         cfg.Type,
		Capabilities: caps,
		Status:       AgentIdle,
		LastActive:   now,
		AddedAt:      now,
	}
	if cfg.Metadata != nil {
		agent.Metadata = make(map[string]string, len(cfg.Metadata))
		for k, v := range cfg.Metadata {
			agent.Metadata[k] = v
		}
	}

	c.agentsMu.Lock()
	// Shutdown 清空注册表时持有 agentsMu；会话变化说明 spawn 期间已关闭
	if !c.IsInitialized() || c.SessionID() != sessionID {
		c.agentsMu.Unlock()
		return Agent{}, types.NewError(types.ErrEngineClosed, "swarm was shut down")
	}
	if _, exists := c.agents[agent.ID]; exists {
		c.agentsMu.Unlock()
		return Agent{}, types.Errorf(types.ErrDuplicateAgent, "agent %s already registered", agent.ID)
	}
	c.agents[agent.ID] = agent
	c.agentOrder = append(c.agentOrder, agent.ID)
	snapshot := agent.clone()
	c.agentsMu.Unlock()

	if fab, _ := c.components(); fab != nil {
		if err := fab.RegisterAgent(agent.ID); err != nil {
			c.dropAgent(agent.ID)
			return Agent{}, err
		}
	}

	span.SetAttributes(attribute.String("agent.id", agent.ID))
	c.logger.Info("agent added",
		zap.String("agent_id", agent.ID),
		zap.String("type", agent.Type),
		zap.Strings("capabilities", caps.Strings()),
	)
	c.bus.Publish(events.AgentAdded{
		AgentID:      agent.ID,
		AgentType:    agent.Type,
		Capabilities: caps.Strings(),
		Timestamp:    now,
	})
	return snapshot, nil
}

// RemoveAgent unregisters an agent. Tasks assigned to it are left as they
// are and keep referencing its id.
func (c *Coordinator) RemoveAgent(ctx context.Context, agentID string) (err error) {
	ctx, span := c.ins.start(ctx, "swarm.remove_agent", attribute.String("agent.id", agentID))
	defer func() { finish(span, err) }()

	if err := c.ensureInitialized(ctx); err != nil {
		return err
	}
	if !c.dropAgent(agentID) {
		return types.Errorf(types.ErrAgentNotFound, "agent %s not found", agentID)
	}

	if fab, _ := c.components(); fab != nil {
		fab.UnregisterAgent(agentID)
	}

	c.logger.Info("agent removed", zap.String("agent_id", agentID))
	c.bus.Publish(events.AgentRemoved{AgentID: agentID, Timestamp: c.now()})
	return nil
}

func (c *Coordinator) dropAgent(agentID string) bool {
	c.agentsMu.Lock()
	defer c.agentsMu.Unlock()

	if _, ok := c.agents[agentID]; !ok {
		return false
	}
	delete(c.agents, agentID)
	for i, id := range c.agentOrder {
		if id == agentID {
			c.agentOrder = append(c.agentOrder[:i], c.agentOrder[i+1:]...)
			break
		}
	}
	return true
}

// Heartbeat records liveness for an agent. An offline agent comes back as
// idle, or busy if it still carries load.
func (c *Coordinator) Heartbeat(ctx context.Context, agentID string) (Agent, error) {
	if err := c.ensureInitialized(ctx); err != nil {
		return Agent{}, err
	}

	c.agentsMu.Lock()
	agent, ok := c.agents[agentID]
	if !ok {
		c.agentsMu.Unlock()
		return Agent{}, types.Errorf(types.ErrAgentNotFound, "agent %s not found", agentID)
	}
	agent.LastActive = c.now()
	revived := agent.Status == AgentOffline
	if revived {
		agent.Status = statusForLoad(agent.Load)
	}
	snapshot := agent.clone()
	c.agentsMu.Unlock()

	if revived {
		c.logger.Info("agent back online", zap.String("agent_id", agentID), zap.Int("load", snapshot.Load))
	}
	return snapshot, nil
}

// Agent returns a snapshot of one agent.
func (c *Coordinator) Agent(agentID string) (Agent, error) {
	c.agentsMu.RLock()
	defer c.agentsMu.RUnlock()

	agent, ok := c.agents[agentID]
	if !ok {
		return Agent{}, types.Errorf(types.ErrAgentNotFound, "agent %s not found", agentID)
	}
	return agent.clone(), nil
}

// Agents returns snapshots of all agents in registration order.
func (c *Coordinator) Agents() []Agent {
	c.agentsMu.RLock()
	defer c.agentsMu.RUnlock()

	out := make([]Agent, 0, len(c.agentOrder))
	for _, id := range c.agentOrder {
		out = append(out, c.agents[id].clone())
	}
	return out
}

// =============================================================================
// Tasks
// =============================================================================

// AssignTask selects one eligible agent under the configured policy and
// records the task as assigned. An agent is eligible when it is not
// offline, its load is below MaxAgentLoad, and its capabilities cover the
// task's. Each selected agent is notified through the fabric on a
// best-effort basis; a failed notification does not undo the assignment.
func (c *Coordinator) AssignTask(ctx context.Context, spec TaskSpec) (_ Task, err error) {
	ctx, span := c.ins.start(ctx, "swarm.assign_task",
		attribute.StringSlice("task.required_capabilities", spec.RequiredCapabilities),
		attribute.String("swarm.load_balancing", string(c.balancer.Policy())),
	)
	defer func() { finish(span, err) }()

	required, err := NewCapabilitySet(spec.RequiredCapabilities...)
	if err != nil {
		return Task{}, err
	}
	if err := c.ensureInitialized(ctx); err != nil {
		return Task{}, err
	}
	if spec.ID == "" {
		spec.ID = uuid.New().String()
	}

	c.agentsMu.Lock()
	c.tasksMu.Lock()

	if _, exists := c.tasks[spec.ID]; exists {
		c.tasksMu.Unlock()
		c.agentsMu.Unlock()
		return Task{}, types.Errorf(types.ErrDuplicateTask, "task %s already exists", spec.ID)
	}

	candidates := c.suitableAgentsLocked(required)
	if len(candidates) == 0 {
		c.tasksMu.Unlock()
		c.agentsMu.Unlock()
		c.ins.rejections.Add(ctx, 1)
		return Task{}, types.Errorf(types.ErrNoSuitableAgents,
			"no agent offers %v under load %d", required.Strings(), c.config.MaxAgentLoad)
	}

	selected := c.balancer.Select(candidates, 1)
	assigned := make([]string, 0, len(selected))
	for _, s := range selected {
		agent := c.agents[s.ID]
		agent.Load = min(agent.Load+LoadStep, MaxLoad)
		agent.Status = AgentBusy
		assigned = append(assigned, agent.ID)
	}

	task := &Task{
		ID:                   spec.ID,
		Description:          spec.Description,
		RequiredCapabilities: required,
		Priority:             spec.Priority,
		Payload:              spec.Payload,
		AssignedAgents:       assigned,
		Status:               TaskAssigned,
		StartTime:            c.now(),
	}
	c.tasks[task.ID] = task
	c.taskOrder = append(c.taskOrder, task.ID)
	snapshot := task.clone()

	c.tasksMu.Unlock()
	c.agentsMu.Unlock()

	span.SetAttributes(
		attribute.String("task.id", task.ID),
		attribute.StringSlice("task.assigned_agents", assigned),
	)
	c.ins.assignments.Add(ctx, 1, metric.WithAttributes(
		attribute.String("policy", string(c.balancer.Policy())),
	))
	c.logger.Info("task assigned",
		zap.String("task_id", task.ID),
		zap.Strings("agents", assigned),
	)
	c.bus.Publish(events.TaskAssigned{
		TaskID:               task.ID,
		AgentIDs:             assigned,
		RequiredCapabilities: required.Strings(),
		Timestamp:            snapshot.StartTime,
	})

	c.notifyAssignment(ctx, snapshot)
	return snapshot, nil
}

// suitableAgentsLocked returns eligible agent snapshots in registry order.
// Callers hold agentsMu.
func (c *Coordinator) suitableAgentsLocked(required CapabilitySet) []Agent {
	var out []Agent
	for _, id := range c.agentOrder {
		agent := c.agents[id]
		if agent.Status == AgentOffline {
			continue
		}
		if agent.Load >= c.config.MaxAgentLoad {
			continue
		}
		if !agent.Capabilities.Contains(required) {
			continue
		}
		out = append(out, *agent)
	}
	return out
}

func (c *Coordinator) notifyAssignment(ctx context.Context, task Task) {
	fab, _ := c.components()
	if fab == nil {
		return
	}
	payload := TaskAssignment{
		TaskID:               task.ID,
		Description:          task.Description,
		RequiredCapabilities: task.RequiredCapabilities.Strings(),
		Priority:             task.Priority,
		Payload:              task.Payload,
	}
	for _, agentID := range task.AssignedAgents {
		if _, err := fab.SendTo(ctx, CoordinatorID, agentID, fabric.KindTaskAssignment, payload); err != nil {
			c.logger.Warn("task notification failed",
				zap.String("task_id", task.ID),
				zap.String("agent_id", agentID),
				zap.Error(err),
			)
		}
	}
}

// CompleteTask marks a task completed with result and releases the load it
// placed on its agents.
func (c *Coordinator) CompleteTask(ctx context.Context, taskID string, result any) (Task, error) {
	return c.finishTask(ctx, taskID, TaskCompleted, result, "")
}

// FailTask marks a task failed with reason and releases its load.
func (c *Coordinator) FailTask(ctx context.Context, taskID, reason string) (Task, error) {
	return c.finishTask(ctx, taskID, TaskFailed, nil, reason)
}

func (c *Coordinator) finishTask(ctx context.Context, taskID string, status TaskStatus, result any, reason string) (_ Task, err error) {
	ctx, span := c.ins.start(ctx, "swarm.finish_task",
		attribute.String("task.id", taskID),
		attribute.String("task.status", string(status)),
	)
	defer func() { finish(span, err) }()

	if err := c.ensureInitialized(ctx); err != nil {
		return Task{}, err
	}

	c.agentsMu.Lock()
	c.tasksMu.Lock()

	task, ok := c.tasks[taskID]
	if !ok {
		c.tasksMu.Unlock()
		c.agentsMu.Unlock()
		return Task{}, types.Errorf(types.ErrTaskNotFound, "task %s not found", taskID)
	}
	if task.Status.IsFinished() {
		current := task.Status
		c.tasksMu.Unlock()
		c.agentsMu.Unlock()
		return Task{}, types.Errorf(types.ErrTaskNotActive, "task %s is already %s", taskID, current)
	}

	task.Status = status
	task.EndTime = c.now()
	task.Result = result
	task.Error = reason

	for _, agentID := range task.AssignedAgents {
		agent, ok := c.agents[agentID]
		if !ok {
			// agent 已被移除，任务保留原 id
			continue
		}
		agent.Load = max(agent.Load-LoadStep, 0)
		if agent.Status != AgentOffline {
			agent.Status = statusForLoad(agent.Load)
		}
	}
	snapshot := task.clone()

	c.tasksMu.Unlock()
	c.agentsMu.Unlock()

	c.ins.taskDuration.Record(ctx, snapshot.EndTime.Sub(snapshot.StartTime).Seconds(),
		metric.WithAttributes(attribute.String("status", string(status))))
	c.logger.Info("task finished",
		zap.String("task_id", taskID),
		zap.String("status", string(status)),
		zap.Duration("duration", snapshot.EndTime.Sub(snapshot.StartTime)),
	)
	c.bus.Publish(events.TaskCompleted{
		TaskID:    taskID,
		Status:    string(status),
		AgentIDs:  snapshot.AssignedAgents,
		Timestamp: snapshot.EndTime,
	})
	return snapshot, nil
}

// Task returns a snapshot of one task.
func (c *Coordinator) Task(taskID string) (Task, error) {
	c.tasksMu.RLock()
	defer c.tasksMu.RUnlock()

	task, ok := c.tasks[taskID]
	if !ok {
		return Task{}, types.Errorf(types.ErrTaskNotFound, "task %s not found", taskID)
	}
	return task.clone(), nil
}

// Tasks returns snapshots of all tasks in creation order.
func (c *Coordinator) Tasks() []Task {
	c.tasksMu.RLock()
	defer c.tasksMu.RUnlock()

	out := make([]Task, 0, len(c.taskOrder))
	for _, id := range c.taskOrder {
		out = append(out, c.tasks[id].clone())
	}
	return out
}

func statusForLoad(load int) AgentStatus {
	if load == 0 {
		return AgentIdle
	}
	return AgentBusy
}

// =============================================================================
// Consensus
// =============================================================================

// ProposeAction opens a proposal whose electorate is the agents currently
// not offline, then broadcasts it to the swarm when communication is
// enabled. A failed broadcast is logged; the proposal stays open.
func (c *Coordinator) ProposeAction(ctx context.Context, description string, value any, proposerID string) (_ consensus.Proposal, err error) {
	ctx, span := c.ins.start(ctx, "swarm.propose_action", attribute.String("proposal.proposer_id", proposerID))
	defer func() { finish(span, err) }()

	engine, err := c.consensusEngine(ctx)
	if err != nil {
		return consensus.Proposal{}, err
	}

	proposal, err := engine.Propose(ctx, consensus.Proposal{
		ProposerID:     proposerID,
		Description:    description,
		Value:          value,
		ExpectedVoters: c.activeAgentCount(),
	})
	if err != nil {
		return consensus.Proposal{}, err
	}
	span.SetAttributes(attribute.String("proposal.id", proposal.ID))

	if fab, _ := c.components(); fab != nil {
		if _, err := fab.Broadcast(ctx, proposerID, fabric.KindConsensusProposal, proposal); err != nil {
			c.logger.Warn("proposal broadcast failed",
				zap.String("proposal_id", proposal.ID),
				zap.Error(err),
			)
		}
	}
	return proposal, nil
}

// Vote records agentID's ballot. The returned result is non-nil when this
// ballot resolved the proposal.
func (c *Coordinator) Vote(ctx context.Context, proposalID, agentID string, approve bool, reasoning string) (_ *consensus.Result, err error) {
	ctx, span := c.ins.start(ctx, "swarm.vote",
		attribute.String("proposal.id", proposalID),
		attribute.String("agent.id", agentID),
		attribute.Bool("vote.approve", approve),
	)
	defer func() { finish(span, err) }()

	engine, err := c.consensusEngine(ctx)
	if err != nil {
		return nil, err
	}
	return engine.Vote(ctx, consensus.Vote{
		ProposalID: proposalID,
		VoterID:    agentID,
		Approve:    approve,
		Reasoning:  reasoning,
	})
}

// WaitForConsensus waits for a proposal to resolve and returns the approved
// value, or nil when rejected. A CONSENSUS_TIMEOUT error means only this wait
// ended; the proposal may still resolve.
func (c *Coordinator) WaitForConsensus(ctx context.Context, proposalID string, timeout time.Duration) (_ any, err error) {
	ctx, span := c.ins.start(ctx, "swarm.wait_for_consensus", attribute.String("proposal.id", proposalID))
	defer func() { finish(span, err) }()

	engine, err := c.consensusEngine(ctx)
	if err != nil {
		return nil, err
	}
	result, err := engine.WaitForResult(ctx, proposalID, timeout)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Bool("proposal.approved", result.Approved))
	if !result.Approved {
		return nil, nil
	}
	return result.Value, nil
}

// ConsensusResult returns the stored result of a resolved proposal.
func (c *Coordinator) ConsensusResult(proposalID string) (*consensus.Result, bool) {
	_, engine := c.components()
	if engine == nil {
		return nil, false
	}
	return engine.Result(proposalID)
}

func (c *Coordinator) activeAgentCount() int {
	c.agentsMu.RLock()
	defer c.agentsMu.RUnlock()

	n := 0
	for _, agent := range c.agents {
		if agent.Status != AgentOffline {
			n++
		}
	}
	return n
}

// =============================================================================
// Messaging
// =============================================================================

// SendMessage delivers payload from one agent to another.
func (c *Coordinator) SendMessage(ctx context.Context, from, to string, payload any) (*fabric.Message, error) {
	fab, err := c.commFabric(ctx)
	if err != nil {
		return nil, err
	}
	return fab.SendTo(ctx, from, to, fabric.KindDirect, payload)
}

// Broadcast delivers payload to every agent except from and returns how
// many received it.
func (c *Coordinator) Broadcast(ctx context.Context, from string, payload any) (int, error) {
	fab, err := c.commFabric(ctx)
	if err != nil {
		return 0, err
	}
	return fab.Broadcast(ctx, from, fabric.KindBroadcast, payload)
}

// Request sends payload and waits up to timeout for the correlated reply.
func (c *Coordinator) Request(ctx context.Context, from, to string, payload any, timeout time.Duration) (*fabric.Message, error) {
	fab, err := c.commFabric(ctx)
	if err != nil {
		return nil, err
	}
	return fab.Request(ctx, from, to, fabric.KindRequest, payload, timeout)
}

// Reply answers a request received by from.
func (c *Coordinator) Reply(ctx context.Context, request *fabric.Message, from string, payload any) error {
	fab, err := c.commFabric(ctx)
	if err != nil {
		return err
	}
	return fab.Reply(ctx, request, from, payload)
}

// Receive blocks until a message arrives for agentID.
func (c *Coordinator) Receive(ctx context.Context, agentID string) (*fabric.Message, error) {
	fab, err := c.commFabric(ctx)
	if err != nil {
		return nil, err
	}
	return fab.Receive(ctx, agentID)
}

// =============================================================================
// Observability
// =============================================================================

// Statistics aggregates registry, fabric and consensus counters. It has no
// side effects and never initializes the coordinator.
func (c *Coordinator) Statistics() Statistics {
	c.stateMu.RLock()
	stats := Statistics{State: c.state, SessionID: c.sessionID}
	fab, engine := c.fabric, c.engine
	c.stateMu.RUnlock()

	c.agentsMu.RLock()
	totalLoad, active := 0, 0
	for _, agent := range c.agents {
		stats.Agents.Total++
		switch agent.Status {
		case AgentIdle:
			stats.Agents.Idle++
		case AgentBusy:
			stats.Agents.Busy++
		case AgentOffline:
			stats.Agents.Offline++
			continue
		}
		totalLoad += agent.Load
		active++
	}
	c.agentsMu.RUnlock()
	if active > 0 {
		stats.AverageLoad = float64(totalLoad) / float64(active)
	}

	c.tasksMu.RLock()
	for _, task := range c.tasks {
		stats.Tasks.Total++
		switch task.Status {
		case TaskPending:
			stats.Tasks.Pending++
		case TaskAssigned:
			stats.Tasks.Assigned++
		case TaskInProgress:
			stats.Tasks.InProgress++
		case TaskCompleted:
			stats.Tasks.Completed++
		case TaskFailed:
			stats.Tasks.Failed++
		}
	}
	c.tasksMu.RUnlock()

	if fab != nil {
		stats.Fabric = fab.Statistics()
	}
	if engine != nil {
		stats.Consensus = engine.Statistics()
	}
	return stats
}

// =============================================================================
// Event bridges
// =============================================================================

func (c *Coordinator) onMessage(msg *fabric.Message) {
	c.bus.Publish(events.AgentMessage{
		MessageID:     msg.ID,
		From:          msg.From,
		To:            msg.To,
		MessageKind:   string(msg.Kind),
		CorrelationID: msg.CorrelationID,
		Timestamp:     msg.Timestamp,
	})
}

func (c *Coordinator) onRegister(agentID string) {
	c.ins.channels.Add(context.Background(), 1)
	c.logger.Debug("agent channel registered", zap.String("agent_id", agentID))
}

func (c *Coordinator) onProposal(p consensus.Proposal) {
	c.bus.Publish(events.ConsensusProposal{
		ProposalID:  p.ID,
		ProposerID:  p.ProposerID,
		Description: p.Description,
		Timestamp:   p.CreatedAt,
	})
}

func (c *Coordinator) onVote(v consensus.Vote) {
	c.bus.Publish(events.ConsensusVote{
		ProposalID: v.ProposalID,
		VoterID:    v.VoterID,
		Approve:    v.Approve,
		Timestamp:  v.CastAt,
	})
}

func (c *Coordinator) onResolved(r consensus.Result) {
	c.bus.Publish(events.ConsensusResult{
		ProposalID:   r.ProposalID,
		Approved:     r.Approved,
		ApproveCount: r.Tally.Approve,
		RejectCount:  r.Tally.Reject,
		Expected:     r.Tally.Expected,
		Reason:       string(r.Reason),
		Timestamp:    r.ResolvedAt,
	})
}

// runtimeError tags a runtime failure with RUNTIME_FAILURE unless it already
// carries a code.
func runtimeError(op string, err error) error {
	if _, ok := types.AsError(err); ok {
		return err
	}
	return types.Errorf(types.ErrRuntimeFailure, "%s failed", op).WithCause(err)
}

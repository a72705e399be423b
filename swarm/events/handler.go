package events

// Handler receives typed swarm events. Adding a variant to this package adds
// a method here, so every implementation is forced to account for it.
type Handler interface {
	OnSwarmInitialized(SwarmInitialized)
	OnSwarmShutdown(SwarmShutdown)
	OnAgentAdded(AgentAdded)
	OnAgentRemoved(AgentRemoved)
	OnAgentTimeout(AgentTimeout)
	OnTaskAssigned(TaskAssigned)
	OnTaskCompleted(TaskCompleted)
	OnConsensusProposal(ConsensusProposal)
	OnConsensusVote(ConsensusVote)
	OnConsensusResult(ConsensusResult)
	OnAgentMessage(AgentMessage)
}

// NopHandler ignores every event. Embed it to implement only the methods
// an observer cares about.
type NopHandler struct{}

func (NopHandler) OnSwarmInitialized(SwarmInitialized)   {}
func (NopHandler) OnSwarmShutdown(SwarmShutdown)         {}
func (NopHandler) OnAgentAdded(AgentAdded)               {}
func (NopHandler) OnAgentRemoved(AgentRemoved)           {}
func (NopHandler) OnAgentTimeout(AgentTimeout)           {}
func (NopHandler) OnTaskAssigned(TaskAssigned)           {}
func (NopHandler) OnTaskCompleted(TaskCompleted)         {}
func (NopHandler) OnConsensusProposal(ConsensusProposal) {}
func (NopHandler) OnConsensusVote(ConsensusVote)         {}
func (NopHandler) OnConsensusResult(ConsensusResult)     {}
func (NopHandler) OnAgentMessage(AgentMessage)           {}

// ObserverFunc adapts a single function to Handler for observers that treat
// all variants uniformly (loggers, publishers, stream forwarders).
type ObserverFunc func(Event)

func (f ObserverFunc) OnSwarmInitialized(e SwarmInitialized)   { f(e) }
func (f ObserverFunc) OnSwarmShutdown(e SwarmShutdown)         { f(e) }
func (f ObserverFunc) OnAgentAdded(e AgentAdded)               { f(e) }
func (f ObserverFunc) OnAgentRemoved(e AgentRemoved)           { f(e) }
func (f ObserverFunc) OnAgentTimeout(e AgentTimeout)           { f(e) }
func (f ObserverFunc) OnTaskAssigned(e TaskAssigned)           { f(e) }
func (f ObserverFunc) OnTaskCompleted(e TaskCompleted)         { f(e) }
func (f ObserverFunc) OnConsensusProposal(e ConsensusProposal) { f(e) }
func (f ObserverFunc) OnConsensusVote(e ConsensusVote)         { f(e) }
func (f ObserverFunc) OnConsensusResult(e ConsensusResult)     { f(e) }
func (f ObserverFunc) OnAgentMessage(e AgentMessage)           { f(e) }

// Filter forwards only events whose kind is listed.
func Filter(h Handler, kinds ...Kind) Handler {
	allowed := make(map[Kind]struct{}, len(kinds))
	for _, k := range kinds {
		allowed[k] = struct{}{}
	}
	return ObserverFunc(func(e Event) {
		if _, ok := allowed[e.Kind()]; ok {
			e.dispatch(h)
		}
	})
}

var (
	_ Handler = NopHandler{}
	_ Handler = ObserverFunc(nil)
)

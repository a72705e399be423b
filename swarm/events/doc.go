// Package events defines the closed set of typed swarm events and the
// observer plumbing around them.
//
// Each variant (AgentAdded, TaskAssigned, ConsensusResult, ...) routes itself
// to one method of Handler, so observers are checked by the compiler instead
// of matching on event-name strings. Bus fans events out synchronously;
// ObserverFunc adapts uniform observers; RedisPublisher forwards JSON
// envelopes to a Redis pub/sub channel for dashboards.
package events

// Package consensus 实现提案投票的完整生命周期。
//
// 提案创建后处于 OPEN 状态，由 Strategy 在每次投票时同步评估，
// 一旦达到法定比例即 APPROVED，若剩余选票已无法达到法定比例或提案超时则 REJECTED。
// 每个提案只会被决议一次；WaitForResult 通过决议信号唤醒等待者，不做轮询。
//
// 默认策略 MAJORITY_VOTE：
//
//	投票数 < MinParticipants          -> 继续等待
//	approve / cast * 100 >= Quorum    -> 通过
//	最优情况仍 < Quorum               -> 否决
package consensus

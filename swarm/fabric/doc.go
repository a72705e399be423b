// Package fabric 提供 agent 之间的消息通道。
//
// 每个注册的 agent 拥有一个有界邮箱，发送方永不阻塞：邮箱已满时消息被丢弃并计数。
// 支持点对点发送、排除发送方的广播，以及基于 correlation id 的请求/响应，
// 每个请求只接受第一个回复，超时后的迟到回复会被记录并忽略。
package fabric

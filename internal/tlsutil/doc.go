// Package tlsutil 提供 swarmd 出站连接的 TLS 配置：
// Redis 事件发布器（events.redis.tls）与 health 子命令探测 https 地址。
// 安全加固：TLS 1.2+，仅 AEAD 密码套件。
package tlsutil

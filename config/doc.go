// Package config 提供 swarmd 的配置管理功能。
//
// 包含配置加载（默认值 → YAML → SWARMFLOW_* 环境变量）、校验，
// 以及基于文件轮询的配置热重载。
package config

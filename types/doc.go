// Copyright (c) SwarmFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 SwarmFlow 各包共享的错误类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包。swarm、fabric、consensus、
api 等上层模块通过统一的 ErrorCode 表达调用方可见的失败条件，
从而避免循环依赖，也让 HTTP 层可以按错误码映射状态码。

# 错误分类

  - 未找到：AGENT_NOT_FOUND / TASK_NOT_FOUND / RECIPIENT_NOT_FOUND / PROPOSAL_NOT_FOUND
  - 容量与时序：NO_SUITABLE_AGENTS / REQUEST_TIMEOUT / CONSENSUS_TIMEOUT / RATE_LIMITED
  - 协议违规：PROPOSAL_NOT_OPEN / DUPLICATE_PROPOSAL / DUPLICATE_VOTE / TASK_NOT_ACTIVE
  - 配置与生命周期：COMMUNICATION_DISABLED / INVALID_CAPABILITY / RUNTIME_FAILURE 等

# 主要能力

  - Error 支持 errors.Is（按错误码匹配）、errors.As 与 Unwrap
  - 错误工具链：AsError / IsErrorCode / GetErrorCode / IsRetryable
  - 时序类错误默认标记为 Retryable，调用方可按常规分支处理
*/
package types

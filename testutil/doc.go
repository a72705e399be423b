// 版权所有 2026 SwarmFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package testutil 提供 SwarmFlow 测试的共享工具和辅助函数。

# 概述

testutil 包为整个项目的单元测试提供统一的辅助能力，
避免各包重复实现相似的测试基础设施。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 断言工具: AssertErrorCode / AssertJSONEqual
  - 异步断言: AssertEventuallyTrue / AssertEventuallyEqual，
    支持超时轮询等待条件满足
  - 时间辅助: WaitFor / WaitForChannel / ManualClock
  - 事件辅助: EventRecorder 可直接订阅到 events.Bus

# 子包

  - testutil/mocks: MockRuntime（agent 运行时），支持错误注入与调用记录
  - testutil/fixtures: 预置的 agent 配置与任务样例

# 使用示例

	ctx := testutil.TestContext(t)
	rt := mocks.NewMockRuntime()
	coord, _ := swarm.New(swarm.DefaultConfig(), rt, zap.NewNop())
	_, err := coord.AddAgent(ctx, fixtures.AnalysisAgent("a1"))
	testutil.AssertErrorCode(t, err, types.ErrRuntimeFailure)
*/
package testutil

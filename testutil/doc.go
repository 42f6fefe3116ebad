// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供记忆存储测试的共享工具和辅助函数。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 向量工具: Vector 生成确定性的单位向量，OneHot 生成坐标轴向量
  - 断言工具: AssertJSONEqual / AssertEventuallyTrue
  - 数据工具: MustJSON / MustParseJSON

# 子包

  - testutil/mocks: MockStore，包装内存 CollectionStore，支持按方法
    注入错误并记录调用次数
  - testutil/fixtures: 记忆、智能体、房间、实体的测试数据工厂

# 使用示例

	ctx := testutil.TestContext(t)
	s := mocks.NewMockStore().WithSetError(errors.New("disk full"))
	_, err := adapter.CreateMemory(ctx, fixtures.TextMemory("hi"), "messages", false)
*/
package testutil

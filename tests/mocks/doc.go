// Package mocks 提供测试用的 Host 与 EventBus 替身
//
// 每个 Mock 都支持通过 XxxFunc 字段注入自定义行为，未注入时使用
// 可预测的默认行为；关键方法记录调用历史，便于断言。
//
//	h := mocks.NewMockHost("node-a")
//	h.BindAnyFunc = func(pkgif.PortHandler) (uint64, error) {
//	    return 0, errors.New("no ports")
//	}
//
//	_, err := channel.NewInput(h, 0)
//	// err != nil, len(h.BindCalls) == 0
package mocks

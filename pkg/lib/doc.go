// Package lib 包含基础设施工具库
//
// 本目录包含与架构组件无关的通用工具库：
//
//   - log: 日志封装（基于 log/slog 的子系统 logger）
//   - proto: 网络消息定义（链路信封与名称服务消息）
//
// # 与 pkg/ 其他目录的关系
//
// pkg/ 目录包含三类内容：
//
//   - interfaces/: 组件公共接口（架构核心）
//   - types/: 公共类型定义（架构核心）
//   - lib/: 基础设施工具库（本目录）
//
// # 使用示例
//
//	import (
//	    "github.com/dep2p/go-cns/pkg/lib/log"
//	    cnspb "github.com/dep2p/go-cns/pkg/lib/proto/cns"
//	)
package lib

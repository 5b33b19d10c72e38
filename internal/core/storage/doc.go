// Package storage 提供名称服务的租约存储
//
// 租约是"只保留名称、尚未绑定位置"的注册，必须能跨名称服务重启保留，
// 否则持有租约的一方在服务重启后无法完成迁移。
//
// # 后端
//
//   - memory: 进程内 map，默认后端
//   - badger: BadgerDB 持久化，键前缀 /cns/lease/
//
// # 使用示例
//
//	store, err := storage.Open(storage.Config{Backend: "badger", Path: "./data/cns.db"})
//	defer store.Close()
//
//	err = store.Put(storage.Lease{Name: "svc.echo", Level: types.Global, Key: key})
//	leases, err := store.List()
package storage

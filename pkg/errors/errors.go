package errors

import "errors"

// ErrStoreWrite 存储写入失败（数据库事务或持久化文件写入），内存状态保持不变
var ErrStoreWrite = errors.New("课表存储写入失败")

// ErrStoreCorrupt 持久化文件内容无法解析
var ErrStoreCorrupt = errors.New("课表存储文件已损坏")

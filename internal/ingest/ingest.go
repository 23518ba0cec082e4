// Package ingest 将格式松散的 CSV/XLSX 课表解析为标准化的课程场次列表。
//
// 流程：ReadTable（字节 → 单元格二维表）→ ResolveHeader（首行识别列角色）
// → Normalizer.NormalizeRow（逐行清洗、纠错、多时段展开）→ Ingest（汇总并编号）。
//
// 表头错误立即终止；行级错误静默丢弃，只看汇总结果。
package ingest

import (
	"errors"
	"fmt"

	"github.com/davimluiz/painelalunosvercel/internal/model"
)

var (
	// ErrEmptySource 数据源少于两行（表头 + 至少一行数据），或没有任何有效行
	ErrEmptySource = errors.New("数据源为空")
	// ErrNoValidRecords 表头识别成功但没有任何有效行
	ErrNoValidRecords = fmt.Errorf("%w: 未找到有效的课程记录", ErrEmptySource)
)

// Options 导入选项
type Options struct {
	RoomPrefix string
}

// DefaultOptions 默认导入选项
func DefaultOptions() Options {
	return Options{RoomPrefix: DefaultRoomPrefix}
}

// Ingest 将完整二维表（第 0 行为表头）转为课程场次列表
//
// 返回的记录按源行顺序编号 Order = 0..N-1，ID 留空由存储层分配。
func Ingest(table [][]string, opts Options) ([]model.ClassSession, error) {
	if len(table) < 2 {
		return nil, ErrEmptySource
	}

	cols, err := ResolveHeader(table[0])
	if err != nil {
		return nil, err
	}

	n := NewNormalizer(opts.RoomPrefix)
	sessions := make([]model.ClassSession, 0, len(table)-1)
	for _, row := range table[1:] {
		for _, s := range n.NormalizeRow(row, cols) {
			s.Order = len(sessions)
			sessions = append(sessions, s)
		}
	}

	if len(sessions) == 0 {
		return nil, ErrNoValidRecords
	}
	return sessions, nil
}

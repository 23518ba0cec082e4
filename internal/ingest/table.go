package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnreadableTable 文件内容无法解析为表格
var ErrUnreadableTable = errors.New("无法解析表格文件")

var (
	utf8BOM  = []byte("\xef\xbb\xbf")
	zipMagic = []byte("PK\x03\x04")
)

// ReadTable 将 CSV 或 XLSX 内容读取为单元格二维表
// 依据扩展名或 ZIP 文件头判断是否为工作簿，工作簿只读取第一个工作表
func ReadTable(r io.Reader, filename string) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableTable, err)
	}
	if isWorkbook(filename, data) {
		return readWorkbook(data)
	}
	return readDelimited(data)
}

func isWorkbook(filename string, data []byte) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return true
	case ".csv", ".txt":
		return false
	}
	return bytes.HasPrefix(data, zipMagic)
}

// readWorkbook 读取首个工作表的原始单元格值
// 使用 RawCellValue，日期保留为序列号，由行规范化阶段统一转换
func readWorkbook(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableTable, err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("%w: 工作簿中没有工作表", ErrUnreadableTable)
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: 读取工作表失败: %v", ErrUnreadableTable, err)
	}
	return rows, nil
}

// readDelimited 读取分隔文本：表头行含 ';' 时按 ';' 分隔，否则按 ','
func readDelimited(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = DetectSeparator(data)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnreadableTable, err)
		}
		if blankRecord(record) {
			continue
		}
		rows = append(rows, record)
	}
	return rows, nil
}

// DetectSeparator 根据首个非空行判断分隔符
func DetectSeparator(data []byte) rune {
	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if bytes.ContainsRune(line, ';') {
			return ';'
		}
		return ','
	}
	return ','
}

func blankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

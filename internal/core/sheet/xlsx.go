package sheet

import (
	"bytes"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

var zipMagic = []byte("PK\x03\x04")

// IsWorkbook 以內容判斷是否為 XLSX 活頁簿
func IsWorkbook(data []byte) bool {
	return bytes.HasPrefix(data, zipMagic)
}

// ReadWorkbook 依工作表順序讀出所有工作表的列
func ReadWorkbook(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in workbook")
	}

	var all [][]string
	for _, name := range sheets {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
		}
		all = append(all, rows...)
	}
	return all, nil
}

// Parse 解析價目表檔案內容，自動判斷 XLSX 或分隔文字
func Parse(data []byte) (ParseReport, error) {
	if IsWorkbook(data) {
		rows, err := ReadWorkbook(bytes.NewReader(data))
		if err != nil {
			return ParseReport{}, err
		}
		return ParseRows(rows), nil
	}
	return ParseSupplierText(DecodeText(data)), nil
}

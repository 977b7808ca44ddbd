// Package sheet 將供應商匯出的價目表（CSV / XLSX）轉為匯入列。
package sheet

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeText 將原始位元組轉為文字：移除 UTF-8 BOM，
// 非合法 UTF-8 時以 Windows-1252 解碼
func DecodeText(data []byte) string {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data)
	}

	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "�")
	}
	return string(decoded)
}

// DetectDelimiter 依第一個非空白行（引號外）的分隔符數量選擇 `,`、`;` 或 tab
func DetectDelimiter(text string) rune {
	counts := map[rune]int{}
	inQuotes := false
	seen := false

	for _, ch := range text {
		if ch == '"' {
			inQuotes = !inQuotes
			continue
		}
		if inQuotes {
			continue
		}
		if ch == '\n' || ch == '\r' {
			if seen {
				break
			}
			continue
		}
		if ch != ' ' && ch != '\t' {
			seen = true
		}
		switch ch {
		case ',', ';', '\t':
			counts[ch]++
		}
	}

	best := ','
	for _, candidate := range []rune{';', '\t'} {
		if counts[candidate] > counts[best] {
			best = candidate
		}
	}
	return best
}

// ParseDelimited 以字元狀態機將分隔文字拆成列與儲存格。
//
// 引號外的 `"` 開始引用，引用內的 `""` 代表一個 `"`；
// `\n`、`\r\n` 與單獨的 `\r` 結束一列。結尾未關閉的引號視為一般內容。
func ParseDelimited(text string, delim rune) [][]string {
	var (
		rows     [][]string
		row      []string
		current  strings.Builder
		inQuotes bool
	)

	endCell := func() {
		row = append(row, current.String())
		current.Reset()
	}
	endRow := func() {
		endCell()
		rows = append(rows, row)
		row = nil
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]

		if inQuotes {
			if ch == '"' {
				if i+1 < len(runes) && runes[i+1] == '"' {
					current.WriteRune('"')
					i++
				} else {
					inQuotes = false
				}
			} else {
				current.WriteRune(ch)
			}
			continue
		}

		switch ch {
		case '"':
			inQuotes = true
		case delim:
			endCell()
		case '\n':
			endRow()
		case '\r':
			if i+1 < len(runes) && runes[i+1] == '\n' {
				i++
			}
			endRow()
		default:
			current.WriteRune(ch)
		}
	}

	if current.Len() > 0 || len(row) > 0 {
		endRow()
	}

	return rows
}

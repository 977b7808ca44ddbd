// Package matching 提供供應商與產品名稱的比對鍵與相似度判斷。
package matching

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// KeySeparator 組合鍵分隔符
const KeySeparator = "::"

// minSimilarLength 參與相似度判斷的最短長度（以字元計）
const minSimilarLength = 4

// Normalize 產生大小寫、重音與標點無關的比對鍵。
//
// 步驟：去除首尾空白、轉小寫、NFD 分解並移除重音符號、
// 將每段非字母數字字元壓縮為單一空白，最後再去除首尾空白。
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err == nil {
		s = stripped
	}

	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
			continue
		}
		pendingSpace = true
	}
	return b.String()
}

// CompositeKey 組合兩段已正規化的鍵
func CompositeKey(left, right string) string {
	return left + KeySeparator + right
}

// NameKey 以兩個原始名稱建立組合鍵
func NameKey(left, right string) string {
	return CompositeKey(Normalize(left), Normalize(right))
}

// Equal 判斷兩個名稱在正規化後是否相同
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// LooksSimilar 判斷兩個名稱「可能相同但不完全相同」。
//
// 結果僅用來觸發人工確認，因此刻意偏向高召回率。
func LooksSimilar(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if utf8.RuneCountInString(na) < minSimilarLength || utf8.RuneCountInString(nb) < minSimilarLength {
		return false
	}
	if na == nb {
		return false
	}

	if containsWords(na, nb) || containsWords(nb, na) {
		return true
	}

	return sharesLongToken(na, nb) || sharesLongToken(nb, na)
}

// containsWords 判斷 needle 是否以完整單字的形式出現在 haystack 中
func containsWords(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	return strings.Contains(" "+haystack+" ", " "+needle+" ")
}

// sharesLongToken 判斷 from 中是否有長度足夠的單字完整出現在 in 中
func sharesLongToken(from, in string) bool {
	for _, token := range strings.Fields(from) {
		if utf8.RuneCountInString(token) < minSimilarLength {
			continue
		}
		if containsWords(in, token) {
			return true
		}
	}
	return false
}

// FirstSimilar 返回候選名稱中第一個與 name 相似的索引，沒有則為 -1
func FirstSimilar(name string, candidates []string) int {
	for i, candidate := range candidates {
		if LooksSimilar(name, candidate) {
			return i
		}
	}
	return -1
}

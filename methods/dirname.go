package methods

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/mozillazg/go-pinyin"
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// chineseToPinyin 汉字转为不带声调的拼音，其它字符原样保留
func chineseToPinyin(s string) string {
	a := pinyin.NewArgs()
	a.Style = pinyin.NORMAL
	a.Heteronym = false

	var b strings.Builder
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			if py := pinyin.SinglePinyin(r, a); len(py) > 0 {
				b.WriteString(py[0])
				continue
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SafeDirName 把地块编号转成可作目录名的 ASCII 字符串
func SafeDirName(id string) string {
	name := unsafeNameChars.ReplaceAllString(chineseToPinyin(strings.TrimSpace(id)), "_")
	name = strings.Trim(name, ".")
	if name == "" {
		return "_"
	}
	return name
}

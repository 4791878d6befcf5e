package schema

import (
	"regexp"
	"strings"

	"pg-ai-query/pkg/models"
)

var wordPattern = regexp.MustCompile(`[a-z0-9_]+(?:\.[a-z0-9_]+)?`)

// requestWords 요청 문장의 단어 집합. "schema.table"은 통째로, 그리고 부분별로 넣는다.
func requestWords(request string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range wordPattern.FindAllString(strings.ToLower(request), -1) {
		words[w] = true
		if i := strings.IndexByte(w, '.'); i >= 0 {
			words[w[:i]] = true
			words[w[i+1:]] = true
		}
	}
	return words
}

// singular 단순 영어 단수형
func singular(name string) string {
	switch {
	case strings.HasSuffix(name, "ss") || strings.HasSuffix(name, "us") || strings.HasSuffix(name, "is"):
		return name
	case strings.HasSuffix(name, "ies") && len(name) > 3:
		return name[:len(name)-3] + "y"
	case strings.HasSuffix(name, "ses") || strings.HasSuffix(name, "xes") || strings.HasSuffix(name, "ches") || strings.HasSuffix(name, "shes"):
		return name[:len(name)-2]
	case strings.HasSuffix(name, "s") && len(name) > 1:
		return name[:len(name)-1]
	}
	return name
}

// plural 단순 영어 복수형
func plural(name string) string {
	switch {
	case strings.HasSuffix(name, "y") && len(name) > 1 && !strings.ContainsRune("aeiou", rune(name[len(name)-2])):
		return name[:len(name)-1] + "ies"
	case strings.HasSuffix(name, "s") || strings.HasSuffix(name, "x") || strings.HasSuffix(name, "ch") || strings.HasSuffix(name, "sh"):
		return name + "es"
	}
	return name + "s"
}

// candidates 테이블이 요청에서 언급될 수 있는 형태
func candidates(t models.TableInfo) []string {
	name := strings.ToLower(t.TableName)
	out := []string{name, singular(name), plural(name)}
	if t.SchemaName != "" {
		out = append(out, strings.ToLower(t.SchemaName)+"."+name)
	}
	return out
}

// MatchTables 요청 문장에 이름이 단어로 등장하는 테이블. 입력 순서를 유지하고
// limit > 0이면 그 개수에서 멈춘다.
func MatchTables(request string, tables []models.TableInfo, limit int) []models.TableInfo {
	words := requestWords(request)
	var out []models.TableInfo
	for _, t := range tables {
		for _, c := range candidates(t) {
			if words[c] {
				out = append(out, t)
				break
			}
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

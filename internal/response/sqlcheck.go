package response

import (
	"fmt"
	"regexp"
	"strings"
)

type tokenKind int

const (
	tokenWord tokenKind = iota
	tokenPunct
	tokenLiteral
)

type token struct {
	kind  tokenKind
	text  string
	start int
	end   int
	depth int // 괄호 깊이
}

// scanSQL 주석을 건너뛰며 토큰 단위로 순회. fn이 false를 돌려주면 멈춘다.
func scanSQL(sql string, fn func(token) bool) {
	depth := 0
	i := 0
	for i < len(sql) {
		c := sql[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f':
			i++

		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			for i < len(sql) && sql[i] != '\n' {
				i++
			}

		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			// PostgreSQL 블록 주석은 중첩된다
			nest := 0
			for i < len(sql) {
				if sql[i] == '/' && i+1 < len(sql) && sql[i+1] == '*' {
					nest++
					i += 2
					continue
				}
				if sql[i] == '*' && i+1 < len(sql) && sql[i+1] == '/' {
					nest--
					i += 2
					if nest == 0 {
						break
					}
					continue
				}
				i++
			}

		case c == '\'' || c == '"':
			start := i
			i++
			for i < len(sql) {
				if sql[i] == c {
					if i+1 < len(sql) && sql[i+1] == c {
						i += 2
						continue
					}
					i++
					break
				}
				i++
			}
			kind := tokenLiteral
			if c == '"' {
				kind = tokenWord
			}
			if !fn(token{kind: kind, text: sql[start:i], start: start, end: i, depth: depth}) {
				return
			}

		case c == '$':
			start := i
			if tag, ok := dollarTag(sql[i:]); ok {
				end := strings.Index(sql[i+len(tag):], tag)
				if end < 0 {
					i = len(sql)
				} else {
					i += len(tag) + end + len(tag)
				}
				if !fn(token{kind: tokenLiteral, text: sql[start:i], start: start, end: i, depth: depth}) {
					return
				}
				continue
			}
			i++
			for i < len(sql) && isDigit(sql[i]) {
				i++
			}
			if !fn(token{kind: tokenPunct, text: sql[start:i], start: start, end: i, depth: depth}) {
				return
			}

		case isWordChar(c):
			start := i
			for i < len(sql) && isWordChar(sql[i]) {
				i++
			}
			if !fn(token{kind: tokenWord, text: sql[start:i], start: start, end: i, depth: depth}) {
				return
			}

		default:
			if c == ')' && depth > 0 {
				depth--
			}
			tok := token{kind: tokenPunct, text: sql[i : i+1], start: i, end: i + 1, depth: depth}
			if c == '(' {
				depth++
			}
			i++
			if !fn(tok) {
				return
			}
		}
	}
}

// dollarTag $$ 또는 $tag$ 시작이면 태그 반환
func dollarTag(s string) (string, bool) {
	if len(s) < 2 {
		return "", false
	}
	for j := 1; j < len(s); j++ {
		if s[j] == '$' {
			return s[:j+1], true
		}
		if !isWordChar(s[j]) || (j == 1 && isDigit(s[j])) {
			return "", false
		}
	}
	return "", false
}

func isWordChar(c byte) bool {
	return c == '_' || isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// IsReadOnly 공백과 주석을 건너뛴 첫 토큰이 SELECT인지
func IsReadOnly(sql string) bool {
	readOnly := false
	scanSQL(sql, func(t token) bool {
		readOnly = t.kind == tokenWord && strings.EqualFold(t.text, "select")
		return false
	})
	return readOnly
}

// IsSingleStatement 세미콜론 뒤에 주석이나 빈 문장 외의 토큰이 없는지.
// 괄호 깊이와 관계없이 모든 세미콜론을 문장 경계로 본다.
func IsSingleStatement(sql string) bool {
	single := true
	seenCode := false
	ended := false
	scanSQL(sql, func(t token) bool {
		if t.kind == tokenPunct && t.text == ";" {
			ended = seenCode || ended
			return true
		}
		if ended {
			single = false
			return false
		}
		seenCode = true
		return true
	})
	return single
}

// HasLimit 최상위 LIMIT 또는 FETCH FIRST/NEXT 절 존재 여부
func HasLimit(sql string) bool {
	found := false
	prevFetch := false
	scanSQL(sql, func(t token) bool {
		if t.depth != 0 || t.kind != tokenWord {
			prevFetch = false
			return true
		}
		word := strings.ToLower(t.text)
		if word == "limit" || (prevFetch && (word == "first" || word == "next")) {
			found = true
			return false
		}
		prevFetch = word == "fetch"
		return true
	})
	return found
}

// ApplyRowLimit 제한 없는 단일 읽기 전용 SELECT 끝에 LIMIT을 붙인다.
// 끝의 세미콜론과 주석은 유지한다.
func ApplyRowLimit(sql string, limit int) (string, bool) {
	if limit <= 0 || !IsReadOnly(sql) || !IsSingleStatement(sql) || HasLimit(sql) {
		return sql, false
	}

	codeEnd := 0
	lastSemicolon := -1
	scanSQL(sql, func(t token) bool {
		codeEnd = t.end
		if t.kind == tokenPunct && t.text == ";" {
			lastSemicolon = t.start
		} else {
			lastSemicolon = -1
		}
		return true
	})

	insertAt := codeEnd
	if lastSemicolon >= 0 {
		insertAt = lastSemicolon
	}
	head := strings.TrimRight(sql[:insertAt], " \t\r\n")
	return head + fmt.Sprintf(" LIMIT %d", limit) + sql[len(head):], true
}

var systemCatalogPattern = regexp.MustCompile(`(?i)\b(information_schema|pg_catalog)\s*\.`)

// TouchesSystemCatalog information_schema. 또는 pg_catalog. 참조 여부
func TouchesSystemCatalog(sql string) bool {
	return systemCatalogPattern.MatchString(sql)
}

var errorPhrases = []string{
	"cannot generate",
	"can't generate",
	"unable to generate",
	"could not generate",
	"i cannot",
	"i can't",
	"i'm unable",
	"i am unable",
	"not possible to",
	"does not exist in the schema",
	"no such table",
	"no matching table",
	"not enough information",
	"error:",
}

// LooksLikeError 설명이나 경고에 생성 실패를 나타내는 문구가 있는지
func LooksLikeError(explanation string, warnings []string) bool {
	texts := append([]string{explanation}, warnings...)
	for _, text := range texts {
		lower := strings.ToLower(text)
		for _, phrase := range errorPhrases {
			if strings.Contains(lower, phrase) {
				return true
			}
		}
	}
	return false
}

package config

import (
	"errors"
	"strings"
)

type lineKind int

const (
	lineSkip lineKind = iota
	lineSection
	lineKeyValue
	lineUnterminated // 닫히지 않은 따옴표. 해당 키만 건너뜀
)

type scannedLine struct {
	kind    lineKind
	section string
	key     string
	value   string
}

var (
	errMissingKey     = errors.New("expected key")
	errMissingEquals  = errors.New("expected '=' after key")
	errTrailingText   = errors.New("unexpected text after value")
	errQuoteInValue   = errors.New("quote character in unquoted value")
	errUnclosedHeader = errors.New("section header missing ']'")
)

// scanLine 한 줄을 섹션 헤더, key=value, 건너뛸 줄 중 하나로 분류
func scanLine(raw string) (scannedLine, error) {
	line := strings.TrimSuffix(raw, "\r")
	line = strings.Trim(line, " \t")

	if line == "" || line[0] == '#' {
		return scannedLine{kind: lineSkip}, nil
	}

	if line[0] == '[' {
		end := strings.IndexByte(line, ']')
		if end < 0 {
			return scannedLine{}, errUnclosedHeader
		}
		return scannedLine{kind: lineSection, section: line[1:end]}, nil
	}

	i := 0
	for i < len(line) && isKeyChar(line[i]) {
		i++
	}
	if i == 0 {
		return scannedLine{}, errMissingKey
	}
	key := line[:i]

	i = skipBlanks(line, i)
	if i >= len(line) || line[i] != '=' {
		return scannedLine{}, errMissingEquals
	}
	rest := strings.Trim(line[i+1:], " \t")

	if rest != "" && (rest[0] == '"' || rest[0] == '\'') {
		value, after, ok := scanQuoted(rest)
		if !ok {
			return scannedLine{kind: lineUnterminated, key: key}, nil
		}
		if !isCommentOrEmpty(after) {
			return scannedLine{}, errTrailingText
		}
		return scannedLine{kind: lineKeyValue, key: key, value: value}, nil
	}

	end := 0
	for end < len(rest) && rest[end] != ' ' && rest[end] != '\t' && rest[end] != '#' {
		if rest[end] == '"' || rest[end] == '\'' {
			return scannedLine{}, errQuoteInValue
		}
		end++
	}
	if !isCommentOrEmpty(rest[end:]) {
		return scannedLine{}, errTrailingText
	}
	return scannedLine{kind: lineKeyValue, key: key, value: rest[:end]}, nil
}

// scanQuoted s[0]의 따옴표와 짝이 맞는 닫는 따옴표까지 읽는다.
// 백슬래시는 따옴표와 백슬래시 자신만 이스케이프한다.
func scanQuoted(s string) (value, after string, ok bool) {
	quote := s[0]
	var sb strings.Builder
	for i := 1; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i+1 < len(s) {
			next := s[i+1]
			if next == '"' || next == '\'' || next == '\\' {
				sb.WriteByte(next)
				i++
				continue
			}
		}
		if c == quote {
			return sb.String(), s[i+1:], true
		}
		sb.WriteByte(c)
	}
	return "", "", false
}

func isKeyChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func skipBlanks(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return i
}

func isCommentOrEmpty(s string) bool {
	s = strings.TrimLeft(s, " \t")
	return s == "" || s[0] == '#'
}

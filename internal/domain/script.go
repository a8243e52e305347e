package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// RuneRange — замкнутый интервал кодовых точек Unicode.
type RuneRange struct {
	Lo rune
	Hi rune
}

// ParseRuneRange разбирает интервал вида "1200-137F" (шестнадцатеричные кодовые точки).
// Одиночная точка "0022" задает интервал из одного символа.
func ParseRuneRange(s string) (RuneRange, error) {
	s = strings.TrimSpace(s)
	loStr, hiStr, found := strings.Cut(s, "-")
	if !found {
		hiStr = loStr
	}
	lo, err := parseCodePoint(loStr)
	if err != nil {
		return RuneRange{}, fmt.Errorf("invalid range %q: %w", s, err)
	}
	hi, err := parseCodePoint(hiStr)
	if err != nil {
		return RuneRange{}, fmt.Errorf("invalid range %q: %w", s, err)
	}
	if lo > hi {
		return RuneRange{}, fmt.Errorf("invalid range %q: start is after end", s)
	}
	return RuneRange{Lo: lo, Hi: hi}, nil
}

func parseCodePoint(s string) (rune, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "U+"), "u+")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, err
	}
	if v > 0x10FFFF {
		return 0, fmt.Errorf("code point %X out of range", v)
	}
	return rune(v), nil
}

// EthiopicRange — блок Unicode «Эфиопское письмо».
var EthiopicRange = RuneRange{Lo: 0x1200, Hi: 0x137F}

// ScriptClass описывает набор символов, из которого состоит «текст письменности».
type ScriptClass struct {
	Ranges      []RuneRange
	ExtraChars  string
	Whitespace  bool
	Digits      bool
	Punctuation bool
}

// DefaultScriptClass возвращает класс для амхарского текста: эфиопский блок, кавычки и пробельные символы.
func DefaultScriptClass() ScriptClass {
	return ScriptClass{
		Ranges:     []RuneRange{EthiopicRange},
		ExtraChars: `"`,
		Whitespace: true,
	}
}

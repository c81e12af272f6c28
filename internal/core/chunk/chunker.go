package chunk

import (
	"fmt"
	"strings"
	"unicode"
)

// Span は本文から切り出した1チャンク分のテキスト
type Span struct {
	Text     string
	Position int // 0始まりの位置
	Total    int // 同一本文のチャンク総数
	Overlap  int // 先頭の、前チャンク末尾の繰り返し部分の文字数
}

// Chunker は本文テキストを意味的な境界で分割する
// サイズとオーバーラップはバイト数ではなく文字数（rune数）で数える
type Chunker struct {
	size    int // 目標チャンクサイズ（文字数）
	overlap int // オーバーラップ（文字数）
}

// NewChunker は新しいChunkerを作成する
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunk overlap must not be negative, got %d", overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap (%d) must be smaller than chunk size (%d)", overlap, size)
	}

	return &Chunker{size: size, overlap: overlap}, nil
}

// 分割レベル（優先度順）: 段落 → 行 → 文 → 単語 → 文字
const (
	levelParagraph = iota
	levelLine
	levelSentence
	levelWord
	levelRune
)

// Split は本文をSpanの列に分割する
// 保証: 各Spanの Text[Overlap:] を順に連結すると元の本文を完全に復元できる
func (c *Chunker) Split(body string) ([]Span, error) {
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("body is empty")
	}

	runes := []rune(body)
	segments := c.split(runes, levelParagraph)

	spans := make([]Span, 0, len(segments))
	offset := 0
	for i, seg := range segments {
		overlap := 0
		if i > 0 {
			overlap = min(c.overlap, offset)
		}
		spans = append(spans, Span{
			Text:     string(runes[offset-overlap : offset+len(seg)]),
			Position: i,
			Total:    len(segments),
			Overlap:  overlap,
		})
		offset += len(seg)
	}

	return spans, nil
}

// split はtextを目標サイズ以下のセグメント列に分割する
// セグメントは重複せず、連結すると入力と一致する
// どのレベルでも分割できない単位はサイズ超過のまま単独セグメントとして返す（データを切り捨てない）
func (c *Chunker) split(text []rune, level int) [][]rune {
	if len(text) <= c.size {
		return [][]rune{text}
	}
	if level > levelRune {
		return [][]rune{text}
	}

	units := splitUnits(text, level)
	if len(units) <= 1 {
		// このレベルの区切りが存在しない場合は次のレベルへ
		return c.split(text, level+1)
	}

	// 貪欲に目標サイズまで単位をマージする
	var segments [][]rune
	var current []rune
	for _, unit := range units {
		if len(unit) > c.size {
			// 単体で超過する単位は下位レベルで再分割する
			if len(current) > 0 {
				segments = append(segments, current)
				current = nil
			}
			segments = append(segments, c.split(unit, level+1)...)
			continue
		}
		if len(current)+len(unit) > c.size {
			segments = append(segments, current)
			current = nil
		}
		current = append(current, unit...)
	}
	if len(current) > 0 {
		segments = append(segments, current)
	}

	return segments
}

// splitUnits はtextを指定レベルの区切りで単位列に分割する
// 区切り文字は直前の単位の末尾に含める（losslessにするため）
func splitUnits(text []rune, level int) [][]rune {
	switch level {
	case levelParagraph:
		return splitAfterRun(text, '\n', 2)
	case levelLine:
		return splitAfterRun(text, '\n', 1)
	case levelSentence:
		return splitSentences(text)
	case levelWord:
		return splitWords(text)
	default: // levelRune
		// 1文字単位に分解し、目標サイズまでのマージはsplit側で行う
		return splitFixed(text, 1)
	}
}

// splitAfterRun はsepがminRun回以上連続した直後で分割する
func splitAfterRun(text []rune, sep rune, minRun int) [][]rune {
	var units [][]rune
	start := 0
	run := 0
	for i, r := range text {
		if r == sep {
			run++
			continue
		}
		if run >= minRun && i > start {
			units = append(units, text[start:i])
			start = i
		}
		run = 0
	}
	if start < len(text) {
		units = append(units, text[start:])
	}
	return units
}

// splitSentences は文末記号（. ! ?）と後続の閉じ引用符の直後で分割する
func splitSentences(text []rune) [][]rune {
	var units [][]rune
	start := 0
	i := 0
	for i < len(text) {
		if !isSentenceTerminator(text[i]) {
			i++
			continue
		}
		// 連続する終端記号と閉じ引用符をまとめて現在の文に含める
		j := i + 1
		for j < len(text) && (isSentenceTerminator(text[j]) || isClosingQuote(text[j])) {
			j++
		}
		// 文末とみなすのは、後続が空白または入力末尾の場合のみ
		if j >= len(text) || unicode.IsSpace(text[j]) {
			units = append(units, text[start:j])
			start = j
		}
		i = j
	}
	if start < len(text) {
		units = append(units, text[start:])
	}
	return units
}

func isSentenceTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isClosingQuote(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’':
		return true
	}
	return false
}

// splitWords は空白の連続の直後で分割する
func splitWords(text []rune) [][]rune {
	var units [][]rune
	start := 0
	inSpace := false
	for i, r := range text {
		if r != '\n' && unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace && i > start {
			units = append(units, text[start:i])
			start = i
		}
		inSpace = false
	}
	if start < len(text) {
		units = append(units, text[start:])
	}
	return units
}

// splitFixed は固定長で分割する（区切りが一切ない場合の最終手段）
func splitFixed(text []rune, size int) [][]rune {
	if size <= 0 {
		size = 1
	}
	units := make([][]rune, 0, (len(text)+size-1)/size)
	for start := 0; start < len(text); start += size {
		end := min(start+size, len(text))
		units = append(units, text[start:end])
	}
	return units
}

package document

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

const frontmatterDelimiter = "---"

// Parser は演説ドキュメント（YAMLフロントマター + 本文）のパーサ
// 入力バイト列に対する純粋関数として動作し、副作用を持たない
type Parser struct {
	now func() time.Time
}

type parserOptions struct {
	now func() time.Time
}

// ParserOption は Parser のオプション設定
type ParserOption func(*parserOptions)

// WithClock は「今日」の判定に使う時計を差し替える（テスト用）
func WithClock(now func() time.Time) ParserOption {
	return func(o *parserOptions) {
		o.now = now
	}
}

// NewParser は新しいParserを作成する
func NewParser(opts ...ParserOption) *Parser {
	options := parserOptions{
		now: time.Now,
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &Parser{now: options.now}
}

// Parse はドキュメントのバイト列をヘッダと本文に分解してバリデートする
// バリデーション順序: 区切りの存在 → YAML構文 → フィールドスキーマ → 本文非空
func (p *Parser) Parse(data []byte) (*Header, string, error) {
	if !utf8.Valid(data) {
		return nil, "", &ValidationError{Field: "encoding", Reason: "input is not valid UTF-8"}
	}

	rawHeader, body, err := splitFrontmatter(string(data))
	if err != nil {
		return nil, "", err
	}

	// 未知のキーを許容するため、一旦マップに展開してから各フィールドを検証する
	var fields map[string]any
	if err := yaml.Unmarshal([]byte(rawHeader), &fields); err != nil {
		return nil, "", &MalformedHeaderError{Err: err}
	}

	header, err := p.validateFields(fields)
	if err != nil {
		return nil, "", err
	}

	if strings.TrimSpace(body) == "" {
		return nil, "", ErrEmptyBody
	}

	return header, body, nil
}

// splitFrontmatter はフロントマター部と本文部を分離する
func splitFrontmatter(content string) (header string, body string, err error) {
	// 先頭行が区切りでなければヘッダなし
	rest, ok := strings.CutPrefix(content, frontmatterDelimiter+"\n")
	if !ok {
		return "", "", ErrMissingHeader
	}

	// 閉じ区切りを探す（行頭の --- のみ区切りとみなす）
	idx := strings.Index(rest, "\n"+frontmatterDelimiter+"\n")
	if idx < 0 {
		// 閉じ区切りが最終行でその後に改行がないケース
		if strings.HasSuffix(rest, "\n"+frontmatterDelimiter) {
			return rest[:len(rest)-len("\n"+frontmatterDelimiter)], "", nil
		}
		return "", "", ErrMissingHeader
	}

	header = rest[:idx]
	body = rest[idx+len("\n"+frontmatterDelimiter+"\n"):]
	return header, body, nil
}

// validateFields はフロントマターの各フィールドをスキーマに沿って検証する
// スキーマにないキーは無視する（前方互換のため）
func (p *Parser) validateFields(fields map[string]any) (*Header, error) {
	id, err := requiredString(fields, "id")
	if err != nil {
		return nil, err
	}

	speaker, err := requiredString(fields, "speaker")
	if err != nil {
		return nil, err
	}
	if n := utf8.RuneCountInString(speaker); n > 200 {
		return nil, &ValidationError{Field: "speaker", Reason: fmt.Sprintf("must be at most 200 characters, got %d", n)}
	}

	partyStr, err := requiredString(fields, "party")
	if err != nil {
		return nil, err
	}
	party, err := ParseParty(partyStr)
	if err != nil {
		return nil, &ValidationError{Field: "party", Reason: err.Error()}
	}

	chamberStr, err := requiredString(fields, "chamber")
	if err != nil {
		return nil, err
	}
	chamber, err := ParseChamber(chamberStr)
	if err != nil {
		return nil, &ValidationError{Field: "chamber", Reason: err.Error()}
	}

	date, err := dateField(fields, "date")
	if err != nil {
		return nil, err
	}
	// 「今日」と等しい日付は許容し、それより先の日付のみ拒否する
	// ISO形式の文字列比較で判定するためタイムゾーンの影響を受けない
	if date.Format(DateLayout) > p.now().Format(DateLayout) {
		return nil, &ValidationError{Field: "date", Reason: "must not be in the future"}
	}

	title, err := requiredString(fields, "title")
	if err != nil {
		return nil, err
	}
	if n := utf8.RuneCountInString(title); n > 500 {
		return nil, &ValidationError{Field: "title", Reason: fmt.Sprintf("must be at most 500 characters, got %d", n)}
	}

	header := &Header{
		ID:      id,
		Speaker: speaker,
		Party:   party,
		Chamber: chamber,
		Date:    date,
		Title:   title,
	}

	if state, ok, err := optionalString(fields, "state"); err != nil {
		return nil, err
	} else if ok {
		header.State = &state
	}
	if ref, ok, err := optionalString(fields, "source_ref"); err != nil {
		return nil, err
	} else if ok {
		header.SourceRef = &ref
	}

	return header, nil
}

// requiredString は必須の文字列フィールドを取り出す
func requiredString(fields map[string]any, key string) (string, error) {
	raw, ok := fields[key]
	if !ok || raw == nil {
		return "", &ValidationError{Field: key, Reason: "required field is missing"}
	}
	s, ok := raw.(string)
	if !ok {
		return "", &ValidationError{Field: key, Reason: fmt.Sprintf("must be a string, got %T", raw)}
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", &ValidationError{Field: key, Reason: "must not be empty"}
	}
	return s, nil
}

// dateField は日付フィールドを取り出す
// yaml.v3 はクォートなしのISO日付を time.Time に解決するため、両方の表現を受け付ける
func dateField(fields map[string]any, key string) (time.Time, error) {
	raw, ok := fields[key]
	if !ok || raw == nil {
		return time.Time{}, &ValidationError{Field: key, Reason: "required field is missing"}
	}

	switch v := raw.(type) {
	case string:
		date, err := time.Parse(DateLayout, strings.TrimSpace(v))
		if err != nil {
			return time.Time{}, &ValidationError{Field: key, Reason: fmt.Sprintf("must be an ISO-8601 date (%s)", DateLayout)}
		}
		return date, nil
	case time.Time:
		// 日付部分のみに正規化する
		return time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC), nil
	default:
		return time.Time{}, &ValidationError{Field: key, Reason: fmt.Sprintf("must be an ISO-8601 date, got %T", raw)}
	}
}

// optionalString は任意の文字列フィールドを取り出す
func optionalString(fields map[string]any, key string) (string, bool, error) {
	raw, ok := fields[key]
	if !ok || raw == nil {
		return "", false, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", false, &ValidationError{Field: key, Reason: fmt.Sprintf("must be a string, got %T", raw)}
	}
	return s, true, nil
}

package document

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedClock はテスト用の固定時計（2024-06-01）
func fixedClock() time.Time {
	return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

func TestParse_ValidDocument(t *testing.T) {
	// 全フィールドを含む正常なドキュメントをパースできる
	data := []byte(`---
id: hansard-2024-03-15-keating-001
speaker: Paul Keating
party: ALP
chamber: REPS
date: 2024-03-15
title: Appropriation Bill Second Reading
state: NSW
source_ref: https://example.org/hansard/2024-03-15
---
The question of economic reform cannot be deferred any longer.
`)

	parser := NewParser(WithClock(fixedClock))
	header, body, err := parser.Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "hansard-2024-03-15-keating-001", header.ID)
	assert.Equal(t, "Paul Keating", header.Speaker)
	assert.Equal(t, PartyALP, header.Party)
	assert.Equal(t, ChamberReps, header.Chamber)
	assert.Equal(t, "2024-03-15", header.Date.Format(DateLayout))
	assert.Equal(t, "Appropriation Bill Second Reading", header.Title)
	require.NotNil(t, header.State)
	assert.Equal(t, "NSW", *header.State)
	require.NotNil(t, header.SourceRef)
	assert.Contains(t, body, "economic reform")
}

func TestParse_QuotedDateString(t *testing.T) {
	// クォートされた日付（YAML上は文字列）も受け付ける
	data := []byte(`---
id: doc-001
speaker: Penny Wong
party: ALP
chamber: SENATE
date: "2023-11-20"
title: Climate Legislation
---
Body text.
`)

	parser := NewParser(WithClock(fixedClock))
	header, _, err := parser.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "2023-11-20", header.Date.Format(DateLayout))
}

func TestParse_OptionalFieldsOmitted(t *testing.T) {
	// state / source_ref は省略可能でnilになる
	data := []byte(`---
id: doc-002
speaker: Bob Brown
party: GRN
chamber: SENATE
date: 2010-05-12
title: Forests Debate
---
Speech body.
`)

	parser := NewParser(WithClock(fixedClock))
	header, _, err := parser.Parse(data)
	require.NoError(t, err)
	assert.Nil(t, header.State)
	assert.Nil(t, header.SourceRef)
}

func TestParse_UnknownKeysIgnored(t *testing.T) {
	// スキーマにないキーは前方互換のため無視する
	data := []byte(`---
id: doc-003
speaker: Jacqui Lambie
party: IND
chamber: SENATE
date: 2024-02-01
title: Veterans Affairs
session: "47th Parliament"
hansard_page: 42
---
Body.
`)

	parser := NewParser(WithClock(fixedClock))
	_, _, err := parser.Parse(data)
	assert.NoError(t, err)
}

func TestParse_MissingFrontmatter(t *testing.T) {
	// フロントマターの区切りがない入力はErrMissingHeader
	parser := NewParser(WithClock(fixedClock))

	_, _, err := parser.Parse([]byte("just a plain text file\n"))
	assert.ErrorIs(t, err, ErrMissingHeader)

	// 開始区切りはあるが閉じ区切りがないケース
	_, _, err = parser.Parse([]byte("---\nid: x\nno closing delimiter\n"))
	assert.ErrorIs(t, err, ErrMissingHeader)
}

func TestParse_MalformedYAML(t *testing.T) {
	// YAML構文エラーはMalformedHeaderErrorとして報告する
	data := []byte("---\nid: [unclosed\n---\nBody.\n")

	parser := NewParser(WithClock(fixedClock))
	_, _, err := parser.Parse(data)

	var malformedErr *MalformedHeaderError
	assert.ErrorAs(t, err, &malformedErr)
}

func TestParse_MissingRequiredField(t *testing.T) {
	// 必須フィールドの欠落はフィールド名付きのValidationError
	data := []byte(`---
id: doc-004
party: LP
chamber: REPS
date: 2024-01-10
title: Missing Speaker
---
Body.
`)

	parser := NewParser(WithClock(fixedClock))
	_, _, err := parser.Parse(data)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "speaker", validationErr.Field)
}

func TestParse_InvalidParty(t *testing.T) {
	// 既知の政党コード以外は拒否する
	data := []byte(`---
id: doc-005
speaker: Someone
party: XYZ
chamber: REPS
date: 2024-01-10
title: Invalid Party
---
Body.
`)

	parser := NewParser(WithClock(fixedClock))
	_, _, err := parser.Parse(data)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "party", validationErr.Field)
}

func TestParse_InvalidChamber(t *testing.T) {
	data := []byte(`---
id: doc-006
speaker: Someone
party: LP
chamber: LOWER
date: 2024-01-10
title: Invalid Chamber
---
Body.
`)

	parser := NewParser(WithClock(fixedClock))
	_, _, err := parser.Parse(data)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "chamber", validationErr.Field)
}

func TestParse_FutureDateRejected(t *testing.T) {
	// 時計より先の日付は拒否し、当日は許容する
	makeDoc := func(date string) []byte {
		return []byte(`---
id: doc-007
speaker: Someone
party: NP
chamber: REPS
date: ` + date + `
title: Date Boundary
---
Body.
`)
	}

	parser := NewParser(WithClock(fixedClock))

	_, _, err := parser.Parse(makeDoc("2024-06-02"))
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "date", validationErr.Field)

	// 当日はちょうど境界で許容される
	_, _, err = parser.Parse(makeDoc("2024-06-01"))
	assert.NoError(t, err)
}

func TestParse_InvalidDateFormat(t *testing.T) {
	data := []byte(`---
id: doc-008
speaker: Someone
party: ON
chamber: SENATE
date: "15/03/2024"
title: Bad Date Format
---
Body.
`)

	parser := NewParser(WithClock(fixedClock))
	_, _, err := parser.Parse(data)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "date", validationErr.Field)
}

func TestParse_EmptyBody(t *testing.T) {
	// 本文が空白のみのドキュメントはErrEmptyBody
	data := []byte(`---
id: doc-009
speaker: Someone
party: CA
chamber: REPS
date: 2024-01-10
title: Empty Body
---

`)

	parser := NewParser(WithClock(fixedClock))
	_, _, err := parser.Parse(data)
	assert.ErrorIs(t, err, ErrEmptyBody)
}

func TestParse_InvalidUTF8(t *testing.T) {
	data := []byte("---\nid: x\n---\n")
	data = append(data, 0xff, 0xfe)

	parser := NewParser(WithClock(fixedClock))
	_, _, err := parser.Parse(data)

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "encoding", validationErr.Field)
}

func TestParseParty_AllKnownCodes(t *testing.T) {
	for _, code := range []string{"ALP", "LP", "NP", "GRN", "ON", "CA", "IND"} {
		party, err := ParseParty(code)
		require.NoError(t, err, "party code %s", code)
		assert.Equal(t, code, string(party))
	}

	_, err := ParseParty("alp")
	assert.Error(t, err, "政党コードは大文字のみ受け付ける")
}

package search

import (
	"fmt"
	"strings"
	"time"

	"github.com/jinford/hansard-rag/internal/core/document"
)

// Field はフィルタ対象のヘッダフィールド（閉じた集合）
// 未知のフィールド名はクエリ実行前のパース時点で拒否する
type Field string

const (
	FieldSpeaker Field = "speaker"
	FieldParty   Field = "party"
	FieldChamber Field = "chamber"
	FieldDate    Field = "date"
	FieldState   Field = "state"
)

// Operator はフィルタの比較演算子
type Operator string

const (
	OpEq  Operator = "="
	OpGte Operator = ">="
	OpLte Operator = "<="
)

// Filter は1つのメタデータ述語（フィールド + 演算子 + 値）
type Filter struct {
	Field Field
	Op    Operator
	Value string
}

// rangeFields は範囲演算子（>=, <=）を許可するフィールド
var rangeFields = map[Field]bool{
	FieldDate: true,
}

var validFields = map[Field]bool{
	FieldSpeaker: true,
	FieldParty:   true,
	FieldChamber: true,
	FieldDate:    true,
	FieldState:   true,
}

// ParseFilter は "field=value" / "date>=2024-01-01" 形式の式をパースする
func ParseFilter(expr string) (Filter, error) {
	// 演算子の探索順が重要（"=" は ">=" "<=" にも含まれる）
	for _, op := range []Operator{OpGte, OpLte, OpEq} {
		field, value, found := strings.Cut(expr, string(op))
		if !found {
			continue
		}
		f := Filter{
			Field: Field(strings.TrimSpace(field)),
			Op:    op,
			Value: strings.TrimSpace(value),
		}
		if err := f.Validate(); err != nil {
			return Filter{}, err
		}
		return f, nil
	}
	return Filter{}, fmt.Errorf("invalid filter expression: %q", expr)
}

// ParseFilters は複数のフィルタ式をまとめてパースする
func ParseFilters(exprs []string) ([]Filter, error) {
	filters := make([]Filter, 0, len(exprs))
	for _, expr := range exprs {
		f, err := ParseFilter(expr)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return filters, nil
}

// Validate はフィールド・演算子・値の組み合わせを検証する
func (f Filter) Validate() error {
	if !validFields[f.Field] {
		return fmt.Errorf("unknown filter field: %q", f.Field)
	}
	if f.Op != OpEq && !rangeFields[f.Field] {
		return fmt.Errorf("field %q does not support operator %q", f.Field, f.Op)
	}
	if f.Value == "" {
		return fmt.Errorf("filter value for field %q must not be empty", f.Field)
	}

	switch f.Field {
	case FieldParty:
		if _, err := document.ParseParty(f.Value); err != nil {
			return fmt.Errorf("invalid party filter: %w", err)
		}
	case FieldChamber:
		if _, err := document.ParseChamber(f.Value); err != nil {
			return fmt.Errorf("invalid chamber filter: %w", err)
		}
	case FieldDate:
		if _, err := time.Parse(document.DateLayout, f.Value); err != nil {
			return fmt.Errorf("invalid date filter: must be an ISO-8601 date (%s)", document.DateLayout)
		}
	}

	return nil
}

// DateValue は日付フィルタの値をtime.Timeで返す
// Validate済みのフィルタに対してのみ呼ぶこと
func (f Filter) DateValue() (time.Time, error) {
	return time.Parse(document.DateLayout, f.Value)
}

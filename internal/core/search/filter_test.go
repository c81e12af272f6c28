package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilter_Equality(t *testing.T) {
	f, err := ParseFilter("party=ALP")
	require.NoError(t, err)
	assert.Equal(t, FieldParty, f.Field)
	assert.Equal(t, OpEq, f.Op)
	assert.Equal(t, "ALP", f.Value)
}

func TestParseFilter_DateRange(t *testing.T) {
	f, err := ParseFilter("date>=2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, FieldDate, f.Field)
	assert.Equal(t, OpGte, f.Op)
	assert.Equal(t, "2024-01-01", f.Value)

	f, err = ParseFilter("date<=2024-12-31")
	require.NoError(t, err)
	assert.Equal(t, OpLte, f.Op)
}

func TestParseFilter_TrimsWhitespace(t *testing.T) {
	f, err := ParseFilter(" chamber = SENATE ")
	require.NoError(t, err)
	assert.Equal(t, FieldChamber, f.Field)
	assert.Equal(t, "SENATE", f.Value)
}

func TestParseFilter_UnknownField(t *testing.T) {
	// 未知のフィールドは類似度検索の実行前に拒否する
	_, err := ParseFilter("electorate=Wentworth")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown filter field")
}

func TestParseFilter_RangeOperatorOnNonDateField(t *testing.T) {
	// 範囲演算子は日付フィールドのみ許可する
	_, err := ParseFilter("speaker>=Wong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not support operator")
}

func TestParseFilter_InvalidValues(t *testing.T) {
	_, err := ParseFilter("party=XYZ")
	assert.Error(t, err, "未知の政党コード")

	_, err = ParseFilter("chamber=LOWER")
	assert.Error(t, err, "未知の議院")

	_, err = ParseFilter("date=15/03/2024")
	assert.Error(t, err, "ISO以外の日付形式")

	_, err = ParseFilter("speaker=")
	assert.Error(t, err, "空の値")
}

func TestParseFilter_MissingOperator(t *testing.T) {
	_, err := ParseFilter("party")
	assert.Error(t, err)
}

func TestParseFilters_Multiple(t *testing.T) {
	filters, err := ParseFilters([]string{"party=GRN", "date>=2023-01-01", "date<=2023-12-31"})
	require.NoError(t, err)
	require.Len(t, filters, 3)

	// 1つでも不正ならまとめて失敗する
	_, err = ParseFilters([]string{"party=GRN", "bogus=1"})
	assert.Error(t, err)
}

func TestDateValue(t *testing.T) {
	f, err := ParseFilter("date>=2024-06-15")
	require.NoError(t, err)

	date, err := f.DateValue()
	require.NoError(t, err)
	assert.Equal(t, 2024, date.Year())
	assert.Equal(t, 15, date.Day())
}

package document

import (
	"fmt"
	"time"
)

// Party は政党の区分を表す（閉じた集合）
type Party string

const (
	PartyALP Party = "ALP" // Australian Labor Party
	PartyLP  Party = "LP"  // Liberal Party
	PartyNP  Party = "NP"  // National Party
	PartyGRN Party = "GRN" // Australian Greens
	PartyON  Party = "ON"  // One Nation
	PartyCA  Party = "CA"  // Centre Alliance
	PartyIND Party = "IND" // Independent
)

var validParties = map[Party]bool{
	PartyALP: true,
	PartyLP:  true,
	PartyNP:  true,
	PartyGRN: true,
	PartyON:  true,
	PartyCA:  true,
	PartyIND: true,
}

// ParseParty は文字列をPartyに変換する
func ParseParty(s string) (Party, error) {
	p := Party(s)
	if !validParties[p] {
		return "", fmt.Errorf("unknown party: %q", s)
	}
	return p, nil
}

// Chamber は議院の区分を表す（閉じた集合）
type Chamber string

const (
	ChamberSenate Chamber = "SENATE"
	ChamberReps   Chamber = "REPS"
)

var validChambers = map[Chamber]bool{
	ChamberSenate: true,
	ChamberReps:   true,
}

// ParseChamber は文字列をChamberに変換する
func ParseChamber(s string) (Chamber, error) {
	c := Chamber(s)
	if !validChambers[c] {
		return "", fmt.Errorf("unknown chamber: %q", s)
	}
	return c, nil
}

// Header は演説ドキュメントのフロントマターから抽出した構造化メタデータ
// バリデーション完了後は不変として扱う
type Header struct {
	ID        string     // グローバルに一意な識別子
	Speaker   string     // 発言者名（1〜200文字）
	Party     Party      // 政党
	Chamber   Chamber    // 議院
	Date      time.Time  // 演説日（未来日は不可）
	Title     string     // タイトル（1〜500文字）
	State     *string    // 州コード（任意）
	SourceRef *string    // 外部参照（任意）
}

// Document はストアから読み出した1件のドキュメント（ヘッダ + 本文）
type Document struct {
	Header    Header
	Body      string // 原文そのまま
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DateLayout は演説日のISO-8601日付フォーマット
const DateLayout = "2006-01-02"

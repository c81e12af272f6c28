package ingestion

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// IgnoreFileName は除外パターンファイル名（gitignore構文）
const IgnoreFileName = ".hansardignore"

// DiscoverDocuments はroot以下の演説ファイル（*.md）を列挙する
// root直下の .hansardignore にマッチするパスと隠しディレクトリは除外する
// 結果はパスの昇順で返す（処理順を決定的にするため）
func DiscoverDocuments(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("ディレクトリの参照に失敗: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("ディレクトリではありません: %s", root)
	}

	matcher, err := loadIgnoreMatcher(root)
	if err != nil {
		return nil, err
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}

		if d.IsDir() {
			// 隠しディレクトリと除外対象ディレクトリは丸ごとスキップ
			if rel != "." && (strings.HasPrefix(d.Name(), ".") || (matcher != nil && matcher.MatchesPath(rel))) {
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.EqualFold(filepath.Ext(d.Name()), ".md") {
			return nil
		}
		if matcher != nil && matcher.MatchesPath(rel) {
			return nil
		}

		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ドキュメントの探索に失敗: %w", err)
	}

	sort.Strings(paths)
	return paths, nil
}

// loadIgnoreMatcher は .hansardignore を読み込む（存在しなければnilを返す）
func loadIgnoreMatcher(root string) (*gitignore.GitIgnore, error) {
	ignorePath := filepath.Join(root, IgnoreFileName)
	if _, err := os.Stat(ignorePath); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat %s: %w", IgnoreFileName, err)
	}

	matcher, err := gitignore.CompileIgnoreFile(ignorePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", IgnoreFileName, err)
	}
	return matcher, nil
}

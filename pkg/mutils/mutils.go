package mutils

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/cheggaaa/pb/v3"
)

func ExistsFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

// WalkFilePaths 直下のファイルのうち suffix で終わるパス一覧を返す
func WalkFilePaths(dirPath string, suffix string) ([]string, error) {
	var paths []string
	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path != dirPath && info.IsDir() {
			// 直下だけ参照
			return filepath.SkipDir
		}
		if !info.IsDir() && strings.HasSuffix(info.Name(), suffix) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// IsURL http(s) スキームかどうか
func IsURL(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// ReadAllFromPath ローカルパスまたは http(s) URL からバイト列を読み込む
func ReadAllFromPath(path string) ([]byte, error) {
	if !IsURL(path) {
		return os.ReadFile(path)
	}

	res, err := http.Get(path)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch failed with status %d: %s", res.StatusCode, path)
	}

	return io.ReadAll(res.Body)
}

// ExistsPath URL の場合は HEAD、ローカルの場合は Stat で存在確認する
func ExistsPath(path string) bool {
	if !IsURL(path) {
		exists, err := ExistsFile(path)
		return err == nil && exists
	}

	res, err := http.Head(path)
	if err != nil {
		return false
	}
	defer res.Body.Close()

	return res.StatusCode == http.StatusOK
}

// SiblingPath 拡張子を除いたベース名に suffix を連結した隣接パスを返す
// (例: "avatar.ply" + "_camera.json" → "avatar_camera.json")
func SiblingPath(path string, suffix string) string {
	ext := filepath.Ext(path)
	return path[:len(path)-len(ext)] + suffix
}

func NewProgressBar(total int) *pb.ProgressBar {
	// プログレスバーのカスタムテンプレートを設定
	template := `{{ string . "prefix" }} {{counters . "%s/%s" "%s/?"}} {{bar . }} {{percent . "%.03f%%" "?"}} {{etime . "%s elapsed"}} {{rtime . "%s remain" "%s total" "???"}}`

	bar := pb.ProgressBarTemplate(template).Start(total)

	return bar
}

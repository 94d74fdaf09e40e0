package utils

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/miu200521358/gaussian-avatar-1/pkg/domain"
	"github.com/miu200521358/gaussian-avatar-1/pkg/mutils"
)

// GetPlyFilePaths ディレクトリ直下のPLYファイルを列挙する
func GetPlyFilePaths(dirPath string) ([]string, error) {
	return mutils.WalkFilePaths(dirPath, ".ply")
}

// WritePng 画像をPNGとして書き出す
func WritePng(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return png.Encode(f, img)
}

// WriteFeatureTiles 粗特徴マップの8タイルをデバッグ用PNGとして書き出す。
// 各タイルの先頭3チャンネルをRGBへ割り当てる
func WriteFeatureTiles(dirPath string, features *domain.FeatureMap) error {
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return err
	}

	for tile := 0; tile < domain.LatentTiles; tile++ {
		img := image.NewRGBA(image.Rect(0, 0, domain.FeatureMapSize, domain.FeatureMapSize))
		for y := 0; y < domain.FeatureMapSize; y++ {
			for x := 0; x < domain.FeatureMapSize; x++ {
				img.SetRGBA(x, y, color.RGBA{
					R: featureByte(features.At(tile*domain.TileChannels, y, x)),
					G: featureByte(features.At(tile*domain.TileChannels+1, y, x)),
					B: featureByte(features.At(tile*domain.TileChannels+2, y, x)),
					A: 0xff,
				})
			}
		}

		path := filepath.Join(dirPath, fmt.Sprintf("tile_%d.png", tile))
		if err := WritePng(path, img); err != nil {
			return err
		}
	}

	return nil
}

func featureByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

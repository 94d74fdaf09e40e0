package domain

import (
	"fmt"

	"github.com/jinzhu/copier"
)

const (
	// FeatureMapSize 粗特徴マップの一辺のピクセル数
	FeatureMapSize = 256
	// RefinedImageSize 精細化出力画像の一辺のピクセル数
	RefinedImageSize = 512
)

// FeatureMap 8回のタイル描画パスから組み立てられる 32x256x256 の粗特徴マップ。
// チャンネルメジャー配置(ch, y, x)で、フレームごとに使い捨てる
type FeatureMap struct {
	Data []float32 // LatentChannels * FeatureMapSize * FeatureMapSize
}

func NewFeatureMap() *FeatureMap {
	return &FeatureMap{
		Data: make([]float32, LatentChannels*FeatureMapSize*FeatureMapSize),
	}
}

func (fm *FeatureMap) At(ch, y, x int) float32 {
	return fm.Data[(ch*FeatureMapSize+y)*FeatureMapSize+x]
}

// SetTile タイル描画結果(RGBA順の4チャンネル、ピクセルメジャー)を
// 対応するチャンネルスライスへ転記する
func (fm *FeatureMap) SetTile(tile int, pixels []float32) error {
	if tile < 0 || tile >= LatentTiles {
		return fmt.Errorf("latent tile index out of range: %d", tile)
	}
	if len(pixels) != FeatureMapSize*FeatureMapSize*TileChannels {
		return fmt.Errorf("unexpected tile buffer length: %d", len(pixels))
	}

	for y := 0; y < FeatureMapSize; y++ {
		for x := 0; x < FeatureMapSize; x++ {
			base := (y*FeatureMapSize + x) * TileChannels
			for c := 0; c < TileChannels; c++ {
				ch := tile*TileChannels + c
				fm.Data[(ch*FeatureMapSize+y)*FeatureMapSize+x] = pixels[base+c]
			}
		}
	}

	return nil
}

// Copy バックグラウンド精細化へ渡すためのディープコピーを返す
func (fm *FeatureMap) Copy() (*FeatureMap, error) {
	copied := new(FeatureMap)
	err := copier.CopyWithOption(copied, fm, copier.Option{DeepCopy: true})
	return copied, err
}

// RGBImage ニューラル精細化の出力(512x512x3、チャンネルメジャー)
type RGBImage struct {
	Data []float32 // 3 * RefinedImageSize * RefinedImageSize
}

func NewRGBImage() *RGBImage {
	return &RGBImage{
		Data: make([]float32, 3*RefinedImageSize*RefinedImageSize),
	}
}

func (img *RGBImage) At(ch, y, x int) float32 {
	return img.Data[(ch*RefinedImageSize+y)*RefinedImageSize+x]
}

func (img *RGBImage) Set(ch, y, x int, v float32) {
	img.Data[(ch*RefinedImageSize+y)*RefinedImageSize+x] = v
}

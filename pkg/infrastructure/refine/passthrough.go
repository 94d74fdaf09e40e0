package refine

import (
	"github.com/miu200521358/gaussian-avatar-1/pkg/domain"
)

// PassthroughRefiner モデルファイルなしで動かすための簡易精細化。
// タイル0の蓄積値(色×不透明度)の3チャンネルを2倍に拡大してそのまま返す
type PassthroughRefiner struct{}

func NewPassthroughRefiner() *PassthroughRefiner {
	return &PassthroughRefiner{}
}

func (r *PassthroughRefiner) Refine(features *domain.FeatureMap, identity []float32) (*domain.RGBImage, error) {
	img := domain.NewRGBImage()

	for ch := 0; ch < 3; ch++ {
		for y := 0; y < domain.RefinedImageSize; y++ {
			for x := 0; x < domain.RefinedImageSize; x++ {
				img.Set(ch, y, x, features.At(ch, y/2, x/2))
			}
		}
	}

	return img, nil
}

// FixedIdentityEncoder エンコーダーなしの場合の固定ゼロ埋め込み
type FixedIdentityEncoder struct{}

func NewFixedIdentityEncoder() *FixedIdentityEncoder {
	return &FixedIdentityEncoder{}
}

func (e *FixedIdentityEncoder) Encode(photo *domain.RGBImage) ([]float32, error) {
	return make([]float32, IdentityEmbeddingSize), nil
}

// ColorLatents デコーダーなしの場合に、SH色と被覆度からタイル0の潜在特徴を
// 点ごとに直接組み立てる(タイル1〜7は0のまま)
func ColorLatents(cloud *domain.PointCloud) []float32 {
	latents := make([]float32, cloud.Count*domain.LatentChannels)

	for i := 0; i < cloud.Count; i++ {
		color := cloud.ColorAt(i)
		base := i * domain.LatentChannels
		latents[base] = color.X()
		latents[base+1] = color.Y()
		latents[base+2] = color.Z()
		latents[base+3] = 1.0
	}

	return latents
}

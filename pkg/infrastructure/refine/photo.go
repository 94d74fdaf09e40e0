package refine

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/miu200521358/gaussian-avatar-1/pkg/domain"
	"github.com/miu200521358/gaussian-avatar-1/pkg/mutils"
)

// LoadPhoto 元写真をパスまたはURLから読み込み、エンコーダー入力へ変換する
func LoadPhoto(path string) (*domain.RGBImage, error) {
	data, err := mutils.ReadAllFromPath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read photo %s: %w", path, err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode photo %s: %w", path, err)
	}

	return PreparePhoto(img), nil
}

// PreparePhoto 写真を512x512へリサイズし、[-1,1]正規化の
// チャンネルメジャーfloatへ変換する
func PreparePhoto(img image.Image) *domain.RGBImage {
	resized := image.NewRGBA(image.Rect(0, 0, domain.RefinedImageSize, domain.RefinedImageSize))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, img.Bounds(), draw.Over, nil)

	out := domain.NewRGBImage()
	for y := 0; y < domain.RefinedImageSize; y++ {
		for x := 0; x < domain.RefinedImageSize; x++ {
			base := resized.PixOffset(x, y)
			out.Set(0, y, x, float32(resized.Pix[base])/127.5-1)
			out.Set(1, y, x, float32(resized.Pix[base+1])/127.5-1)
			out.Set(2, y, x, float32(resized.Pix[base+2])/127.5-1)
		}
	}

	return out
}

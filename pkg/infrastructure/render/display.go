package render

import (
	"image"

	"github.com/miu200521358/gaussian-avatar-1/pkg/domain"
)

const flatRangeEpsilon = 1e-6

// DisplayConverter 精細化画像をダイナミックレンジ正規化して表示用8bitへ変換する。
// レンジは最初の精細化成功時に一度だけ取り込み、以降のフレームで固定する
type DisplayConverter struct {
	rangeCaptured bool
	rangeMin      float32
	rangeMax      float32
	Brightness    float32
}

func NewDisplayConverter() *DisplayConverter {
	return &DisplayConverter{Brightness: 1.0}
}

// CaptureRange 初回のみ画像の最小・最大値を取り込む。2回目以降は何もしない
func (d *DisplayConverter) CaptureRange(img *domain.RGBImage) {
	if d.rangeCaptured {
		return
	}

	minV := img.Data[0]
	maxV := img.Data[0]
	for _, v := range img.Data {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}

	d.rangeMin = minV
	d.rangeMax = maxV
	d.rangeCaptured = true
}

// Normalize 取り込み済みレンジで1チャンネル値を[0,1]へ正規化し輝度を乗じる。
// レンジが潰れている場合は中間グレー固定
func (d *DisplayConverter) Normalize(v float32) float32 {
	span := d.rangeMax - d.rangeMin

	var norm float32
	if !d.rangeCaptured || span < flatRangeEpsilon {
		norm = 0.5
	} else {
		norm = (v - d.rangeMin) / span
	}

	norm *= d.Brightness
	if norm < 0 {
		return 0
	}
	if norm > 1 {
		return 1
	}
	return norm
}

// ToRGBA 精細化画像を表示用の8bit RGBAへ変換する
func (d *DisplayConverter) ToRGBA(img *domain.RGBImage) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, domain.RefinedImageSize, domain.RefinedImageSize))

	for y := 0; y < domain.RefinedImageSize; y++ {
		for x := 0; x < domain.RefinedImageSize; x++ {
			base := out.PixOffset(x, y)
			out.Pix[base] = toByte(d.Normalize(img.At(0, y, x)))
			out.Pix[base+1] = toByte(d.Normalize(img.At(1, y, x)))
			out.Pix[base+2] = toByte(d.Normalize(img.At(2, y, x)))
			out.Pix[base+3] = 0xff
		}
	}

	return out
}

func toByte(v float32) uint8 {
	b := int(v*255 + 0.5)
	if b < 0 {
		return 0
	}
	if b > 255 {
		return 255
	}
	return uint8(b)
}

package render

// Target 加算合成用のオフスクリーン浮動小数点レンダーターゲット。
// ピクセルメジャーのRGBA 4チャンネル構成
type Target struct {
	Width  int
	Height int
	Pixels []float32 // Width * Height * 4
}

func NewTarget(width, height int) *Target {
	return &Target{
		Width:  width,
		Height: height,
		Pixels: make([]float32, width*height*4),
	}
}

func (t *Target) Clear() {
	for i := range t.Pixels {
		t.Pixels[i] = 0
	}
}

// Add 指定ピクセルへ4チャンネル値を加算する(範囲外は無視)
func (t *Target) Add(x, y int, c0, c1, c2, c3 float32) {
	if x < 0 || x >= t.Width || y < 0 || y >= t.Height {
		return
	}

	base := (y*t.Width + x) * 4
	t.Pixels[base] += c0
	t.Pixels[base+1] += c1
	t.Pixels[base+2] += c2
	t.Pixels[base+3] += c3
}

// At 指定ピクセルの4チャンネル値を返す
func (t *Target) At(x, y int) (float32, float32, float32, float32) {
	base := (y*t.Width + x) * 4
	return t.Pixels[base], t.Pixels[base+1], t.Pixels[base+2], t.Pixels[base+3]
}

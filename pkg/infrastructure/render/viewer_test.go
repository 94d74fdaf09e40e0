package render

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/miu200521358/gaussian-avatar-1/pkg/domain"
)

func newTestFraming() domain.CameraFraming {
	return domain.CameraFraming{
		Position: mgl32.Vec3{0, 0, 2},
		Target:   mgl32.Vec3{0, 0, 0},
		FovDeg:   40,
		Width:    512,
		Height:   512,
	}
}

// 原点に1点、カメラは+Z側から注視
func newSinglePointCloud() *domain.PointCloud {
	cloud := domain.NewPointCloud(1)
	cloud.Opacities[0] = 10 // sigmoid(10) ≈ 1
	cloud.Latents = make([]float32, domain.LatentChannels)
	for c := 0; c < domain.LatentChannels; c++ {
		cloud.Latents[c] = float32(c + 1)
	}
	return cloud
}

func TestSplatViewer_SetActiveTile(t *testing.T) {
	viewer := NewSplatViewer(newSinglePointCloud(), newTestFraming())

	for i := 0; i < domain.LatentTiles; i++ {
		if err := viewer.SetActiveTile(i); err != nil {
			t.Errorf("Expected tile %d to be accepted, got %q", i, err)
		}
		if viewer.ActiveTile() != i {
			t.Errorf("Expected active tile %d, got %d", i, viewer.ActiveTile())
		}
	}

	if err := viewer.SetActiveTile(3); err != nil {
		t.Fatalf("Expected error to be nil, got %q", err)
	}
	for _, invalid := range []int{-1, domain.LatentTiles, 100} {
		if err := viewer.SetActiveTile(invalid); err == nil {
			t.Errorf("Expected tile %d to be rejected", invalid)
		}
		if viewer.ActiveTile() != 3 {
			t.Errorf("Expected active tile to stay 3 after rejection, got %d", viewer.ActiveTile())
		}
	}
}

func TestSplatViewer_RenderTile(t *testing.T) {
	viewer := NewSplatViewer(newSinglePointCloud(), newTestFraming())

	target := viewer.RenderTile()

	// 画面中央に全4チャンネルが加算されている(タイル0はチャンネル1〜4)
	center := target.Width / 2
	c0, c1, c2, c3 := target.At(center, center)
	if c0 <= 0 || c1 <= 0 || c2 <= 0 || c3 <= 0 {
		t.Errorf("Expected positive center values, got (%v, %v, %v, %v)", c0, c1, c2, c3)
	}
	if c1 <= c0 || c2 <= c1 || c3 <= c2 {
		t.Errorf("Expected ascending latent channels, got (%v, %v, %v, %v)", c0, c1, c2, c3)
	}

	// スプライト範囲外(最大64pxなので端は届かない)はゼロのまま
	e0, e1, e2, e3 := target.At(2, 2)
	if e0 != 0 || e1 != 0 || e2 != 0 || e3 != 0 {
		t.Errorf("Expected empty corner, got (%v, %v, %v, %v)", e0, e1, e2, e3)
	}

	// タイル切り替えで別のチャンネルスライスが乗る
	if err := viewer.SetActiveTile(1); err != nil {
		t.Fatalf("Expected error to be nil, got %q", err)
	}
	target = viewer.RenderTile()
	t0, _, _, _ := target.At(center, center)
	ratio := t0 / c0
	if math.Abs(float64(ratio)-5) > 0.01 {
		t.Errorf("Expected tile 1 channel 0 to be 5x tile 0 channel 0, got ratio %v", ratio)
	}
}

func TestSplatViewer_RenderTileAdditive(t *testing.T) {
	single := newSinglePointCloud()

	double := domain.NewPointCloud(2)
	double.Latents = make([]float32, domain.LatentChannels*2)
	for i := 0; i < 2; i++ {
		double.Opacities[i] = 10
		for c := 0; c < domain.LatentChannels; c++ {
			double.Latents[i*domain.LatentChannels+c] = float32(c + 1)
		}
	}

	framing := newTestFraming()
	center := domain.FeatureMapSize / 2

	s0, _, _, _ := NewSplatViewer(single, framing).RenderTile().At(center, center)
	d0, _, _, _ := NewSplatViewer(double, framing).RenderTile().At(center, center)

	// 重なった点は加算合成で倍
	if math.Abs(float64(d0/s0)-2) > 1e-3 {
		t.Errorf("Expected doubled accumulation, got %v vs %v", d0, s0)
	}
}

func TestSplatViewer_RenderTileSkinned(t *testing.T) {
	cloud := newSinglePointCloud()
	cloud.BoneIndices[0] = int32(domain.BoneHead)
	cloud.BoneWeights[0] = 1.0

	viewer := NewSplatViewer(cloud, newTestFraming())
	center := domain.FeatureMapSize / 2

	// 恒等行列では中央に描画される
	c0, _, _, _ := viewer.RenderTile().At(center, center)
	if c0 <= 0 {
		t.Fatalf("Expected center splat with identity bones, got %v", c0)
	}

	// ボーン行列で視界外へ移動させると中央には何も残らない
	matrices := domain.NewBoneMatrices()
	matrices[domain.BoneHead] = mgl32.Translate3D(100, 0, 0)
	viewer.SetBoneMatrices(matrices)

	m0, m1, m2, m3 := viewer.RenderTile().At(center, center)
	if m0 != 0 || m1 != 0 || m2 != 0 || m3 != 0 {
		t.Errorf("Expected empty center after bone translation, got (%v, %v, %v, %v)", m0, m1, m2, m3)
	}
}

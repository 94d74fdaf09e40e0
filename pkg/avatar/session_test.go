package avatar

import (
	"errors"
	"image/color"
	"path/filepath"
	"testing"
	"time"

	"github.com/miu200521358/gaussian-avatar-1/pkg/domain"
	"github.com/miu200521358/gaussian-avatar-1/pkg/infrastructure/ply"
	"github.com/miu200521358/gaussian-avatar-1/pkg/infrastructure/refine"
	"github.com/miu200521358/gaussian-avatar-1/pkg/mutils"
)

// flatRefiner 全画素を一定値で返すモック精細化器
type flatRefiner struct {
	value float32
	calls chan struct{}
}

func (r *flatRefiner) Refine(features *domain.FeatureMap, identity []float32) (*domain.RGBImage, error) {
	if r.calls != nil {
		r.calls <- struct{}{}
	}

	img := domain.NewRGBImage()
	for i := range img.Data {
		img.Data[i] = r.value
	}
	return img, nil
}

// blockingDecoder Decodeへ入ったことを合図し、解除されるまで待つモック復号器
type blockingDecoder struct {
	entered chan struct{}
	release chan struct{}
}

func (d *blockingDecoder) Decode(identity []float32) ([]float32, int, error) {
	d.entered <- struct{}{}
	<-d.release
	return nil, 0, errors.New("decode aborted")
}

func writeTestPly(t *testing.T, dir string) string {
	cloud := domain.NewPointCloud(4)
	heights := []float32{0, 0.6, 1.2, 1.8}
	for i, h := range heights {
		cloud.Positions[i*3+1] = h
	}

	path := filepath.Join(dir, "avatar.ply")
	if err := ply.NewPointCloudRepository().Save(path, cloud); err != nil {
		t.Fatalf("Expected error to be nil, got %q", err)
	}
	return path
}

func TestSession_LoadAndTick(t *testing.T) {
	dir := t.TempDir()
	path := writeTestPly(t, dir)

	session := NewSession(refine.Models{Refiner: &flatRefiner{value: 0.5}}, SessionOptions{})

	ok, err := session.LoadAssets(path)
	if err != nil {
		t.Fatalf("Expected error to be nil, got %q", err)
	}
	if !ok {
		t.Fatalf("Expected load to succeed")
	}

	if session.CurrentImage() != nil {
		t.Errorf("Expected no image before first tick")
	}

	if err := session.Tick(time.Unix(100, 0)); err != nil {
		t.Fatalf("Expected error to be nil, got %q", err)
	}

	img := session.CurrentImage()
	if img == nil {
		t.Fatalf("Expected image after first tick")
	}
	if img.Bounds().Dx() != domain.RefinedImageSize || img.Bounds().Dy() != domain.RefinedImageSize {
		t.Errorf("Expected 512x512 image, got %v", img.Bounds())
	}

	// 一定値0.5の精細化出力はレンジが潰れているので全画素が中間グレーになる
	gray := color.RGBA{R: 128, G: 128, B: 128, A: 255}
	for _, p := range [][2]int{{0, 0}, {256, 256}, {511, 511}} {
		if got := img.RGBAAt(p[0], p[1]); got != gray {
			t.Errorf("Expected mid gray at %v, got %v", p, got)
		}
	}

	// マッピングキャッシュが隣接パスへ書き戻されている
	if !mutils.ExistsPath(filepath.Join(dir, "avatar_mapping.json")) {
		t.Errorf("Expected mapping cache to be written")
	}
}

func TestSession_TickBeforeLoad(t *testing.T) {
	session := NewSession(refine.Models{}, SessionOptions{})

	if err := session.Tick(time.Unix(0, 1)); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Expected ErrNotLoaded, got %v", err)
	}
	if err := session.UpdateLatentTile(3); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Expected ErrNotLoaded, got %v", err)
	}
}

func TestSession_UpdateLatentTile(t *testing.T) {
	dir := t.TempDir()
	session := NewSession(refine.Models{Refiner: &flatRefiner{value: 0.5}}, SessionOptions{})
	if _, err := session.LoadAssets(writeTestPly(t, dir)); err != nil {
		t.Fatalf("Expected error to be nil, got %q", err)
	}

	for tile := 0; tile < domain.LatentTiles; tile++ {
		if err := session.UpdateLatentTile(tile); err != nil {
			t.Errorf("Expected tile %d to be accepted, got %q", tile, err)
		}
	}

	// 範囲外は拒否され、直前のタイルが維持される
	if err := session.UpdateLatentTile(5); err != nil {
		t.Fatalf("Expected error to be nil, got %q", err)
	}
	for _, tile := range []int{-1, 8, 100} {
		if err := session.UpdateLatentTile(tile); err == nil {
			t.Errorf("Expected tile %d to be rejected", tile)
		}
	}
	if session.viewer.ActiveTile() != 5 {
		t.Errorf("Expected active tile 5, got %d", session.viewer.ActiveTile())
	}

	// タイル描画パスの後も選択は保たれる
	if err := session.Tick(time.Unix(100, 0)); err != nil {
		t.Fatalf("Expected error to be nil, got %q", err)
	}
	if session.viewer.ActiveTile() != 5 {
		t.Errorf("Expected active tile 5 after tick, got %d", session.viewer.ActiveTile())
	}
}

func TestSession_LipSyncClamp(t *testing.T) {
	session := NewSession(refine.Models{}, SessionOptions{})

	session.UpdateLipSync(2.0)
	if session.lipLevel != 1.0 {
		t.Errorf("Expected lip level clamped to 1, got %v", session.lipLevel)
	}

	session.UpdateLipSync(-0.5)
	if session.lipLevel != 0.0 {
		t.Errorf("Expected lip level clamped to 0, got %v", session.lipLevel)
	}

	session.UpdateLipSync(0.37)
	if session.lipLevel != 0.37 {
		t.Errorf("Expected lip level 0.37, got %v", session.lipLevel)
	}
}

func TestSession_RejectWhileLoading(t *testing.T) {
	dir := t.TempDir()
	path := writeTestPly(t, dir)

	decoder := &blockingDecoder{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	session := NewSession(refine.Models{
		Refiner: &flatRefiner{value: 0.5},
		Decoder: decoder,
	}, SessionOptions{})

	done := make(chan error, 1)
	go func() {
		_, err := session.LoadAssets(path)
		done <- err
	}()

	// 1回目がデコード待ちに入ってから2回目を呼ぶ
	<-decoder.entered

	if _, err := session.LoadAssets(path); !errors.Is(err, ErrLoadInProgress) {
		t.Errorf("Expected ErrLoadInProgress, got %v", err)
	}

	close(decoder.release)
	if err := <-done; err == nil {
		t.Errorf("Expected first load to fail after release")
	}
}

func TestSession_RefreshGating(t *testing.T) {
	dir := t.TempDir()
	calls := make(chan struct{}, 8)
	session := NewSession(refine.Models{
		Refiner: &flatRefiner{value: 0.5, calls: calls},
	}, SessionOptions{RefreshInterval: 2 * time.Second})

	if _, err := session.LoadAssets(writeTestPly(t, dir)); err != nil {
		t.Fatalf("Expected error to be nil, got %q", err)
	}

	// 初回フレームは同期精細化
	base := time.Unix(100, 0)
	if err := session.Tick(base); err != nil {
		t.Fatalf("Expected error to be nil, got %q", err)
	}
	<-calls

	// 更新間隔の手前では再精細化しない
	if err := session.Tick(base.Add(time.Second)); err != nil {
		t.Fatalf("Expected error to be nil, got %q", err)
	}
	select {
	case <-calls:
		t.Errorf("Expected no refine before interval elapses")
	default:
	}

	// 間隔を超えるとバックグラウンドで1回だけ走る
	if err := session.Tick(base.Add(3 * time.Second)); err != nil {
		t.Fatalf("Expected error to be nil, got %q", err)
	}
	<-calls
}

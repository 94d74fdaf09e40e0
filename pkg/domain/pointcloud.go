package domain

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// LatentChannels 1頂点あたりの潜在特徴チャンネル数
	LatentChannels = 32
	// LatentTiles 潜在特徴タイル数(1パスで4チャンネルずつ描画する)
	LatentTiles = 8
	// TileChannels 1タイルあたりのチャンネル数
	TileChannels = 4
)

// shC0 球面調和関数の0次係数(DC項→RGB変換用)
const shC0 = 0.28209479177387814

// PointCloud Gaussian点群。読み込み時に一度だけ構築され、以降は変形行列によって
// 描画時に変換されるのみで、格納データ自体は変更されない
type PointCloud struct {
	Count     int
	Positions []float32 // 3N
	Colors    []float32 // 3N (SH DC項)
	Scales    []float32 // 3N (対数スケール)
	Opacities []float32 // N (ロジット)

	// リグ割当後に設定される
	BoneIndices []int32   // N
	BoneWeights []float32 // N (常に1.0)

	// テンプレートデコーダー出力(未設定の場合は nil)
	Latents []float32 // LatentChannels * N
}

func NewPointCloud(count int) *PointCloud {
	pc := &PointCloud{
		Count:       count,
		Positions:   make([]float32, count*3),
		Colors:      make([]float32, count*3),
		Scales:      make([]float32, count*3),
		Opacities:   make([]float32, count),
		BoneIndices: make([]int32, count),
		BoneWeights: make([]float32, count),
	}

	// リグ割当前は未割当(-1)
	for i := range pc.BoneIndices {
		pc.BoneIndices[i] = int32(BoneNone)
	}

	return pc
}

func (pc *PointCloud) PositionAt(i int) mgl32.Vec3 {
	return mgl32.Vec3{pc.Positions[i*3], pc.Positions[i*3+1], pc.Positions[i*3+2]}
}

func (pc *PointCloud) SetPositionAt(i int, v mgl32.Vec3) {
	pc.Positions[i*3] = v.X()
	pc.Positions[i*3+1] = v.Y()
	pc.Positions[i*3+2] = v.Z()
}

// ColorAt SH DC項をRGB([0,1])に変換して返す
func (pc *PointCloud) ColorAt(i int) mgl32.Vec3 {
	return mgl32.Vec3{
		clamp01(0.5 + shC0*pc.Colors[i*3]),
		clamp01(0.5 + shC0*pc.Colors[i*3+1]),
		clamp01(0.5 + shC0*pc.Colors[i*3+2]),
	}
}

// ScaleAt 対数スケールを指数変換して返す
func (pc *PointCloud) ScaleAt(i int) mgl32.Vec3 {
	return mgl32.Vec3{
		math32.Exp(pc.Scales[i*3]),
		math32.Exp(pc.Scales[i*3+1]),
		math32.Exp(pc.Scales[i*3+2]),
	}
}

// OpacityAt ロジットをシグモイドに通した不透明度([0,1])を返す
func (pc *PointCloud) OpacityAt(i int) float32 {
	return Sigmoid(pc.Opacities[i])
}

// LatentTileAt 指定タイルの4チャンネル分の潜在特徴を返す
func (pc *PointCloud) LatentTileAt(i, tile int) [TileChannels]float32 {
	var values [TileChannels]float32
	if pc.Latents == nil {
		return values
	}

	base := i*LatentChannels + tile*TileChannels
	copy(values[:], pc.Latents[base:base+TileChannels])
	return values
}

func Sigmoid(x float32) float32 {
	return 1.0 / (1.0 + math32.Exp(-x))
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Box3 軸並行バウンディングボックス。キャリブレーション時のみ使用する
type Box3 struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

func NewBox3FromPositions(positions []float32) Box3 {
	box := Box3{
		Min: mgl32.Vec3{math32.MaxFloat32, math32.MaxFloat32, math32.MaxFloat32},
		Max: mgl32.Vec3{-math32.MaxFloat32, -math32.MaxFloat32, -math32.MaxFloat32},
	}

	for i := 0; i+2 < len(positions); i += 3 {
		for axis := 0; axis < 3; axis++ {
			v := positions[i+axis]
			if v < box.Min[axis] {
				box.Min[axis] = v
			}
			if v > box.Max[axis] {
				box.Max[axis] = v
			}
		}
	}

	return box
}

func (b Box3) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b Box3) Size() mgl32.Vec3 {
	return b.Max.Sub(b.Min)
}

func (b Box3) Height() float32 {
	return b.Max.Y() - b.Min.Y()
}

func (b Box3) Width() float32 {
	return b.Max.X() - b.Min.X()
}

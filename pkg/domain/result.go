package domain

import (
	"github.com/go-gl/mathgl/mgl32"
)

// CalibrationResult 点群の正規化結果。Scale/Offset 適用後の点群は
// 身長約1.7、足元原点、左右前後センタリング済みとなる
type CalibrationResult struct {
	Scale   float32
	Offset  mgl32.Vec3
	Bounds  Box3
	Framing CameraFraming
}

// Height 正規化後の身長(Bounds は正規化後の値を保持している)
func (r *CalibrationResult) Height() float32 {
	return r.Bounds.Height()
}

// RigResult 自動リギングの結果一式
type RigResult struct {
	Skeleton       *Skeleton
	TemplatePoints []TemplatePoint
	// Mapping 点群頂点ごとの最近傍テンプレート頂点インデックス
	Mapping []int32
	// FromCache キャッシュされたマッピングを再利用した場合 true
	FromCache bool
}

// ApplyToCloud マッピングに従って点群へボーン割当を書き込む
func (r *RigResult) ApplyToCloud(cloud *PointCloud) {
	for i := 0; i < cloud.Count; i++ {
		tp := r.TemplatePoints[r.Mapping[i]]
		cloud.BoneIndices[i] = int32(tp.Bone)
		cloud.BoneWeights[i] = 1.0
	}
}

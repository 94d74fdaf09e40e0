package render

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/miu200521358/gaussian-avatar-1/pkg/domain"
)

const (
	// ガウス断面の標準偏差(ポイントスプライト座標系)
	splatSigma = 0.25
	// スプライト中心からの打ち切り半径
	splatCutoff = 0.5

	minPointPixels = 1.0
	maxPointPixels = 64.0
)

// SplatViewer 点群をスクリーンスペースのガウシアンスプラットとして
// オフスクリーンターゲットへ描画する。8つの潜在タイルを切り替えながら
// 同一フレームを複数パス描画する前提の構造
type SplatViewer struct {
	cloud        *domain.PointCloud
	framing      domain.CameraFraming
	activeTile   int
	boneMatrices domain.BoneMatrices
	target       *Target
}

func NewSplatViewer(cloud *domain.PointCloud, framing domain.CameraFraming) *SplatViewer {
	return &SplatViewer{
		cloud:        cloud,
		framing:      framing,
		activeTile:   0,
		boneMatrices: domain.NewBoneMatrices(),
		target:       NewTarget(domain.FeatureMapSize, domain.FeatureMapSize),
	}
}

// SetActiveTile 描画対象の潜在タイルを切り替える。
// 範囲外インデックスはエラーを返し、現在のタイルを維持する
func (v *SplatViewer) SetActiveTile(tile int) error {
	if tile < 0 || tile >= domain.LatentTiles {
		return fmt.Errorf("latent tile index out of range: %d", tile)
	}

	v.activeTile = tile
	return nil
}

func (v *SplatViewer) ActiveTile() int {
	return v.activeTile
}

// SetBoneMatrices ポーズ計算結果のスキニング行列を差し替える
func (v *SplatViewer) SetBoneMatrices(matrices domain.BoneMatrices) {
	v.boneMatrices = matrices
}

func (v *SplatViewer) SetFraming(framing domain.CameraFraming) {
	v.framing = framing
}

// RenderTile 現在の潜在タイルで全点を1パス描画する。
// 各点はボーン行列でスキニング後に射影され、ガウス減衰つきの
// ポイントスプライトとして不透明度を乗じて加算合成される
func (v *SplatViewer) RenderTile() *Target {
	v.target.Clear()

	view := v.framing.ViewMatrix()
	aspect := float32(v.framing.Width) / float32(v.framing.Height)
	proj := v.framing.ProjectionMatrix(aspect)

	width := float32(v.target.Width)
	height := float32(v.target.Height)

	// 垂直視野角から焦点距離(ピクセル)を求める
	focal := height / (2 * math32.Tan(mgl32.DegToRad(v.framing.FovDeg)/2))

	for i := 0; i < v.cloud.Count; i++ {
		// LBS(実質は単一ボーンの剛体スキニング)
		pos := v.cloud.PositionAt(i)
		if bone := v.cloud.BoneIndices[i]; bone >= 0 && int(bone) < domain.MaxBoneSlots {
			skinned := mgl32.TransformCoordinate(pos, v.boneMatrices[bone])
			pos = pos.Mul(1 - v.cloud.BoneWeights[i]).Add(skinned.Mul(v.cloud.BoneWeights[i]))
		}

		viewPos := mgl32.TransformCoordinate(pos, view)
		depth := -viewPos.Z()
		if depth <= 0.01 {
			continue
		}

		clip := proj.Mul4x1(viewPos.Vec4(1))
		if clip.W() == 0 {
			continue
		}
		ndcX := clip.X() / clip.W()
		ndcY := clip.Y() / clip.W()

		cx := (ndcX*0.5 + 0.5) * width
		cy := (1 - (ndcY*0.5 + 0.5)) * height

		// 3軸スケール平均をビュー深度で割ってピクセルサイズへ
		scale := v.cloud.ScaleAt(i)
		mean := (scale.X() + scale.Y() + scale.Z()) / 3
		size := mean * focal / depth
		if size < minPointPixels {
			size = minPointPixels
		} else if size > maxPointPixels {
			size = maxPointPixels
		}

		latent := v.cloud.LatentTileAt(i, v.activeTile)
		opacity := v.cloud.OpacityAt(i)

		v.splat(cx, cy, size, latent, opacity)
	}

	return v.target
}

// splat 1点分のガウススプライトをターゲットへ加算する
func (v *SplatViewer) splat(cx, cy, size float32, latent [domain.TileChannels]float32, opacity float32) {
	half := size / 2

	minX := int(math32.Floor(cx - half))
	maxX := int(math32.Ceil(cx + half))
	minY := int(math32.Floor(cy - half))
	maxY := int(math32.Ceil(cy + half))

	for py := minY; py <= maxY; py++ {
		for px := minX; px <= maxX; px++ {
			// スプライト内正規化座標([-0.5, 0.5])での距離
			dx := (float32(px) + 0.5 - cx) / size
			dy := (float32(py) + 0.5 - cy) / size
			distSq := dx*dx + dy*dy
			if distSq > splatCutoff*splatCutoff {
				continue
			}

			falloff := math32.Exp(-distSq / (2 * splatSigma * splatSigma))
			alpha := falloff * opacity

			v.target.Add(px, py,
				latent[0]*alpha, latent[1]*alpha, latent[2]*alpha, latent[3]*alpha)
		}
	}
}

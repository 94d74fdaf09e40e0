package usecase

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/miu200521358/gaussian-avatar-1/pkg/domain"
)

const (
	// 呼吸による胸の揺れ(振幅rad、周期約4秒)
	chestSwayAmplitude = 0.015
	chestSwayRate      = 2 * math.Pi / 4.0

	// 頭の2軸揺れ(振幅rad。軸ごとに角速度を変えて単調にしない)
	headSwayAmplitude = 0.01
	headSwayRateX     = 0.9
	headSwayRateY     = 1.3

	// リップシンクレベル1.0のときの顎の開き(rad)
	jawOpenFactor = 0.5

	// 肩のAポーズ固定オフセット(rad、Z軸)
	shoulderAPoseOffset = 0.06
)

// SolvePose 経過時間(秒)とリップシンクレベルから全ボーンのスキニング行列を
// 計算する。状態を持たず毎フレームゼロから再計算し、ボーン定義は変更しない。
// 回転は各ボーンの検出位置をピボットとして行われ、親の大域変換に合成される
func SolvePose(skeleton *domain.Skeleton, elapsed float64, lipLevel float32, overlay *domain.MotionOverlay) domain.BoneMatrices {
	matrices := domain.NewBoneMatrices()

	var globals [domain.NumBones]mgl32.Mat4

	for _, boneIndex := range domain.BoneSolveOrder {
		bone := skeleton.Bone(boneIndex)

		rotation := localRotation(boneIndex, elapsed, lipLevel)
		if overlay != nil {
			if q, ok := overlay.Sample(boneIndex, float32(elapsed)); ok {
				rotation = rotation.Mul4(q.Mat4())
			}
		}

		// ピボットへ寄せて回転して戻す
		pivot := bone.Position
		local := mgl32.Translate3D(pivot.X(), pivot.Y(), pivot.Z()).
			Mul4(rotation).
			Mul4(mgl32.Translate3D(-pivot.X(), -pivot.Y(), -pivot.Z()))

		if parent := boneIndex.Parent(); parent == domain.BoneNone {
			globals[boneIndex] = local
		} else {
			globals[boneIndex] = globals[parent].Mul4(local)
		}

		// バインドポーズが単位行列なのでスキニング行列は大域変換そのもの
		matrices[boneIndex] = globals[boneIndex]
	}

	return matrices
}

// localRotation ボーンごとの回転ポリシー
func localRotation(bone domain.BoneIndex, elapsed float64, lipLevel float32) mgl32.Mat4 {
	switch bone {
	case domain.BoneChest:
		angle := chestSwayAmplitude * math.Sin(elapsed*chestSwayRate)
		return mgl32.HomogRotate3DX(float32(angle))

	case domain.BoneHead:
		ax := headSwayAmplitude * math.Sin(elapsed*headSwayRateX)
		ay := headSwayAmplitude * math.Sin(elapsed*headSwayRateY)
		return mgl32.HomogRotate3DX(float32(ax)).Mul4(mgl32.HomogRotate3DY(float32(ay)))

	case domain.BoneJaw:
		return mgl32.HomogRotate3DX(jawOpenFactor * lipLevel)

	case domain.BoneLeftShoulder:
		return mgl32.HomogRotate3DZ(shoulderAPoseOffset)

	case domain.BoneRightShoulder:
		return mgl32.HomogRotate3DZ(-shoulderAPoseOffset)
	}

	// Hips/Spine/Neckは常に単位回転(ピボット連鎖のみ)
	return mgl32.Ident4()
}

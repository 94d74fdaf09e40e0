package domain

import (
	"github.com/go-gl/mathgl/mgl32"
)

type BoneIndex int

const (
	BoneNone BoneIndex = iota - 1
	BoneHips
	BoneSpine
	BoneChest
	BoneNeck
	BoneHead
	BoneJaw
	BoneLeftShoulder
	BoneRightShoulder
	NumBones
)

// MaxBoneSlots スキニング行列テーブルのスロット数(シェーダーの固定uniform配列長に合わせる)
const MaxBoneSlots = 64

// ボーン名はVRMヒューマノイド準拠
var boneNames = [NumBones]string{
	"hips",
	"spine",
	"chest",
	"neck",
	"head",
	"jaw",
	"leftShoulder",
	"rightShoulder",
}

func (b BoneIndex) String() string {
	if b < 0 || b >= NumBones {
		return "unknown"
	}
	return boneNames[b]
}

// 親子関係は固定テーブル(検出結果からは導出しない)
var boneParents = [NumBones]BoneIndex{
	BoneHips:          BoneNone,
	BoneSpine:         BoneHips,
	BoneChest:         BoneSpine,
	BoneNeck:          BoneChest,
	BoneHead:          BoneNeck,
	BoneJaw:           BoneHead,
	BoneLeftShoulder:  BoneChest,
	BoneRightShoulder: BoneChest,
}

func (b BoneIndex) Parent() BoneIndex {
	if b <= BoneHips || b >= NumBones {
		return BoneNone
	}
	return boneParents[b]
}

// BoneSolveOrder 親が必ず先に来る固定解決順(ルート→脊椎→首/頭/顎/肩)
var BoneSolveOrder = [NumBones]BoneIndex{
	BoneHips,
	BoneSpine,
	BoneChest,
	BoneNeck,
	BoneHead,
	BoneJaw,
	BoneLeftShoulder,
	BoneRightShoulder,
}

// Bone 検出済みボーン。Position はそのボーンの回転ピボットを兼ねる
type Bone struct {
	Index    BoneIndex
	Position mgl32.Vec3 // 検出された領域重心
	Radius   float32    // 検出された領域の広がり半径
}

// Skeleton 検出結果から構築される8ボーンの骨格。検出後は不変
type Skeleton struct {
	Bones [NumBones]Bone
}

func NewSkeleton() *Skeleton {
	s := &Skeleton{}
	for i := range s.Bones {
		s.Bones[i].Index = BoneIndex(i)
	}
	return s
}

func (s *Skeleton) Bone(index BoneIndex) *Bone {
	return &s.Bones[index]
}

// TemplatePoint リグ割当パス中のみ存在する合成テンプレート点
type TemplatePoint struct {
	Position mgl32.Vec3
	Bone     BoneIndex
}

// BoneMatrices スキニング行列テーブル。毎フレーム再計算され、未使用スロットは単位行列のまま
type BoneMatrices [MaxBoneSlots]mgl32.Mat4

func NewBoneMatrices() BoneMatrices {
	var matrices BoneMatrices
	for i := range matrices {
		matrices[i] = mgl32.Ident4()
	}
	return matrices
}

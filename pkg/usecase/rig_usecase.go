package usecase

import (
	"math"
	"sort"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"gonum.org/v1/gonum/stat"

	"github.com/miu200521358/gaussian-avatar-1/pkg/domain"
	"github.com/miu200521358/gaussian-avatar-1/pkg/infrastructure/mapping"
	"github.com/miu200521358/gaussian-avatar-1/pkg/mutils"
	"github.com/miu200521358/gaussian-avatar-1/pkg/mutils/mi18n"
	"github.com/miu200521358/gaussian-avatar-1/pkg/mutils/mlog"
)

const (
	// 顎候補の探索範囲(身長比)
	jawSearchHeightRatio = 0.08
	jawSearchWidthRatio  = 0.06
	// 顎クラスタとして採用する候補の下位Y割合と最低候補数
	jawLowestRatio   = 0.20
	jawMinCandidates = 8
	// 顎フォールバック時の首からのオフセットと半径(身長比)
	jawFallbackUpRatio    = 0.04
	jawFallbackFrontRatio = 0.05
	jawRadiusFloorRatio   = 0.03
	// 肩クラスタとして採用する胸帯域のX外側割合と半径下限(身長比)
	shoulderOuterRatio       = 0.20
	shoulderRadiusFloorRatio = 0.06
)

// boneBandConfig 高さ帯域によるボーン検出設定。
// 帯域は身長比、半径下限は標準身長(1.70)時の絶対値
type boneBandConfig struct {
	Bone        domain.BoneIndex
	BandMin     float32
	BandMax     float32
	RadiusFloor float32
}

var boneBandConfigs = []*boneBandConfig{
	{
		Bone:        domain.BoneHips,
		BandMin:     0.50,
		BandMax:     0.65,
		RadiusFloor: 0.12,
	},
	{
		Bone:        domain.BoneSpine,
		BandMin:     0.62,
		BandMax:     0.76,
		RadiusFloor: 0.11,
	},
	{
		Bone:        domain.BoneChest,
		BandMin:     0.75,
		BandMax:     0.88,
		RadiusFloor: 0.11,
	},
	{
		Bone:        domain.BoneNeck,
		BandMin:     0.85,
		BandMax:     0.93,
		RadiusFloor: 0.05,
	},
	{
		Bone:        domain.BoneHead,
		BandMin:     0.90,
		BandMax:     1.00,
		RadiusFloor: 0.09,
	},
}

// Rig 正規化済み点群へボーンを自動割当する。
// パス1: 高さ帯域検出で骨格を作り、パス2: 合成テンプレート点への
// 最近傍割当で全点にボーンを振る。キャッシュがあれば割当を省略する
func Rig(cloud *domain.PointCloud, calibration *domain.CalibrationResult, mappingPath string) (*domain.RigResult, error) {
	mlog.I("Start: Rig =============================")

	if cloud.Count == 0 {
		return nil, ErrEmptyPointCloud
	}

	height := calibration.Height()

	skeleton := detectSkeleton(cloud, height)
	mlog.I(mi18n.T("ボーン検出完了", map[string]interface{}{"Count": int(domain.NumBones)}))

	templates := generateTemplatePoints(skeleton)

	mapped, fromCache := loadMappingCache(mappingPath, cloud.Count, len(templates))
	if mapped == nil {
		var err error
		mapped, err = AssignNearestTemplate(cloud, templates)
		if err != nil {
			return nil, err
		}

		saveMappingCache(mappingPath, cloud.Count, templates, mapped)
	}

	result := &domain.RigResult{
		Skeleton:       skeleton,
		TemplatePoints: templates,
		Mapping:        mapped,
		FromCache:      fromCache,
	}
	result.ApplyToCloud(cloud)

	mlog.I(mi18n.T("ボーン割当完了", map[string]interface{}{
		"Count": cloud.Count, "Template": len(templates)}))

	mlog.I("End: Rig =============================")

	return result, nil
}

// detectSkeleton パス1: 高さ帯域ごとの重心と広がりからボーン位置を検出する
func detectSkeleton(cloud *domain.PointCloud, height float32) *domain.Skeleton {
	skeleton := domain.NewSkeleton()

	var chestBand []mgl32.Vec3

	for _, config := range boneBandConfigs {
		band := collectBand(cloud, config.BandMin*height, config.BandMax*height)
		if config.Bone == domain.BoneChest {
			chestBand = band
		}

		bone := skeleton.Bone(config.Bone)
		floor := config.RadiusFloor * height / TargetHeight

		if len(band) == 0 {
			// 帯域に点がない場合は帯域中央の軸上へ置く
			mlog.W("No points in band for %s, using band center", config.Bone)
			bone.Position = mgl32.Vec3{0, (config.BandMin + config.BandMax) / 2 * height, 0}
			bone.Radius = floor
			continue
		}

		bone.Position = centroidOf(band)
		bone.Radius = radiusOf(band, bone.Position, floor)
	}

	detectJaw(cloud, skeleton, height)
	detectShoulders(chestBand, skeleton, height)

	return skeleton
}

// collectBand Y帯域内の点を集める
func collectBand(cloud *domain.PointCloud, minY, maxY float32) []mgl32.Vec3 {
	var band []mgl32.Vec3
	for i := 0; i < cloud.Count; i++ {
		pos := cloud.PositionAt(i)
		if pos.Y() >= minY && pos.Y() <= maxY {
			band = append(band, pos)
		}
	}
	return band
}

// detectJaw 顎の特殊検出。首重心の上方・前方・狭いX範囲の候補のうち
// 最も低い2割を顎クラスタとする。候補不足時は首からの固定オフセット
func detectJaw(cloud *domain.PointCloud, skeleton *domain.Skeleton, height float32) {
	neck := skeleton.Bone(domain.BoneNeck)
	jaw := skeleton.Bone(domain.BoneJaw)

	var candidates []mgl32.Vec3
	for i := 0; i < cloud.Count; i++ {
		pos := cloud.PositionAt(i)
		dy := pos.Y() - neck.Position.Y()
		if dy <= 0 || dy > jawSearchHeightRatio*height {
			continue
		}
		if pos.Z() <= neck.Position.Z() {
			continue
		}
		if math32.Abs(pos.X()-neck.Position.X()) > jawSearchWidthRatio*height {
			continue
		}
		candidates = append(candidates, pos)
	}

	floor := jawRadiusFloorRatio * height

	if len(candidates) >= jawMinCandidates {
		// Y昇順で下位2割(顎先側)を採用
		sortCanonicalByY(candidates)
		n := (len(candidates) + 4) / 5
		cluster := candidates[:n]

		centroid := centroidOf(cluster)
		if isFiniteVec(centroid) {
			jaw.Position = centroid
			jaw.Radius = radiusOf(cluster, centroid, floor)
			return
		}
	}

	mlog.WT(mi18n.T("顎検出"), mi18n.T("顎フォールバック",
		map[string]interface{}{"Count": len(candidates)}))

	jaw.Position = neck.Position.Add(mgl32.Vec3{
		0, jawFallbackUpRatio * height, jawFallbackFrontRatio * height})
	jaw.Radius = floor
}

// detectShoulders 胸帯域をXでソートし、外側2割ずつを左右の肩クラスタとする
func detectShoulders(chestBand []mgl32.Vec3, skeleton *domain.Skeleton, height float32) {
	chest := skeleton.Bone(domain.BoneChest)
	left := skeleton.Bone(domain.BoneLeftShoulder)
	right := skeleton.Bone(domain.BoneRightShoulder)

	floor := shoulderRadiusFloorRatio * height

	if len(chestBand) == 0 {
		// 胸帯域が空なら胸位置から左右対称に置く
		offset := mgl32.Vec3{0.15 * height, 0, 0}
		left.Position = chest.Position.Sub(offset)
		right.Position = chest.Position.Add(offset)
		left.Radius = floor
		right.Radius = floor
		return
	}

	sorted := make([]mgl32.Vec3, len(chestBand))
	copy(sorted, chestBand)
	sortCanonicalByX(sorted)

	n := int(math.Ceil(float64(len(sorted)) * shoulderOuterRatio))
	if n < 1 {
		n = 1
	}

	// カメラへ向いた姿勢なので-X側が本人の左
	leftCluster := sorted[:n]
	rightCluster := sorted[len(sorted)-n:]

	left.Position = centroidOf(leftCluster)
	left.Radius = radiusOf(leftCluster, left.Position, floor)
	right.Position = centroidOf(rightCluster)
	right.Radius = radiusOf(rightCluster, right.Position, floor)
}

// generateTemplatePoints パス2: ボーンごとの形状つきサンプル点群を生成する。
// 顎は前方寄りの密な半シェル、その他は粗い部分球面ファン
func generateTemplatePoints(skeleton *domain.Skeleton) []domain.TemplatePoint {
	var points []domain.TemplatePoint

	for _, boneIndex := range domain.BoneSolveOrder {
		bone := skeleton.Bone(boneIndex)
		if boneIndex == domain.BoneJaw {
			points = append(points, jawShellPoints(bone)...)
		} else {
			points = append(points, sphereFanPoints(bone)...)
		}
	}

	return points
}

// sphereFanPoints 仰角±60°・方位360°を30°刻みで回る部分球面ファン
func sphereFanPoints(bone *domain.Bone) []domain.TemplatePoint {
	var points []domain.TemplatePoint

	for elev := -60; elev <= 60; elev += 30 {
		e := mgl32.DegToRad(float32(elev))
		for azim := 0; azim < 360; azim += 30 {
			a := mgl32.DegToRad(float32(azim))
			dir := mgl32.Vec3{
				math32.Cos(e) * math32.Cos(a),
				math32.Sin(e),
				math32.Cos(e) * math32.Sin(a),
			}
			points = append(points, domain.TemplatePoint{
				Position: bone.Position.Add(dir.Mul(bone.Radius)),
				Bone:     bone.Index,
			})
		}
	}

	return points
}

// jawShellPoints 前方(+Z)寄りの半シェル。方位±80°を20°刻み、仰角-40°〜0°を10°刻み
func jawShellPoints(bone *domain.Bone) []domain.TemplatePoint {
	var points []domain.TemplatePoint

	for azim := -80; azim <= 80; azim += 20 {
		a := mgl32.DegToRad(float32(azim))
		for elev := -40; elev <= 0; elev += 10 {
			e := mgl32.DegToRad(float32(elev))
			dir := mgl32.Vec3{
				math32.Cos(e) * math32.Sin(a),
				math32.Sin(e),
				math32.Cos(e) * math32.Cos(a),
			}
			points = append(points, domain.TemplatePoint{
				Position: bone.Position.Add(dir.Mul(bone.Radius)),
				Bone:     bone.Index,
			})
		}
	}

	return points
}

// loadMappingCache キャッシュを読み込んで検証する。欠落・不一致は警告して再計算へ
func loadMappingCache(mappingPath string, plyCount, templateCount int) ([]int32, bool) {
	if mappingPath == "" {
		return nil, false
	}

	if !mutils.ExistsPath(mappingPath) {
		mlog.WT(mi18n.T("マッピングキャッシュ"), mi18n.T("マッピングキャッシュなし",
			map[string]interface{}{"Path": mappingPath}))
		return nil, false
	}

	m, err := mapping.NewVertexMappingRepository().Load(mappingPath)
	if err != nil {
		mlog.W("Failed to load vertex mapping cache: %v", err)
		return nil, false
	}

	if err := m.Validate(plyCount, templateCount); err != nil {
		mlog.WT(mi18n.T("マッピングキャッシュ"), mi18n.T("マッピングキャッシュ不一致",
			map[string]interface{}{"Ply": m.PlyVertexCount, "Template": m.TemplateVertexCount}))
		return nil, false
	}

	return m.Mapping, true
}

// saveMappingCache 計算した割当をキャッシュへ書き戻す(ローカルパスのみ、失敗は警告)
func saveMappingCache(mappingPath string, plyCount int, templates []domain.TemplatePoint, mapped []int32) {
	if mappingPath == "" || mutils.IsURL(mappingPath) {
		return
	}

	m := &mapping.VertexMapping{
		PlyVertexCount:      plyCount,
		TemplateVertexCount: len(templates),
		Mapping:             mapped,
	}
	if err := mapping.NewVertexMappingRepository().Save(mappingPath, m); err != nil {
		mlog.W("Failed to save vertex mapping cache: %v", err)
	}
}

// centroidOf 点集合の重心。入力順に依存しないよう正準順に並べてから平均する
func centroidOf(points []mgl32.Vec3) mgl32.Vec3 {
	sorted := make([]mgl32.Vec3, len(points))
	copy(sorted, points)
	sortCanonicalByX(sorted)

	xs := make([]float64, len(sorted))
	ys := make([]float64, len(sorted))
	zs := make([]float64, len(sorted))
	for i, p := range sorted {
		xs[i] = float64(p.X())
		ys[i] = float64(p.Y())
		zs[i] = float64(p.Z())
	}

	return mgl32.Vec3{
		float32(stat.Mean(xs, nil)),
		float32(stat.Mean(ys, nil)),
		float32(stat.Mean(zs, nil)),
	}
}

// radiusOf 重心からの距離の二乗平均平方根。下限でクランプする。
// 重心と同じく入力順に依存しないよう正準順に並べてから平均する
func radiusOf(points []mgl32.Vec3, centroid mgl32.Vec3, floor float32) float32 {
	sorted := make([]mgl32.Vec3, len(points))
	copy(sorted, points)
	sortCanonicalByX(sorted)

	sq := make([]float64, len(sorted))
	for i, p := range sorted {
		d := p.Sub(centroid)
		sq[i] = float64(d.Dot(d))
	}

	radius := float32(math.Sqrt(stat.Mean(sq, nil)))
	if radius < floor {
		return floor
	}
	return radius
}

// sortCanonicalByX X→Y→Zの辞書順ソート(集合として同一なら同一順になる)
func sortCanonicalByX(points []mgl32.Vec3) {
	sort.Slice(points, func(i, j int) bool {
		if points[i].X() != points[j].X() {
			return points[i].X() < points[j].X()
		}
		if points[i].Y() != points[j].Y() {
			return points[i].Y() < points[j].Y()
		}
		return points[i].Z() < points[j].Z()
	})
}

// sortCanonicalByY Y→X→Zの辞書順ソート
func sortCanonicalByY(points []mgl32.Vec3) {
	sort.Slice(points, func(i, j int) bool {
		if points[i].Y() != points[j].Y() {
			return points[i].Y() < points[j].Y()
		}
		if points[i].X() != points[j].X() {
			return points[i].X() < points[j].X()
		}
		return points[i].Z() < points[j].Z()
	})
}

func isFiniteVec(v mgl32.Vec3) bool {
	for i := 0; i < 3; i++ {
		f := float64(v[i])
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

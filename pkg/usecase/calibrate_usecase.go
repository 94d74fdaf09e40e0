package usecase

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/miu200521358/gaussian-avatar-1/pkg/domain"
	"github.com/miu200521358/gaussian-avatar-1/pkg/mutils/mi18n"
	"github.com/miu200521358/gaussian-avatar-1/pkg/mutils/mlog"
)

const (
	// TargetHeight 正規化後の標準身長
	TargetHeight = 1.70

	// 視野に収める縦横の割合(縦は9割、横は余白込みで12割)
	verticalFitRatio   = 0.90
	horizontalFitRatio = 1.20

	// 注視点の高さ(身長比。上半身寄り)
	lookAtHeightRatio = 0.70
)

var (
	ErrEmptyPointCloud = errors.New("point cloud has no vertices")
	ErrFlatPointCloud  = errors.New("point cloud has no height")
)

// Calibrate 点群を標準身長・足元原点・左右前後センタリングへ正規化し、
// 全身が収まるカメラ配置を求める
func Calibrate(cloud *domain.PointCloud, targetHeight float32) (*domain.CalibrationResult, error) {
	mlog.I("Start: Calibrate =============================")

	if cloud.Count == 0 {
		return nil, ErrEmptyPointCloud
	}
	if targetHeight <= 0 {
		targetHeight = TargetHeight
	}

	rawBox := domain.NewBox3FromPositions(cloud.Positions)
	rawHeight := rawBox.Height()
	if rawHeight <= 0 {
		return nil, ErrFlatPointCloud
	}

	scale := targetHeight / rawHeight
	center := rawBox.Center()
	offset := mgl32.Vec3{center.X(), rawBox.Min.Y(), center.Z()}

	for i := 0; i < cloud.Count; i++ {
		pos := cloud.PositionAt(i)
		cloud.SetPositionAt(i, pos.Sub(offset).Mul(scale))
	}

	normBox := domain.NewBox3FromPositions(cloud.Positions)
	framing := autoFraming(normBox)

	mlog.I(mi18n.T("キャリブレーション完了", map[string]interface{}{
		"Height": fmt.Sprintf("%.3f", rawHeight),
		"Target": fmt.Sprintf("%.2f", targetHeight),
		"Scale":  fmt.Sprintf("%.4f", scale),
	}))

	mlog.I("End: Calibrate =============================")

	return &domain.CalibrationResult{
		Scale:   scale,
		Offset:  offset,
		Bounds:  normBox,
		Framing: framing,
	}, nil
}

// autoFraming 正規化済みバウンディングボックスからカメラ配置を決める。
// 縦は身長の9割、横は幅の12割が視野に入る距離の大きい方を採用する
func autoFraming(box domain.Box3) domain.CameraFraming {
	framing := domain.NewCameraFramingFromConfig(nil)

	height := box.Height()
	width := box.Width()

	halfFov := mgl32.DegToRad(framing.FovDeg) / 2
	tanV := math32.Tan(halfFov)
	tanH := tanV * float32(framing.Width) / float32(framing.Height)

	distV := verticalFitRatio * height / 2 / tanV
	distH := horizontalFitRatio * width / 2 / tanH
	dist := distV
	if distH > dist {
		dist = distH
	}

	lookAtY := box.Min.Y() + height*lookAtHeightRatio

	framing.Target = mgl32.Vec3{0, lookAtY, 0}
	framing.Position = mgl32.Vec3{0, lookAtY, dist}

	return framing
}

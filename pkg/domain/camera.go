package domain

import (
	"github.com/go-gl/mathgl/mgl32"
)

type CameraVector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v CameraVector) Vec3() mgl32.Vec3 {
	return mgl32.Vec3{float32(v.X), float32(v.Y), float32(v.Z)}
}

// CameraConfig カメラ設定ファイル(JSON)の内容
type CameraConfig struct {
	Position    CameraVector `json:"position"`
	Target      CameraVector `json:"target"`
	Fov         float64      `json:"fov"`
	ImageWidth  int          `json:"imageWidth"`
	ImageHeight int          `json:"imageHeight"`
}

// CameraFraming 描画に使う確定済みカメラ配置
type CameraFraming struct {
	Position mgl32.Vec3
	Target   mgl32.Vec3
	FovDeg   float32
	Width    int
	Height   int
}

func (f CameraFraming) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(f.Position, f.Target, mgl32.Vec3{0, 1, 0})
}

func (f CameraFraming) ProjectionMatrix(aspect float32) mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(f.FovDeg), aspect, 0.01, 100.0)
}

// NewCameraFramingFromConfig 設定ファイルからカメラ配置を組み立てる。
// 設定なし・欠落値はデフォルト(fov 40度、512x512)で補う
func NewCameraFramingFromConfig(config *CameraConfig) CameraFraming {
	if config == nil {
		config = &CameraConfig{}
	}

	framing := CameraFraming{
		Position: config.Position.Vec3(),
		Target:   config.Target.Vec3(),
		FovDeg:   float32(config.Fov),
		Width:    config.ImageWidth,
		Height:   config.ImageHeight,
	}
	if framing.FovDeg <= 0 {
		framing.FovDeg = 40
	}
	if framing.Width <= 0 {
		framing.Width = 512
	}
	if framing.Height <= 0 {
		framing.Height = 512
	}
	return framing
}

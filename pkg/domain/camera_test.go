package domain

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestNewCameraFramingFromConfig(t *testing.T) {
	{
		// 設定なしはデフォルト値
		framing := NewCameraFramingFromConfig(nil)
		if framing.FovDeg != 40 {
			t.Errorf("Expected default fov 40, got %v", framing.FovDeg)
		}
		if framing.Width != 512 || framing.Height != 512 {
			t.Errorf("Expected default size 512x512, got %vx%v", framing.Width, framing.Height)
		}
	}

	{
		config := &CameraConfig{
			Position:    CameraVector{X: 0, Y: 1, Z: 3},
			Target:      CameraVector{X: 0, Y: 1, Z: 0},
			Fov:         30,
			ImageWidth:  256,
			ImageHeight: 256,
		}
		framing := NewCameraFramingFromConfig(config)
		if framing.FovDeg != 30 {
			t.Errorf("Expected fov 30, got %v", framing.FovDeg)
		}
		expected := mgl32.Vec3{0, 1, 3}
		if framing.Position != expected {
			t.Errorf("Expected position %v, got %v", expected, framing.Position)
		}
	}
}

func TestCameraFraming_ViewMatrix(t *testing.T) {
	framing := &CameraFraming{
		Position: mgl32.Vec3{0, 1, 3},
		Target:   mgl32.Vec3{0, 1, 0},
		FovDeg:   40,
		Width:    512,
		Height:   512,
	}

	view := framing.ViewMatrix()

	// 注視点はカメラ空間で -Z 軸上、距離3
	p := mgl32.TransformCoordinate(framing.Target, view)
	if math.Abs(float64(p[0])) > 1e-5 || math.Abs(float64(p[1])) > 1e-5 {
		t.Errorf("Expected target on view axis, got %v", p)
	}
	if math.Abs(float64(p[2])+3) > 1e-5 {
		t.Errorf("Expected view depth -3, got %v", p[2])
	}
}

func TestCameraFraming_ProjectionMatrix(t *testing.T) {
	framing := &CameraFraming{
		Position: mgl32.Vec3{0, 0, 3},
		Target:   mgl32.Vec3{0, 0, 0},
		FovDeg:   40,
		Width:    512,
		Height:   512,
	}

	proj := framing.ProjectionMatrix(1)

	// 垂直視野角の境界はクリップ空間で y = ±1 に射影される
	halfFov := float64(mgl32.DegToRad(20))
	y := float32(math.Tan(halfFov)) * 3
	clip := mgl32.TransformCoordinate(mgl32.Vec3{0, y, -3}, proj)
	if math.Abs(float64(clip[1])-1) > 1e-4 {
		t.Errorf("Expected clip y 1 at fov edge, got %v", clip[1])
	}
}

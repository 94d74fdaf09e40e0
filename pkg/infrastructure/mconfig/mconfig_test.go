package mconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCameraConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "avatar_camera.json")
	data := `{
		"position": {"x": 0, "y": 1.2, "z": 2.5},
		"target": {"x": 0, "y": 1.1, "z": 0},
		"fov": 35,
		"imageWidth": 512,
		"imageHeight": 512
	}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("Expected error to be nil, got %q", err)
	}

	config, err := LoadCameraConfig(path)
	if err != nil {
		t.Fatalf("Expected error to be nil, got %q", err)
	}

	if config.Fov != 35 {
		t.Errorf("Expected fov 35, got %v", config.Fov)
	}
	if config.Position.Y != 1.2 || config.Position.Z != 2.5 {
		t.Errorf("Expected position (0, 1.2, 2.5), got %+v", config.Position)
	}
	if config.ImageWidth != 512 || config.ImageHeight != 512 {
		t.Errorf("Expected image size 512x512, got %dx%d", config.ImageWidth, config.ImageHeight)
	}

	if _, err := LoadCameraConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Errorf("Expected error for missing camera config")
	}
}

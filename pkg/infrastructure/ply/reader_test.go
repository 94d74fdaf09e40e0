package ply

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"testing"
)

func buildPly(propNames []string, records [][]float32) []byte {
	var buf bytes.Buffer

	buf.WriteString("ply\n")
	buf.WriteString("format binary_little_endian 1.0\n")
	buf.WriteString("comment generated for test\n")
	fmt.Fprintf(&buf, "element vertex %d\n", len(records))
	for _, name := range propNames {
		fmt.Fprintf(&buf, "property float %s\n", name)
	}
	buf.WriteString("end_header\n")

	b := make([]byte, 4)
	for _, record := range records {
		for _, v := range record {
			binary.LittleEndian.PutUint32(b, math.Float32bits(v))
			buf.Write(b)
		}
	}

	return buf.Bytes()
}

func TestPointCloudRepository_ReadFullProperties(t *testing.T) {
	props := []string{
		"x", "y", "z",
		"f_dc_0", "f_dc_1", "f_dc_2",
		"scale_0", "scale_1", "scale_2",
		"opacity",
	}
	records := [][]float32{
		{1, 2, 3, 0.1, 0.2, 0.3, -1, -2, -3, 0.5},
		{4, 5, 6, 0.4, 0.5, 0.6, -4, -5, -6, -0.5},
	}

	cloud, err := NewPointCloudRepository().Read(bytes.NewReader(buildPly(props, records)))
	if err != nil {
		t.Fatalf("Expected error to be nil, got %q", err)
	}

	if cloud.Count != 2 {
		t.Errorf("Expected 2 vertices, got %d", cloud.Count)
	}
	if len(cloud.Positions) != 6 || len(cloud.Colors) != 6 || len(cloud.Scales) != 6 {
		t.Errorf("Expected arrays sized 3*N, got %d/%d/%d",
			len(cloud.Positions), len(cloud.Colors), len(cloud.Scales))
	}
	if len(cloud.Opacities) != 2 {
		t.Errorf("Expected opacities sized N, got %d", len(cloud.Opacities))
	}

	if cloud.Positions[3] != 4 || cloud.Positions[4] != 5 || cloud.Positions[5] != 6 {
		t.Errorf("Expected second position (4, 5, 6), got %v", cloud.Positions[3:6])
	}
	if cloud.Colors[0] != 0.1 || cloud.Scales[2] != -3 {
		t.Errorf("Expected colors/scales in declared order, got %v %v",
			cloud.Colors[:3], cloud.Scales[:3])
	}
	if cloud.Opacities[1] != -0.5 {
		t.Errorf("Expected opacity -0.5, got %v", cloud.Opacities[1])
	}
}

func TestPointCloudRepository_ReadPositionsOnly(t *testing.T) {
	// 高さ0〜1.8の4点。オプションプロパティ省略時は0埋め
	records := [][]float32{
		{0, 0, 0},
		{0.1, 0.6, 0},
		{-0.1, 1.2, 0.1},
		{0, 1.8, 0},
	}

	cloud, err := NewPointCloudRepository().Read(bytes.NewReader(buildPly([]string{"x", "y", "z"}, records)))
	if err != nil {
		t.Fatalf("Expected error to be nil, got %q", err)
	}

	if cloud.Count != 4 {
		t.Errorf("Expected 4 vertices, got %d", cloud.Count)
	}
	if cloud.Positions[1*3+1] != 0.6 || cloud.Positions[3*3+1] != 1.8 {
		t.Errorf("Expected heights 0.6 and 1.8, got %v and %v",
			cloud.Positions[1*3+1], cloud.Positions[3*3+1])
	}

	for i, v := range cloud.Colors {
		if v != 0 {
			t.Errorf("Expected color[%d] to default to 0, got %v", i, v)
		}
	}
	for i, v := range cloud.Opacities {
		if v != 0 {
			t.Errorf("Expected opacity[%d] to default to 0, got %v", i, v)
		}
	}
}

func TestPointCloudRepository_ReadSkipsUnknownProperties(t *testing.T) {
	props := []string{"x", "y", "z", "nx", "ny", "nz", "f_dc_0", "f_dc_1", "f_dc_2", "f_rest_0"}
	records := [][]float32{
		{1, 2, 3, 9, 9, 9, 0.1, 0.2, 0.3, 9},
	}

	cloud, err := NewPointCloudRepository().Read(bytes.NewReader(buildPly(props, records)))
	if err != nil {
		t.Fatalf("Expected error to be nil, got %q", err)
	}

	if cloud.Positions[0] != 1 || cloud.Positions[2] != 3 {
		t.Errorf("Expected position (1, 2, 3), got %v", cloud.Positions[:3])
	}
	if cloud.Colors[0] != 0.1 || cloud.Colors[2] != 0.3 {
		t.Errorf("Expected colors despite interleaved normals, got %v", cloud.Colors[:3])
	}
}

func TestPointCloudRepository_ReadErrors(t *testing.T) {
	{
		// 頂点数なし
		data := []byte("ply\nformat binary_little_endian 1.0\nend_header\n")
		if _, err := NewPointCloudRepository().Read(bytes.NewReader(data)); !errors.Is(err, ErrNoVertexCount) {
			t.Errorf("Expected ErrNoVertexCount, got %v", err)
		}
	}

	{
		// end_header なし
		data := []byte("ply\nelement vertex 1\nproperty float x\n")
		if _, err := NewPointCloudRepository().Read(bytes.NewReader(data)); !errors.Is(err, ErrNoEndHeader) {
			t.Errorf("Expected ErrNoEndHeader, got %v", err)
		}
	}

	{
		// float 以外のプロパティ型
		data := []byte("ply\nelement vertex 1\nproperty uchar red\nend_header\n")
		if _, err := NewPointCloudRepository().Read(bytes.NewReader(data)); !errors.Is(err, ErrPropertyType) {
			t.Errorf("Expected ErrPropertyType, got %v", err)
		}
	}

	{
		// バイナリ不足
		data := buildPly([]string{"x", "y", "z"}, [][]float32{{1, 2, 3}})
		if _, err := NewPointCloudRepository().Read(bytes.NewReader(data[:len(data)-4])); err == nil {
			t.Errorf("Expected error for truncated binary records")
		}
	}
}

func TestPointCloudRepository_SaveLoad(t *testing.T) {
	cloud, err := NewPointCloudRepository().Read(bytes.NewReader(buildPly(
		[]string{"x", "y", "z", "opacity"},
		[][]float32{
			{1, 2, 3, 0.5},
			{-1, -2, -3, -0.5},
		})))
	if err != nil {
		t.Fatalf("Expected error to be nil, got %q", err)
	}

	path := filepath.Join(t.TempDir(), "cloud.ply")
	rep := NewPointCloudRepository()
	if err := rep.Save(path, cloud); err != nil {
		t.Fatalf("Expected error to be nil, got %q", err)
	}

	loaded, err := rep.Load(path)
	if err != nil {
		t.Fatalf("Expected error to be nil, got %q", err)
	}

	if loaded.Count != cloud.Count {
		t.Errorf("Expected %d vertices, got %d", cloud.Count, loaded.Count)
	}
	for i := range cloud.Positions {
		if loaded.Positions[i] != cloud.Positions[i] {
			t.Errorf("Expected position[%d] %v, got %v", i, cloud.Positions[i], loaded.Positions[i])
		}
	}
	for i := range cloud.Opacities {
		if loaded.Opacities[i] != cloud.Opacities[i] {
			t.Errorf("Expected opacity[%d] %v, got %v", i, cloud.Opacities[i], loaded.Opacities[i])
		}
	}
}

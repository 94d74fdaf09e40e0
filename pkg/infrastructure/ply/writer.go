package ply

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/miu200521358/gaussian-avatar-1/pkg/domain"
)

// Save 点群をPLYバイナリとして書き出す(デバッグ用途)。
// 読み込み時に省略されていたプロパティも0値のまま全列を出力する
func (r *PointCloudRepository) Save(path string, cloud *domain.PointCloud) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	bw := bufio.NewWriter(file)

	fmt.Fprintln(bw, "ply")
	fmt.Fprintln(bw, "format binary_little_endian 1.0")
	fmt.Fprintf(bw, "element vertex %d\n", cloud.Count)
	for _, name := range []string{
		"x", "y", "z",
		"f_dc_0", "f_dc_1", "f_dc_2",
		"scale_0", "scale_1", "scale_2",
		"opacity",
	} {
		fmt.Fprintf(bw, "property float %s\n", name)
	}
	fmt.Fprintln(bw, "end_header")

	record := make([]byte, 10*4)
	for i := 0; i < cloud.Count; i++ {
		values := []float32{
			cloud.Positions[i*3], cloud.Positions[i*3+1], cloud.Positions[i*3+2],
			cloud.Colors[i*3], cloud.Colors[i*3+1], cloud.Colors[i*3+2],
			cloud.Scales[i*3], cloud.Scales[i*3+1], cloud.Scales[i*3+2],
			cloud.Opacities[i],
		}
		for vi, v := range values {
			binary.LittleEndian.PutUint32(record[vi*4:], math.Float32bits(v))
		}
		if _, err := bw.Write(record); err != nil {
			return fmt.Errorf("failed to write vertex %d: %w", i, err)
		}
	}

	return bw.Flush()
}

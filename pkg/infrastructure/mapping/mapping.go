package mapping

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/miu200521358/gaussian-avatar-1/pkg/mutils"
)

// VertexMapping 点群頂点→最近傍テンプレート頂点の事前計算キャッシュ
type VertexMapping struct {
	PlyVertexCount      int     `json:"plyVertexCount"`
	TemplateVertexCount int     `json:"templateVertexCount"`
	Mapping             []int32 `json:"mapping"`
}

// Validate 対象の点群・テンプレートと頂点数が一致しているか確認する
func (m *VertexMapping) Validate(plyCount, templateCount int) error {
	if m.PlyVertexCount != plyCount {
		return fmt.Errorf("ply vertex count mismatch: cache %d, cloud %d", m.PlyVertexCount, plyCount)
	}
	if m.TemplateVertexCount != templateCount {
		return fmt.Errorf("template vertex count mismatch: cache %d, template %d", m.TemplateVertexCount, templateCount)
	}
	if len(m.Mapping) != plyCount {
		return fmt.Errorf("mapping length mismatch: cache %d, cloud %d", len(m.Mapping), plyCount)
	}
	for i, ti := range m.Mapping {
		if ti < 0 || int(ti) >= templateCount {
			return fmt.Errorf("mapping[%d] out of range: %d", i, ti)
		}
	}
	return nil
}

// VertexMappingRepository マッピングキャッシュ(JSON)の読み書き
type VertexMappingRepository struct{}

func NewVertexMappingRepository() *VertexMappingRepository {
	return &VertexMappingRepository{}
}

// Load パスまたはURLからキャッシュを読み込む
func (r *VertexMappingRepository) Load(path string) (*VertexMapping, error) {
	data, err := mutils.ReadAllFromPath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vertex mapping %s: %w", path, err)
	}

	m := new(VertexMapping)
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to decode vertex mapping %s: %w", path, err)
	}

	return m, nil
}

// Save 計算済みマッピングをキャッシュとして書き出す
func (r *VertexMappingRepository) Save(path string, m *VertexMapping) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode vertex mapping: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write vertex mapping %s: %w", path, err)
	}

	return nil
}

package mapping

import (
	"path/filepath"
	"testing"
)

func TestVertexMapping_Validate(t *testing.T) {
	m := &VertexMapping{
		PlyVertexCount:      3,
		TemplateVertexCount: 5,
		Mapping:             []int32{0, 4, 2},
	}

	if err := m.Validate(3, 5); err != nil {
		t.Errorf("Expected error to be nil, got %q", err)
	}
	if err := m.Validate(4, 5); err == nil {
		t.Errorf("Expected error for ply count mismatch")
	}
	if err := m.Validate(3, 4); err == nil {
		t.Errorf("Expected error for template count mismatch")
	}

	m.Mapping[1] = 5
	if err := m.Validate(3, 5); err == nil {
		t.Errorf("Expected error for out-of-range template index")
	}
}

func TestVertexMappingRepository_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "avatar_mapping.json")
	rep := NewVertexMappingRepository()

	saved := &VertexMapping{
		PlyVertexCount:      4,
		TemplateVertexCount: 10,
		Mapping:             []int32{0, 3, 9, 3},
	}
	if err := rep.Save(path, saved); err != nil {
		t.Fatalf("Expected error to be nil, got %q", err)
	}

	loaded, err := rep.Load(path)
	if err != nil {
		t.Fatalf("Expected error to be nil, got %q", err)
	}

	if loaded.PlyVertexCount != 4 || loaded.TemplateVertexCount != 10 {
		t.Errorf("Expected counts 4/10, got %d/%d", loaded.PlyVertexCount, loaded.TemplateVertexCount)
	}
	for i, v := range saved.Mapping {
		if loaded.Mapping[i] != v {
			t.Errorf("Expected mapping[%d] %d, got %d", i, v, loaded.Mapping[i])
		}
	}

	if _, err := rep.Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Errorf("Expected error for missing cache file")
	}
}

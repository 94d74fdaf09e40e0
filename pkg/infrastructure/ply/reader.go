package ply

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/miu200521358/gaussian-avatar-1/pkg/domain"
	"github.com/miu200521358/gaussian-avatar-1/pkg/mutils"
)

var (
	// ErrNoVertexCount ヘッダに element vertex 行が存在しない
	ErrNoVertexCount = errors.New("ply: no vertex count in header")
	// ErrNoEndHeader end_header 終端が存在しない
	ErrNoEndHeader = errors.New("ply: no end_header sentinel")
	// ErrPropertyType float 以外の頂点プロパティ型
	ErrPropertyType = errors.New("ply: unsupported property type")
)

// 既知プロパティの転記先
type propertyTarget int

const (
	targetSkip propertyTarget = iota
	targetPosition
	targetColor
	targetScale
	targetOpacity
)

type property struct {
	name      string
	target    propertyTarget
	component int
}

// PointCloudRepository ガウシアンスプラット点群(PLYバイナリ)の読み書き
type PointCloudRepository struct{}

func NewPointCloudRepository() *PointCloudRepository {
	return &PointCloudRepository{}
}

// Load パスまたはURLから点群を読み込む
func (r *PointCloudRepository) Load(path string) (*domain.PointCloud, error) {
	data, err := mutils.ReadAllFromPath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read point cloud %s: %w", path, err)
	}

	return r.Read(bytes.NewReader(data))
}

// Read ASCIIヘッダとバイナリレコードを順に読み取る。
// 省略された既知プロパティは0のまま、未知のfloatプロパティは読み飛ばす
func (r *PointCloudRepository) Read(reader io.Reader) (*domain.PointCloud, error) {
	br := bufio.NewReader(reader)

	vertexCount, properties, err := readHeader(br)
	if err != nil {
		return nil, err
	}

	cloud := domain.NewPointCloud(vertexCount)

	record := make([]byte, len(properties)*4)
	for i := 0; i < vertexCount; i++ {
		if _, err := io.ReadFull(br, record); err != nil {
			return nil, fmt.Errorf("failed to read vertex %d/%d: %w", i, vertexCount, err)
		}

		for pi, p := range properties {
			if p.target == targetSkip {
				continue
			}

			v := math.Float32frombits(binary.LittleEndian.Uint32(record[pi*4:]))
			switch p.target {
			case targetPosition:
				cloud.Positions[i*3+p.component] = v
			case targetColor:
				cloud.Colors[i*3+p.component] = v
			case targetScale:
				cloud.Scales[i*3+p.component] = v
			case targetOpacity:
				cloud.Opacities[i] = v
			}
		}
	}

	return cloud, nil
}

func readHeader(br *bufio.Reader) (int, []property, error) {
	vertexCount := -1
	inVertexElement := false
	var properties []property

	for {
		line, err := br.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return 0, nil, ErrNoEndHeader
			}
			return 0, nil, fmt.Errorf("failed to read header: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "end_header" {
			break
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "element":
			if len(fields) == 3 && fields[1] == "vertex" {
				n, err := strconv.Atoi(fields[2])
				if err != nil {
					return 0, nil, fmt.Errorf("ply: invalid vertex count %q: %w", fields[2], err)
				}
				vertexCount = n
				inVertexElement = true
			} else {
				// 頂点以外の要素(face等)のプロパティは対象外
				inVertexElement = false
			}
		case "property":
			if !inVertexElement {
				continue
			}
			if len(fields) != 3 || fields[1] != "float" {
				return 0, nil, fmt.Errorf("%w: %s", ErrPropertyType, line)
			}
			properties = append(properties, newProperty(fields[2]))
		}
	}

	if vertexCount < 0 {
		return 0, nil, ErrNoVertexCount
	}

	return vertexCount, properties, nil
}

func newProperty(name string) property {
	p := property{name: name, target: targetSkip}

	switch name {
	case "x", "y", "z":
		p.target = targetPosition
		p.component = int(name[0] - 'x')
	case "f_dc_0", "f_dc_1", "f_dc_2":
		p.target = targetColor
		p.component = int(name[5] - '0')
	case "scale_0", "scale_1", "scale_2":
		p.target = targetScale
		p.component = int(name[6] - '0')
	case "opacity":
		p.target = targetOpacity
	}

	return p
}

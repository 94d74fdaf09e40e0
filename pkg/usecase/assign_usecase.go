package usecase

import (
	"github.com/go-gl/mathgl/mgl32"
	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/miu200521358/gaussian-avatar-1/pkg/domain"
	"github.com/miu200521358/gaussian-avatar-1/pkg/mutils"
	"github.com/miu200521358/gaussian-avatar-1/pkg/mutils/miter"
)

// templateNode kd木に載せるテンプレート頂点
type templateNode struct {
	pos   [3]float64
	index int32
}

func newTemplateNode(p mgl32.Vec3, index int32) templateNode {
	return templateNode{
		pos:   [3]float64{float64(p.X()), float64(p.Y()), float64(p.Z())},
		index: index,
	}
}

func (n templateNode) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(templateNode)
	return n.pos[d] - q.pos[d]
}

func (n templateNode) Dims() int {
	return 3
}

// Distance ユークリッド距離の二乗
func (n templateNode) Distance(c kdtree.Comparable) float64 {
	q := c.(templateNode)
	dx := n.pos[0] - q.pos[0]
	dy := n.pos[1] - q.pos[1]
	dz := n.pos[2] - q.pos[2]
	return dx*dx + dy*dy + dz*dz
}

type templateNodes []templateNode

func (t templateNodes) Index(i int) kdtree.Comparable {
	return t[i]
}

func (t templateNodes) Len() int {
	return len(t)
}

func (t templateNodes) Pivot(d kdtree.Dim) int {
	return templatePlane{Dim: d, nodes: t}.Pivot()
}

func (t templateNodes) Slice(start, end int) kdtree.Interface {
	return t[start:end]
}

// templatePlane kd木構築時の分割面
type templatePlane struct {
	kdtree.Dim
	nodes templateNodes
}

func (p templatePlane) Less(i, j int) bool {
	return p.nodes[i].pos[p.Dim] < p.nodes[j].pos[p.Dim]
}

func (p templatePlane) Pivot() int {
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

func (p templatePlane) Slice(start, end int) kdtree.SortSlicer {
	p.nodes = p.nodes[start:end]
	return p
}

func (p templatePlane) Swap(i, j int) {
	p.nodes[i], p.nodes[j] = p.nodes[j], p.nodes[i]
}

// AssignNearestTemplate 各点を最近傍テンプレート頂点へ割り当てる(kd木)。
// 結果は総当たり版と一致する
func AssignNearestTemplate(cloud *domain.PointCloud, templates []domain.TemplatePoint) ([]int32, error) {
	nodes := make(templateNodes, len(templates))
	for ti, tp := range templates {
		nodes[ti] = newTemplateNode(tp.Position, int32(ti))
	}

	tree := kdtree.New(nodes, false)

	mapping := make([]int32, cloud.Count)
	bar := mutils.NewProgressBar(cloud.Count)

	blockSize, _ := miter.GetBlockSize(cloud.Count)
	err := miter.IterParallelByCount(cloud.Count, blockSize, func(i int) {
		defer bar.Increment()

		query := newTemplateNode(cloud.PositionAt(i), -1)
		nearest, _ := tree.Nearest(query)
		mapping[i] = nearest.(templateNode).index
	}, nil)

	bar.Finish()

	if err != nil {
		return nil, err
	}
	return mapping, nil
}

// AssignNearestTemplateBrute 総当たりO(N×M)の最近傍割当。
// kd木版の検証基準であり、マッピングキャッシュ欠落時のフォールバックでもある
func AssignNearestTemplateBrute(cloud *domain.PointCloud, templates []domain.TemplatePoint) ([]int32, error) {
	nodes := make(templateNodes, len(templates))
	for ti, tp := range templates {
		nodes[ti] = newTemplateNode(tp.Position, int32(ti))
	}

	mapping := make([]int32, cloud.Count)
	bar := mutils.NewProgressBar(cloud.Count)

	blockSize, _ := miter.GetBlockSize(cloud.Count)
	err := miter.IterParallelByCount(cloud.Count, blockSize, func(i int) {
		defer bar.Increment()

		query := newTemplateNode(cloud.PositionAt(i), -1)

		best := int32(0)
		bestDist := query.Distance(nodes[0])
		for ti := 1; ti < len(nodes); ti++ {
			if d := query.Distance(nodes[ti]); d < bestDist {
				bestDist = d
				best = int32(ti)
			}
		}
		mapping[i] = best
	}, nil)

	bar.Finish()

	if err != nil {
		return nil, err
	}
	return mapping, nil
}

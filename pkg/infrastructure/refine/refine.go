package refine

import (
	"path/filepath"

	"github.com/miu200521358/gaussian-avatar-1/pkg/domain"
)

const (
	// IdentityEmbeddingSize 写真1枚を要約したアイデンティティ埋め込みの次元数
	IdentityEmbeddingSize = 512
)

// Refiner 粗特徴マップとアイデンティティ埋め込みから最終RGB画像を生成する
type Refiner interface {
	Refine(features *domain.FeatureMap, identity []float32) (*domain.RGBImage, error)
}

// ImageEncoder 元写真をアイデンティティ埋め込みへ変換する
type ImageEncoder interface {
	Encode(photo *domain.RGBImage) ([]float32, error)
}

// TemplateDecoder アイデンティティ埋め込みからテンプレート頂点ごとの
// 32チャンネル潜在特徴を生成する
type TemplateDecoder interface {
	Decode(identity []float32) ([]float32, int, error)
}

// Models ニューラルモデル一式。個別にフォールバック実装へ差し替え可能
type Models struct {
	Refiner Refiner
	Encoder ImageEncoder
	Decoder TemplateDecoder
}

// OpenModels ディレクトリからONNXモデル一式を開く。未指定ならフォールバック合成用の
// 空のModelsを返す。戻り値のクローザで全モデルを解放する
func OpenModels(dir string) (Models, func(), error) {
	if dir == "" {
		return Models{}, func() {}, nil
	}

	refiner, err := NewOnnxRefiner(filepath.Join(dir, "refiner.onnx"))
	if err != nil {
		return Models{}, nil, err
	}

	encoder, err := NewOnnxImageEncoder(filepath.Join(dir, "encoder.onnx"))
	if err != nil {
		refiner.Close()
		return Models{}, nil, err
	}

	decoder, err := NewOnnxTemplateDecoder(filepath.Join(dir, "decoder.onnx"))
	if err != nil {
		refiner.Close()
		encoder.Close()
		return Models{}, nil, err
	}

	closer := func() {
		refiner.Close()
		encoder.Close()
		decoder.Close()
	}

	return Models{Refiner: refiner, Encoder: encoder, Decoder: decoder}, closer, nil
}

package refine

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/miu200521358/gaussian-avatar-1/pkg/domain"
)

// ONNXエクスポート時の入力テンソル名
const (
	inputFeatures = "features"
	inputIdentity = "identity"
	inputPhoto    = "photo"
)

func readNet(path string) (gocv.Net, error) {
	net := gocv.ReadNetFromONNX(path)
	if net.Empty() {
		return net, fmt.Errorf("failed to load onnx model %s", path)
	}
	return net, nil
}

func newFloatBlob(sizes []int, values []float32) (gocv.Mat, error) {
	blob := gocv.NewMatWithSizes(sizes, gocv.MatTypeCV32F)

	ptr, err := blob.DataPtrFloat32()
	if err != nil {
		blob.Close()
		return blob, fmt.Errorf("failed to map blob data: %w", err)
	}
	if len(ptr) != len(values) {
		blob.Close()
		return blob, fmt.Errorf("blob size mismatch: %d != %d", len(ptr), len(values))
	}
	copy(ptr, values)

	return blob, nil
}

func readFloatMat(mat gocv.Mat) ([]float32, error) {
	ptr, err := mat.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to map output data: %w", err)
	}

	out := make([]float32, len(ptr))
	copy(out, ptr)
	return out, nil
}

// OnnxRefiner 32x256x256特徴マップ+埋め込み→3x512x512画像のONNXモデル
type OnnxRefiner struct {
	net gocv.Net
}

func NewOnnxRefiner(path string) (*OnnxRefiner, error) {
	net, err := readNet(path)
	if err != nil {
		return nil, err
	}
	return &OnnxRefiner{net: net}, nil
}

func (r *OnnxRefiner) Refine(features *domain.FeatureMap, identity []float32) (*domain.RGBImage, error) {
	if len(identity) != IdentityEmbeddingSize {
		return nil, fmt.Errorf("unexpected identity embedding size: %d", len(identity))
	}

	featureBlob, err := newFloatBlob(
		[]int{1, domain.LatentChannels, domain.FeatureMapSize, domain.FeatureMapSize}, features.Data)
	if err != nil {
		return nil, err
	}
	defer featureBlob.Close()

	identityBlob, err := newFloatBlob([]int{1, IdentityEmbeddingSize}, identity)
	if err != nil {
		return nil, err
	}
	defer identityBlob.Close()

	r.net.SetInput(featureBlob, inputFeatures)
	r.net.SetInput(identityBlob, inputIdentity)

	out := r.net.Forward("")
	defer out.Close()

	values, err := readFloatMat(out)
	if err != nil {
		return nil, err
	}

	img := domain.NewRGBImage()
	if len(values) != len(img.Data) {
		return nil, fmt.Errorf("unexpected refiner output size: %d", len(values))
	}
	copy(img.Data, values)

	return img, nil
}

func (r *OnnxRefiner) Close() error {
	return r.net.Close()
}

// OnnxImageEncoder 3x512x512写真→512次元埋め込みのONNXモデル
type OnnxImageEncoder struct {
	net gocv.Net
}

func NewOnnxImageEncoder(path string) (*OnnxImageEncoder, error) {
	net, err := readNet(path)
	if err != nil {
		return nil, err
	}
	return &OnnxImageEncoder{net: net}, nil
}

func (e *OnnxImageEncoder) Encode(photo *domain.RGBImage) ([]float32, error) {
	blob, err := newFloatBlob(
		[]int{1, 3, domain.RefinedImageSize, domain.RefinedImageSize}, photo.Data)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	e.net.SetInput(blob, inputPhoto)

	out := e.net.Forward("")
	defer out.Close()

	identity, err := readFloatMat(out)
	if err != nil {
		return nil, err
	}
	if len(identity) != IdentityEmbeddingSize {
		return nil, fmt.Errorf("unexpected encoder output size: %d", len(identity))
	}

	return identity, nil
}

func (e *OnnxImageEncoder) Close() error {
	return e.net.Close()
}

// OnnxTemplateDecoder 埋め込み→テンプレート頂点ごとの潜在特徴のONNXモデル。
// 出力サイズはモデル側のテンプレート頂点数で決まる
type OnnxTemplateDecoder struct {
	net gocv.Net
}

func NewOnnxTemplateDecoder(path string) (*OnnxTemplateDecoder, error) {
	net, err := readNet(path)
	if err != nil {
		return nil, err
	}
	return &OnnxTemplateDecoder{net: net}, nil
}

func (d *OnnxTemplateDecoder) Decode(identity []float32) ([]float32, int, error) {
	if len(identity) != IdentityEmbeddingSize {
		return nil, 0, fmt.Errorf("unexpected identity embedding size: %d", len(identity))
	}

	blob, err := newFloatBlob([]int{1, IdentityEmbeddingSize}, identity)
	if err != nil {
		return nil, 0, err
	}
	defer blob.Close()

	d.net.SetInput(blob, inputIdentity)

	out := d.net.Forward("")
	defer out.Close()

	latents, err := readFloatMat(out)
	if err != nil {
		return nil, 0, err
	}
	if len(latents) == 0 || len(latents)%domain.LatentChannels != 0 {
		return nil, 0, fmt.Errorf("unexpected decoder output size: %d", len(latents))
	}

	return latents, len(latents) / domain.LatentChannels, nil
}

func (d *OnnxTemplateDecoder) Close() error {
	return d.net.Close()
}

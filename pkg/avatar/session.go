package avatar

import (
	"errors"
	"image"
	"math"
	"sync"
	"time"

	"github.com/miu200521358/gaussian-avatar-1/pkg/domain"
	"github.com/miu200521358/gaussian-avatar-1/pkg/infrastructure/mconfig"
	"github.com/miu200521358/gaussian-avatar-1/pkg/infrastructure/ply"
	"github.com/miu200521358/gaussian-avatar-1/pkg/infrastructure/refine"
	"github.com/miu200521358/gaussian-avatar-1/pkg/infrastructure/render"
	"github.com/miu200521358/gaussian-avatar-1/pkg/mutils"
	"github.com/miu200521358/gaussian-avatar-1/pkg/mutils/mi18n"
	"github.com/miu200521358/gaussian-avatar-1/pkg/mutils/mlog"
	"github.com/miu200521358/gaussian-avatar-1/pkg/usecase"
)

var (
	ErrLoadInProgress = errors.New("asset load already in progress")
	ErrNotLoaded      = errors.New("avatar assets not loaded")
)

// SessionOptions アセット探索と表示の調整項目。
// パス類は空なら点群パスの隣接ファイルを探す
type SessionOptions struct {
	PhotoPath       string
	CameraPath      string
	MappingPath     string
	Brightness      float32
	RefreshInterval time.Duration
}

// Session アバターパイプライン全体を1体分だけ保持する。
// 外部コラボレータへは LoadAssets / UpdateLipSync / UpdateLatentTile /
// Tick / CurrentImage の狭いインターフェースだけを公開する。
// フレームループは単一スレッド前提で、バックグラウンド精細化だけが
// ミューテックス越しに最新画像を差し替える
type Session struct {
	models  refine.Models
	options SessionOptions

	mu          sync.Mutex
	loading     bool
	lastImage   *image.RGBA
	refreshBusy bool

	loaded      bool
	cloud       *domain.PointCloud
	calibration *domain.CalibrationResult
	rig         *domain.RigResult
	framing     domain.CameraFraming
	viewer      *render.SplatViewer
	features    *domain.FeatureMap
	display     *render.DisplayConverter
	identity    []float32
	overlay     *domain.MotionOverlay

	lipLevel   float32
	start      time.Time
	refined    bool
	lastRefine time.Time
}

func NewSession(models refine.Models, options SessionOptions) *Session {
	if models.Refiner == nil || models.Encoder == nil {
		mlog.W(mi18n.T("モデル未指定"))
	}
	if models.Refiner == nil {
		models.Refiner = refine.NewPassthroughRefiner()
	}
	if models.Encoder == nil {
		models.Encoder = refine.NewFixedIdentityEncoder()
	}

	return &Session{
		models:  models,
		options: options,
		overlay: domain.NewMotionOverlay(),
	}
}

// LoadAssets 点群と隣接アセット(写真・カメラ設定・マッピングキャッシュ)を
// 取得してパイプラインを組み立てる。読み込み中の再入は拒否する
func (s *Session) LoadAssets(pointCloudURL string) (bool, error) {
	if err := s.beginLoad(); err != nil {
		mlog.W(mi18n.T("読み込み中断"))
		return false, err
	}
	defer s.endLoad()

	mlog.I("Start: LoadAssets =============================")
	mlog.I(mi18n.T("読み込み開始", map[string]interface{}{"Path": pointCloudURL}))
	begin := time.Now()

	if err := s.loadAssets(pointCloudURL); err != nil {
		return false, err
	}

	mlog.I(mi18n.T("読み込み完了", map[string]interface{}{
		"Count":   s.cloud.Count,
		"Elapsed": time.Since(begin).Truncate(time.Millisecond)}))
	mlog.I("End: LoadAssets =============================")

	return true, nil
}

func (s *Session) beginLoad() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loading {
		return ErrLoadInProgress
	}
	s.loading = true
	return nil
}

func (s *Session) endLoad() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
}

func (s *Session) loadAssets(pointCloudURL string) error {
	if pointCloudURL == "" {
		return errors.New("point cloud path is empty")
	}

	cloud, err := ply.NewPointCloudRepository().Load(pointCloudURL)
	if err != nil {
		return err
	}

	calibration, err := usecase.Calibrate(cloud, usecase.TargetHeight)
	if err != nil {
		return err
	}

	framing := s.resolveFraming(pointCloudURL, calibration)

	mappingPath := s.options.MappingPath
	if mappingPath == "" {
		mappingPath = mutils.SiblingPath(pointCloudURL, "_mapping.json")
	}

	rig, err := usecase.Rig(cloud, calibration, mappingPath)
	if err != nil {
		return err
	}

	identity, err := s.encodeIdentity(pointCloudURL)
	if err != nil {
		return err
	}

	if err := s.applyLatents(cloud, rig, identity); err != nil {
		return err
	}

	s.cloud = cloud
	s.calibration = calibration
	s.rig = rig
	s.framing = framing
	s.viewer = render.NewSplatViewer(cloud, framing)
	s.features = domain.NewFeatureMap()
	s.display = render.NewDisplayConverter()
	if s.options.Brightness > 0 {
		s.display.Brightness = s.options.Brightness
	}
	s.identity = identity
	s.start = time.Time{}
	s.refined = false
	s.lastRefine = time.Time{}

	s.mu.Lock()
	s.lastImage = nil
	s.mu.Unlock()

	s.loaded = true
	return nil
}

// resolveFraming カメラ設定JSONがあればそれを、なければキャリブレーション由来の
// 自動フレーミングを使う
func (s *Session) resolveFraming(pointCloudURL string, calibration *domain.CalibrationResult) domain.CameraFraming {
	cameraPath := s.options.CameraPath
	if cameraPath == "" {
		cameraPath = mutils.SiblingPath(pointCloudURL, "_camera.json")
	}

	if !mutils.ExistsPath(cameraPath) {
		mlog.WT(mi18n.T("カメラ設定"), mi18n.T("カメラ設定なし",
			map[string]interface{}{"Path": cameraPath}))
		return calibration.Framing
	}

	config, err := mconfig.LoadCameraConfig(cameraPath)
	if err != nil {
		mlog.W("Failed to load camera config %s: %v", cameraPath, err)
		return calibration.Framing
	}

	return domain.NewCameraFramingFromConfig(config)
}

// encodeIdentity 元写真を符号化して同一性埋め込みを得る。写真がなければゼロ埋め込み
func (s *Session) encodeIdentity(pointCloudURL string) ([]float32, error) {
	photo := s.loadSiblingPhoto(pointCloudURL)
	if photo == nil {
		return make([]float32, refine.IdentityEmbeddingSize), nil
	}

	return s.models.Encoder.Encode(photo)
}

// loadSiblingPhoto 指定写真か点群の隣接写真(.png/.jpg/.jpeg/.webp)を読み込む
func (s *Session) loadSiblingPhoto(pointCloudURL string) *domain.RGBImage {
	var candidates []string
	if s.options.PhotoPath != "" {
		candidates = []string{s.options.PhotoPath}
	} else {
		for _, ext := range []string{".png", ".jpg", ".jpeg", ".webp"} {
			candidates = append(candidates, mutils.SiblingPath(pointCloudURL, ext))
		}
	}

	for _, candidate := range candidates {
		if !mutils.ExistsPath(candidate) {
			continue
		}

		photo, err := refine.LoadPhoto(candidate)
		if err != nil {
			mlog.W("Failed to load photo %s: %v", candidate, err)
			continue
		}
		return photo
	}

	mlog.W(mi18n.T("写真未指定", map[string]interface{}{"Path": candidates[0]}))
	return nil
}

// applyLatents テンプレート復号器の出力をマッピング経由で各点の潜在へ展開する。
// 復号器がない・点数が合わない場合は点群の色から生成する
func (s *Session) applyLatents(cloud *domain.PointCloud, rig *domain.RigResult, identity []float32) error {
	if s.models.Decoder == nil {
		cloud.Latents = refine.ColorLatents(cloud)
		return nil
	}

	latents, count, err := s.models.Decoder.Decode(identity)
	if err != nil {
		return err
	}

	if count != len(rig.TemplatePoints) {
		mlog.W("Template latent count mismatch: %d vs %d", count, len(rig.TemplatePoints))
		cloud.Latents = refine.ColorLatents(cloud)
		return nil
	}

	cloud.Latents = make([]float32, cloud.Count*domain.LatentChannels)
	for i := 0; i < cloud.Count; i++ {
		src := int(rig.Mapping[i]) * domain.LatentChannels
		dst := i * domain.LatentChannels
		copy(cloud.Latents[dst:dst+domain.LatentChannels],
			latents[src:src+domain.LatentChannels])
	}

	return nil
}

// UpdateLipSync 次のポーズ計算で消費される口の開き量を[0,1]へクランプして保持する
func (s *Session) UpdateLipSync(level float32) {
	if level < 0 {
		level = 0
	} else if level > 1 {
		level = 1
	}
	s.lipLevel = level
}

// UpdateLatentTile 表示するタイルを切り替える。範囲外は拒否して現状維持
func (s *Session) UpdateLatentTile(tile int) error {
	if s.viewer == nil {
		return ErrNotLoaded
	}
	return s.viewer.SetActiveTile(tile)
}

// SetMotionOverlay 手続きポーズへ重ねるキーフレームトラックを差し替える
func (s *Session) SetMotionOverlay(overlay *domain.MotionOverlay) {
	s.overlay = overlay
}

// Cloud 正規化済みの点群を返す
func (s *Session) Cloud() *domain.PointCloud {
	return s.cloud
}

// FeatureMap 直近のティックで組み立てた粗特徴マップを返す
func (s *Session) FeatureMap() *domain.FeatureMap {
	return s.features
}

// Tick 1フレーム分のパイプラインを進める。ポーズ解決、8パスのタイル描画、
// 精細化(初回は同期、以降は更新間隔を超えたときだけバックグラウンド)の順。
// ボーン行列はスキン描画より先にフレーム内で再計算し終えている
func (s *Session) Tick(now time.Time) error {
	if !s.loaded {
		return ErrNotLoaded
	}

	if s.start.IsZero() {
		s.start = now
	}
	elapsed := now.Sub(s.start).Seconds()

	matrices := usecase.SolvePose(s.rig.Skeleton, elapsed, s.lipLevel, s.overlay)
	s.viewer.SetBoneMatrices(matrices)

	if err := s.renderFeatureMap(); err != nil {
		return err
	}

	if !s.refined {
		return s.refineNow(now)
	}

	s.maybeRefreshAsync(now)
	return nil
}

// renderFeatureMap 8枚のタイルを順に描画して粗特徴マップを組み立てる。
// 利用者が選んだ表示タイルは描画後に戻す
func (s *Session) renderFeatureMap() error {
	prior := s.viewer.ActiveTile()

	for tile := 0; tile < domain.LatentTiles; tile++ {
		if err := s.viewer.SetActiveTile(tile); err != nil {
			return err
		}
		target := s.viewer.RenderTile()
		if err := s.features.SetTile(tile, target.Pixels); err != nil {
			return err
		}
	}

	return s.viewer.SetActiveTile(prior)
}

// refineNow 初回フレームの同期精細化。表示レンジはこの結果から一度だけ取り込む
func (s *Session) refineNow(now time.Time) error {
	begin := time.Now()

	img, err := s.models.Refiner.Refine(s.features, s.identity)
	if err != nil {
		return err
	}

	s.display.CaptureRange(img)
	rgba := s.display.ToRGBA(img)

	s.mu.Lock()
	s.lastImage = rgba
	s.mu.Unlock()

	s.refined = true
	s.lastRefine = now

	mlog.I(mi18n.T("精細化完了", map[string]interface{}{
		"Elapsed": time.Since(begin).Truncate(time.Millisecond)}))

	return nil
}

// maybeRefreshAsync 更新間隔を超えていたらバックグラウンドで精細化し直す。
// フレームループは止めず、完了時に最新画像だけ差し替える
func (s *Session) maybeRefreshAsync(now time.Time) {
	if s.options.RefreshInterval <= 0 {
		return
	}
	if now.Sub(s.lastRefine) < s.options.RefreshInterval {
		return
	}

	s.mu.Lock()
	if s.refreshBusy {
		s.mu.Unlock()
		return
	}
	s.refreshBusy = true
	s.mu.Unlock()

	s.lastRefine = now

	snapshot, err := s.features.Copy()
	if err != nil {
		mlog.W("Failed to copy feature map: %v", err)
		s.mu.Lock()
		s.refreshBusy = false
		s.mu.Unlock()
		return
	}

	go func() {
		img, err := s.models.Refiner.Refine(snapshot, s.identity)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.refreshBusy = false

		if err != nil {
			mlog.W("Background refine failed: %v", err)
			return
		}
		s.lastImage = s.display.ToRGBA(img)
	}()
}

// CurrentImage 最後に精細化した表示用画像を返す。まだなければnil
func (s *Session) CurrentImage() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastImage
}

// 口パクデモ発振器の周波数(Hz)
const demoLipRate = 1.6

// DemoLipLevel 音声入力の代わりに口を開閉させるデモ用の開き量を返す
func DemoLipLevel(elapsed float64) float32 {
	return float32(0.5 + 0.5*math.Sin(elapsed*2*math.Pi*demoLipRate))
}

package main

import (
	"embed"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/miu200521358/gaussian-avatar-1/pkg/avatar"
	"github.com/miu200521358/gaussian-avatar-1/pkg/infrastructure/mconfig"
	"github.com/miu200521358/gaussian-avatar-1/pkg/infrastructure/ply"
	"github.com/miu200521358/gaussian-avatar-1/pkg/infrastructure/refine"
	"github.com/miu200521358/gaussian-avatar-1/pkg/mutils"
	"github.com/miu200521358/gaussian-avatar-1/pkg/mutils/mi18n"
	"github.com/miu200521358/gaussian-avatar-1/pkg/mutils/mlog"
	"github.com/miu200521358/gaussian-avatar-1/pkg/ui"
	"github.com/miu200521358/gaussian-avatar-1/pkg/utils"
)

//go:embed resources/*
var resourceFiles embed.FS

var logLevel string
var plyPath string
var photoPath string
var cameraPath string
var modelsDir string
var frames int
var fps int
var outDir string
var lipPath string
var export bool
var visualize bool

func init() {
	flag.StringVar(&logLevel, "logLevel", "INFO", "set log level")
	flag.StringVar(&plyPath, "ply", "", "set gaussian splat ply path or url")
	flag.StringVar(&photoPath, "photo", "", "set source photo path (default: ply sibling)")
	flag.StringVar(&cameraPath, "camera", "", "set camera config json path (default: ply sibling)")
	flag.StringVar(&modelsDir, "models", "", "set onnx models directory")
	flag.IntVar(&frames, "frames", 90, "set offline frame count")
	flag.IntVar(&fps, "fps", 30, "set offline frame rate")
	flag.StringVar(&outDir, "out", "out", "set output directory")
	flag.StringVar(&lipPath, "lip", "", "set lip level file path (one value per frame)")
	flag.BoolVar(&export, "export", false, "export normalized point cloud ply")
	flag.BoolVar(&visualize, "visualize", false, "open live viewer window")
	flag.Parse()

	switch logLevel {
	case "INFO":
		mlog.SetLevel(mlog.INFO)
	default:
		mlog.SetLevel(mlog.DEBUG)
	}
}

func main() {
	appConfig := mconfig.LoadAppConfig(resourceFiles)
	mlog.I("%s %s ================", appConfig.Name, appConfig.Version)

	if plyPath == "" {
		mlog.E("ply path must be provided")
		os.Exit(1)
	}

	models, closeModels, err := refine.OpenModels(modelsDir)
	if err != nil {
		mlog.E("Failed to load onnx models: %v", err)
		os.Exit(1)
	}
	defer closeModels()

	session := avatar.NewSession(models, avatar.SessionOptions{
		PhotoPath:  photoPath,
		CameraPath: cameraPath,
	})

	if _, err := session.LoadAssets(plyPath); err != nil {
		mlog.E("Failed to load assets: %v", err)
		os.Exit(1)
	}

	if export {
		mlog.I("Export Normalized Cloud ================")
		if err := exportCloud(session); err != nil {
			mlog.E("Failed to export ply: %v", err)
			os.Exit(1)
		}
	}

	if visualize {
		mlog.I("Live Viewer ================")
		if err := ui.Run(session, true); err != nil {
			mlog.E("Viewer aborted: %v", err)
			os.Exit(1)
		}
		return
	}

	mlog.I("Render Frames ================")
	if err := renderFrames(session); err != nil {
		mlog.E("Failed to render frames: %v", err)
		os.Exit(1)
	}

	mlog.I("Done!")
}

// renderFrames 固定タイムステップでオフライン描画し、PNG連番を書き出す
func renderFrames(session *avatar.Session) error {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}

	if fps <= 0 {
		fps = 30
	}
	if frames <= 0 {
		frames = 1
	}

	levels, err := loadLipLevels(lipPath)
	if err != nil {
		return err
	}

	base := time.Unix(0, 0)
	step := time.Second / time.Duration(fps)

	for i := 0; i < frames; i++ {
		now := base.Add(time.Duration(i) * step)
		if levels != nil {
			session.UpdateLipSync(levels[i%len(levels)])
		} else {
			session.UpdateLipSync(avatar.DemoLipLevel(now.Sub(base).Seconds()))
		}

		if err := session.Tick(now); err != nil {
			return err
		}

		if i == 0 && mlog.IsDebug() {
			if err := utils.WriteFeatureTiles(filepath.Join(outDir, "tiles"), session.FeatureMap()); err != nil {
				mlog.W("Failed to write feature tiles: %v", err)
			}
		}

		path := filepath.Join(outDir, fmt.Sprintf("frame_%04d.png", i))
		if err := utils.WritePng(path, session.CurrentImage()); err != nil {
			return err
		}
		mlog.D(mi18n.T("フレーム出力完了", map[string]interface{}{"Path": path}))
	}

	mlog.I(mi18n.T("フレーム出力完了", map[string]interface{}{"Path": outDir}))
	return nil
}

// loadLipLevels 1フレーム1値のリップシンクレベルファイルを読み込む。パス未指定なら nil
func loadLipLevels(path string) ([]float32, error) {
	if path == "" {
		return nil, nil
	}

	data, err := mutils.ReadAllFromPath(path)
	if err != nil {
		return nil, err
	}

	var levels []float32
	for _, field := range strings.Fields(string(data)) {
		v, err := strconv.ParseFloat(field, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid lip level %q: %w", field, err)
		}
		levels = append(levels, float32(v))
	}

	if len(levels) == 0 {
		return nil, errors.New("lip level file is empty")
	}

	return levels, nil
}

func exportCloud(session *avatar.Session) error {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}

	path := filepath.Join(outDir, "normalized.ply")
	if err := ply.NewPointCloudRepository().Save(path, session.Cloud()); err != nil {
		return err
	}

	mlog.I(mi18n.T("PLY出力完了", map[string]interface{}{"Path": path}))
	return nil
}

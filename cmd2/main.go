package main

import (
	"flag"
	"os"
	"path/filepath"
	"time"

	"github.com/miu200521358/gaussian-avatar-1/pkg/avatar"
	"github.com/miu200521358/gaussian-avatar-1/pkg/infrastructure/refine"
	"github.com/miu200521358/gaussian-avatar-1/pkg/mutils"
	"github.com/miu200521358/gaussian-avatar-1/pkg/mutils/mlog"
	"github.com/miu200521358/gaussian-avatar-1/pkg/utils"
)

var logLevel string
var dirPath string
var modelsDir string

func init() {
	flag.StringVar(&logLevel, "logLevel", "INFO", "set log level")
	flag.StringVar(&dirPath, "dirPath", "", "set directory containing ply files")
	flag.StringVar(&modelsDir, "models", "", "set onnx models directory")
	flag.Parse()

	switch logLevel {
	case "INFO":
		mlog.SetLevel(mlog.INFO)
	default:
		mlog.SetLevel(mlog.DEBUG)
	}
}

// ディレクトリ直下のPLYをまとめて読み込み、静止画を1枚ずつ書き出すバッチ版
func main() {
	if dirPath == "" {
		mlog.E("dirPath must be provided")
		os.Exit(1)
	}

	allPlyPaths, err := utils.GetPlyFilePaths(dirPath)
	if err != nil {
		mlog.E("Failed to get ply file paths: %v", err)
		return
	}
	if len(allPlyPaths) == 0 {
		mlog.E("No ply files found: %s", dirPath)
		return
	}

	models, closeModels, err := refine.OpenModels(modelsDir)
	if err != nil {
		mlog.E("Failed to load onnx models: %v", err)
		os.Exit(1)
	}
	defer closeModels()

	for i, plyPath := range allPlyPaths {
		mlog.I("Render Avatar [%02d/%02d] %s", i+1, len(allPlyPaths), filepath.Base(plyPath))

		session := avatar.NewSession(models, avatar.SessionOptions{})
		if _, err := session.LoadAssets(plyPath); err != nil {
			mlog.E("Failed to load %s: %v", plyPath, err)
			continue
		}

		if err := session.Tick(time.Unix(0, 0)); err != nil {
			mlog.E("Failed to render %s: %v", plyPath, err)
			continue
		}

		resultPath := mutils.SiblingPath(plyPath, "_result.png")
		if err := utils.WritePng(resultPath, session.CurrentImage()); err != nil {
			mlog.E("Failed to write result png: %v", err)
			continue
		}
		mlog.I("Output Png [%02d/%02d] %s", i+1, len(allPlyPaths), filepath.Base(resultPath))
	}

	mlog.I("Done!")
}

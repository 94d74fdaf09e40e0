package mconfig

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/pelletier/go-toml/v2"

	"github.com/miu200521358/gaussian-avatar-1/pkg/domain"
	"github.com/miu200521358/gaussian-avatar-1/pkg/mutils"
)

// AppConfig アプリ全体の静的設定(リソースに埋め込み)
type AppConfig struct {
	Name    string `toml:"Name"`
	Version string `toml:"Version"`
	Env     string `toml:"Env"`
}

func (c *AppConfig) IsEnvProd() bool {
	return c.Env == "prod"
}

func (c *AppConfig) IsEnvDev() bool {
	return c.Env == "dev"
}

// LoadAppConfig 埋め込みリソースから設定を読み込む。失敗時はdev設定を返す
func LoadAppConfig(resourceFiles embed.FS) *AppConfig {
	config := &AppConfig{Name: "GaussianAvatar", Version: "dev", Env: "dev"}

	data, err := resourceFiles.ReadFile("resources/app_config.toml")
	if err != nil {
		return config
	}
	if err := toml.Unmarshal(data, config); err != nil {
		return config
	}

	return config
}

// LoadCameraConfig カメラ設定JSONをパスまたはURLから読み込む
func LoadCameraConfig(path string) (*domain.CameraConfig, error) {
	data, err := mutils.ReadAllFromPath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read camera config %s: %w", path, err)
	}

	config := new(domain.CameraConfig)
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to decode camera config %s: %w", path, err)
	}

	return config, nil
}

package mi18n

import (
	"embed"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
)

//go:embed locales/*.toml
var localeFiles embed.FS

var (
	bundle    *i18n.Bundle
	localizer *i18n.Localizer
)

func init() {
	bundle = i18n.NewBundle(language.Japanese)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	for _, name := range []string{"locales/ja.toml", "locales/en.toml"} {
		if _, err := bundle.LoadMessageFileFS(localeFiles, name); err != nil {
			panic(err)
		}
	}

	localizer = i18n.NewLocalizer(bundle, language.Japanese.String())
}

// SetLang 表示言語を切り替える("ja" / "en")
func SetLang(lang string) {
	localizer = i18n.NewLocalizer(bundle, lang, language.Japanese.String())
}

// T メッセージキーを現在の言語に翻訳する。キーが未登録の場合はキーをそのまま返す
func T(key string, params ...map[string]any) string {
	config := &i18n.LocalizeConfig{MessageID: key}
	if len(params) > 0 {
		config.TemplateData = params[0]
	}

	msg, err := localizer.Localize(config)
	if err != nil {
		return key
	}

	return msg
}

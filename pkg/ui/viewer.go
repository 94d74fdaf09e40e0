package ui

import (
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/miu200521358/gaussian-avatar-1/pkg/avatar"
	"github.com/miu200521358/gaussian-avatar-1/pkg/domain"
	"github.com/miu200521358/gaussian-avatar-1/pkg/mutils/mi18n"
	"github.com/miu200521358/gaussian-avatar-1/pkg/mutils/mlog"
)

var tileKeys = []ebiten.Key{
	ebiten.KeyDigit0, ebiten.KeyDigit1, ebiten.KeyDigit2, ebiten.KeyDigit3,
	ebiten.KeyDigit4, ebiten.KeyDigit5, ebiten.KeyDigit6, ebiten.KeyDigit7,
}

// Viewer セッションをvsync駆動で1ティックずつ進めるライブビューワー。
// 数字キー0〜7で表示タイルを切り替え、Escapeで終了する
type Viewer struct {
	session *avatar.Session
	demoLip bool
	start   time.Time
}

func NewViewer(session *avatar.Session, demoLip bool) *Viewer {
	return &Viewer{
		session: session,
		demoLip: demoLip,
	}
}

func (v *Viewer) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}

	for tile, key := range tileKeys {
		if inpututil.IsKeyJustPressed(key) {
			if err := v.session.UpdateLatentTile(tile); err != nil {
				mlog.W("Latent tile %d rejected: %v", tile, err)
			}
		}
	}

	now := time.Now()
	if v.start.IsZero() {
		v.start = now
	}

	if v.demoLip {
		v.session.UpdateLipSync(avatar.DemoLipLevel(now.Sub(v.start).Seconds()))
	}

	return v.session.Tick(now)
}

func (v *Viewer) Draw(screen *ebiten.Image) {
	img := v.session.CurrentImage()
	if img == nil {
		return
	}
	screen.WritePixels(img.Pix)
}

func (v *Viewer) Layout(outsideWidth, outsideHeight int) (int, int) {
	return domain.RefinedImageSize, domain.RefinedImageSize
}

// Run ウィンドウを開いてフレームループを回す。閉じられるまでブロックする
func Run(session *avatar.Session, demoLip bool) error {
	ebiten.SetWindowSize(domain.RefinedImageSize, domain.RefinedImageSize)
	ebiten.SetWindowTitle(mi18n.T("ビューワータイトル"))

	return ebiten.RunGame(NewViewer(session, demoLip))
}

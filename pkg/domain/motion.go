package domain

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/petar/GoLLRB/llrb"
)

// BoneKeyFrame アイドルモーションの1キーフレーム(秒単位の時刻と回転)
type BoneKeyFrame struct {
	Time     float32
	Rotation mgl32.Quat
}

func (kf BoneKeyFrame) Less(than llrb.Item) bool {
	return kf.Time < than.(BoneKeyFrame).Time
}

// BoneTrack 時刻順に整列したキーフレーム列。loopLength > 0 の場合はループ再生する
type BoneTrack struct {
	frames     *llrb.LLRB
	loopLength float32
}

func NewBoneTrack(loopLength float32) *BoneTrack {
	return &BoneTrack{
		frames:     llrb.New(),
		loopLength: loopLength,
	}
}

func (t *BoneTrack) Append(time float32, rotation mgl32.Quat) {
	t.frames.ReplaceOrInsert(BoneKeyFrame{Time: time, Rotation: rotation})
}

func (t *BoneTrack) Len() int {
	return t.frames.Len()
}

// Sample 指定時刻の回転を前後キーフレームの球面線形補間で返す
func (t *BoneTrack) Sample(time float32) mgl32.Quat {
	if t.frames.Len() == 0 {
		return mgl32.QuatIdent()
	}

	if t.loopLength > 0 {
		for time >= t.loopLength {
			time -= t.loopLength
		}
		for time < 0 {
			time += t.loopLength
		}
	}

	pivot := BoneKeyFrame{Time: time}

	var prev, next *BoneKeyFrame
	t.frames.DescendLessOrEqual(pivot, func(item llrb.Item) bool {
		kf := item.(BoneKeyFrame)
		prev = &kf
		return false
	})
	t.frames.AscendGreaterOrEqual(pivot, func(item llrb.Item) bool {
		kf := item.(BoneKeyFrame)
		next = &kf
		return false
	})

	switch {
	case prev == nil:
		return next.Rotation
	case next == nil:
		return prev.Rotation
	case next.Time <= prev.Time:
		return prev.Rotation
	}

	amount := (time - prev.Time) / (next.Time - prev.Time)
	return mgl32.QuatSlerp(prev.Rotation, next.Rotation, amount)
}

// MotionOverlay ボーンごとのアイドルモーショントラック。
// 空のままならポーズ計算へは一切影響しない
type MotionOverlay struct {
	tracks map[BoneIndex]*BoneTrack
}

func NewMotionOverlay() *MotionOverlay {
	return &MotionOverlay{
		tracks: make(map[BoneIndex]*BoneTrack),
	}
}

func (o *MotionOverlay) SetTrack(bone BoneIndex, track *BoneTrack) {
	o.tracks[bone] = track
}

// Sample 指定ボーンのトラックが存在する場合のみ回転を返す
func (o *MotionOverlay) Sample(bone BoneIndex, time float32) (mgl32.Quat, bool) {
	if o == nil {
		return mgl32.QuatIdent(), false
	}

	track, ok := o.tracks[bone]
	if !ok || track.Len() == 0 {
		return mgl32.QuatIdent(), false
	}

	return track.Sample(time), true
}

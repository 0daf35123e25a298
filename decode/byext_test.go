package decode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killown/flux/internal/testutil"
	"github.com/killown/flux/internal/thumbtype"
)

func TestByExtRoutesByExtension(t *testing.T) {
	t.Parallel()

	imgDec := &testutil.FakeDecoder{}
	vidDec := &testutil.FakeDecoder{}
	d := NewByExt(ByExtWithImage(imgDec), ByExtWithVideo(vidDec))

	_, err := d.Decode(context.Background(), "pic.png", 64)
	require.NoError(t, err)
	_, err = d.Decode(context.Background(), "clip.mp4", 64)
	require.NoError(t, err)

	assert.EqualValues(t, 1, imgDec.Calls())
	assert.EqualValues(t, 1, vidDec.Calls())
}

func TestByExtIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	imgDec := &testutil.FakeDecoder{}
	d := NewByExt(ByExtWithImage(imgDec), ByExtWithVideo(nil))

	_, err := d.Decode(context.Background(), "SHOUTY.PNG", 64)
	require.NoError(t, err)
	assert.EqualValues(t, 1, imgDec.Calls())
}

func TestByExtUnknownExtension(t *testing.T) {
	t.Parallel()

	d := NewByExt(ByExtWithImage(&testutil.FakeDecoder{}), ByExtWithVideo(nil))

	_, err := d.Decode(context.Background(), "notes.txt", 64)
	require.ErrorIs(t, err, thumbtype.ErrUnsupportedFormat)

	_, err = d.Decode(context.Background(), "no-extension", 64)
	require.ErrorIs(t, err, thumbtype.ErrUnsupportedFormat)
}

func TestByExtNilDecoderDisablesExtensions(t *testing.T) {
	t.Parallel()

	d := NewByExt(ByExtWithImage(&testutil.FakeDecoder{}), ByExtWithVideo(nil))

	assert.True(t, d.Supports("a.png"))
	assert.False(t, d.Supports("a.mp4"), "video extensions are unrouted without a video decoder")

	_, err := d.Decode(context.Background(), "a.mkv", 64)
	require.ErrorIs(t, err, thumbtype.ErrUnsupportedFormat)
}

func TestByExtCustomExtension(t *testing.T) {
	t.Parallel()

	custom := &testutil.FakeDecoder{}
	d := NewByExt(
		ByExtWithImage(&testutil.FakeDecoder{}),
		ByExtWithVideo(nil),
		ByExtWith(".svg", custom),
	)

	require.True(t, d.Supports("icon.svg"))
	_, err := d.Decode(context.Background(), "icon.svg", 64)
	require.NoError(t, err)
	assert.EqualValues(t, 1, custom.Calls())
}

func TestByExtOverrideRemovesExtension(t *testing.T) {
	t.Parallel()

	d := NewByExt(
		ByExtWithImage(&testutil.FakeDecoder{}),
		ByExtWithVideo(nil),
		ByExtWith("gif", nil),
	)

	assert.False(t, d.Supports("anim.gif"))
	assert.True(t, d.Supports("still.png"))
}

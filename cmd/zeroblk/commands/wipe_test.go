package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeroblk/zeroblk/pkg/device"
)

// makeImage writes a dirty test image plus its allocation bitmap sidecar
// and returns both paths. Block 0 is allocated, the rest are free.
func makeImage(t *testing.T, blockSize int, blocks uint64) (string, string) {
	t.Helper()
	dir := t.TempDir()

	imgPath := filepath.Join(dir, "disk.img")
	img := bytes.Repeat([]byte{0xAB}, blockSize*int(blocks))
	require.NoError(t, os.WriteFile(imgPath, img, 0644))

	bm := device.NewBitmap(blocks)
	bm.Set(0)
	bmPath := filepath.Join(dir, "disk.bmap")
	f, err := os.Create(bmPath)
	require.NoError(t, err)
	_, err = bm.WriteTo(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	return imgPath, bmPath
}

func TestWipeCommand(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	imgPath, bmPath := makeImage(t, 512, 16)

	root := GetRootCmd()
	root.SetArgs([]string{
		"wipe", imgPath,
		"--bitmap", bmPath,
		"--block-size", "512",
		"--dry-run=false",
		"-t", "2",
	})
	require.NoError(t, root.Execute())

	got, err := os.ReadFile(imgPath)
	require.NoError(t, err)

	dirty := bytes.Repeat([]byte{0xAB}, 512)
	zero := make([]byte, 512)
	assert.Equal(t, dirty, got[:512], "allocated block 0 was touched")
	for blk := 1; blk < 16; blk++ {
		assert.Equal(t, zero, got[blk*512:(blk+1)*512], "free block %d not zeroed", blk)
	}
}

func TestWipeCommandDryRun(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	imgPath, bmPath := makeImage(t, 512, 16)

	before, err := os.ReadFile(imgPath)
	require.NoError(t, err)

	root := GetRootCmd()
	root.SetArgs([]string{
		"wipe", imgPath,
		"--bitmap", bmPath,
		"--block-size", "512",
		"--dry-run=true",
	})
	require.NoError(t, root.Execute())

	after, err := os.ReadFile(imgPath)
	require.NoError(t, err)
	assert.Equal(t, before, after, "dry run modified the image")
}

func TestWipeCommandRejectsBadFill(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	imgPath, bmPath := makeImage(t, 512, 4)

	root := GetRootCmd()
	root.SetArgs([]string{
		"wipe", imgPath,
		"--bitmap", bmPath,
		"--block-size", "512",
		"--dry-run=true",
		"--fill", "300",
	})
	require.Error(t, root.Execute())
}

func TestWipeCommandRequiresBitmap(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	imgPath, _ := makeImage(t, 512, 4)

	root := GetRootCmd()
	root.SetArgs([]string{"wipe", imgPath, "--dry-run=true"})
	require.Error(t, root.Execute())
}

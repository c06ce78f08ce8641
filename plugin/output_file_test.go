package plugin

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vearne/lwsniffer/model"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.t
}

func newTestFileOutput(t *testing.T, maxSize int64) (*FileOutput, *fakeClock, string) {
	t.Helper()
	dir := t.TempDir() + string(os.PathSeparator)
	clock := &fakeClock{t: time.Date(2026, 10, 19, 12, 30, 45, 0, time.UTC)}
	o, err := NewFileOutput(&FileOutputConfig{
		Folder:        dir,
		ComponentName: "orders",
		MaxSize:       maxSize,
		now:           clock.Now,
	})
	require.NoError(t, err)
	t.Cleanup(func() { o.Close() })
	return o, clock, dir
}

func TestFileOutputName(t *testing.T) {
	o, _, dir := newTestFileOutput(t, 0)
	assert.Equal(t, dir+"output_orders_20261019123045.lws", o.CurrentName())
	_, err := os.Stat(o.CurrentName())
	assert.NoError(t, err)
}

func TestFileOutputNameUsesUTC(t *testing.T) {
	dir := t.TempDir() + string(os.PathSeparator)
	loc := time.FixedZone("UTC-3", -3*3600)
	o, err := NewFileOutput(&FileOutputConfig{
		Folder:        dir,
		ComponentName: "orders",
		now:           func() time.Time { return time.Date(2026, 10, 19, 21, 0, 0, 0, loc) },
	})
	require.NoError(t, err)
	defer o.Close()
	assert.Equal(t, dir+"output_orders_20261020000000.lws", o.CurrentName())
}

func TestFileOutputWriteFlushes(t *testing.T) {
	o, _, _ := newTestFileOutput(t, 0)

	require.NoError(t, o.WriteLine([]byte("a\tb\n")))
	// visible without Close
	data, err := os.ReadFile(o.CurrentName())
	require.NoError(t, err)
	assert.Equal(t, "a\tb\n", string(data))

	p := &model.Packet{
		SourceIP:      "10.0.0.1",
		DestinationIP: "10.0.0.2",
		Direction:     model.DirectionIn,
		HTTPResource:  "/x",
		Time:          time.Unix(42, 0),
		Identity:      model.Identity{ComponentName: "orders", Environment: "dev", HostHTTP: "h"},
	}
	require.NoError(t, o.Write(p))
	data, err = os.ReadFile(o.CurrentName())
	require.NoError(t, err)
	assert.Equal(t, "a\tb\ndev\torders\th\tIN\t10.0.0.1\t10.0.0.2\t/x\t\t42\n", string(data))
}

func TestFileOutputRotation(t *testing.T) {
	const mib = 1 << 20
	o, clock, dir := newTestFileOutput(t, mib)
	var rotated []string
	o.config.OnRotate = func(oldName, newName string) {
		rotated = append(rotated, oldName, newName)
	}

	first := o.CurrentName()
	require.NoError(t, o.WriteLine([]byte("first\n")))

	// exactly at the limit: no rotation yet
	require.NoError(t, os.Truncate(first, mib))
	require.NoError(t, o.WriteLine([]byte("x\n")))
	assert.Equal(t, first, o.CurrentName())

	// 1 MiB + 1 byte: the next write goes to a new file
	require.NoError(t, os.Truncate(first, mib+1))
	clock.t = clock.t.Add(3 * time.Second)
	require.NoError(t, o.WriteLine([]byte("second\n")))

	second := o.CurrentName()
	assert.Equal(t, dir+"output_orders_20261019123048.lws", second)
	assert.Equal(t, []string{first, second}, rotated)

	info, err := os.Stat(first)
	require.NoError(t, err)
	assert.Equal(t, int64(mib+1), info.Size())

	data, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(data))
}

func TestFileOutputRotationSameSecond(t *testing.T) {
	o, _, dir := newTestFileOutput(t, 4)

	require.NoError(t, o.WriteLine([]byte("12345\n")))
	require.NoError(t, o.WriteLine([]byte("next\n")))

	assert.Equal(t, dir+"output_orders_20261019123045_1.lws", o.CurrentName())
	matches, err := filepath.Glob(dir + "output_orders_*.lws")
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestFileOutputNoRotationWhenUnlimited(t *testing.T) {
	o, _, _ := newTestFileOutput(t, 0)
	first := o.CurrentName()
	require.NoError(t, os.Truncate(first, 5<<20))
	require.NoError(t, o.WriteLine([]byte("x\n")))
	assert.Equal(t, first, o.CurrentName())
}

func TestFileOutputRotationCancelled(t *testing.T) {
	o, _, _ := newTestFileOutput(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	o.config.Ctx = ctx

	require.NoError(t, o.WriteLine([]byte("ab\n")))
	cancel()
	assert.ErrorIs(t, o.WriteLine([]byte("cd\n")), context.Canceled)
}

func TestFileOutputCreatesFolder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs") + string(os.PathSeparator)
	o, err := NewFileOutput(&FileOutputConfig{Folder: dir, ComponentName: "c"})
	require.NoError(t, err)
	defer o.Close()
	_, err = os.Stat(dir)
	assert.NoError(t, err)
}

func TestFileOutputBadFolder(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := NewFileOutput(&FileOutputConfig{Folder: blocker + "/sub/", ComponentName: "c"})
	assert.Error(t, err)
}

func TestFileOutputClosed(t *testing.T) {
	o, _, _ := newTestFileOutput(t, 0)
	require.NoError(t, o.Close())
	assert.Error(t, o.WriteLine([]byte("x\n")))
	assert.NoError(t, o.Close())
}

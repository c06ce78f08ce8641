package plugin

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/vearne/lwsniffer/model"
	slog "github.com/vearne/simplelog"
)

const (
	fileExt        = ".lws"
	fileTimeLayout = "20060102150405"
)

// FileOutputConfig ...
type FileOutputConfig struct {
	// Folder is prepended verbatim to the file name.
	Folder        string
	ComponentName string
	// MaxSize in bytes; the file is rotated once it grows beyond it. 0 disables rotation.
	MaxSize int64
	// Ctx stops rotation: once it is done no new file is opened.
	Ctx context.Context
	// OnRotate is called after a new file has replaced the old one.
	OnRotate func(oldName, newName string)

	now func() time.Time
}

// FileOutput appends one line per record to
// {Folder}output_{ComponentName}_{UTC YYYYMMDDHHMMSS}.lws and opens a new
// file once the current one is larger than MaxSize. Files are never removed.
type FileOutput struct {
	sync.Mutex
	config *FileOutputConfig

	currentName string
	file        *os.File
	writer      *bufio.Writer
	buf         []byte
	closed      bool
}

// NewFileOutput opens the first file right away so a bad output folder
// is reported before any packet is read.
func NewFileOutput(config *FileOutputConfig) (*FileOutput, error) {
	o := new(FileOutput)
	o.config = config
	if o.config.now == nil {
		o.config.now = time.Now
	}
	o.buf = make([]byte, 0, 512)

	if err := o.openLocked(); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *FileOutput) baseName(t time.Time) string {
	return o.config.Folder + "output_" + o.config.ComponentName + "_" +
		t.UTC().Format(fileTimeLayout)
}

func (o *FileOutput) openLocked() error {
	base := o.baseName(o.config.now())
	if dir := filepath.Dir(base); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create output folder %v", dir)
		}
	}

	// O_EXCL so two rotations in the same second, or two interfaces
	// starting together, never share a file
	name := base + fileExt
	for i := 1; ; i++ {
		f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL|os.O_APPEND, 0o644)
		if err == nil {
			o.file = f
			break
		}
		if !os.IsExist(err) {
			return errors.Wrapf(err, "open output file %v", name)
		}
		name = base + "_" + strconv.Itoa(i) + fileExt
	}

	o.writer = bufio.NewWriter(o.file)
	o.currentName = name
	o.closed = false
	slog.Info("[OUTPUT-FILE] file %v created", name)
	return nil
}

func (o *FileOutput) closeLocked() error {
	if o.file == nil {
		return nil
	}
	flushErr := o.writer.Flush()
	closeErr := o.file.Close()
	o.file = nil
	o.closed = true
	if flushErr != nil {
		return errors.Wrapf(flushErr, "flush %v", o.currentName)
	}
	if closeErr != nil {
		return errors.Wrapf(closeErr, "close %v", o.currentName)
	}
	return nil
}

func (o *FileOutput) rotateIfNeededLocked() error {
	if o.config.MaxSize <= 0 {
		return nil
	}
	info, err := o.file.Stat()
	if err != nil {
		return errors.Wrapf(err, "stat %v", o.currentName)
	}
	if info.Size() <= o.config.MaxSize {
		return nil
	}

	if o.config.Ctx != nil && o.config.Ctx.Err() != nil {
		return o.config.Ctx.Err()
	}

	old := o.currentName
	if err = o.closeLocked(); err != nil {
		return err
	}
	if err = o.openLocked(); err != nil {
		return err
	}
	slog.Info("[OUTPUT-FILE] rotated %v (%d bytes) -> %v", old, info.Size(), o.currentName)
	if o.config.OnRotate != nil {
		o.config.OnRotate(old, o.currentName)
	}
	return nil
}

// WriteLine writes line and flushes it to the file.
func (o *FileOutput) WriteLine(line []byte) error {
	o.Lock()
	defer o.Unlock()
	return o.writeLineLocked(line)
}

// Write formats p as a tab separated line and writes it.
func (o *FileOutput) Write(p *model.Packet) error {
	o.Lock()
	defer o.Unlock()
	o.buf = p.AppendLine(o.buf[:0])
	return o.writeLineLocked(o.buf)
}

func (o *FileOutput) writeLineLocked(line []byte) error {
	if o.closed {
		return errors.New("file output closed")
	}
	if err := o.rotateIfNeededLocked(); err != nil {
		return err
	}
	if _, err := o.writer.Write(line); err != nil {
		return errors.Wrapf(err, "write %v", o.currentName)
	}
	if err := o.writer.Flush(); err != nil {
		return errors.Wrapf(err, "flush %v", o.currentName)
	}
	return nil
}

// CurrentName is the path of the file being written.
func (o *FileOutput) CurrentName() string {
	o.Lock()
	defer o.Unlock()
	return o.currentName
}

func (o *FileOutput) String() string {
	return "File output: " + o.CurrentName()
}

// Close closes the output file that is being written to.
func (o *FileOutput) Close() error {
	o.Lock()
	defer o.Unlock()
	return o.closeLocked()
}

package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fatih/color"
	c "github.com/life-stream-dev/life-stream-go-stomp-broker/internal/config"
)

const (
	LevelFatal slog.Level = 12

	logRetention = 30 * 24 * time.Hour
)

// sink owns the queue, the worker and the current log file. Handlers
// derived through WithAttrs/WithGroup share it.
type sink struct {
	ch          chan []byte
	console     io.Writer
	writer      io.Writer
	currentDay  int
	currentFile *os.File
	basePath    string
	wg          sync.WaitGroup
	closeOnce   sync.Once
}

type AsyncHandler struct {
	sink     *sink
	attrs    []slog.Attr
	group    string
	logLevel slog.Level
}

func NewAsyncHandler(basePath string, logLevel slog.Level) *AsyncHandler {
	return newAsyncHandler(basePath, logLevel, os.Stdout)
}

func newAsyncHandler(basePath string, logLevel slog.Level, console io.Writer) *AsyncHandler {
	s := &sink{
		ch:       make(chan []byte, 1024),
		console:  console,
		basePath: basePath,
	}
	if err := s.rotateIfNeeded(time.Now()); err != nil {
		fmt.Fprintf(os.Stderr, "LOGGER ROTATE ERROR: %v\n", err)
	}
	s.wg.Add(1)
	go s.startWorker()
	return &AsyncHandler{sink: s, logLevel: logLevel}
}

func (s *sink) cleanOldLogs(now time.Time) {
	files, _ := filepath.Glob(filepath.Join(s.basePath, "*.log"))
	for _, f := range files {
		fi, err := os.Stat(f)
		if err != nil {
			continue
		}
		if now.Sub(fi.ModTime()) > logRetention {
			_ = os.Remove(f)
		}
	}
}

// rotateIfNeeded opens the file of the current day, closing the previous
// one. Without a usable file the sink keeps writing to the console.
func (s *sink) rotateIfNeeded(now time.Time) error {
	currentDay := now.YearDay()
	if currentDay == s.currentDay && s.currentFile != nil {
		return nil
	}
	s.currentDay = currentDay

	if s.currentFile != nil {
		if err := s.currentFile.Close(); err != nil {
			return fmt.Errorf("fail to close log file: %w", err)
		}
		s.currentFile = nil
	}
	s.writer = s.console

	logPath := s.getLogPath(now)
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return fmt.Errorf("fail to create log directory: %w", err)
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("fail to open log file: %w", err)
	}

	s.currentFile = f
	s.writer = io.MultiWriter(s.console, f)
	s.cleanOldLogs(now)
	return nil
}

func (s *sink) getLogPath(now time.Time) string {
	return filepath.Join(s.basePath, now.Format("2006-01-02")+".log")
}

func (s *sink) startWorker() {
	defer s.wg.Done()
	for data := range s.ch {
		_ = s.rotateIfNeeded(time.Now())
		_, _ = s.writer.Write(data)
	}
}

func (s *sink) close() {
	s.closeOnce.Do(func() {
		close(s.ch)
		s.wg.Wait()
		if s.currentFile != nil {
			_ = s.currentFile.Sync()
			_ = s.currentFile.Close()
		}
	})
}

func (h *AsyncHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.logLevel
}

func (h *AsyncHandler) Handle(_ context.Context, r slog.Record) error {
	level := r.Level.String()

	switch r.Level {
	case slog.LevelDebug:
		level = color.MagentaString(level)
	case slog.LevelInfo:
		level = color.BlueString(level)
	case slog.LevelWarn:
		level = color.YellowString(level)
	case slog.LevelError:
		level = color.RedString(level)
	case LevelFatal:
		level = color.HiRedString("FATAL")
	}

	// time | level | message
	line := fmt.Sprintf(
		"%s | %-5s | %s",
		color.GreenString(r.Time.Format("2006-01-02T15:04:05")),
		level,
		color.CyanString(r.Message),
	)

	for _, attr := range h.attrs {
		line += color.CyanString(fmt.Sprintf(" %s=%v", attr.Key, attr.Value))
	}

	r.Attrs(func(attr slog.Attr) bool {
		key := attr.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		line += color.CyanString(fmt.Sprintf(" %s=%v", key, attr.Value))
		return true
	})

	line += "\n"

	h.Write([]byte(line))
	return nil
}

func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	newAttrs = append(newAttrs, h.attrs...)
	for _, attr := range attrs {
		if h.group != "" {
			attr.Key = h.group + "." + attr.Key
		}
		newAttrs = append(newAttrs, attr)
	}

	return &AsyncHandler{
		sink:     h.sink,
		attrs:    newAttrs,
		group:    h.group,
		logLevel: h.logLevel,
	}
}

func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}
	return &AsyncHandler{
		sink:     h.sink,
		attrs:    h.attrs,
		group:    group,
		logLevel: h.logLevel,
	}
}

func (h *AsyncHandler) Write(p []byte) {
	// the caller may reuse p
	pb := make([]byte, len(p))
	copy(pb, p)
	h.sink.ch <- pb
}

func (h *AsyncHandler) Close() error {
	h.sink.close()
	return nil
}

type ShutdownCallback struct {
	handler *AsyncHandler
}

func (lc *ShutdownCallback) Invoke(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		_ = lc.handler.Close()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Init installs the async handler as the default slog logger.
func Init(config c.Config) *ShutdownCallback {
	level := slog.LevelInfo
	if config.DebugMode {
		level = slog.LevelDebug
	}
	logDir := config.LogDir
	if logDir == "" {
		logDir = "logs"
	}
	handler := NewAsyncHandler(logDir, level)
	slog.SetDefault(slog.New(handler))
	slog.Debug("Logger initialized")
	return &ShutdownCallback{handler: handler}
}

func Debug(msg string, v ...interface{}) {
	slog.Debug(msg, v...)
}

func DebugF(msg string, v ...interface{}) {
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	slog.Debug(fmt.Sprintf(msg, v...))
}

func Info(msg string, v ...interface{}) {
	slog.Info(msg, v...)
}

func InfoF(msg string, v ...interface{}) {
	slog.Info(fmt.Sprintf(msg, v...))
}

func Warn(msg string, v ...interface{}) {
	slog.Warn(msg, v...)
}

func WarnF(msg string, v ...interface{}) {
	slog.Warn(fmt.Sprintf(msg, v...))
}

func Error(msg string, v ...interface{}) {
	slog.Error(msg, v...)
}

func ErrorF(msg string, v ...interface{}) {
	slog.Error(fmt.Sprintf(msg, v...))
}

func Fatal(msg string, v ...interface{}) {
	slog.Log(context.Background(), LevelFatal, msg, v...)
}

func FatalF(msg string, v ...interface{}) {
	slog.Log(context.Background(), LevelFatal, fmt.Sprintf(msg, v...))
}

package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"tutorsim.ai/internal/sim/session"
)

type JSONLZstdWriter struct {
	baseDir string
	prefix  string

	now func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	dir := filepath.Dir(w.pathForHour(hour))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curHour = hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return err1
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// Record kinds in a trace file.
const (
	KindEpisodeStarted = "episode_started"
	KindDispatch       = "dispatch"
	KindEpisodeEnded   = "episode_ended"
)

// TraceEntry is one JSONL line of an episode trace. Exactly one of the
// payload fields is set, matching Kind.
type TraceEntry struct {
	Kind     string                  `json:"kind"`
	Started  *session.EpisodeInfo    `json:"started,omitempty"`
	Dispatch *session.DispatchRecord `json:"dispatch,omitempty"`
	Ended    *session.Outcome        `json:"ended,omitempty"`
}

// TraceLogger writes every session's episode trace (compressed). It
// implements session.Recorder; write failures are logged and counted
// rather than surfaced to the session.
type TraceLogger struct {
	w   *JSONLZstdWriter
	log *stdlog.Logger

	mu     sync.Mutex
	failed int
}

func NewTraceLogger(dataDir string, logger *stdlog.Logger) *TraceLogger {
	if logger == nil {
		logger = stdlog.New(io.Discard, "", 0)
	}
	return &TraceLogger{w: NewJSONLZstdWriter(filepath.Join(dataDir, "traces"), "trace"), log: logger}
}

func (l *TraceLogger) EpisodeStarted(e session.EpisodeInfo) {
	l.write(TraceEntry{Kind: KindEpisodeStarted, Started: &e})
}

func (l *TraceLogger) Dispatched(d session.DispatchRecord) {
	l.write(TraceEntry{Kind: KindDispatch, Dispatch: &d})
}

func (l *TraceLogger) EpisodeEnded(o session.Outcome) {
	l.write(TraceEntry{Kind: KindEpisodeEnded, Ended: &o})
}

// Failed is the number of entries that could not be written.
func (l *TraceLogger) Failed() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failed
}

func (l *TraceLogger) Close() error { return l.w.Close() }

func (l *TraceLogger) write(e TraceEntry) {
	if err := l.w.Write(e); err != nil {
		l.mu.Lock()
		l.failed++
		l.mu.Unlock()
		l.log.Printf("trace write %s: %v", e.Kind, err)
	}
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"tutorsim.ai/internal/metrics"
	"tutorsim.ai/internal/persistence/indexdb"
	persistlog "tutorsim.ai/internal/persistence/log"
	"tutorsim.ai/internal/sim/catalogs"
	"tutorsim.ai/internal/sim/session"
	"tutorsim.ai/internal/sim/tuning"
	"tutorsim.ai/internal/transport/ws"
)

type serverConfig struct {
	Addr        string
	ConfigDir   string
	DataDir     string
	TuningPath  string
	ContentPath string
	DisableDB   bool
	EnablePprof bool
}

func main() {
	for _, envFile := range []string{".env", "../../.env"} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	var cfg serverConfig
	root := &cobra.Command{
		Use:          "tutor-server",
		Short:        "Serve teacher sessions to learners over websocket",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
	}
	f := root.Flags()
	f.StringVar(&cfg.Addr, "addr", envOr("TUTOR_ADDR", ":8080"), "http listen address")
	f.StringVar(&cfg.ConfigDir, "configs", envOr("TUTOR_CONFIGS", "./configs"), "config directory")
	f.StringVar(&cfg.DataDir, "data", envOr("TUTOR_DATA", "./data"), "runtime data directory")
	f.StringVar(&cfg.TuningPath, "tuning", os.Getenv("TUTOR_TUNING"), "path to tuning.yaml (default: <configs>/tuning.yaml)")
	f.StringVar(&cfg.ContentPath, "content", os.Getenv("TUTOR_CONTENT"), "path to content.yaml (default: <configs>/content.yaml, else built in)")
	f.BoolVar(&cfg.DisableDB, "disable_db", envBool("TUTOR_DISABLE_DB", false), "disable the sqlite outcome index")
	f.BoolVar(&cfg.EnablePprof, "pprof", envBool("TUTOR_ENABLE_PPROF_HTTP", false), "serve /debug/pprof")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg serverConfig) error {
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	rt, err := newRuntime(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           rt.mux(cfg.EnablePprof),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Printf("listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ListenAndServe: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx2)
	})
	return g.Wait()
}

// runtime holds the long-lived components of one server process.
type runtime struct {
	log     *log.Logger
	tune    tuning.Tuning
	cats    *catalogs.Catalogs
	traces  *persistlog.TraceLogger
	index   *indexdb.SQLiteIndex
	metrics *metrics.Recorder
	ws      *ws.Server
}

func newRuntime(cfg serverConfig, logger *log.Logger) (*runtime, error) {
	tp := strings.TrimSpace(cfg.TuningPath)
	if tp == "" {
		tp = filepath.Join(cfg.ConfigDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load tuning: %w", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	cats, err := loadContent(cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}
	rt := &runtime{
		log:     logger,
		tune:    tune,
		cats:    cats,
		traces:  persistlog.NewTraceLogger(cfg.DataDir, log.New(os.Stdout, "[trace] ", log.LstdFlags|log.Lmicroseconds)),
		metrics: metrics.New(),
	}
	recorders := []session.Recorder{rt.traces, rt.metrics}

	idx, err := openRuntimeIndex(cfg.DataDir, cfg.DisableDB, logger)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("open index backend: %w", err)
	}
	if idx != nil {
		rt.index = idx
		recorders = append(recorders, idx)
		if err := idx.UpsertCatalogs(cats, tune); err != nil {
			logger.Printf("index catalogs: %v", err)
		}
		registerIndexMetrics(rt.metrics, idx, logger)
	}

	f, err := session.NewFactory(tune, cats,
		session.WithFactoryLogger(log.New(os.Stdout, "[session] ", log.LstdFlags|log.Lmicroseconds)),
		session.WithFactoryRecorders(recorders...))
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.ws, err = ws.NewServer(f,
		ws.WithLogger(log.New(os.Stdout, "[ws] ", log.LstdFlags|log.Lmicroseconds)),
		ws.WithLifecycle(rt.metrics))
	if err != nil {
		rt.Close()
		return nil, err
	}
	logger.Printf("curriculum=%v time_char=%d content=%s tuning=%s", f.Tasks(), tune.TimeChar, short(cats.Digest), short(tune.Digest()))
	return rt, nil
}

func loadContent(cfg serverConfig, logger *log.Logger) (*catalogs.Catalogs, error) {
	cp := strings.TrimSpace(cfg.ContentPath)
	explicit := cp != ""
	if !explicit {
		cp = filepath.Join(cfg.ConfigDir, "content.yaml")
	}
	cats, err := catalogs.Load(cp)
	if err == nil {
		return cats, nil
	}
	if explicit || !os.IsNotExist(err) {
		return nil, fmt.Errorf("load content: %w", err)
	}
	logger.Printf("content not found (%s); using built-in catalog", cp)
	return catalogs.Default()
}

func (rt *runtime) mux(enablePprof bool) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.Handle("/metrics", rt.metrics.Handler())
	mux.HandleFunc("/v1/stats", func(rw http.ResponseWriter, r *http.Request) {
		if rt.index == nil {
			http.Error(rw, "index disabled", http.StatusNotFound)
			return
		}
		sums, err := rt.index.TaskSummaries(r.Context())
		if err != nil {
			http.Error(rw, err.Error(), http.StatusInternalServerError)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(map[string]any{"tasks": sums})
	})
	if enablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/v1/ws", rt.ws.Handler())
	return mux
}

func (rt *runtime) Close() {
	if rt.index != nil {
		if err := rt.index.Close(); err != nil {
			rt.log.Printf("close index: %v", err)
		}
	}
	if rt.traces != nil {
		if err := rt.traces.Close(); err != nil {
			rt.log.Printf("close traces: %v", err)
		}
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func short(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}

func registerIndexMetrics(m *metrics.Recorder, idx *indexdb.SQLiteIndex, logger *log.Logger) {
	err := m.Register(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "tutorsim_index_queue_depth", Help: "Outcome index writer backlog.",
		}, func() float64 { return float64(idx.Stats().QueueDepth) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "tutorsim_index_dropped_total", Help: "Index writes dropped because the queue was full.",
		}, func() float64 {
			st := idx.Stats()
			return float64(st.DropStartedTotal + st.DropDispatchTotal + st.DropEndedTotal)
		}),
	)
	if err != nil {
		logger.Printf("index metrics: %v", err)
	}
}

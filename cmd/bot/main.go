package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"tutorsim.ai/internal/learner"
	"tutorsim.ai/internal/protocol"
	"tutorsim.ai/internal/sim/catalogs"
	"tutorsim.ai/internal/sim/session"
	"tutorsim.ai/internal/sim/tuning"
	"tutorsim.ai/internal/sim/world"
)

type botConfig struct {
	URL       string
	Name      string
	Episodes  int
	Gap       time.Duration
	Local     bool
	ConfigDir string
}

func main() {
	var cfg botConfig
	root := &cobra.Command{
		Use:          "tutor-bot",
		Short:        "Scripted learner that works through the curriculum",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
			if cfg.Local {
				return runLocal(cfg, logger)
			}
			return runRemote(cmd.Context(), cfg, logger)
		},
	}
	f := root.Flags()
	f.StringVar(&cfg.URL, "url", "ws://localhost:8080/v1/ws", "ws url")
	f.StringVar(&cfg.Name, "name", "bot", "learner name")
	f.IntVar(&cfg.Episodes, "episodes", 20, "stop after this many episodes")
	f.DurationVar(&cfg.Gap, "gap", 100*time.Millisecond, "quiet time before the bot speaks again")
	f.BoolVar(&cfg.Local, "local", false, "run an in-process session instead of connecting")
	f.StringVar(&cfg.ConfigDir, "configs", "./configs", "config directory (with --local)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// tally counts finished episodes by cause.
type tally struct {
	episodes int
	reward   int
	causes   map[string]int
}

func (t *tally) add(cause string, reward int) {
	if t.causes == nil {
		t.causes = map[string]int{}
	}
	t.episodes++
	t.reward += reward
	t.causes[cause]++
}

func (t *tally) String() string {
	return fmt.Sprintf("episodes=%d reward=%d causes=%v", t.episodes, t.reward, t.causes)
}

func runLocal(cfg botConfig, logger *log.Logger) error {
	tune, err := tuning.Load(filepath.Join(cfg.ConfigDir, "tuning.yaml"))
	if err != nil {
		logger.Printf("tuning: %v; using defaults", err)
		tune = tuning.Defaults()
	}
	cats, err := catalogs.Load(filepath.Join(cfg.ConfigDir, "content.yaml"))
	if err != nil {
		logger.Printf("content: %v; using built-in catalog", err)
		if cats, err = catalogs.Default(); err != nil {
			return err
		}
	}
	f, err := session.NewFactory(tune, cats)
	if err != nil {
		return err
	}
	s, _, err := f.Open(cfg.Name)
	if err != nil {
		return err
	}
	defer s.Close()

	dir, _ := world.ParseDirection(tune.World.StartDir)
	l := learner.New(dir, tune.World.StarterItems)
	var t tally
	hear := func(out []session.Outbound) {
		for _, o := range out {
			l.Hear(string(o.Kind), o.Text)
			switch o.Kind {
			case session.KindEpisode:
				logger.Printf("EPISODE task=%s max_time=%d", o.Task, o.MaxTime)
			case session.KindReward:
				t.add(o.Cause, o.Reward)
				logger.Printf("REWARD %d cause=%s elapsed=%d", o.Reward, o.Cause, o.Elapsed)
			default:
				logger.Printf("%s: %s", o.Kind, o.Text)
			}
		}
	}
	out, err := s.Begin()
	if err != nil {
		return err
	}
	hear(out)
	for t.episodes < cfg.Episodes {
		u := l.Next()
		logger.Printf("say: %s", u)
		out, err := s.Say(u)
		if err != nil {
			return err
		}
		hear(out)
	}
	logger.Printf("done: %s", &t)
	return nil
}

func runRemote(ctx context.Context, cfg botConfig, logger *log.Logger) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		LearnerName:     cfg.Name,
	}
	if err := conn.WriteJSON(hello); err != nil {
		return fmt.Errorf("send HELLO: %w", err)
	}

	msgs := make(chan []byte, 64)
	go func() {
		defer close(msgs)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			msgs <- msg
		}
	}()

	var (
		l     *learner.Learner
		t     tally
		quiet = time.NewTimer(cfg.Gap)
	)
	defer quiet.Stop()
	for t.episodes < cfg.Episodes {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				logger.Printf("connection closed: %s", &t)
				return nil
			}
			l = handle(logger, l, &t, msg)
			if !quiet.Stop() {
				select {
				case <-quiet.C:
				default:
				}
			}
			quiet.Reset(cfg.Gap)
		case <-quiet.C:
			if l != nil {
				u := l.Next()
				logger.Printf("say: %s", u)
				say := protocol.SayMsg{Type: protocol.TypeSay, ProtocolVersion: protocol.Version, Text: u}
				if err := conn.WriteJSON(say); err != nil {
					return fmt.Errorf("send SAY: %w", err)
				}
			}
			quiet.Reset(cfg.Gap)
		}
	}
	logger.Printf("done: %s", &t)
	return nil
}

func handle(logger *log.Logger, l *learner.Learner, t *tally, msg []byte) *learner.Learner {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return l
	}
	switch base.Type {
	case protocol.TypeWelcome:
		var w protocol.WelcomeMsg
		if err := json.Unmarshal(msg, &w); err != nil {
			return l
		}
		logger.Printf("WELCOME session=%s time_char=%d tasks=%v", w.SessionID, w.Params.TimeChar, w.Params.Tasks)
		dir, err := world.ParseDirection(w.Params.StartDir)
		if err != nil {
			dir = world.North
		}
		return learner.New(dir, w.Params.StarterItems)
	case protocol.TypeEpisode:
		var e protocol.EpisodeMsg
		if json.Unmarshal(msg, &e) == nil && l != nil {
			logger.Printf("EPISODE task=%s max_time=%d", e.Task, e.MaxTime)
			l.Hear(learner.KindEpisode, "")
		}
	case protocol.TypeTeacher:
		var m protocol.TeacherMsg
		if json.Unmarshal(msg, &m) == nil && l != nil {
			logger.Printf("%s: %s", m.Kind, m.Text)
			l.Hear(m.Kind, m.Text)
		}
	case protocol.TypeReward:
		var r protocol.RewardMsg
		if json.Unmarshal(msg, &r) == nil {
			t.add(r.Cause, r.Reward)
			logger.Printf("REWARD %d cause=%s elapsed=%d", r.Reward, r.Cause, r.Elapsed)
		}
	case protocol.TypeError:
		var e protocol.ErrorMsg
		if json.Unmarshal(msg, &e) == nil {
			logger.Printf("ERROR %s: %s", e.Code, e.Message)
		}
	}
	return l
}

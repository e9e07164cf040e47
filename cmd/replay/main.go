package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	persistlog "tutorsim.ai/internal/persistence/log"
)

func main() {
	var (
		dataDir string
		episode string
		file    string
	)
	root := &cobra.Command{
		Use:          "tutor-replay",
		Short:        "Summarize episode traces written by the server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			sum := newSummary(episode)
			var err error
			if file != "" {
				err = persistlog.ReadTraceFile(file, sum.add)
			} else {
				err = persistlog.ReadTraces(dataDir, sum.add)
			}
			if err != nil {
				return fmt.Errorf("read traces: %w", err)
			}
			sum.write(cmd.OutOrStdout())
			return nil
		},
	}
	root.Flags().StringVar(&dataDir, "data", "./data", "runtime data directory (reads <data>/traces)")
	root.Flags().StringVar(&file, "file", "", "a single trace-*.jsonl.zst file")
	root.Flags().StringVar(&episode, "episode", "", "print the dispatch trace of one episode id")
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

type taskRow struct {
	started int
	causes  map[string]int
	reward  int
	faults  int
	viols   int
}

type summary struct {
	episode string

	tasks    map[string]*taskRow
	open     map[string]string // episode id -> task, until it ends
	sessions map[string]bool
	lines    []string
}

func newSummary(episode string) *summary {
	return &summary{
		episode:  episode,
		tasks:    map[string]*taskRow{},
		open:     map[string]string{},
		sessions: map[string]bool{},
	}
}

func (s *summary) row(task string) *taskRow {
	r := s.tasks[task]
	if r == nil {
		r = &taskRow{causes: map[string]int{}}
		s.tasks[task] = r
	}
	return r
}

func (s *summary) add(e persistlog.TraceEntry) bool {
	switch {
	case e.Started != nil:
		s.row(e.Started.Task).started++
		s.open[e.Started.EpisodeID] = e.Started.Task
		s.sessions[e.Started.SessionID] = true
		if e.Started.EpisodeID == s.episode {
			s.lines = append(s.lines, fmt.Sprintf("start task=%s max_time=%d learner=%s", e.Started.Task, e.Started.MaxTime, e.Started.Learner))
		}
	case e.Dispatch != nil:
		d := e.Dispatch
		r := s.row(d.Task)
		r.faults += len(d.Faults)
		r.viols += len(d.Violations)
		if d.EpisodeID == s.episode {
			line := fmt.Sprintf("t=%d %s", d.Elapsed, strings.Join(d.Delivered, ","))
			if d.Utterance != "" {
				line += fmt.Sprintf(" %q", d.Utterance)
			}
			if d.Feedback != "" {
				line += fmt.Sprintf(" -> %q", d.Feedback)
			}
			for _, f := range d.Faults {
				line += " fault: " + f
			}
			for _, v := range d.Violations {
				line += " violation: " + v
			}
			s.lines = append(s.lines, line)
		}
	case e.Ended != nil:
		o := e.Ended
		r := s.row(o.Task)
		r.causes[o.Cause]++
		r.reward += o.Reward
		delete(s.open, o.EpisodeID)
		if o.EpisodeID == s.episode {
			s.lines = append(s.lines, fmt.Sprintf("end cause=%s reward=%d elapsed=%d/%d", o.Cause, o.Reward, o.Elapsed, o.MaxTime))
		}
	}
	return true
}

func (s *summary) write(w io.Writer) {
	if s.episode != "" {
		if len(s.lines) == 0 {
			fmt.Fprintf(w, "episode %s not found\n", s.episode)
			return
		}
		fmt.Fprintf(w, "episode %s\n", s.episode)
		for _, l := range s.lines {
			fmt.Fprintf(w, "  %s\n", l)
		}
		return
	}

	names := make([]string, 0, len(s.tasks))
	for n := range s.tasks {
		names = append(names, n)
	}
	sort.Strings(names)
	fmt.Fprintf(w, "%-30s %7s %7s %7s %7s %7s %7s %7s %7s\n", "task", "started", "reward", "timeout", "fault", "aborted", "sum", "faults", "viols")
	var total taskRow
	for _, n := range names {
		r := s.tasks[n]
		fmt.Fprintf(w, "%-30s %7d %7d %7d %7d %7d %7d %7d %7d\n", n, r.started,
			r.causes["reward"], r.causes["timeout"], r.causes["fault"], r.causes["aborted"], r.reward, r.faults, r.viols)
		total.started += r.started
		total.reward += r.reward
		total.faults += r.faults
		total.viols += r.viols
	}
	fmt.Fprintf(w, "sessions=%d episodes=%d reward=%d faults=%d violations=%d unfinished=%d\n",
		len(s.sessions), total.started, total.reward, total.faults, total.viols, len(s.open))
}

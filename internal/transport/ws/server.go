package ws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"tutorsim.ai/internal/channel"
	"tutorsim.ai/internal/protocol"
	"tutorsim.ai/internal/sim/session"
)

// Lifecycle is notified as learners connect and leave.
type Lifecycle interface {
	SessionOpened()
	SessionClosed()
}

// maxFrame is the largest inbound frame read. It covers a SAY whose 4096
// character text is fully \u escaped, plus the envelope.
const maxFrame = 4096*6 + 1024

type Server struct {
	sessions *session.Factory
	schemas  *protocol.Schemas
	log      *log.Logger
	life     Lifecycle

	upgrader websocket.Upgrader
}

type Option func(*Server)

func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

func WithLifecycle(l Lifecycle) Option {
	return func(s *Server) { s.life = l }
}

func NewServer(f *session.Factory, opts ...Option) (*Server, error) {
	schemas, err := protocol.LoadSchemas()
	if err != nil {
		return nil, err
	}
	s := &Server{
		sessions: f,
		schemas:  schemas,
		log:      log.New(io.Discard, "", 0),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.SetReadLimit(maxFrame)

		sess := s.handshake(conn)
		if sess == nil {
			return
		}
		defer sess.Close()
		if s.life != nil {
			s.life.SessionOpened()
			defer s.life.SessionClosed()
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		out := make(chan []byte, 32)
		done := make(chan struct{})

		// Writer goroutine.
		go func() {
			defer close(done)
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		send := func(v any) bool {
			b, err := json.Marshal(v)
			if err != nil {
				s.log.Printf("marshal %T: %v", v, err)
				return false
			}
			select {
			case out <- b:
				return true
			case <-ctx.Done():
				return false
			}
		}

		first, err := sess.Begin()
		if err != nil {
			s.log.Printf("session=%s begin: %v", sess.ID(), err)
			send(errorMsg(protocol.ErrCurriculum, err.Error()))
			cancel()
			<-done
			return
		}
		for _, o := range first {
			send(Encode(o))
		}

		split := channel.NewSplitter(s.sessions.Tuning().Channel.MaxUtterance)

		// Reader loop.
		for ctx.Err() == nil {
			_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if err := s.schemas.Validate(msg); err != nil {
				send(errorMsg(protocol.ErrProtoBadRequest, err.Error()))
				continue
			}
			base, _ := protocol.DecodeBase(msg)
			if base.ProtocolVersion != protocol.Version {
				send(errorMsg(protocol.ErrProtoVersion, "bad protocol_version"))
				continue
			}
			if base.Type != protocol.TypeSay {
				send(errorMsg(protocol.ErrProtoBadRequest, "expected SAY"))
				continue
			}
			var say protocol.SayMsg
			if err := json.Unmarshal(msg, &say); err != nil {
				send(errorMsg(protocol.ErrProtoBadRequest, err.Error()))
				continue
			}
			utterances, err := split.Feed(say.Text)
			for _, u := range utterances {
				res, serr := sess.Say(u)
				for _, o := range res {
					send(Encode(o))
				}
				if serr != nil {
					s.log.Printf("session=%s say: %v", sess.ID(), serr)
					send(errorMsg(sessionCode(serr), serr.Error()))
					if errors.Is(serr, session.ErrClosed) {
						cancel()
					}
				}
			}
			if errors.Is(err, channel.ErrOverflow) {
				send(errorMsg(protocol.ErrTooLong, err.Error()))
			}
		}

		cancel()
		<-done
		s.log.Printf("session=%s learner=%q disconnected after %d episodes", sess.ID(), sess.Learner(), sess.Episodes())
	}
}

func (s *Server) handshake(conn *websocket.Conn) *session.Session {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return nil
	}
	if base.ProtocolVersion != protocol.Version {
		_ = writeJSON(conn, errorMsg(protocol.ErrProtoVersion, "bad protocol_version"))
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return nil
	}
	if err := s.schemas.Validate(msg); err != nil {
		_ = writeJSON(conn, errorMsg(protocol.ErrProtoBadRequest, err.Error()))
		return nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil
	}
	name := strings.TrimSpace(hello.LearnerName)
	if name == "" {
		name = "learner"
	}

	sess, _, err := s.sessions.Open(name)
	if err != nil {
		s.log.Printf("open session for %q: %v", name, err)
		_ = writeJSON(conn, errorMsg(protocol.ErrInternal, err.Error()))
		return nil
	}
	if err := writeJSON(conn, Welcome(s.sessions, sess)); err != nil {
		sess.Close()
		return nil
	}
	s.log.Printf("session=%s learner=%q connected", sess.ID(), name)
	return sess
}

// Welcome describes the session parameters and content a learner will see.
func Welcome(f *session.Factory, sess *session.Session) protocol.WelcomeMsg {
	tu, cats := f.Tuning(), f.Content()
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sess.ID(),
		LearnerID:       sess.Learner(),
		Params: protocol.SessionParams{
			TimeChar:     tu.TimeChar,
			StartPos:     tu.World.StartPos,
			StartDir:     tu.World.StartDir,
			BoundaryR:    tu.World.BoundaryR,
			StarterItems: tu.World.StarterItems,
			Tasks:        f.Tasks(),
			Seed:         tu.Seed,
		},
		Catalogs: protocol.CatalogDigests{
			ContentDigest: cats.Digest,
			Verbs:         protocol.DigestRef{Digest: cats.Verbs.Digest, Count: len(cats.Verbs.Defs)},
			Objects:       protocol.DigestRef{Digest: cats.Objects.Digest, Count: len(cats.Objects.Palette)},
			TuningDigest:  tu.Digest(),
		},
	}
}

// Encode maps one session message onto the wire.
func Encode(o session.Outbound) any {
	switch o.Kind {
	case session.KindEpisode:
		return protocol.EpisodeMsg{Type: protocol.TypeEpisode, ProtocolVersion: protocol.Version, EpisodeID: o.EpisodeID, Task: o.Task, MaxTime: o.MaxTime}
	case session.KindReward:
		return protocol.RewardMsg{Type: protocol.TypeReward, ProtocolVersion: protocol.Version, EpisodeID: o.EpisodeID, Reward: o.Reward, Cause: o.Cause, Elapsed: o.Elapsed}
	default:
		return protocol.TeacherMsg{Type: protocol.TypeTeacher, ProtocolVersion: protocol.Version, EpisodeID: o.EpisodeID, Kind: string(o.Kind), Text: o.Text}
	}
}

func sessionCode(err error) string {
	switch {
	case errors.Is(err, session.ErrClosed):
		return protocol.ErrSessionClosed
	case errors.Is(err, session.ErrNotStarted):
		return protocol.ErrNotStarted
	default:
		return protocol.ErrCurriculum
	}
}

func errorMsg(code, message string) protocol.ErrorMsg {
	return protocol.ErrorMsg{Type: protocol.TypeError, ProtocolVersion: protocol.Version, Code: code, Message: message}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}

package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	LearnerName     string `json:"learner_name"`
}

// SAY (client -> server): a text fragment. The server buffers fragments up
// to a sentence end before the teacher hears them.
type SayMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Text            string `json:"text"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	LearnerID       string         `json:"learner_id"`
	Params          SessionParams  `json:"params"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type SessionParams struct {
	TimeChar     int            `json:"time_char"`
	StartPos     [2]int         `json:"start_pos"`
	StartDir     string         `json:"start_dir"`
	BoundaryR    int            `json:"boundary_r"`
	StarterItems map[string]int `json:"starter_items,omitempty"`
	Tasks        []string       `json:"tasks"`
	Seed         int64          `json:"seed"`
}

type CatalogDigests struct {
	ContentDigest string    `json:"content_digest"`
	Verbs         DigestRef `json:"verbs"`
	Objects       DigestRef `json:"objects"`
	TuningDigest  string    `json:"tuning_digest,omitempty"`
}

type DigestRef struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

// EPISODE (server -> client): a new task begins.
type EpisodeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	EpisodeID       string `json:"episode_id"`
	Task            string `json:"task"`
	MaxTime         int    `json:"max_time"`
}

// TEACHER (server -> client)
type TeacherMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	EpisodeID       string `json:"episode_id"`
	Kind            string `json:"kind"`
	Text            string `json:"text"`
}

// REWARD (server -> client): the episode has ended.
type RewardMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	EpisodeID       string `json:"episode_id"`
	Reward          int    `json:"reward"`
	Cause           string `json:"cause"`
	Elapsed         int    `json:"elapsed"`
}

type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

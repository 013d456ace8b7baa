package realtime

import (
	"encoding/json"
	"time"

	"github.com/wavespace/wavespace/pkg/backend"
)

// Channel protocol events.
const (
	eventJoin      = "phx_join"
	eventLeave     = "phx_leave"
	eventReply     = "phx_reply"
	eventError     = "phx_error"
	eventClose     = "phx_close"
	eventHeartbeat = "heartbeat"
	eventChanges   = "postgres_changes"

	heartbeatTopic = "phoenix"
	topicPrefix    = "realtime:"
)

type frame struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     *string         `json:"ref"`
	JoinRef *string         `json:"join_ref,omitempty"`
}

type changeFilter struct {
	Event  string `json:"event"`
	Schema string `json:"schema"`
	Table  string `json:"table"`
	Filter string `json:"filter,omitempty"`
}

type joinPayload struct {
	Config struct {
		Broadcast struct {
			Self bool `json:"self"`
		} `json:"broadcast"`
		Presence struct {
			Key string `json:"key"`
		} `json:"presence"`
		PostgresChanges []changeFilter `json:"postgres_changes"`
	} `json:"config"`
	AccessToken string `json:"access_token,omitempty"`
}

func newJoinPayload(spec backend.ChangeSpec, token string) joinPayload {
	var p joinPayload
	p.Config.PostgresChanges = []changeFilter{{
		Event:  spec.Event,
		Schema: spec.Schema,
		Table:  spec.Table,
		Filter: spec.Filter,
	}}
	p.AccessToken = token
	return p
}

type reply struct {
	Status   string `json:"status"`
	Response struct {
		Reason string `json:"reason"`
	} `json:"response"`
}

type changesPayload struct {
	Data struct {
		Type            string      `json:"type"`
		Schema          string      `json:"schema"`
		Table           string      `json:"table"`
		Record          backend.Row `json:"record"`
		OldRecord       backend.Row `json:"old_record"`
		CommitTimestamp string      `json:"commit_timestamp"`
	} `json:"data"`
}

func (p changesPayload) change() backend.Change {
	ts, _ := time.Parse(time.RFC3339Nano, p.Data.CommitTimestamp) //nolint:errcheck // zero time when absent
	return backend.Change{
		Event:           p.Data.Type,
		Schema:          p.Data.Schema,
		Table:           p.Data.Table,
		New:             p.Data.Record,
		Old:             p.Data.OldRecord,
		CommitTimestamp: ts,
	}
}

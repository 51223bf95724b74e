package models

import (
	"fmt"
	"maps"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/uptrace/bun"
)

// Session is one row of the sessions table. The data column is read through
// an alias so the configured column name never leaks into the model tags.
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:s"`

	ID        string    `json:"id" bun:",pk"`
	SessionID string    `json:"session_id" bun:",unique,notnull"`
	RawData   []byte    `json:"-" bun:"data,scanonly"`
	CreatedAt time.Time `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `json:"updated_at" bun:",nullzero,notnull,default:current_timestamp"`

	binding SessionBinding
	loaded  bool
	data    map[string]any
	loadErr error
}

// SessionBinding carries what a record needs to materialize its data lazily.
type SessionBinding struct {
	Codec  Codec
	Logger Logger
	// OnCorrupt is called once when the stored blob cannot be decoded.
	OnCorrupt func(session *Session, err error)
}

// NewSession builds an unsaved record for the given identifier.
func NewSession(sessionID string, binding SessionBinding) *Session {
	return &Session{
		SessionID: sessionID,
		binding:   binding,
	}
}

// Bind attaches the codec and logger used by Data. Records scanned by the
// repository are unbound until the store binds them.
func (s *Session) Bind(binding SessionBinding) {
	s.binding = binding
}

// IsNew reports whether the record has never been inserted.
func (s *Session) IsNew() bool {
	return s.ID == ""
}

// Loaded reports whether the data mapping has been materialized.
func (s *Session) Loaded() bool {
	return s.loaded
}

// LoadError returns the decode error swallowed by Data, if any.
func (s *Session) LoadError() error {
	return s.loadErr
}

// Data returns the session mapping, decoding RawData on first use.
// Unreadable blobs degrade to an empty mapping; see LoadError.
func (s *Session) Data() map[string]any {
	if !s.loaded {
		s.data = s.unmarshal()
		s.loaded = true
	}
	return s.data
}

// SetData replaces the mapping and marks the record as loaded.
func (s *Session) SetData(data map[string]any) {
	if data == nil {
		data = make(map[string]any)
	}
	s.data = data
	s.loaded = true
}

func (s *Session) Get(key string) (any, bool) {
	value, ok := s.Data()[key]
	return value, ok
}

func (s *Session) Set(key string, value any) {
	s.Data()[key] = value
}

func (s *Session) Delete(key string) {
	delete(s.Data(), key)
}

// Clear empties the mapping in place.
func (s *Session) Clear() {
	s.SetData(nil)
}

// Snapshot returns a shallow copy of the mapping.
func (s *Session) Snapshot() map[string]any {
	return maps.Clone(s.Data())
}

// Decode copies the mapping into a typed struct using its json tags.
func (s *Session) Decode(target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		),
		WeaklyTypedInput: true,
		Result:           target,
		TagName:          "json",
	})
	if err != nil {
		return err
	}
	return decoder.Decode(s.Data())
}

func (s *Session) unmarshal() map[string]any {
	if len(s.RawData) == 0 {
		return make(map[string]any)
	}

	if s.binding.Codec == nil {
		s.corrupt(fmt.Errorf("%w: no codec bound to session record", ErrCorruptSessionData))
		return make(map[string]any)
	}

	data, err := s.binding.Codec.Unmarshal(s.RawData)
	if err != nil {
		s.corrupt(err)
		return make(map[string]any)
	}
	if data == nil {
		data = make(map[string]any)
	}
	return data
}

func (s *Session) corrupt(err error) {
	s.loadErr = err
	if s.binding.Logger != nil {
		s.binding.Logger.Warn("discarding unreadable session data",
			"id", s.ID,
			"bytes", len(s.RawData),
			"error", err,
		)
	}
	if s.binding.OnCorrupt != nil {
		s.binding.OnCorrupt(s, err)
	}
}

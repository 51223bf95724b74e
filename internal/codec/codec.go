package codec

import (
	"fmt"

	"github.com/GoBetterAuth/session-store/models"
)

const (
	NameJSON    = "json"
	NameMsgpack = "msgpack"
)

// New returns the codec registered under name. An empty name selects JSON.
func New(name string) (models.Codec, error) {
	switch name {
	case "", NameJSON:
		return JSON{}, nil
	case NameMsgpack:
		return Msgpack{}, nil
	default:
		return nil, fmt.Errorf("unsupported session codec: %s", name)
	}
}

func corrupt(codec string, err error) error {
	return fmt.Errorf("%w: %s: %v", models.ErrCorruptSessionData, codec, err)
}

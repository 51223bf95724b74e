package models

type ContextKey string

const (
	ContextSession ContextKey = "sessionstore.session"
)

func (k ContextKey) String() string {
	return string(k)
}

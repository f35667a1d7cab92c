package pipeline

import "context"

// Kind names one of the two recognition pipelines.
type Kind string

const (
	KindLegacy Kind = "legacy"
	KindStream Kind = "stream"
)

// Event is a UI-visible state change from a pipeline manager. Every
// event carries a full transcript snapshot so consumers never have to
// reassemble ordering.
type Event struct {
	Pipeline  Kind
	State     State
	Finalized string
	Volatile  string
	Err       error
}

// Locales is the catalog surface the managers need.
type Locales interface {
	Supported(locale string) bool
	Installed(locale string) bool
	Install(ctx context.Context, locale string) error
}

// Package permission models access prompts for the microphone and for
// speech recognition as an explicit collaborator, so denial paths are
// testable instead of buried in platform callbacks.
package permission

import "context"

// Authority resolves permission requests. Each request returns whether
// access was granted; an error means the request itself could not run.
type Authority interface {
	RequestMicrophone(ctx context.Context) (bool, error)
	RequestRecognition(ctx context.Context) (bool, error)
}

// Static answers requests from fixed configuration. Desktop backends
// surface their own OS-level prompts on first device use, so the default
// grants both; denying either exercises the abort path.
type Static struct {
	Microphone  bool
	Recognition bool
}

// Granted returns an authority that allows everything.
func Granted() Static {
	return Static{Microphone: true, Recognition: true}
}

func (s Static) RequestMicrophone(context.Context) (bool, error) {
	return s.Microphone, nil
}

func (s Static) RequestRecognition(context.Context) (bool, error) {
	return s.Recognition, nil
}

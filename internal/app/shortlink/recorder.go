package shortlink

// Recorder observes successful operations. Shorten calls LinkCreated exactly once per new
// binding and Resolve calls Redirected exactly once per successful lookup. Implementations
// must be safe for concurrent use and must not block.
type Recorder interface {
	LinkCreated(l Link)
	Redirected(l Link)
}

type NopRecorder struct{}

func (NopRecorder) LinkCreated(Link) {}
func (NopRecorder) Redirected(Link)  {}

// MultiRecorder fans every call out to each recorder in order.
type MultiRecorder []Recorder

func (m MultiRecorder) LinkCreated(l Link) {
	for _, r := range m {
		r.LinkCreated(l)
	}
}

func (m MultiRecorder) Redirected(l Link) {
	for _, r := range m {
		r.Redirected(l)
	}
}

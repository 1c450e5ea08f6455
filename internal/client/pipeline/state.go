package pipeline

import "fmt"

// State is the stage a write intent is in.
type State int

const (
	Idle State = iota
	AwaitingAuth
	Authorized
	Denied
	AwaitingDirectory
	DirectoryReady
	DirectoryFailed
	Writing
	Retrying
	Succeeded
	Failed
)

var stateNames = map[State]string{
	Idle:              "idle",
	AwaitingAuth:      "awaiting-auth",
	Authorized:        "authorized",
	Denied:            "denied",
	AwaitingDirectory: "awaiting-directory",
	DirectoryReady:    "directory-ready",
	DirectoryFailed:   "directory-failed",
	Writing:           "writing",
	Retrying:          "retrying",
	Succeeded:         "succeeded",
	Failed:            "failed",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transition is allowed.
func (s State) Terminal() bool {
	return len(transitions[s]) == 0
}

var transitions = map[State][]State{
	Idle:              {AwaitingAuth},
	AwaitingAuth:      {Authorized, Denied},
	Authorized:        {AwaitingDirectory, Writing, Failed},
	AwaitingDirectory: {DirectoryReady, DirectoryFailed},
	DirectoryReady:    {Writing},
	Writing:           {Succeeded, Failed, Retrying},
	Retrying:          {Writing, AwaitingDirectory, Failed},
}

// TransitionError is an attempt to move an intent along an edge the
// state machine does not have.
type TransitionError struct {
	Path     string
	From, To State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s for %s", e.From, e.To, e.Path)
}

// Intent is one logical write, upload or delete of a single path.
type Intent struct {
	Action   string
	Path     string
	state    State
	reauthed bool
	batch    *batch
	reporter Reporter
}

func newIntent(action, path string, r Reporter) *Intent {
	return &Intent{Action: action, Path: path, reporter: r}
}

func (in *Intent) State() State { return in.state }

// batch is shared by the intents of one command. Once the user declines
// reauthorization, the remaining intents are denied without asking again.
type batch struct {
	denied bool
}

func (b *batch) intent(action, path string, r Reporter) *Intent {
	in := newIntent(action, path, r)
	in.batch = b
	return in
}

// Denied reports whether reauthorization was declined earlier in the batch.
func (b *batch) Denied() bool { return b != nil && b.denied }

func (b *batch) deny() {
	if b != nil {
		b.denied = true
	}
}

func (in *Intent) to(next State) error {
	for _, allowed := range transitions[in.state] {
		if allowed == next {
			prev := in.state
			in.state = next
			in.reporter.Transition(in, prev, next)
			return nil
		}
	}
	return &TransitionError{Path: in.Path, From: in.state, To: next}
}

// grant runs the auth stage with an already known outcome.
func (in *Intent) grant(ok bool) error {
	if err := in.to(AwaitingAuth); err != nil {
		return err
	}
	if ok {
		return in.to(Authorized)
	}
	return in.to(Denied)
}

// Reporter observes intents and batch progress.
type Reporter interface {
	Transition(in *Intent, from, to State)
	FileDone(r FileResult, done, total int)
}

type NopReporter struct{}

func (NopReporter) Transition(*Intent, State, State) {}
func (NopReporter) FileDone(FileResult, int, int)    {}

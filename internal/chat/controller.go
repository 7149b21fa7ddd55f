package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/dumebi/healthchat/internal/session"
	"github.com/dumebi/healthchat/pkg/types"
)

// DefaultPacing is the small per-fragment delay used when emitting partial
// text; presentational only.
const DefaultPacing = 10 * time.Millisecond

// ErrAPIKeyMissing blocks a turn before any backend attempt is made.
var ErrAPIKeyMissing = errors.New("api key not configured")

// Secrets gates backend access; the controller fails closed when not ready.
type Secrets interface {
	Ready() bool
}

// StaticSecrets is a fixed readiness answer, used for demo mode and tests.
type StaticSecrets bool

func (s StaticSecrets) Ready() bool { return bool(s) }

// Controller orchestrates one turn at a time: persist the user message, call
// the engine, drain the fragment stream, persist the assistant reply. It also
// owns the per-conversation continuation handles.
type Controller struct {
	log      *slog.Logger
	eng      Engine
	sessions session.Store
	secrets  Secrets
	pacing   time.Duration

	// pace is swapped out in tests.
	pace func(d time.Duration)

	mu     sync.Mutex
	active map[string]Session
}

func NewController(log *slog.Logger, eng Engine, store session.Store, secrets Secrets, pacing time.Duration) *Controller {
	if pacing < 0 {
		pacing = DefaultPacing
	}
	return &Controller{
		log:      log,
		eng:      eng,
		sessions: store,
		secrets:  secrets,
		pacing:   pacing,
		pace:     time.Sleep,
		active:   make(map[string]Session),
	}
}

// EnsureGreeting seeds the fixed assistant greeting into an empty
// conversation so the transcript never renders blank.
func (c *Controller) EnsureGreeting(conversationID string) error {
	msgs, err := c.sessions.Get(conversationID)
	if err != nil {
		return err
	}
	if len(msgs) > 0 {
		return nil
	}
	return c.sessions.Append(conversationID, types.Message{
		Role:      types.RoleAssistant,
		Content:   Greeting,
		Timestamp: time.Now(),
	})
}

func (c *Controller) continuation(conversationID string) Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active[conversationID]
}

func (c *Controller) setContinuation(conversationID string, s Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active[conversationID] = s
}

// Submit runs one turn. The user message is appended immediately; the
// assistant message is appended once the reply completes or fails. emit is
// called with the running partial text after every fragment so the rendering
// surface can update the last bubble; it may be nil.
//
// Failures are absorbed at this boundary: a turn that fails still produces
// an assistant message (partial text plus marker, or the fixed apology) and
// the returned error only classifies what went wrong for the caller's
// warning display.
func (c *Controller) Submit(ctx context.Context, conversationID, model, prompt string, emit func(partial string)) (types.Message, error) {
	if !c.secrets.Ready() {
		return types.Message{}, ErrAPIKeyMissing
	}
	if emit == nil {
		emit = func(string) {}
	}

	prior, err := c.sessions.Get(conversationID)
	if err != nil {
		return types.Message{}, err
	}

	user := types.Message{Role: types.RoleUser, Content: prompt, Timestamp: time.Now()}
	if err := c.sessions.Append(conversationID, user); err != nil {
		return types.Message{}, err
	}

	// Only pass history once a continuation handle exists; the very first
	// turn goes out with the system instruction prefixed to the prompt
	// instead.
	var history []types.Message
	if c.continuation(conversationID) != nil {
		history = prior
	}

	st, sess, err := c.eng.Complete(ctx, model, prompt, history)
	if err != nil {
		c.log.Error("engine call", "err", err.Error(), "conversation", conversationID)
		assistant := types.Message{Role: types.RoleAssistant, Content: Apology, Timestamp: time.Now()}
		if aerr := c.sessions.Append(conversationID, assistant); aerr != nil {
			return types.Message{}, aerr
		}
		emit(assistant.Content)
		return assistant, err
	}
	defer st.Close()

	c.setContinuation(conversationID, sess)

	full := c.drain(st, emit)
	assistant := types.Message{Role: types.RoleAssistant, Content: full, Timestamp: time.Now()}
	if err := c.sessions.Append(conversationID, assistant); err != nil {
		return types.Message{}, err
	}
	return assistant, nil
}

// drain concatenates fragments, emitting each intermediate state. A failure
// mid-stream keeps the partial text and appends an error marker instead of
// surfacing the failure.
func (c *Controller) drain(st Stream, emit func(string)) string {
	var full string
	for {
		frag, err := st.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			c.log.Warn("stream interrupted", "err", err.Error())
			full += streamErrorMarker(err)
			emit(full)
			break
		}
		if frag == "" {
			continue
		}
		full += frag
		emit(full)
		if c.pacing > 0 {
			c.pace(c.pacing)
		}
	}
	return full
}

func streamErrorMarker(err error) string {
	return fmt.Sprintf("\n\n_Error while streaming response: %v_", err)
}

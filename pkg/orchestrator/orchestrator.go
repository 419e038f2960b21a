package orchestrator

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"github.com/altsmith/altbridge/pkg/extract"
	"github.com/altsmith/altbridge/pkg/vision"
	"github.com/altsmith/altbridge/pkg/wordpress"
)

// Deps are the collaborators the orchestrator drives. Function fields
// keep the loop testable without real network calls.
type Deps struct {
	Extract  func(ctx context.Context, pageURL, imageURL string) (*extract.ExtractedContext, error)
	Caption  func(ctx context.Context, req *vision.CaptionRequest) (string, error)
	WPClient func() *wordpress.Client // built from current settings, nil when unset
	Language func() string
	SyncMode func() string
}

// Orchestrator coordinates one generation at a time. Concurrent
// activations overwrite rather than queue: a later job supersedes an
// earlier one and the earlier job's late messages are dropped.
type Orchestrator struct {
	deps   Deps
	cmds   chan interface{}
	events chan Event
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates an orchestrator and starts its state loop.
func New(deps Deps) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		deps:   deps,
		cmds:   make(chan interface{}, 16),
		events: make(chan Event, 32),
		ctx:    ctx,
		cancel: cancel,
	}
	go o.loop()
	return o
}

// Events returns the stream of notifications for UI surfaces. The
// channel is buffered; a surface that is not listening simply misses
// live events and catches up through CheckStatus.
func (o *Orchestrator) Events() <-chan Event {
	return o.events
}

// Close stops the state loop.
func (o *Orchestrator) Close() {
	o.cancel()
}

// Generate starts a new generation, superseding any previous one, and
// returns the new job id. After Close it returns an empty id.
func (o *Orchestrator) Generate(pageURL, imageURL string) string {
	reply := make(chan string, 1)
	select {
	case o.cmds <- cmdGenerate{pageURL: pageURL, imageURL: imageURL, reply: reply}:
	case <-o.ctx.Done():
		return ""
	}
	select {
	case id := <-reply:
		return id
	case <-o.ctx.Done():
		return ""
	}
}

// CheckStatus replays the current state for a UI surface that just
// opened: completed data, then a pending error, then the in-progress
// stage, whichever is present first. After Close it reports idle.
func (o *Orchestrator) CheckStatus() Status {
	reply := make(chan Status, 1)
	select {
	case o.cmds <- cmdStatus{reply: reply}:
	case <-o.ctx.Done():
		return Status{Kind: StatusIdle}
	}
	select {
	case status := <-reply:
		return status
	case <-o.ctx.Done():
		return Status{Kind: StatusIdle}
	}
}

// PageNavigated clears the cached media id; a navigation means the
// cached resolution may belong to another page's image.
func (o *Orchestrator) PageNavigated() {
	o.post(cmdInvalidateMedia{})
}

// loop owns all mutable state. Nothing outside this method reads or
// writes it.
func (o *Orchestrator) loop() {
	var state *ProcessingState

	// media cache survives across generations until navigation
	cachedMediaURL := ""
	cachedMediaID := 0

	for {
		select {
		case <-o.ctx.Done():
			return
		case raw := <-o.cmds:
			switch cmd := raw.(type) {
			case cmdGenerate:
				state = &ProcessingState{
					JobID:    uuid.New().String(),
					Stage:    StageExtracting,
					PageURL:  cmd.pageURL,
					ImageURL: cmd.imageURL,
				}
				cmd.reply <- state.JobID
				o.emit(Event{Type: EventStage, JobID: state.JobID, Stage: StageExtracting})
				go o.runExtraction(state.JobID, cmd.pageURL, cmd.imageURL)

			case cmdStatus:
				cmd.reply <- statusOf(state)

			case cmdInvalidateMedia:
				cachedMediaURL = ""
				cachedMediaID = 0

			case cmdCachedMedia:
				if cmd.imageURL == cachedMediaURL {
					cmd.reply <- cachedMediaID
				} else {
					cmd.reply <- 0
				}

			case cmdStoreMedia:
				cachedMediaURL = cmd.imageURL
				cachedMediaID = cmd.mediaID

			case msgExtracted:
				if state == nil || state.JobID != cmd.jobID {
					continue // superseded
				}
				if cmd.err != nil {
					state.Stage = StageIdle
					state.Error = userMessage(cmd.err)
					o.emit(Event{Type: EventError, JobID: state.JobID, Error: state.Error})
					continue
				}
				state.Stage = StageGenerating
				state.OriginalAlt = cmd.ctx.OriginalAlt
				state.WPPostID = cmd.ctx.WPPostID
				state.IsWordPress = cmd.ctx.IsWordPress
				o.emit(Event{Type: EventStage, JobID: state.JobID, Stage: StageGenerating})
				go o.runCaptioning(state.JobID, state.ImageURL, cmd.ctx)
				if cmd.ctx.IsWordPress {
					go o.runMediaPrefetch(state.JobID, state.ImageURL)
				}

			case msgCaptioned:
				if state == nil || state.JobID != cmd.jobID {
					continue
				}
				if cmd.err != nil {
					state.Stage = StageIdle
					state.Error = cmd.err.Error()
					o.emit(Event{Type: EventError, JobID: state.JobID, Error: state.Error})
					continue
				}
				state.Stage = StageCompleted
				state.AltText = cmd.altText
				if state.ImageURL == cachedMediaURL {
					state.MediaID = cachedMediaID
				}
				snapshot := *state
				o.emit(Event{Type: EventCompleted, JobID: state.JobID, State: &snapshot})

			case msgMediaResolved:
				// Prefetch result; failures were already swallowed.
				cachedMediaURL = cmd.imageURL
				cachedMediaID = cmd.mediaID
				if state != nil && state.JobID == cmd.jobID && state.ImageURL == cmd.imageURL {
					state.MediaID = cmd.mediaID
				}
			}
		}
	}
}

// userMessage prefers the message-plus-suggestion form of extraction
// errors; other errors pass through unchanged.
func userMessage(err error) string {
	var exErr *extract.ExtractError
	if errors.As(err, &exErr) {
		return exErr.ForUser()
	}
	return err.Error()
}

func statusOf(state *ProcessingState) Status {
	switch {
	case state == nil:
		return Status{Kind: StatusIdle}
	case state.Stage == StageCompleted:
		snapshot := *state
		return Status{Kind: StatusCompleted, Stage: state.Stage, State: &snapshot}
	case state.Error != "":
		return Status{Kind: StatusError, Error: state.Error}
	default:
		return Status{Kind: StatusInProgress, Stage: state.Stage}
	}
}

// emit pushes an event without blocking the loop; a full buffer drops
// the event and the surface catches up via CheckStatus.
func (o *Orchestrator) emit(ev Event) {
	select {
	case o.events <- ev:
	default:
	}
}

func (o *Orchestrator) runExtraction(jobID, pageURL, imageURL string) {
	extracted, err := o.deps.Extract(o.ctx, pageURL, imageURL)
	if err != nil {
		o.post(msgExtracted{jobID: jobID, err: err})
		return
	}
	o.post(msgExtracted{jobID: jobID, ctx: &extractResult{
		OriginalAlt: extracted.OriginalAlt,
		HTMLContext: extracted.HTMLContext,
		WPPostID:    extracted.WPPostID,
		IsWordPress: extracted.IsWordPress,
		ImageBase64: extracted.ImageBase64,
	}})
}

func (o *Orchestrator) runCaptioning(jobID, imageURL string, extracted *extractResult) {
	altText, err := o.deps.Caption(o.ctx, &vision.CaptionRequest{
		ImageBase64: extracted.ImageBase64,
		ImageURL:    imageURL,
		Filename:    extract.URLFilename(imageURL),
		OriginalAlt: extracted.OriginalAlt,
		HTMLContext: extracted.HTMLContext,
		Language:    o.deps.Language(),
	})
	o.post(msgCaptioned{jobID: jobID, altText: altText, err: err})
}

// runMediaPrefetch speculatively resolves the media id while the caption
// call is in flight. Failures are swallowed; the explicit update/sync
// path re-resolves and surfaces its own error if one is still needed.
func (o *Orchestrator) runMediaPrefetch(jobID, imageURL string) {
	client := o.deps.WPClient()
	if client == nil || client.SiteURL() == "" {
		return
	}
	mediaID := wordpress.NewResolver(client).Resolve(o.ctx, imageURL)
	if mediaID == 0 {
		return
	}
	o.post(msgMediaResolved{jobID: jobID, imageURL: imageURL, mediaID: mediaID})
}

func (o *Orchestrator) post(msg interface{}) {
	select {
	case o.cmds <- msg:
	case <-o.ctx.Done():
	}
}

// resolveMediaID reuses the cached id when it matches the image,
// otherwise resolves afresh and stores the result.
func (o *Orchestrator) resolveMediaID(ctx context.Context, client *wordpress.Client, imageURL string) int {
	reply := make(chan int, 1)
	select {
	case o.cmds <- cmdCachedMedia{imageURL: imageURL, reply: reply}:
	case <-o.ctx.Done():
		return 0
	}
	select {
	case id := <-reply:
		if id != 0 {
			return id
		}
	case <-o.ctx.Done():
		return 0
	}

	id := wordpress.NewResolver(client).Resolve(ctx, imageURL)
	if id != 0 {
		o.post(cmdStoreMedia{imageURL: imageURL, mediaID: id})
	}
	return id
}

// UpdateAltText resolves the attachment and writes the alt text. It is a
// one-shot exchange independent of the generation state machine; the
// outcome is pushed as a discrete event as well as returned.
func (o *Orchestrator) UpdateAltText(ctx context.Context, imageURL, altText string) error {
	client := o.deps.WPClient()
	if client == nil || !client.HasCredentials() {
		err := &wordpress.APIError{StatusCode: 0, Message: "WordPress credentials not configured in options"}
		o.emit(Event{Type: EventUpdateResult, Error: err.Message})
		return err
	}

	mediaID := o.resolveMediaID(ctx, client, imageURL)
	if mediaID == 0 {
		o.emit(Event{Type: EventUpdateResult, Error: wordpress.ErrMediaNotFound.Error()})
		return wordpress.ErrMediaNotFound
	}

	if err := client.UpdateAltText(ctx, mediaID, altText); err != nil {
		o.emit(Event{Type: EventUpdateResult, MediaID: mediaID, Error: err.Error()})
		return err
	}

	log.Printf("updated alt text for media %d", mediaID)
	o.emit(Event{Type: EventUpdateResult, MediaID: mediaID, Message: "Alt text updated in WordPress"})
	return nil
}

// SyncImage resolves the attachment and asks the AltSync plugin to
// propagate its alt text site-wide.
func (o *Orchestrator) SyncImage(ctx context.Context, imageURL, syncMode string) (*wordpress.AltSyncResult, error) {
	client := o.deps.WPClient()
	if client == nil || !client.HasCredentials() {
		err := &wordpress.AltSyncError{StatusCode: 0, Message: "WordPress credentials not configured in options"}
		o.emit(Event{Type: EventSyncResult, Error: err.Message})
		return nil, err
	}

	if syncMode == "" {
		syncMode = o.deps.SyncMode()
	}

	mediaID := o.resolveMediaID(ctx, client, imageURL)
	if mediaID == 0 {
		o.emit(Event{Type: EventSyncResult, Error: wordpress.ErrMediaNotFound.Error()})
		return nil, wordpress.ErrMediaNotFound
	}

	result, err := client.SyncImage(ctx, mediaID, syncMode)
	if err != nil {
		o.emit(Event{Type: EventSyncResult, MediaID: mediaID, Error: err.Error()})
		return nil, err
	}

	log.Printf("synced alt text for media %d across %d usages", mediaID, result.Updated)
	o.emit(Event{Type: EventSyncResult, MediaID: mediaID, Message: result.Message, Sync: result})
	return result, nil
}

// ProbeAltSync reports plugin availability, failing open when no site is
// configured.
func (o *Orchestrator) ProbeAltSync(ctx context.Context) wordpress.AltSyncStatus {
	client := o.deps.WPClient()
	if client == nil || client.SiteURL() == "" {
		return wordpress.AltSyncStatus{}
	}
	return client.ProbeAltSync(ctx)
}

package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/yourusername/videold-go/internal/domain"
	"github.com/yourusername/videold-go/pkg/logger"
	"go.uber.org/zap"
)

// Notifier surfaces user-visible notices
type Notifier interface {
	NotifyTransferCompleted(session *domain.TransferSession)
	NotifyTransferFailed(session *domain.TransferSession)
	NotifyError(err error)
}

// Snapshot is a consistent copy of the orchestrator state
type Snapshot struct {
	Generation     uint64                            `json:"generation"`
	Loading        bool                              `json:"loading"`
	Resource       *domain.Resource                  `json:"resource,omitempty"`
	Restricted     bool                              `json:"restricted"`
	Filter         string                            `json:"filter"`
	SingleFormatID string                            `json:"singleFormatId,omitempty"`
	Selection      domain.SelectionSnapshot          `json:"selection"`
	SelectedCount  int                               `json:"selectedCount"`
	Sessions       map[string]domain.TransferSession `json:"sessions"`
	Batch          *domain.BatchTransfer             `json:"batch,omitempty"`
	Notice         string                            `json:"notice,omitempty"`
}

// Orchestrator owns the fetched resource, the selection, and every transfer started against it
type Orchestrator struct {
	backend     domain.Backend
	saver       domain.Saver
	channel     domain.ProgressChannel
	notifier    Notifier
	config      *domain.Config
	logger      *zap.Logger
	eventLogger *logger.MultiLogger
	now         func() time.Time

	mu           sync.Mutex
	generation   uint64
	loading      bool
	resource     *domain.Resource
	selection    *domain.SelectionState
	filter       string
	singleFormat string
	sessions     map[string]*domain.TransferSession
	batch        *domain.BatchTransfer
	rooms        map[string]struct{}
	notice       string
	listeners    []func(Snapshot)

	// publishMu orders snapshot capture and delivery so listeners never see an older state last
	publishMu sync.Mutex
	transfers sync.WaitGroup
}

// NewOrchestrator creates a new orchestrator. channel, notifier and eventLogger may be nil;
// without a channel every transfer samples its own progress.
func NewOrchestrator(
	backend domain.Backend,
	saver domain.Saver,
	channel domain.ProgressChannel,
	notifier Notifier,
	config *domain.Config,
	eventLogger *logger.MultiLogger,
	log *zap.Logger,
) *Orchestrator {
	filter := strings.ToLower(config.Download.DefaultFilter)
	if !domain.ValidFilter(filter) {
		filter = domain.FilterAll
	}

	o := &Orchestrator{
		backend:     backend,
		saver:       saver,
		channel:     channel,
		notifier:    notifier,
		config:      config,
		logger:      log,
		eventLogger: eventLogger,
		now:         time.Now,
		selection:   domain.NewSelectionState(),
		filter:      filter,
		sessions:    make(map[string]*domain.TransferSession),
		rooms:       make(map[string]struct{}),
	}

	if channel != nil {
		channel.OnConnect(o.rejoinRooms)
	}
	return o
}

// OnUpdate registers a listener called with a fresh snapshot after every state change.
// Listeners run serially and must not start transfers or edit state from inside the callback.
func (o *Orchestrator) OnUpdate(fn func(Snapshot)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.listeners = append(o.listeners, fn)
}

// Wait blocks until every started transfer has reached a terminal state
func (o *Orchestrator) Wait() {
	o.transfers.Wait()
}

// FetchResource normalizes raw and loads its metadata, replacing the current resource.
// Blank input is a no-op and returns (nil, nil).
func (o *Orchestrator) FetchResource(ctx context.Context, raw string) (*domain.Resource, error) {
	locator := domain.NormalizeURL(raw)
	if locator == "" {
		return nil, nil
	}

	o.mu.Lock()
	o.generation++
	gen := o.generation
	o.loading = true
	o.resource = nil
	o.selection = domain.NewSelectionState()
	o.singleFormat = ""
	o.sessions = make(map[string]*domain.TransferSession)
	o.batch = nil
	o.notice = ""
	o.mu.Unlock()
	o.publish()

	o.logger.Info("Fetching metadata", zap.String("url", locator), zap.Uint64("generation", gen))
	o.logEvent("fetch_started", zap.String("url", locator), zap.Uint64("generation", gen))

	res, err := o.backend.FetchMetadata(ctx, locator)

	o.mu.Lock()
	if gen != o.generation {
		o.mu.Unlock()
		o.logger.Debug("Discarding stale metadata response",
			zap.String("url", locator),
			zap.Uint64("generation", gen))
		return nil, domain.ErrStaleFetch
	}
	o.loading = false
	if err != nil {
		fetchErr := &domain.FetchError{Locator: locator, Err: err}
		o.resource = nil
		o.notice = domain.UserMessage(fetchErr)
		o.mu.Unlock()
		o.publish()

		o.logger.Warn("Metadata fetch failed", zap.String("url", locator), zap.Error(err))
		o.logEvent("fetch_failed", zap.String("url", locator), zap.Error(err))
		if o.notifier != nil {
			o.notifier.NotifyError(fetchErr)
		}
		return nil, fetchErr
	}
	o.resource = res
	o.mu.Unlock()
	o.publish()

	o.logEvent("fetch_completed",
		zap.String("url", locator),
		zap.String("kind", string(res.Kind)),
		zap.Int("members", len(res.Members)))
	return res, nil
}

// Resource returns the current resource, or nil
func (o *Orchestrator) Resource() *domain.Resource {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.resource
}

// SetFilter changes the active container filter. It survives later fetches.
func (o *Orchestrator) SetFilter(ext string) error {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		ext = domain.FilterAll
	}
	if !domain.ValidFilter(ext) {
		return fmt.Errorf("%w: %s", domain.ErrInvalidFilter, ext)
	}

	o.mu.Lock()
	o.filter = ext
	o.mu.Unlock()
	o.publish()
	return nil
}

// Filter returns the active container filter
func (o *Orchestrator) Filter() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.filter
}

// ToggleMember flips the selection of a collection member and reports whether it is now selected
func (o *Orchestrator) ToggleMember(memberID string) (bool, error) {
	o.mu.Lock()
	if _, err := o.memberLocked(memberID); err != nil {
		o.mu.Unlock()
		return false, err
	}
	selected := o.selection.Toggle(memberID)
	o.mu.Unlock()

	o.publish()
	return selected, nil
}

// SetFormat records an explicit format choice for a collection member
func (o *Orchestrator) SetFormat(memberID, formatID string) error {
	o.mu.Lock()
	member, err := o.memberLocked(memberID)
	if err == nil {
		err = o.checkFormatLocked(member.Locator, member.Formats, formatID)
	}
	if err != nil {
		o.mu.Unlock()
		return err
	}
	o.selection.SetFormat(memberID, formatID)
	o.mu.Unlock()

	o.publish()
	return nil
}

// SelectFormat records the format choice for a single-item resource
func (o *Orchestrator) SelectFormat(formatID string) error {
	o.mu.Lock()
	res := o.resource
	var err error
	switch {
	case res == nil:
		err = domain.ErrNoResource
	case res.IsCollection():
		err = domain.ErrNotSingle
	default:
		err = o.checkFormatLocked(res.Locator, res.Formats, formatID)
	}
	if err != nil {
		o.mu.Unlock()
		return err
	}
	o.singleFormat = formatID
	o.mu.Unlock()

	o.publish()
	return nil
}

// SelectedCount returns the number of selected collection members
func (o *Orchestrator) SelectedCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.selection.Count()
}

// IsRestricted reports whether locator belongs to a platform where format choice is disabled
func (o *Orchestrator) IsRestricted(locator string) bool {
	return domain.IsRestricted(locator, o.config.Download.RestrictedHosts)
}

// Thumbnail fetches a thumbnail image through the backend origin
func (o *Orchestrator) Thumbnail(ctx context.Context, thumbnailURL string) ([]byte, string, error) {
	if strings.TrimSpace(thumbnailURL) == "" {
		return nil, "", fmt.Errorf("thumbnail url is required")
	}
	return o.backend.FetchThumbnail(ctx, thumbnailURL)
}

// Snapshot returns a consistent copy of the current state
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	snap := Snapshot{
		Generation:     o.generation,
		Loading:        o.loading,
		Resource:       o.resource,
		Filter:         o.filter,
		SingleFormatID: o.singleFormat,
		Selection:      o.selection.Snapshot(),
		SelectedCount:  o.selection.Count(),
		Sessions:       make(map[string]domain.TransferSession, len(o.sessions)),
		Notice:         o.notice,
	}
	if o.resource != nil {
		snap.Restricted = o.IsRestricted(o.resource.Locator)
	}
	for key, s := range o.sessions {
		snap.Sessions[key] = *s
	}
	if o.batch != nil {
		batch := *o.batch
		snap.Batch = &batch
	}
	return snap
}

// publish hands a snapshot to every listener outside the state lock. Deliveries happen one at a
// time in the order the snapshots were taken.
func (o *Orchestrator) publish() {
	o.publishMu.Lock()
	defer o.publishMu.Unlock()

	o.mu.Lock()
	if len(o.listeners) == 0 {
		o.mu.Unlock()
		return
	}
	snap := o.snapshotLocked()
	listeners := append([]func(Snapshot){}, o.listeners...)
	o.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

func (o *Orchestrator) memberLocked(memberID string) (*domain.CollectionMember, error) {
	if o.resource == nil {
		return nil, domain.ErrNoResource
	}
	if !o.resource.IsCollection() {
		return nil, domain.ErrNotCollection
	}
	member, ok := o.resource.Member(memberID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownMember, memberID)
	}
	return member, nil
}

func (o *Orchestrator) checkFormatLocked(locator string, formats []domain.FormatVariant, formatID string) error {
	if o.IsRestricted(locator) || o.IsRestricted(o.resource.Locator) {
		return domain.ErrFormatChoiceDisabled
	}
	if _, ok := domain.FindFormat(formats, formatID); !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownFormat, formatID)
	}
	return nil
}

// rejoinRooms re-issues join for every transfer still waiting on push progress
func (o *Orchestrator) rejoinRooms() {
	o.mu.Lock()
	ids := make([]string, 0, len(o.rooms))
	for id := range o.rooms {
		ids = append(ids, id)
	}
	o.mu.Unlock()

	for _, id := range ids {
		if err := o.channel.Join(id); err != nil {
			o.logger.Warn("Failed to rejoin progress room", zap.String("transfer_id", id), zap.Error(err))
			continue
		}
		o.logger.Debug("Rejoined progress room", zap.String("transfer_id", id))
	}
}

func (o *Orchestrator) logEvent(event string, fields ...zap.Field) {
	if o.eventLogger != nil {
		o.eventLogger.LogTransferEvent(event, fields...)
	}
}

func (o *Orchestrator) logError(msg string, fields ...zap.Field) {
	if o.eventLogger != nil {
		o.eventLogger.LogAppError(msg, fields...)
	}
}

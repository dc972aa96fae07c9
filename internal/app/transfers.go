package app

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/yourusername/videold-go/internal/domain"
	"go.uber.org/zap"
)

const chunkSize = 32 * 1024

// Transfer is a started transfer running in the background
type Transfer struct {
	// Session is the session as it was when the transfer started
	Session domain.TransferSession

	done chan struct{}
	err  error
}

// Done is closed once the transfer reaches a terminal state
func (t *Transfer) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the transfer finishes and returns its error
func (t *Transfer) Wait() error {
	<-t.done
	return t.err
}

// transferJob describes how to drive one session to a terminal state
type transferJob struct {
	session *domain.TransferSession
	title   string
	ext     string
	archive bool
	handle  func(ctx context.Context) (*domain.TransferHandle, error)
	open    func(ctx context.Context, transferID string) (*domain.TransferStream, error)
	wrap    func(transferID string, err error) error
}

// StartSingle starts the transfer of a single-item resource using the chosen or default format
func (o *Orchestrator) StartSingle(ctx context.Context) (*Transfer, error) {
	o.mu.Lock()
	res := o.resource
	if res == nil {
		o.mu.Unlock()
		return nil, domain.ErrNoResource
	}
	if res.IsCollection() {
		o.mu.Unlock()
		return nil, domain.ErrNotSingle
	}

	formatID, ext, err := o.resolveLocked(res.Locator, res.Formats, o.singleFormat, "")
	if err != nil {
		o.mu.Unlock()
		return nil, err
	}

	session, err := o.beginLocked(domain.SingleSessionKey, res.Locator, formatID, res.Title)
	if err != nil {
		o.mu.Unlock()
		return nil, err
	}

	req := domain.TransferRequest{Locator: res.Locator, FormatID: formatID}
	job := o.itemJob(session, req, res.Title, ext)
	o.mu.Unlock()

	o.logger.Info("Starting transfer", zap.String("transfer_id", session.ID), zap.String("url", res.Locator))
	return o.launch(ctx, job), nil
}

// StartMember starts the transfer of one collection member. Several members may run at once.
func (o *Orchestrator) StartMember(ctx context.Context, memberID string) (*Transfer, error) {
	o.mu.Lock()
	member, err := o.memberLocked(memberID)
	if err != nil {
		o.mu.Unlock()
		return nil, err
	}

	chosen, _ := o.selection.ChosenFormat(memberID)
	formatID, ext, err := o.resolveLocked(member.Locator, member.Formats, chosen, o.resource.Locator)
	if err != nil {
		o.mu.Unlock()
		return nil, err
	}

	session, err := o.beginLocked(member.ID, member.Locator, formatID, member.Title)
	if err != nil {
		o.mu.Unlock()
		return nil, err
	}

	req := domain.TransferRequest{Locator: member.Locator, FormatID: formatID, Member: true}
	job := o.itemJob(session, req, member.Title, ext)
	o.mu.Unlock()

	o.logger.Info("Starting member transfer",
		zap.String("transfer_id", session.ID),
		zap.String("member_id", memberID))
	return o.launch(ctx, job), nil
}

// StartBatch starts one archive transfer over every selected member.
// An empty selection fails with ErrSelectionEmpty before any request is made.
func (o *Orchestrator) StartBatch(ctx context.Context) (*Transfer, error) {
	o.mu.Lock()
	res := o.resource
	if res == nil {
		o.mu.Unlock()
		return nil, domain.ErrNoResource
	}
	if !res.IsCollection() {
		o.mu.Unlock()
		return nil, domain.ErrNotCollection
	}

	payload := domain.BuildPayload(o.selection, res, o.filter)
	if len(payload) == 0 {
		o.notice = domain.UserMessage(domain.ErrSelectionEmpty)
		o.mu.Unlock()
		o.publish()
		if o.notifier != nil {
			o.notifier.NotifyError(domain.ErrSelectionEmpty)
		}
		return nil, domain.ErrSelectionEmpty
	}

	if o.batch != nil && o.batch.Session.State.IsActive() {
		o.mu.Unlock()
		return nil, domain.ErrTransferInProgress
	}
	if o.batch == nil {
		o.batch = domain.NewBatchTransfer(res.Locator, res.Title)
	}
	batch := o.batch
	batch.MemberPayload = payload
	if err := batch.Session.Begin(domain.NewTransferID(), o.progressSource(), o.now()); err != nil {
		o.mu.Unlock()
		return nil, err
	}
	batch.ID = batch.Session.ID
	o.notice = ""
	o.mu.Unlock()

	o.logger.Info("Starting batch transfer",
		zap.String("transfer_id", batch.ID),
		zap.Int("members", len(payload)))

	job := transferJob{
		session: &batch.Session,
		title:   res.Title,
		archive: true,
		open: func(ctx context.Context, transferID string) (*domain.TransferStream, error) {
			return o.backend.OpenBatch(ctx, domain.BatchRequest{Members: payload, TransferID: transferID})
		},
		wrap: func(transferID string, err error) error {
			return &domain.BatchError{TransferID: transferID, Err: err}
		},
	}
	return o.launch(ctx, job), nil
}

// resolveLocked picks the format id and container for an item. Restricted locators send no
// format id so the backend chooses its best quality.
func (o *Orchestrator) resolveLocked(locator string, formats []domain.FormatVariant, chosen, parentLocator string) (string, string, error) {
	if o.IsRestricted(locator) || (parentLocator != "" && o.IsRestricted(parentLocator)) {
		return "", domain.DefaultVideoExt, nil
	}

	var format domain.FormatVariant
	var ok bool
	if chosen != "" {
		format, ok = domain.FindFormat(formats, chosen)
	}
	if !ok {
		format, ok = domain.DefaultFormat(formats, o.filter)
	}
	if !ok {
		return "", "", domain.ErrNoFormat
	}

	ext := strings.ToLower(format.Ext)
	if ext == "" {
		ext = domain.DefaultVideoExt
	}
	return format.FormatID, ext, nil
}

// beginLocked starts (or restarts) the session stored under key
func (o *Orchestrator) beginLocked(key, locator, formatID, title string) (*domain.TransferSession, error) {
	session, ok := o.sessions[key]
	if !ok {
		session = domain.NewTransferSession(key, locator, formatID, title)
	}
	if !session.CanStart() {
		return nil, domain.ErrTransferInProgress
	}

	session.TargetLocator = locator
	session.FormatID = formatID
	session.Title = title
	if err := session.Begin(domain.NewTransferID(), o.progressSource(), o.now()); err != nil {
		return nil, err
	}
	o.sessions[key] = session
	o.notice = ""
	return session, nil
}

func (o *Orchestrator) progressSource() domain.ProgressSource {
	if o.channel != nil {
		return domain.SourcePush
	}
	return domain.SourceLocal
}

func (o *Orchestrator) itemJob(session *domain.TransferSession, req domain.TransferRequest, title, ext string) transferJob {
	job := transferJob{
		session: session,
		title:   title,
		ext:     ext,
		open: func(ctx context.Context, transferID string) (*domain.TransferStream, error) {
			r := req
			r.TransferID = transferID
			return o.backend.OpenTransfer(ctx, r)
		},
		wrap: func(transferID string, err error) error {
			return &domain.TransferError{Key: session.Key, TransferID: transferID, Err: err}
		},
	}
	if o.config.Backend.UseTransferHandle {
		job.handle = func(ctx context.Context) (*domain.TransferHandle, error) {
			return o.backend.RequestHandle(ctx, req)
		}
	}
	return job
}

func (o *Orchestrator) launch(ctx context.Context, job transferJob) *Transfer {
	o.mu.Lock()
	t := &Transfer{Session: *job.session, done: make(chan struct{})}
	o.mu.Unlock()
	o.publish()

	o.transfers.Add(1)
	go func() {
		defer o.transfers.Done()
		defer close(t.done)
		t.err = o.run(ctx, job)
	}()
	return t
}

// run drives a begun session through streaming to Completed or Failed
func (o *Orchestrator) run(ctx context.Context, job transferJob) error {
	s := job.session

	o.mu.Lock()
	transferID := s.ID
	push := s.Source == domain.SourcePush
	o.mu.Unlock()

	var hint string
	if job.handle != nil {
		handle, err := job.handle(ctx)
		if err != nil {
			return o.fail(job, transferID, err)
		}
		transferID = handle.TransferID
		hint = handle.SuggestedFilename

		o.mu.Lock()
		s.ID = transferID
		o.mu.Unlock()
	}

	o.logEvent("transfer_started",
		zap.String("transfer_id", transferID),
		zap.String("key", s.Key),
		zap.String("url", s.TargetLocator),
		zap.String("format_id", s.FormatID))

	if push {
		unsubscribe := o.channel.Subscribe(transferID, func(ev domain.ProgressEvent) {
			o.mu.Lock()
			applied := s.ApplyPush(ev)
			o.mu.Unlock()
			if applied {
				o.publish()
			}
		})
		defer unsubscribe()

		o.mu.Lock()
		o.rooms[transferID] = struct{}{}
		o.mu.Unlock()
		defer func() {
			o.mu.Lock()
			delete(o.rooms, transferID)
			o.mu.Unlock()
		}()

		if err := o.channel.Join(transferID); err != nil {
			o.logger.Warn("Progress room join deferred to reconnect",
				zap.String("transfer_id", transferID),
				zap.Error(err))
		}
	}

	stream, err := job.open(ctx, transferID)
	if err != nil {
		return o.fail(job, transferID, err)
	}
	defer stream.Body.Close()

	if hint == "" {
		hint = stream.FilenameHint
	}
	filename := pickFilename(job, hint)

	o.mu.Lock()
	s.Filename = filename
	o.mu.Unlock()

	sink, err := o.saver.Begin(filename)
	if err != nil {
		return o.fail(job, transferID, err)
	}

	if err := o.pump(s, stream, sink); err != nil {
		if derr := sink.Discard(); derr != nil {
			o.logger.Debug("Discard partial transfer", zap.String("transfer_id", transferID), zap.Error(derr))
		}
		return o.fail(job, transferID, err)
	}

	path, err := sink.Commit()
	if err != nil {
		return o.fail(job, transferID, err)
	}

	o.mu.Lock()
	s.MarkCompleted(path, o.now())
	done := *s
	o.mu.Unlock()
	o.publish()

	o.logger.Info("Transfer completed",
		zap.String("transfer_id", transferID),
		zap.String("key", done.Key),
		zap.String("path", path),
		zap.Int64("bytes", done.BytesLoaded))
	o.logEvent("transfer_completed",
		zap.String("transfer_id", transferID),
		zap.String("key", done.Key),
		zap.String("path", path),
		zap.Int64("bytes", done.BytesLoaded))
	if o.notifier != nil {
		o.notifier.NotifyTransferCompleted(&done)
	}
	return nil
}

// pump copies the body into sink, accounting every chunk against the session
func (o *Orchestrator) pump(s *domain.TransferSession, stream *domain.TransferStream, sink domain.SaveSink) error {
	interval := o.config.Download.ProgressInterval
	if interval <= 0 {
		interval = domain.DefaultSampleInterval
	}

	buf := make([]byte, chunkSize)
	for {
		n, readErr := stream.Body.Read(buf)
		if n > 0 {
			if _, err := sink.Write(buf[:n]); err != nil {
				return err
			}

			o.mu.Lock()
			wasInitiating := s.State == domain.StateInitiating
			s.MarkStreaming(stream.ContentLength)
			sampled := s.AddBytes(int64(n), o.now(), interval)
			o.mu.Unlock()

			if sampled || wasInitiating {
				o.publish()
			}
		}
		if errors.Is(readErr, io.EOF) {
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}

func (o *Orchestrator) fail(job transferJob, transferID string, cause error) error {
	err := job.wrap(transferID, cause)

	o.mu.Lock()
	job.session.MarkFailed(err, o.now())
	failed := *job.session
	if o.isCurrentLocked(job.session) {
		o.notice = failed.ErrorMessage
	}
	o.mu.Unlock()
	o.publish()

	o.logger.Error("Transfer failed",
		zap.String("transfer_id", transferID),
		zap.String("key", failed.Key),
		zap.Error(cause))
	o.logError("transfer_failed",
		zap.String("transfer_id", transferID),
		zap.String("key", failed.Key),
		zap.Error(cause))
	if o.notifier != nil {
		o.notifier.NotifyTransferFailed(&failed)
	}
	return err
}

// isCurrentLocked reports whether s still belongs to the live resource
func (o *Orchestrator) isCurrentLocked(s *domain.TransferSession) bool {
	if o.batch != nil && &o.batch.Session == s {
		return true
	}
	return o.sessions[s.Key] == s
}

// pickFilename prefers the title, then the backend's hint, then the default
func pickFilename(job transferJob, hint string) string {
	switch {
	case job.archive && strings.TrimSpace(job.title) != "":
		return domain.ArchiveFilename(job.title)
	case job.archive:
		return domain.DeriveFilename(hint, "", domain.DefaultArchiveName)
	case strings.TrimSpace(job.title) != "":
		return domain.ItemFilename(job.title, job.ext)
	default:
		return domain.DeriveFilename(hint, "", domain.DefaultItemFilename)
	}
}

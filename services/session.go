package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"airdrop-campaign/models"
	"airdrop-campaign/utils"

	"github.com/google/uuid"
)

// Mode says which side owns a session's point total.
type Mode string

const (
	// ModeLocal derives totals from the locally persisted task set.
	ModeLocal Mode = "local"
	// ModeRemote takes totals from the profile service and reconciles.
	ModeRemote Mode = "remote"
)

// ErrRemoteReset is returned when a reset is requested for a wallet whose
// progress is owned by the profile service.
var ErrRemoteReset = errors.New("progress is managed by the profile service and cannot be reset here")

// RemoteProfile is the profile/task service as the hub sees it.
type RemoteProfile interface {
	Tasks(ctx context.Context, wallet string) ([]RemoteTask, error)
	Progress(ctx context.Context, wallet string) (*RemoteProgress, error)
	CompleteTask(ctx context.Context, wallet, taskID string) (*RemoteCompletion, error)
	Spin(ctx context.Context, wallet string) (*RemoteSpin, error)
	SpinnerStatus(ctx context.Context, wallet string) (*RemoteSpinnerStatus, error)
}

// HubConfig wires a Hub.
type HubConfig struct {
	Store       SnapshotStore
	Catalog     []models.Task
	Spinner     *Spinner
	Remote      RemoteProfile // nil keeps every session local
	Publishers  []EventPublisher
	RevealDelay time.Duration
}

// Hub owns one shared Session per wallet so every surface (HTTP, SSE,
// workers) sees the same ledger.
type Hub struct {
	cfg    HubConfig
	queues []*publishQueue

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewHub(cfg HubConfig) *Hub {
	if cfg.Catalog == nil {
		cfg.Catalog = DefaultCatalog
	}
	h := &Hub{cfg: cfg, sessions: make(map[string]*Session)}
	for _, p := range cfg.Publishers {
		h.queues = append(h.queues, newPublishQueue(p, publishQueueSize))
	}
	return h
}

// Close drains the publisher queues. Events emitted afterwards are dropped.
func (h *Hub) Close() {
	for _, q := range h.queues {
		q.close()
	}
}

// Spinner exposes the hub's spin resolver.
func (h *Hub) Spinner() *Spinner { return h.cfg.Spinner }

func (h *Hub) now() time.Time { return h.cfg.Spinner.Now() }

// Open returns the wallet's session, loading it on first use. Remote mode is
// chosen when a profile service is configured and answers; otherwise the
// session is local. A session that fell back to local because the profile
// service was down is promoted by RefreshRemote once it answers again.
func (h *Hub) Open(ctx context.Context, wallet string) (*Session, error) {
	h.mu.Lock()
	if s, ok := h.sessions[wallet]; ok {
		h.mu.Unlock()
		return s, nil
	}
	h.mu.Unlock()

	var (
		s         *Session
		err       error
		remoteErr error
	)
	if h.cfg.Remote != nil {
		s, remoteErr = h.openRemote(ctx, wallet)
		if remoteErr != nil {
			utils.LogWarn("[HUB] remote profile unavailable for %s, using local mode: %v", wallet, remoteErr)
		}
	}
	if s == nil {
		s, err = h.openLocal(ctx, wallet)
		if err != nil {
			return nil, err
		}
		if remoteErr != nil {
			s.fallbackErr = fallbackMessage(remoteErr)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if existing, ok := h.sessions[wallet]; ok {
		return existing, nil
	}
	h.sessions[wallet] = s
	utils.LogDebug("[HUB] opened %s session for %s", s.mode, wallet)
	return s, nil
}

// Sessions returns the currently open sessions.
func (h *Hub) Sessions() []*Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		out = append(out, s)
	}
	return out
}

// BroadcastSpinnerReady tells live subscribers the daily gate reopened.
func (h *Hub) BroadcastSpinnerReady() int {
	sessions := h.Sessions()
	for _, s := range sessions {
		s.mu.Lock()
		s.notifyLocked(EventSpinnerReady, "", nil)
		s.mu.Unlock()
	}
	return len(sessions)
}

// RefreshRemote reconciles every remote-mode session with the profile
// service, retries remote mode for sessions that fell back to local, and
// reports how many of those calls failed.
func (h *Hub) RefreshRemote(ctx context.Context) (refreshed, failed int) {
	for _, s := range h.Sessions() {
		mode, fallback := s.modeState()
		var err error
		switch {
		case mode == ModeRemote:
			err = s.Refresh(ctx)
		case fallback:
			err = h.promote(ctx, s)
		default:
			continue
		}
		if err != nil {
			failed++
			continue
		}
		refreshed++
	}
	return refreshed, failed
}

// promote switches a fallback session to remote mode. Points earned locally
// while the profile service was down are not carried over; the remote total
// wins.
func (h *Hub) promote(ctx context.Context, s *Session) error {
	l, status, err := h.loadRemote(ctx, s.wallet)
	if err != nil {
		s.mu.Lock()
		s.fallbackErr = fallbackMessage(err)
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ledger.LastSpinDate != nil && (l.LastSpinDate == nil || s.ledger.LastSpinDate.After(*l.LastSpinDate)) {
		l.LastSpinDate = s.ledger.LastSpinDate
	}
	s.mode = ModeRemote
	s.fallbackErr = ""
	s.applyRemoteStatus(status, h.now())
	s.commitLocked(ctx, l)
	utils.LogInfo("[HUB] profile service reachable again, %s switched to remote mode", s.wallet)
	s.notifyLocked(EventProgressUpdated, "", nil)
	return nil
}

func fallbackMessage(err error) string {
	return fmt.Sprintf("profile service unavailable, using local progress: %v", err)
}

func (h *Hub) newSession(wallet string, mode Mode, l *models.Ledger) *Session {
	return &Session{
		hub:    h,
		wallet: wallet,
		mode:   mode,
		ledger: l,
		subs:   make(map[int]chan Event),
	}
}

// loadSnapshot returns the persisted ledger, or a fresh one when nothing or
// only corrupt data was stored.
func (h *Hub) loadSnapshot(ctx context.Context, wallet string, catalog []models.Task) (*models.Ledger, error) {
	now := h.now()
	l, err := h.cfg.Store.Load(ctx, wallet)
	switch {
	case errors.Is(err, ErrSnapshotNotFound):
		return NewLedger(catalog, now), nil
	case errors.Is(err, ErrCorruptSnapshot):
		utils.LogWarn("[HUB] discarding corrupt snapshot for %s: %v", wallet, err)
		return NewLedger(catalog, now), nil
	case err != nil:
		return nil, err
	}
	return MergeCatalog(l, catalog), nil
}

func (h *Hub) openLocal(ctx context.Context, wallet string) (*Session, error) {
	l, err := h.loadSnapshot(ctx, wallet, h.cfg.Catalog)
	if err != nil {
		return nil, fmt.Errorf("open session for %s: %w", wallet, err)
	}
	l.TotalPoints = RecomputeTotal(l)
	return h.newSession(wallet, ModeLocal, l), nil
}

func (h *Hub) openRemote(ctx context.Context, wallet string) (*Session, error) {
	l, status, err := h.loadRemote(ctx, wallet)
	if err != nil {
		return nil, err
	}
	s := h.newSession(wallet, ModeRemote, l)
	s.applyRemoteStatus(status, h.now())
	return s, nil
}

// loadRemote builds a ledger from the profile service, keeping only the
// action-click gates and spin history of the local snapshot.
func (h *Hub) loadRemote(ctx context.Context, wallet string) (*models.Ledger, *RemoteSpinnerStatus, error) {
	remote := h.cfg.Remote
	tasks, err := remote.Tasks(ctx, wallet)
	if err != nil {
		return nil, nil, err
	}
	progress, err := remote.Progress(ctx, wallet)
	if err != nil {
		return nil, nil, err
	}
	status, err := remote.SpinnerStatus(ctx, wallet)
	if err != nil {
		return nil, nil, err
	}

	catalog := remoteCatalog(tasks)
	if len(catalog) == 0 {
		catalog = h.cfg.Catalog
	}
	l, err := h.loadSnapshot(ctx, wallet, catalog)
	if err != nil {
		return nil, nil, err
	}
	reconcileProgress(l, progress, h.now())
	l.LastSpinDate = status.LastSpinTime
	return l, status, nil
}

func remoteCatalog(tasks []RemoteTask) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.ID == "" {
			continue
		}
		typ := t.Type
		if !typ.Valid() {
			typ = models.TaskTypeOnce
		}
		limit := t.MaxCompletions
		if limit < 1 {
			limit = 1
		}
		out = append(out, models.Task{
			ID:             t.ID,
			Title:          t.Title,
			Description:    t.Description,
			URL:            t.URL,
			Type:           typ,
			Points:         t.Points,
			MaxCompletions: limit,
		})
	}
	return out
}

// reconcileProgress adopts the remote completion counts and total. The
// remote total wins over the local sum.
func reconcileProgress(l *models.Ledger, p *RemoteProgress, now time.Time) {
	for _, rp := range p.Tasks {
		i := l.TaskIndex(rp.TaskID)
		if i < 0 {
			continue
		}
		setCompletions(&l.Tasks[i], rp.Completions)
	}
	if local := RecomputeTotal(l); local != p.TotalPoints {
		utils.LogDebug("[HUB] remote total %d differs from local sum %d, keeping remote", p.TotalPoints, local)
	}
	l.TotalPoints = p.TotalPoints
	l.LastUpdated = now
}

func setCompletions(t *models.Task, n int) {
	if n < 0 {
		n = 0
	}
	if n > t.MaxCompletions {
		n = t.MaxCompletions
	}
	t.Completions = n
	t.Completed = n == t.MaxCompletions
}

// Session is the single writer for one wallet's ledger.
type Session struct {
	hub    *Hub
	wallet string
	mode   Mode

	mu      sync.Mutex
	ledger  *models.Ledger
	lastErr string
	// set while a configured profile service could not be reached
	fallbackErr string

	// remote-mode spinner state as last reported by the profile service
	remoteCanSpin    bool
	remoteSpinsToday int
	remoteStatusAt   time.Time

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

func (s *Session) Wallet() string { return s.wallet }

func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Session) modeState() (Mode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode, s.fallbackErr != ""
}

// Ledger returns a copy of the current ledger.
func (s *Session) Ledger() *models.Ledger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Clone()
}

// Progress returns the read model; the tier is derived on every call.
func (s *Session) Progress() models.Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progressLocked()
}

// SpinnerStatus returns the wallet's daily gate.
func (s *Session) SpinnerStatus() models.SpinnerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spinnerStatusLocked()
}

func (s *Session) progressLocked() models.Progress {
	errMsg := s.lastErr
	if errMsg == "" {
		errMsg = s.fallbackErr
	}
	return models.Progress{
		Wallet:      s.wallet,
		Mode:        string(s.mode),
		TotalPoints: s.ledger.TotalPoints,
		Tier:        DetermineTier(s.ledger.TotalPoints),
		Tasks:       append([]models.Task(nil), s.ledger.Tasks...),
		Spinner:     s.spinnerStatusLocked(),
		LastUpdated: s.ledger.LastUpdated,
		Error:       errMsg,
	}
}

func (s *Session) spinnerStatusLocked() models.SpinnerStatus {
	spinner := s.hub.cfg.Spinner
	status := spinner.Status(s.ledger.LastSpinDate, s.ledger.Spins)
	if s.mode != ModeRemote {
		return status
	}
	// A status fetched on an earlier day says nothing about today.
	fresh := !s.remoteStatusAt.IsZero() && spinner.SameDay(s.remoteStatusAt, spinner.Now())
	if fresh {
		status.CanSpin = status.CanSpin && s.remoteCanSpin
		status.SpinsToday = s.remoteSpinsToday
	}
	if !status.CanSpin && status.NextSpinAt == nil {
		next := spinner.NextMidnight()
		status.NextSpinAt = &next
	}
	return status
}

func (s *Session) applyRemoteStatus(st *RemoteSpinnerStatus, now time.Time) {
	s.remoteCanSpin = st.CanSpin
	s.remoteSpinsToday = st.SpinsToday
	s.remoteStatusAt = now
}

// commitLocked persists next and adopts it. In local mode a failed save
// abandons the change and the error is returned. In remote mode the profile
// service has already applied it, so next is adopted, the error is only
// recorded and nil is returned.
func (s *Session) commitLocked(ctx context.Context, next *models.Ledger) error {
	err := s.hub.cfg.Store.Save(ctx, s.wallet, next)
	if err != nil {
		utils.LogError("[LEDGER] failed to save progress for %s: %v", s.wallet, err)
		s.lastErr = fmt.Sprintf("failed to save progress: %v", err)
		if s.mode == ModeLocal {
			return err
		}
		s.ledger = next
		return nil
	}
	s.ledger = next
	s.lastErr = ""
	return nil
}

func (s *Session) remoteFailedLocked(op string, err error) {
	utils.LogError("[LEDGER] %s failed for %s: %v", op, s.wallet, err)
	s.lastErr = fmt.Sprintf("%s failed: %v", op, err)
}

// MarkActionClicked opens the action-click gate of a task.
func (s *Session) MarkActionClicked(ctx context.Context, taskID string) (models.Progress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.ledger.Clone()
	if !MarkActionClicked(next, taskID, s.hub.now()) {
		return s.progressLocked(), false
	}
	if s.commitLocked(ctx, next) != nil {
		return s.progressLocked(), false
	}
	s.notifyLocked(EventProgressUpdated, taskID, nil)
	return s.progressLocked(), true
}

// CompleteTask records one completion. Precondition failures (unknown task,
// cap reached, action not clicked) are silent no-ops reported as false.
func (s *Session) CompleteTask(ctx context.Context, taskID string) (models.Progress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	applied, _ := s.completeLocked(ctx, taskID, false)
	return s.progressLocked(), applied
}

// completeLocked records one completion. With credit set the action-click
// gate is treated as open and opened on the committed ledger. The error is
// non-nil only when the completion was attempted and failed.
func (s *Session) completeLocked(ctx context.Context, taskID string, credit bool) (bool, error) {
	now := s.hub.now()

	if s.mode == ModeLocal {
		next := s.ledger.Clone()
		if credit {
			MarkActionClicked(next, taskID, now)
		}
		if !CompleteTask(next, taskID, now) {
			return false, nil
		}
		if err := s.commitLocked(ctx, next); err != nil {
			return false, err
		}
		s.notifyLocked(EventTaskCompleted, taskID, nil)
		return true, nil
	}

	i := s.ledger.TaskIndex(taskID)
	if i < 0 {
		return false, nil
	}
	task := s.ledger.Tasks[i]
	if credit {
		task.ActionClicked = true
	}
	if !task.CanComplete() {
		return false, nil
	}
	res, err := s.hub.cfg.Remote.CompleteTask(ctx, s.wallet, taskID)
	if err != nil {
		s.remoteFailedLocked("complete task", err)
		return false, err
	}
	before := s.ledger.Tasks[i].Completions
	next := s.ledger.Clone()
	if credit {
		next.Tasks[i].ActionClicked = true
	}
	setCompletions(&next.Tasks[i], res.Completions)
	next.TotalPoints = res.TotalPoints
	next.LastUpdated = now
	s.commitLocked(ctx, next)
	if next.Tasks[i].Completions <= before {
		return false, nil
	}
	s.notifyLocked(EventTaskCompleted, taskID, nil)
	return true, nil
}

// CreditReferral completes the referral task on the wallet's behalf. The
// referral itself satisfies the action-click gate. A cap or a catalog
// without the referral task reports false with a nil error.
func (s *Session) CreditReferral(ctx context.Context) (models.Progress, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	applied, err := s.completeLocked(ctx, ReferralTaskID, true)
	return s.progressLocked(), applied, err
}

// Reset zeroes the wallet's progress. It requires confirm and is refused
// for remote-mode sessions.
func (s *Session) Reset(ctx context.Context, confirm bool) (models.Progress, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !confirm {
		return s.progressLocked(), false, ErrConfirmationRequired
	}
	if s.mode == ModeRemote {
		return s.progressLocked(), false, ErrRemoteReset
	}
	next := s.ledger.Clone()
	if err := ResetProgress(next, confirm, s.hub.now()); err != nil {
		return s.progressLocked(), false, err
	}
	if s.commitLocked(ctx, next) != nil {
		return s.progressLocked(), false, nil
	}
	s.notifyLocked(EventProgressReset, "", nil)
	return s.progressLocked(), true, nil
}

// Spin resolves today's spin and merges the reward. It returns a nil
// outcome when the wallet already spun today or the spin failed.
func (s *Session) Spin(ctx context.Context) (*models.SpinOutcome, models.Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.spinnerStatusLocked().CanSpin {
		return nil, s.progressLocked()
	}
	if s.mode == ModeRemote {
		return s.spinRemoteLocked(ctx)
	}

	spinner := s.hub.cfg.Spinner
	now := s.hub.now()
	reward := spinner.Draw()
	rec := models.SpinRecord{
		ID:       uuid.NewString(),
		RewardID: reward.ID,
		Label:    reward.Label,
		Points:   reward.Points,
		SpunAt:   now,
	}
	next := s.ledger.Clone()
	ApplySpinReward(next, rec, now)
	if s.commitLocked(ctx, next) != nil {
		return nil, s.progressLocked()
	}

	outcome := s.outcome(rec, describeSpin(reward.Label, reward.Points), next.TotalPoints)
	s.notifyLocked(EventSpinResolved, "", outcome)
	return outcome, s.progressLocked()
}

func (s *Session) spinRemoteLocked(ctx context.Context) (*models.SpinOutcome, models.Progress) {
	res, err := s.hub.cfg.Remote.Spin(ctx, s.wallet)
	if err != nil {
		s.remoteFailedLocked("spin", err)
		return nil, s.progressLocked()
	}
	now := s.hub.now()

	rec := models.SpinRecord{
		ID:     uuid.NewString(),
		Label:  res.Description,
		Points: res.Points,
		SpunAt: now,
	}
	for _, r := range s.hub.cfg.Spinner.Table().Entries() {
		if r.Points == res.Points {
			rec.RewardID = r.ID
			if rec.Label == "" {
				rec.Label = r.Label
			}
			break
		}
	}

	next := s.ledger.Clone()
	next.Spins = append(next.Spins, rec)
	next.LastSpinDate = &now
	next.TotalPoints = res.TotalPoints
	next.LastUpdated = now
	s.applyRemoteStatus(&RemoteSpinnerStatus{CanSpin: false, SpinsToday: res.SpinsToday}, now)
	s.commitLocked(ctx, next)

	desc := res.Description
	if desc == "" {
		desc = describeSpin(rec.Label, rec.Points)
	}
	outcome := s.outcome(rec, desc, res.TotalPoints)
	s.notifyLocked(EventSpinResolved, "", outcome)
	return outcome, s.progressLocked()
}

func (s *Session) outcome(rec models.SpinRecord, desc string, total int64) *models.SpinOutcome {
	return &models.SpinOutcome{
		ID:            rec.ID,
		RewardID:      rec.RewardID,
		Label:         rec.Label,
		Points:        rec.Points,
		Description:   desc,
		TotalPoints:   total,
		SpunAt:        rec.SpunAt,
		RevealAfterMs: s.hub.cfg.RevealDelay.Milliseconds(),
	}
}

func describeSpin(label string, points int64) string {
	return fmt.Sprintf("%s: +%s points", label, utils.FormatPoints(points))
}

// Refresh pulls the remote progress and spinner status into a remote-mode
// session. Local sessions have nothing to refresh.
func (s *Session) Refresh(ctx context.Context) error {
	if s.Mode() != ModeRemote {
		return nil
	}
	remote := s.hub.cfg.Remote

	progress, err := remote.Progress(ctx, s.wallet)
	if err != nil {
		s.mu.Lock()
		s.remoteFailedLocked("refresh progress", err)
		s.mu.Unlock()
		return err
	}
	status, err := remote.SpinnerStatus(ctx, s.wallet)
	if err != nil {
		s.mu.Lock()
		s.remoteFailedLocked("refresh spinner", err)
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.hub.now()
	before := s.ledger.TotalPoints
	next := s.ledger.Clone()
	reconcileProgress(next, progress, now)
	if status.LastSpinTime != nil {
		next.LastSpinDate = status.LastSpinTime
	}
	s.applyRemoteStatus(status, now)
	s.commitLocked(ctx, next)
	if next.TotalPoints != before {
		s.notifyLocked(EventProgressUpdated, "", nil)
	}
	return nil
}

// Subscribe registers an observer. Events are dropped for subscribers whose
// buffer is full. The returned func unsubscribes and closes the channel.
func (s *Session) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of live subscriptions.
func (s *Session) Subscribers() int {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return len(s.subs)
}

func (s *Session) notifyLocked(typ EventType, taskID string, spin *models.SpinOutcome) {
	ev := Event{
		Type:     typ,
		Wallet:   s.wallet,
		TaskID:   taskID,
		Spin:     spin,
		Progress: s.progressLocked(),
		At:       s.hub.now(),
	}

	s.subMu.Lock()
	for id, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			utils.LogDebug("[HUB] subscriber %d of %s is slow, dropped %s", id, s.wallet, typ)
		}
	}
	s.subMu.Unlock()

	for _, q := range s.hub.queues {
		if !q.enqueue(ev) {
			utils.LogWarn("[EVENTS] publish queue full, dropped %s for %s", ev.Type, ev.Wallet)
		}
	}
}

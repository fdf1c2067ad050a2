package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/arenaleague/arena/models"
	"github.com/arenaleague/arena/repositories"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func rolePtr(r models.PlayerRole) *models.PlayerRole { return &r }

// The fakes below are in-memory stands-ins for the postgres repositories.
// They keep just enough behavior for the service paths under test: guarded
// increments stay guarded, list ordering matches the SQL ORDER BY, and the
// not-found sentinels are the repository package's own.

type fakeTransactor struct {
	calls int
	err   error
}

func (t *fakeTransactor) WithinSerializable(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	t.calls++
	if t.err != nil {
		return t.err
	}
	return fn(nil)
}

type fakeTeamRepo struct {
	teams  map[int]*models.Team
	nextID int
}

func newFakeTeamRepo(teams ...*models.Team) *fakeTeamRepo {
	r := &fakeTeamRepo{teams: make(map[int]*models.Team), nextID: 1}
	for _, t := range teams {
		if t.ID >= r.nextID {
			r.nextID = t.ID + 1
		}
		r.teams[t.ID] = t
	}
	return r
}

func (r *fakeTeamRepo) Create(ctx context.Context, exec repositories.SQLExecutor, team *models.Team) error {
	team.ID = r.nextID
	r.nextID++
	if team.Status == "" {
		team.Status = models.TeamStatusActive
	}
	r.teams[team.ID] = team
	return nil
}

func (r *fakeTeamRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Team, error) {
	team, ok := r.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	copied := *team
	return &copied, nil
}

func (r *fakeTeamRepo) GetActiveByCaptain(ctx context.Context, captainID int) (*models.Team, error) {
	for _, t := range r.teams {
		if t.CaptainID == captainID && t.DeletedAt == nil {
			copied := *t
			return &copied, nil
		}
	}
	return nil, repositories.ErrTeamNotFound
}

func (r *fakeTeamRepo) UpdateCaptain(ctx context.Context, exec repositories.SQLExecutor, teamID, newCaptainID int) error {
	team, ok := r.teams[teamID]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	team.CaptainID = newCaptainID
	return nil
}

func (r *fakeTeamRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, teamID int, status models.TeamStatus) error {
	team, ok := r.teams[teamID]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	team.Status = status
	return nil
}

func (r *fakeTeamRepo) UpdateMediaKeys(ctx context.Context, teamID int, logoKey, bannerKey *string) error {
	team, ok := r.teams[teamID]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	if logoKey != nil {
		team.LogoKey = logoKey
	}
	if bannerKey != nil {
		team.BannerKey = bannerKey
	}
	return nil
}

func (r *fakeTeamRepo) SoftDelete(ctx context.Context, exec repositories.SQLExecutor, teamID int) error {
	team, ok := r.teams[teamID]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	now := time.Now()
	team.DeletedAt = &now
	return nil
}

type fakePlayerRepo struct {
	players []*models.Player
	nextID  int
}

func newFakePlayerRepo(players ...*models.Player) *fakePlayerRepo {
	r := &fakePlayerRepo{nextID: 1}
	for _, p := range players {
		if p.ID >= r.nextID {
			r.nextID = p.ID + 1
		}
		r.players = append(r.players, p)
	}
	return r
}

func (r *fakePlayerRepo) Create(ctx context.Context, exec repositories.SQLExecutor, player *models.Player) error {
	player.ID = r.nextID
	r.nextID++
	if player.CreatedAt.IsZero() {
		player.CreatedAt = time.Now()
	}
	r.players = append(r.players, player)
	return nil
}

func (r *fakePlayerRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Player, error) {
	for _, p := range r.players {
		if p.ID == id {
			copied := *p
			return &copied, nil
		}
	}
	return nil, repositories.ErrPlayerNotFound
}

func (r *fakePlayerRepo) ListActiveByTeam(ctx context.Context, exec repositories.SQLExecutor, teamID int) ([]*models.Player, error) {
	var out []*models.Player
	for _, p := range r.players {
		if p.TeamID == teamID && p.DeletedAt == nil {
			copied := *p
			out = append(out, &copied)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *fakePlayerRepo) FindActiveByUser(ctx context.Context, exec repositories.SQLExecutor, userID int) (*models.Player, error) {
	for _, p := range r.players {
		if p.UserID != nil && *p.UserID == userID && p.DeletedAt == nil {
			copied := *p
			return &copied, nil
		}
	}
	return nil, repositories.ErrPlayerNotFound
}

func (r *fakePlayerRepo) Update(ctx context.Context, exec repositories.SQLExecutor, player *models.Player) error {
	for i, p := range r.players {
		if p.ID == player.ID {
			copied := *player
			r.players[i] = &copied
			return nil
		}
	}
	return repositories.ErrPlayerNotFound
}

func (r *fakePlayerRepo) SoftDelete(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	for _, p := range r.players {
		if p.ID == id {
			now := time.Now()
			p.DeletedAt = &now
			return nil
		}
	}
	return repositories.ErrPlayerNotFound
}

type fakeUserRepo struct {
	users  map[int]*models.User
	nextID int
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[int]*models.User), nextID: 1}
	for _, u := range users {
		if u.ID >= r.nextID {
			r.nextID = u.ID + 1
		}
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	for _, u := range r.users {
		if u.Email == user.Email {
			return repositories.ErrUserEmailConflict
		}
		if u.IGN == user.IGN {
			return repositories.ErrUserIGNConflict
		}
	}
	user.ID = r.nextID
	r.nextID++
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) GetByIGN(ctx context.Context, ign string) (*models.User, error) {
	for _, u := range r.users {
		if u.IGN == ign {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) ListByRoles(ctx context.Context, roles ...models.UserRole) ([]*models.User, error) {
	var out []*models.User
	for _, u := range r.users {
		for _, role := range roles {
			if u.Role == role {
				copied := *u
				out = append(out, &copied)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeInviteRepo struct {
	invites []*models.TeamInvite
	nextID  int
}

func newFakeInviteRepo(invites ...*models.TeamInvite) *fakeInviteRepo {
	r := &fakeInviteRepo{nextID: 1}
	for _, i := range invites {
		if i.ID >= r.nextID {
			r.nextID = i.ID + 1
		}
		r.invites = append(r.invites, i)
	}
	return r
}

func (r *fakeInviteRepo) Create(ctx context.Context, exec repositories.SQLExecutor, invite *models.TeamInvite) error {
	invite.ID = r.nextID
	r.nextID++
	invite.CreatedAt = time.Now()
	r.invites = append(r.invites, invite)
	return nil
}

func (r *fakeInviteRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.TeamInvite, error) {
	for _, i := range r.invites {
		if i.ID == id {
			copied := *i
			return &copied, nil
		}
	}
	return nil, repositories.ErrInviteNotFound
}

func (r *fakeInviteRepo) ListByTeam(ctx context.Context, exec repositories.SQLExecutor, teamID int) ([]*models.TeamInvite, error) {
	var out []*models.TeamInvite
	for _, i := range r.invites {
		if i.TeamID == teamID {
			copied := *i
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeInviteRepo) FindPendingByTeamAndIGN(ctx context.Context, exec repositories.SQLExecutor, teamID int, ign string) (*models.TeamInvite, error) {
	for _, i := range r.invites {
		if i.TeamID == teamID && i.ToIGN == ign && i.Status == models.InviteStatusPending {
			copied := *i
			return &copied, nil
		}
	}
	return nil, repositories.ErrInviteNotFound
}

func (r *fakeInviteRepo) CountPendingByUser(ctx context.Context, exec repositories.SQLExecutor, userID int, now time.Time) (int, error) {
	count := 0
	for _, i := range r.invites {
		if i.ToUserID == userID && i.Status == models.InviteStatusPending && now.Before(i.ExpiresAt) {
			count++
		}
	}
	return count, nil
}

func (r *fakeInviteRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.InviteStatus) error {
	for _, i := range r.invites {
		if i.ID == id {
			i.Status = status
			return nil
		}
	}
	return repositories.ErrInviteNotFound
}

func (r *fakeInviteRepo) CancelPendingByUser(ctx context.Context, exec repositories.SQLExecutor, userID int, exceptID int) (int64, error) {
	var cancelled int64
	for _, i := range r.invites {
		if i.ToUserID == userID && i.ID != exceptID && i.Status == models.InviteStatusPending {
			i.Status = models.InviteStatusCancelled
			cancelled++
		}
	}
	return cancelled, nil
}

func (r *fakeInviteRepo) ExpireLapsed(ctx context.Context, exec repositories.SQLExecutor, teamID int, now time.Time) (int64, error) {
	var expired int64
	for _, i := range r.invites {
		if i.TeamID == teamID && i.Status == models.InviteStatusPending && now.After(i.ExpiresAt) {
			i.Status = models.InviteStatusExpired
			expired++
		}
	}
	return expired, nil
}

type fakeInviteLinkRepo struct {
	links  []*models.TeamInviteLink
	nextID int
}

func newFakeInviteLinkRepo(links ...*models.TeamInviteLink) *fakeInviteLinkRepo {
	r := &fakeInviteLinkRepo{nextID: 1}
	for _, l := range links {
		if l.ID >= r.nextID {
			r.nextID = l.ID + 1
		}
		r.links = append(r.links, l)
	}
	return r
}

func (r *fakeInviteLinkRepo) Create(ctx context.Context, exec repositories.SQLExecutor, link *models.TeamInviteLink) error {
	for _, l := range r.links {
		if l.Code == link.Code {
			return repositories.ErrInviteLinkCodeConflict
		}
	}
	link.ID = r.nextID
	r.nextID++
	link.CreatedAt = time.Now()
	r.links = append(r.links, link)
	return nil
}

func (r *fakeInviteLinkRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.TeamInviteLink, error) {
	for _, l := range r.links {
		if l.ID == id {
			copied := *l
			return &copied, nil
		}
	}
	return nil, repositories.ErrInviteLinkNotFound
}

func (r *fakeInviteLinkRepo) GetByCode(ctx context.Context, exec repositories.SQLExecutor, code string) (*models.TeamInviteLink, error) {
	for _, l := range r.links {
		if l.Code == code {
			copied := *l
			return &copied, nil
		}
	}
	return nil, repositories.ErrInviteLinkNotFound
}

func (r *fakeInviteLinkRepo) GetActiveByTeam(ctx context.Context, exec repositories.SQLExecutor, teamID int) (*models.TeamInviteLink, error) {
	for _, l := range r.links {
		if l.TeamID == teamID && l.Active {
			copied := *l
			return &copied, nil
		}
	}
	return nil, repositories.ErrInviteLinkNotFound
}

func (r *fakeInviteLinkRepo) DeactivateByTeam(ctx context.Context, exec repositories.SQLExecutor, teamID int) error {
	for _, l := range r.links {
		if l.TeamID == teamID {
			l.Active = false
		}
	}
	return nil
}

func (r *fakeInviteLinkRepo) Deactivate(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	for _, l := range r.links {
		if l.ID == id {
			l.Active = false
			return nil
		}
	}
	return repositories.ErrInviteLinkNotFound
}

func (r *fakeInviteLinkRepo) ConsumeUse(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	for _, l := range r.links {
		if l.ID == id {
			if l.UsedCount >= l.MaxUses {
				return repositories.ErrInviteLinkExhausted
			}
			l.UsedCount++
			return nil
		}
	}
	return repositories.ErrInviteLinkNotFound
}

type fakeTournamentRepo struct {
	tournaments map[int]*models.Tournament
	nextID      int
}

func newFakeTournamentRepo(tournaments ...*models.Tournament) *fakeTournamentRepo {
	r := &fakeTournamentRepo{tournaments: make(map[int]*models.Tournament), nextID: 1}
	for _, t := range tournaments {
		if t.ID >= r.nextID {
			r.nextID = t.ID + 1
		}
		r.tournaments[t.ID] = t
	}
	return r
}

func (r *fakeTournamentRepo) Create(ctx context.Context, t *models.Tournament) error {
	for _, existing := range r.tournaments {
		if existing.Name == t.Name {
			return repositories.ErrTournamentNameConflict
		}
	}
	t.ID = r.nextID
	r.nextID++
	r.tournaments[t.ID] = t
	return nil
}

func (r *fakeTournamentRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	t, ok := r.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *fakeTournamentRepo) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	var out []models.Tournament
	for _, t := range r.tournaments {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTournamentRepo) Update(ctx context.Context, t *models.Tournament) error {
	if _, ok := r.tournaments[t.ID]; !ok {
		return repositories.ErrTournamentNotFound
	}
	copied := *t
	r.tournaments[t.ID] = &copied
	return nil
}

func (r *fakeTournamentRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	return nil
}

func (r *fakeTournamentRepo) UpdateBracket(ctx context.Context, id int, bracket string) error {
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Bracket = &bracket
	return nil
}

func (r *fakeTournamentRepo) IncrementFilled(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	if t.Filled >= t.Slots {
		return repositories.ErrTournamentCapacity
	}
	t.Filled++
	return nil
}

type fakeRegistrationRepo struct {
	registrations []*models.TournamentRegistration
	nextID        int
}

func newFakeRegistrationRepo(regs ...*models.TournamentRegistration) *fakeRegistrationRepo {
	r := &fakeRegistrationRepo{nextID: 1}
	for _, reg := range regs {
		if reg.ID >= r.nextID {
			r.nextID = reg.ID + 1
		}
		r.registrations = append(r.registrations, reg)
	}
	return r
}

func (r *fakeRegistrationRepo) Create(ctx context.Context, exec repositories.SQLExecutor, reg *models.TournamentRegistration) error {
	for _, existing := range r.registrations {
		if existing.TournamentID == reg.TournamentID && existing.TeamID == reg.TeamID &&
			existing.Status != models.RegistrationStatusRejected {
			return repositories.ErrRegistrationConflict
		}
	}
	reg.ID = r.nextID
	r.nextID++
	reg.CreatedAt = time.Now()
	r.registrations = append(r.registrations, reg)
	return nil
}

func (r *fakeRegistrationRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.TournamentRegistration, error) {
	for _, reg := range r.registrations {
		if reg.ID == id {
			copied := *reg
			return &copied, nil
		}
	}
	return nil, repositories.ErrRegistrationNotFound
}

func (r *fakeRegistrationRepo) FindActiveByTournamentAndTeam(ctx context.Context, exec repositories.SQLExecutor, tournamentID, teamID int) (*models.TournamentRegistration, error) {
	for _, reg := range r.registrations {
		if reg.TournamentID == tournamentID && reg.TeamID == teamID &&
			reg.Status != models.RegistrationStatusRejected {
			copied := *reg
			return &copied, nil
		}
	}
	return nil, repositories.ErrRegistrationNotFound
}

func (r *fakeRegistrationRepo) ListByTournament(ctx context.Context, tournamentID int, statusFilter *models.RegistrationStatus) ([]*models.TournamentRegistration, error) {
	var out []*models.TournamentRegistration
	for _, reg := range r.registrations {
		if reg.TournamentID != tournamentID {
			continue
		}
		if statusFilter != nil && reg.Status != *statusFilter {
			continue
		}
		copied := *reg
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeRegistrationRepo) UpdateDecision(ctx context.Context, exec repositories.SQLExecutor, reg *models.TournamentRegistration) error {
	for i, existing := range r.registrations {
		if existing.ID == reg.ID {
			copied := *reg
			r.registrations[i] = &copied
			return nil
		}
	}
	return repositories.ErrRegistrationNotFound
}

func (r *fakeRegistrationRepo) MaxSeed(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int, error) {
	max := 0
	for _, reg := range r.registrations {
		if reg.TournamentID == tournamentID && reg.Seed != nil && *reg.Seed > max {
			max = *reg.Seed
		}
	}
	return max, nil
}

type fakeWaitlistRepo struct {
	entries []*models.WaitlistEntry
	nextID  int
}

func newFakeWaitlistRepo(entries ...*models.WaitlistEntry) *fakeWaitlistRepo {
	r := &fakeWaitlistRepo{nextID: 1}
	for _, e := range entries {
		if e.ID >= r.nextID {
			r.nextID = e.ID + 1
		}
		r.entries = append(r.entries, e)
	}
	return r
}

func (r *fakeWaitlistRepo) Create(ctx context.Context, exec repositories.SQLExecutor, entry *models.WaitlistEntry) error {
	entry.ID = r.nextID
	r.nextID++
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeWaitlistRepo) CountByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int, error) {
	max := 0
	for _, e := range r.entries {
		if e.TournamentID == tournamentID && e.Position > max {
			max = e.Position
		}
	}
	return max, nil
}

func (r *fakeWaitlistRepo) ListByTournament(ctx context.Context, tournamentID int) ([]*models.WaitlistEntry, error) {
	var out []*models.WaitlistEntry
	for _, e := range r.entries {
		if e.TournamentID == tournamentID {
			copied := *e
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (r *fakeWaitlistRepo) DeleteByTournamentAndTeam(ctx context.Context, exec repositories.SQLExecutor, tournamentID, teamID int) error {
	kept := r.entries[:0]
	for _, e := range r.entries {
		if e.TournamentID == tournamentID && e.TeamID == teamID {
			continue
		}
		kept = append(kept, e)
	}
	r.entries = kept
	return nil
}

type fakeMatchRepo struct {
	matches map[int]*models.Match
	nextID  int
}

func newFakeMatchRepo(matches ...*models.Match) *fakeMatchRepo {
	r := &fakeMatchRepo{matches: make(map[int]*models.Match), nextID: 1}
	for _, m := range matches {
		if m.ID >= r.nextID {
			r.nextID = m.ID + 1
		}
		r.matches[m.ID] = m
	}
	return r
}

func (r *fakeMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	match.ID = r.nextID
	r.nextID++
	match.CreatedAt = time.Now()
	match.UpdatedAt = match.CreatedAt
	r.matches[match.ID] = match
	return nil
}

func (r *fakeMatchRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	m, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	copied := *m
	return &copied, nil
}

func (r *fakeMatchRepo) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	var out []*models.Match
	for _, m := range r.matches {
		if m.TournamentID == tournamentID {
			copied := *m
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeMatchRepo) Update(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	if _, ok := r.matches[match.ID]; !ok {
		return repositories.ErrMatchNotFound
	}
	copied := *match
	r.matches[match.ID] = &copied
	return nil
}

type fakeDisputeRepo struct {
	disputes []*models.MatchDispute
	nextID   int
}

func newFakeDisputeRepo(disputes ...*models.MatchDispute) *fakeDisputeRepo {
	r := &fakeDisputeRepo{nextID: 1}
	for _, d := range disputes {
		if d.ID >= r.nextID {
			r.nextID = d.ID + 1
		}
		r.disputes = append(r.disputes, d)
	}
	return r
}

func (r *fakeDisputeRepo) Create(ctx context.Context, exec repositories.SQLExecutor, dispute *models.MatchDispute) error {
	for _, d := range r.disputes {
		if d.MatchID == dispute.MatchID {
			return repositories.ErrDisputeConflict
		}
	}
	dispute.ID = r.nextID
	r.nextID++
	dispute.CreatedAt = time.Now()
	r.disputes = append(r.disputes, dispute)
	return nil
}

func (r *fakeDisputeRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.MatchDispute, error) {
	for _, d := range r.disputes {
		if d.ID == id {
			copied := *d
			return &copied, nil
		}
	}
	return nil, repositories.ErrDisputeNotFound
}

func (r *fakeDisputeRepo) GetByMatch(ctx context.Context, exec repositories.SQLExecutor, matchID int) (*models.MatchDispute, error) {
	for _, d := range r.disputes {
		if d.MatchID == matchID {
			copied := *d
			return &copied, nil
		}
	}
	return nil, repositories.ErrDisputeNotFound
}

func (r *fakeDisputeRepo) Resolve(ctx context.Context, exec repositories.SQLExecutor, dispute *models.MatchDispute) error {
	for i, d := range r.disputes {
		if d.ID == dispute.ID {
			copied := *dispute
			r.disputes[i] = &copied
			return nil
		}
	}
	return repositories.ErrDisputeNotFound
}

type sentNotification struct {
	userID  int
	ntype   models.NotificationType
	title   string
	message string
}

// fakeNotifier is safe for concurrent use; the dispute fan-out notifies from
// several goroutines at once.
type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (n *fakeNotifier) Notify(ctx context.Context, userID int, ntype models.NotificationType, title, message string, linkURL *string) error {
	if n.err != nil {
		return n.err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{userID: userID, ntype: ntype, title: title, message: message})
	return nil
}

func (n *fakeNotifier) sentTo(userID int) []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentNotification
	for _, s := range n.sent {
		if s.userID == userID {
			out = append(out, s)
		}
	}
	return out
}

type auditEntry struct {
	actorID    int
	action     string
	targetType string
	targetID   int
}

type fakeAuditRecorder struct {
	entries []auditEntry
}

func (a *fakeAuditRecorder) Record(ctx context.Context, actorID int, action, targetType string, targetID int, details map[string]interface{}) {
	a.entries = append(a.entries, auditEntry{actorID: actorID, action: action, targetType: targetType, targetID: targetID})
}

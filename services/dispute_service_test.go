package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arenaleague/arena/models"
)

var disputeNow = time.Date(2026, 7, 10, 20, 0, 0, 0, time.UTC)

type disputeFixture struct {
	matchRepo   *fakeMatchRepo
	disputeRepo *fakeDisputeRepo
	teamRepo    *fakeTeamRepo
	userRepo    *fakeUserRepo
	notifier    *fakeNotifier
	audit       *fakeAuditRecorder
	svc         *disputeService
}

// newDisputeFixture seeds a completed match whose result landed one hour ago,
// inside the two hour dispute window.
func newDisputeFixture() *disputeFixture {
	f := &disputeFixture{
		matchRepo: newFakeMatchRepo(&models.Match{
			ID: 1, TournamentID: 1, TeamAID: 1, TeamBID: 2, BestOf: 3,
			RefereeID: intPtr(30), Status: models.MatchStatusCompleted,
			ScoreA: intPtr(2), ScoreB: intPtr(1), WinnerID: intPtr(1),
			UpdatedAt: disputeNow.Add(-time.Hour),
		}),
		disputeRepo: newFakeDisputeRepo(),
		teamRepo: newFakeTeamRepo(
			&models.Team{ID: 1, Name: "Nightfall", CaptainID: 10, Status: models.TeamStatusActive},
			&models.Team{ID: 2, Name: "Daybreak", CaptainID: 20, Status: models.TeamStatusActive},
		),
		userRepo: newFakeUserRepo(
			&models.User{ID: 10, IGN: "CaptainA", Role: models.RolePlayer},
			&models.User{ID: 20, IGN: "CaptainB", Role: models.RolePlayer},
			&models.User{ID: 30, IGN: "Zebra", Role: models.RoleReferee},
			&models.User{ID: 98, IGN: "AdminOne", Role: models.RoleTournamentAdmin},
			&models.User{ID: 99, IGN: "RootAdmin", Role: models.RoleSuperAdmin},
		),
		notifier: &fakeNotifier{},
		audit:    &fakeAuditRecorder{},
	}
	f.svc = &disputeService{
		tx:          &fakeTransactor{},
		matchRepo:   f.matchRepo,
		disputeRepo: f.disputeRepo,
		teamRepo:    f.teamRepo,
		userRepo:    f.userRepo,
		notifier:    f.notifier,
		audit:       f.audit,
		logger:      testLogger(),
		now:         func() time.Time { return disputeNow },
	}
	return f
}

func TestRaiseDispute(t *testing.T) {
	f := newDisputeFixture()

	dispute, err := f.svc.Raise(context.Background(), 1, 20, RaiseDisputeInput{Reason: "wrong score reported"})
	if err != nil {
		t.Fatalf("raise dispute: %v", err)
	}
	if dispute.RaisedByID != 20 {
		t.Fatalf("expected raiser 20, got %d", dispute.RaisedByID)
	}

	match, _ := f.matchRepo.GetByID(context.Background(), nil, 1)
	if match.Status != models.MatchStatusDisputed {
		t.Fatalf("expected match DISPUTED, got %s", match.Status)
	}

	// Referee and both admins are told, each exactly once.
	for _, staffID := range []int{30, 98, 99} {
		got := f.notifier.sentTo(staffID)
		if len(got) != 1 || got[0].ntype != models.NotificationDisputeRaised {
			t.Fatalf("expected one dispute notice for user %d, got %v", staffID, got)
		}
	}
	if got := f.notifier.sentTo(10); len(got) != 0 {
		t.Fatalf("captains are not staff, got %v", got)
	}
}

func TestRaiseDisputeWindowBoundary(t *testing.T) {
	f := newDisputeFixture()

	// 1h59m after the result: still open.
	f.matchRepo.matches[1].UpdatedAt = disputeNow.Add(-(time.Hour + 59*time.Minute))
	if _, err := f.svc.Raise(context.Background(), 1, 20, RaiseDisputeInput{Reason: "late but in time"}); err != nil {
		t.Fatalf("expected window open at 1h59m, got %v", err)
	}

	// 2h01m: closed.
	f.disputeRepo.disputes = nil
	f.matchRepo.matches[1].Status = models.MatchStatusCompleted
	f.matchRepo.matches[1].UpdatedAt = disputeNow.Add(-(2*time.Hour + time.Minute))
	_, err := f.svc.Raise(context.Background(), 1, 20, RaiseDisputeInput{Reason: "too late"})
	if !errors.Is(err, ErrDisputeWindowClosed) {
		t.Fatalf("expected ErrDisputeWindowClosed at 2h01m, got %v", err)
	}
}

func TestRaiseDisputeOnlyCompetingCaptain(t *testing.T) {
	f := newDisputeFixture()

	_, err := f.svc.Raise(context.Background(), 1, 30, RaiseDisputeInput{Reason: "referee opinion"})
	if !errors.Is(err, ErrCaptainActionForbidden) {
		t.Fatalf("expected ErrCaptainActionForbidden, got %v", err)
	}
}

func TestRaiseDisputeMatchNotCompleted(t *testing.T) {
	f := newDisputeFixture()
	f.matchRepo.matches[1].Status = models.MatchStatusLive

	_, err := f.svc.Raise(context.Background(), 1, 20, RaiseDisputeInput{Reason: "premature"})
	if !errors.Is(err, ErrMatchNotCompleted) {
		t.Fatalf("expected ErrMatchNotCompleted, got %v", err)
	}
}

func TestRaiseDisputeTwice(t *testing.T) {
	f := newDisputeFixture()
	first, err := f.svc.Raise(context.Background(), 1, 20, RaiseDisputeInput{Reason: "first"})
	if err != nil {
		t.Fatalf("first dispute: %v", err)
	}

	// The match is now DISPUTED, but the repeat attempt must name the
	// existing dispute, not the match status.
	_, err = f.svc.Raise(context.Background(), 1, 10, RaiseDisputeInput{Reason: "second"})
	if !errors.Is(err, ErrDisputeAlreadyRaised) {
		t.Fatalf("expected ErrDisputeAlreadyRaised on disputed match, got %v", err)
	}

	// Resolution returns the match to COMPLETED; the dispute still blocks
	// any further raise.
	if _, err := f.svc.Resolve(context.Background(), first.ID, 99, ResolveDisputeInput{Resolution: "result stands"}); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	_, err = f.svc.Raise(context.Background(), 1, 10, RaiseDisputeInput{Reason: "third"})
	if !errors.Is(err, ErrDisputeAlreadyRaised) {
		t.Fatalf("expected ErrDisputeAlreadyRaised after resolution, got %v", err)
	}
}

func TestRaiseDisputeEmptyReason(t *testing.T) {
	f := newDisputeFixture()

	_, err := f.svc.Raise(context.Background(), 1, 20, RaiseDisputeInput{Reason: "   "})
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
}

func TestResolveDisputeResultStands(t *testing.T) {
	f := newDisputeFixture()
	dispute, _ := f.svc.Raise(context.Background(), 1, 20, RaiseDisputeInput{Reason: "wrong score"})
	f.notifier.sent = nil

	resolved, err := f.svc.Resolve(context.Background(), dispute.ID, 98, ResolveDisputeInput{
		Resolution: "reviewed the VOD, original result stands",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !resolved.Resolved() {
		t.Fatal("expected dispute marked resolved")
	}
	if resolved.ResultChanged {
		t.Fatal("result must not be flagged as changed")
	}

	match, _ := f.matchRepo.GetByID(context.Background(), nil, 1)
	if match.Status != models.MatchStatusCompleted {
		t.Fatalf("expected match back to COMPLETED, got %s", match.Status)
	}
	if *match.WinnerID != 1 {
		t.Fatalf("winner must be untouched, got %d", *match.WinnerID)
	}

	for _, captainID := range []int{10, 20} {
		if got := f.notifier.sentTo(captainID); len(got) != 1 || got[0].ntype != models.NotificationDisputeResolved {
			t.Fatalf("expected resolution notice for captain %d, got %v", captainID, got)
		}
	}
	if len(f.audit.entries) != 1 || f.audit.entries[0].action != "dispute.resolved" {
		t.Fatalf("expected audit entry, got %v", f.audit.entries)
	}
}

func TestResolveDisputeResultCorrected(t *testing.T) {
	f := newDisputeFixture()
	dispute, _ := f.svc.Raise(context.Background(), 1, 20, RaiseDisputeInput{Reason: "score swapped"})

	resolved, err := f.svc.Resolve(context.Background(), dispute.ID, 99, ResolveDisputeInput{
		Resolution:    "scores were entered backwards",
		ResultChanged: true,
		ScoreA:        intPtr(1),
		ScoreB:        intPtr(2),
		WinnerID:      intPtr(2),
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !resolved.ResultChanged {
		t.Fatal("expected result flagged as changed")
	}

	match, _ := f.matchRepo.GetByID(context.Background(), nil, 1)
	if *match.WinnerID != 2 || *match.ScoreA != 1 || *match.ScoreB != 2 {
		t.Fatalf("expected corrected result, got %+v", match)
	}
	if match.Status != models.MatchStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", match.Status)
	}
}

func TestResolveDisputeInvalidWinner(t *testing.T) {
	f := newDisputeFixture()
	dispute, _ := f.svc.Raise(context.Background(), 1, 20, RaiseDisputeInput{Reason: "bad winner"})

	_, err := f.svc.Resolve(context.Background(), dispute.ID, 99, ResolveDisputeInput{
		Resolution: "x", ResultChanged: true, WinnerID: intPtr(42),
	})
	if !errors.Is(err, ErrInvalidWinner) {
		t.Fatalf("expected ErrInvalidWinner, got %v", err)
	}
}

func TestResolveDisputeRequiresStaff(t *testing.T) {
	f := newDisputeFixture()
	dispute, _ := f.svc.Raise(context.Background(), 1, 20, RaiseDisputeInput{Reason: "x"})

	// Not even the assigned referee may settle a dispute.
	for _, userID := range []int{10, 20, 30} {
		_, err := f.svc.Resolve(context.Background(), dispute.ID, userID, ResolveDisputeInput{Resolution: "x"})
		if !errors.Is(err, ErrPrivilegedActionForbidden) {
			t.Fatalf("user %d: expected ErrPrivilegedActionForbidden, got %v", userID, err)
		}
	}
}

func TestResolveDisputeTwice(t *testing.T) {
	f := newDisputeFixture()
	dispute, _ := f.svc.Raise(context.Background(), 1, 20, RaiseDisputeInput{Reason: "x"})
	if _, err := f.svc.Resolve(context.Background(), dispute.ID, 99, ResolveDisputeInput{Resolution: "done"}); err != nil {
		t.Fatalf("first resolve: %v", err)
	}

	_, err := f.svc.Resolve(context.Background(), dispute.ID, 99, ResolveDisputeInput{Resolution: "again"})
	if !errors.Is(err, ErrDisputeResolved) {
		t.Fatalf("expected ErrDisputeResolved, got %v", err)
	}
}

func TestGetDisputeByMatch(t *testing.T) {
	f := newDisputeFixture()
	raised, _ := f.svc.Raise(context.Background(), 1, 20, RaiseDisputeInput{Reason: "x"})

	found, err := f.svc.GetByMatch(context.Background(), 1)
	if err != nil {
		t.Fatalf("get by match: %v", err)
	}
	if found.ID != raised.ID {
		t.Fatalf("expected dispute %d, got %d", raised.ID, found.ID)
	}

	if _, err := f.svc.GetByMatch(context.Background(), 42); !errors.Is(err, ErrDisputeNotFound) {
		t.Fatalf("expected ErrDisputeNotFound, got %v", err)
	}
}

package service

import (
	"context"
	"testing"
	"time"

	"haven/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roleRepoStub struct {
	resolveFn func(context.Context, uint) (models.Role, error)
	assignFn  func(context.Context, uint, models.Role) error
}

func (s *roleRepoStub) Resolve(ctx context.Context, userID uint) (models.Role, error) {
	return s.resolveFn(ctx, userID)
}
func (s *roleRepoStub) Assign(ctx context.Context, userID uint, role models.Role) error {
	return s.assignFn(ctx, userID, role)
}

// rolesWith returns a stub where every principal resolves to the role in
// the map, absent entries resolving to new.
func rolesWith(m map[uint]models.Role) *roleRepoStub {
	return &roleRepoStub{
		resolveFn: func(_ context.Context, id uint) (models.Role, error) {
			if r, ok := m[id]; ok {
				return r, nil
			}
			return models.RoleNew, nil
		},
		assignFn: func(_ context.Context, id uint, r models.Role) error {
			m[id] = r
			return nil
		},
	}
}

type accessRequestRepoStub struct {
	createFn  func(context.Context, *models.AccessRequest) error
	getByIDFn func(context.Context, uint) (*models.AccessRequest, error)
	listFn    func(context.Context, models.AccessRequestStatus, int, int) ([]models.AccessRequest, error)
	decideFn  func(context.Context, uint, models.AccessRequestStatus, uint, string, time.Time) (bool, error)
}

func (s *accessRequestRepoStub) Create(ctx context.Context, req *models.AccessRequest) error {
	return s.createFn(ctx, req)
}
func (s *accessRequestRepoStub) GetByID(ctx context.Context, id uint) (*models.AccessRequest, error) {
	return s.getByIDFn(ctx, id)
}
func (s *accessRequestRepoStub) List(ctx context.Context, status models.AccessRequestStatus, limit, offset int) ([]models.AccessRequest, error) {
	return s.listFn(ctx, status, limit, offset)
}
func (s *accessRequestRepoStub) Decide(ctx context.Context, id uint, status models.AccessRequestStatus, reviewerID uint, note string, at time.Time) (bool, error) {
	return s.decideFn(ctx, id, status, reviewerID, note, at)
}

type userRepoStub struct {
	getByIDFn            func(context.Context, uint) (*models.User, error)
	getByIDWithProfileFn func(context.Context, uint) (*models.User, error)
	getByEmailFn         func(context.Context, string) (*models.User, error)
	getByUsernameFn      func(context.Context, string) (*models.User, error)
	createFn             func(context.Context, *models.User) error
	updateFn             func(context.Context, *models.User) error
	deleteFn             func(context.Context, uint) error
	listFn               func(context.Context, int, int) ([]models.User, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByIDWithProfile(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDWithProfileFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	return s.updateFn(ctx, user)
}
func (s *userRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *userRepoStub) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.listFn(ctx, limit, offset)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn:            func(context.Context, uint) (*models.User, error) { return &models.User{}, nil },
		getByIDWithProfileFn: func(context.Context, uint) (*models.User, error) { return &models.User{}, nil },
		getByEmailFn:         func(context.Context, string) (*models.User, error) { return nil, nil },
		getByUsernameFn:      func(context.Context, string) (*models.User, error) { return nil, nil },
		createFn:             func(context.Context, *models.User) error { return nil },
		updateFn:             func(context.Context, *models.User) error { return nil },
		deleteFn:             func(context.Context, uint) error { return nil },
		listFn:               func(context.Context, int, int) ([]models.User, error) { return nil, nil },
	}
}

type profileRepoStub struct {
	getByUserIDFn  func(context.Context, uint) (*models.Profile, error)
	upsertFn       func(context.Context, *models.Profile) error
	ensureExistsFn func(context.Context, uint, string) error
	listFn         func(context.Context, int, int) ([]models.Profile, error)
}

func (s *profileRepoStub) GetByUserID(ctx context.Context, userID uint) (*models.Profile, error) {
	return s.getByUserIDFn(ctx, userID)
}
func (s *profileRepoStub) Upsert(ctx context.Context, profile *models.Profile) error {
	return s.upsertFn(ctx, profile)
}
func (s *profileRepoStub) EnsureExists(ctx context.Context, userID uint, displayName string) error {
	return s.ensureExistsFn(ctx, userID, displayName)
}
func (s *profileRepoStub) List(ctx context.Context, limit, offset int) ([]models.Profile, error) {
	return s.listFn(ctx, limit, offset)
}

func noopProfileRepo() *profileRepoStub {
	return &profileRepoStub{
		getByUserIDFn:  func(context.Context, uint) (*models.Profile, error) { return &models.Profile{}, nil },
		upsertFn:       func(context.Context, *models.Profile) error { return nil },
		ensureExistsFn: func(context.Context, uint, string) error { return nil },
		listFn:         func(context.Context, int, int) ([]models.Profile, error) { return nil, nil },
	}
}

type outboxRepoStub struct {
	enqueued []models.Notification
	fail     error
}

func (s *outboxRepoStub) Enqueue(_ context.Context, n *models.Notification) error {
	if s.fail != nil {
		return s.fail
	}
	s.enqueued = append(s.enqueued, *n)
	return nil
}
func (s *outboxRepoStub) ClaimDue(context.Context, int, time.Time) ([]models.Notification, error) {
	return nil, nil
}
func (s *outboxRepoStub) MarkSent(context.Context, uint, time.Time) error { return nil }
func (s *outboxRepoStub) MarkFailed(context.Context, uint, int, string, time.Time, bool) error {
	return nil
}
func (s *outboxRepoStub) PendingCount(context.Context) (int64, error) { return 0, nil }

// assertForbidden asserts that err is an AppError with code FORBIDDEN.
func assertForbidden(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok, "expected *models.AppError, got %T", err)
	assert.Equal(t, models.CodeForbidden, appErr.Code)
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok, "expected *models.AppError, got %T", err)
	assert.Equal(t, models.CodeValidation, appErr.Code)
}

func pendingRequest(id uint) *models.AccessRequest {
	return &models.AccessRequest{
		ID:       id,
		FullName: "Robin Okafor",
		Email:    "robin@example.org",
		Message:  "A friend recommended Haven",
		Status:   models.AccessRequestStatusPending,
	}
}

func TestAccessRequestService_Submit(t *testing.T) {
	t.Parallel()

	t.Run("valid submission is stored pending", func(t *testing.T) {
		t.Parallel()
		var created *models.AccessRequest
		requests := &accessRequestRepoStub{
			createFn: func(_ context.Context, req *models.AccessRequest) error {
				created = req
				return nil
			},
		}
		svc := NewAccessRequestService(requests, rolesWith(nil), noopUserRepo(), noopProfileRepo(), &outboxRepoStub{}, nil)

		req, err := svc.Submit(context.Background(), SubmitAccessRequestInput{
			FullName: "Robin Okafor",
			Email:    "Robin@Example.org",
			Message:  "hello",
		})
		require.NoError(t, err)
		assert.Equal(t, models.AccessRequestStatusPending, req.Status)
		assert.Equal(t, "robin@example.org", req.Email, "email should be normalized")
		require.NotNil(t, created)
	})

	t.Run("rejects bad email", func(t *testing.T) {
		t.Parallel()
		svc := NewAccessRequestService(&accessRequestRepoStub{}, rolesWith(nil), noopUserRepo(), noopProfileRepo(), &outboxRepoStub{}, nil)
		_, err := svc.Submit(context.Background(), SubmitAccessRequestInput{
			FullName: "Robin", Email: "not-an-email", Message: "hello",
		})
		assertValidationError(t, err)
	})

	t.Run("rejects empty message", func(t *testing.T) {
		t.Parallel()
		svc := NewAccessRequestService(&accessRequestRepoStub{}, rolesWith(nil), noopUserRepo(), noopProfileRepo(), &outboxRepoStub{}, nil)
		_, err := svc.Submit(context.Background(), SubmitAccessRequestInput{
			FullName: "Robin", Email: "robin@example.org", Message: "   ",
		})
		assertValidationError(t, err)
	})
}

func TestAccessRequestService_Decide_Authorization(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		role      models.Role
		forbidden bool
	}{
		{"new cannot decide", models.RoleNew, true},
		{"member cannot decide", models.RoleMember, true},
		{"admin can decide", models.RoleAdmin, false},
		{"superadmin can decide", models.RoleSuperadmin, false},
		{"god can decide", models.RoleGod, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			requests := &accessRequestRepoStub{
				getByIDFn: func(_ context.Context, id uint) (*models.AccessRequest, error) {
					return pendingRequest(id), nil
				},
				decideFn: func(context.Context, uint, models.AccessRequestStatus, uint, string, time.Time) (bool, error) {
					return true, nil
				},
			}
			roles := rolesWith(map[uint]models.Role{1: tt.role})
			svc := NewAccessRequestService(requests, roles, noopUserRepo(), noopProfileRepo(), &outboxRepoStub{}, nil)

			_, _, err := svc.Decide(context.Background(), 1, 10, models.DecisionApprove, "")
			if tt.forbidden {
				assertForbidden(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAccessRequestService_Decide_FirstTransitionRunsSideEffects(t *testing.T) {
	t.Parallel()

	decided := pendingRequest(10)
	calls := 0
	requests := &accessRequestRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.AccessRequest, error) {
			if decided.Status == models.AccessRequestStatusApproved {
				cp := *decided
				return &cp, nil
			}
			return pendingRequest(id), nil
		},
		decideFn: func(_ context.Context, _ uint, status models.AccessRequestStatus, reviewerID uint, _ string, _ time.Time) (bool, error) {
			calls++
			if decided.Status != models.AccessRequestStatusPending {
				return false, nil
			}
			decided.Status = status
			decided.ReviewedByUserID = &reviewerID
			return true, nil
		},
	}

	roles := rolesWith(map[uint]models.Role{1: models.RoleAdmin})
	users := noopUserRepo()
	users.getByEmailFn = func(_ context.Context, email string) (*models.User, error) {
		return &models.User{ID: 42, Email: email}, nil
	}
	profiles := noopProfileRepo()
	ensured := 0
	profiles.ensureExistsFn = func(context.Context, uint, string) error {
		ensured++
		return nil
	}
	outbox := &outboxRepoStub{}
	svc := NewAccessRequestService(requests, roles, users, profiles, outbox, nil)

	req, applied, err := svc.Decide(context.Background(), 1, 10, models.DecisionApprove, "welcome")
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, models.AccessRequestStatusApproved, req.Status)
	assert.Equal(t, models.RoleMember, mustResolve(t, roles, 42), "approved applicant is provisioned as member")
	assert.Equal(t, 1, ensured, "profile is created once")
	require.Len(t, outbox.enqueued, 1)
	assert.Equal(t, "robin@example.org", outbox.enqueued[0].Recipient)

	// Second decision on the same request: benign no-op, no new side effects.
	req, applied, err = svc.Decide(context.Background(), 1, 10, models.DecisionDeny, "")
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, models.AccessRequestStatusApproved, req.Status, "terminal state is untouched")
	assert.Len(t, outbox.enqueued, 1, "duplicate decide enqueues nothing")
	assert.Equal(t, 1, ensured)
	assert.Equal(t, 2, calls)
}

func TestAccessRequestService_Decide_ProvisionsMissingAccount(t *testing.T) {
	t.Parallel()

	requests := &accessRequestRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.AccessRequest, error) {
			return pendingRequest(id), nil
		},
		decideFn: func(context.Context, uint, models.AccessRequestStatus, uint, string, time.Time) (bool, error) {
			return true, nil
		},
	}
	roleMap := map[uint]models.Role{1: models.RoleAdmin}
	roles := rolesWith(roleMap)
	users := noopUserRepo()
	var created *models.User
	users.createFn = func(_ context.Context, u *models.User) error {
		u.ID = 77
		created = u
		return nil
	}
	profiles := noopProfileRepo()
	ensured := uint(0)
	profiles.ensureExistsFn = func(_ context.Context, userID uint, _ string) error {
		ensured = userID
		return nil
	}
	svc := NewAccessRequestService(requests, roles, users, profiles, &outboxRepoStub{}, nil)

	_, applied, err := svc.Decide(context.Background(), 1, 10, models.DecisionApprove, "")
	require.NoError(t, err)
	assert.True(t, applied)
	require.NotNil(t, created, "an account is created for an applicant who never signed up")
	assert.Equal(t, "robin@example.org", created.Email)
	assert.NotEmpty(t, created.Password, "placeholder credentials are set")
	assert.Equal(t, models.RoleMember, roleMap[77])
	assert.Equal(t, uint(77), ensured)
}

func TestAccessRequestService_Decide_ProvisioningNeverDemotes(t *testing.T) {
	t.Parallel()

	requests := &accessRequestRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.AccessRequest, error) {
			return pendingRequest(id), nil
		},
		decideFn: func(context.Context, uint, models.AccessRequestStatus, uint, string, time.Time) (bool, error) {
			return true, nil
		},
	}
	roleMap := map[uint]models.Role{1: models.RoleAdmin, 42: models.RoleSuperadmin}
	roles := rolesWith(roleMap)
	users := noopUserRepo()
	users.getByEmailFn = func(_ context.Context, email string) (*models.User, error) {
		return &models.User{ID: 42, Email: email}, nil
	}
	svc := NewAccessRequestService(requests, roles, users, noopProfileRepo(), &outboxRepoStub{}, nil)

	_, applied, err := svc.Decide(context.Background(), 1, 10, models.DecisionApprove, "")
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, models.RoleSuperadmin, roleMap[42], "existing higher tier is preserved")
}

func TestAccessRequestService_Decide_OutboxFailureDoesNotFailDecision(t *testing.T) {
	t.Parallel()

	requests := &accessRequestRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.AccessRequest, error) {
			return pendingRequest(id), nil
		},
		decideFn: func(context.Context, uint, models.AccessRequestStatus, uint, string, time.Time) (bool, error) {
			return true, nil
		},
	}
	roles := rolesWith(map[uint]models.Role{1: models.RoleAdmin})
	outbox := &outboxRepoStub{fail: models.NewInternalError(assert.AnError)}
	svc := NewAccessRequestService(requests, roles, noopUserRepo(), noopProfileRepo(), outbox, nil)

	_, applied, err := svc.Decide(context.Background(), 1, 10, models.DecisionDeny, "")
	require.NoError(t, err, "a notification failure never reverses the committed decision")
	assert.True(t, applied)
}

func TestAccessRequestService_Decide_RejectsUnknownVerdict(t *testing.T) {
	t.Parallel()

	roles := rolesWith(map[uint]models.Role{1: models.RoleAdmin})
	svc := NewAccessRequestService(&accessRequestRepoStub{}, roles, noopUserRepo(), noopProfileRepo(), &outboxRepoStub{}, nil)

	_, _, err := svc.Decide(context.Background(), 1, 10, models.AccessRequestDecision("escalate"), "")
	assertValidationError(t, err)
}

func mustResolve(t *testing.T, roles *roleRepoStub, id uint) models.Role {
	t.Helper()
	r, err := roles.Resolve(context.Background(), id)
	require.NoError(t, err)
	return r
}

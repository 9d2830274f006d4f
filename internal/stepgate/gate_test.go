package stepgate

import (
	"testing"

	"brokerage_crm/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageFor(t *testing.T) {
	cases := map[int]string{
		0: PageBasicInfo,
		1: PageIncomeInfo,
		2: PageTradingInfo,
		3: PageAdditionalDetails,
		4: PageReviewProfile,
		5: PageDashboard,
		9: PageDashboard,
	}
	for step, page := range cases {
		assert.Equal(t, page, PageFor(step), "step %d", step)
	}
}

func TestCheckRedirectsClientBehindExpectedStep(t *testing.T) {
	client := domain.Actor{UserID: 5}
	profile := &domain.ClientProfile{UserID: 5, RegistrationStep: 1}

	err := Check(client, profile, 3)

	var redirect *domain.RedirectError
	require.ErrorAs(t, err, &redirect)
	assert.Equal(t, PageIncomeInfo, redirect.Location)
}

func TestCheckAllowsClientAtOrPastExpectedStep(t *testing.T) {
	client := domain.Actor{UserID: 5}
	assert.NoError(t, Check(client, &domain.ClientProfile{RegistrationStep: 2}, 2))
	assert.NoError(t, Check(client, &domain.ClientProfile{RegistrationStep: 5}, 2))
}

func TestCheckAdminOverrideBypassesStepFloor(t *testing.T) {
	admin := domain.Actor{UserID: 1, Admin: true, TargetUserID: 5}
	for step := 0; step <= 5; step++ {
		assert.NoError(t, Check(admin, &domain.ClientProfile{UserID: 5, RegistrationStep: 0}, step))
	}
}

func TestCheckMissingProfileRedirectsToStart(t *testing.T) {
	for _, actor := range []domain.Actor{{UserID: 5}, {UserID: 1, Admin: true, TargetUserID: 5}} {
		var redirect *domain.RedirectError
		require.ErrorAs(t, Check(actor, nil, 1), &redirect)
		assert.Equal(t, PageBasicInfo, redirect.Location)
	}
}

func TestTargetOverrideByNonAdminIsRejected(t *testing.T) {
	actor := domain.Actor{UserID: 5, TargetUserID: 6}

	_, err := Subject(actor)
	var authErr *domain.AuthorizationError
	assert.ErrorAs(t, err, &authErr)

	assert.ErrorAs(t, Check(actor, &domain.ClientProfile{RegistrationStep: 5}, 1), &authErr)
}

func TestSubjectResolution(t *testing.T) {
	id, err := Subject(domain.Actor{UserID: 5})
	require.NoError(t, err)
	assert.Equal(t, uint(5), id)

	id, err = Subject(domain.Actor{UserID: 1, Admin: true, TargetUserID: 9})
	require.NoError(t, err)
	assert.Equal(t, uint(9), id)

	_, err = Subject(domain.Actor{})
	var redirect *domain.RedirectError
	assert.ErrorAs(t, err, &redirect)
}

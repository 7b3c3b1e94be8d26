package service

import (
	"context"
	"testing"

	"produce-ledger/internal/models"
	"produce-ledger/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRegistration(username string) *RegisterRequest {
	return &RegisterRequest{
		Username:  username,
		FirstName: "Alice",
		LastName:  "Smith",
		Phone:     "(416) 555-0199",
		Email:     " Alice@Example.COM ",
		Password:  "sufficiently-long",
	}
}

func TestRegisterStoresCustomer(t *testing.T) {
	ctx := context.Background()
	grid := store.NewMemoryGrid()
	accounts := NewAccountService(store.NewStore(grid), "root")

	c, err := accounts.Register(ctx, validRegistration("alice"))
	require.NoError(t, err)
	assert.Equal(t, models.RoleCustomer, c.Role)
	assert.Equal(t, "alice@example.com", c.Email)

	rows, err := grid.ReadAll(ctx, models.TableCustomers)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, models.CustomerHeader, rows[0])
	assert.Equal(t, []string{"alice", "Alice", "Smith", "(416) 555-0199", "alice@example.com", "Customer"}, rows[1][:6])
}

func TestRegisterAssignsAdminRole(t *testing.T) {
	accounts := NewAccountService(store.NewStore(store.NewMemoryGrid()), "Root")

	c, err := accounts.Register(context.Background(), validRegistration("ROOT"))
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, c.Role)
	assert.True(t, c.IsAdmin())
}

func TestRegisterRejectsTakenUsername(t *testing.T) {
	accounts := NewAccountService(store.NewStore(store.NewMemoryGrid()), "")

	_, err := accounts.Register(context.Background(), validRegistration("alice"))
	require.NoError(t, err)

	_, err = accounts.Register(context.Background(), validRegistration("ALICE"))
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestRegisterValidation(t *testing.T) {
	accounts := NewAccountService(store.NewStore(store.NewMemoryGrid()), "")

	tests := []struct {
		name   string
		mutate func(r *RegisterRequest)
	}{
		{"missing first name", func(r *RegisterRequest) { r.FirstName = " " }},
		{"missing email", func(r *RegisterRequest) { r.Email = "" }},
		{"bad email", func(r *RegisterRequest) { r.Email = "alice.example.com" }},
		{"bad phone", func(r *RegisterRequest) { r.Phone = "123-456-7890" }},
		{"short phone", func(r *RegisterRequest) { r.Phone = "555-0199" }},
		{"username with space", func(r *RegisterRequest) { r.Username = "al ice" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRegistration("alice")
			tt.mutate(req)
			_, err := accounts.Register(context.Background(), req)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestPhoneFormats(t *testing.T) {
	for _, phone := range []string{"416-555-0199", "(416)555-0199", "416.555.0199", "416 555 0199", "4165550199"} {
		assert.True(t, phonePattern.MatchString(phone), phone)
	}
}

func TestAuthenticateByUsername(t *testing.T) {
	ctx := context.Background()
	accounts := NewAccountService(store.NewStore(store.NewMemoryGrid()), "")

	_, err := accounts.Register(ctx, validRegistration("alice"))
	require.NoError(t, err)

	c, err := accounts.Authenticate(ctx, "Alice", "")
	require.NoError(t, err)
	assert.Equal(t, "alice", c.Username)

	_, err = accounts.Authenticate(ctx, "mallory", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateWithPassword(t *testing.T) {
	ctx := context.Background()
	grid := store.NewMemoryGrid()
	accounts := NewAccountService(store.NewStore(grid), "", WithPasswords())

	short := validRegistration("alice")
	short.Password = "short"
	_, err := accounts.Register(ctx, short)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = accounts.Register(ctx, validRegistration("alice"))
	require.NoError(t, err)

	rows, err := grid.ReadAll(ctx, models.TableCustomers)
	require.NoError(t, err)
	assert.Equal(t, models.CustomerHeaderFor(true), rows[0])
	assert.NotEqual(t, "sufficiently-long", rows[1][len(rows[1])-1])

	_, err = accounts.Authenticate(ctx, "alice", "sufficiently-long")
	assert.NoError(t, err)

	_, err = accounts.Authenticate(ctx, "alice", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

type recordingCustomerPublisher struct {
	events []*models.CustomerRegisteredEvent
}

func (p *recordingCustomerPublisher) PublishCustomerRegistered(_ context.Context, e *models.CustomerRegisteredEvent) error {
	p.events = append(p.events, e)
	return nil
}

func TestRegisterPublishesEvent(t *testing.T) {
	pub := &recordingCustomerPublisher{}
	accounts := NewAccountService(store.NewStore(store.NewMemoryGrid()), "", WithCustomerEvents(pub))

	_, err := accounts.Register(context.Background(), validRegistration("alice"))
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	assert.Equal(t, models.EventTypeCustomerRegistered, pub.events[0].EventType)
	assert.Equal(t, "alice", pub.events[0].Username)
}

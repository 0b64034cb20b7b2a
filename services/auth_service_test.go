package services

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/playnow/reservas-api/models"
	"github.com/playnow/reservas-api/repositories"
)

type inMemoryUserRepo struct {
	nextID int
	byID   map[int]*models.User
}

func newInMemoryUserRepo() *inMemoryUserRepo {
	return &inMemoryUserRepo{nextID: 1, byID: make(map[int]*models.User)}
}

func (r *inMemoryUserRepo) Create(ctx context.Context, user *models.User) error {
	for _, existing := range r.byID {
		if existing.Email == user.Email {
			return repositories.ErrUserEmailConflict
		}
	}
	user.ID = r.nextID
	r.nextID++
	stored := *user
	r.byID[user.ID] = &stored
	return nil
}

func (r *inMemoryUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	if u, ok := r.byID[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, repositories.ErrUserNotFound
}

func (r *inMemoryUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.byID {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func TestRegister(t *testing.T) {
	repo := newInMemoryUserRepo()
	svc := NewAuthService(repo)

	user, err := svc.Register(context.Background(), RegisterInput{
		Username: "ana",
		Email:    "  Ana@Example.COM ",
		Phone:    "555-0001",
		Password: "secreto123",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if user.Email != "ana@example.com" {
		t.Errorf("email = %q, want normalized ana@example.com", user.Email)
	}
	if user.Role != models.RoleUser {
		t.Errorf("role = %q, want %q", user.Role, models.RoleUser)
	}
	if user.PasswordHash != "" {
		t.Error("password hash must be cleared on the returned user")
	}

	stored := repo.byID[user.ID]
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secreto123")); err != nil {
		t.Errorf("stored hash does not verify: %v", err)
	}
}

func TestRegisterEmailTaken(t *testing.T) {
	repo := newInMemoryUserRepo()
	svc := NewAuthService(repo)

	input := RegisterInput{Username: "ana", Email: "ana@example.com", Password: "secreto123"}
	if _, err := svc.Register(context.Background(), input); err != nil {
		t.Fatalf("first Register returned error: %v", err)
	}

	_, err := svc.Register(context.Background(), input)
	if !errors.Is(err, ErrAuthEmailTaken) {
		t.Errorf("err = %v, want ErrAuthEmailTaken", err)
	}
}

func TestRegisterAdmin(t *testing.T) {
	svc := NewAuthService(newInMemoryUserRepo())

	user, err := svc.RegisterAdmin(context.Background(), RegisterInput{
		Username: "root", Email: "root@example.com", Password: "secreto123",
	})
	if err != nil {
		t.Fatalf("RegisterAdmin returned error: %v", err)
	}
	if user.Role != models.RoleAdmin {
		t.Errorf("role = %q, want %q", user.Role, models.RoleAdmin)
	}
}

func TestLogin(t *testing.T) {
	repo := newInMemoryUserRepo()
	svc := NewAuthService(repo)

	if _, err := svc.Register(context.Background(), RegisterInput{
		Username: "ana", Email: "ana@example.com", Password: "secreto123",
	}); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	user, err := svc.Login(context.Background(), LoginInput{Email: "ana@example.com", Password: "secreto123"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if user.Username != "ana" {
		t.Errorf("username = %q, want ana", user.Username)
	}
	if user.PasswordHash != "" {
		t.Error("password hash must be cleared on login")
	}

	if _, err := svc.Login(context.Background(), LoginInput{Email: "ana@example.com", Password: "wrong"}); !errors.Is(err, ErrAuthInvalidCredentials) {
		t.Errorf("wrong password: err = %v, want ErrAuthInvalidCredentials", err)
	}

	if _, err := svc.Login(context.Background(), LoginInput{Email: "nobody@example.com", Password: "secreto123"}); !errors.Is(err, ErrAuthInvalidCredentials) {
		t.Errorf("unknown email: err = %v, want ErrAuthInvalidCredentials", err)
	}
}

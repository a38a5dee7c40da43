package user

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/ablespace/ablespace/core"
)

var (
	// errors
	ErrNotFound         = errors.New("user not found")
	ErrEmailExists      = errors.New("a user with this email already exists")
	ErrRollNumberExists = errors.New("a user with this roll number already exists")
	ErrInvalidOTP       = errors.New("invalid or expired OTP")
)

type (
	Repository interface {
		// CheckUniqueness returns ErrEmailExists or ErrRollNumberExists on conflict.
		// An empty rollNumber is never a conflict.
		CheckUniqueness(ctx context.Context, email, rollNumber string) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		// FilterStudentsByBranch returns all students whose branch is in branches.
		FilterStudentsByBranch(ctx context.Context, branches []string) ([]User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
	}
)

func NewService(repo Repository, mailSvc core.EmailService) *Service {
	return &Service{repo: repo, mailSvc: mailSvc}
}

func (svc *Service) CheckUniqueness(ctx context.Context, email, rollNumber string) error {
	if err := svc.repo.CheckUniqueness(ctx, email, rollNumber); err != nil {
		var field string
		switch err {
		case ErrEmailExists:
			field = "email"
		case ErrRollNumberExists:
			field = "roll_number"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		Role:      nu.Role,
		Branch:    nu.Branch,
		CreatedAt: now,
		UpdatedAt: now,
	}
	switch nu.Role {
	case RoleStudent:
		usr.Year = nu.Year
		usr.Section = nu.Section
		usr.RollNumber = nu.RollNumber
	case RoleTeacher:
		usr.Departments = nu.Departments
		usr.BranchesHandled = nu.BranchesHandled
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	return svc.repo.CreateUser(ctx, usr)
}

// Authenticate checks the given credentials and returns the matching User.
// Any mismatch surfaces as ErrNotFound so callers cannot distinguish an
// unknown email from a wrong password.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return User{}, err
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrNotFound
	}
	return usr, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

// Students returns all students in the given branches.
func (svc *Service) Students(ctx context.Context, branches []string) ([]User, error) {
	return svc.repo.FilterStudentsByBranch(ctx, branches)
}

func (svc *Service) UpdateProfile(ctx context.Context, usr User, up UpdateProfile) (User, error) {
	if up.Name != "" {
		usr.Name = up.Name
	}
	if up.Year != 0 {
		usr.Year = up.Year
	}
	if up.Section != "" {
		usr.Section = up.Section
	}
	if up.Departments != nil {
		usr.Departments = up.Departments
	}
	if up.BranchesHandled != nil {
		usr.BranchesHandled = up.BranchesHandled
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// RequestPasswordReset generates a fresh OTP for the account matching email,
// stores its hash with an expiry window and emails the code.
// Returns ErrNotFound for an unknown email; callers must not leak it.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}

	otp, err := GenerateOTP()
	if err != nil {
		return pkgerrors.Wrap(err, "generating OTP")
	}
	usr.ResetOTPHash = HashOTP(otp)
	usr.ResetOTPExpires = otpExpiry()
	usr.UpdatedAt = time.Now().UTC()
	if usr, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return pkgerrors.Wrap(err, "saving OTP")
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password Reset OTP",
		TemplateName: "password-reset-otp",
		TemplateData: struct {
			Name          string
			OTP           string
			ExpiryMinutes int
		}{usr.Name, otp, int(core.Conf.PasswordResetOTPTimeout.Minutes())},
	})
	return nil
}

// ResetPassword sets a new password if the submitted OTP matches and has
// not expired; the stored OTP is cleared either way on success.
func (svc *Service) ResetPassword(ctx context.Context, rp ResetUserPassword) error {
	usr, err := svc.repo.GetUserByEmail(ctx, rp.Email)
	if err != nil {
		if err == ErrNotFound {
			return core.NewValidationError(ErrInvalidOTP)
		}
		return err
	}
	if err = verifyOTP(usr, rp.OTP); err != nil {
		return core.NewValidationError(ErrInvalidOTP)
	}

	if err = usr.SetPassword(rp.Password); err != nil {
		return pkgerrors.Wrap(err, "hashing password")
	}
	usr.ResetOTPHash = ""
	usr.ResetOTPExpires = time.Time{}
	usr.UpdatedAt = time.Now().UTC()
	if _, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return pkgerrors.Wrap(err, fmt.Sprintf("updating user %s", usr.ID))
	}
	return nil
}

package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/ablespace/ablespace/core"
)

// Roles
const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

var AllRoles = []string{RoleTeacher, RoleStudent}

type User struct {
	ID     string `json:"id" bson:"_id,omitempty"`
	Name   string `json:"name" bson:"name"`
	Email  string `json:"email" bson:"email"`
	Role   string `json:"role" bson:"role"`
	Branch string `json:"branch" bson:"branch"`

	// student-specific
	Year       int    `json:"year,omitempty" bson:"year,omitempty"`
	Section    string `json:"section,omitempty" bson:"section,omitempty"`
	RollNumber string `json:"roll_number,omitempty" bson:"roll_number,omitempty"`

	// teacher-specific
	Departments     []string `json:"departments,omitempty" bson:"departments,omitempty"`
	BranchesHandled []string `json:"branches_handled,omitempty" bson:"branches_handled,omitempty"`

	PasswordHash    []byte    `json:"-" bson:"password_hash"`
	ResetOTPHash    string    `json:"-" bson:"reset_otp_hash,omitempty"`
	ResetOTPExpires time.Time `json:"-" bson:"reset_otp_expires,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsTeacher() bool {
	return u.Role == RoleTeacher
}

func (u *User) IsStudent() bool {
	return u.Role == RoleStudent
}

// NewUser contains information needed to register a new User.
type NewUser struct {
	Name            string   `json:"name" validate:"required,max=50"`
	Email           string   `json:"email" validate:"required,email"`
	Password        string   `json:"password" validate:"required,min=6"`
	Role            string   `json:"role" validate:"required,oneof=teacher student"`
	Branch          string   `json:"branch" validate:"required,branch"`
	Year            int      `json:"year" validate:"omitempty,min=1,max=4"`
	Section         string   `json:"section"`
	RollNumber      string   `json:"roll_number"`
	Departments     []string `json:"departments"`
	BranchesHandled []string `json:"branches_handled" validate:"omitempty,dive,branch"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.RollNumber = core.CleanString(nu.RollNumber)

	if err := validate.Struct(nu); err != nil {
		return err
	}

	// role-specific requirements
	switch nu.Role {
	case RoleStudent:
		if nu.RollNumber == "" {
			return core.NewValidationError(nil, core.FieldError{Field: "roll_number", Error: "roll number is required for students"})
		}
	case RoleTeacher:
		if len(nu.BranchesHandled) == 0 {
			return core.NewValidationError(nil, core.FieldError{Field: "branches_handled", Error: "branches handled are required for teachers"})
		}
	}

	return svc.CheckUniqueness(ctx, nu.Email, nu.RollNumber)
}

// UpdateProfile defines what information a User may modify on their own profile.
type UpdateProfile struct {
	Name            string   `json:"name" validate:"omitempty,max=50"`
	Year            int      `json:"year" validate:"omitempty,min=1,max=4"`
	Section         string   `json:"section"`
	Departments     []string `json:"departments"`
	BranchesHandled []string `json:"branches_handled" validate:"omitempty,dive,branch"`
}

func (up *UpdateProfile) Validate(validate *validator.Validate) error {
	up.Name = core.CleanString(up.Name)
	return validate.Struct(up)
}

type Login struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (l *Login) Validate(validate *validator.Validate) error {
	l.Email = core.CleanString(l.Email, true /* lower */)
	return validate.Struct(l)
}

type ForgotPassword struct {
	Email string `json:"email" validate:"required,email"`
}

func (fp *ForgotPassword) Validate(validate *validator.Validate) error {
	fp.Email = core.CleanString(fp.Email, true /* lower */)
	return validate.Struct(fp)
}

type ResetUserPassword struct {
	Email    string `json:"email" validate:"required,email"`
	OTP      string `json:"otp" validate:"required,len=6,numeric"`
	Password string `json:"password" validate:"required,min=6"`
}

func (rp *ResetUserPassword) Validate(validate *validator.Validate) error {
	rp.Email = core.CleanString(rp.Email, true /* lower */)
	return validate.Struct(rp)
}

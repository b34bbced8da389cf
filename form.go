package session

import (
	"context"
	"errors"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

// FormMode selects which of the two credential forms is active.
type FormMode string

const (
	ModeSignIn   FormMode = "sign-in"
	ModeRegister FormMode = "register"
)

// SignInRequest is the sign-in form payload.
type SignInRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r SignInRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email.Error("Please enter a valid email address"),
		),
		validation.Field(
			&r.Password,
			validation.Required,
			validation.Length(6, 100).Error("Password must be at least 6 characters"),
		),
	)
}

// RegisterRequest is the registration form payload.
type RegisterRequest struct {
	Email           string `form:"email" json:"email"`
	Username        string `form:"username" json:"username"`
	FullName        string `form:"full_name" json:"fullName"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirmPassword"`
}

// Validate will run validation rules
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email.Error("Please enter a valid email address"),
		),
		validation.Field(
			&r.Username,
			validation.Required,
			validation.Length(3, 100).Error("Username must be at least 3 characters"),
		),
		validation.Field(
			&r.Password,
			validation.Required,
			validation.Length(6, 100).Error("Password must be at least 6 characters"),
		),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password, "Passwords do not match")),
		),
	)
}

// ValidateStringEquals checks that the validated value matches str. The
// message is returned as-is so it survives into the field error map.
func ValidateStringEquals(str, message string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New(message)
		}
		return nil
	}
}

// FormatValidationErrorToMap flattens an ozzo validation error into a
// field name to message map.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}

	out["form"] = err.Error()
	return out
}

// Notice is the user-facing notification for a submission outcome. The
// description of failure notices carries the backend message verbatim.
type Notice struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Variant     string `json:"variant,omitempty"`
}

const noticeVariantDestructive = "destructive"

// SubmitResult reports how a submission settled. FieldErrors is non-empty
// only for local validation failures, which never reach the backend.
type SubmitResult struct {
	OK          bool
	FieldErrors map[string]string
	Notice      *Notice
}

// FormController validates credential submissions, invokes the backend's
// register and sign-in operations, and maps outcomes to notices. It never
// navigates or touches the Store; the Synchronizer's session change drives
// consumers.
type FormController struct {
	backend CredentialBackend
	logger  Logger

	mu       sync.Mutex
	mode     FormMode
	busy     bool
	signIn   SignInRequest
	register RegisterRequest
}

type FormControllerOption func(*FormController)

// WithFormLogger overrides the controller's logger.
func WithFormLogger(logger Logger) FormControllerOption {
	return func(c *FormController) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewFormController returns a controller starting in sign-in mode.
func NewFormController(backend CredentialBackend, opts ...FormControllerOption) *FormController {
	c := &FormController{
		backend: backend,
		logger:  defLogger{},
		mode:    ModeSignIn,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Mode returns the active form mode.
func (c *FormController) Mode() FormMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Busy reports whether a submission is in flight.
func (c *FormController) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// SignInValues returns the retained sign-in field values.
func (c *FormController) SignInValues() SignInRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.signIn
}

// RegisterValues returns the retained registration field values.
func (c *FormController) RegisterValues() RegisterRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.register
}

// ToggleMode flips between sign-in and registration and clears the field
// values of both forms; nothing carries over between modes.
func (c *FormController) ToggleMode() FormMode {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode == ModeSignIn {
		c.mode = ModeRegister
	} else {
		c.mode = ModeSignIn
	}

	c.signIn = SignInRequest{}
	c.register = RegisterRequest{}

	return c.mode
}

// SubmitSignIn validates the submission and, when valid, issues exactly one
// sign-in call. While a previous submission is in flight the call is
// rejected with ErrSubmissionInFlight and the backend is not contacted.
func (c *FormController) SubmitSignIn(ctx context.Context, req SignInRequest) (SubmitResult, error) {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return SubmitResult{}, ErrSubmissionInFlight
	}
	c.busy = true
	c.signIn = req
	c.mu.Unlock()

	defer c.settle()

	if err := req.Validate(); err != nil {
		return SubmitResult{FieldErrors: FormatValidationErrorToMap(err)}, nil
	}

	if _, err := c.backend.SignInWithPassword(ctx, req.Email, req.Password); err != nil {
		c.logger.Error("sign in failed", "email", req.Email, "error", err)
		return SubmitResult{Notice: &Notice{
			Title:       "Login Failed",
			Description: backendMessage(err),
			Variant:     noticeVariantDestructive,
		}}, nil
	}

	return SubmitResult{OK: true, Notice: &Notice{
		Title:       "Success!",
		Description: "You have successfully logged in.",
	}}, nil
}

// SubmitRegister validates the submission and, when valid, issues one
// register call. On success the active mode switches to sign-in and both
// forms are cleared; on failure the fields are kept so the user can
// correct them.
func (c *FormController) SubmitRegister(ctx context.Context, req RegisterRequest) (SubmitResult, error) {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return SubmitResult{}, ErrSubmissionInFlight
	}
	c.busy = true
	c.register = req
	c.mu.Unlock()

	defer c.settle()

	if err := req.Validate(); err != nil {
		return SubmitResult{FieldErrors: FormatValidationErrorToMap(err)}, nil
	}

	metadata := RegistrationMetadata{
		Username: req.Username,
		FullName: req.FullName,
	}

	if _, err := c.backend.RegisterWithPassword(ctx, req.Email, req.Password, metadata); err != nil {
		c.logger.Error("registration failed", "email", req.Email, "error", err)
		return SubmitResult{Notice: &Notice{
			Title:       "Registration Failed",
			Description: backendMessage(err),
			Variant:     noticeVariantDestructive,
		}}, nil
	}

	c.mu.Lock()
	c.mode = ModeSignIn
	c.signIn = SignInRequest{}
	c.register = RegisterRequest{}
	c.mu.Unlock()

	return SubmitResult{OK: true, Notice: &Notice{
		Title:       "Account Created!",
		Description: "You have successfully signed up. Please log in.",
	}}, nil
}

func (c *FormController) settle() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

// backendMessage extracts the user-visible message from a backend error,
// untouched except for unwrapping the rich error envelope.
func backendMessage(err error) string {
	var richErr *goerrors.Error
	if errors.As(err, &richErr) {
		return richErr.Message
	}
	return err.Error()
}

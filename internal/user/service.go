package user

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/privacyeraser/privacyeraser/internal/api/models"
)

// Validation constants.
const (
	MaxNameLength    = 100
	MaxListEntries   = 20
	MaxAddressEntries = 10
)

// Plan limits. Zero means unlimited.
const (
	FreeScanBrokerLimit     = 25
	FreeActiveRequestLimit  = 5
	BasicActiveRequestLimit = 50
)

// Service provides user account and profile operations.
type Service struct {
	repo Repository
}

// NewService creates a new user service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetMe retrieves the user's account together with their profile.
func (s *Service) GetMe(ctx context.Context, userID string) (*models.MeResponse, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := &models.MeResponse{
		ID:         user.ID,
		Email:      user.Email,
		Plan:       models.Plan(user.Plan),
		IsVerified: user.IsVerified,
	}

	profile, err := s.repo.GetProfile(ctx, userID)
	if err == nil {
		view := toProfileView(profile)
		resp.Profile = &view
	} else if err != ErrProfileNotFound {
		return nil, err
	}

	return resp, nil
}

// GetProfile retrieves the user's profile.
func (s *Service) GetProfile(ctx context.Context, userID string) (*models.ProfileView, error) {
	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	view := toProfileView(profile)
	return &view, nil
}

// UpsertProfile creates or updates the user's profile. Only fields present
// in the input are changed; the profile row is created lazily on first save.
func (s *Service) UpsertProfile(ctx context.Context, userID string, input *models.ProfileInput) (*models.ProfileView, error) {
	if fieldErrors := validateProfileInput(input); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	now := time.Now()

	profile, err := s.repo.GetProfile(ctx, userID)
	if err == ErrProfileNotFound {
		profile = &Profile{
			ID:        uuid.New().String(),
			UserID:    userID,
			CreatedAt: now,
		}
	} else if err != nil {
		return nil, err
	}

	applyProfileInput(profile, input)
	profile.UpdatedAt = now

	if err := s.repo.UpsertProfile(ctx, profile); err != nil {
		return nil, err
	}

	view := toProfileView(profile)
	return &view, nil
}

// ScanBrokerLimit returns the maximum number of brokers a scan may cover
// for the given plan. Zero means the full catalog.
func ScanBrokerLimit(plan string) int {
	if plan == PlanFree {
		return FreeScanBrokerLimit
	}
	return 0
}

// ActiveRequestLimit returns the maximum number of concurrently active
// removal requests for the given plan. Zero means unlimited.
func ActiveRequestLimit(plan string) int {
	switch plan {
	case PlanFree:
		return FreeActiveRequestLimit
	case PlanBasic:
		return BasicActiveRequestLimit
	default:
		return 0
	}
}

func applyProfileInput(profile *Profile, input *models.ProfileInput) {
	if input.FirstName != nil {
		profile.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		profile.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.MiddleName != nil {
		profile.MiddleName = strings.TrimSpace(*input.MiddleName)
	}
	if input.MaidenName != nil {
		profile.MaidenName = strings.TrimSpace(*input.MaidenName)
	}
	if input.Nicknames != nil {
		profile.Nicknames = input.Nicknames
	}
	if input.Emails != nil {
		profile.Emails = input.Emails
	}
	if input.PhoneNumbers != nil {
		profile.PhoneNumbers = input.PhoneNumbers
	}
	if input.Addresses != nil {
		addrs := make([]Address, 0, len(input.Addresses))
		for _, a := range input.Addresses {
			addrs = append(addrs, Address{
				Street: a.Street,
				City:   a.City,
				State:  a.State,
				Zip:    a.Zip,
				Years:  a.Years,
			})
		}
		profile.Addresses = addrs
	}
	if input.DateOfBirth != nil {
		if *input.DateOfBirth == "" {
			profile.DateOfBirth = nil
		} else if dob, err := time.Parse("2006-01-02", *input.DateOfBirth); err == nil {
			profile.DateOfBirth = &dob
		}
	}
	if input.Relatives != nil {
		profile.Relatives = input.Relatives
	}
}

// validateProfileInput validates profile input and returns any field errors.
func validateProfileInput(input *models.ProfileInput) []models.FieldError {
	var errs []models.FieldError

	errs = validateName(errs, input.FirstName, "firstName")
	errs = validateName(errs, input.LastName, "lastName")
	errs = validateName(errs, input.MiddleName, "middleName")
	errs = validateName(errs, input.MaidenName, "maidenName")

	if len(input.Nicknames) > MaxListEntries {
		errs = append(errs, models.FieldError{Field: "nicknames", Message: "too many entries"})
	}
	if len(input.Emails) > MaxListEntries {
		errs = append(errs, models.FieldError{Field: "emails", Message: "too many entries"})
	}
	for _, e := range input.Emails {
		if !strings.Contains(e, "@") {
			errs = append(errs, models.FieldError{Field: "emails", Message: "must be valid email addresses"})
			break
		}
	}
	if len(input.PhoneNumbers) > MaxListEntries {
		errs = append(errs, models.FieldError{Field: "phoneNumbers", Message: "too many entries"})
	}
	if len(input.Addresses) > MaxAddressEntries {
		errs = append(errs, models.FieldError{Field: "addresses", Message: "too many entries"})
	}
	if len(input.Relatives) > MaxListEntries {
		errs = append(errs, models.FieldError{Field: "relatives", Message: "too many entries"})
	}

	if input.DateOfBirth != nil && *input.DateOfBirth != "" {
		if _, err := time.Parse("2006-01-02", *input.DateOfBirth); err != nil {
			errs = append(errs, models.FieldError{Field: "dateOfBirth", Message: "must be in YYYY-MM-DD format"})
		}
	}

	return errs
}

func validateName(errs []models.FieldError, value *string, field string) []models.FieldError {
	if value != nil && len(*value) > MaxNameLength {
		errs = append(errs, models.FieldError{Field: field, Message: "must be at most 100 characters"})
	}
	return errs
}

func toProfileView(p *Profile) models.ProfileView {
	view := models.ProfileView{
		ID:           p.ID,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		MiddleName:   p.MiddleName,
		MaidenName:   p.MaidenName,
		Nicknames:    p.Nicknames,
		Emails:       p.Emails,
		PhoneNumbers: p.PhoneNumbers,
		Relatives:    p.Relatives,
		CreatedAt:    models.Timestamp(p.CreatedAt),
		UpdatedAt:    models.Timestamp(p.UpdatedAt),
	}

	if len(p.Addresses) > 0 {
		addrs := make([]models.Address, 0, len(p.Addresses))
		for _, a := range p.Addresses {
			addrs = append(addrs, models.Address{
				Street: a.Street,
				City:   a.City,
				State:  a.State,
				Zip:    a.Zip,
				Years:  a.Years,
			})
		}
		view.Addresses = addrs
	}

	if p.DateOfBirth != nil {
		dob := p.DateOfBirth.Format("2006-01-02")
		view.DateOfBirth = &dob
	}

	return view
}

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

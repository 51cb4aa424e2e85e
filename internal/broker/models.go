// Package broker maintains the data broker catalog: the directory of
// people-search and background-check sites the scanner covers, together
// with each site's opt-out procedure.
package broker

import (
	"errors"
	"time"
)

// ErrBrokerNotFound is returned when a broker does not exist.
var ErrBrokerNotFound = errors.New("broker not found")

// Opt-out methods.
const (
	MethodForm  = "form"
	MethodEmail = "email"
	MethodMail  = "mail"
	MethodAPI   = "api"
)

// Broker categories.
const (
	CategoryPeopleSearch    = "people_search"
	CategoryBackgroundCheck = "background_check"
	CategoryMarketing       = "marketing"
)

// Broker describes a data broker site and how to get data removed from it.
type Broker struct {
	ID     string
	Name   string
	Domain string

	// Category is one of the Category* constants, empty when unknown.
	Category string

	// SearchURLPattern is a template with {first_name}, {last_name},
	// {city} and {state} placeholders used to probe the site.
	SearchURLPattern string

	OptOutURL          string
	OptOutMethod       string
	OptOutEmail        string
	OptOutInstructions string

	RequiresVerification bool
	RequiresID           bool
	ProcessingDays       int

	CanAutomate bool

	// FormSelectors maps opt-out form field names to CSS selectors for
	// brokers whose forms can be driven by an automation engine.
	FormSelectors map[string]string

	CaptchaType string

	// Difficulty rates manual opt-out effort from 1 (trivial) to 5.
	Difficulty int

	IsActive     bool
	LastVerified *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

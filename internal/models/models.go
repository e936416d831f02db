// Package models defines the domain entities for the subscription tracker.
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// DefaultColor is the avatar colour used when none is given.
const DefaultColor = "#0A84FF"

// MaxNameLength is the maximum allowed length for subscription names.
const MaxNameLength = 100

// Validation errors returned by NewSubscription and Subscription.Apply.
var (
	ErrInvalidName      = errors.New("invalid name")
	ErrInvalidPrice     = errors.New("invalid price")
	ErrInvalidDay       = errors.New("invalid due day")
	ErrInvalidWeekday   = errors.New("invalid weekday")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrInvalidCurrency  = errors.New("invalid currency")
)

// Frequency is the billing cadence of a subscription.
type Frequency string

// Supported frequencies.
const (
	FrequencyMonthly Frequency = "Monthly"
	FrequencyYearly  Frequency = "Yearly"
	FrequencyWeekly  Frequency = "Weekly"
)

// Frequencies lists every frequency in display order.
var Frequencies = []Frequency{FrequencyMonthly, FrequencyYearly, FrequencyWeekly}

// ParseFrequency matches s case-insensitively. An empty string means Monthly.
func ParseFrequency(s string) (Frequency, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return FrequencyMonthly, nil
	}
	for _, f := range Frequencies {
		if strings.EqualFold(string(f), s) {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFrequency, s)
}

// Category groups subscriptions for the stats view.
type Category string

// Supported categories.
const (
	CategoryEntertainment Category = "Entertainment"
	CategoryProductivity  Category = "Productivity"
	CategoryShopping      Category = "Shopping"
	CategoryHealth        Category = "Health"
	CategoryGaming        Category = "Gaming"
	CategoryWork          Category = "Work"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryEntertainment,
	CategoryProductivity,
	CategoryShopping,
	CategoryHealth,
	CategoryGaming,
	CategoryWork,
}

// ParseCategory matches s case-insensitively. An empty string means Entertainment.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CategoryEntertainment, nil
	}
	for _, c := range Categories {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

// Status is the user-facing lifecycle state of a subscription.
type Status string

// Supported statuses.
const (
	StatusActive   Status = "Active"
	StatusCanceled Status = "Canceled"
)

// ParseStatus matches s case-insensitively. An empty string means Active.
func ParseStatus(s string) (Status, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return StatusActive, nil
	case strings.EqualFold(s, string(StatusActive)):
		return StatusActive, nil
	case strings.EqualFold(s, string(StatusCanceled)):
		return StatusCanceled, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Subscription is a recurring payment owned by one user.
type Subscription struct {
	ID              string          `json:"id"`
	UID             string          `json:"uid"`
	Name            string          `json:"name"`
	Price           decimal.Decimal `json:"price"`
	Day             int             `json:"day"`
	Frequency       Frequency       `json:"frequency"`
	Category        Category        `json:"category"`
	Status          Status          `json:"status"`
	Color           string          `json:"color"`
	Logo            string          `json:"logo"`
	Weekday         *int            `json:"weekday,omitempty"`
	Month           *int            `json:"month,omitempty"`
	ReminderEnabled bool            `json:"reminderEnabled"`
	ReminderEndDate *time.Time      `json:"reminderEndDate,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// IsCanceled reports whether the subscription no longer bills.
func (s Subscription) IsCanceled() bool {
	return s.Status == StatusCanceled
}

// Draft is the unvalidated input of the add flow.
type Draft struct {
	Name            string
	Price           string
	Day             int
	Frequency       string
	Category        string
	Status          string
	Color           string
	Logo            string
	Weekday         *int
	Month           *int
	ReminderEnabled bool
	ReminderEndDate *time.Time
}

// NewSubscription validates a draft and applies every default. It is the only
// place where missing fields are filled in. ID and CreatedAt are left for the store.
func NewSubscription(uid string, d Draft) (Subscription, error) {
	sub := Subscription{
		UID:             uid,
		Day:             d.Day,
		Color:           strings.TrimSpace(d.Color),
		Logo:            strings.TrimSpace(d.Logo),
		Weekday:         d.Weekday,
		Month:           d.Month,
		ReminderEnabled: d.ReminderEnabled,
		ReminderEndDate: d.ReminderEndDate,
	}

	var err error
	if sub.Name, err = normalizeName(d.Name); err != nil {
		return Subscription{}, err
	}
	if sub.Price, err = ParsePrice(d.Price); err != nil {
		return Subscription{}, err
	}
	if sub.Frequency, err = ParseFrequency(d.Frequency); err != nil {
		return Subscription{}, err
	}
	if sub.Category, err = ParseCategory(d.Category); err != nil {
		return Subscription{}, err
	}
	if sub.Status, err = ParseStatus(d.Status); err != nil {
		return Subscription{}, err
	}
	if sub.Color == "" {
		sub.Color = DefaultColor
	}
	if sub.Logo == "" {
		if preset, ok := LookupPreset(sub.Name); ok {
			sub.Logo = LogoURL(preset.Domain)
		}
	}

	if err := sub.Validate(); err != nil {
		return Subscription{}, err
	}
	return sub, nil
}

// Validate checks the range invariants of a subscription.
func (s Subscription) Validate() error {
	if s.Name == "" {
		return ErrInvalidName
	}
	if s.Price.IsNegative() {
		return fmt.Errorf("%w: %s is negative", ErrInvalidPrice, s.Price)
	}
	if s.Day < 1 || s.Day > 31 {
		return fmt.Errorf("%w: %d not in [1,31]", ErrInvalidDay, s.Day)
	}
	if s.Weekday != nil && (*s.Weekday < 0 || *s.Weekday > 6) {
		return fmt.Errorf("%w: %d not in [0,6]", ErrInvalidWeekday, *s.Weekday)
	}
	if s.Month != nil && (*s.Month < 0 || *s.Month > 11) {
		return fmt.Errorf("%w: %d not in [0,11]", ErrInvalidMonth, *s.Month)
	}
	return nil
}

// ParsePrice parses a decimal string and normalizes it to two decimals.
func ParsePrice(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: price is required", ErrInvalidPrice)
	}
	price, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}
	if price.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s is negative", ErrInvalidPrice, s)
	}
	return price.Round(2), nil
}

func normalizeName(name string) (string, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", fmt.Errorf("%w: longer than %d characters", ErrInvalidName, MaxNameLength)
	}
	return name, nil
}

// Field names a mutable subscription attribute touched by a Patch.
type Field string

// Patchable fields.
const (
	FieldName            Field = "name"
	FieldPrice           Field = "price"
	FieldDay             Field = "day"
	FieldFrequency       Field = "frequency"
	FieldCategory        Field = "category"
	FieldStatus          Field = "status"
	FieldColor           Field = "color"
	FieldLogo            Field = "logo"
	FieldWeekday         Field = "weekday"
	FieldMonth           Field = "month"
	FieldReminderEnabled Field = "reminder_enabled"
	FieldReminderEndDate Field = "reminder_end_date"
)

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Name            *string
	Price           *string
	Day             *int
	Frequency       *string
	Category        *string
	Status          *string
	Color           *string
	Logo            *string
	Weekday         *int
	Month           *int
	ReminderEnabled *bool
	ReminderEndDate *time.Time
}

// Fields returns the attributes the patch sets, in a stable order.
func (p Patch) Fields() []Field {
	var fields []Field
	add := func(set bool, f Field) {
		if set {
			fields = append(fields, f)
		}
	}
	add(p.Name != nil, FieldName)
	add(p.Price != nil, FieldPrice)
	add(p.Day != nil, FieldDay)
	add(p.Frequency != nil, FieldFrequency)
	add(p.Category != nil, FieldCategory)
	add(p.Status != nil, FieldStatus)
	add(p.Color != nil, FieldColor)
	add(p.Logo != nil, FieldLogo)
	add(p.Weekday != nil, FieldWeekday)
	add(p.Month != nil, FieldMonth)
	add(p.ReminderEnabled != nil, FieldReminderEnabled)
	add(p.ReminderEndDate != nil, FieldReminderEndDate)
	return fields
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// Apply returns a copy of s with the patch applied and re-validated.
func (s Subscription) Apply(p Patch) (Subscription, error) {
	var err error
	if p.Name != nil {
		if s.Name, err = normalizeName(*p.Name); err != nil {
			return Subscription{}, err
		}
	}
	if p.Price != nil {
		if s.Price, err = ParsePrice(*p.Price); err != nil {
			return Subscription{}, err
		}
	}
	if p.Day != nil {
		s.Day = *p.Day
	}
	if p.Frequency != nil {
		if s.Frequency, err = ParseFrequency(*p.Frequency); err != nil {
			return Subscription{}, err
		}
	}
	if p.Category != nil {
		if s.Category, err = ParseCategory(*p.Category); err != nil {
			return Subscription{}, err
		}
	}
	if p.Status != nil {
		if s.Status, err = ParseStatus(*p.Status); err != nil {
			return Subscription{}, err
		}
	}
	if p.Color != nil {
		s.Color = strings.TrimSpace(*p.Color)
		if s.Color == "" {
			s.Color = DefaultColor
		}
	}
	if p.Logo != nil {
		s.Logo = strings.TrimSpace(*p.Logo)
	}
	if p.Weekday != nil {
		w := *p.Weekday
		s.Weekday = &w
	}
	if p.Month != nil {
		m := *p.Month
		s.Month = &m
	}
	if p.ReminderEnabled != nil {
		s.ReminderEnabled = *p.ReminderEnabled
	}
	if p.ReminderEndDate != nil {
		d := *p.ReminderEndDate
		s.ReminderEndDate = &d
	}

	if err := s.Validate(); err != nil {
		return Subscription{}, err
	}
	return s, nil
}

// Preferences holds per-user settings.
type Preferences struct {
	UID            string    `json:"uid"`
	Currency       Currency  `json:"currency"`
	TelegramChatID *int64    `json:"telegramChatId,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

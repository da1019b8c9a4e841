package domain

import (
	"fmt"
	"time"
)

// Gender as collected by the dialogue.
type Gender string

const (
	GenderFemale      Gender = "female"
	GenderMale        Gender = "male"
	GenderUnspecified Gender = "unspecified"
)

// Valid reports whether g is one of the known values.
func (g Gender) Valid() bool {
	switch g {
	case GenderFemale, GenderMale, GenderUnspecified:
		return true
	}
	return false
}

// Education level as collected by the dialogue.
type Education string

const (
	EducationHigher    Education = "higher"
	EducationSecondary Education = "secondary"
	EducationNone      Education = "none"
)

// Valid reports whether e is one of the known values.
func (e Education) Valid() bool {
	switch e {
	case EducationHigher, EducationSecondary, EducationNone:
		return true
	}
	return false
}

// Photo references an image held by the messaging platform.
type Photo struct {
	FileID   string `json:"photo_id" mapstructure:"photo_id"`
	UniqueID string `json:"photo_unique_id" mapstructure:"photo_unique_id"`
}

// Profile is the completed record of one participant.
// A new completed dialogue overwrites the previous profile.
type Profile struct {
	Name      string    `json:"name" mapstructure:"name"`
	Age       int       `json:"age" mapstructure:"age"`
	Gender    Gender    `json:"gender" mapstructure:"gender"`
	Photo     Photo     `json:"photo" mapstructure:",squash"`
	Education Education `json:"education" mapstructure:"education"`
	WantsNews bool      `json:"wants_news" mapstructure:"wants_news"`

	Version     int       `json:"version" mapstructure:"-"`
	CompletedAt time.Time `json:"completed_at" mapstructure:"-"`
}

// Validate checks that every field has been collected and holds a known value.
func (p Profile) Validate() error {
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: missing name", ErrInvalidProfile)
	case p.Age < 4 || p.Age > 120:
		return fmt.Errorf("%w: age %d out of range", ErrInvalidProfile, p.Age)
	case !p.Gender.Valid():
		return fmt.Errorf("%w: unknown gender %q", ErrInvalidProfile, p.Gender)
	case p.Photo.FileID == "":
		return fmt.Errorf("%w: missing photo", ErrInvalidProfile)
	case !p.Education.Valid():
		return fmt.Errorf("%w: unknown education %q", ErrInvalidProfile, p.Education)
	}
	return nil
}

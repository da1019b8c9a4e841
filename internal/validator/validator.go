// Package validator holds one pure check per collected field.
// Validators never touch a session; callers decide what a rejection means.
package validator

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/aretw0/formbot/pkg/domain"
)

// Age bounds, inclusive.
const (
	MinAge = 4
	MaxAge = 120
)

// Button tokens carried by inline keyboards.
const (
	TokenFemale      = "female"
	TokenMale        = "male"
	TokenUnspecified = "undefined_gender"

	TokenHighEducation      = "high_education"
	TokenSecondaryEducation = "secondary_education"
	TokenNoEducation        = "no_education"

	TokenAgreed   = "agreed"
	TokenDeclined = "declined"
)

// ErrRejected matches every *Rejection via errors.Is.
var ErrRejected = errors.New("input rejected")

// Rejection reports why an answer was not accepted.
type Rejection struct {
	Field  string
	Reason string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s rejected: %s", r.Field, r.Reason)
}

func (r *Rejection) Is(target error) bool {
	return target == ErrRejected
}

func reject(field, format string, args ...any) *Rejection {
	return &Rejection{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Name accepts a single word made only of letters, in any script.
func Name(text string) (string, error) {
	name := strings.TrimSpace(text)
	if name == "" {
		return "", reject(domain.FieldName, "empty")
	}
	for _, r := range name {
		if !unicode.IsLetter(r) {
			return "", reject(domain.FieldName, "contains %q", r)
		}
	}
	return name, nil
}

// Age accepts ASCII decimal digits in [MinAge, MaxAge].
func Age(text string) (int, error) {
	digits := strings.TrimSpace(text)
	if digits == "" {
		return 0, reject(domain.FieldAge, "empty")
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, reject(domain.FieldAge, "not a number")
		}
	}
	age, err := strconv.Atoi(digits)
	if err != nil || age < MinAge || age > MaxAge {
		return 0, reject(domain.FieldAge, "outside %d..%d", MinAge, MaxAge)
	}
	return age, nil
}

// Gender maps a button token to a domain.Gender.
func Gender(token string) (domain.Gender, error) {
	switch token {
	case TokenFemale:
		return domain.GenderFemale, nil
	case TokenMale:
		return domain.GenderMale, nil
	case TokenUnspecified:
		return domain.GenderUnspecified, nil
	}
	return "", reject(domain.FieldGender, "unknown token %q", token)
}

// Photo picks the highest-resolution variant. Platforms list sizes in
// ascending order, so on a tie the later variant wins. Variants without an id
// or with a non-positive dimension are ignored.
func Photo(images []domain.ImageVariant) (domain.Photo, error) {
	best := -1
	for i, img := range images {
		if img.FileID == "" || img.Width <= 0 || img.Height <= 0 {
			continue
		}
		if best < 0 || img.Resolution() >= images[best].Resolution() {
			best = i
		}
	}
	if best < 0 {
		return domain.Photo{}, reject(domain.FieldPhotoID, "no image attached")
	}
	return domain.Photo{FileID: images[best].FileID, UniqueID: images[best].UniqueID}, nil
}

// Education maps a button token to a domain.Education.
func Education(token string) (domain.Education, error) {
	switch token {
	case TokenHighEducation:
		return domain.EducationHigher, nil
	case TokenSecondaryEducation:
		return domain.EducationSecondary, nil
	case TokenNoEducation:
		return domain.EducationNone, nil
	}
	return "", reject(domain.FieldEducation, "unknown token %q", token)
}

// News maps the opt-in buttons to a boolean.
func News(token string) (bool, error) {
	switch token {
	case TokenAgreed:
		return true, nil
	case TokenDeclined:
		return false, nil
	}
	return false, reject(domain.FieldWantsNews, "unknown token %q", token)
}

package services

import (
	"fmt"
	"locals-bot/errors"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type nameRequest struct {
	Name string `validate:"required,max=64"`
}

var (
	adjectives = []string{"quiet", "rapid", "amber", "lunar", "brave", "misty", "silver", "cosmic", "hidden", "frosty"}
	nouns      = []string{"falcon", "harbor", "comet", "willow", "ember", "canyon", "otter", "signal", "meadow", "beacon"}
)

// NormalizeName trims the input and checks it can be stored as a local or peer name.
func NormalizeName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if err := validate.Struct(nameRequest{Name: name}); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrInvalidName, err)
	}
	if strings.IndexFunc(name, unicode.IsControl) >= 0 {
		return "", fmt.Errorf("%w: control characters are not allowed", errors.ErrInvalidName)
	}
	return name, nil
}

// SuffixName appends a random numeric suffix once. The result is not
// checked again for collision.
func SuffixName(name string, rnd Rand) string {
	return fmt.Sprintf("%s-%d", name, rnd.IntN(1000))
}

// RandomName returns an adjective-noun-NNNN name.
func RandomName(rnd Rand) string {
	return fmt.Sprintf("%s-%s-%04d",
		adjectives[rnd.IntN(len(adjectives))],
		nouns[rnd.IntN(len(nouns))],
		rnd.IntN(10000),
	)
}

package httpserver

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/ai-interview-analyzer/internal/domain"
)

const (
	maxJobDescriptionLen = 20000
	maxQuestionLen       = 1000
)

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

type chatRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
}

// resumeRef is a client reference id as issued by the resume upload (ULID).
type resumeRef struct {
	ID string `validate:"required,len=26,alphanum"`
}

// validate runs struct validation and reports the first failing field as an
// invalid-argument error with per-field details.
func validate(v interface{}) (map[string]string, error) {
	err := getValidator().Struct(v)
	if err == nil {
		return nil, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[strings.ToLower(fe.Field())] = fe.Tag()
	}
	return details, fmt.Errorf("%w: %s failed %s", domain.ErrInvalidArgument, strings.ToLower(verrs[0].Field()), verrs[0].Tag())
}

// SanitizeString strips NUL bytes and invalid UTF-8, trims whitespace and caps length.
func SanitizeString(input string, max int) string {
	input = strings.ReplaceAll(input, "\x00", "")
	if !utf8.ValidString(input) {
		input = strings.ToValidUTF8(input, "")
	}
	input = strings.TrimSpace(input)
	if max > 0 && len(input) > max {
		cut := max
		for cut > 0 && !utf8.RuneStart(input[cut]) {
			cut--
		}
		input = input[:cut]
	}
	return input
}

package service

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	goaway "github.com/TwiN/go-away"
	"github.com/asaskevich/govalidator"
)

const maxMenuNameLength = 100

var profanityDetector = goaway.NewProfanityDetector().WithSanitizeLeetSpeak(true).WithSanitizeSpecialCharacters(true).WithSanitizeAccents(false)

// ValidateMenuName checks a dish name before it is sent to a model.
func ValidateMenuName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("menu name is required")
	}
	if utf8.RuneCountInString(name) > maxMenuNameLength {
		return fmt.Errorf("menu name must be at most %d characters", maxMenuNameLength)
	}
	if profanityDetector.IsProfane(name) {
		return errors.New("menu name contains inappropriate language")
	}
	return nil
}

// ValidateVideoURL checks that link is an absolute http(s) URL.
func ValidateVideoURL(link string) error {
	link = strings.TrimSpace(link)
	if link == "" {
		return errors.New("video URL is required")
	}
	if !govalidator.IsURL(link) {
		return errors.New("invalid video URL")
	}
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("video URL must be an absolute http or https URL")
	}
	return nil
}

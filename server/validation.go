package server

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxPostLength        = 300
	maxImages            = 4
	maxBioLength         = 160
	minNameLength        = 3
	maxNameLength        = 30
	minPasswordLength    = 8
	maxMessageLength     = 1000
	minCommunityName     = 3
	maxCommunityName     = 50
	maxDescriptionLength = 300
	maxAdTitleLength     = 100
	maxAdContentLength   = 300
)

var handlePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

type validationError string

func (e validationError) Error() string { return string(e) }

func lengthBetween(field, value string, min, max int) error {
	n := utf8.RuneCountInString(value)
	if n < min {
		if min == 1 {
			return validationError(fmt.Sprintf("%s is required", field))
		}
		return validationError(fmt.Sprintf("%s must be at least %d characters", field, min))
	}
	if n > max {
		return validationError(fmt.Sprintf("%s must be at most %d characters", field, max))
	}
	return nil
}

func validateHandle(handle string) error {
	if err := lengthBetween("handle", handle, minNameLength, maxNameLength); err != nil {
		return err
	}
	if !handlePattern.MatchString(handle) {
		return validationError("handle may only contain letters, numbers and underscores")
	}
	return nil
}

func validateUsername(username string) error {
	return lengthBetween("username", strings.TrimSpace(username), minNameLength, maxNameLength)
}

type signUpRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Handle   string `json:"handle"`
	Password string `json:"password"`
}

func (r signUpRequest) validate() error {
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return validationError("email is invalid")
	}
	if err := validateUsername(r.Username); err != nil {
		return err
	}
	if err := validateHandle(r.Handle); err != nil {
		return err
	}
	if utf8.RuneCountInString(r.Password) < minPasswordLength {
		return validationError(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	return nil
}

type signInRequest struct {
	EmailOrUsername string `json:"emailOrUsername"`
	Password        string `json:"password"`
}

type createPostRequest struct {
	Text        string   `json:"text"`
	Images      []string `json:"images"`
	CommunityId *string  `json:"communityId"`
}

func (r createPostRequest) validate() error {
	if err := lengthBetween("text", strings.TrimSpace(r.Text), 1, maxPostLength); err != nil {
		return err
	}
	if len(r.Images) > maxImages {
		return validationError(fmt.Sprintf("at most %d images are allowed", maxImages))
	}
	return nil
}

type commentRequest struct {
	Text string `json:"text"`
}

type updateUserRequest struct {
	Username     *string `json:"username"`
	Handle       *string `json:"handle"`
	Bio          *string `json:"bio"`
	ProfileImage *string `json:"profileImage"`
}

func (r updateUserRequest) validate() error {
	if r.Username != nil {
		if err := validateUsername(*r.Username); err != nil {
			return err
		}
	}
	if r.Handle != nil {
		if err := validateHandle(*r.Handle); err != nil {
			return err
		}
	}
	if r.Bio != nil && utf8.RuneCountInString(*r.Bio) > maxBioLength {
		return validationError(fmt.Sprintf("bio must be at most %d characters", maxBioLength))
	}
	return nil
}

type createCommunityRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

func (r createCommunityRequest) validate() error {
	if err := lengthBetween("name", strings.TrimSpace(r.Name), minCommunityName, maxCommunityName); err != nil {
		return err
	}
	if utf8.RuneCountInString(r.Description) > maxDescriptionLength {
		return validationError(fmt.Sprintf("description must be at most %d characters", maxDescriptionLength))
	}
	return nil
}

type sendMessageRequest struct {
	RecipientId string `json:"recipientId"`
	Content     string `json:"content"`
}

func (r sendMessageRequest) validate() error {
	if r.RecipientId == "" {
		return validationError("recipientId is required")
	}
	return lengthBetween("content", strings.TrimSpace(r.Content), 1, maxMessageLength)
}

type createAdRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	ImageUrl string `json:"imageUrl"`
	Link     string `json:"link"`
	Active   *bool  `json:"active"`
	Priority int    `json:"priority"`
}

func (r createAdRequest) validate() error {
	if err := lengthBetween("title", strings.TrimSpace(r.Title), 1, maxAdTitleLength); err != nil {
		return err
	}
	return lengthBetween("content", strings.TrimSpace(r.Content), 1, maxAdContentLength)
}

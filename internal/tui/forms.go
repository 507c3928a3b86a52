package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
)

// Credentials are what the login form collects.
type Credentials struct {
	Email    string
	Password string
}

// LoginForm asks for email and password. Nothing is stored here.
func LoginForm(email string) (Credentials, error) {
	creds := Credentials{Email: email}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Sign in").
				Description("Use the account of the consultations service"),
			huh.NewInput().
				Title("Email").
				Value(&creds.Email).
				Validate(validateEmail),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&creds.Password).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("required")
					}
					return nil
				}),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return Credentials{}, err
	}
	creds.Email = strings.TrimSpace(creds.Email)
	return creds, nil
}

// Registration is what the sign-up form collects.
type Registration struct {
	Name      string
	Email     string
	Specialty string
	Password  string
}

// SignUpForm asks for the new account's details. Nothing is stored here.
func SignUpForm(email string) (Registration, error) {
	reg := Registration{Email: email}
	var confirm string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Create account").
				Description("Register with the consultations service"),
			huh.NewInput().
				Title("Full name").
				Value(&reg.Name).
				Validate(validateRequired),
			huh.NewInput().
				Title("Email").
				Value(&reg.Email).
				Validate(validateEmail),
			huh.NewInput().
				Title("Specialty").
				Description("Optional").
				Value(&reg.Specialty),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&reg.Password).
				Validate(validateRequired),
			huh.NewInput().
				Title("Repeat password").
				EchoMode(huh.EchoModePassword).
				Value(&confirm).
				Validate(func(s string) error {
					if s != reg.Password {
						return errors.New("passwords do not match")
					}
					return nil
				}),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return Registration{}, err
	}
	reg.Name = strings.TrimSpace(reg.Name)
	reg.Email = strings.TrimSpace(reg.Email)
	reg.Specialty = strings.TrimSpace(reg.Specialty)
	return reg, nil
}

func validateRequired(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("required")
	}
	return nil
}

func validateEmail(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("required")
	}
	at := strings.Index(s, "@")
	if at <= 0 || at == len(s)-1 || strings.Contains(s[at+1:], "@") {
		return errors.New("not an email address")
	}
	return nil
}

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(title, description string) (bool, error)
}

// FormConfirmer prompts on the terminal.
type FormConfirmer struct{}

func (FormConfirmer) Confirm(title, description string) (bool, error) {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Delete").
				Negative("Keep").
				Value(&ok),
		),
	).WithTheme(getTheme()).Run()
	if err != nil {
		return false, fmt.Errorf("confirmation aborted: %w", err)
	}
	return ok, nil
}

// AssumeYes approves without asking, for --yes.
type AssumeYes struct{}

func (AssumeYes) Confirm(string, string) (bool, error) { return true, nil }

// NamePrompt asks for a consultation name when none was given.
func NamePrompt() (string, error) {
	var name string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Consultation name").
				Description("Usually the patient's name").
				Value(&name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("required")
					}
					return nil
				}),
		),
	).WithTheme(getTheme()).Run()
	return strings.TrimSpace(name), err
}

package tui

import (
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/medivoice/medivoice/internal/config"
	"github.com/medivoice/medivoice/internal/notify"
)

// editNotifications handles the notifications section edit with type and custom messages
func editNotifications(cfg *config.Config) error {
	enabled := cfg.Notifications.Enabled
	notifType := cfg.Notifications.Type
	if notifType == "" {
		notifType = "desktop"
	}
	var configureMessages bool

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable notifications?").
				Description("Recording, upload and result notifications").
				Value(&enabled),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Notification Type").
				Options(
					huh.NewOption("Desktop notifications (notify-send)", "desktop"),
					huh.NewOption("Log to console only", "log"),
					huh.NewOption("None (silent)", "none"),
				).
				Value(&notifType),
			huh.NewConfirm().
				Title("Configure custom notification messages?").
				Affirmative("Yes").
				Negative("No, use defaults").
				Value(&configureMessages),
		).WithHideFunc(func() bool { return !enabled }),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Notifications.Enabled = enabled
	cfg.Notifications.Type = notifType
	if enabled && configureMessages {
		return editNotificationMessages(cfg)
	}
	return nil
}

func editNotificationMessages(cfg *config.Config) error {
	for {
		resolved := cfg.Notifications.Messages.Resolve()

		var options []huh.Option[string]
		for _, def := range notify.MessageDefs {
			body := []rune(resolved[def.Type].Body)
			if len(body) > 30 {
				body = append(body[:30], []rune("...")...)
			}
			options = append(options, huh.NewOption(fmt.Sprintf("%s: %q", def.ConfigKey, string(body)), def.ConfigKey))
		}
		options = append(options, huh.NewOption("Back", "back"))

		var selected string
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("Notification Messages").
					Description("Select a message to edit").
					Options(options...).
					Value(&selected),
			),
		).WithTheme(getTheme())

		if err := form.Run(); err != nil {
			return err
		}
		if selected == "back" {
			return nil
		}
		_ = editSingleMessage(cfg, selected)
	}
}

func editSingleMessage(cfg *config.Config, configKey string) error {
	field := cfg.Notifications.Messages.Field(configKey)
	if field == nil {
		return fmt.Errorf("unknown message %q", configKey)
	}
	var def notify.MessageDef
	for _, d := range notify.MessageDefs {
		if d.ConfigKey == configKey {
			def = d
			break
		}
	}

	title := field.Title
	body := field.Body

	var fields []huh.Field
	if !def.IsError {
		fields = append(fields, huh.NewInput().
			Title("Title").
			Description(fmt.Sprintf("Default: %s", def.DefaultTitle)).
			Placeholder(def.DefaultTitle).
			Value(&title))
	}
	fields = append(fields, huh.NewInput().
		Title("Body").
		Description(fmt.Sprintf("Default: %s", def.DefaultBody)).
		Placeholder(def.DefaultBody).
		Value(&body))

	if err := huh.NewForm(huh.NewGroup(fields...)).WithTheme(getTheme()).Run(); err != nil {
		return err
	}

	*field = config.MessageConfig{Title: title, Body: body}
	return nil
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"newscast/internal/config"
)

type doctorCheck struct {
	label   string
	kind    statusKind
	message string
}

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and collaborator settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			checks := collaboratorChecks(cfg)
			if _, err := ctx.checkpoints(cmd.Context()); err != nil {
				checks = append([]doctorCheck{{"Store", statusError, err.Error()}}, checks...)
			} else {
				checks = append([]doctorCheck{{"Store", statusOK, cfg.Store.Driver}}, checks...)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Newscast doctor", colorize) {
				fmt.Fprintln(out, line)
			}
			failures := 0
			for _, check := range checks {
				if check.kind == statusError {
					failures++
				}
				fmt.Fprintln(out, renderStatusLine(check.label, check.kind, check.message, colorize))
			}
			if failures > 0 {
				return fmt.Errorf("%d check(s) failed", failures)
			}
			return nil
		},
	}
}

func collaboratorChecks(cfg *config.Config) []doctorCheck {
	checks := []doctorCheck{
		endpointCheck("News", cfg.News.BaseURL, cfg.News.APIKey),
		endpointCheck("Script LLM", cfg.LLM.BaseURL, cfg.LLM.APIKey),
		endpointCheck("Speech", cfg.Speech.BaseURL, cfg.Speech.APIKey),
		endpointCheck("Video", cfg.Video.PrimaryURL, cfg.Video.APIKey),
		endpointCheck("Render", cfg.Render.BaseURL, cfg.Render.APIKey),
	}

	if cfg.Video.FallbackURL != "" {
		checks = append(checks, doctorCheck{"Video fallback", statusOK, cfg.Video.FallbackURL})
	} else {
		checks = append(checks, doctorCheck{"Video fallback", statusInfo, "not configured"})
	}

	switch {
	case !cfg.Publish.Enabled:
		checks = append(checks, doctorCheck{"Publish", statusInfo, "disabled"})
	case cfg.Publish.ClientID == "" || cfg.Publish.ClientSecret == "" || cfg.Publish.RefreshToken == "":
		checks = append(checks, doctorCheck{"Publish", statusError, "missing OAuth client or refresh token"})
	default:
		checks = append(checks, doctorCheck{"Publish", statusOK, "privacy " + cfg.Publish.PrivacyStatus})
	}

	if cfg.Notifications.NtfyTopic == "" {
		checks = append(checks, doctorCheck{"Notifications", statusInfo, "disabled"})
	} else {
		checks = append(checks, doctorCheck{"Notifications", statusOK, cfg.Notifications.NtfyTopic})
	}
	return checks
}

func endpointCheck(label, baseURL, apiKey string) doctorCheck {
	switch {
	case strings.TrimSpace(baseURL) == "":
		return doctorCheck{label, statusError, "base URL not set"}
	case strings.TrimSpace(apiKey) == "":
		return doctorCheck{label, statusWarn, baseURL + " (no API key)"}
	default:
		return doctorCheck{label, statusOK, baseURL}
	}
}

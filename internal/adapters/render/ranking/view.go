package ranking

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/bnema/token-pool-router/internal/application"
	"github.com/bnema/token-pool-router/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

const quotaBarWidth = 20

type RenderOptions struct {
	Now time.Time
}

func renderRanking(ranking application.Ranking, opts RenderOptions, s styles) string {
	mode := "ordinary model"
	if ranking.TopTier {
		mode = "top-tier model"
	}

	lines := []string{
		s.title.Render(fmt.Sprintf("Ranking for %s (%s)", SanitizeForTerminal(ranking.Model), mode)),
		s.header.Render(fmt.Sprintf("eligible: %d  blocked: %d", len(ranking.Accounts), len(ranking.Blocked))),
	}

	if len(ranking.Accounts) == 0 {
		lines = append(lines, s.warning.Render("No eligible account."))
	}

	maxQuota := 0
	for _, account := range ranking.Accounts {
		maxQuota = max(maxQuota, account.Runtime.Quota())
	}

	for i, account := range ranking.Accounts {
		lines = append(lines, s.section.Render(renderRanked(i+1, account, maxQuota, opts, s)))
	}

	if len(ranking.Blocked) > 0 {
		blocked := []string{s.header.Render("blocked:")}
		for _, account := range ranking.Blocked {
			blocked = append(blocked, blockedLine(account, opts, s))
		}
		lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, blocked...)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderRanked(position int, account domain.Account, maxQuota int, opts RenderOptions, s styles) string {
	title := lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.position.Render(fmt.Sprintf("#%d", position)),
		" ",
		s.account.Render(accountTitle(account)),
		" ",
		s.tier.Render(account.Tier().String()),
	)

	return lipgloss.JoinVertical(lipgloss.Left, title, runtimeLine(account, maxQuota, opts, s))
}

func renderAccounts(statuses []application.Status, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Accounts"),
		s.header.Render(fmt.Sprintf("accounts: %d", len(statuses))),
	}

	if len(statuses) == 0 {
		lines = append(lines, s.empty.Render("No accounts configured."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	maxQuota := 0
	for _, status := range statuses {
		maxQuota = max(maxQuota, status.Quota)
	}

	for _, status := range statuses {
		title := lipgloss.JoinHorizontal(
			lipgloss.Top,
			s.account.Render(accountTitle(status.Account)),
			" ",
			s.tier.Render(status.Tier.String()),
		)
		parts := []string{title, runtimeLine(status.Account, maxQuota, opts, s)}
		if status.Blocked {
			parts = append(parts, blockedLine(status.Account, opts, s))
		}
		lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, parts...)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func runtimeLine(account domain.Account, maxQuota int, opts RenderOptions, s styles) string {
	quota := "n/a"
	if account.Runtime.RemainingQuota != nil {
		quota = fmt.Sprintf("%d", *account.Runtime.RemainingQuota)
	}

	healthStyle := lipgloss.NewStyle().Foreground(interpolateColor(account.Runtime.HealthScore, 0, 1))

	parts := []string{
		s.detail.Render("quota:"),
		" ",
		renderProgressBar(account.Runtime.Quota(), maxQuota, quotaBarWidth, s),
		" ",
		s.detail.Render(quota),
		"  ",
		s.detail.Render("health:"),
		" ",
		healthStyle.Render(formatHealth(account.Runtime.HealthScore)),
	}
	if !account.Runtime.QuotaResetAt.IsZero() {
		parts = append(parts, "  ", s.header.Render(formatResetRelative(account.Runtime.QuotaResetAt, opts.Now)))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func blockedLine(account domain.Account, opts RenderOptions, s styles) string {
	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.warning.Render("[blocked]"),
		" ",
		s.detail.Render(accountTitle(account)),
		" ",
		s.header.Render("until "+formatTime(account.Runtime.BlockedUntil, opts.Now)),
	)
}

func accountTitle(account domain.Account) string {
	label := SanitizeForTerminal(account.Label())
	id := SanitizeForTerminal(string(account.ID))
	if label == id {
		return label
	}
	return fmt.Sprintf("%s (%s)", label, id)
}

// SanitizeForTerminal drops control characters, so user-supplied names
// cannot carry escape sequences to the terminal.
func SanitizeForTerminal(value string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, value)
}

func formatHealth(score float64) string {
	if math.IsNaN(score) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", score)
}

func renderProgressBar(value, maxValue, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := 0
	if maxValue > 0 {
		filled = int(math.Round(float64(width) * float64(value) / float64(maxValue)))
	}
	filled = min(max(filled, 0), width)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func formatTime(at, now time.Time) string {
	if at.IsZero() {
		return "unknown"
	}
	if now.IsZero() {
		return at.Format(time.RFC3339)
	}

	yearA, monthA, dayA := now.Date()
	yearB, monthB, dayB := at.Date()
	if yearA == yearB && monthA == monthB && dayA == dayB {
		return at.Format("15:04")
	}

	return at.Format("15:04 on 02 Jan")
}

func formatResetRelative(resetsAt, now time.Time) string {
	if now.IsZero() {
		return "resets " + formatTime(resetsAt, now)
	}

	if resetsAt.Before(now) {
		return "reset due"
	}

	remaining := resetsAt.Sub(now)
	if remaining < 24*time.Hour {
		hours := int(math.Ceil(remaining.Hours()))
		if hours < 1 {
			hours = 1
		}
		suffix := "hours"
		if hours == 1 {
			suffix = "hour"
		}
		return fmt.Sprintf("resets in %d %s (%s)", hours, suffix, resetsAt.Format("15:04"))
	}

	days := int(math.Ceil(remaining.Hours() / 24))
	suffix := "days"
	if days == 1 {
		suffix = "day"
	}

	return fmt.Sprintf("resets in %d %s (%s)", days, suffix, resetsAt.Format("15:04 on 02 Jan"))
}

func interpolateColor(value, min, max float64) lipgloss.Color {
	if max == min || math.IsNaN(value) {
		return lipgloss.Color("245")
	}

	normalized := (value - min) / (max - min)
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}

	// Greyscale ramp from 240 (faded) to 255 (bright).
	interpolated := 240.0 + 15.0*normalized
	return lipgloss.Color(fmt.Sprintf("%d", int(interpolated)))
}

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"encore/internal/label"

	"github.com/fatih/color"
)

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen)
	warn    = color.New(color.FgYellow)
	danger  = color.New(color.FgRed)
	neutral = color.New(color.FgWhite)
)

var stdin = bufio.NewReader(os.Stdin)

func printSuccess(msg string) { success.Println(msg) }
func printWarn(msg string)    { warn.Println(msg) }
func printError(msg string)   { danger.Println(msg) }
func printInfo(msg string)    { neutral.Println(msg) }

func promptRequired(labelText string) (string, error) {
	for {
		accent.Printf("%s: ", labelText)
		line, err := stdin.ReadString('\n')
		if err != nil {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line != "" {
			return line, nil
		}
		warn.Println("Value is required.")
	}
}

func promptOptional(labelText string) (string, error) {
	accent.Printf("%s: ", labelText)
	line, err := stdin.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func promptChoice(labelText string, choices []string, fallback string) (string, error) {
	accent.Printf("%s [%s] (default %s): ", labelText, strings.Join(choices, "/"), fallback)
	line, err := stdin.ReadString('\n')
	if err != nil {
		return "", err
	}
	line = strings.ToLower(strings.TrimSpace(line))
	if line == "" {
		return fallback, nil
	}
	for _, c := range choices {
		if line == c {
			return line, nil
		}
	}
	return "", fmt.Errorf("invalid choice %q", line)
}

func promptInt64(labelText string, min int64) (int64, error) {
	raw, err := promptRequired(labelText)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < min {
		return 0, fmt.Errorf("invalid %s", strings.ToLower(labelText))
	}
	return v, nil
}

func promptFloat(labelText string, min float64) (float64, error) {
	raw, err := promptRequired(labelText)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < min {
		return 0, fmt.Errorf("invalid %s", strings.ToLower(labelText))
	}
	return v, nil
}

func promptTime(labelText string) (string, error) {
	raw, err := promptRequired(labelText + " (e.g. 2026-09-01T20:00:00Z)")
	if err != nil {
		return "", err
	}
	if _, err := time.Parse(time.RFC3339, raw); err != nil {
		return "", fmt.Errorf("invalid time: %w", err)
	}
	return raw, nil
}

// decodeInto round-trips a generic API payload into a typed view so render
// code works with real fields instead of map lookups.
func decodeInto[T any](payload any) (T, error) {
	var out T
	raw, err := json.Marshal(payload)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}

func renderDashboard(payload map[string]any) error {
	dash, err := decodeInto[label.Dashboard](payload)
	if err != nil {
		return err
	}

	m := dash.Manager
	accent.Printf("== %s ==\n", firstNonEmpty(m.Username, m.Email, "Manager"))
	fmt.Printf("Budget: %s   Level %d (%d%% to next)   XP %d   Skill points %d\n",
		formatCents(m.BudgetCents), m.Level, m.XPProgressPercent, m.XP, m.SkillPoints)
	fmt.Printf("Season income %s   expenses %s\n\n",
		colorizeCents(dash.TotalIncome), colorizeCents(-dash.TotalExpense))

	accent.Println("ROSTER")
	if len(dash.Artists) == 0 {
		neutral.Println("  (no signed artists — `enc artists list pool`)")
	}
	for _, a := range dash.Artists {
		state := "idle"
		if a.CurrentAction != "" {
			state = a.CurrentAction
			if a.ActionEndsAt != nil {
				state += " until " + a.ActionEndsAt.Local().Format("15:04")
			}
		}
		fmt.Printf("  #%-4d %-22s %-10s skill %-3d pop %-3d energy %d/%d  %s\n",
			a.ID, truncate(a.Name, 22), a.Genre, a.Skill, a.Popularity, a.Energy, a.MaxEnergy, state)
	}

	if len(dash.Upcoming) > 0 {
		fmt.Println()
		accent.Println("UPCOMING SHOWS")
		for _, p := range dash.Upcoming {
			fmt.Printf("  #%-4d %-20s @ %-22s %s  tickets %s\n",
				p.ID, truncate(p.ArtistName, 20), truncate(p.VenueName, 22),
				p.ScheduledFor.Local().Format("Jan 02 15:04"), formatCents(p.TicketPriceCents))
		}
	}

	if len(dash.Recent) > 0 {
		fmt.Println()
		accent.Println("RECENT TRANSACTIONS")
		for _, t := range dash.Recent {
			fmt.Printf("  %s  %-10s %-40s %s\n",
				t.CreatedAt.Local().Format("Jan 02 15:04"), t.TransactionType,
				truncate(t.Description, 40), colorizeCents(t.AmountCents))
		}
	}
	return nil
}

func renderArtistsList(payload map[string]any, title string) error {
	wrapper, err := decodeInto[struct {
		Artists []label.ArtistView `json:"artists"`
	}](payload)
	if err != nil {
		return err
	}
	accent.Println(title)
	if len(wrapper.Artists) == 0 {
		neutral.Println("  (none)")
		return nil
	}
	for _, a := range wrapper.Artists {
		if a.Signed {
			fmt.Printf("  #%-4d %-22s %-10s talent %-3d skill %-3d pop %-3d energy %d/%d\n",
				a.ID, truncate(a.Name, 22), a.Genre, a.Talent, a.Skill, a.Popularity, a.Energy, a.MaxEnergy)
			continue
		}
		fmt.Printf("  #%-4d %-22s %-10s talent %-3d  needs level %-2d  cost %s\n",
			a.ID, truncate(a.Name, 22), a.Genre, a.Talent, a.RequiredLevel, formatCents(a.SigningCostCents))
	}
	return nil
}

func renderArtistDetail(payload map[string]any) error {
	detail, err := decodeInto[struct {
		Artist    label.ArtistView            `json:"artist"`
		Scheduled []label.ScheduledActionView `json:"scheduled_actions"`
	}](payload)
	if err != nil {
		return err
	}
	a := detail.Artist
	accent.Printf("== %s (#%d) ==\n", a.Name, a.ID)
	fmt.Printf("Genre %s   talent %d   skill %d   popularity %d   energy %d/%d\n",
		a.Genre, a.Talent, a.Skill, a.Popularity, a.Energy, a.MaxEnergy)
	if len(a.Traits) > 0 {
		parts := make([]string, 0, len(a.Traits))
		for name, v := range a.Traits {
			parts = append(parts, fmt.Sprintf("%s=%d", name, v))
		}
		fmt.Printf("Traits: %s\n", strings.Join(parts, "  "))
	}
	if a.CurrentAction != "" {
		ends := ""
		if a.ActionEndsAt != nil {
			ends = " until " + a.ActionEndsAt.Local().Format("Jan 02 15:04")
		}
		warn.Printf("Busy: %s%s\n", a.CurrentAction, ends)
	} else if !a.Signed {
		fmt.Printf("Unsigned: needs level %d, signing cost %s\n", a.RequiredLevel, formatCents(a.SigningCostCents))
	} else {
		success.Println("Idle")
	}
	if len(detail.Scheduled) > 0 {
		fmt.Println()
		accent.Println("SCHEDULED")
		for _, s := range detail.Scheduled {
			fmt.Printf("  #%-4d %-10s %s -> %s\n",
				s.ID, s.Activity,
				s.StartAt.Local().Format("Jan 02 15:04"), s.EndsAt.Local().Format("15:04"))
		}
	}
	return nil
}

func renderVenuesList(payload map[string]any) error {
	wrapper, err := decodeInto[struct {
		Venues []label.VenueView `json:"venues"`
	}](payload)
	if err != nil {
		return err
	}
	accent.Println("VENUES")
	for _, v := range wrapper.Venues {
		lock := ""
		if !v.Available {
			lock = danger.Sprint("  [locked]")
		}
		fmt.Printf("  #%-4d %-28s tier %d  cap %-5d prestige %-2d fee %-10s min ticket %s%s\n",
			v.ID, truncate(v.Name, 28), v.Tier, v.Capacity, v.Prestige,
			formatCents(v.BookingCostCents), formatCents(v.MinTicketPriceCents), lock)
	}
	return nil
}

func renderPerformancesList(payload map[string]any) error {
	wrapper, err := decodeInto[struct {
		Performances []label.PerformanceView `json:"performances"`
	}](payload)
	if err != nil {
		return err
	}
	accent.Println("PERFORMANCES")
	if len(wrapper.Performances) == 0 {
		neutral.Println("  (none)")
		return nil
	}
	for _, p := range wrapper.Performances {
		line := fmt.Sprintf("  #%-4d %-20s @ %-24s %s  %-12s",
			p.ID, truncate(p.ArtistName, 20), truncate(p.VenueName, 24),
			p.ScheduledFor.Local().Format("Jan 02 15:04"), p.Status)
		if p.Status == "completed" {
			line += fmt.Sprintf("  crowd %-5d net %s", p.Attendance, colorizeCents(p.NetRevenueCents))
		}
		fmt.Println(line)
	}
	return nil
}

func renderPerformanceDetail(payload map[string]any) error {
	p, err := decodeInto[label.PerformanceView](payload)
	if err != nil {
		return err
	}
	accent.Printf("== Performance #%d ==\n", p.ID)
	fmt.Printf("%s @ %s\n", p.ArtistName, p.VenueName)
	fmt.Printf("When: %s   duration %dm   ticket %s   status %s\n",
		p.ScheduledFor.Local().Format("Mon Jan 02 15:04"), p.DurationMinutes,
		formatCents(p.TicketPriceCents), p.Status)
	if p.Status == "completed" {
		fmt.Printf("Attendance %d   gross %s   net %s\n",
			p.Attendance, formatCents(p.GrossRevenueCents), colorizeCents(p.NetRevenueCents))
	}
	return nil
}

func renderEstimate(payload map[string]any) error {
	est, err := decodeInto[label.RevenueEstimate](payload)
	if err != nil {
		return err
	}
	accent.Println("REVENUE ESTIMATE")
	fmt.Printf("Expected attendance: %d\n", est.Attendance)
	fmt.Printf("Gross ticket sales:  %s\n", formatCents(est.GrossRevenueCents))
	fmt.Printf("Venue cut:          -%s\n", formatCents(est.VenueCutCents))
	fmt.Printf("Expenses:           -%s\n", formatCents(est.ExpensesCents))
	fmt.Printf("Merch:              +%s\n", formatCents(est.MerchRevenueCents))
	fmt.Printf("Estimated net:       %s\n", colorizeCents(est.NetRevenueCents))
	neutral.Println("The actual night still swings with performance and fatigue.")
	return nil
}

func renderOutcome(payload map[string]any) error {
	out, err := decodeInto[label.PerformanceOutcome](payload)
	if err != nil {
		return err
	}
	accent.Printf("== Show #%d settled ==\n", out.PerformanceID)
	fmt.Printf("Attendance: %d\n", out.Attendance)
	fmt.Printf("Net revenue: %s\n", colorizeCents(out.NetRevenueCents))
	fmt.Printf("Artist gains: +%d skill, +%d popularity\n", out.SkillGain, out.PopularityGain)
	return nil
}

func renderBooking(payload map[string]any) error {
	res, err := decodeInto[label.BookPerformanceResult](payload)
	if err != nil {
		return err
	}
	success.Printf("Booked performance #%d.\n", res.PerformanceID)
	fmt.Printf("Ticket price %s (after venue minimum)   booking fee %s   budget left %s\n",
		formatCents(res.TicketPriceCents), formatCents(res.BookingFeeCents), formatCents(res.BudgetCents))
	return nil
}

func renderScheduled(payload map[string]any, activity, startAt string) error {
	wrapper, err := decodeInto[struct {
		ID int64 `json:"id"`
	}](payload)
	if err != nil {
		return err
	}
	success.Printf("Scheduled %s at %s (action #%d).\n", activity, startAt, wrapper.ID)
	return nil
}

func renderLedger(payload map[string]any) error {
	wrapper, err := decodeInto[struct {
		Transactions []label.TransactionView `json:"transactions"`
	}](payload)
	if err != nil {
		return err
	}
	accent.Println("LEDGER")
	if len(wrapper.Transactions) == 0 {
		neutral.Println("  (no transactions)")
		return nil
	}
	var income, expense int64
	for _, t := range wrapper.Transactions {
		if t.AmountCents >= 0 {
			income += t.AmountCents
		} else {
			expense += -t.AmountCents
		}
		fmt.Printf("  %s  %-10s %-44s %s\n",
			t.CreatedAt.Local().Format("Jan 02 15:04"), t.TransactionType,
			truncate(t.Description, 44), colorizeCents(t.AmountCents))
	}
	fmt.Printf("\nShown income %s   shown expenses %s\n", formatCents(income), formatCents(expense))
	return nil
}

func renderSimpleOK(payload map[string]any, msg string) error {
	_ = payload
	printSuccess(msg)
	return nil
}

// formatCents renders int64 cents as $1,234.56.
func formatCents(v int64) string {
	negative := v < 0
	if negative {
		v = -v
	}
	whole := v / 100
	frac := v % 100
	s := fmt.Sprintf("$%s.%02d", comma(whole), frac)
	if negative {
		return "-" + s
	}
	return s
}

func colorizeCents(v int64) string {
	switch {
	case v > 0:
		return success.Sprintf("+%s", formatCents(v))
	case v < 0:
		return danger.Sprint(formatCents(v))
	default:
		return neutral.Sprint(formatCents(0))
	}
}

func comma(v int64) string {
	s := strconv.FormatInt(v, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

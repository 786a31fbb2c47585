package report

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/pable/rift-rewind/internal/model"
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

// PrintResultHeader prints a one-line summary of a finished rewind.
func PrintResultHeader(w io.Writer, rec *model.ResultRecord, now time.Time) {
	p := rec.Player
	rank := "Unranked"
	if p.Solo != nil {
		rank = fmt.Sprintf("%s %s %d LP", p.Solo.Tier, p.Solo.Rank, p.Solo.LeaguePoints)
	}
	fmt.Fprintf(w, "\nPlayer: %s#%s  |  Region: %s  |  Rank: %s  |  Matches: %d of %s  |  Cached: %s\n\n",
		p.GameName, p.TagLine, p.Region, rank,
		rec.MatchCount, humanize.Comma(int64(rec.TotalMatches)), humanize.RelTime(rec.CachedAt, now, "ago", "from now"))
}

// PrintOverview prints the headline numbers of the analytics.
func PrintOverview(w io.Writer, a *model.Analytics) {
	table := newTable(w)
	table.Header("GAMES", "WIN%", "HOURS", "AVG_MIN", "K", "D", "A", "KDA", "VISION", "CHAMPS", "DIVERSITY")
	table.Append(
		strconv.Itoa(a.KDA.Games),
		fmt.Sprintf("%.0f%%", a.WinRate()),
		fmt.Sprintf("%.1f", a.TimeSpent.TotalHours),
		fmt.Sprintf("%.1f", a.TimeSpent.AvgGameLength),
		fmt.Sprintf("%.1f", a.KDA.AvgKills),
		fmt.Sprintf("%.1f", a.KDA.AvgDeaths),
		fmt.Sprintf("%.1f", a.KDA.AvgAssists),
		fmt.Sprintf("%.2f", a.KDA.Ratio),
		fmt.Sprintf("%.1f", a.Vision.AvgVisionScore),
		strconv.Itoa(a.Pool.UniqueChampions),
		fmt.Sprintf("%.0f%%", a.Pool.DiversityScore),
	)
	table.Render()
}

// PrintChampionTable prints the favorite champions, most played first.
func PrintChampionTable(w io.Writer, champs []model.ChampionStats) {
	if len(champs) == 0 {
		fmt.Fprintln(w, "No champion data.")
		return
	}
	table := newTable(w)
	table.Header("CHAMPION", "GAMES", "W", "WIN%", "K", "D", "A", "KDA")
	for _, c := range champs {
		table.Append(
			c.Name,
			strconv.Itoa(c.Games),
			strconv.Itoa(c.Wins),
			fmt.Sprintf("%.0f%%", c.WinRate),
			fmt.Sprintf("%.1f", c.AvgKills),
			fmt.Sprintf("%.1f", c.AvgDeaths),
			fmt.Sprintf("%.1f", c.AvgAssists),
			fmt.Sprintf("%.2f", c.KDA),
		)
	}
	table.Render()
}

// PrintHighlights prints best match, duo partner and achievements.
func PrintHighlights(w io.Writer, a *model.Analytics) {
	if b := a.BestMatch; b != nil {
		fmt.Fprintf(w, "Best match:   %s %d/%d/%d (%s, %.0f min)\n",
			b.Champion, b.Kills, b.Deaths, b.Assists, b.Result, b.Duration)
	}
	if d := a.Duo; d != nil {
		fmt.Fprintf(w, "Duo partner:  %s, %d games, %.0f%% wins\n", d.PartnerName, d.GamesTogether, d.WinRate)
	}
	for _, ach := range a.Achievements {
		fmt.Fprintf(w, "Achievement:  %s\n", ach.Description)
	}
	if a.Percentile.Comparison != "" {
		fmt.Fprintf(w, "Percentile:   %s\n", a.Percentile.Comparison)
	}
}

// PrintSamplingTable prints the per-month breakdown of a sampling plan.
func PrintSamplingTable(w io.Writer, p *model.SamplingPlan) {
	fmt.Fprintf(w, "Sampled %d of %s matches (%.0f%%, %s tier, %s)\n\n",
		p.SelectedCount, humanize.Comma(int64(p.TotalCount)), p.Percentage*100, p.TierLabel, p.ConfidenceLabel)
	table := newTable(w)
	table.Header("MONTH", "TOTAL", "SELECTED", "SHARE")
	for _, k := range p.Months() {
		m := p.PerMonth[k]
		share := "—"
		if m.Total > 0 {
			share = fmt.Sprintf("%.0f%%", float64(m.Selected)/float64(m.Total)*100)
		}
		table.Append(k, strconv.Itoa(m.Total), strconv.Itoa(m.Selected), share)
	}
	table.Render()
}

// PrintStatus prints a poll document.
func PrintStatus(w io.Writer, doc *model.StatusDoc, now time.Time) {
	fmt.Fprintf(w, "State:    %s\n", doc.State)
	if doc.Message != "" {
		fmt.Fprintf(w, "Message:  %s\n", doc.Message)
	}
	if doc.Progress.Planned > 0 {
		fmt.Fprintf(w, "Progress: %d/%d matches, batch %d\n", doc.Progress.Analyzed, doc.Progress.Planned, doc.Progress.Batch)
	}
	fmt.Fprintf(w, "Updated:  %s\n", humanize.RelTime(doc.UpdatedAt, now, "ago", "from now"))
}

// NarrativeMarkdown lays out the filled narrative slots and the insights
// as a markdown document, in slot order.
func NarrativeMarkdown(rec *model.ResultRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s's Rewind\n\n", rec.Player.GameName)
	if t := rec.Insights.PersonalityTitle; t != "" {
		fmt.Fprintf(&b, "_%s_\n\n", t)
	}
	for _, slot := range model.NarrativeSlots {
		text := rec.Narrative[slot]
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", slotTitle(slot), text)
	}
	// Slots outside the known list still get shown, sorted by name.
	var extra []string
	known := make(map[string]bool, len(model.NarrativeSlots))
	for _, s := range model.NarrativeSlots {
		known[s] = true
	}
	for slot, text := range rec.Narrative {
		if !known[slot] && text != "" {
			extra = append(extra, slot)
		}
	}
	sort.Strings(extra)
	for _, slot := range extra {
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", slotTitle(slot), rec.Narrative[slot])
	}

	ins := rec.Insights
	writeList(&b, "Strengths", ins.Strengths)
	writeList(&b, "Weaknesses", ins.Weaknesses)
	writeList(&b, "Coaching tips", ins.CoachingTips)
	if ins.PlayStyle != "" {
		fmt.Fprintf(&b, "**Play style:** %s\n", ins.PlayStyle)
	}
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "### %s\n\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
	b.WriteString("\n")
}

func slotTitle(slot string) string {
	words := strings.Split(slot, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// RenderNarrative writes the narrative through glamour. Plain markdown is
// written when rendering fails.
func RenderNarrative(w io.Writer, rec *model.ResultRecord, width int) error {
	md := NarrativeMarkdown(rec)
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("notty"),
		glamour.WithWordWrap(width),
	)
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			_, err = io.WriteString(w, out)
			return err
		}
	}
	_, werr := io.WriteString(w, md)
	if werr != nil {
		return fmt.Errorf("write narrative: %w", werr)
	}
	return nil
}

// PrintResult prints the full terminal view of a rewind to stdout.
func PrintResult(rec *model.ResultRecord, withNarrative bool) error {
	w := os.Stdout
	now := time.Now()
	PrintResultHeader(w, rec, now)
	PrintOverview(w, &rec.Analytics)
	fmt.Fprintln(w)
	PrintChampionTable(w, rec.Analytics.Favorites)
	fmt.Fprintln(w)
	PrintHighlights(w, &rec.Analytics)
	if rec.Sampling != nil {
		fmt.Fprintln(w)
		PrintSamplingTable(w, rec.Sampling)
	}
	if !withNarrative {
		return nil
	}
	fmt.Fprintln(w)
	return RenderNarrative(w, rec, 0)
}

package reports

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

const (
	ColorGreen   int = 0x00ff00
	ColorRed     int = 0xff0000
	ColorGold    int = 0xffd700
	ColorBlurple int = 0x5865f2
)

const (
	noCachedSummoners    = "No summoners have been cached yet."
	noNotCachedSummoners = "All summoners are cached."
)

// Embeds renders the summary as the report, compared and not compared embeds,
// always in this order
func (summary Summary) Embeds() []*discordgo.MessageEmbed {
	return []*discordgo.MessageEmbed{
		ReportEmbed(summary),
		ComparedEmbed(summary.Status.Cached),
		NotComparedEmbed(summary.Status.NotCached),
	}
}

// One inline field per metric, in report order
func ReportEmbed(summary Summary) *discordgo.MessageEmbed {

	name := summary.GuildName
	if name == "" {
		name = "Unknown Guild"
	}
	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("📊 %s's Ranked Solo Queue Report", name),
		Description: fmt.Sprintf("Report for the past %d days.", summary.RangeDays),
		Color:       ColorGreen,
	}
	for _, row := range summary.Report {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   row.Metric,
			Value:  fmt.Sprintf("%s - %s", row.TopValue, row.TopName),
			Inline: true,
		})
	}
	return embed
}

func ComparedEmbed(names []string) *discordgo.MessageEmbed {

	embed := &discordgo.MessageEmbed{
		Title:       "🏆 Summoners Compared",
		Description: "A list of all the summoners in your Guild whose stats have been compared.",
		Color:       ColorGreen,
	}
	if len(names) == 0 {
		embed.Description = noCachedSummoners
		return embed
	}
	embed.Fields = listFields("🟢 Cached Summoners", "🟢", names)
	return embed
}

func NotComparedEmbed(names []string) *discordgo.MessageEmbed {

	embed := &discordgo.MessageEmbed{
		Title:       "🔴 Summoners Not Compared",
		Description: "A list of all the summoners in your Guild whose stats have not been retrieved yet.",
		Color:       ColorRed,
	}
	if len(names) == 0 {
		embed.Description = noNotCachedSummoners
		return embed
	}
	embed.Fields = listFields("🔴 Not Cached Summoners", "🔴", names)
	return embed
}

func GeneratingNotice() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "📊 Generating Weekly Report...",
		Description: "Please wait while the automated weekly report is being prepared...",
		Color:       ColorGold,
		Footer:      &discordgo.MessageEmbedFooter{Text: "This may take a few seconds."},
	}
}

func NoDataNotice() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "❌ Weekly Report Not Available",
		Description: "No report data found. Make sure summoners are added to your server using `/summoners add RiotName Tag`.",
		Color:       ColorRed,
	}
}

func ErrorNotice() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "❌ Automatic Weekly Report Error",
		Description: "An error occurred while generating the weekly report. Please check logs for details.",
		Color:       ColorRed,
	}
}

// Discord limits a field value to 1024 characters and a whole message to 6000,
// shared by the three embeds of the report
const (
	fieldValueLimit = 1024
	listLimit       = 1800
)

// Bulleted names split over as many fields as needed. Names past listLimit
// are summed up in a last "...and N more" line
func listFields(name string, bullet string, names []string) []*discordgo.MessageEmbedField {

	var values []string
	var current strings.Builder
	total := 0
	shown := 0
	for _, summoner := range names {
		line := fmt.Sprintf("%s %s", bullet, summoner)
		size := utf8.RuneCountInString(line) + 1
		if total+size > listLimit {
			break
		}
		if current.Len() > 0 && utf8.RuneCountInString(current.String())+size > fieldValueLimit {
			values = append(values, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
		total += size
		shown++
	}
	if hidden := len(names) - shown; hidden > 0 {
		more := fmt.Sprintf("…and %d more", hidden)
		if utf8.RuneCountInString(current.String())+utf8.RuneCountInString(more)+1 > fieldValueLimit {
			values = append(values, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(more)
	}
	values = append(values, current.String())

	fields := make([]*discordgo.MessageEmbedField, len(values))
	for i, value := range values {
		fieldName := name
		if i > 0 {
			fieldName = name + " (cont.)"
		}
		fields[i] = &discordgo.MessageEmbedField{Name: fieldName, Value: value}
	}
	return fields
}

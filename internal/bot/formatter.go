package bot

import (
	"fmt"
	"strings"
	"time"

	"scuttle/internal/reports"
	"scuttle/internal/statsapi"

	"github.com/bwmarrin/discordgo"
)

const hourlyNote = "📝 Note: match data is updated hourly on the hour."

type helpEntry struct {
	name  string
	value string
}

var helpEntries = []helpEntry{
	{"✅ /enable", "Sets the main channel where the bot will send automated messages"},
	{"ℹ️ /support", "Provides the link to join the support server."},
	{"📈 /stats daily {RIOT ID}", "Displays daily stats for Riot ID specified\nExample: `/stats daily Username NA1`"},
	{"📈 /stats weekly {RIOT ID}", "Displays weekly stats for Riot ID specified\nExample: `/stats weekly Username NA1`"},
	{"📈 /stats monthly {RIOT ID}", "Displays monthly stats for Riot ID specified\nExample: `/stats monthly Username NA1`"},
	{"🕒 /hours weekly {RIOT ID}", "Displays the time played over the last week\nExample: `/hours weekly Username NA1`"},
	{"🏆 /rankings weekly", "Displays the top summoners of your Guild since Monday"},
	{"💼 /reports weekly", "Displays weekly stat comparison for all summoners in your Guild"},
	{"💼 /reports monthly", "Displays monthly stat comparison for all summoners in your Guild"},
	{"🎮 /summoners list", "Displays all summoners in your Guild"},
	{"🎮 /summoners add {RIOT ID}", "Adds a summoner to your Guild\nExample: `/summoners add Username NA1`"},
	{"🎮 /summoners remove {RIOT ID}", "Removes a summoner from your Guild\nExample: `/summoners remove Username NA1`"},
}

func HelpMessage() []*discordgo.MessageEmbed {

	embed := discordgo.MessageEmbed{
		Title:       "🪴 Scuttle is brought to you by Skillet Studios",
		Description: "I am a bot that provides quick and detailed **League of Legends** statistics.",
		Color:       reports.ColorGreen,
		Footer: &discordgo.MessageEmbedFooter{
			Text: "📝 Note: match data is updated hourly on the hour. If you add a new summoner to your Guild, expect to see stats at the next hour.",
		},
	}
	for _, entry := range helpEntries {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: entry.name, Value: entry.value, Inline: false})
	}
	return []*discordgo.MessageEmbed{&embed}
}

func SupportMessage(link string) []*discordgo.MessageEmbed {

	description := fmt.Sprintf("If you need assistance, have questions, or just want to connect with other users, "+
		"you're welcome to join our **[Support Server](%s)**! 🛡️\n\n"+
		"Our team and community members are here to help you with anything related to the bot. "+
		"Don't hesitate to drop by and say hi! 😊", link)
	return []*discordgo.MessageEmbed{{
		Title:       "🛠️ Need Help? Join Our Support Server! 🎉",
		Description: description,
		Color:       reports.ColorBlurple,
		Footer:      &discordgo.MessageEmbedFooter{Text: "We're here to help! 🧡 | See you there!"},
	}}
}

func errorEmbed(title string, description string) []*discordgo.MessageEmbed {
	return []*discordgo.MessageEmbed{{Title: title, Description: description, Color: reports.ColorRed}}
}

func GuildOnly() []*discordgo.MessageEmbed {
	return errorEmbed("❌ Command Error", "This command must be used in a server.")
}

func CommandError() []*discordgo.MessageEmbed {
	return errorEmbed("❌ Command Error", "An error occurred while executing the command.")
}

func InputNotValid(errorMessage string) []*discordgo.MessageEmbed {
	return errorEmbed("❌ Input Not Valid", errorMessage)
}

// Error of a given command, e.g. "❌ Stats Command Error"
func CommandFailed(command string, description string) []*discordgo.MessageEmbed {
	return errorEmbed(fmt.Sprintf("❌ %s Command Error", titleCase(command)), description)
}

func EnableSucceeded() []*discordgo.MessageEmbed {
	return []*discordgo.MessageEmbed{{
		Title:       "✅ Enable Command",
		Description: "Scuttle is now enabled on this channel.",
		Color:       reports.ColorGreen,
	}}
}

func EnableFailed(description string) []*discordgo.MessageEmbed {
	return errorEmbed("❌ Enable Command Failed", description)
}

func SummonersList(guildName string, roster []statsapi.Summoner) []*discordgo.MessageEmbed {

	lines := make([]string, len(roster))
	for i, summoner := range roster {
		lines[i] = fmt.Sprintf("🟢 %s", summoner.Name)
	}
	return []*discordgo.MessageEmbed{{
		Title:       fmt.Sprintf("🎮 %s's Summoners", guildName),
		Description: "This is a list of all the summoners added to this guild.",
		Color:       reports.ColorGreen,
		Fields:      []*discordgo.MessageEmbedField{{Name: "Summoners", Value: strings.Join(lines, "\n")}},
	}}
}

func SummonerAdded(riotid statsapi.RiotId, guildName string, success bool) []*discordgo.MessageEmbed {
	if !success {
		return errorEmbed("❌ Summoner Add Command", fmt.Sprintf("Failed to add **%s** to **%s**.", riotid, guildName))
	}
	return []*discordgo.MessageEmbed{{
		Title:       "✅ Summoner Add Command",
		Description: fmt.Sprintf("**%s** was successfully added to **%s**.", riotid, guildName),
		Color:       reports.ColorGreen,
	}}
}

func SummonerRemoved(riotid statsapi.RiotId, guildName string, success bool) []*discordgo.MessageEmbed {
	if !success {
		return errorEmbed("❌ Summoner Remove Command", fmt.Sprintf("Failed to remove **%s** from **%s**.", riotid, guildName))
	}
	return []*discordgo.MessageEmbed{{
		Title:       "✅ Summoner Remove Command",
		Description: fmt.Sprintf("**%s** was successfully removed from **%s**.", riotid, guildName),
		Color:       reports.ColorGreen,
	}}
}

func ReportsAdminOnly() []*discordgo.MessageEmbed {
	return errorEmbed("❌ Reports Command", "This command is only for the bot admin.")
}

// One inline field per stat, in the order the service sent them
func StatsMessage(riotid statsapi.RiotId, rangeDays int, stats []statsapi.Stat) []*discordgo.MessageEmbed {

	embed := discordgo.MessageEmbed{
		Title:       fmt.Sprintf("📈 Summoner %s's stats for the past %d day(s).", riotid, rangeDays),
		Description: fmt.Sprintf("Collected stats for **%s**'s Ranked Solo Queue matches over the past %d day(s).", riotid, rangeDays),
		Color:       reports.ColorGreen,
		Footer:      &discordgo.MessageEmbedFooter{Text: hourlyNote},
	}
	for _, stat := range stats {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: stat.Name, Value: stat.Value, Inline: true})
	}
	return []*discordgo.MessageEmbed{&embed}
}

func HoursMessage(riotid statsapi.RiotId, rangeDays int, playtime statsapi.Playtime) []*discordgo.MessageEmbed {
	return []*discordgo.MessageEmbed{{
		Title:       fmt.Sprintf("🕒 %s's playtime for the past %d day(s)", riotid, rangeDays),
		Description: fmt.Sprintf("This is the total time **%s** has spent playing Ranked Solo Queue over the past %d days.", riotid, rangeDays),
		Color:       reports.ColorGreen,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Total Matches Played", Value: fmt.Sprintf("%d", playtime.MatchesPlayed), Inline: true},
			{Name: "Total Playtime", Value: playtime.Pretty, Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "📝 Note: Match data updates hourly on the hour."},
	}}
}

func RankingsMessage(guildName string, start time.Time, now time.Time, rankings []statsapi.Ranking) []*discordgo.MessageEmbed {

	if guildName == "" {
		guildName = "this guild"
	}
	embed := discordgo.MessageEmbed{
		Title:       fmt.Sprintf("🏆 Top Summoners (%s - %s)", start.Format("Jan 2"), now.Format("Jan 2")),
		Description: fmt.Sprintf("Top rankings in %s", guildName),
		Color:       reports.ColorGold,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Data is updated hourly."},
	}
	for _, ranking := range rankings {
		lines := make([]string, len(ranking.Entries))
		for i, entry := range ranking.Entries {
			lines[i] = fmt.Sprintf("%d. %s - %s", i+1, entry.Value, entry.Name)
		}
		value := strings.Join(lines, "\n")
		if value == "" {
			value = "-"
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: ranking.Stat, Value: value, Inline: true})
	}
	return []*discordgo.MessageEmbed{&embed}
}

func NoRankings() []*discordgo.MessageEmbed {
	return []*discordgo.MessageEmbed{{
		Title:       "❌ Rankings Command",
		Description: "No rankings data available yet.",
		Color:       reports.ColorRed,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Data is updated hourly."},
	}}
}

func titleCase(word string) string {
	if word == "" {
		return word
	}
	return strings.ToUpper(word[:1]) + word[1:]
}
